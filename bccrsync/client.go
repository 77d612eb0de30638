package bccrsync

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/grupodatos/dwh_backend/utils"
	"github.com/shopspring/decimal"
)

// indicatorUsdSell is the central bank's indicator code for the USD sell rate
// in CRC.
const indicatorUsdSell = "317"

type bccrClient struct {
	baseURL string
	email   string
	token   string
	name    string
	http    *http.Client
	limiter <-chan time.Time
}

func newBccrClient() (*bccrClient, error) {
	baseURL := strings.TrimSpace(os.Getenv("BCCR_API_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://gee.bccr.fi.cr/Indicadores/Suscripciones/WS/wsindicadoreseconomicos.asmx"
	}
	email := strings.TrimSpace(os.Getenv("BCCR_EMAIL"))
	token := strings.TrimSpace(os.Getenv("BCCR_TOKEN"))
	if email == "" || token == "" {
		return nil, errors.New("bccr credentials are empty: set BCCR_EMAIL and BCCR_TOKEN")
	}
	name := strings.TrimSpace(os.Getenv("BCCR_SUBSCRIBER_NAME"))
	if name == "" {
		name = "dwh_backend"
	}
	rateLimitPerMin := int64(10)
	if v := strings.TrimSpace(os.Getenv("BCCR_RATE_LIMIT_PER_MIN")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			rateLimitPerMin = n
		}
	}
	interval := time.Minute / time.Duration(rateLimitPerMin)

	return &bccrClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		email:   email,
		token:   token,
		name:    name,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: time.Tick(interval),
	}, nil
}

// IndicatorPoint is one dated observation of an economic indicator.
type IndicatorPoint struct {
	Date  time.Time
	Value decimal.Decimal
}

// getIndicator fetches the indicator series for [start, end] inclusive. The
// service takes dd/mm/yyyy dates and answers with a dataset wrapped in an
// XML string envelope.
func (c *bccrClient) getIndicator(ctx context.Context, indicator string, start, end time.Time) ([]IndicatorPoint, error) {
	<-c.limiter

	params := url.Values{}
	params.Set("Indicador", indicator)
	params.Set("FechaInicio", start.Format("02/01/2006"))
	params.Set("FechaFinal", end.Format("02/01/2006"))
	params.Set("Nombre", c.name)
	params.Set("SubNiveles", "N")
	params.Set("CorreoElectronico", c.email)
	params.Set("Token", c.token)

	endpoint := c.baseURL + "/ObtenerIndicadoresEconomicosXML?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/xml")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("bccr api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if readErr != nil {
		return nil, fmt.Errorf("bccr response read: %w", readErr)
	}

	return parseIndicatorResponse(body)
}

type stringEnvelope struct {
	XMLName xml.Name `xml:"string"`
	Payload string   `xml:",chardata"`
}

type indicatorDataset struct {
	XMLName xml.Name       `xml:"Datos_de_INGC011_CAT_INDICADORECONOMIC"`
	Rows    []indicatorRow `xml:"INGC011_CAT_INDICADORECONOMIC"`
}

type indicatorRow struct {
	Indicator string `xml:"COD_INDICADORINTERNO"`
	DateRaw   string `xml:"DES_FECHA"`
	ValueRaw  string `xml:"NUM_VALOR"`
}

var indicatorDateLayouts = []string{
	"2006-01-02T15:04:05-07:00",
	"2006-01-02T15:04:05",
}

// parseIndicatorResponse unwraps the string envelope and decodes the dataset
// inside it. Rows with unparseable dates or values are skipped rather than
// failing the whole response.
func parseIndicatorResponse(body []byte) ([]IndicatorPoint, error) {
	var envelope stringEnvelope
	if err := xml.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("bccr envelope decode: %w", err)
	}
	payload := strings.TrimSpace(envelope.Payload)
	if payload == "" {
		return nil, nil
	}

	var dataset indicatorDataset
	if err := xml.Unmarshal([]byte(payload), &dataset); err != nil {
		return nil, fmt.Errorf("bccr dataset decode: %w", err)
	}

	points := make([]IndicatorPoint, 0, len(dataset.Rows))
	for _, row := range dataset.Rows {
		date, ok := parseIndicatorDate(row.DateRaw)
		if !ok {
			continue
		}
		value, err := utils.ParseDecimal(row.ValueRaw)
		if err != nil || value.IsZero() {
			continue
		}
		points = append(points, IndicatorPoint{Date: date, Value: value})
	}
	return points, nil
}

func parseIndicatorDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range indicatorDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
