package bccrsync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const sampleResponse = `<?xml version="1.0" encoding="utf-8"?>
<string xmlns="http://ws.sdde.bccr.fi.cr">&lt;Datos_de_INGC011_CAT_INDICADORECONOMIC&gt;
  &lt;INGC011_CAT_INDICADORECONOMIC&gt;
    &lt;COD_INDICADORINTERNO&gt;317&lt;/COD_INDICADORINTERNO&gt;
    &lt;DES_FECHA&gt;2024-03-04T00:00:00-06:00&lt;/DES_FECHA&gt;
    &lt;NUM_VALOR&gt;512.340000&lt;/NUM_VALOR&gt;
  &lt;/INGC011_CAT_INDICADORECONOMIC&gt;
  &lt;INGC011_CAT_INDICADORECONOMIC&gt;
    &lt;COD_INDICADORINTERNO&gt;317&lt;/COD_INDICADORINTERNO&gt;
    &lt;DES_FECHA&gt;2024-03-05T00:00:00-06:00&lt;/DES_FECHA&gt;
    &lt;NUM_VALOR&gt;513.120000&lt;/NUM_VALOR&gt;
  &lt;/INGC011_CAT_INDICADORECONOMIC&gt;
  &lt;INGC011_CAT_INDICADORECONOMIC&gt;
    &lt;COD_INDICADORINTERNO&gt;317&lt;/COD_INDICADORINTERNO&gt;
    &lt;DES_FECHA&gt;garbage&lt;/DES_FECHA&gt;
    &lt;NUM_VALOR&gt;1.000000&lt;/NUM_VALOR&gt;
  &lt;/INGC011_CAT_INDICADORECONOMIC&gt;
  &lt;INGC011_CAT_INDICADORECONOMIC&gt;
    &lt;COD_INDICADORINTERNO&gt;317&lt;/COD_INDICADORINTERNO&gt;
    &lt;DES_FECHA&gt;2024-03-06T00:00:00-06:00&lt;/DES_FECHA&gt;
    &lt;NUM_VALOR&gt;0&lt;/NUM_VALOR&gt;
  &lt;/INGC011_CAT_INDICADORECONOMIC&gt;
&lt;/Datos_de_INGC011_CAT_INDICADORECONOMIC&gt;</string>`

func TestParseIndicatorResponse(t *testing.T) {
	points, err := parseIndicatorResponse([]byte(sampleResponse))
	if err != nil {
		t.Fatalf("parseIndicatorResponse: %v", err)
	}
	// The garbage-date row and the zero-value row are skipped.
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2: %+v", len(points), points)
	}

	if points[0].Value.String() != "512.34" {
		t.Fatalf("first value = %s, want 512.34", points[0].Value)
	}
	wantDay := time.Date(2024, 3, 4, 0, 0, 0, 0, points[0].Date.Location())
	if points[0].Date.Year() != wantDay.Year() || points[0].Date.Month() != wantDay.Month() || points[0].Date.Day() != wantDay.Day() {
		t.Fatalf("first date = %v, want 2024-03-04", points[0].Date)
	}

	if points[1].Value.String() != "513.12" {
		t.Fatalf("second value = %s, want 513.12", points[1].Value)
	}
}

func TestParseIndicatorResponseEmptyPayload(t *testing.T) {
	empty := `<?xml version="1.0" encoding="utf-8"?><string xmlns="http://ws.sdde.bccr.fi.cr"></string>`
	points, err := parseIndicatorResponse([]byte(empty))
	if err != nil {
		t.Fatalf("parseIndicatorResponse: %v", err)
	}
	if len(points) != 0 {
		t.Fatalf("got %d points, want 0", len(points))
	}
}

func TestParseIndicatorResponseBadEnvelope(t *testing.T) {
	if _, err := parseIndicatorResponse([]byte("not xml at all")); err == nil {
		t.Fatalf("expected envelope decode error")
	}
}

func testClient(baseURL string) *bccrClient {
	return &bccrClient{
		baseURL: baseURL,
		email:   "etl@example.com",
		token:   "token",
		name:    "dwh_backend",
		http:    &http.Client{Timeout: 5 * time.Second},
		limiter: time.Tick(time.Millisecond),
	}
}

func TestGetIndicatorFetchesAndParses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("Indicador") != indicatorUsdSell || q.Get("Token") != "token" {
			t.Errorf("unexpected query: %v", q)
		}
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	points, err := testClient(srv.URL).getIndicator(context.Background(), indicatorUsdSell,
		time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("getIndicator: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2", len(points))
	}
}

func TestGetIndicatorSurfacesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "credenciales invalidas", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).getIndicator(context.Background(), indicatorUsdSell, time.Now(), time.Now())
	if err == nil || !strings.Contains(err.Error(), "bccr api error 403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}

func TestGetIndicatorSurfacesTruncatedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Declare more bytes than are sent so the client's read fails
		// mid-body on a 200 response.
		w.Header().Set("Content-Length", "4096")
		_, _ = w.Write([]byte("<string>partial"))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).getIndicator(context.Background(), indicatorUsdSell, time.Now(), time.Now())
	if err == nil || !strings.Contains(err.Error(), "bccr response read") {
		t.Fatalf("expected read error, got %v", err)
	}
}
