package workflow

import (
	"errors"
	"time"

	"bitbucket.org/grupodatos/dwh_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	DropMissingRate = "missing_rate"

	// KeptUnconverted counts lines loaded with their original amount under the
	// KeepOriginal policy. Not a drop, but it must never pass silently.
	KeptUnconverted = "kept_unconverted"
)

// MissingRatePolicy decides what happens to a line whose order-date rate
// cannot be found, including by fallback.
type MissingRatePolicy string

const (
	// MissingRateDrop excludes the line from the fact batch (default).
	MissingRateDrop MissingRatePolicy = "drop"
	// MissingRateKeepOriginal loads the line with the unconverted amount,
	// logged and counted. Only defensible when sources already report in the
	// reporting currency and the rate series has gaps.
	MissingRateKeepOriginal MissingRatePolicy = "keep-original"
)

// RateConverter is the slice of the exchange-rate service the fact builder
// needs; tests substitute a fixed-rate fake.
type RateConverter interface {
	Convert(amount decimal.Decimal, from, to string, on time.Time) (decimal.Decimal, *models.RateResult, error)
}

// FactBuilder turns resolved lines into fact rows, converting unit prices to
// the reporting currency at each line's order date.
type FactBuilder struct {
	Rates             RateConverter
	ReportingCurrency string
	Policy            MissingRatePolicy
	Logger            *logrus.Logger
}

// FactBatch is the fact rows plus the per-order totals accumulated from them.
type FactBatch struct {
	Read        int
	Facts       []models.FactSales
	OrderTotals map[int]decimal.Decimal
	Drops       map[string]int
	Kept        map[string]int
}

var one = decimal.NewFromInt(1)

// Build produces one fact row per resolved line; it never aggregates or
// splits lines. All arithmetic stays in decimal precision.
func (b *FactBuilder) Build(lines []ResolvedLine) (FactBatch, error) {
	batch := FactBatch{
		Read:        len(lines),
		OrderTotals: make(map[int]decimal.Decimal),
		Drops:       map[string]int{},
		Kept:        map[string]int{},
	}

	for _, line := range lines {
		unitPrice := line.UnitPrice
		var rateRef *int

		converted, rate, err := b.Rates.Convert(unitPrice, line.Currency, b.ReportingCurrency, line.OrderDate)
		switch {
		case err == nil:
			unitPrice = converted
			if rate != nil {
				id := rate.RateId
				rateRef = &id
			}
		case errors.Is(err, models.ErrExchangeRateNotFound):
			if b.Policy == MissingRateKeepOriginal {
				batch.Kept[KeptUnconverted]++
				b.Logger.WithFields(logrus.Fields{
					"source":   line.SourceSystem,
					"order":    line.OrderKey,
					"currency": line.Currency,
					"date":     line.OrderDate.Format("2006-01-02"),
				}).Warn("facts.kept_unconverted")
			} else {
				batch.Drops[DropMissingRate]++
				continue
			}
		default:
			return FactBatch{}, err
		}

		qty := decimal.NewFromInt(int64(line.Quantity))
		lineTotal := unitPrice.Mul(qty).Mul(one.Sub(line.Discount.Div(decimalHundred)))

		batch.Facts = append(batch.Facts, models.FactSales{
			ProductId:          line.ProductId,
			TimeId:             line.TimeId,
			CustomerId:         line.CustomerId,
			ChannelId:          line.ChannelId,
			OrderId:            line.OrderId,
			ProductCant:        line.Quantity,
			ProductUnitPrice:   unitPrice,
			LineTotal:          lineTotal,
			DiscountPercentage: line.Discount,
			ExchangeRateId:     rateRef,
		})
		batch.OrderTotals[line.OrderId] = batch.OrderTotals[line.OrderId].Add(lineTotal)
	}

	return batch, nil
}
