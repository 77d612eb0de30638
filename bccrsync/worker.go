package bccrsync

import (
	"context"
	"time"

	"bitbucket.org/grupodatos/dwh_backend/models"
	"bitbucket.org/grupodatos/dwh_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	rateSource   = "BCCR"
	fromCurrency = "CRC"
	toCurrency   = "USD"

	// The service rejects very wide ranges, so backfills walk the span in
	// 180-day windows.
	backfillChunkDays = 180
)

// Worker pulls the CRC/USD sell-rate series from the central bank, lands it
// in the staging table and promotes it into the rate dimension.
type Worker struct {
	db         *gorm.DB
	logger     *logrus.Logger
	client     *bccrClient
	chunkPause time.Duration
}

func NewWorker(db *gorm.DB, logger *logrus.Logger) (*Worker, error) {
	client, err := newBccrClient()
	if err != nil {
		return nil, err
	}
	return &Worker{
		db:         db,
		logger:     logger,
		client:     client,
		chunkPause: 2 * time.Second,
	}, nil
}

// BackfillHistorical loads the series for [start, end] in chunked requests,
// then promotes the whole staged series at once. Safe to rerun over any
// range; existing dates are updated in place.
func (w *Worker) BackfillHistorical(ctx context.Context, start, end time.Time) (int, error) {
	start = utils.DateOnly(start)
	end = utils.DateOnly(end)

	staged := 0
	for chunkStart := start; !chunkStart.After(end); {
		chunkEnd := chunkStart.AddDate(0, 0, backfillChunkDays-1)
		if chunkEnd.After(end) {
			chunkEnd = end
		}

		count, err := w.stageRange(ctx, chunkStart, chunkEnd)
		if err != nil {
			return staged, err
		}
		staged += count

		w.logger.WithFields(logrus.Fields{
			"from":   chunkStart.Format("2006-01-02"),
			"to":     chunkEnd.Format("2006-01-02"),
			"staged": count,
		}).Info("rates.backfill.chunk")

		chunkStart = chunkEnd.AddDate(0, 0, 1)
		if chunkStart.After(end) {
			break
		}
		select {
		case <-ctx.Done():
			return staged, ctx.Err()
		case <-time.After(w.chunkPause):
		}
	}

	promoted, err := models.PromoteStagedRates(w.db.WithContext(ctx))
	if err != nil {
		return staged, err
	}
	w.logger.WithFields(logrus.Fields{"staged": staged, "promoted": promoted}).Info("rates.backfill.done")
	return promoted, nil
}

// UpdateCurrent refreshes yesterday's and today's rates. Intended to run on a
// daily schedule; the publisher sometimes posts today's value late, so
// yesterday is always re-fetched too.
func (w *Worker) UpdateCurrent(ctx context.Context) (int, error) {
	today := utils.DateOnly(time.Now().UTC())
	yesterday := today.AddDate(0, 0, -1)

	staged, err := w.stageRange(ctx, yesterday, today)
	if err != nil {
		return 0, err
	}

	promoted, err := models.PromoteStagedRates(w.db.WithContext(ctx))
	if err != nil {
		return 0, err
	}
	w.logger.WithFields(logrus.Fields{"staged": staged, "promoted": promoted}).Info("rates.update.done")
	return promoted, nil
}

func (w *Worker) stageRange(ctx context.Context, start, end time.Time) (int, error) {
	points, err := w.client.getIndicator(ctx, indicatorUsdSell, start, end)
	if err != nil {
		return 0, err
	}

	rows := make([]models.StagedExchangeRate, 0, len(points))
	for _, p := range points {
		rows = append(rows, models.StagedExchangeRate{
			Date:         utils.DateOnly(p.Date),
			FromCurrency: fromCurrency,
			ToCurrency:   toCurrency,
			Rate:         p.Value,
			Source:       rateSource,
		})
	}
	if err := models.UpsertStagedRates(w.db.WithContext(ctx), rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}
