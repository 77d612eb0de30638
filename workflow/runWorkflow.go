package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/grupodatos/dwh_backend/config"
	"bitbucket.org/grupodatos/dwh_backend/models"
	"bitbucket.org/grupodatos/dwh_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrEmptyStaging aborts a run before any warehouse write when the staged
// batch looks empty or corrupt.
var ErrEmptyStaging = errors.New("staging is empty: no customers or products to consolidate")

const runLockName = "dwh_consolidation_run"

// RunOptions tunes one consolidation run.
type RunOptions struct {
	ReportingCurrency string            // defaults to USD
	MissingRatePolicy MissingRatePolicy // defaults to MissingRateDrop
}

func (o RunOptions) withDefaults() RunOptions {
	if o.ReportingCurrency == "" {
		o.ReportingCurrency = "USD"
	}
	if o.MissingRatePolicy == "" {
		o.MissingRatePolicy = MissingRateDrop
	}
	return o
}

// RunResult is the per-stage accounting of a finished (or failed) run.
type RunResult struct {
	RunUID string
	Status models.RunStatus
	Stages []models.StageCounts
}

// ValidateStagingCounts is the empty-batch precondition: a run with zero
// staged customers or zero staged products must fail before touching the
// warehouse.
func ValidateStagingCounts(counts models.StagingCounts) error {
	if counts.Customers == 0 || counts.Products == 0 {
		return ErrEmptyStaging
	}
	return nil
}

type runState struct {
	db     *gorm.DB
	logger *logrus.Logger
	opts   RunOptions

	stagedCustomers []models.StagedCustomer
	stagedProducts  []models.StagedProduct
	stagedLines     []models.StagedLineItem
	bridge          map[models.SourceSystem]map[string]string

	lines    []StandardizedLine
	resolved []ResolvedLine
	batch    FactBatch
}

type stageFunc func(*runState) (models.StageCounts, error)

type stage struct {
	name models.RunStage
	fn   stageFunc
}

func pipelineStages() []stage {
	return []stage{
		{models.StageValidateStaging, (*runState).validateStaging},
		{models.StageLoadDimensions, (*runState).loadDimensions},
		{models.StageResolveKeys, (*runState).resolveKeys},
		{models.StageConvertAndBuildFact, (*runState).convertAndBuildFacts},
		{models.StageLoadFacts, (*runState).loadFacts},
	}
}

// RunConsolidation executes the full pipeline once: validate staging, rebuild
// dimensions, resolve keys, convert amounts, load facts. Stages commit
// independently; a failure aborts the remaining stages but leaves earlier
// commits in place, which is safe because every stage is truncate-then-reload
// or upsert-by-natural-key. Concurrent runs are excluded by a MySQL advisory
// lock on a pinned connection plus a redislock guard when Redis is up.
func RunConsolidation(ctx context.Context, db *gorm.DB, logger *logrus.Logger, opts RunOptions) (RunResult, error) {
	opts = opts.withDefaults()
	if logger == nil {
		logger = config.GetLogger()
	}

	release, err := utils.RunLock(ctx, runLockName, 30*time.Minute, "workflow", "RunConsolidation")
	if err != nil {
		return RunResult{}, err
	}
	defer release()

	var result RunResult
	err = db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		if err := acquireRunLock(conn); err != nil {
			return err
		}
		defer releaseRunLock(conn)

		var runErr error
		result, runErr = runPipeline(ctx, conn, logger, opts)
		return runErr
	})
	return result, err
}

func runPipeline(ctx context.Context, db *gorm.DB, logger *logrus.Logger, opts RunOptions) (RunResult, error) {
	run, err := models.NewConsolidationRun(db)
	if err != nil {
		return RunResult{}, err
	}
	ctx = utils.SetRunIdInContext(ctx, run.RunUID)

	state := &runState{db: db.WithContext(ctx), logger: logger, opts: opts}
	result := RunResult{RunUID: run.RunUID}

	logger.WithFields(logrus.Fields{
		"run_id":             run.RunUID,
		"reporting_currency": opts.ReportingCurrency,
		"missing_rate":       string(opts.MissingRatePolicy),
	}).Info("run.start")

	for _, st := range pipelineStages() {
		if err := run.SetStage(state.db, st.name); err != nil {
			result.Status = models.RunStatusFailed
			return result, err
		}

		counts, err := st.fn(state)
		if err != nil {
			config.LogError(logger, "workflow", string(st.name), "stage failed", run.RunUID, err)
			result.Status = models.RunStatusFailed
			if finishErr := run.Finish(state.db, models.RunStatusFailed, result.Stages, err); finishErr != nil {
				config.LogError(logger, "workflow", string(st.name), "failed to persist run failure", run.RunUID, finishErr)
			}
			// Stale success summaries must not outlive a failed run.
			_ = config.RemoveRedisKey("dwh:last_run_summary")
			return result, err
		}

		counts.Stage = st.name
		result.Stages = append(result.Stages, counts)
		logger.WithFields(logrus.Fields{
			"run_id":  run.RunUID,
			"stage":   string(st.name),
			"read":    counts.Read,
			"loaded":  counts.Loaded,
			"dropped": counts.TotalDropped(),
			"reasons": counts.Dropped,
		}).Info("run.stage.done")
	}

	run.Stage = models.StageDone
	if err := run.Finish(state.db, models.RunStatusDone, result.Stages, nil); err != nil {
		result.Status = models.RunStatusFailed
		return result, err
	}
	result.Status = models.RunStatusDone
	// Last successful summary is mirrored to Redis for dashboards; best effort.
	if err := config.SetRedisValue("dwh:last_run_summary", run.Summary, 24*time.Hour); err != nil {
		config.LogError(logger, "workflow", "RunConsolidation", "failed to cache run summary", run.RunUID, err)
	}
	logger.WithFields(logrus.Fields{"run_id": run.RunUID, "stages": len(result.Stages)}).Info("run.done")
	return result, nil
}

// acquireRunLock serializes runs per warehouse via a MySQL advisory lock.
// GET_LOCK is connection-scoped, so the caller must hold a pinned connection
// for the whole run.
func acquireRunLock(conn *gorm.DB) error {
	var ok int
	if err := conn.Raw("SELECT GET_LOCK(?, 30)", runLockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire consolidation run lock %q", runLockName)
	}
	return nil
}

func releaseRunLock(conn *gorm.DB) {
	var _ok int
	_ = conn.Raw("SELECT RELEASE_LOCK(?)", runLockName).Scan(&_ok).Error
}

func (s *runState) validateStaging() (models.StageCounts, error) {
	counts, err := models.GetStagingCounts(s.db)
	if err != nil {
		return models.StageCounts{}, err
	}
	if err := ValidateStagingCounts(counts); err != nil {
		return models.StageCounts{}, err
	}
	total := int(counts.Customers + counts.Products + counts.LineItems)
	return models.StageCounts{Read: total, Loaded: total}, nil
}

func (s *runState) loadDimensions() (models.StageCounts, error) {
	if err := s.db.Find(&s.stagedCustomers).Error; err != nil {
		return models.StageCounts{}, err
	}
	if err := s.db.Find(&s.stagedProducts).Error; err != nil {
		return models.StageCounts{}, err
	}

	bridge, err := models.GetProductMappings(s.db)
	if err != nil {
		return models.StageCounts{}, err
	}

	customers := ConsolidateCustomers(s.stagedCustomers)
	categories := ConsolidateCategories(s.stagedProducts)

	var products ProductConsolidation
	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Truncate in FK order so the reload is idempotent.
		for _, table := range []string{
			"fact_sales", "dim_orders", "dim_times",
			"dim_products", "dim_categories", "dim_customers", "dim_channels",
		} {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return err
			}
		}

		if len(categories) > 0 {
			if err := tx.CreateInBatches(categories, 500).Error; err != nil {
				return err
			}
		}
		categoryIds, err := models.GetCategoryIdsByName(tx)
		if err != nil {
			return err
		}

		products = ConsolidateProducts(s.stagedProducts, bridge, categoryIds)

		if len(customers.Candidates) > 0 {
			if err := tx.CreateInBatches(customers.Candidates, 500).Error; err != nil {
				return err
			}
		}
		if len(products.Candidates) > 0 {
			if err := tx.CreateInBatches(products.Candidates, 500).Error; err != nil {
				return err
			}
		}
		if err := models.UpsertProductMappings(tx, products.NewMappings); err != nil {
			return err
		}
		return tx.Create(models.FixedChannels()).Error
	})
	if err != nil {
		return models.StageCounts{}, err
	}

	// Reload the bridge so self-mapped codes minted above resolve too.
	s.bridge, err = models.GetProductMappings(s.db)
	if err != nil {
		return models.StageCounts{}, err
	}

	counts := models.StageCounts{
		Read:    customers.Read + products.Read,
		Loaded:  len(customers.Candidates) + len(products.Candidates),
		Dropped: map[string]int{},
	}
	for reason, n := range customers.Drops {
		counts.Dropped["customer_"+reason] += n
	}
	for reason, n := range products.Drops {
		counts.Dropped["product_"+reason] += n
	}
	return counts, nil
}

func (s *runState) resolveKeys() (models.StageCounts, error) {
	if err := s.db.Find(&s.stagedLines).Error; err != nil {
		return models.StageCounts{}, err
	}

	emailByKey := make(map[models.SourceSystem]map[string]string)
	for _, c := range s.stagedCustomers {
		email, ok := NormalizeEmail(c.Email)
		if !ok {
			continue
		}
		if emailByKey[c.SourceSystem] == nil {
			emailByKey[c.SourceSystem] = make(map[string]string)
		}
		emailByKey[c.SourceSystem][c.SourceKey] = email
	}

	codeByKey := make(map[models.SourceSystem]map[string]string)
	for _, p := range s.stagedProducts {
		native := NormalizeSKU(p.Code)
		if native == "" {
			continue
		}
		canonical := native
		if mapped, ok := s.bridge[p.SourceSystem][native]; ok {
			canonical = mapped
		}
		if codeByKey[p.SourceSystem] == nil {
			codeByKey[p.SourceSystem] = make(map[string]string)
		}
		codeByKey[p.SourceSystem][p.SourceKey] = canonical
	}

	lines, standardizeDrops, flags := StandardizeLines(s.stagedLines, emailByKey, codeByKey)
	s.lines = lines
	for reason, n := range flags {
		s.logger.WithFields(logrus.Fields{"reason": reason, "count": n}).Warn("lines.value_defaulted")
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if len(lines) == 0 {
			return nil
		}

		minDate, maxDate := lines[0].OrderDate, lines[0].OrderDate
		orderDates := make(map[models.SourceSystem]map[string]time.Time)
		for _, line := range lines {
			if line.OrderDate.Before(minDate) {
				minDate = line.OrderDate
			}
			if line.OrderDate.After(maxDate) {
				maxDate = line.OrderDate
			}
			if orderDates[line.SourceSystem] == nil {
				orderDates[line.SourceSystem] = make(map[string]time.Time)
			}
			if existing, ok := orderDates[line.SourceSystem][line.OrderKey]; !ok || line.OrderDate.Before(existing) {
				orderDates[line.SourceSystem][line.OrderKey] = line.OrderDate
			}
		}

		if err := tx.CreateInBatches(models.NewDimTimeRange(minDate, maxDate), 500).Error; err != nil {
			return err
		}

		var orders []models.DimOrder
		for _, source := range models.AllSourceSystems() {
			for key, date := range orderDates[source] {
				orders = append(orders, models.DimOrder{
					SourceSystem:   source,
					SourceOrderKey: key,
					OrderDate:      date,
				})
			}
		}
		if len(orders) > 0 {
			return tx.CreateInBatches(orders, 500).Error
		}
		return nil
	})
	if err != nil {
		return models.StageCounts{}, err
	}

	resolver, err := NewKeyResolverFromDB(s.db)
	if err != nil {
		return models.StageCounts{}, err
	}
	resolved, resolveDrops := resolver.Resolve(lines)
	s.resolved = resolved

	counts := models.StageCounts{
		Read:    len(s.stagedLines),
		Loaded:  len(resolved),
		Dropped: map[string]int{},
	}
	for reason, n := range standardizeDrops {
		counts.Dropped[reason] += n
	}
	for reason, n := range resolveDrops {
		counts.Dropped[reason] += n
	}
	return counts, nil
}

func (s *runState) convertAndBuildFacts() (models.StageCounts, error) {
	builder := &FactBuilder{
		Rates:             models.NewExchangeRateService(s.db),
		ReportingCurrency: s.opts.ReportingCurrency,
		Policy:            s.opts.MissingRatePolicy,
		Logger:            s.logger,
	}

	batch, err := builder.Build(s.resolved)
	if err != nil {
		return models.StageCounts{}, err
	}
	s.batch = batch

	counts := models.StageCounts{
		Read:    batch.Read,
		Loaded:  len(batch.Facts),
		Dropped: batch.Drops,
	}
	for reason, n := range batch.Kept {
		s.logger.WithFields(logrus.Fields{"reason": reason, "count": n}).Warn("facts.policy_kept")
	}
	return counts, nil
}

func (s *runState) loadFacts() (models.StageCounts, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM fact_sales").Error; err != nil {
			return err
		}
		if len(s.batch.Facts) > 0 {
			if err := tx.CreateInBatches(s.batch.Facts, 500).Error; err != nil {
				return err
			}
		}
		for orderId, total := range s.batch.OrderTotals {
			if err := tx.Model(&models.DimOrder{}).
				Where("id = ?", orderId).
				Update("total_order_usd", total).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.StageCounts{}, err
	}

	return models.StageCounts{Read: len(s.batch.Facts), Loaded: len(s.batch.Facts)}, nil
}
