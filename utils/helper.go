package utils

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/grupodatos/dwh_backend/config"
	"github.com/bsm/redislock"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func IsValidEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}

// ParseDecimal converts a string to a decimal.Decimal value.
func ParseDecimal(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, errors.New("empty decimal string")
	}

	dec, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, err
	}

	return dec, nil
}

// DateOnly truncates a timestamp to midnight UTC. Dimension dates and
// exchange-rate dates are always stored this way so equality lookups work.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func FindOldestDate(dates ...*time.Time) *time.Time {
	var oldest *time.Time
	for _, d := range dates {
		if d == nil {
			continue
		}
		if oldest == nil || d.Before(*oldest) {
			oldest = d
		}
	}
	return oldest
}

// RunLock obtains a cross-process lock via redislock and returns its release
// function. Returns a no-op release when Redis is not configured; the caller
// still holds the MySQL advisory run lock in that case.
func RunLock(ctx context.Context, lockKey string, ttl time.Duration, moduleName string, functionName string) (func(), error) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		return func() {}, nil
	}

	lock, err := locker.Obtain(ctx, lockKey, ttl, nil)
	if err == redislock.ErrNotObtained {
		config.LogError(logger, moduleName, functionName, "Could not obtain run lock", lockKey, err)
		return nil, fmt.Errorf("could not obtain run lock %s", lockKey)
	} else if err != nil {
		config.LogError(logger, moduleName, functionName, "Error obtaining run lock", lockKey, err)
		return nil, err
	}
	return func() { _ = lock.Release(ctx) }, nil
}
