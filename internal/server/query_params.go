package server

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	dateOnlyLayout  = "2006-01-02"
	yearMonthLayout = "2006-01"
)

var validatorsOnce sync.Once

// registerValidators adds the "yearmonth" tag (YYYY-MM) to gin's validator.
func registerValidators() {
	validatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("yearmonth", func(fl validator.FieldLevel) bool {
			_, err := time.Parse(yearMonthLayout, strings.TrimSpace(fl.Field().String()))
			return err == nil
		})
	})
}

func parseOptionalInt(value string) (*int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func parseOptionalSnowflakeID(value string) (*snowflake.ID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := snowflake.ParseString(trimmed)
	if err != nil || parsed <= 0 {
		return nil, errors.New("invalid_snowflake_id")
	}
	return &parsed, nil
}

// parseOptionalTime accepts RFC3339 or a bare date. Bare dates resolve to the
// start of the day, or its last instant when endOfDay is set.
func parseOptionalTime(value string, endOfDay bool) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		parsed = parsed.UTC()
		return &parsed, nil
	}
	if parsed, err := time.Parse(dateOnlyLayout, trimmed); err == nil {
		if endOfDay {
			parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
		} else {
			parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
		}
		return &parsed, nil
	}
	return nil, errors.New("invalid_time")
}

// parseOptionalMonth parses YYYY-MM into the first day of that month.
func parseOptionalMonth(value string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := time.Parse(yearMonthLayout, trimmed)
	if err != nil {
		return nil, errors.New("invalid_month")
	}
	return &parsed, nil
}

// optionalIDParam parses a snowflake query parameter into a field validation
// error when it is malformed.
func optionalIDParam(value string, field string) (*snowflake.ID, error) {
	id, err := parseOptionalSnowflakeID(value)
	if err != nil {
		return nil, newValidationError(field, "invalid_"+field, "invalid id")
	}
	return id, nil
}

func idOrZero(id *snowflake.ID) snowflake.ID {
	if id == nil {
		return 0
	}
	return *id
}
