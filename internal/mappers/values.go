// Package mappers turns backend wire records into the portal's view models.
// Every function here is total: malformed input falls back to a default.
package mappers

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"orderportal/server/internal/models"
)

// parseDecimal accepts locale-invariant numbers only ("12.50", "3", "-1e2")
func parseDecimal(n models.WireNumber) (decimal.Decimal, bool) {
	if !n.Present {
		return decimal.Decimal{}, false
	}
	raw := strings.TrimSpace(n.Raw)
	if raw == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// ParseQuantity maps empty or non-numeric quantities to zero
func ParseQuantity(n models.WireNumber) decimal.Decimal {
	if d, ok := parseDecimal(n); ok {
		return d
	}
	return decimal.Zero
}

// ParseMoney maps empty, null or non-numeric amounts to nil (unknown)
func ParseMoney(n models.WireNumber) *decimal.Decimal {
	if d, ok := parseDecimal(n); ok {
		return &d
	}
	return nil
}

// ParseCount truncates to an integer count, zero on garbage
func ParseCount(n models.WireNumber) int64 {
	return ParseQuantity(n).IntPart()
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate keeps "not set" (nil or empty) apart from "invalid" (unparseable)
func ParseDate(raw *string) models.Date {
	if raw == nil {
		return models.Date{}
	}
	value := strings.TrimSpace(*raw)
	if value == "" {
		return models.Date{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return models.Date{Raw: value, Time: t, Valid: true}
		}
	}
	return models.Date{Raw: value}
}

func stringOr(value *string, fallback string) string {
	if value == nil || *value == "" {
		return fallback
	}
	return *value
}

func nonEmpty(value *string) *string {
	if value == nil || *value == "" {
		return nil
	}
	v := *value
	return &v
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
