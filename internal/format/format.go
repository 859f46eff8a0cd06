// Package format renders amounts and dates the way Croatian users expect them
// ("1.234,56 €", "16. 10. 2026."). Missing or invalid values render as "-".
package format

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"orderportal/server/internal/models"
)

// Placeholder is shown for unknown values
const Placeholder = "-"

// nbsp separates the amount from the currency sign, as hr-HR does
const nbsp = "\u00a0"

// FormatEuro accepts anything that may carry an amount.
// nil, empty strings and unparseable values give the placeholder; zero is a real amount.
func FormatEuro(value any) string {
	d, ok := toDecimal(value)
	if !ok {
		return Placeholder
	}
	return groupDecimal(d, 2) + nbsp + "€"
}

// FormatDate prints "16. 10. 2026." in loc, or the placeholder when the
// date is not set or invalid.
func FormatDate(d models.Date, loc *time.Location) string {
	if !d.Valid {
		return Placeholder
	}
	return d.Time.In(location(loc)).Format("2. 1. 2006.")
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}

func toDecimal(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case nil:
		return decimal.Decimal{}, false
	case decimal.Decimal:
		return v, true
	case *decimal.Decimal:
		if v == nil {
			return decimal.Decimal{}, false
		}
		return *v, true
	case decimal.NullDecimal:
		return v.Decimal, v.Valid
	case models.WireNumber:
		if !v.Present {
			return decimal.Decimal{}, false
		}
		return toDecimal(v.Raw)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return decimal.Decimal{}, false
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	case *string:
		if v == nil {
			return decimal.Decimal{}, false
		}
		return toDecimal(*v)
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(v), true
	default:
		return decimal.Decimal{}, false
	}
}

// groupDecimal renders d with "." thousands grouping and "," as decimal mark
func groupDecimal(d decimal.Decimal, places int32) string {
	fixed := d.StringFixed(places)
	negative := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if negative && strings.Trim(fixed, "0.") != "" {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if fracPart != "" {
		b.WriteByte(',')
		b.WriteString(fracPart)
	}
	return b.String()
}
