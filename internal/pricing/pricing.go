// Package pricing derives display prices, discounts and access durations from
// the catalog model. Every function is total over its inputs and never
// mutates them.
package pricing

import (
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ai360store-ux/Digimarket/internal/domain"
)

// Labels produced by Duration.
const (
	LabelExpired = "Expired"
	dayMillis    = int64(24 * time.Hour / time.Millisecond)
)

// MinimumPrice returns the lowest option price across all subsections, or 0
// when the product has no options.
func MinimumPrice(p *domain.Product) float64 {
	if p == nil {
		return 0
	}
	found := false
	lowest := 0.0
	for _, s := range p.Subsections {
		for _, o := range s.Options {
			if !found || o.Price < lowest {
				lowest = o.Price
				found = true
			}
		}
	}
	return lowest
}

// DiscountPercent returns the rounded percentage saved against mrp, clamped
// to [0, 100]. Zero mrp and price above mrp both yield 0.
func DiscountPercent(mrp, price float64) int {
	if mrp <= 0 || mrp <= price {
		return 0
	}
	if price < 0 {
		price = 0
	}
	return int(math.Round((mrp - price) / mrp * 100))
}

// FormatDuration labels the access period of an option relative to now.
func FormatDuration(opt domain.PriceOption, now time.Time) string {
	return Duration(opt.Type, opt.PresetValue, opt.ExpiryDate, now)
}

// Duration labels an access period. Preset options return their label
// verbatim. Calendar options count remaining days with a ceiling, so 23 hours
// left is "1 Days".
func Duration(kind domain.DurationType, preset string, expiry *time.Time, now time.Time) string {
	switch kind {
	case domain.DurationPreset:
		return preset
	case domain.DurationCalendar:
		if expiry == nil || expiry.IsZero() {
			return ""
		}
		return calendarLabel(RemainingDays(*expiry, now))
	default:
		return ""
	}
}

// RemainingDays is the calendar-day ceiling of the time left until expiry.
func RemainingDays(expiry, now time.Time) int {
	ms := expiry.Sub(now).Milliseconds()
	days := ms / dayMillis
	if ms%dayMillis > 0 {
		days++
	}
	return int(days)
}

func calendarLabel(days int) string {
	if days <= 0 {
		return LabelExpired
	}
	if days < 30 {
		return strconv.Itoa(days) + " Days"
	}
	months, rem := days/30, days%30
	label := strconv.Itoa(months) + " Month"
	if months != 1 {
		label += "s"
	}
	if rem > 0 {
		label += " " + strconv.Itoa(rem) + "d"
	}
	return label
}

// TaxInclusiveTotal returns price * (1 + taxPercent/100) rounded to cents.
func TaxInclusiveTotal(price, taxPercent float64) decimal.Decimal {
	rate := decimal.NewFromFloat(taxPercent).Div(decimal.NewFromInt(100))
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(1).Add(rate)).Round(2)
}

// FormatAmount renders a stored amount the way the storefront prints it:
// integers without decimals, fractions as-is.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// EffectiveTax returns the option's own tax percent, falling back to the
// storefront default.
func EffectiveTax(opt domain.PriceOption, defaultPercent float64) float64 {
	if opt.TaxPercent != nil {
		return *opt.TaxPercent
	}
	return defaultPercent
}
