package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ai360store-ux/Digimarket/internal/domain"
)

// Quote is the derived, display-ready view of a single price option.
type Quote struct {
	SubsectionID   string          `json:"subsectionId"`
	SubsectionName string          `json:"subsectionName"`
	OptionID       string          `json:"optionId"`
	OptionName     string          `json:"optionName"`
	Duration       string          `json:"duration"`
	Price          float64         `json:"price"`
	MRP            float64         `json:"mrp"`
	Discount       int             `json:"discountPercent"`
	TaxPercent     float64         `json:"taxPercent"`
	Total          decimal.Decimal `json:"total"`
	Expired        bool            `json:"expired"`
}

// NewQuote prices one option. defaultTax applies when the option carries no
// tax of its own.
func NewQuote(sub domain.Subsection, opt domain.PriceOption, defaultTax float64, now time.Time) Quote {
	tax := EffectiveTax(opt, defaultTax)
	duration := FormatDuration(opt, now)
	return Quote{
		SubsectionID:   sub.ID,
		SubsectionName: sub.Name,
		OptionID:       opt.ID,
		OptionName:     opt.Name,
		Duration:       duration,
		Price:          opt.Price,
		MRP:            opt.MRP,
		Discount:       DiscountPercent(opt.MRP, opt.Price),
		TaxPercent:     tax,
		Total:          TaxInclusiveTotal(opt.Price, tax),
		Expired:        duration == LabelExpired,
	}
}

// Quotes prices every option of a product in display order.
func Quotes(p *domain.Product, defaultTax float64, now time.Time) []Quote {
	out := make([]Quote, 0)
	if p == nil {
		return out
	}
	for _, s := range p.Subsections {
		for _, o := range s.Options {
			out = append(out, NewQuote(s, o, defaultTax, now))
		}
	}
	return out
}
