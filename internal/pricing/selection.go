package pricing

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ai360store-ux/Digimarket/internal/domain"
)

// ErrUnknownOption is returned when a selection names a subsection or option
// the product does not have.
var ErrUnknownOption = errors.New("unknown price option")

// Selection maps a subsection id to the chosen option id.
type Selection map[string]string

// Summary prices one option per subsection and sums them.
type Summary struct {
	Selection Selection       `json:"selection"`
	Lines     []Quote         `json:"lines"`
	Subtotal  float64         `json:"subtotal"`
	MRP       float64         `json:"mrp"`
	Discount  int             `json:"discountPercent"`
	Total     decimal.Decimal `json:"total"`
}

// Expired reports whether any selected option has run out.
func (s Summary) Expired() bool {
	for _, l := range s.Lines {
		if l.Expired {
			return true
		}
	}
	return false
}

// DefaultSelection picks the first option of every subsection that has one.
func DefaultSelection(p *domain.Product) Selection {
	sel := make(Selection)
	if p == nil {
		return sel
	}
	for _, s := range p.Subsections {
		if len(s.Options) > 0 {
			sel[s.ID] = s.Options[0].ID
		}
	}
	return sel
}

// Subtotal prices sel on top of the default selection, so subsections the
// caller leaves out keep their first option. Lines follow subsection order.
func Subtotal(p *domain.Product, sel Selection, defaultTax float64, now time.Time) (Summary, error) {
	merged := DefaultSelection(p)
	for subID, optID := range sel {
		if p == nil {
			return Summary{}, fmt.Errorf("%w: %s/%s", ErrUnknownOption, subID, optID)
		}
		if _, _, ok := p.FindOption(subID, optID); !ok {
			return Summary{}, fmt.Errorf("%w: %s/%s", ErrUnknownOption, subID, optID)
		}
		merged[subID] = optID
	}

	out := Summary{Selection: merged, Lines: make([]Quote, 0, len(merged)), Total: decimal.Zero}
	if p == nil {
		return out, nil
	}
	subtotal, mrp, total := decimal.Zero, decimal.Zero, decimal.Zero
	for _, s := range p.Subsections {
		optID, ok := merged[s.ID]
		if !ok {
			continue
		}
		for _, o := range s.Options {
			if o.ID != optID {
				continue
			}
			q := NewQuote(s, o, defaultTax, now)
			out.Lines = append(out.Lines, q)
			subtotal = subtotal.Add(decimal.NewFromFloat(o.Price))
			mrp = mrp.Add(decimal.NewFromFloat(o.MRP))
			total = total.Add(q.Total)
			break
		}
	}
	out.Subtotal = subtotal.InexactFloat64()
	out.MRP = mrp.InexactFloat64()
	out.Discount = DiscountPercent(out.MRP, out.Subtotal)
	out.Total = total
	return out, nil
}
