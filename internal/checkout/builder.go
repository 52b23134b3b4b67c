package checkout

import (
	"time"

	"github.com/ai360store-ux/Digimarket/internal/domain"
	"github.com/ai360store-ux/Digimarket/internal/pricing"
)

// Order is the result of a checkout: the prefilled message and the link that
// opens it. Quote is set for a single option, Summary for a selection.
type Order struct {
	Reference string           `json:"reference"`
	Message   string           `json:"message"`
	URL       string           `json:"url"`
	Quote     *pricing.Quote   `json:"quote,omitempty"`
	Summary   *pricing.Summary `json:"summary,omitempty"`
}

// Builder turns a product option into an Order.
type Builder struct {
	host   string
	prefix string
	now    func() time.Time
	newRef func(prefix string) string
}

// NewBuilder creates a Builder for the given chat host and reference prefix.
func NewBuilder(host, prefix string) *Builder {
	return &Builder{
		host:   host,
		prefix: prefix,
		now:    time.Now,
		newRef: NewReference,
	}
}

// Build prices the option and renders the order message and deep link.
func (b *Builder) Build(p *domain.Product, sub domain.Subsection, opt domain.PriceOption, settings domain.AppSettings) Order {
	quote := pricing.NewQuote(sub, opt, settings.DefaultTaxPercent, b.now())
	ref := b.newRef(b.prefix)
	msg := Message(Input{
		Template:   settings.WhatsappTemplate,
		Product:    p.Title,
		Subsection: sub.Name,
		Option:     opt.Name,
		Duration:   quote.Duration,
		Price:      opt.Price,
		MRP:        opt.MRP,
		TaxPercent: quote.TaxPercent,
		Currency:   settings.CurrencySymbol,
		Reference:  ref,
	})
	return Order{
		Reference: ref,
		Message:   msg,
		URL:       DeepLink(b.host, settings.WhatsappNumber, msg),
		Quote:     &quote,
	}
}

// BuildSelection renders an order for one option per subsection.
func (b *Builder) BuildSelection(p *domain.Product, sum pricing.Summary, settings domain.AppSettings) Order {
	ref := b.newRef(b.prefix)
	lines := make([]Line, 0, len(sum.Lines))
	for _, q := range sum.Lines {
		lines = append(lines, Line{
			Subsection: q.SubsectionName,
			Option:     q.OptionName,
			Duration:   q.Duration,
			Price:      q.Price,
			MRP:        q.MRP,
			TaxPercent: q.TaxPercent,
		})
	}
	msg := Message(Input{
		Template:  settings.WhatsappTemplate,
		Product:   p.Title,
		Lines:     lines,
		Currency:  settings.CurrencySymbol,
		Reference: ref,
	})
	return Order{
		Reference: ref,
		Message:   msg,
		URL:       DeepLink(b.host, settings.WhatsappNumber, msg),
		Summary:   &sum,
	}
}
