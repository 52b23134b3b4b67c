// Package checkout builds the chat order summary and deep link. There is no
// server-side order record; the reference only ties a chat thread back to a
// product option.
package checkout

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ai360store-ux/Digimarket/internal/pricing"
)

// DefaultChatHost is the deep-link host used when none is configured.
const DefaultChatHost = "wa.me"

const (
	defaultGreeting = "Hi, I want to buy licensed game: {product}"
	closingLine     = "Please share the license key activation steps."
)

// Line is one chosen option of the order.
type Line struct {
	Subsection string
	Option     string
	Duration   string
	Price      float64
	MRP        float64
	TaxPercent float64
}

// Input is everything the order summary needs. It carries no domain types so
// the formatter stays a pure string function. Lines, when set, replace the
// single-option fields.
type Input struct {
	Template   string
	Product    string
	Subsection string
	Option     string
	Duration   string
	Price      float64
	MRP        float64
	TaxPercent float64
	Lines      []Line
	Currency   string
	Reference  string
}

func (in Input) lines() []Line {
	if len(in.Lines) > 0 {
		return in.Lines
	}
	return []Line{{
		Subsection: in.Subsection,
		Option:     in.Option,
		Duration:   in.Duration,
		Price:      in.Price,
		MRP:        in.MRP,
		TaxPercent: in.TaxPercent,
	}}
}

// Message renders the order summary that prefills the chat. The product title
// and the reference always appear once, whatever the greeting template holds.
func Message(in Input) string {
	cur := in.Currency
	lines := in.lines()
	var b strings.Builder

	head := greeting(in)
	b.WriteString(head)
	if in.Product != "" && !strings.Contains(head, in.Product) {
		b.WriteString("\nProduct: ")
		b.WriteString(in.Product)
	}
	price, mrp, total := decimal.Zero, decimal.Zero, decimal.Zero
	for _, l := range lines {
		if ed := edition(l.Subsection, l.Option); ed != "" {
			b.WriteString("\nEdition: ")
			b.WriteString(ed)
		}
		if l.Duration != "" {
			b.WriteString("\nAccess: ")
			b.WriteString(l.Duration)
		}
		price = price.Add(decimal.NewFromFloat(l.Price))
		mrp = mrp.Add(decimal.NewFromFloat(l.MRP))
		total = total.Add(pricing.TaxInclusiveTotal(l.Price, l.TaxPercent))
	}

	fmt.Fprintf(&b, "\nPrice: %s%s", cur, price.String())
	if label, taxed := taxLabel(lines); taxed {
		fmt.Fprintf(&b, " (+%s) Total: %s%s", label, cur, total.StringFixed(2))
	}
	fmt.Fprintf(&b, "\n(MRP %s%s, %d%% OFF)", cur, mrp.String(),
		pricing.DiscountPercent(mrp.InexactFloat64(), price.InexactFloat64()))
	if in.Reference != "" && !strings.Contains(head, in.Reference) {
		b.WriteString("\nOrder ID: ")
		b.WriteString(in.Reference)
	}
	b.WriteString("\n")
	b.WriteString(closingLine)
	return b.String()
}

// taxLabel reports whether any line is taxed, and names the rate when all
// lines share it.
func taxLabel(lines []Line) (string, bool) {
	taxed, uniform := false, true
	for _, l := range lines {
		if l.TaxPercent > 0 {
			taxed = true
		}
		if l.TaxPercent != lines[0].TaxPercent {
			uniform = false
		}
	}
	if !taxed {
		return "", false
	}
	if uniform {
		return pricing.FormatAmount(lines[0].TaxPercent) + "% Tax", true
	}
	return "Tax", true
}

func greeting(in Input) string {
	tmpl := strings.TrimSpace(in.Template)
	if tmpl == "" {
		tmpl = defaultGreeting
	}
	return strings.NewReplacer("{product}", in.Product, "{ref}", in.Reference).Replace(tmpl)
}

func edition(sub, opt string) string {
	switch {
	case sub == "":
		return opt
	case opt == "":
		return sub
	}
	return sub + " / " + opt
}

// DeepLink returns https://<host>/<phone>?text=<message> with the message
// escaped like encodeURIComponent, so spaces become %20.
func DeepLink(host, phone, message string) string {
	if host == "" {
		host = DefaultChatHost
	}
	return "https://" + host + "/" + digits(phone) + "?text=" + EscapeComponent(message)
}

// digits drops everything but 0-9 from a phone number.
func digits(phone string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
}

// EscapeComponent percent-encodes every byte outside A-Z a-z 0-9 - _ . ! ~ * ' ( ).
func EscapeComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&15])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}

// NewReference returns an order reference of the form <PREFIX>-<8 HEX>.
func NewReference(prefix string) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	if prefix == "" {
		return id
	}
	return prefix + "-" + id
}
