package domain

import (
	"strings"
	"time"
)

// ProductStatus controls public visibility of a product.
type ProductStatus string

// Product status constants.
const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

// DurationType selects how a price option describes its access period.
type DurationType string

// Duration type constants.
const (
	DurationPreset   DurationType = "preset"
	DurationCalendar DurationType = "calendar"
)

// Product is a sellable catalog entry. The JSON shape is the document stored
// in the remote data column.
type Product struct {
	ID               string        `json:"id"`
	Title            string        `json:"title" validate:"required,max=200"`
	ShortDescription string        `json:"shortDescription" validate:"max=500"`
	FullDescription  string        `json:"fullDescription"`
	Category         string        `json:"category"`
	Tags             []string      `json:"tags"`
	Images           []string      `json:"images" validate:"min=1,dive,required"`
	Status           ProductStatus `json:"status" validate:"oneof=active inactive"`
	IsTrending       bool          `json:"isTrending"`
	IsBestseller     bool          `json:"isBestseller"`
	IsNew            bool          `json:"isNew"`
	IsStaffPick      bool          `json:"isStaffPick"`
	Subsections      []Subsection  `json:"subsections" validate:"dive"`
	Inventory        int           `json:"inventory" validate:"gte=0"`
	SoldCount        int           `json:"soldCount" validate:"gte=0"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

// Subsection groups price options under an edition name.
type Subsection struct {
	ID      string        `json:"id"`
	Name    string        `json:"name" validate:"required"`
	Options []PriceOption `json:"options" validate:"dive"`
}

// PriceOption is one purchasable tier within a subsection.
type PriceOption struct {
	ID          string       `json:"id"`
	Name        string       `json:"name" validate:"required"`
	Type        DurationType `json:"type" validate:"oneof=preset calendar"`
	PresetValue string       `json:"presetValue,omitempty"`
	ExpiryDate  *time.Time   `json:"expiryDate,omitempty"`
	MRP         float64      `json:"mrp" validate:"gte=0"`
	Price       float64      `json:"price" validate:"gte=0"`
	TaxPercent  *float64     `json:"taxPercent,omitempty" validate:"omitempty,gte=0"`
}

// Thumbnail returns the canonical image, or "" when there are no images.
func (p *Product) Thumbnail() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// IsActive reports whether the product is publicly listed.
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

// IsSoldOut reports whether inventory is exhausted.
func (p *Product) IsSoldOut() bool {
	return p.Inventory <= 0
}

// IsPurchasable reports whether the product has at least one option to sell
// and stock left.
func (p *Product) IsPurchasable() bool {
	if p.IsSoldOut() {
		return false
	}
	for _, s := range p.Subsections {
		if len(s.Options) > 0 {
			return true
		}
	}
	return false
}

// FindOption looks up a subsection and one of its options by id.
func (p *Product) FindOption(subsectionID, optionID string) (*Subsection, *PriceOption, bool) {
	for i := range p.Subsections {
		sub := &p.Subsections[i]
		if sub.ID != subsectionID {
			continue
		}
		for j := range sub.Options {
			if sub.Options[j].ID == optionID {
				return sub, &sub.Options[j], true
			}
		}
		return sub, nil, false
	}
	return nil, nil, false
}

// Clone returns a deep copy of the product.
func (p *Product) Clone() Product {
	c := *p
	c.Tags = cloneStrings(p.Tags)
	c.Images = cloneStrings(p.Images)
	if p.Subsections != nil {
		c.Subsections = make([]Subsection, len(p.Subsections))
		for i, s := range p.Subsections {
			c.Subsections[i] = s.clone()
		}
	}
	return c
}

func (s Subsection) clone() Subsection {
	c := s
	if s.Options != nil {
		c.Options = make([]PriceOption, len(s.Options))
		for i, o := range s.Options {
			c.Options[i] = o.clone()
		}
	}
	return c
}

func (o PriceOption) clone() PriceOption {
	c := o
	if o.ExpiryDate != nil {
		t := *o.ExpiryDate
		c.ExpiryDate = &t
	}
	if o.TaxPercent != nil {
		v := *o.TaxPercent
		c.TaxPercent = &v
	}
	return c
}

// NormalizeTags lowercases and trims tags, dropping empties and duplicates
// while keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// SplitTags parses the comma-separated tag field used by the admin editor.
func SplitTags(s string) []string {
	return NormalizeTags(strings.Split(s, ","))
}

// ValidStatuses returns the set of valid product statuses.
func ValidStatuses() []ProductStatus {
	return []ProductStatus{ProductStatusActive, ProductStatusInactive}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
