// Package catalog holds the read-side queries behind the storefront and the
// admin console. All functions take snapshots and return new slices.
package catalog

import (
	"sort"
	"strings"

	"github.com/ai360store-ux/Digimarket/internal/domain"
)

// DefaultSectionSize is the number of products shown per home section.
const DefaultSectionSize = 5

// LimitedStockThreshold is the inventory level at or below which an
// in-stock product is shown as limited.
const LimitedStockThreshold = 10

// Search keywords with special meaning.
const (
	QueryTrending = "trending"
	QueryBest     = "best"
	QueryNew      = "new"
)

// Home is the storefront landing page.
type Home struct {
	Trending     []domain.Product `json:"trending"`
	Bestsellers  []domain.Product `json:"bestsellers"`
	LimitedStock []domain.Product `json:"limitedStock"`
	NewDrops     []domain.Product `json:"newDrops"`
}

// BuildHome selects the home sections from active products, up to limit each.
func BuildHome(products []domain.Product, limit int) Home {
	if limit <= 0 {
		limit = DefaultSectionSize
	}
	return Home{
		Trending:     take(products, limit, func(p *domain.Product) bool { return p.IsTrending }),
		Bestsellers:  take(products, limit, func(p *domain.Product) bool { return p.IsBestseller }),
		LimitedStock: take(products, limit, IsLimitedStock),
		NewDrops:     take(products, limit, func(p *domain.Product) bool { return p.IsNew }),
	}
}

// IsLimitedStock reports 0 < inventory <= LimitedStockThreshold.
func IsLimitedStock(p *domain.Product) bool {
	return p.Inventory > 0 && p.Inventory <= LimitedStockThreshold
}

func take(products []domain.Product, limit int, keep func(*domain.Product) bool) []domain.Product {
	out := make([]domain.Product, 0, limit)
	for i := range products {
		if len(out) == limit {
			break
		}
		p := &products[i]
		if p.IsActive() && keep(p) {
			out = append(out, *p)
		}
	}
	return out
}

// Search filters active products. The keywords "trending" and "best" select
// by flag, "new" returns everything newest first; anything else matches
// title, category or tags case-insensitively. An empty query returns all
// active products.
func Search(products []domain.Product, q string) []domain.Product {
	active := filter(products, (*domain.Product).IsActive)
	switch q = strings.TrimSpace(q); q {
	case QueryTrending:
		return filter(active, func(p *domain.Product) bool { return p.IsTrending })
	case QueryBest:
		return filter(active, func(p *domain.Product) bool { return p.IsBestseller })
	case QueryNew:
		sort.SliceStable(active, func(i, j int) bool {
			return active[i].CreatedAt.After(active[j].CreatedAt)
		})
		return active
	}
	needle := strings.ToLower(q)
	return filter(active, func(p *domain.Product) bool {
		return matches(p, needle)
	})
}

func matches(p *domain.Product, needle string) bool {
	if strings.Contains(strings.ToLower(p.Title), needle) ||
		strings.Contains(strings.ToLower(p.Category), needle) {
		return true
	}
	for _, t := range p.Tags {
		if strings.Contains(t, needle) {
			return true
		}
	}
	return false
}

// InCategory returns the active products that reference the category
// identified by slug. ok is false when no category has that slug.
func InCategory(products []domain.Product, categories []domain.Category, slug string) (domain.Category, []domain.Product, bool) {
	cat, ok := domain.FindCategoryBySlug(categories, slug)
	if !ok {
		return domain.Category{}, nil, false
	}
	return cat, filter(products, func(p *domain.Product) bool {
		return p.IsActive() && p.Category == cat.Name
	}), true
}

// FilterByTitle is the admin list search; inactive products are included.
func FilterByTitle(products []domain.Product, q string) []domain.Product {
	needle := strings.ToLower(strings.TrimSpace(q))
	return filter(products, func(p *domain.Product) bool {
		return strings.Contains(strings.ToLower(p.Title), needle)
	})
}

// Overview is the admin dashboard summary.
type Overview struct {
	Products          int              `json:"products"`
	Active            int              `json:"active"`
	Trending          int              `json:"trending"`
	Bestsellers       int              `json:"bestsellers"`
	New               int              `json:"new"`
	SoldOut           int              `json:"soldOut"`
	Categories        int              `json:"categories"`
	DanglingReference []string         `json:"danglingReferences"`
	Recent            []domain.Product `json:"recent"`
}

// BuildOverview counts the catalog. DanglingReference lists product ids whose
// category names no existing category.
func BuildOverview(products []domain.Product, categories []domain.Category) Overview {
	o := Overview{
		Products:          len(products),
		Categories:        len(categories),
		DanglingReference: make([]string, 0),
	}
	for i := range products {
		p := &products[i]
		if p.IsActive() {
			o.Active++
		}
		if p.IsTrending {
			o.Trending++
		}
		if p.IsBestseller {
			o.Bestsellers++
		}
		if p.IsNew {
			o.New++
		}
		if p.IsSoldOut() {
			o.SoldOut++
		}
		if !domain.HasCategoryName(categories, p.Category) {
			o.DanglingReference = append(o.DanglingReference, p.ID)
		}
	}
	n := min(len(products), DefaultSectionSize)
	o.Recent = append(make([]domain.Product, 0, n), products[:n]...)
	return o
}

func filter(products []domain.Product, keep func(*domain.Product) bool) []domain.Product {
	out := make([]domain.Product, 0)
	for i := range products {
		if keep(&products[i]) {
			out = append(out, products[i])
		}
	}
	return out
}
