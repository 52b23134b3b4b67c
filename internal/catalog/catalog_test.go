package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai360store-ux/Digimarket/internal/domain"
)

var base = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func product(id string, mutate func(*domain.Product)) domain.Product {
	p := domain.Product{
		ID:        id,
		Title:     "Product " + id,
		Category:  "Creative",
		Status:    domain.ProductStatusActive,
		Inventory: 50,
		CreatedAt: base,
	}
	if mutate != nil {
		mutate(&p)
	}
	return p
}

func ids(products []domain.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func TestBuildHome(t *testing.T) {
	products := []domain.Product{
		product("a", func(p *domain.Product) { p.IsTrending = true; p.IsNew = true }),
		product("b", func(p *domain.Product) { p.IsTrending = true; p.Status = domain.ProductStatusInactive }),
		product("c", func(p *domain.Product) { p.IsBestseller = true; p.Inventory = 3 }),
		product("d", func(p *domain.Product) { p.Inventory = 0 }),
		product("e", func(p *domain.Product) { p.Inventory = 10 }),
	}

	home := BuildHome(products, 5)

	assert.Equal(t, []string{"a"}, ids(home.Trending))
	assert.Equal(t, []string{"c"}, ids(home.Bestsellers))
	assert.Equal(t, []string{"c", "e"}, ids(home.LimitedStock))
	assert.Equal(t, []string{"a"}, ids(home.NewDrops))
}

func TestBuildHome_Limit(t *testing.T) {
	var products []domain.Product
	for _, id := range []string{"1", "2", "3", "4", "5", "6", "7"} {
		products = append(products, product(id, func(p *domain.Product) { p.IsTrending = true }))
	}

	assert.Len(t, BuildHome(products, 0).Trending, DefaultSectionSize)
	assert.Len(t, BuildHome(products, 2).Trending, 2)
	assert.NotNil(t, BuildHome(nil, 5).NewDrops)
}

func TestSearch(t *testing.T) {
	products := []domain.Product{
		product("chatgpt", func(p *domain.Product) {
			p.Title = "ChatGPT Plus"
			p.Category = "AI Solutions"
			p.IsTrending = true
		}),
		product("canva", func(p *domain.Product) {
			p.Title = "Canva Pro"
			p.IsBestseller = true
			p.Tags = []string{"design"}
			p.CreatedAt = base.Add(time.Hour)
		}),
		product("hidden", func(p *domain.Product) {
			p.Title = "ChatGPT Team"
			p.Status = domain.ProductStatusInactive
		}),
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"trending", []string{"chatgpt"}},
		{"best", []string{"canva"}},
		{"new", []string{"canva", "chatgpt"}},
		{"chat", []string{"chatgpt"}},
		{"CHAT", []string{"chatgpt"}},
		{"ai sol", []string{"chatgpt"}},
		{"creative", []string{"canva"}},
		{"design", []string{"canva"}},
		{"", []string{"chatgpt", "canva"}},
		{"nothing", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Search(products, tt.query)))
		})
	}
}

func TestSearch_NewDoesNotReorderInput(t *testing.T) {
	products := []domain.Product{
		product("old", nil),
		product("fresh", func(p *domain.Product) { p.CreatedAt = base.Add(time.Hour) }),
	}
	Search(products, QueryNew)
	assert.Equal(t, []string{"old", "fresh"}, ids(products))
}

func TestInCategory(t *testing.T) {
	categories := []domain.Category{
		{ID: "cat-ai", Name: "AI Solutions", Slug: "ai-tools"},
		{ID: "cat-design", Name: "Creative", Slug: "design"},
	}
	products := []domain.Product{
		product("a", func(p *domain.Product) { p.Category = "AI Solutions" }),
		product("b", nil),
		product("c", func(p *domain.Product) { p.Category = "AI Solutions"; p.Status = domain.ProductStatusInactive }),
	}

	cat, got, ok := InCategory(products, categories, "ai-tools")
	require.True(t, ok)
	assert.Equal(t, "cat-ai", cat.ID)
	assert.Equal(t, []string{"a"}, ids(got))

	_, _, ok = InCategory(products, categories, "missing")
	assert.False(t, ok)
}

func TestFilterByTitle(t *testing.T) {
	products := []domain.Product{
		product("a", func(p *domain.Product) { p.Title = "Netflix Premium"; p.Status = domain.ProductStatusInactive }),
		product("b", func(p *domain.Product) { p.Title = "Notion Plus" }),
	}
	assert.Equal(t, []string{"a"}, ids(FilterByTitle(products, "netflix")))
	assert.Equal(t, []string{"a", "b"}, ids(FilterByTitle(products, "")))
}

func TestBuildOverview(t *testing.T) {
	categories := []domain.Category{{Name: "Creative"}}
	products := []domain.Product{
		product("a", func(p *domain.Product) { p.IsTrending = true; p.IsNew = true }),
		product("b", func(p *domain.Product) { p.IsBestseller = true; p.Inventory = 0 }),
		product("c", func(p *domain.Product) { p.Category = "Removed"; p.Status = domain.ProductStatusInactive }),
	}

	o := BuildOverview(products, categories)

	assert.Equal(t, 3, o.Products)
	assert.Equal(t, 2, o.Active)
	assert.Equal(t, 1, o.Trending)
	assert.Equal(t, 1, o.Bestsellers)
	assert.Equal(t, 1, o.New)
	assert.Equal(t, 1, o.SoldOut)
	assert.Equal(t, 1, o.Categories)
	assert.Equal(t, []string{"c"}, o.DanglingReference)
	assert.Len(t, o.Recent, 3)
}

func TestBuildOverview_Empty(t *testing.T) {
	o := BuildOverview(nil, nil)
	assert.Zero(t, o.Products)
	assert.NotNil(t, o.DanglingReference)
	assert.Empty(t, o.Recent)
}
