// Package seed holds the bundled default catalog served whenever the remote
// store is unconfigured, unreachable or empty.
package seed

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ai360store-ux/Digimarket/internal/domain"
)

// ProductCount is the number of bundled products.
const ProductCount = 16

// Epoch is the creation time stamped on bundled products. Products are
// spaced one hour apart so "newest first" ordering is stable.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// --- Categories and settings ---

// Categories returns the bundled categories.
func Categories() []domain.Category {
	return []domain.Category{
		{ID: "cat-ai", Name: "AI Solutions", Slug: "ai-tools", Icon: "🤖"},
		{ID: "cat-dev", Name: "Dev Tools", Slug: "development", Icon: "💻"},
		{ID: "cat-design", Name: "Creative", Slug: "design", Icon: "🎨"},
		{ID: "cat-prod", Name: "Flow & Prod", Slug: "productivity", Icon: "⚡"},
	}
}

// Settings returns the bundled storefront settings.
func Settings() domain.AppSettings {
	return domain.AppSettings{
		WhatsappNumber:       "919876543210",
		WhatsappTemplate:     "Hi, I'm interested in buying {product}. Reference: {ref}",
		BrandName:            "VAULT PORT",
		EstablishedYear:      "2024",
		DefaultImageQuality:  0.9,
		PreferredImageFormat: "image/webp",
		CurrencySymbol:       "₹",
		DefaultTaxPercent:    0,
	}
}

// --- Products ---

type listing struct {
	name     string
	category string
	versions []string
	image    string
}

var listings = []listing{
	{"Adobe Creative Cloud", "Creative", []string{"Full Suite All-Apps", "Photoshop Pro", "Illustrator Pro"}, "Adobe.jpg"},
	{"Canva Pro", "Creative", []string{"Pro License", "Team Enterprise"}, "image.png"},
	{"ChatGPT Plus", "AI Solutions", []string{"Personal Plus", "Team Workspace"}, "https://upload.wikimedia.org/wikipedia/commons/0/04/ChatGPT_logo.svg"},
	{"Lovable (Lable)", "Dev Tools", []string{"Starter Build", "Pro Scale"}, "https://lovable.dev/favicon.ico"},
	{"Cursor AI", "Dev Tools", []string{"Pro Subscription"}, "https://www.cursor.com/assets/images/logo.svg"},
	{"Google Gemini Pro", "AI Solutions", []string{"Flash", "Pro", "Ultra"}, "https://www.gstatic.com/lamda/images/gemini_sparkle_v2_f2f3a67d9f743.svg"},
	{"Notion Plus", "Flow & Prod", []string{"Personal Plus", "Team Collaboration"}, "https://upload.wikimedia.org/wikipedia/commons/4/45/Notion_app_logo.png"},
	{"Netflix Premium", "Creative", []string{"4K UHD + HDR", "Standard"}, "https://upload.wikimedia.org/wikipedia/commons/f/ff/Netflix-new-icon.png"},
}

var whitespace = regexp.MustCompile(`\s+`)

// Products returns the bundled products. Each call builds fresh values.
func Products() []domain.Product {
	out := make([]domain.Product, ProductCount)
	for i := range out {
		out[i] = product(i)
	}
	return out
}

func product(i int) domain.Product {
	item := listings[i%len(listings)]
	created := Epoch.Add(time.Duration(i) * time.Hour)

	subs := make([]domain.Subsection, len(item.versions))
	for v, name := range item.versions {
		subs[v] = domain.Subsection{
			ID:   fmt.Sprintf("sub-%d-%d", i, v),
			Name: name,
			Options: []domain.PriceOption{
				{
					ID:          fmt.Sprintf("opt-1-%d-%d", i, v),
					Name:        "30 Day Access",
					Type:        domain.DurationPreset,
					PresetValue: "Monthly",
					MRP:         float64(1499 + v*200),
					Price:       float64(499 + v*100),
				},
				{
					ID:          fmt.Sprintf("opt-2-%d-%d", i, v),
					Name:        "365 Day Pass",
					Type:        domain.DurationPreset,
					PresetValue: "Annual",
					MRP:         18999,
					Price:       3999,
				},
			},
		}
	}

	return domain.Product{
		ID:               fmt.Sprintf("prod-%d", i),
		Title:            item.name,
		ShortDescription: fmt.Sprintf("Official Authentication Key for %s. Secure activation.", item.name),
		FullDescription: fmt.Sprintf("Acquire authenticated premium access for %s. This digital credential is authenticated "+
			"through official enterprise channels, ensuring permanent service uptime and full cloud feature parity. "+
			"Includes 24/7 technical oversight and a verified deployment guide.", item.name),
		Category:     item.category,
		Tags:         []string{"verified", "instant", "premium", "official", whitespace.ReplaceAllString(strings.ToLower(item.name), "")},
		Images:       []string{item.image},
		Status:       domain.ProductStatusActive,
		IsTrending:   i < 4,
		IsBestseller: i%3 == 0,
		IsNew:        i%4 == 0,
		IsStaffPick:  i == 0,
		Subsections:  subs,
		Inventory:    50,
		SoldCount:    4200 + i*120,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}
