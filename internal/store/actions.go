package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/ai360store-ux/Digimarket/internal/domain"
	"github.com/ai360store-ux/Digimarket/internal/gateway"
	"github.com/ai360store-ux/Digimarket/internal/pricing"
	apperrors "github.com/ai360store-ux/Digimarket/pkg/errors"
	"github.com/ai360store-ux/Digimarket/pkg/slug"
	"github.com/ai360store-ux/Digimarket/pkg/validator"
)

// AddProduct validates p, stores it with fresh timestamps and pushes it.
// An empty ID is assigned; an ID already in use is a conflict.
func (s *Store) AddProduct(ctx context.Context, p domain.Product) (domain.Product, Outcome, error) {
	s.prepareProduct(&p)
	if err := validator.Validate(p); err != nil {
		return domain.Product{}, Outcome{}, err
	}
	now := s.now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	s.mu.Lock()
	if s.productIndex(p.ID) >= 0 {
		s.mu.Unlock()
		return domain.Product{}, Outcome{}, apperrors.Conflict(fmt.Sprintf("product with id %s already exists", p.ID))
	}
	s.products = append(s.products, p.Clone())
	warnings := s.categoryWarnings(&p)
	s.mu.Unlock()

	out := s.sync(ctx, "add_product", func(g Gateway) error {
		return g.Upsert(ctx, gateway.Products, p.ID, p)
	})
	out.Warnings = warnings
	s.publish(ctx, out, "product_created", func() error {
		return s.events.PublishProductSaved(ctx, &p, pricing.MinimumPrice(&p), true)
	})
	s.saveSnapshot(ctx)
	return p, out, nil
}

// UpdateProduct replaces the product with p.ID, keeping its creation time.
func (s *Store) UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, Outcome, error) {
	if p.ID == "" {
		return domain.Product{}, Outcome{}, apperrors.InvalidInput("product id is required")
	}
	s.prepareProduct(&p)
	if err := validator.Validate(p); err != nil {
		return domain.Product{}, Outcome{}, err
	}

	s.mu.Lock()
	i := s.productIndex(p.ID)
	if i < 0 {
		s.mu.Unlock()
		return domain.Product{}, Outcome{}, apperrors.NotFound("product", p.ID)
	}
	p.CreatedAt = s.products[i].CreatedAt
	p.UpdatedAt = s.now().UTC()
	s.products[i] = p.Clone()
	warnings := s.categoryWarnings(&p)
	s.mu.Unlock()

	out := s.sync(ctx, "update_product", func(g Gateway) error {
		return g.Upsert(ctx, gateway.Products, p.ID, p)
	})
	out.Warnings = warnings
	s.publish(ctx, out, "product_updated", func() error {
		return s.events.PublishProductSaved(ctx, &p, pricing.MinimumPrice(&p), false)
	})
	s.saveSnapshot(ctx)
	return p, out, nil
}

// DeleteProduct removes the product with id.
func (s *Store) DeleteProduct(ctx context.Context, id string) (Outcome, error) {
	s.mu.Lock()
	i := s.productIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return Outcome{}, apperrors.NotFound("product", id)
	}
	s.products = append(s.products[:i:i], s.products[i+1:]...)
	s.mu.Unlock()

	out := s.sync(ctx, "delete_product", func(g Gateway) error {
		return g.Remove(ctx, gateway.Products, id)
	})
	s.publish(ctx, out, "product_deleted", func() error {
		return s.events.PublishProductDeleted(ctx, id)
	})
	s.saveSnapshot(ctx)
	return out, nil
}

// AddCategory stores a new category. The ID is always generated; an empty
// slug is derived from the name.
func (s *Store) AddCategory(ctx context.Context, c domain.Category) (domain.Category, Outcome, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Slug = strings.TrimSpace(c.Slug)
	c.Icon = strings.TrimSpace(c.Icon)
	if err := validator.Validate(c); err != nil {
		return domain.Category{}, Outcome{}, err
	}
	if c.Slug != "" && !slug.Valid(c.Slug) {
		return domain.Category{}, Outcome{}, apperrors.InvalidInput("slug must be lowercase letters, digits and hyphens")
	}
	c.ID = s.newID()

	s.mu.Lock()
	if domain.HasCategoryName(s.categories, c.Name) {
		s.mu.Unlock()
		return domain.Category{}, Outcome{}, apperrors.Conflict(fmt.Sprintf("category %q already exists", c.Name))
	}
	taken := func(v string) bool {
		_, ok := domain.FindCategoryBySlug(s.categories, v)
		return ok
	}
	if c.Slug == "" {
		c.Slug = slug.Unique(c.Name, taken)
	} else if taken(c.Slug) {
		s.mu.Unlock()
		return domain.Category{}, Outcome{}, apperrors.Conflict(fmt.Sprintf("category slug %q already exists", c.Slug))
	}
	s.categories = append(s.categories, c)
	s.mu.Unlock()

	out := s.sync(ctx, "add_category", func(g Gateway) error {
		return g.Upsert(ctx, gateway.Categories, c.ID, c)
	})
	s.publish(ctx, out, "category_created", func() error {
		return s.events.PublishCategoryCreated(ctx, &c)
	})
	s.saveSnapshot(ctx)
	return c, out, nil
}

// DeleteCategory removes the category with id. Products keep their category
// name; the outcome warns about every product left without a category.
func (s *Store) DeleteCategory(ctx context.Context, id string) (Outcome, error) {
	s.mu.Lock()
	i := s.categoryIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return Outcome{}, apperrors.NotFound("category", id)
	}
	removed := s.categories[i]
	s.categories = append(s.categories[:i:i], s.categories[i+1:]...)
	var orphaned int
	if !domain.HasCategoryName(s.categories, removed.Name) {
		for j := range s.products {
			if s.products[j].Category == removed.Name {
				orphaned++
			}
		}
	}
	s.mu.Unlock()

	out := s.sync(ctx, "delete_category", func(g Gateway) error {
		return g.Remove(ctx, gateway.Categories, id)
	})
	if orphaned > 0 {
		out.Warnings = append(out.Warnings,
			fmt.Sprintf("%d product(s) still reference category %q", orphaned, removed.Name))
	}
	s.publish(ctx, out, "category_deleted", func() error {
		return s.events.PublishCategoryDeleted(ctx, id)
	})
	s.saveSnapshot(ctx)
	return out, nil
}

// UpdateSettings replaces the settings document as a whole.
func (s *Store) UpdateSettings(ctx context.Context, settings domain.AppSettings) (domain.AppSettings, Outcome, error) {
	if err := validator.Validate(settings); err != nil {
		return domain.AppSettings{}, Outcome{}, err
	}
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()

	out := s.sync(ctx, "update_settings", func(g Gateway) error {
		return g.Upsert(ctx, gateway.Settings, domain.SettingsID, settings)
	})
	s.publish(ctx, out, "settings_updated", func() error {
		return s.events.PublishSettingsUpdated(ctx, settings)
	})
	s.saveSnapshot(ctx)
	return settings, out, nil
}

// prepareProduct fills generated ids and normalizes free-form fields.
func (s *Store) prepareProduct(p *domain.Product) {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		p.ID = s.newID()
	}
	p.Title = strings.TrimSpace(p.Title)
	p.Category = strings.TrimSpace(p.Category)
	p.Tags = domain.NormalizeTags(p.Tags)
	if p.Status == "" {
		p.Status = domain.ProductStatusActive
	}
	for i := range p.Subsections {
		sub := &p.Subsections[i]
		if sub.ID == "" {
			sub.ID = s.newID()
		}
		for j := range sub.Options {
			if sub.Options[j].ID == "" {
				sub.Options[j].ID = s.newID()
			}
			if sub.Options[j].Type == "" {
				sub.Options[j].Type = domain.DurationPreset
			}
		}
	}
}

// categoryWarnings must be called with s.mu held.
func (s *Store) categoryWarnings(p *domain.Product) []string {
	if p.Category == "" || domain.HasCategoryName(s.categories, p.Category) {
		return nil
	}
	return []string{fmt.Sprintf("category %q does not match any existing category", p.Category)}
}
