package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/ai360store-ux/Digimarket/internal/domain"
	pkgkafka "github.com/ai360store-ux/Digimarket/pkg/kafka"
	"github.com/ai360store-ux/Digimarket/pkg/logger"
)

// Kafka topics for catalog change events.
var (
	TopicProductCreated   = pkgkafka.Topic("catalog", "product-created")
	TopicProductUpdated   = pkgkafka.Topic("catalog", "product-updated")
	TopicProductDeleted   = pkgkafka.Topic("catalog", "product-deleted")
	TopicCategoryCreated  = pkgkafka.Topic("catalog", "category-created")
	TopicCategoryDeleted  = pkgkafka.Topic("catalog", "category-deleted")
	TopicSettingsUpdated  = pkgkafka.Topic("catalog", "settings-updated")
	TopicCatalogRefreshed = pkgkafka.Topic("catalog", "refreshed")
)

// Aggregate type constants.
const (
	AggregateTypeProduct  = "product"
	AggregateTypeCategory = "category"
	AggregateTypeSettings = "settings"
	AggregateTypeCatalog  = "catalog"
)

// SourceCatalogService identifies events originating from this service.
const SourceCatalogService = "catalog-service"

// ProductData is the payload for product created/updated events.
type ProductData struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Category   string   `json:"category"`
	Status     string   `json:"status"`
	MinPrice   float64  `json:"min_price"`
	Inventory  int      `json:"inventory"`
	Tags       []string `json:"tags"`
	Thumbnail  string   `json:"thumbnail,omitempty"`
	IsTrending bool     `json:"is_trending"`
}

// DeletedData is the payload for delete events.
type DeletedData struct {
	ID string `json:"id"`
}

// CategoryData is the payload for a category.created event.
type CategoryData struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// SettingsData is the payload for a settings.updated event.
type SettingsData struct {
	BrandName         string  `json:"brand_name"`
	CurrencySymbol    string  `json:"currency_symbol"`
	DefaultTaxPercent float64 `json:"default_tax_percent"`
}

// RefreshedData is the payload for a catalog.refreshed event.
type RefreshedData struct {
	Live       bool `json:"live"`
	Products   int  `json:"products"`
	Categories int  `json:"categories"`
}

// Producer publishes catalog change events. A Producer without a kafka
// producer drops events silently.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a catalog event producer. kafka may be nil.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// Enabled reports whether events are actually sent.
func (p *Producer) Enabled() bool {
	return p != nil && p.kafka != nil
}

// PublishProductSaved publishes product-created or product-updated.
func (p *Producer) PublishProductSaved(ctx context.Context, product *domain.Product, minPrice float64, created bool) error {
	topic := TopicProductUpdated
	if created {
		topic = TopicProductCreated
	}
	return p.publish(ctx, topic, product.ID, AggregateTypeProduct, ProductData{
		ID:         product.ID,
		Title:      product.Title,
		Category:   product.Category,
		Status:     string(product.Status),
		MinPrice:   minPrice,
		Inventory:  product.Inventory,
		Tags:       product.Tags,
		Thumbnail:  product.Thumbnail(),
		IsTrending: product.IsTrending,
	})
}

// PublishProductDeleted publishes product-deleted.
func (p *Producer) PublishProductDeleted(ctx context.Context, id string) error {
	return p.publish(ctx, TopicProductDeleted, id, AggregateTypeProduct, DeletedData{ID: id})
}

// PublishCategoryCreated publishes category-created.
func (p *Producer) PublishCategoryCreated(ctx context.Context, c *domain.Category) error {
	return p.publish(ctx, TopicCategoryCreated, c.ID, AggregateTypeCategory, CategoryData{ID: c.ID, Name: c.Name, Slug: c.Slug})
}

// PublishCategoryDeleted publishes category-deleted.
func (p *Producer) PublishCategoryDeleted(ctx context.Context, id string) error {
	return p.publish(ctx, TopicCategoryDeleted, id, AggregateTypeCategory, DeletedData{ID: id})
}

// Metadata keys attached to settings and refresh events.
const (
	MetaCheckoutEnabled = "checkout_enabled"
	MetaImageFormat     = "image_format"
	MetaMode            = "mode"
)

// PublishSettingsUpdated publishes settings-updated. Metadata tells consumers
// whether checkout links can be built and which image format uploads use.
func (p *Producer) PublishSettingsUpdated(ctx context.Context, s domain.AppSettings) error {
	return p.publish(ctx, TopicSettingsUpdated, domain.SettingsID, AggregateTypeSettings, SettingsData{
		BrandName:         s.BrandName,
		CurrencySymbol:    s.CurrencySymbol,
		DefaultTaxPercent: s.DefaultTaxPercent,
	}, map[string]string{
		MetaCheckoutEnabled: strconv.FormatBool(s.WhatsappNumber != ""),
		MetaImageFormat:     s.PreferredImageFormat,
	})
}

// PublishRefreshed publishes catalog-refreshed tagged with the store mode.
func (p *Producer) PublishRefreshed(ctx context.Context, data RefreshedData) error {
	mode := "offline"
	if data.Live {
		mode = "live"
	}
	return p.publish(ctx, TopicCatalogRefreshed, AggregateTypeCatalog, AggregateTypeCatalog, data,
		map[string]string{MetaMode: mode})
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any, meta ...map[string]string) error {
	if !p.Enabled() {
		return nil
	}
	evt, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceCatalogService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}
	for _, m := range meta {
		for k, v := range m {
			if v != "" {
				evt.WithMetadata(k, v)
			}
		}
	}
	if err := p.kafka.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}
