package event

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai360store-ux/Digimarket/internal/domain"
	pkgkafka "github.com/ai360store-ux/Digimarket/pkg/kafka"
	"github.com/ai360store-ux/Digimarket/pkg/logger"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func newTestProducer() (*Producer, *fakeWriter) {
	w := &fakeWriter{}
	k := pkgkafka.NewProducerWithWriter(w, nil, logger.Discard())
	return NewProducer(k, logger.Discard()), w
}

func decode(t *testing.T, m kafka.Message, dst any) *pkgkafka.Event {
	t.Helper()
	var evt pkgkafka.Event
	require.NoError(t, json.Unmarshal(m.Value, &evt))
	require.NoError(t, json.Unmarshal(evt.Data, dst))
	return &evt
}

func TestPublishProductSaved(t *testing.T) {
	p, w := newTestProducer()
	ctx := logger.WithCorrelationID(context.Background(), "corr-1")
	product := &domain.Product{
		ID: "prod-1", Title: "Canva Pro", Category: "Creative",
		Status: domain.ProductStatusActive, Images: []string{"a.png"}, Inventory: 5,
	}

	require.NoError(t, p.PublishProductSaved(ctx, product, 499, true))
	require.NoError(t, p.PublishProductSaved(ctx, product, 499, false))
	require.Len(t, w.msgs, 2)

	assert.Equal(t, TopicProductCreated, w.msgs[0].Topic)
	assert.Equal(t, TopicProductUpdated, w.msgs[1].Topic)
	assert.Equal(t, "prod-1", string(w.msgs[0].Key))

	var data ProductData
	evt := decode(t, w.msgs[0], &data)
	assert.Equal(t, "corr-1", evt.CorrelationID)
	assert.Equal(t, SourceCatalogService, evt.Source)
	assert.Equal(t, AggregateTypeProduct, evt.AggregateType)
	assert.Equal(t, 499.0, data.MinPrice)
	assert.Equal(t, "a.png", data.Thumbnail)
}

func TestPublishDeletesAndCategory(t *testing.T) {
	p, w := newTestProducer()
	ctx := context.Background()

	require.NoError(t, p.PublishProductDeleted(ctx, "prod-1"))
	require.NoError(t, p.PublishCategoryCreated(ctx, &domain.Category{ID: "cat-1", Name: "Creative", Slug: "creative"}))
	require.NoError(t, p.PublishCategoryDeleted(ctx, "cat-1"))
	require.Len(t, w.msgs, 3)

	var del DeletedData
	decode(t, w.msgs[0], &del)
	assert.Equal(t, "prod-1", del.ID)

	var cat CategoryData
	decode(t, w.msgs[1], &cat)
	assert.Equal(t, "creative", cat.Slug)
	assert.Equal(t, TopicCategoryDeleted, w.msgs[2].Topic)
}

func TestPublishSettingsAndRefreshed(t *testing.T) {
	p, w := newTestProducer()
	ctx := context.Background()

	require.NoError(t, p.PublishSettingsUpdated(ctx, domain.AppSettings{
		BrandName: "VAULT PORT", CurrencySymbol: "₹", WhatsappNumber: "919876543210",
		PreferredImageFormat: "image/jpeg",
	}))
	require.NoError(t, p.PublishRefreshed(ctx, RefreshedData{Live: true, Products: 16, Categories: 4}))
	require.NoError(t, p.PublishSettingsUpdated(ctx, domain.AppSettings{BrandName: "VAULT PORT", CurrencySymbol: "₹"}))

	assert.Equal(t, domain.SettingsID, string(w.msgs[0].Key))
	var s SettingsData
	evt := decode(t, w.msgs[0], &s)
	assert.Equal(t, "VAULT PORT", s.BrandName)
	assert.Equal(t, map[string]string{MetaCheckoutEnabled: "true", MetaImageFormat: "image/jpeg"}, evt.Metadata)

	var r RefreshedData
	evt = decode(t, w.msgs[1], &r)
	assert.Equal(t, 16, r.Products)
	assert.Equal(t, "live", evt.Metadata[MetaMode])

	evt = decode(t, w.msgs[2], &s)
	assert.Equal(t, map[string]string{MetaCheckoutEnabled: "false"}, evt.Metadata)
}

func TestProducer_DisabledIsNoop(t *testing.T) {
	p := NewProducer(nil, logger.Discard())
	assert.False(t, p.Enabled())
	assert.NoError(t, p.PublishProductDeleted(context.Background(), "prod-1"))

	var nilProducer *Producer
	assert.False(t, nilProducer.Enabled())
}

func TestProducer_PublishError(t *testing.T) {
	p, w := newTestProducer()
	w.err = errors.New("broker down")

	err := p.PublishProductDeleted(context.Background(), "prod-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), TopicProductDeleted)
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "digimarket.catalog.product-created", TopicProductCreated)
	assert.Equal(t, "digimarket.catalog.refreshed", TopicCatalogRefreshed)
}
