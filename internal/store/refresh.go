package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ai360store-ux/Digimarket/internal/domain"
	"github.com/ai360store-ux/Digimarket/internal/event"
	"github.com/ai360store-ux/Digimarket/internal/gateway"
	"github.com/ai360store-ux/Digimarket/internal/localstore"
	"github.com/ai360store-ux/Digimarket/internal/seed"
)

// Snapshot is the last-known catalog kept in the snapshot slot.
type Snapshot struct {
	Products   []domain.Product   `json:"products"`
	Categories []domain.Category  `json:"categories"`
	Settings   domain.AppSettings `json:"settings"`
	Live       bool               `json:"live"`
	SavedAt    time.Time          `json:"savedAt"`
}

// Refresh reloads every collection from the gateway. Without a gateway, or on
// any fetch failure, all three collections fall back to the bundled defaults
// and the store is marked not live. Empty remote collections also fall back
// to their defaults.
func (s *Store) Refresh(ctx context.Context) Outcome {
	if !s.IsConnected() {
		s.replace(seed.Products(), seed.Categories(), seed.Settings(), false)
		s.logger.InfoContext(ctx, "gateway not configured, serving bundled catalog")
		s.afterRefresh(ctx)
		return Outcome{Status: RemoteSkipped}
	}

	products, categories, settings, err := s.fetch(ctx)
	if err != nil {
		s.replace(seed.Products(), seed.Categories(), seed.Settings(), false)
		out := outcomeFor(err)
		s.record(ctx, "refresh", out)
		s.afterRefresh(ctx)
		return out
	}

	if len(products) == 0 {
		products = seed.Products()
	}
	if len(categories) == 0 {
		categories = seed.Categories()
	}
	s.replace(products, categories, settings, true)
	s.afterRefresh(ctx)
	return Outcome{Status: RemoteSynced}
}

func (s *Store) fetch(ctx context.Context) ([]domain.Product, []domain.Category, domain.AppSettings, error) {
	settings := seed.Settings()

	rawProducts, err := s.gw.FetchAll(ctx, gateway.Products)
	if err != nil {
		return nil, nil, settings, err
	}
	rawCategories, err := s.gw.FetchAll(ctx, gateway.Categories)
	if err != nil {
		return nil, nil, settings, err
	}
	rawSettings, err := s.gw.FetchAll(ctx, gateway.Settings)
	if err != nil {
		return nil, nil, settings, err
	}

	products := decodeAll[domain.Product](ctx, s.logger, gateway.Products, rawProducts)
	categories := decodeAll[domain.Category](ctx, s.logger, gateway.Categories, rawCategories)
	if loaded := decodeAll[domain.AppSettings](ctx, s.logger, gateway.Settings, rawSettings); len(loaded) > 0 {
		settings = loaded[0]
	}
	return products, categories, settings, nil
}

// decodeAll skips rows that do not decode; one bad document must not hide
// the rest of the collection.
func decodeAll[T any](ctx context.Context, l *slog.Logger, c gateway.Collection, rows []json.RawMessage) []T {
	out := make([]T, 0, len(rows))
	for i, raw := range rows {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			l.WarnContext(ctx, "skipping undecodable row",
				slog.String("collection", string(c)),
				slog.Int("row", i),
				slog.String("error", err.Error()),
			)
			continue
		}
		out = append(out, v)
	}
	return out
}

func (s *Store) replace(products []domain.Product, categories []domain.Category, settings domain.AppSettings, live bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = products
	s.categories = categories
	s.settings = settings
	s.live = live
}

func (s *Store) afterRefresh(ctx context.Context) {
	s.mu.RLock()
	data := event.RefreshedData{Live: s.live, Products: len(s.products), Categories: len(s.categories)}
	s.mu.RUnlock()
	if data.Live {
		if err := s.events.PublishRefreshed(ctx, data); err != nil {
			s.logger.WarnContext(ctx, "failed to publish catalog event",
				slog.String("event", "catalog_refreshed"),
				slog.String("error", err.Error()),
			)
		}
	}
	s.saveSnapshot(ctx)
}

// saveSnapshot writes the current collections to the snapshot slot.
func (s *Store) saveSnapshot(ctx context.Context) {
	s.mu.RLock()
	snap := Snapshot{
		Products:   s.products,
		Categories: s.categories,
		Settings:   s.settings,
		Live:       s.live,
		SavedAt:    s.now().UTC(),
	}
	// encoded under the read lock; the slices are not copied
	err := s.slots.Set(ctx, localstore.SlotSnapshot, snap)
	s.mu.RUnlock()
	if err != nil {
		s.logger.WarnContext(ctx, "failed to save catalog snapshot", slog.String("error", err.Error()))
		return
	}
	s.mu.Lock()
	s.snapshotAt = snap.SavedAt
	s.mu.Unlock()
}

// PushReport counts what PushAll wrote before it stopped.
type PushReport struct {
	Products   int  `json:"products"`
	Categories int  `json:"categories"`
	Settings   bool `json:"settings"`
}

// PushAll upserts every product, then every category, then the settings,
// one at a time. It stops at the first failure; writes already made stay.
func (s *Store) PushAll(ctx context.Context) (PushReport, Outcome) {
	var report PushReport
	if !s.IsConnected() {
		return report, Outcome{Status: RemoteSkipped}
	}
	products := s.Products()
	categories := s.Categories()
	settings := s.Settings()

	for i := range products {
		if err := s.gw.Upsert(ctx, gateway.Products, products[i].ID, products[i]); err != nil {
			return report, s.failPush(ctx, err)
		}
		report.Products++
	}
	for _, c := range categories {
		if err := s.gw.Upsert(ctx, gateway.Categories, c.ID, c); err != nil {
			return report, s.failPush(ctx, err)
		}
		report.Categories++
	}
	if err := s.gw.Upsert(ctx, gateway.Settings, domain.SettingsID, settings); err != nil {
		return report, s.failPush(ctx, err)
	}
	report.Settings = true

	s.logger.InfoContext(ctx, "catalog pushed to gateway",
		slog.Int("products", report.Products),
		slog.Int("categories", report.Categories),
	)
	return report, Outcome{Status: RemoteSynced}
}

func (s *Store) failPush(ctx context.Context, err error) Outcome {
	out := outcomeFor(err)
	s.record(ctx, "push_all", out)
	return out
}
