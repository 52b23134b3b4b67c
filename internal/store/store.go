// Package store is the application state store: the in-memory catalog, the
// admin flag and the actions that change them. Actions apply locally first
// and then propagate to the remote gateway; a remote failure never reverts
// the local change.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ai360store-ux/Digimarket/internal/domain"
	"github.com/ai360store-ux/Digimarket/internal/event"
	"github.com/ai360store-ux/Digimarket/internal/gateway"
	"github.com/ai360store-ux/Digimarket/internal/localstore"
	"github.com/ai360store-ux/Digimarket/internal/seed"
)

// Gateway is the part of *gateway.Client the store uses.
type Gateway interface {
	IsConnected() bool
	Endpoint() string
	BackendName() string
	FetchAll(ctx context.Context, c gateway.Collection) ([]json.RawMessage, error)
	Upsert(ctx context.Context, c gateway.Collection, id string, payload any) error
	Remove(ctx context.Context, c gateway.Collection, id string) error
	Check(ctx context.Context, c gateway.Collection) error
}

// Events receives catalog changes that reached the remote store.
type Events interface {
	PublishProductSaved(ctx context.Context, p *domain.Product, minPrice float64, created bool) error
	PublishProductDeleted(ctx context.Context, id string) error
	PublishCategoryCreated(ctx context.Context, c *domain.Category) error
	PublishCategoryDeleted(ctx context.Context, id string) error
	PublishSettingsUpdated(ctx context.Context, s domain.AppSettings) error
	PublishRefreshed(ctx context.Context, data event.RefreshedData) error
}

// KeyVerifier checks the shared admin key.
type KeyVerifier interface {
	Verify(key string) bool
}

// ErrInvalidKey is returned by Login for a wrong admin key.
var ErrInvalidKey = errors.New("invalid admin key")

// Options wires a Store.
type Options struct {
	Gateway Gateway
	Slots   localstore.Slots
	Events  Events
	Keys    KeyVerifier
	Logger  *slog.Logger
}

// Store holds the catalog for the lifetime of the process.
type Store struct {
	mu         sync.RWMutex
	products   []domain.Product
	categories []domain.Category
	settings   domain.AppSettings
	admin      bool
	live       bool
	lastSync   *SyncNotice
	snapshotAt time.Time

	gw     Gateway
	slots  localstore.Slots
	events Events
	keys   KeyVerifier
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// New creates a store holding the bundled defaults. Call Init before serving.
func New(opts Options) *Store {
	l := opts.Logger
	if l == nil {
		l = slog.Default()
	}
	slots := opts.Slots
	if slots == nil {
		slots = localstore.NewMemory()
	}
	events := opts.Events
	if events == nil {
		events = event.NewProducer(nil, l)
	}
	return &Store{
		products:   seed.Products(),
		categories: seed.Categories(),
		settings:   seed.Settings(),
		gw:         opts.Gateway,
		slots:      slots,
		events:     events,
		keys:       opts.Keys,
		logger:     l,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Init restores the admin flag and loads the catalog. It never fails on
// remote errors; those fall back to the bundled defaults.
func (s *Store) Init(ctx context.Context) error {
	var admin bool
	if err := s.slots.Get(ctx, localstore.SlotAdminAuth, &admin); err != nil && !errors.Is(err, localstore.ErrNotFound) {
		return fmt.Errorf("restore admin flag: %w", err)
	}
	s.mu.Lock()
	s.admin = admin
	s.mu.Unlock()

	s.Refresh(ctx)
	return nil
}

// --- Reads ---

// Products returns a deep copy of every product, admin-visible ones included.
func (s *Store) Products() []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Product, len(s.products))
	for i := range s.products {
		out[i] = s.products[i].Clone()
	}
	return out
}

// Product returns a copy of the product with id.
func (s *Store) Product(id string) (domain.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.productIndex(id); i >= 0 {
		return s.products[i].Clone(), true
	}
	return domain.Product{}, false
}

// Categories returns a copy of every category.
func (s *Store) Categories() []domain.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Category(nil), s.categories...)
}

// Settings returns the current settings.
func (s *Store) Settings() domain.AppSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// IsAdmin reports whether an admin session is open.
func (s *Store) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.admin
}

// IsLive reports whether the last refresh read from the remote store.
func (s *Store) IsLive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live
}

// IsConnected reports whether a gateway is configured.
func (s *Store) IsConnected() bool {
	return s.gw != nil && s.gw.IsConnected()
}

// LastSyncError returns the most recent remote failure, or nil.
func (s *Store) LastSyncError() *SyncNotice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastSync == nil {
		return nil
	}
	n := *s.lastSync
	return &n
}

func (s *Store) productIndex(id string) int {
	for i := range s.products {
		if s.products[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) categoryIndex(id string) int {
	for i := range s.categories {
		if s.categories[i].ID == id {
			return i
		}
	}
	return -1
}

// --- Session ---

// Login checks the shared admin key and opens the admin session.
func (s *Store) Login(ctx context.Context, key string) error {
	if s.keys == nil || !s.keys.Verify(key) {
		return ErrInvalidKey
	}
	s.mu.Lock()
	s.admin = true
	s.mu.Unlock()
	if err := s.slots.Set(ctx, localstore.SlotAdminAuth, true); err != nil {
		s.logger.WarnContext(ctx, "failed to persist admin flag", slog.String("error", err.Error()))
	}
	return nil
}

// Logout closes the admin session.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	s.admin = false
	s.mu.Unlock()
	if err := s.slots.Delete(ctx, localstore.SlotAdminAuth); err != nil {
		s.logger.WarnContext(ctx, "failed to clear admin flag", slog.String("error", err.Error()))
	}
}

// --- Remote propagation ---

// sync runs one gateway call after a local change and records the result.
func (s *Store) sync(ctx context.Context, action string, call func(Gateway) error) Outcome {
	var err error
	if s.gw == nil {
		err = gateway.ErrNotConfigured
	} else {
		err = call(s.gw)
	}
	out := outcomeFor(err)
	s.record(ctx, action, out)
	return out
}

func (s *Store) record(ctx context.Context, action string, out Outcome) {
	switch out.Status {
	case RemoteSynced:
		return
	case RemoteSkipped:
		s.logger.DebugContext(ctx, "gateway not configured, change kept locally", slog.String("action", action))
		return
	}
	notice := &SyncNotice{
		Action:   action,
		Kind:     out.Kind().String(),
		Message:  out.Err.Error(),
		Guidance: out.Guidance,
		At:       s.now().UTC(),
	}
	s.mu.Lock()
	s.lastSync = notice
	s.mu.Unlock()
	s.logger.WarnContext(ctx, "remote sync failed, local change kept",
		slog.String("action", action),
		slog.String("kind", notice.Kind),
		slog.String("error", notice.Message),
	)
}

// publish sends a change event when the remote write succeeded.
func (s *Store) publish(ctx context.Context, out Outcome, name string, fn func() error) {
	if out.Status != RemoteSynced {
		return
	}
	if err := fn(); err != nil {
		s.logger.WarnContext(ctx, "failed to publish catalog event",
			slog.String("event", name),
			slog.String("error", err.Error()),
		)
	}
}
