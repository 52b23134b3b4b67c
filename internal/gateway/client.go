// Package gateway is the remote persistence gateway: a document store keyed
// by collection and id, plus an asset bucket. Every failure is a *Error of
// exactly one Kind.
package gateway

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ai360store-ux/Digimarket/internal/localstore"
	"github.com/ai360store-ux/Digimarket/pkg/tracing"
)

// DefaultEndpointTemplate derives the hosted endpoint from a project id.
const DefaultEndpointTemplate = "https://%s.supabase.co"

const tracerName = "catalog-gateway"

// Asset is an uploaded file.
type Asset struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Configure errors. They are not gateway *Error values: nothing reached a backend.
var (
	ErrIncompleteCredentials = errors.New("gateway credentials need a project id and an access key")
	ErrBackendFixed          = errors.New("gateway backend is fixed by deployment configuration")
)

// Options configures a Client.
type Options struct {
	// EndpointTemplate is a fmt template taking the project id.
	EndpointTemplate string
	// Factory builds the backend used after Configure.
	Factory BackendFactory
	// Slots persists credentials. Nil disables persistence.
	Slots  localstore.Slots
	Logger *slog.Logger
}

// Client is the single entry point to the remote store.
type Client struct {
	mu       sync.RWMutex
	backend  Backend
	creds    Credentials
	endpoint string
	fixed    bool

	template string
	factory  BackendFactory
	slots    localstore.Slots
	logger   *slog.Logger
	now      func() time.Time
}

// NewClient creates an unconfigured client.
func NewClient(opts Options) *Client {
	tmpl := opts.EndpointTemplate
	if tmpl == "" {
		tmpl = DefaultEndpointTemplate
	}
	l := opts.Logger
	if l == nil {
		l = slog.Default()
	}
	return &Client{
		template: tmpl,
		factory:  opts.Factory,
		slots:    opts.Slots,
		logger:   l,
		now:      time.Now,
	}
}

// UseBackend installs a backend that owns its own connection (for example a
// direct database pool). The client reports connected and Configure is
// rejected while it is installed.
func (c *Client) UseBackend(b Backend, endpoint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.backend = b
	c.endpoint = endpoint
	c.fixed = true
}

// Configure derives the endpoint from creds, persists creds to the
// credentials slot and swaps in a fresh backend. Reachability is not checked.
func (c *Client) Configure(ctx context.Context, creds Credentials) error {
	creds.ProjectID = strings.TrimSpace(creds.ProjectID)
	creds.AccessKey = strings.TrimSpace(creds.AccessKey)
	if !creds.Complete() {
		return ErrIncompleteCredentials
	}
	if err := c.apply(creds); err != nil {
		return err
	}
	if c.slots != nil {
		if err := c.slots.Set(ctx, localstore.SlotCredentials, creds); err != nil {
			return fmt.Errorf("persist gateway credentials: %w", err)
		}
	}
	c.logger.Info("gateway configured", slog.String("endpoint", c.Endpoint()))
	return nil
}

// Restore loads previously persisted credentials. A missing slot leaves the
// client unconfigured and is not an error.
func (c *Client) Restore(ctx context.Context) error {
	if c.slots == nil {
		return nil
	}
	var creds Credentials
	if err := c.slots.Get(ctx, localstore.SlotCredentials, &creds); err != nil {
		if errors.Is(err, localstore.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("restore gateway credentials: %w", err)
	}
	if !creds.Complete() {
		return nil
	}
	return c.apply(creds)
}

func (c *Client) apply(creds Credentials) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fixed {
		return ErrBackendFixed
	}
	if c.factory == nil {
		return errors.New("gateway has no backend factory")
	}
	endpoint := creds.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf(c.template, creds.ProjectID)
	}
	endpoint = strings.TrimRight(endpoint, "/")
	b, err := c.factory(endpoint, creds.AccessKey)
	if err != nil {
		return fmt.Errorf("build gateway backend: %w", err)
	}
	c.backend, c.creds, c.endpoint = b, creds, endpoint
	return nil
}

// IsConnected reports configuration presence only, never reachability.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.backend != nil
}

// Endpoint returns the configured endpoint, or "" when unconfigured.
func (c *Client) Endpoint() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.endpoint
}

// BackendName returns the active backend name, or "" when unconfigured.
func (c *Client) BackendName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.backend == nil {
		return ""
	}
	return c.backend.Name()
}

func (c *Client) current() Backend {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.backend
}

// run resolves the backend, short-circuiting with not-configured before any
// I/O, and wraps fn in a span and the operations counter.
func (c *Client) run(ctx context.Context, op string, coll Collection, fn func(context.Context, Backend) error) (err error) {
	b := c.current()
	if b == nil {
		err = &Error{Kind: KindNotConfigured, Op: op, Collection: coll}
		observe(op, coll, err)
		return err
	}
	ctx, span := tracing.Start(ctx, tracerName, "gateway."+op,
		attribute.String("gateway.backend", b.Name()),
		attribute.String("gateway.collection", string(coll)),
	)
	defer func() {
		observe(op, coll, err)
		tracing.End(span, err)
	}()
	return annotate(op, coll, fn(ctx, b))
}

// FetchAll returns the stored payloads of coll. A successful result is never
// nil; an empty collection yields an empty slice.
func (c *Client) FetchAll(ctx context.Context, coll Collection) ([]json.RawMessage, error) {
	var out []json.RawMessage
	err := c.run(ctx, "fetch_all", coll, func(ctx context.Context, b Backend) error {
		rows, err := b.FetchAll(ctx, coll.Table())
		out = rows
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []json.RawMessage{}
	}
	return out, nil
}

// Upsert creates or fully replaces item id in coll. Last write wins.
func (c *Client) Upsert(ctx context.Context, coll Collection, id string, payload any) error {
	return c.run(ctx, "upsert", coll, func(ctx context.Context, b Backend) error {
		data, err := json.Marshal(payload)
		if err != nil {
			return Transport("encode payload", err)
		}
		return b.Upsert(ctx, coll.Table(), id, data, c.now().UTC())
	})
}

// Remove deletes item id from coll. Removing a missing id succeeds.
func (c *Client) Remove(ctx context.Context, coll Collection, id string) error {
	return c.run(ctx, "remove", coll, func(ctx context.Context, b Backend) error {
		return b.Remove(ctx, coll.Table(), id)
	})
}

// Check verifies that coll is reachable and provisioned.
func (c *Client) Check(ctx context.Context, coll Collection) error {
	return c.run(ctx, "check", coll, func(ctx context.Context, b Backend) error {
		return b.Check(ctx, coll.Table())
	})
}

// UploadAsset stores a under a generated unique name and returns its public URL.
func (c *Client) UploadAsset(ctx context.Context, a Asset) (string, error) {
	var url string
	err := c.run(ctx, "upload_asset", "", func(ctx context.Context, b Backend) error {
		name, err := assetName(a.Filename, c.now())
		if err != nil {
			return err
		}
		url, err = b.Upload(ctx, name, a.ContentType, a.Data)
		return err
	})
	return url, err
}

// assetName returns <unix millis>_<9 random hex chars>.<ext>.
func assetName(filename string, now time.Time) (string, error) {
	var buf [5]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("generate asset name: %w", err)
	}
	name := fmt.Sprintf("%d_%s", now.UnixMilli(), hex.EncodeToString(buf[:])[:9])
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if ext == "" || strings.IndexFunc(ext, notAlnum) >= 0 {
		return name, nil
	}
	return name + "." + ext, nil
}

func notAlnum(r rune) bool {
	return (r < 'a' || r > 'z') && (r < '0' || r > '9')
}
