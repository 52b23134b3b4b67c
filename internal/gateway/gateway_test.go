package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai360store-ux/Digimarket/internal/localstore"
	"github.com/ai360store-ux/Digimarket/pkg/logger"
)

// fakeBackend is an in-memory Backend with injectable failures.
type fakeBackend struct {
	mu      sync.Mutex
	rows    map[string]map[string]json.RawMessage
	missing map[string]bool
	failErr error
	calls   int
	uploads map[string][]byte
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		rows:    make(map[string]map[string]json.RawMessage),
		missing: make(map[string]bool),
		uploads: make(map[string][]byte),
	}
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) check(table string) error {
	f.calls++
	if f.failErr != nil {
		return f.failErr
	}
	if f.missing[table] {
		return SchemaMissing("relation \""+table+"\" does not exist", nil)
	}
	return nil
}

func (f *fakeBackend) FetchAll(_ context.Context, table string) ([]json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(table); err != nil {
		return nil, err
	}
	var out []json.RawMessage
	for _, v := range f.rows[table] {
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeBackend) Upsert(_ context.Context, table, id string, data json.RawMessage, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(table); err != nil {
		return err
	}
	if f.rows[table] == nil {
		f.rows[table] = make(map[string]json.RawMessage)
	}
	f.rows[table][id] = data
	return nil
}

func (f *fakeBackend) Remove(_ context.Context, table, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(table); err != nil {
		return err
	}
	delete(f.rows[table], id)
	return nil
}

func (f *fakeBackend) Check(_ context.Context, table string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.check(table)
}

func (f *fakeBackend) Upload(_ context.Context, name, _ string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("dm_assets"); err != nil {
		return "", err
	}
	f.uploads[name] = data
	return "https://cdn.test/" + name, nil
}

func newTestClient(t *testing.T, b *fakeBackend) (*Client, *localstore.Memory) {
	t.Helper()
	slots := localstore.NewMemory()
	c := NewClient(Options{
		Slots:   slots,
		Logger:  logger.Discard(),
		Factory: func(string, string) (Backend, error) { return b, nil },
	})
	return c, slots
}

// ============================================================================
// Error Taxonomy Tests
// ============================================================================

func TestError_IsMatchesKindSentinels(t *testing.T) {
	err := &Error{Kind: KindSchemaMissing, Op: "fetch_all", Collection: Products, Detail: "missing"}

	assert.ErrorIs(t, err, ErrSchemaMissing)
	assert.NotErrorIs(t, err, ErrTransport)
	assert.NotErrorIs(t, err, ErrNotConfigured)

	wrapped := fmt.Errorf("refresh: %w", err)
	assert.ErrorIs(t, wrapped, ErrSchemaMissing)
	assert.Equal(t, KindSchemaMissing, Classify(wrapped))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, KindNone, Classify(nil))
	assert.Equal(t, KindTransport, Classify(errors.New("boom")))
	assert.Equal(t, KindNotConfigured, Classify(ErrNotConfigured))
}

func TestError_Message(t *testing.T) {
	err := &Error{Kind: KindTransport, Op: "upsert", Collection: Settings, Err: errors.New("dial tcp: refused")}
	assert.Equal(t, "gateway upsert settings: transport: dial tcp: refused", err.Error())
	assert.Equal(t, "kind(9)", Kind(9).String())
}

func TestAnnotate(t *testing.T) {
	assert.NoError(t, annotate("x", Products, nil))

	got := annotate("remove", Products, errors.New("reset"))
	var ge *Error
	require.ErrorAs(t, got, &ge)
	assert.Equal(t, KindTransport, ge.Kind)
	assert.Equal(t, "remove", ge.Op)

	orig := SchemaMissing("no table", nil)
	got = annotate("fetch_all", Categories, orig)
	require.ErrorAs(t, got, &ge)
	assert.Equal(t, KindSchemaMissing, ge.Kind)
	assert.Equal(t, Categories, ge.Collection)
	assert.Empty(t, orig.Op, "original must not be mutated")
}

// ============================================================================
// Collection Tests
// ============================================================================

func TestCollection_Table(t *testing.T) {
	assert.Equal(t, "dm_products", Products.Table())
	assert.Equal(t, "dm_settings", Settings.Table())
	assert.True(t, Config.Valid())
	assert.False(t, Collection("orders").Valid())
	assert.Equal(t, []Collection{Products, Categories, Settings}, Collections())
}

// ============================================================================
// Client Tests
// ============================================================================

func TestClient_NotConfiguredShortCircuits(t *testing.T) {
	c := NewClient(Options{Logger: logger.Discard()})
	ctx := context.Background()

	assert.False(t, c.IsConnected())
	assert.Empty(t, c.Endpoint())

	_, err := c.FetchAll(ctx, Products)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, c.Upsert(ctx, Products, "p1", map[string]string{}), ErrNotConfigured)
	assert.ErrorIs(t, c.Remove(ctx, Products, "p1"), ErrNotConfigured)
	assert.ErrorIs(t, c.Check(ctx, Products), ErrNotConfigured)
	_, err = c.UploadAsset(ctx, Asset{Filename: "a.png"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClient_ConfigureDerivesEndpointAndPersists(t *testing.T) {
	b := newFakeBackend()
	c, slots := newTestClient(t, b)

	require.NoError(t, c.Configure(context.Background(), Credentials{ProjectID: " abcd ", AccessKey: "anon"}))

	assert.True(t, c.IsConnected())
	assert.Equal(t, "https://abcd.supabase.co", c.Endpoint())
	assert.Equal(t, "fake", c.BackendName())
	assert.Zero(t, b.calls, "configure must not touch the network")

	var saved Credentials
	require.NoError(t, slots.Get(context.Background(), localstore.SlotCredentials, &saved))
	assert.Equal(t, "abcd", saved.ProjectID)
	assert.Equal(t, "anon", saved.AccessKey)
}

func TestClient_ConfigureRejectsIncomplete(t *testing.T) {
	c, _ := newTestClient(t, newFakeBackend())
	assert.Error(t, c.Configure(context.Background(), Credentials{ProjectID: "abcd"}))
	assert.Error(t, c.Configure(context.Background(), Credentials{AccessKey: "k"}))
	assert.False(t, c.IsConnected())
}

func TestClient_ConfigureEndpointOverride(t *testing.T) {
	c, _ := newTestClient(t, newFakeBackend())
	require.NoError(t, c.Configure(context.Background(), Credentials{Endpoint: "http://localhost:54321/", AccessKey: "k"}))
	assert.Equal(t, "http://localhost:54321", c.Endpoint())
}

func TestClient_Restore(t *testing.T) {
	b := newFakeBackend()
	c, slots := newTestClient(t, b)
	ctx := context.Background()

	require.NoError(t, c.Restore(ctx))
	assert.False(t, c.IsConnected(), "empty slot leaves client unconfigured")

	require.NoError(t, slots.Set(ctx, localstore.SlotCredentials, Credentials{ProjectID: "p", AccessKey: "k"}))
	require.NoError(t, c.Restore(ctx))
	assert.True(t, c.IsConnected())
	assert.Equal(t, "https://p.supabase.co", c.Endpoint())
}

func TestClient_UseBackendIsFixed(t *testing.T) {
	c, _ := newTestClient(t, newFakeBackend())
	c.UseBackend(newFakeBackend(), "postgres://db")

	assert.True(t, c.IsConnected())
	assert.Equal(t, "postgres://db", c.Endpoint())
	assert.Error(t, c.Configure(context.Background(), Credentials{ProjectID: "p", AccessKey: "k"}))
}

func TestClient_UpsertFetchAllRoundTrip(t *testing.T) {
	c, _ := newTestClient(t, newFakeBackend())
	ctx := context.Background()
	require.NoError(t, c.Configure(ctx, Credentials{ProjectID: "p", AccessKey: "k"}))

	rows, err := c.FetchAll(ctx, Products)
	require.NoError(t, err)
	assert.NotNil(t, rows, "empty collection is an empty slice, not nil")
	assert.Empty(t, rows)

	item := map[string]any{"id": "prod-1", "title": "Canva Pro"}
	require.NoError(t, c.Upsert(ctx, Products, "prod-1", item))

	rows, err = c.FetchAll(ctx, Products)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rows[0], &got))
	assert.Equal(t, item, got)
}

func TestClient_UpsertUnencodablePayload(t *testing.T) {
	b := newFakeBackend()
	c, _ := newTestClient(t, b)
	ctx := context.Background()
	require.NoError(t, c.Configure(ctx, Credentials{ProjectID: "p", AccessKey: "k"}))

	err := c.Upsert(ctx, Products, "prod-1", map[string]any{"bad": make(chan int)})

	var ge *Error
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, KindTransport, ge.Kind)
	assert.Equal(t, "upsert", ge.Op)
	assert.Equal(t, Products, ge.Collection)
	assert.Equal(t, "encode payload", ge.Detail)

	rows, err := c.FetchAll(ctx, Products)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestClient_RemoveIsIdempotent(t *testing.T) {
	c, _ := newTestClient(t, newFakeBackend())
	ctx := context.Background()
	require.NoError(t, c.Configure(ctx, Credentials{ProjectID: "p", AccessKey: "k"}))
	require.NoError(t, c.Upsert(ctx, Categories, "cat-1", map[string]string{"id": "cat-1"}))

	require.NoError(t, c.Remove(ctx, Categories, "cat-1"))
	require.NoError(t, c.Remove(ctx, Categories, "cat-1"))

	rows, err := c.FetchAll(ctx, Categories)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestClient_ClassifiesBackendFailures(t *testing.T) {
	b := newFakeBackend()
	c, _ := newTestClient(t, b)
	ctx := context.Background()
	require.NoError(t, c.Configure(ctx, Credentials{ProjectID: "p", AccessKey: "k"}))

	b.missing["dm_products"] = true
	_, err := c.FetchAll(ctx, Products)
	var ge *Error
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, KindSchemaMissing, ge.Kind)
	assert.Equal(t, "fetch_all", ge.Op)
	assert.Equal(t, Products, ge.Collection)

	b.failErr = errors.New("connection reset")
	err = c.Check(ctx, Categories)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestClient_UploadAsset(t *testing.T) {
	b := newFakeBackend()
	c, _ := newTestClient(t, b)
	ctx := context.Background()
	require.NoError(t, c.Configure(ctx, Credentials{ProjectID: "p", AccessKey: "k"}))
	c.now = func() time.Time { return time.UnixMilli(1700000000000) }

	url, err := c.UploadAsset(ctx, Asset{Filename: "Logo.PNG", ContentType: "image/png", Data: []byte("x")})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^https://cdn\.test/1700000000000_[0-9a-f]{9}\.png$`), url)
	assert.Len(t, b.uploads, 1)
}

func TestAssetName(t *testing.T) {
	now := time.UnixMilli(42)

	name, err := assetName("photo.jpeg", now)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "42_"))
	assert.True(t, strings.HasSuffix(name, ".jpeg"))

	name, err = assetName("noext", now)
	require.NoError(t, err)
	assert.NotContains(t, name, ".")

	name, err = assetName("evil.p/ng", now)
	require.NoError(t, err)
	assert.NotContains(t, name, "/")

	a, _ := assetName("a.png", now)
	b, _ := assetName("a.png", now)
	assert.NotEqual(t, a, b)
}

func TestProvisioningScript(t *testing.T) {
	s := ProvisioningScript()
	for _, table := range []string{"dm_products", "dm_categories", "dm_settings", "dm_config"} {
		assert.Contains(t, s, "CREATE TABLE IF NOT EXISTS "+table)
	}
	assert.Contains(t, s, "dm_assets")
	assert.Contains(t, s, "-- 001_catalog_documents.up.sql")
	assert.Equal(t, s, ProvisioningScript())
}
