// Package rest is the hosted-store gateway backend: PostgREST-style tables
// under /rest/v1 and an object bucket under /storage/v1.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ai360store-ux/Digimarket/internal/gateway"
	"github.com/ai360store-ux/Digimarket/pkg/httpclient"
)

// DefaultBucket is the asset bucket name.
const DefaultBucket = "dm_assets"

// PostgREST error codes meaning the table is not provisioned.
var schemaMissingCodes = map[string]bool{
	"42P01":    true, // undefined_table
	"PGRST205": true, // table not in schema cache
	"PGRST204": true, // column not in schema cache
}

// Config tunes the backend transport.
type Config struct {
	Bucket  string
	HTTP    httpclient.Config
	Breaker httpclient.CircuitBreakerConfig
}

// DefaultConfig sends each request once; retries are left to the caller.
func DefaultConfig() Config {
	hc := httpclient.DefaultConfig()
	hc.MaxRetries = 0
	return Config{
		Bucket:  DefaultBucket,
		HTTP:    hc,
		Breaker: httpclient.DefaultCircuitBreakerConfig("catalog-gateway-rest"),
	}
}

// Backend implements gateway.Backend over HTTP.
type Backend struct {
	base   string
	key    string
	bucket string
	client *httpclient.CircuitBreakerClient
}

// New creates a backend for endpoint with its own pooled transport.
func New(endpoint, accessKey string, cfg Config, l *slog.Logger) *Backend {
	return newBackend(endpoint, accessKey, httpclient.New(cfg.HTTP), cfg, l)
}

// NewWithHTTPClient creates a backend over an existing http.Client.
func NewWithHTTPClient(endpoint, accessKey string, hc *http.Client, cfg Config, l *slog.Logger) *Backend {
	return newBackend(endpoint, accessKey, httpclient.NewWithHTTPClient(hc, cfg.HTTP), cfg, l)
}

func newBackend(endpoint, accessKey string, c *httpclient.Client, cfg Config, l *slog.Logger) *Backend {
	bucket := cfg.Bucket
	if bucket == "" {
		bucket = DefaultBucket
	}
	return &Backend{
		base:   strings.TrimRight(endpoint, "/"),
		key:    accessKey,
		bucket: bucket,
		client: httpclient.NewCircuitBreakerClient(c, cfg.Breaker, l),
	}
}

// Factory returns a gateway.BackendFactory building REST backends.
func Factory(cfg Config, l *slog.Logger) gateway.BackendFactory {
	return func(endpoint, accessKey string) (gateway.Backend, error) {
		u, err := url.Parse(endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid gateway endpoint %q", endpoint)
		}
		return New(endpoint, accessKey, cfg, l), nil
	}
}

func (b *Backend) Name() string { return "rest" }

type row struct {
	Data json.RawMessage `json:"data"`
}

func (b *Backend) FetchAll(ctx context.Context, table string) ([]json.RawMessage, error) {
	var rows []row
	if err := b.table(ctx, http.MethodGet, table, url.Values{"select": {"data"}}, nil, &rows); err != nil {
		return nil, err
	}
	out := make([]json.RawMessage, 0, len(rows))
	for _, r := range rows {
		if len(r.Data) == 0 || string(r.Data) == "null" {
			continue
		}
		out = append(out, r.Data)
	}
	return out, nil
}

type upsertBody struct {
	ID        string          `json:"id"`
	Data      json.RawMessage `json:"data"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (b *Backend) Upsert(ctx context.Context, table, id string, data json.RawMessage, updatedAt time.Time) error {
	body, err := json.Marshal(upsertBody{ID: id, Data: data, UpdatedAt: updatedAt})
	if err != nil {
		return gateway.Transport("encode row", err)
	}
	return b.table(ctx, http.MethodPost, table, nil, body, nil)
}

func (b *Backend) Remove(ctx context.Context, table, id string) error {
	return b.table(ctx, http.MethodDelete, table, url.Values{"id": {"eq." + id}}, nil, nil)
}

func (b *Backend) Check(ctx context.Context, table string) error {
	var rows []json.RawMessage
	return b.table(ctx, http.MethodGet, table, url.Values{"select": {"id"}, "limit": {"1"}}, nil, &rows)
}

func (b *Backend) Upload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	objectPath := "/storage/v1/object/" + url.PathEscape(b.bucket) + "/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.base+objectPath, bytes.NewReader(data))
	if err != nil {
		return "", gateway.Transport("build upload request", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "false")
	b.authorize(req)

	resp, err := b.client.Do(ctx, req)
	if err != nil {
		return "", gateway.Transport("upload", err)
	}
	if resp.StatusCode >= 300 {
		uerr := httpclient.ParseResponseError(resp, "storage")
		if strings.Contains(strings.ToLower(uerr.Message), "bucket not found") {
			return "", gateway.SchemaMissing("bucket "+b.bucket+" does not exist", uerr)
		}
		return "", gateway.Transport("upload failed", uerr)
	}
	drain(resp)
	return b.base + "/storage/v1/object/public/" + url.PathEscape(b.bucket) + "/" + url.PathEscape(name), nil
}

// table issues a request against /rest/v1/<table> and decodes a JSON
// response into out when out is non-nil.
func (b *Backend) table(ctx context.Context, method, table string, q url.Values, body []byte, out any) error {
	u := b.base + "/rest/v1/" + url.PathEscape(table)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return gateway.Transport("build request", err)
	}
	b.authorize(req)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Prefer", "resolution=merge-duplicates,return=minimal")
	}

	resp, err := b.client.Do(ctx, req)
	if err != nil {
		return classifyTransport(err)
	}
	if resp.StatusCode >= 300 {
		return classifyResponse(resp, table)
	}
	if out == nil {
		drain(resp)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return gateway.Transport("decode "+table+" response", err)
	}
	return nil
}

func (b *Backend) authorize(req *http.Request) {
	req.Header.Set("apikey", b.key)
	req.Header.Set("Authorization", "Bearer "+b.key)
}

func classifyTransport(err error) error {
	var se *httpclient.ServerError
	switch {
	case errors.Is(err, httpclient.ErrCircuitOpen):
		return gateway.Transport("hosted store circuit open", err)
	case errors.As(err, &se):
		return gateway.Transport(fmt.Sprintf("hosted store returned %d", se.StatusCode), err)
	default:
		return gateway.Transport("", err)
	}
}

func classifyResponse(resp *http.Response, table string) error {
	uerr := httpclient.ParseResponseError(resp, "hosted store")
	if schemaMissingCodes[uerr.Code] || (resp.StatusCode == http.StatusNotFound && uerr.Code == "") {
		return gateway.SchemaMissing(fmt.Sprintf("table %s is not provisioned", table), uerr)
	}
	return gateway.Transport(uerr.Error(), uerr)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
