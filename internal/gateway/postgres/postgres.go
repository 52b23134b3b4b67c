// Package postgres is the self-hosted gateway backend: the document tables
// live in a Postgres database reached directly through pgx, and assets go to
// a local storage.Storage.
package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ai360store-ux/Digimarket/internal/gateway"
	"github.com/ai360store-ux/Digimarket/internal/storage"
	"github.com/ai360store-ux/Digimarket/pkg/database"
)

const undefinedTable = "42P01"

// Backend implements gateway.Backend against Postgres.
type Backend struct {
	db     database.DBTX
	assets storage.Storage
	logger *slog.Logger
}

// New creates a Postgres backend. assets may be nil, in which case uploads
// fail as schema-missing.
func New(db database.DBTX, assets storage.Storage, l *slog.Logger) *Backend {
	return &Backend{db: db, assets: assets, logger: l}
}

func (b *Backend) Name() string { return "postgres" }

// Provision applies the embedded document schema.
func (b *Backend) Provision(ctx context.Context) error {
	if err := database.RunMigrations(ctx, b.db, gateway.Migrations, gateway.MigrationsDir, b.logger); err != nil {
		return fmt.Errorf("provision catalog schema: %w", err)
	}
	return nil
}

func (b *Backend) FetchAll(ctx context.Context, table string) (_ []json.RawMessage, err error) {
	query := `SELECT data FROM ` + ident(table) + ` ORDER BY updated_at, id`
	ctx, end := database.TraceQuery(ctx, table+".fetch_all", query)
	defer func() { end(err) }()

	rows, err := b.db.Query(ctx, query)
	if err != nil {
		return nil, classify(table, err)
	}
	defer rows.Close()

	out := make([]json.RawMessage, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, gateway.Transport("scan "+table, err)
		}
		out = append(out, json.RawMessage(data))
	}
	if err := rows.Err(); err != nil {
		return nil, classify(table, err)
	}
	return out, nil
}

func (b *Backend) Upsert(ctx context.Context, table, id string, data json.RawMessage, updatedAt time.Time) (err error) {
	query := `INSERT INTO ` + ident(table) + ` (id, data, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`
	ctx, end := database.TraceQuery(ctx, table+".upsert", query)
	defer func() { end(err) }()

	if _, err := b.db.Exec(ctx, query, id, []byte(data), updatedAt); err != nil {
		return classify(table, err)
	}
	return nil
}

func (b *Backend) Remove(ctx context.Context, table, id string) (err error) {
	query := `DELETE FROM ` + ident(table) + ` WHERE id = $1`
	ctx, end := database.TraceQuery(ctx, table+".remove", query)
	defer func() { end(err) }()

	if _, err := b.db.Exec(ctx, query, id); err != nil {
		return classify(table, err)
	}
	return nil
}

func (b *Backend) Check(ctx context.Context, table string) (err error) {
	query := `SELECT id FROM ` + ident(table) + ` LIMIT 1`
	ctx, end := database.TraceQuery(ctx, table+".check", query)
	defer func() { end(err) }()

	var id string
	if err := b.db.QueryRow(ctx, query).Scan(&id); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return classify(table, err)
	}
	return nil
}

func (b *Backend) Upload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if b.assets == nil {
		return "", gateway.SchemaMissing("no asset storage configured", nil)
	}
	res, err := b.assets.Upload(ctx, &storage.UploadInput{
		Key:         name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Data:        bytes.NewReader(data),
	})
	if err != nil {
		return "", gateway.Transport("store asset", err)
	}
	return res.URL, nil
}

func ident(table string) string {
	return pgx.Identifier{table}.Sanitize()
}

func classify(table string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
		return gateway.SchemaMissing(fmt.Sprintf("table %s is not provisioned", table), err)
	}
	return gateway.Transport("", err)
}
