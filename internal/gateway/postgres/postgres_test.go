package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai360store-ux/Digimarket/internal/gateway"
	"github.com/ai360store-ux/Digimarket/internal/storage/memory"
	"github.com/ai360store-ux/Digimarket/pkg/database"
	"github.com/ai360store-ux/Digimarket/pkg/logger"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func setupBackend(t *testing.T) (*Backend, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return New(mock, memory.New("http://catalog.test", 0), logger.Discard()), mock
}

var missingTable = &pgconn.PgError{Code: "42P01", Message: `relation "dm_products" does not exist`}

var at = time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

// ---------------------------------------------------------------------------
// FetchAll
// ---------------------------------------------------------------------------

func TestBackend_FetchAll(t *testing.T) {
	b, mock := setupBackend(t)

	rows := pgxmock.NewRows([]string{"data"}).
		AddRow([]byte(`{"id":"prod-0"}`)).
		AddRow([]byte(`{"id":"prod-1"}`))
	mock.ExpectQuery(`SELECT data FROM "dm_products" ORDER BY updated_at, id`).WillReturnRows(rows)

	got, err := b.FetchAll(context.Background(), "dm_products")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.JSONEq(t, `{"id":"prod-1"}`, string(got[1]))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackend_FetchAll_Empty(t *testing.T) {
	b, mock := setupBackend(t)
	mock.ExpectQuery(`SELECT data FROM "dm_categories"`).WillReturnRows(pgxmock.NewRows([]string{"data"}))

	got, err := b.FetchAll(context.Background(), "dm_categories")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestBackend_FetchAll_MissingTable(t *testing.T) {
	b, mock := setupBackend(t)
	mock.ExpectQuery(`SELECT data FROM "dm_products"`).WillReturnError(missingTable)

	_, err := b.FetchAll(context.Background(), "dm_products")
	assert.ErrorIs(t, err, gateway.ErrSchemaMissing)
}

func TestBackend_FetchAll_ConnectionError(t *testing.T) {
	b, mock := setupBackend(t)
	mock.ExpectQuery(`SELECT data FROM "dm_products"`).WillReturnError(errors.New("connection refused"))

	_, err := b.FetchAll(context.Background(), "dm_products")
	assert.ErrorIs(t, err, gateway.ErrTransport)
}

// ---------------------------------------------------------------------------
// Upsert / Remove
// ---------------------------------------------------------------------------

func TestBackend_Upsert(t *testing.T) {
	b, mock := setupBackend(t)
	data := json.RawMessage(`{"id":"cat-ai","name":"AI Solutions"}`)

	mock.ExpectExec(`INSERT INTO "dm_categories" \(id, data, updated_at\) VALUES \(\$1, \$2, \$3\)\s+ON CONFLICT \(id\) DO UPDATE`).
		WithArgs("cat-ai", []byte(data), at).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, b.Upsert(context.Background(), "dm_categories", "cat-ai", data, at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackend_Upsert_MissingTable(t *testing.T) {
	b, mock := setupBackend(t)
	mock.ExpectExec(`INSERT INTO "dm_settings"`).WillReturnError(missingTable)

	err := b.Upsert(context.Background(), "dm_settings", "global-config", json.RawMessage(`{}`), at)
	assert.ErrorIs(t, err, gateway.ErrSchemaMissing)
}

func TestBackend_Remove_IsIdempotent(t *testing.T) {
	b, mock := setupBackend(t)
	mock.ExpectExec(`DELETE FROM "dm_products" WHERE id = \$1`).WithArgs("prod-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM "dm_products" WHERE id = \$1`).WithArgs("prod-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, b.Remove(context.Background(), "dm_products", "prod-1"))
	require.NoError(t, b.Remove(context.Background(), "dm_products", "prod-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Check / Upload / Provision
// ---------------------------------------------------------------------------

func TestBackend_Check(t *testing.T) {
	b, mock := setupBackend(t)
	mock.ExpectQuery(`SELECT id FROM "dm_products" LIMIT 1`).WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT id FROM "dm_settings" LIMIT 1`).WillReturnError(missingTable)

	assert.NoError(t, b.Check(context.Background(), "dm_products"), "empty table is reachable")
	assert.ErrorIs(t, b.Check(context.Background(), "dm_settings"), gateway.ErrSchemaMissing)
}

func TestBackend_Upload(t *testing.T) {
	b, _ := setupBackend(t)

	url, err := b.Upload(context.Background(), "1_abc.png", "image/png", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "http://catalog.test/assets/1_abc.png", url)
}

func TestBackend_UploadWithoutStorage(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	b := New(mock, nil, logger.Discard())

	_, err = b.Upload(context.Background(), "1_abc.png", "image/png", []byte("x"))
	assert.ErrorIs(t, err, gateway.ErrSchemaMissing)
}

func TestBackend_Provision(t *testing.T) {
	b, mock := setupBackend(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	for _, name := range []string{"001_catalog_documents.up.sql", "002_hosted_access.up.sql"} {
		mock.ExpectQuery(`SELECT EXISTS`).WithArgs(name).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectBegin()
		mock.ExpectExec(`.+`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
		mock.ExpectExec(`INSERT INTO schema_migrations`).WithArgs(name).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()
	}

	require.NoError(t, b.Provision(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdent(t *testing.T) {
	assert.Equal(t, `"dm_products"`, ident("dm_products"))
	assert.Equal(t, `"bad""name"`, ident(`bad"name`))
}
