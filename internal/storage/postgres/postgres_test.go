package postgres

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"dbaccess/internal/storage"

	"github.com/cockroachdb/errors"
	"github.com/golang-sql/civil"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN_ParsesBack(t *testing.T) {
	t.Parallel()

	dsn := DSN(storage.ConnectionParams{Host: "pg.local", Database: "app", User: "u", Password: "p@ss/word", Port: 5433})
	cfg, err := pgx.ParseConfig(dsn)
	require.NoError(t, err)

	assert.Equal(t, "pg.local", cfg.Host)
	assert.Equal(t, uint16(5433), cfg.Port)
	assert.Equal(t, "app", cfg.Database)
	assert.Equal(t, "u", cfg.User)
	assert.Equal(t, "p@ss/word", cfg.Password)
}

func TestFactory_DefaultPortAndAliases(t *testing.T) {
	t.Parallel()

	for _, kind := range []string{"postgresql", "postgres", "PG"} {
		a, err := storage.Create(kind, "localhost", "app", "u", "p", 0)
		require.NoError(t, err, kind)
		assert.Equal(t, storage.KindPostgres, a.Kind())
		assert.Equal(t, 5432, a.Params().Port)
	}
}

func TestToArgs_DateBecomesPgDate(t *testing.T) {
	t.Parallel()

	got := toArgs([]any{civil.Date{Year: 2025, Month: 1, Day: 9}, int64(1), nil})
	require.Len(t, got, 3)
	assert.Equal(t, pgtype.Date{Time: time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC), Valid: true}, got[0])
	assert.Equal(t, int64(1), got[1])
	assert.Nil(t, got[2])
	assert.Empty(t, toArgs(nil))
}

func TestFromPG(t *testing.T) {
	t.Parallel()

	var num pgtype.Numeric
	require.NoError(t, num.Scan("3.25"))
	assert.Equal(t, 3.25, fromPG(num))
	assert.Nil(t, fromPG(pgtype.Numeric{}))

	id := [16]byte{0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde, 0xf0, 0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde, 0xf0}
	assert.Equal(t, "12345678-9abc-def0-1234-56789abcdef0", fromPG(id))
	assert.Equal(t, "x", fromPG("x"))
}

func TestPgError_AddsDetail(t *testing.T) {
	t.Parallel()

	err := pgError(&pgconn.PgError{Message: "duplicate key", Detail: "Key (id)=(1) already exists.", Code: "23505"})
	assert.Contains(t, err.Error(), "Key (id)=(1) already exists. (23505)")

	plain := errors.New("plain")
	assert.Equal(t, plain, pgError(plain))
}

// TestConnectFailure swaps the connect hook so no server is needed.
func TestConnectFailure(t *testing.T) {
	orig := connect
	defer func() { connect = orig }()
	connect = func(ctx context.Context, cfg *pgx.ConnConfig) (*pgx.Conn, error) {
		return nil, errors.New("connection refused")
	}

	a, err := storage.Create("postgresql", "localhost", "app", "u", "p", 0)
	require.NoError(t, err)

	_, err = a.Select(context.Background(), "SELECT 1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrConnection), "got %v", err)
	assert.Contains(t, err.Error(), "connection refused")

	res := a.Insert(context.Background(), "t", storage.RowOf("a", 1))
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "connection refused")

	_, err = a.TableSchema(context.Background(), "t")
	assert.True(t, errors.Is(err, storage.ErrConnection), "got %v", err)
}

// TestNewReadsNoEnvironment points pgx at a missing service file: building
// the adapter succeeds and the failure shows up on the first operation.
func TestNewReadsNoEnvironment(t *testing.T) {
	t.Setenv("PGSERVICEFILE", filepath.Join(t.TempDir(), "missing.conf"))
	t.Setenv("PGSERVICE", "nope")

	a, err := storage.Create("postgresql", "localhost", "app", "u", "p", 0)
	require.NoError(t, err)

	_, err = a.Select(context.Background(), "SELECT 1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrConnection), "got %v", err)
	assert.Contains(t, err.Error(), "postgres: dsn")
}
