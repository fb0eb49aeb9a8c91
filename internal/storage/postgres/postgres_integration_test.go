//go:build integration

package postgres

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"dbaccess/internal/storage"

	"github.com/golang-sql/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testParams reads PG_TEST_* variables. If the host is empty, the test is
// skipped.
func testParams(t *testing.T) storage.ConnectionParams {
	t.Helper()
	host := os.Getenv("PG_TEST_HOST")
	if host == "" {
		t.Skip("PG_TEST_HOST not set; skipping Postgres integration tests")
	}
	port, _ := strconv.Atoi(os.Getenv("PG_TEST_PORT"))
	return storage.ConnectionParams{
		Host:     host,
		Database: os.Getenv("PG_TEST_DATABASE"),
		User:     os.Getenv("PG_TEST_USER"),
		Password: os.Getenv("PG_TEST_PASSWORD"),
		Port:     port,
	}
}

func TestCRUDIntegration(t *testing.T) {
	a, err := storage.New(storage.KindPostgres, testParams(t))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	_ = a.Execute(ctx, "DROP TABLE IF EXISTS public.dbaccess_it")
	res := a.Execute(ctx, "CREATE TABLE public.dbaccess_it (id integer, name text, born date, amount numeric, at timestamp)")
	require.True(t, res.Success, res.Error)
	defer a.Execute(context.Background(), "DROP TABLE public.dbaccess_it")

	at := time.Date(2025, 12, 9, 5, 6, 0, 0, time.UTC)
	res = a.Insert(ctx, "public.dbaccess_it", storage.RowOf(
		"id", int64(1), "name", "alice", "born", civil.Date{Year: 2025, Month: 1, Day: 9}, "amount", 2.5, "at", at))
	require.True(t, res.Success, res.Error)

	rows, err := a.SelectWhere(ctx, "dbaccess_it", []string{"id", "name", "amount"}, "id = %s", int64(1))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, map[string]any{"id": int32(1), "name": "alice", "amount": 2.5}, rows[0].Map())

	cs, err := a.TableSchema(ctx, "dbaccess_it")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"id": "integer", "name": "text", "born": "date", "amount": "numeric", "at": "timestamp without time zone",
	}, cs.Map())

	res = a.Execute(ctx, "UPDATE dbaccess_it SET name = %s WHERE name LIKE 'a%%'", "bob")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, int64(1), res.RowsAffected)
}
