//go:build integration

package mssql

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"dbaccess/internal/storage"

	"github.com/stretchr/testify/require"
)

// testParams reads MSSQL_TEST_* variables. If the host is empty, the test is
// skipped.
func testParams(t *testing.T) storage.ConnectionParams {
	t.Helper()
	host := os.Getenv("MSSQL_TEST_HOST")
	if host == "" {
		t.Skip("MSSQL_TEST_HOST not set; skipping MSSQL integration tests")
	}
	port, _ := strconv.Atoi(os.Getenv("MSSQL_TEST_PORT"))
	return storage.ConnectionParams{
		Host:     host,
		Database: os.Getenv("MSSQL_TEST_DATABASE"),
		User:     os.Getenv("MSSQL_TEST_USER"),
		Password: os.Getenv("MSSQL_TEST_PASSWORD"),
		Port:     port,
	}
}

func TestCRUDIntegration(t *testing.T) {
	a, err := storage.New(storage.KindMSSQL, testParams(t))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	_ = a.Execute(ctx, "IF OBJECT_ID('dbo.dbaccess_it', 'U') IS NOT NULL DROP TABLE dbo.dbaccess_it")
	res := a.Execute(ctx, "CREATE TABLE dbo.dbaccess_it (id INT NOT NULL, name NVARCHAR(100), born DATE)")
	require.True(t, res.Success, res.Error)
	defer a.Execute(context.Background(), "DROP TABLE dbo.dbaccess_it")

	res = a.Insert(ctx, "dbo.dbaccess_it", storage.RowOf("id", int64(1), "name", "alice"))
	require.True(t, res.Success, res.Error)

	rows, err := a.SelectWhere(ctx, "dbo.dbaccess_it", []string{"name"}, "id = %s", int64(1))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	cs, err := a.TableSchema(ctx, "dbaccess_it")
	require.NoError(t, err)
	require.Equal(t, []string{"id", "name", "born"}, cs.Columns())

	res = a.Delete(ctx, "dbo.dbaccess_it", "id = %s", int64(1))
	require.True(t, res.Success, res.Error)
	require.Equal(t, int64(1), res.RowsAffected)
}
