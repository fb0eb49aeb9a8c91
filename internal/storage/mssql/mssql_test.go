package mssql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"

	"dbaccess/internal/storage"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-sql/civil"
	"github.com/microsoft/go-mssqldb/msdsn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dateConverter lets civil.Date reach the mock untouched, as go-mssqldb
// accepts it natively.
type dateConverter struct{}

func (dateConverter) ConvertValue(v any) (driver.Value, error) {
	if d, ok := v.(civil.Date); ok {
		return d, nil
	}
	return driver.DefaultParameterConverter.ConvertValue(v)
}

// hookOpen routes the next session to a sqlmock database and restores the
// real opener when the test ends. Tests using it must not run in parallel.
func hookOpen(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.New(
		sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual),
		sqlmock.ValueConverterOption(dateConverter{}),
	)
	require.NoError(t, err)

	orig := openDB
	t.Cleanup(func() { openDB = orig })
	openDB = func(driver, dsn string) (*sql.DB, error) {
		assert.Equal(t, driverName, driver)
		return db, nil
	}
	return mock
}

func newAdapter(t *testing.T) storage.Adapter {
	t.Helper()
	a, err := storage.Create("mssql", "db.local", "sales", "sa", "p@ss;word", 0)
	require.NoError(t, err)
	return a
}

func TestDSN_RoundTripsThroughParser(t *testing.T) {
	t.Parallel()

	dsn := DSN(storage.ConnectionParams{Host: "db.local", Database: "sales", User: "sa", Password: "p@ss;word", Port: 1433})
	cfg, err := msdsn.Parse(dsn)
	require.NoError(t, err)

	assert.Equal(t, "db.local", cfg.Host)
	assert.Equal(t, uint64(1433), cfg.Port)
	assert.Equal(t, "sales", cfg.Database)
	assert.Equal(t, "sa", cfg.User)
	assert.Equal(t, "p@ss;word", cfg.Password)
}

func TestFactory_DefaultPort(t *testing.T) {
	t.Parallel()

	a := newAdapter(t)
	assert.Equal(t, storage.KindMSSQL, a.Kind())
	assert.Equal(t, 1433, a.Params().Port)
}

func TestCatalog_DefaultsToDbo(t *testing.T) {
	t.Parallel()

	_, args := catalog("", "orders")
	assert.Equal(t, []any{"dbo", "orders"}, args)

	_, args = catalog("sales", "orders")
	assert.Equal(t, []any{"sales", "orders"}, args)
}

func TestInsert_RewritesPlaceholdersAndPassesDates(t *testing.T) {
	mock := hookOpen(t)
	born := civil.Date{Year: 2025, Month: 1, Day: 9}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO dbo.people (id, born) VALUES (@p1, @p2)").
		WithArgs(int64(1), born).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectClose()

	res := newAdapter(t).Insert(context.Background(), "dbo.people", storage.RowOf("id", int64(1), "born", born))
	require.True(t, res.Success, res.Error)
	assert.Equal(t, int64(1), res.RowsAffected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTableSchema_UsesInformationSchema(t *testing.T) {
	mock := hookOpen(t)

	q, _ := catalog("", "people")
	mock.ExpectQuery(q).
		WithArgs("dbo", "people").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME", "DATA_TYPE"}).
			AddRow("id", "int").
			AddRow("born", "date").
			AddRow("amount", "numeric"))
	mock.ExpectClose()

	cs, err := newAdapter(t).TableSchema(context.Background(), "people")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "born", "amount"}, cs.Columns())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectWhere_StructuredMode(t *testing.T) {
	mock := hookOpen(t)

	mock.ExpectQuery("SELECT id, name FROM people WHERE state = @p1").
		WithArgs("open").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(4), []byte("x")))
	mock.ExpectClose()

	rows, err := newAdapter(t).SelectWhere(context.Background(), "people", []string{"id", "name"}, "state = %s", "open")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, map[string]any{"id": int64(4), "name": "x"}, rows[0].Map())
	require.NoError(t, mock.ExpectationsWereMet())
}
