package query

import (
	"context"
	"errors"
	"testing"

	"infraction-insights/internal/common/database"
	apperrors "infraction-insights/internal/common/errors"
	"infraction-insights/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockBackend(t *testing.T, driver string) (*SQLBackend, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewSQLBackend(&database.SQLClient{DB: db, Driver: driver}), mock
}

func TestSQLBackendExecute(t *testing.T) {
	backend, mock := newMockBackend(t, "sqlite")

	mock.ExpectQuery(`SELECT "UF", COUNT`).WillReturnRows(
		sqlmock.NewRows([]string{"UF", "n"}).
			AddRow("PA", "120").
			AddRow("MT", "80").
			AddRow(nil, "3"),
	)

	result, err := backend.Execute(context.Background(), `SELECT "UF", COUNT(*) AS n FROM "ibama_infracao" GROUP BY "UF" LIMIT 10`)
	require.NoError(t, err)

	assert.Equal(t, []string{"UF", "n"}, result.Columns)
	require.Len(t, result.Rows, 3)
	assert.Equal(t, []string{"PA", "120"}, result.Rows[0])
	assert.Equal(t, []string{"", "3"}, result.Rows[2], "NULL renders as empty text")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLBackendExecuteError(t *testing.T) {
	backend, mock := newMockBackend(t, "sqlite")
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("no such table: ibama_infracao"))

	_, err := backend.Execute(context.Background(), `SELECT * FROM "ibama_infracao" LIMIT 1`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such table")
}

func TestSQLBackendDescribePostgres(t *testing.T) {
	backend, mock := newMockBackend(t, "postgres")

	mock.ExpectQuery("information_schema.columns").
		WithArgs("ibama_infracao").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type"}).
			AddRow("NUM_AUTO_INFRACAO", "text").
			AddRow("VAL_AUTO_INFRACAO", "text"))

	columns, err := backend.Describe(context.Background(), "ibama_infracao")
	require.NoError(t, err)
	require.Len(t, columns, 2)
	assert.Equal(t, Column{Name: "NUM_AUTO_INFRACAO", Type: "text"}, columns[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLBackendDescribeSQLite(t *testing.T) {
	backend, mock := newMockBackend(t, "sqlite")

	mock.ExpectQuery("pragma_table_info").
		WithArgs("ibama_infracao").
		WillReturnRows(sqlmock.NewRows([]string{"name", "type"}).
			AddRow("UF", "TEXT"))

	columns, err := backend.Describe(context.Background(), "ibama_infracao")
	require.NoError(t, err)
	require.Len(t, columns, 1)
	assert.Equal(t, "UF", columns[0].Name)
}

func TestExecutorClassifiesFailure(t *testing.T) {
	backend, mock := newMockBackend(t, "sqlite")
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection refused"))

	executor := NewExecutor(backend, logger.NewNoOpLogger())
	result, stdErr := executor.Execute(context.Background(), `SELECT 1`)

	require.NotNil(t, stdErr)
	assert.Equal(t, apperrors.ErrCodeConnectivity, stdErr.Code)
	assert.True(t, result.Empty(), "failure always comes with an empty result")
}

func TestExecutorCleanEmptyResult(t *testing.T) {
	backend, mock := newMockBackend(t, "sqlite")
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"UF"}))

	executor := NewExecutor(backend, logger.NewNoOpLogger())
	result, stdErr := executor.Execute(context.Background(), `SELECT "UF" FROM "ibama_infracao" WHERE 1=0 LIMIT 1`)

	assert.Nil(t, stdErr)
	assert.True(t, result.Empty())
}
