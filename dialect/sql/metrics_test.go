package sql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/syssam/record/dialect"
)

func TestVerb(t *testing.T) {
	tests := map[string]string{
		"SELECT * FROM users":                "select",
		"  insert INTO users (a) VALUES (?)": "insert",
		"UPDATE users SET a = ?":             "update",
		"DELETE FROM users":                  "delete",
		"\nSELECT\n1":                        "select",
		"PRAGMA foreign_keys = ON":           "other",
		"":                                   "other",
	}
	for query, want := range tests {
		assert.Equal(t, want, verb(query), query)
	}
}

func TestMeteredDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	var slow []Statement
	drv := NewMeteredDriver(OpenDB(dialect.Postgres, db), m,
		WithSlowThreshold(time.Hour),
		OnSlowStatement(func(_ context.Context, st Statement) {
			slow = append(slow, st)
		}),
	)
	assert.Same(t, m, drv.Metrics())
	ctx := context.Background()

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	rows := &Rows{}
	require.NoError(t, drv.Query(ctx, "SELECT 1", []any{}, rows))
	require.NoError(t, rows.Close())

	mock.ExpectExec("DELETE").WillReturnError(errors.New("boom"))
	require.Error(t, drv.Exec(ctx, "DELETE FROM users", []any{}, nil))

	usage := m.Usage()
	assert.Equal(t, int64(1), usage.Reads)
	assert.Equal(t, int64(1), usage.Writes)
	assert.Equal(t, int64(1), usage.Failures)
	assert.Zero(t, usage.Slow)
	assert.Empty(t, slow)
	assert.Contains(t, usage.String(), "reads=1 writes=1 failures=1")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Statements.WithLabelValues("select", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Statements.WithLabelValues("delete", "error")))

	drv.SetSlowThreshold(-1)
	assert.Equal(t, time.Duration(-1), drv.SlowThreshold())
	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, drv.Exec(ctx, "UPDATE users SET a = ?", []any{1}, nil))
	require.Len(t, slow, 1)
	assert.Equal(t, "UPDATE users SET a = ?", slow[0].SQL)
	assert.Equal(t, []any{1}, slow[0].Args)
	assert.Equal(t, int64(1), m.Usage().Slow)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Slow))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMeteredDriverTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	core, logs := observer.New(zap.WarnLevel)
	drv := NewMeteredDriver(OpenDB(dialect.MySQL, db), nil,
		WithSlowThreshold(-1),
		LogSlowStatements(zap.New(core).Sugar()),
	)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := drv.Tx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Exec(ctx, "INSERT INTO t VALUES (?)", []any{1}, nil))
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())

	usage := drv.Metrics().Usage()
	assert.Equal(t, int64(1), usage.Writes)
	assert.Equal(t, int64(1), usage.Slow)
	entries := logs.FilterMessage("slow statement").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "insert", entries[0].ContextMap()["verb"])
}

func TestUsageMean(t *testing.T) {
	assert.Zero(t, Usage{}.Mean())
	assert.Equal(t, time.Second, Usage{Reads: 1, Writes: 3, Elapsed: 4 * time.Second}.Mean())
}

func TestNewMetricsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)
	_, err = NewMetrics(reg)
	assert.Error(t, err)
}
