package record_test

import (
	"context"
	"errors"
	"regexp"
	"sync/atomic"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/syssam/record"
	"github.com/syssam/record/dialect"
	"github.com/syssam/record/dialect/sql"
)

func newMockClient(t *testing.T, name string, opts ...record.Option) (*record.Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	exec, err := sql.NewExecutor(sql.OpenDB(name, db))
	require.NoError(t, err)
	client, err := record.NewClient(exec, opts...)
	require.NoError(t, err)
	return client, mock
}

// accountType declares its columns, so no schema query is issued.
var accountType = record.Define(record.TypeConfig{
	Name:       "Account",
	Accessible: []string{"email", "role_id"},
	Columns:    []string{"id", "email", "role_id"},
})

func TestNewClient(t *testing.T) {
	t.Parallel()

	_, err := record.NewClient(nil)
	require.Error(t, err)
	assert.True(t, record.IsConfigurationError(err))
	assert.ErrorIs(t, err, record.ErrNoConnection)

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	exec, err := sql.NewExecutor(sql.OpenDB(dialect.MySQL, db))
	require.NoError(t, err)

	_, err = record.NewClient(oracleExecutor{exec})
	require.Error(t, err)
	assert.ErrorIs(t, err, record.ErrUnsupportedDialect)

	client, err := record.NewClient(exec)
	require.NoError(t, err)
	assert.Equal(t, dialect.MySQL, client.Dialect())
	assert.NotNil(t, client.Logger())
}

type oracleExecutor struct{ *sql.Executor }

func (oracleExecutor) Dialect() string { return "oracle" }

func TestStatementsMySQL(t *testing.T) {
	t.Parallel()
	client, mock := newMockClient(t, dialect.MySQL)
	ctx := context.Background()
	accounts := client.Model(accountType)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `accounts` (`email`, `role_id`) VALUES (?, ?)")).
		WithArgs("ann@example.com", 1).
		WillReturnResult(sqlmock.NewResult(5, 1))
	a, err := accounts.Create(ctx, map[string]any{"email": "ann@example.com", "role_id": 1})
	require.NoError(t, err)
	require.True(t, a.IsPersisted())
	assert.Equal(t, int64(5), a.ID())

	mock.ExpectExec(regexp.QuoteMeta("UPDATE `accounts` SET `email` = ?, `role_id` = ? WHERE `id` = ?")).
		WithArgs("bob@example.com", 1, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	a.Set("email", "bob@example.com")
	ok, err := a.Save(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `accounts` WHERE `id` = ?")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err = a.Destroy(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `accounts` ORDER BY `id` DESC LIMIT 2 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "role_id"}).
			AddRow(int64(9), []byte("z@example.com"), int64(2)).
			AddRow(int64(8), []byte("y@example.com"), nil))
	s, err := accounts.Last(ctx, 2)
	require.NoError(t, err)
	require.Len(t, s.Records, 2)
	assert.Equal(t, "z@example.com", s.Records[0].Get("email"))
	assert.Nil(t, s.Records[1].Get("role_id"))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatementsPostgres(t *testing.T) {
	t.Parallel()
	client, mock := newMockClient(t, dialect.Postgres)
	ctx := context.Background()
	accounts := client.Model(accountType)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO accounts (email, role_id) VALUES ($1, $2) RETURNING id")).
		WithArgs("ann@example.com", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	a, err := accounts.Create(ctx, map[string]any{"email": "ann@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), a.ID())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM accounts WHERE id = $1 LIMIT 1 OFFSET 0")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "role_id"}).AddRow(int64(3), "ann@example.com", nil))
	found, err := accounts.Find(ctx, 3)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "ann@example.com", found.Get("email"))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) AS num FROM accounts WHERE role_id IS NULL`)).
		WillReturnRows(sqlmock.NewRows([]string{"num"}).AddRow(int64(4)))
	n, err := accounts.Count(ctx, []string{"role_id"}, []any{nil})
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGeneratedKeyKeepsExplicitID(t *testing.T) {
	t.Parallel()
	client, mock := newMockClient(t, dialect.MySQL)
	accounts := client.Model(accountType)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `accounts` (`email`, `id`, `role_id`) VALUES (?, ?, ?)")).
		WithArgs("ann@example.com", 77, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	a := accounts.New(map[string]any{"email": "ann@example.com"})
	a.Set("id", 77)
	ok, err := a.Save(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 77, a.ID())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveReadErrorIsReturned(t *testing.T) {
	t.Parallel()
	client, mock := newMockClient(t, dialect.MySQL)
	users := client.Model(userType)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `users` WHERE `email` = ? ORDER BY `id` ASC LIMIT 1 OFFSET 0")).
		WithArgs("ann@example.com").
		WillReturnError(errors.New("connection reset"))
	u := users.New(map[string]any{"email": "ann@example.com"})
	ok, err := u.Save(context.Background())
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, record.IsQueryError(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSchemaDiscovery(t *testing.T) {
	t.Parallel()
	client, mock := newMockClient(t, dialect.MySQL)
	ctx := context.Background()
	roles := client.Model(roleType)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `roles` LIMIT 0")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `roles` (`name`) VALUES (?)")).
		WithArgs("admin").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `roles` (`name`) VALUES (?)")).
		WithArgs(nil).
		WillReturnResult(sqlmock.NewResult(2, 1))

	_, err := roles.Create(ctx, map[string]any{"name": "admin", "level": 3})
	require.NoError(t, err)
	_, err = roles.Create(ctx, nil)
	require.NoError(t, err)

	cols, err := client.Schema(ctx, roleType)
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, "id", cols[0].Name)
	assert.Equal(t, "name", cols[1].Name)
	require.NoError(t, mock.ExpectationsWereMet(), "columns are loaded once")
}

type countingProvider struct {
	calls atomic.Int32
	err   error
}

func (p *countingProvider) Columns(context.Context, string) ([]dialect.Column, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	return []dialect.Column{{Name: "id"}, {Name: "name"}}, nil
}

func TestSchemaProvider(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	p := &countingProvider{}
	client, _ := newMockClient(t, dialect.SQLite, record.WithSchemaProvider(p))
	for range 3 {
		cols, err := client.Schema(ctx, roleType)
		require.NoError(t, err)
		assert.Len(t, cols, 2)
	}
	assert.Equal(t, int32(1), p.calls.Load())

	cols, err := client.Schema(ctx, accountType)
	require.NoError(t, err)
	assert.Len(t, cols, 3)
	assert.Equal(t, int32(1), p.calls.Load(), "declared columns skip the provider")

	failing := &countingProvider{err: errors.New("boom")}
	client, _ = newMockClient(t, dialect.SQLite, record.WithSchemaProvider(failing))
	_, err = client.Schema(ctx, roleType)
	require.Error(t, err)
	assert.True(t, record.IsQueryError(err))
	_, err = client.Schema(ctx, roleType)
	require.Error(t, err)
	assert.Equal(t, int32(2), failing.calls.Load(), "failures are not cached")
}

func TestTransaction(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("Commit", func(t *testing.T) {
		client := newTestClient(t)
		roles := client.Model(roleType)
		err := client.Transaction(ctx, func(ctx context.Context) error {
			assert.True(t, client.InTransaction())
			mustCreate(t, roles, map[string]any{"name": "admin"})
			return nil
		})
		require.NoError(t, err)
		assert.False(t, client.InTransaction())
		n, err := roles.Count(ctx, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("Rollback", func(t *testing.T) {
		client := newTestClient(t)
		roles := client.Model(roleType)
		errAbort := errors.New("abort")
		err := client.Transaction(ctx, func(ctx context.Context) error {
			mustCreate(t, roles, map[string]any{"name": "admin"})
			return errAbort
		})
		assert.ErrorIs(t, err, errAbort)
		n, err := roles.Count(ctx, nil, nil)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("Panic", func(t *testing.T) {
		client := newTestClient(t)
		roles := client.Model(roleType)
		assert.Panics(t, func() {
			_ = client.Transaction(ctx, func(ctx context.Context) error {
				mustCreate(t, roles, map[string]any{"name": "admin"})
				panic("boom")
			})
		})
		assert.False(t, client.InTransaction())
		n, err := roles.Count(ctx, nil, nil)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("Manual", func(t *testing.T) {
		client := newTestClient(t)
		roles := client.Model(roleType)
		require.NoError(t, client.Begin(ctx))
		assert.ErrorIs(t, client.Begin(ctx), record.ErrTxStarted)
		mustCreate(t, roles, map[string]any{"name": "admin"})
		require.NoError(t, client.Rollback())
		assert.ErrorIs(t, client.Commit(), sql.ErrNoTx)

		n, err := roles.Count(ctx, nil, nil)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestClientLogger(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zapcore.DebugLevel)
	client, mock := newMockClient(t, dialect.MySQL, record.WithLogger(zap.New(core).Sugar()))
	notes := client.Model(record.Define(record.TypeConfig{
		Name:    "Note",
		Columns: []string{"id", "body"},
		Hooks: record.Hooks{
			BeforeSave: func(context.Context, *record.Record) bool { return false },
		},
	}))

	ok, err := notes.New(nil).Save(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	entries := logs.FilterMessage("hook cancelled operation").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "before_save", entries[0].ContextMap()["hook"])

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `notes` WHERE `body` = ?")).
		WithArgs("x").
		WillReturnError(errors.New("Error 1451: Cannot delete or update a parent row: a foreign key constraint fails"))
	_, err = notes.DestroyBy(context.Background(), []string{"body"}, []any{"x"})
	require.Error(t, err)
	var perr *record.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, sql.KindForeignKey, perr.Kind)
}
