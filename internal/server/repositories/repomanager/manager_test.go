package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp), sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestOpen_Memory(t *testing.T) {
	m, err := Open(context.Background(), "memory://")
	require.NoError(t, err)
	assert.IsType(t, &MemoryRepositoryManager{}, m)
	require.NoError(t, m.RunMigrations(context.Background()))
	require.NoError(t, m.Ping(context.Background()))
	require.NoError(t, m.Close(context.Background()))
}

func TestOpen_UnsupportedScheme(t *testing.T) {
	_, err := Open(context.Background(), "mysql://root@localhost/db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database scheme")
}

func TestOpen_Postgres(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectPing()

	orig := sqlOpen
	sqlOpen = func(driver, dsn string) (*sql.DB, error) {
		assert.Equal(t, "pgx", driver)
		assert.Equal(t, "postgresql://u@h/db", dsn)
		return db, nil
	}
	defer func() { sqlOpen = orig }()

	m, err := Open(context.Background(), "postgresql://u@h/db")
	require.NoError(t, err)
	assert.IsType(t, &PostgresRepositoryManager{}, m)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen_PostgresPingFails(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectPing().WillReturnError(errors.New("refused"))
	mock.ExpectClose()

	orig := sqlOpen
	sqlOpen = func(string, string) (*sql.DB, error) { return db, nil }
	defer func() { sqlOpen = orig }()

	_, err := Open(context.Background(), "postgres://u@h/db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db ping error")
}

func TestDatabaseName(t *testing.T) {
	u, _ := url.Parse("mongodb://localhost:27017/accounts?retryWrites=true")
	assert.Equal(t, "accounts", databaseName(u))

	u, _ = url.Parse("mongodb://localhost:27017")
	assert.Equal(t, DefaultMongoDatabase, databaseName(u))
}

func TestPostgres_WithTxCommits(t *testing.T) {
	db, mock := newDB(t)
	m := NewPostgresRepositoryManagerFromDB(db)

	mock.ExpectBegin()
	mock.ExpectExec(`^DELETE\s+FROM\s+tasks$`).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`^DELETE\s+FROM\s+users$`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := m.WithTx(context.Background(), func(ctx context.Context, r Repositories) error {
		if _, err := r.Tasks.DeleteAll(ctx); err != nil {
			return err
		}
		_, err := r.Users.DeleteAll(ctx)
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_WithTxRollsBack(t *testing.T) {
	db, mock := newDB(t)
	m := NewPostgresRepositoryManagerFromDB(db)

	mock.ExpectBegin()
	mock.ExpectExec(`^DELETE\s+FROM\s+tasks$`).WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := m.WithTx(context.Background(), func(ctx context.Context, r Repositories) error {
		_, err := r.Tasks.DeleteAll(ctx)
		return err
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Factories(t *testing.T) {
	db, _ := newDB(t)
	m := NewPostgresRepositoryManagerFromDB(db)
	assert.NotNil(t, m.Users())
	assert.NotNil(t, m.Tasks())
}

func TestRunMigrations_Success(t *testing.T) {
	db, _ := newDB(t)

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if dir != "." {
			return errors.New("unexpected dir")
		}
		return nil
	}
	defer func() { gooseUpContext = orig }()

	require.NoError(t, NewPostgresRepositoryManagerFromDB(db).RunMigrations(context.Background()))
}

func TestRunMigrations_Error(t *testing.T) {
	db, _ := newDB(t)

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	err := NewPostgresRepositoryManagerFromDB(db).RunMigrations(context.Background())
	assert.EqualError(t, err, "boom")
}

func TestMemory_WithTxSharesStores(t *testing.T) {
	m := NewMemoryRepositoryManager()
	ctx := context.Background()

	err := m.WithTx(ctx, func(ctx context.Context, r Repositories) error {
		u, err := r.Users.Create(ctx, &models.User{Username: "a", Email: "a@x.com"})
		if err != nil {
			return err
		}
		_, err = r.Tasks.Create(ctx, &models.Task{Content: "c", UserID: u.ID})
		return err
	})
	require.NoError(t, err)

	u, err := m.Users().GetByUsername(ctx, "a")
	require.NoError(t, err)
	list, err := m.Tasks().ListByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
