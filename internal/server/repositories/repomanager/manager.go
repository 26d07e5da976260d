// Package repomanager opens a storage backend and vends the repositories
// bound to it.
package repomanager

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/tasks"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/users"
)

// Repositories groups the repositories handed to a unit of work.
type Repositories struct {
	Users users.Repository
	Tasks tasks.Repository
}

type RepositoryManager interface {
	Users() users.Repository
	Tasks() tasks.Repository
	// WithTx runs fn with repositories bound to a single transaction when the
	// backend supports one, and to the plain store otherwise.
	WithTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error
	// RunMigrations prepares schema or indexes.
	RunMigrations(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Open picks a backend from the scheme of dsn: postgres:// or postgresql://,
// mongodb:// or mongodb+srv://, and memory://.
func Open(ctx context.Context, dsn string) (RepositoryManager, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database string: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql":
		m, err := NewPostgresRepositoryManager(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return m, nil
	case "mongodb", "mongodb+srv":
		m, err := NewMongoRepositoryManager(ctx, dsn, databaseName(u))
		if err != nil {
			return nil, err
		}
		return m, nil
	case "memory":
		return NewMemoryRepositoryManager(), nil
	}
	return nil, fmt.Errorf("unsupported database scheme %q", u.Scheme)
}

// DefaultMongoDatabase is used when the mongodb URI names no database.
const DefaultMongoDatabase = "gatekeeper"

func databaseName(u *url.URL) string {
	if name := strings.Trim(u.Path, "/"); name != "" {
		return name
	}
	return DefaultMongoDatabase
}
