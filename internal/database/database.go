package database

import (
	"context"
	"io"

	"github.com/gofrs/uuid"
	"github.com/mdouchement/batchprint/internal/model"
)

// A Resolver maps tenant keys to storage clients.
type Resolver interface {
	// Client returns the storage client for the given tenant.
	Client(tenant string) (Client, error)
}

// A Client interacts with one tenant's print entry namespace.
type Client interface {
	// Init provisions the tenant namespace (create-if-absent). It is
	// idempotent and invoked by tenant provisioning, not request traffic.
	Init(ctx context.Context) error
	// CreateEntry inserts the entry. It fails when the identifier already
	// exists or the write affects zero rows.
	CreateEntry(ctx context.Context, entry *model.PrintEntry) error
	// FindEntry returns the entry for the given id.
	FindEntry(ctx context.Context, id uuid.UUID) (*model.PrintEntry, error)
	// UpdateEntry replaces the full row keyed by the entry's id.
	UpdateEntry(ctx context.Context, entry *model.PrintEntry) error
	// DeleteEntry deletes the entry for the given id.
	DeleteEntry(ctx context.Context, id uuid.UUID) error
	// FindEntriesByQuery returns a bounded, non-streaming result list.
	FindEntriesByQuery(ctx context.Context, query string, offset, limit int) ([]*model.PrintEntry, error)
	// StreamEntries executes the query and writes the framed JSON listing
	// (items, then a resultInfo footer) to w inside one transaction.
	StreamEntries(ctx context.Context, w io.Writer, query string, offset, limit int) error
	// Close releases the tenant's connection pool.
	Close() error
}
