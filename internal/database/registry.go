package database

import (
	"database/sql"
	"regexp"
	"sync"

	// Postgres driver used through database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var tenantPattern = regexp.MustCompile(`^[a-z][a-z0-9]*$`)

// A Registry maps tenant keys to lazily-created connection pools. Pools are
// reused across requests for a tenant and released at process shutdown.
type Registry struct {
	dsn    string
	module string
	logger logrus.FieldLogger

	mu      sync.Mutex
	clients map[string]*pg
}

// NewRegistry returns a registry opening pools against the given DSN. The
// module label prefixes every tenant schema.
func NewRegistry(dsn, module string, logger logrus.FieldLogger) *Registry {
	return &Registry{
		dsn:     dsn,
		module:  module,
		logger:  logger,
		clients: map[string]*pg{},
	}
}

// Client returns the storage client for the given tenant, creating its pool
// on first use.
func (r *Registry) Client(tenant string) (Client, error) {
	if !tenantPattern.MatchString(tenant) {
		return nil, errors.Errorf("invalid tenant: %s", tenant)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if client, ok := r.clients[tenant]; ok {
		return client, nil
	}

	db, err := sql.Open("pgx", r.dsn)
	if err != nil {
		return nil, errors.Wrap(err, "could not open database connection")
	}

	client := newPG(db, r.module+"_"+tenant, r.logger.WithField("tenant", tenant))
	r.clients[tenant] = client
	return client, nil
}

// Close releases all tenant pools.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	for tenant, client := range r.clients {
		if cerr := client.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "could not close pool for tenant %s", tenant)
		}
		delete(r.clients, tenant)
	}
	return err
}
