package database

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mdouchement/batchprint/internal/bperror"
	"github.com/mdouchement/batchprint/internal/cql"
	"github.com/mdouchement/batchprint/internal/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const entryColumns = "id, created, type, sorting_field, content"

type pg struct {
	db     *sql.DB
	schema string
	table  string
	logger logrus.FieldLogger
}

func newPG(db *sql.DB, schema string, logger logrus.FieldLogger) *pg {
	return &pg{
		db:     db,
		schema: schema,
		table:  schema + ".printing",
		logger: logger,
	}
}

// entryDefinition is the whitelist of queryable fields. sortingField is
// exposed under its API name but stored in the sorting_field column.
func entryDefinition() *cql.Definition {
	return cql.NewDefinition().
		AddField("id", cql.Field{Kind: cql.KindUUID}).
		AddField("type", cql.Field{Kind: cql.KindText, ExactOnly: true}).
		AddField("created", cql.Field{Kind: cql.KindTimestamp}).
		AddField("sortingField", cql.Field{Kind: cql.KindText, Column: "sorting_field"})
}

// Init provisions the tenant schema and table. Safe to run repeatedly.
func (c *pg) Init(ctx context.Context) error {
	statements := []string{
		"CREATE SCHEMA IF NOT EXISTS " + c.schema,
		"CREATE TABLE IF NOT EXISTS " + c.table +
			" (id uuid NOT NULL PRIMARY KEY," +
			" created TIMESTAMP NOT NULL," +
			" type VARCHAR NOT NULL," +
			" sorting_field VARCHAR NULL," +
			" content VARCHAR NOT NULL)",
	}
	for _, statement := range statements {
		if _, err := c.db.ExecContext(ctx, statement); err != nil {
			return errors.Wrap(err, "could not init tenant namespace")
		}
	}
	return nil
}

func (c *pg) CreateEntry(ctx context.Context, entry *model.PrintEntry) error {
	if entry.Content == "" {
		return bperror.Entry("content is required")
	}
	if !entry.Type.Valid() {
		return bperror.Entryf("invalid entry type: %s", entry.Type)
	}

	res, err := c.db.ExecContext(ctx,
		"INSERT INTO "+c.table+" (id, created, type, sorting_field, content) VALUES ($1, $2, $3, $4, $5)",
		entry.ID.String(), entry.Created.UTC(), string(entry.Type), nullable(entry.SortingField), entry.Content)
	if err != nil {
		if isUniqueViolation(err) {
			return bperror.Entry("entry already exists")
		}
		return errors.Wrap(err, "could not create entry")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "could not create entry")
	}
	if n == 0 {
		return bperror.Entry("failed to create")
	}
	return nil
}

func (c *pg) FindEntry(ctx context.Context, id uuid.UUID) (*model.PrintEntry, error) {
	row := c.db.QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM "+c.table+" WHERE id = $1", id.String())

	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, bperror.NotFound("entry not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not find entry")
	}
	return entry, nil
}

// UpdateEntry replaces all columns of the row keyed by the entry's id. A
// uniqueness violation during the write is collapsed into not-found: the row
// identity changed concurrently. Legacy contract, kept on purpose.
func (c *pg) UpdateEntry(ctx context.Context, entry *model.PrintEntry) error {
	if entry.Content == "" {
		return bperror.Entry("content is required")
	}
	if !entry.Type.Valid() {
		return bperror.Entryf("invalid entry type: %s", entry.Type)
	}

	res, err := c.db.ExecContext(ctx,
		"UPDATE "+c.table+" SET created = $2, type = $3, sorting_field = $4, content = $5 WHERE id = $1",
		entry.ID.String(), entry.Created.UTC(), string(entry.Type), nullable(entry.SortingField), entry.Content)
	if err != nil {
		if isUniqueViolation(err) {
			return bperror.NotFound("entry not found")
		}
		return errors.Wrap(err, "could not update entry")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "could not update entry")
	}
	if n == 0 {
		return bperror.NotFound("entry not found")
	}
	return nil
}

func (c *pg) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	res, err := c.db.ExecContext(ctx, "DELETE FROM "+c.table+" WHERE id = $1", id.String())
	if err != nil {
		return errors.Wrap(err, "could not delete entry")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "could not delete entry")
	}
	if n == 0 {
		return bperror.NotFound("entry not found")
	}
	return nil
}

func (c *pg) FindEntriesByQuery(ctx context.Context, query string, offset, limit int) ([]*model.PrintEntry, error) {
	sel, err := c.buildSelect(query, offset, limit)
	if err != nil {
		return nil, err
	}

	rows, err := c.db.QueryContext(ctx, sel.query, sel.args...)
	if err != nil {
		return nil, errors.Wrap(err, "could not query entries")
	}
	defer rows.Close()

	var results []*model.PrintEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, errors.Wrap(err, "could not scan entry")
		}
		results = append(results, entry)
	}
	return results, errors.Wrap(rows.Err(), "could not read entries")
}

func (c *pg) Close() error {
	return c.db.Close()
}

// selectQuery carries the translated listing query and the matching count
// query sharing its filter (without limit/offset).
type selectQuery struct {
	query string
	count string
	args  []interface{}
}

func (c *pg) buildSelect(query string, offset, limit int) (*selectQuery, error) {
	q, err := entryDefinition().Parse(query)
	if err != nil {
		return nil, err
	}

	where, args := q.WhereClause(1)
	from := c.table + " WHERE " + where

	sel := "SELECT " + entryColumns + " FROM " + from
	if orderBy := q.OrderByClause(); orderBy != "" {
		sel += " ORDER BY " + orderBy
	}
	sel += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	return &selectQuery{
		query: sel,
		count: "SELECT COUNT(*) FROM " + from,
		args:  args,
	}, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*model.PrintEntry, error) {
	var entry model.PrintEntry
	var sortingField sql.NullString
	var entryType string

	err := row.Scan(&entry.ID, &entry.Created, &entryType, &sortingField, &entry.Content)
	if err != nil {
		return nil, err
	}

	// Stored timestamps carry no offset and are always interpreted as UTC.
	entry.Created = entry.Created.UTC()
	entry.Type = model.EntryType(entryType)
	entry.SortingField = sortingField.String
	return &entry, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	var pgerr *pgconn.PgError
	return stderrors.As(err, &pgerr) && pgerr.Code == "23505"
}
