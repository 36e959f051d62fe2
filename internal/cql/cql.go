// Package cql translates the restricted query language used by the listing
// and batch-eligibility endpoints into parameterized SQL fragments.
//
// The grammar is deliberately small:
//
//	expression := [clause {"and" clause}] ["sortby" field...]
//	clause     := field op value
//	op         := = | == | <> | < | > | <= | >=
//
// Values are bare tokens or double-quoted strings. A sort field may carry the
// /sort.descending modifier.
package cql

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/mdouchement/batchprint/internal/bperror"
)

// A Kind classifies how a field's values are typed and compared.
type Kind int

const (
	// KindUUID matches an identifier exactly.
	KindUUID Kind = iota
	// KindText matches text, exactly with == or with * masking with =.
	KindText
	// KindTimestamp supports =, <, >, <= and >= on naive-UTC timestamps.
	KindTimestamp
)

// A Field describes one queryable field of the whitelist.
type Field struct {
	// Column is the storage column name. Empty means same as the field name.
	Column string
	Kind   Kind
	// ExactOnly disables masking for text fields.
	ExactOnly bool
}

// A Definition is the whitelist of queryable fields.
type Definition struct {
	fields map[string]Field
	names  map[string]string // lowercase -> declared name
}

// NewDefinition returns an empty field whitelist.
func NewDefinition() *Definition {
	return &Definition{
		fields: map[string]Field{},
		names:  map[string]string{},
	}
}

// AddField registers a queryable field under the given name.
func (d *Definition) AddField(name string, f Field) *Definition {
	if f.Column == "" {
		f.Column = name
	}
	d.fields[name] = f
	d.names[strings.ToLower(name)] = name
	return d
}

func (d *Definition) lookup(name string) (Field, error) {
	declared, ok := d.names[strings.ToLower(name)]
	if !ok {
		return Field{}, bperror.Entryf("unsupported field: %s", name)
	}
	return d.fields[declared], nil
}

type clause struct {
	column string
	op     string
	value  interface{}
	like   bool
}

type sortKey struct {
	column     string
	descending bool
}

// A Query is a parsed expression, ready to be rendered as SQL fragments.
type Query struct {
	clauses []clause
	sorts   []sortKey
}

// Parse validates the expression against the whitelist and returns the
// translated query. It fails with an entry error before any storage access
// when a field is unknown or an operator is not supported for its type.
func (d *Definition) Parse(expression string) (*Query, error) {
	tokens, err := lex(expression)
	if err != nil {
		return nil, err
	}

	q := &Query{}

	// Split off the sortby suffix first.
	filter := tokens
	for i, tok := range tokens {
		if tok.kind == tokenBare && strings.EqualFold(tok.text, "sortby") {
			filter = tokens[:i]
			if err := d.parseSort(q, tokens[i+1:]); err != nil {
				return nil, err
			}
			break
		}
	}

	for len(filter) > 0 {
		if len(filter) < 3 {
			return nil, bperror.Entry("incomplete query clause")
		}
		if err := d.parseClause(q, filter[0], filter[1], filter[2]); err != nil {
			return nil, err
		}
		filter = filter[3:]
		if len(filter) == 0 {
			break
		}
		if filter[0].kind != tokenBare || !strings.EqualFold(filter[0].text, "and") {
			return nil, bperror.Entryf("expected 'and', got: %s", filter[0].text)
		}
		filter = filter[1:]
	}
	return q, nil
}

func (d *Definition) parseSort(q *Query, tokens []token) error {
	if len(tokens) == 0 {
		return bperror.Entry("sortby without fields")
	}
	for _, tok := range tokens {
		if tok.kind != tokenBare {
			return bperror.Entryf("invalid sort field: %s", tok.text)
		}
		name, modifier, _ := strings.Cut(tok.text, "/")
		field, err := d.lookup(name)
		if err != nil {
			return err
		}
		key := sortKey{column: field.Column}
		switch modifier {
		case "", "sort.ascending":
		case "sort.descending":
			key.descending = true
		default:
			return bperror.Entryf("unsupported sort modifier: %s", modifier)
		}
		q.sorts = append(q.sorts, key)
	}
	return nil
}

func (d *Definition) parseClause(q *Query, name, op, value token) error {
	if name.kind != tokenBare {
		return bperror.Entryf("expected field name, got: %s", name.text)
	}
	if op.kind != tokenOperator {
		return bperror.Entryf("expected operator, got: %s", op.text)
	}
	field, err := d.lookup(name.text)
	if err != nil {
		return err
	}

	c := clause{column: field.Column, op: "="}
	switch field.Kind {
	case KindUUID:
		if op.text != "=" && op.text != "==" {
			return bperror.Entryf("unsupported operator %s for field %s", op.text, name.text)
		}
		id, err := uuid.FromString(value.text)
		if err != nil {
			return bperror.Entryf("invalid identifier: %s", value.text)
		}
		c.value = id.String()
	case KindText:
		switch op.text {
		case "==":
			c.value = value.text
		case "=":
			if !field.ExactOnly && hasMask(value.text) {
				c.like = true
				c.value = maskToLike(value.text)
			} else {
				c.value = value.text
			}
		default:
			return bperror.Entryf("unsupported operator %s for field %s", op.text, name.text)
		}
	case KindTimestamp:
		switch op.text {
		case "=", "<", ">", "<=", ">=":
		default:
			return bperror.Entryf("unsupported operator %s for field %s", op.text, name.text)
		}
		t, err := parseTimestamp(value.text)
		if err != nil {
			return bperror.Entryf("invalid timestamp: %s", value.text)
		}
		c.op = op.text
		c.value = t
	}
	q.clauses = append(q.clauses, c)
	return nil
}

// WhereClause renders the filter as a parameterized SQL fragment, numbering
// placeholders from start. An expression with no filter matches all rows.
func (q *Query) WhereClause(start int) (string, []interface{}) {
	if len(q.clauses) == 0 {
		return "1 = 1", nil
	}

	var sb strings.Builder
	args := make([]interface{}, 0, len(q.clauses))
	for i, c := range q.clauses {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		op := c.op
		if c.like {
			op = "LIKE"
		}
		fmt.Fprintf(&sb, "%s %s $%d", c.column, op, start+i)
		args = append(args, c.value)
	}
	return sb.String(), args
}

// OrderByClause renders the sortby suffix as an ORDER BY column list, or ""
// when no sort was requested (result order is then storage-defined).
func (q *Query) OrderByClause() string {
	if len(q.sorts) == 0 {
		return ""
	}
	parts := make([]string, 0, len(q.sorts))
	for _, s := range q.sorts {
		if s.descending {
			parts = append(parts, s.column+" DESC")
		} else {
			parts = append(parts, s.column)
		}
	}
	return strings.Join(parts, ", ")
}

func hasMask(s string) bool {
	return strings.ContainsAny(s, "*?")
}

// maskToLike converts CQL masking (* and ?) to SQL LIKE wildcards, escaping
// the characters LIKE treats specially.
func maskToLike(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '*':
			sb.WriteByte('%')
		case '?':
			sb.WriteByte('_')
		case '%', '_', '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q", s)
}
