package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

// streamFetchSize bounds server-side and client-side memory regardless of the
// result size.
const streamFetchSize = 100

const streamCursor = "entries_stream"

type (
	streamDiagnostic struct {
		Message string `json:"message"`
	}

	streamResultInfo struct {
		TotalRecords *int               `json:"totalRecords,omitempty"`
		Diagnostics  []streamDiagnostic `json:"diagnostics"`
	}
)

// StreamEntries emits the listing as one JSON document: an items sequence
// written row by row from a server-side cursor, then a resultInfo footer with
// the total count computed by the same filter inside the same read-only
// transaction. Once items have been written, failures no longer surface as
// errors: they are downgraded to a diagnostics message and the framing is
// still closed so the payload stays well-formed. The transaction is committed
// and the connection released on every exit path.
func (c *pg) StreamEntries(ctx context.Context, w io.Writer, query string, offset, limit int) error {
	sel, err := c.buildSelect(query, offset, limit)
	if err != nil {
		return err
	}

	conn, err := c.db.Conn(ctx)
	if err != nil {
		return errors.Wrap(err, "could not get connection")
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return errors.Wrap(err, "could not begin transaction")
	}
	defer func() {
		if err := tx.Commit(); err != nil {
			c.logger.WithError(err).Error("could not commit stream transaction")
		}
	}()

	if _, err = tx.ExecContext(ctx, "DECLARE "+streamCursor+" NO SCROLL CURSOR FOR "+sel.query, sel.args...); err != nil {
		// Nothing has been written yet, the caller can still render an error.
		return errors.Wrap(err, "could not open cursor")
	}

	if _, err = io.WriteString(w, `{"items":[`); err != nil {
		return errors.Wrap(err, "could not write response")
	}

	diagnostic := c.streamItems(ctx, tx, w)

	info := streamResultInfo{Diagnostics: []streamDiagnostic{}}
	if diagnostic == "" {
		var total int
		if err = tx.QueryRowContext(ctx, sel.count, sel.args...).Scan(&total); err != nil {
			c.logger.WithError(err).Error("count query failed")
			diagnostic = err.Error()
		} else {
			info.TotalRecords = &total
		}
	}
	if diagnostic != "" {
		info.Diagnostics = append(info.Diagnostics, streamDiagnostic{Message: diagnostic})
	}

	footer, err := json.Marshal(info)
	if err != nil {
		return errors.Wrap(err, "could not encode result info")
	}
	_, err = io.WriteString(w, `],"resultInfo":`+string(footer)+"}")
	return errors.Wrap(err, "could not write response")
}

// streamItems drains the cursor in fixed windows, emitting one serialized
// entry per row. It returns a diagnostic message instead of an error: the
// response is already committed when a failure can occur here.
func (c *pg) streamItems(ctx context.Context, tx *sql.Tx, w io.Writer) string {
	first := true
	for {
		n, err := c.streamWindow(ctx, tx, w, &first)
		if err != nil {
			c.logger.WithError(err).Error("stream error")
			return err.Error()
		}
		if n < streamFetchSize {
			return ""
		}
	}
}

func (c *pg) streamWindow(ctx context.Context, tx *sql.Tx, w io.Writer, first *bool) (int, error) {
	rows, err := tx.QueryContext(ctx, "FETCH "+strconv.Itoa(streamFetchSize)+" FROM "+streamCursor)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return n, err
		}
		payload, err := json.Marshal(entry)
		if err != nil {
			return n, err
		}
		if !*first {
			if _, err = io.WriteString(w, ","); err != nil {
				return n, err
			}
		}
		*first = false
		if _, err = w.Write(payload); err != nil {
			return n, err
		}
		n++
	}
	return n, rows.Err()
}
