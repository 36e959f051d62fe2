// Package batch merges eligible SINGLE print entries into one BATCH entry.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/mdouchement/batchprint/internal/database"
	"github.com/mdouchement/batchprint/internal/document"
	"github.com/mdouchement/batchprint/internal/model"
	"github.com/sirupsen/logrus"
)

// maxCountInBatch caps how many entries one batch can combine.
const maxCountInBatch = 1000

// eligibilityWindow is 24h plus a 5 minute grace margin. The margin absorbs
// clock and processing skew at the boundary so entries created just under the
// 24 hour mark on the previous run are not missed.
const eligibilityWindow = 24*time.Hour + 5*time.Minute

// A Creator selects eligible entries, merges their documents and persists the
// result as a new BATCH entry.
type Creator struct {
	storage  database.Client
	pipeline *document.Pipeline
	logger   logrus.FieldLogger
	now      func() time.Time
}

// NewCreator returns a batch creator over the given tenant storage.
func NewCreator(storage database.Client, pipeline *document.Pipeline, logger logrus.FieldLogger) *Creator {
	return &Creator{
		storage:  storage,
		pipeline: pipeline,
		logger:   logger,
		now:      time.Now,
	}
}

// Process dispatches the batch creation and returns immediately. The work
// runs detached from the triggering request: failures are logged, never
// surfaced to the caller. The returned channel closes when the task finishes;
// nothing in the request path waits on it.
func (c *Creator) Process() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		// Detached on purpose, the triggering request's context is gone by now.
		ctx := context.Background()

		entries, err := c.storage.FindEntriesByQuery(ctx, c.eligibilityQuery(), 0, maxCountInBatch)
		if err != nil {
			c.logger.WithError(err).Error("failed to create print batch")
			return
		}
		c.processList(ctx, entries)
	}()
	return done
}

// eligibilityQuery selects SINGLE entries created inside the window, ordered
// by sorting field then creation time.
func (c *Creator) eligibilityQuery() string {
	since := c.now().UTC().Add(-eligibilityWindow)
	return fmt.Sprintf(`type="SINGLE" and created > %s sortby sortingField created`,
		since.Format("2006-01-02T15:04:05"))
}

func (c *Creator) processList(ctx context.Context, entries []*model.PrintEntry) {
	if len(entries) == 0 {
		return
	}

	merged := c.pipeline.Merge(entries)
	if len(merged) == 0 {
		c.logger.Warn("merge produced no content, batch suppressed")
		return
	}

	entry := &model.PrintEntry{
		ID:      uuid.Must(uuid.NewV4()),
		Created: c.now().UTC(),
		Type:    model.TypeBatch,
	}
	entry.SetContentBytes(merged)

	if err := c.storage.CreateEntry(ctx, entry); err != nil {
		c.logger.WithError(err).Error("failed to save print batch")
	}
}
