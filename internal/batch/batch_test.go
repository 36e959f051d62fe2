package batch

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/mdouchement/batchprint/internal/cql"
	"github.com/mdouchement/batchprint/internal/document"
	"github.com/mdouchement/batchprint/internal/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStorage struct {
	queries []string
	listed  []*model.PrintEntry
	listErr error
	created []*model.PrintEntry
}

func (s *fakeStorage) Init(context.Context) error { return nil }

func (s *fakeStorage) CreateEntry(_ context.Context, entry *model.PrintEntry) error {
	s.created = append(s.created, entry)
	return nil
}

func (s *fakeStorage) FindEntry(context.Context, uuid.UUID) (*model.PrintEntry, error) {
	return nil, nil
}

func (s *fakeStorage) UpdateEntry(context.Context, *model.PrintEntry) error { return nil }
func (s *fakeStorage) DeleteEntry(context.Context, uuid.UUID) error         { return nil }

func (s *fakeStorage) FindEntriesByQuery(_ context.Context, query string, offset, limit int) ([]*model.PrintEntry, error) {
	s.queries = append(s.queries, query)
	return s.listed, s.listErr
}

func (s *fakeStorage) StreamEntries(context.Context, io.Writer, string, int, int) error { return nil }
func (s *fakeStorage) Close() error                                                    { return nil }

type concatEngine struct{}

func (concatEngine) Render(html string) ([]byte, error) { return []byte(html), nil }
func (concatEngine) Merge(payloads [][]byte) ([]byte, error) {
	return bytes.Join(payloads, []byte("+")), nil
}

func newCreator(storage *fakeStorage, now time.Time) *Creator {
	logger := logrus.New()
	logger.SetOutput(bytes.NewBuffer(nil))

	c := NewCreator(storage, document.NewPipeline(concatEngine{}, logger), logger)
	c.now = func() time.Time { return now }
	return c
}

func singleEntry(content string) *model.PrintEntry {
	entry := &model.PrintEntry{
		ID:   uuid.Must(uuid.NewV4()),
		Type: model.TypeSingle,
	}
	entry.SetContentBytes([]byte(content))
	return entry
}

func TestEligibilityQuery(t *testing.T) {
	now := time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC)
	c := newCreator(&fakeStorage{}, now)

	query := c.eligibilityQuery()
	assert.Equal(t, `type="SINGLE" and created > 2024-03-02T11:55:00 sortby sortingField created`, query)

	// The synthesized filter must pass the same whitelist used by storage.
	definition := cql.NewDefinition().
		AddField("type", cql.Field{Kind: cql.KindText, ExactOnly: true}).
		AddField("created", cql.Field{Kind: cql.KindTimestamp}).
		AddField("sortingField", cql.Field{Kind: cql.KindText, Column: "sorting_field"})
	q, err := definition.Parse(query)
	require.NoError(t, err)

	_, args := q.WhereClause(1)
	require.Len(t, args, 2)
	threshold := args[1].(time.Time)
	assert.Equal(t, now.Add(-24*time.Hour-5*time.Minute), threshold)

	// Boundary: one second inside the grace margin is eligible, one second
	// outside is not.
	assert.True(t, now.Add(-24*time.Hour-5*time.Minute+time.Second).After(threshold))
	assert.False(t, now.Add(-24*time.Hour-5*time.Minute-time.Second).After(threshold))
	assert.True(t, now.Add(-23*time.Hour).After(threshold))
	assert.False(t, now.Add(-25*time.Hour).After(threshold))
}

func TestProcessCreatesBatch(t *testing.T) {
	now := time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC)
	storage := &fakeStorage{listed: []*model.PrintEntry{singleEntry("doc1"), singleEntry("doc2")}}
	c := newCreator(storage, now)

	<-c.Process()

	require.Len(t, storage.queries, 1)
	require.Len(t, storage.created, 1)

	entry := storage.created[0]
	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.Equal(t, model.TypeBatch, entry.Type)
	assert.Equal(t, now, entry.Created)

	payload, err := entry.ContentBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("doc1+doc2"), payload)
}

func TestProcessEmptyListDoesNothing(t *testing.T) {
	storage := &fakeStorage{}
	<-newCreator(storage, time.Now().UTC()).Process()

	assert.Len(t, storage.queries, 1)
	assert.Empty(t, storage.created)
}

func TestProcessSelectionFailureOnlyLogs(t *testing.T) {
	storage := &fakeStorage{listErr: errors.New("boom")}
	<-newCreator(storage, time.Now().UTC()).Process()

	assert.Empty(t, storage.created)
}

func TestProcessSuppressesEmptyMerge(t *testing.T) {
	storage := &fakeStorage{listed: []*model.PrintEntry{{ID: uuid.Must(uuid.NewV4()), Type: model.TypeSingle}}}
	<-newCreator(storage, time.Now().UTC()).Process()

	assert.Empty(t, storage.created)
}
