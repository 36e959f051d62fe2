package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/mdouchement/batchprint/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintEntryContentRoundTrip(t *testing.T) {
	var entry model.PrintEntry
	entry.SetContentBytes([]byte("hello"))
	assert.Equal(t, "68656c6c6f", entry.Content)

	payload, err := entry.ContentBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), payload)
}

func TestPrintEntryJSONShape(t *testing.T) {
	entry := model.PrintEntry{
		ID:      uuid.Must(uuid.FromString("6a3a8df6-2bcd-4c8e-9c8b-6b4bb6327af2")),
		Created: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Type:    model.TypeBatch,
		Content: "6162",
	}

	payload, err := json.Marshal(entry)
	require.NoError(t, err)

	// sortingField is omitted when blank.
	assert.JSONEq(t, `{
		"id": "6a3a8df6-2bcd-4c8e-9c8b-6b4bb6327af2",
		"created": "2024-03-01T10:00:00Z",
		"type": "BATCH",
		"content": "6162"
	}`, string(payload))
}

func TestEntryTypeValid(t *testing.T) {
	assert.True(t, model.TypeSingle.Valid())
	assert.True(t, model.TypeBatch.Valid())
	assert.False(t, model.EntryType("OTHER").Valid())
}
