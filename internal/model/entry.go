package model

import (
	"encoding/hex"
	"time"

	"github.com/gofrs/uuid"
)

// An EntryType discriminates single notices from merged batches.
type EntryType string

const (
	// TypeSingle is one rendered notice.
	TypeSingle EntryType = "SINGLE"
	// TypeBatch is a merge of SINGLE entries.
	TypeBatch EntryType = "BATCH"
)

// Valid returns true for the known entry types.
func (t EntryType) Valid() bool {
	return t == TypeSingle || t == TypeBatch
}

// A PrintEntry represents a stored print document and the rendered API response.
// Created is naive-UTC: persisted without offset and always read back as UTC.
type PrintEntry struct {
	ID           uuid.UUID `json:"id"`
	Created      time.Time `json:"created"`
	Type         EntryType `json:"type"`
	SortingField string    `json:"sortingField,omitempty"`
	Content      string    `json:"content"`
}

// ContentBytes decodes the hex-encoded document payload.
func (e *PrintEntry) ContentBytes() ([]byte, error) {
	return hex.DecodeString(e.Content)
}

// SetContentBytes stores the document payload as a printable hex string.
func (e *PrintEntry) SetContentBytes(payload []byte) {
	e.Content = hex.EncodeToString(payload)
}
