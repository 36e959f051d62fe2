package bperror_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/mdouchement/batchprint/internal/bperror"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestTaxonomy(t *testing.T) {
	notfound := bperror.NotFound("entry not found")
	assert.True(t, bperror.IsNotFound(notfound))
	assert.False(t, bperror.IsEntry(notfound))
	assert.Equal(t, http.StatusNotFound, bperror.StatusCode(notfound))

	entry := bperror.Entryf("unsupported field: %s", "nope")
	assert.True(t, bperror.IsEntry(entry))
	assert.False(t, bperror.IsNotFound(entry))
	assert.Equal(t, http.StatusBadRequest, bperror.StatusCode(entry))
	assert.EqualError(t, entry, "unsupported field: nope")

	assert.Equal(t, http.StatusInternalServerError, bperror.StatusCode(errors.New("boom")))
	assert.False(t, bperror.IsNotFound(errors.New("boom")))
}

func TestRenderedShape(t *testing.T) {
	payload, err := json.Marshal(bperror.NotFound("entry not found"))
	assert.NoError(t, err)
	assert.JSONEq(t, `{"error":{"message":"entry not found"}}`, string(payload))
}
