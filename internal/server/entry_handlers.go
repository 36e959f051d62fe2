package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofrs/uuid"
	"github.com/labstack/echo/v4"
	"github.com/mdouchement/batchprint/internal/batch"
	"github.com/mdouchement/batchprint/internal/bperror"
	"github.com/mdouchement/batchprint/internal/document"
	"github.com/mdouchement/batchprint/internal/model"
	"github.com/sirupsen/logrus"
)

// print contains all print entry handlers.
type print struct {
	pipeline *document.Pipeline
	logger   logrus.FieldLogger
}

///// List
////
//

// List streams the filtered listing as chunked JSON. Items are emitted row by
// row, the total count arrives in the trailing resultInfo object.
func (h *print) List(c echo.Context) error {
	query := c.QueryParam("query")
	offset, err := intParam(c, "offset", 0)
	if err != nil {
		return err
	}
	limit, err := intParam(c, "limit", 10)
	if err != nil {
		return err
	}

	response := c.Response()
	response.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return currentStorage(c).StreamEntries(c.Request().Context(), response, query, offset, limit)
}

///// Create
////
//

// Create persists a full print entry provided by the client.
func (h *print) Create(c echo.Context) error {
	entry, err := bindEntry(c)
	if err != nil {
		return err
	}

	if err := currentStorage(c).CreateEntry(c.Request().Context(), entry); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

///// Get
////
//

// Get returns one print entry.
func (h *print) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	entry, err := currentStorage(c).FindEntry(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entry)
}

///// Update
////
//

// Update replaces the full row of an entry. The path identifier must match
// the body's identifier.
func (h *print) Update(c echo.Context) error {
	entry, err := bindEntry(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if id != entry.ID {
		return bperror.Entry("id mismatch")
	}

	if err := currentStorage(c).UpdateEntry(c.Request().Context(), entry); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

///// Delete
////
//

// Delete removes one print entry. Entries are independent, nothing cascades.
func (h *print) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	if err := currentStorage(c).DeleteEntry(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

///// SaveMail
////
//

// SaveMail renders a notification into a SINGLE print entry. Unlike the batch
// trigger, the entry is persisted before responding.
func (h *print) SaveMail(c echo.Context) error {
	var message model.Message
	if err := c.Bind(&message); err != nil {
		return bperror.Entry("could not get message params")
	}

	entry := &model.PrintEntry{
		ID:           uuid.Must(uuid.NewV4()),
		Created:      time.Now().UTC(),
		Type:         model.TypeSingle,
		SortingField: message.To,
	}
	entry.SetContentBytes(h.pipeline.Render(message.Body))

	if err := currentStorage(c).CreateEntry(c.Request().Context(), entry); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"id": entry.ID})
}

///// CreateBatch
////
//

// CreateBatch triggers the batch merge and acknowledges immediately. The
// selection/merge/persist pipeline runs detached, failures are only logged.
func (h *print) CreateBatch(c echo.Context) error {
	creator := batch.NewCreator(currentStorage(c), h.pipeline, h.logger)
	creator.Process()
	return c.NoContent(http.StatusNoContent)
}

//
// Params helpers.
//

func bindEntry(c echo.Context) (*model.PrintEntry, error) {
	var entry model.PrintEntry
	if err := c.Bind(&entry); err != nil {
		return nil, bperror.Entry("could not get entry params")
	}
	if entry.ID == uuid.Nil {
		return nil, bperror.Entry("id is required")
	}
	if entry.Created.IsZero() {
		return nil, bperror.Entry("created is required")
	}
	return &entry, nil
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		return uuid.Nil, bperror.Entryf("invalid identifier: %s", c.Param("id"))
	}
	return id, nil
}

func intParam(c echo.Context, name string, fallback int) (int, error) {
	value := c.QueryParam(name)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, bperror.Entryf("invalid %s: %s", name, value)
	}
	return n, nil
}
