package document_test

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/mdouchement/batchprint/internal/document"
	"github.com/mdouchement/batchprint/internal/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

// fakeEngine records calls and returns canned payloads.
type fakeEngine struct {
	rendered []string
	merged   [][][]byte
	fail     bool
}

func (e *fakeEngine) Render(html string) ([]byte, error) {
	if e.fail {
		return nil, errors.New("renderer crashed")
	}
	e.rendered = append(e.rendered, html)
	return []byte("pdf:" + html), nil
}

func (e *fakeEngine) Merge(payloads [][]byte) ([]byte, error) {
	if e.fail {
		return nil, errors.New("merger crashed")
	}
	e.merged = append(e.merged, payloads)
	return bytes.Join(payloads, []byte("+")), nil
}

func pipeline(engine document.Engine) *document.Pipeline {
	logger := logrus.New()
	logger.SetOutput(bytes.NewBuffer(nil))
	return document.NewPipeline(engine, logger)
}

func TestRenderWrapsAndNormalizes(t *testing.T) {
	engine := &fakeEngine{}
	payload := pipeline(engine).Render("Dear&nbsp;reader<br>hello")

	assert.Equal(t, []byte("pdf:<div>Dear&#160;reader<br/>hello</div>"), payload)
	assert.Len(t, engine.rendered, 1)
}

func TestRenderBlankInputShortcut(t *testing.T) {
	engine := &fakeEngine{}
	p := pipeline(engine)

	assert.Equal(t, []byte{}, p.Render(""))
	assert.Equal(t, []byte{}, p.Render("  \n\t "))
	assert.Empty(t, engine.rendered, "engine must not be invoked")
}

func TestRenderEngineFailureDegradesToEmpty(t *testing.T) {
	payload := pipeline(&fakeEngine{fail: true}).Render("hello")
	assert.Equal(t, []byte{}, payload)
}

func entryWithContent(content string) *model.PrintEntry {
	return &model.PrintEntry{
		ID:      uuid.Must(uuid.NewV4()),
		Type:    model.TypeSingle,
		Content: content,
	}
}

func TestMergeSkipsBlankAndUndecodableEntries(t *testing.T) {
	doc1 := entryWithContent(hex.EncodeToString([]byte("doc1")))
	doc2 := entryWithContent(hex.EncodeToString([]byte("doc2")))

	engine := &fakeEngine{}
	p := pipeline(engine)
	reference := p.Merge([]*model.PrintEntry{doc1, doc2})

	merged := p.Merge([]*model.PrintEntry{
		doc1,
		doc2,
		entryWithContent(""),
		entryWithContent("zz-not-hex"),
	})
	assert.Equal(t, reference, merged)
	assert.Equal(t, []byte("doc1+doc2"), merged)
}

func TestMergeEmptyInputShortcut(t *testing.T) {
	engine := &fakeEngine{}
	p := pipeline(engine)

	assert.Equal(t, []byte{}, p.Merge(nil))
	assert.Equal(t, []byte{}, p.Merge([]*model.PrintEntry{entryWithContent("")}))
	assert.Empty(t, engine.merged, "engine must not be invoked")
}

func TestMergeEngineFailureDegradesToEmpty(t *testing.T) {
	doc := entryWithContent(hex.EncodeToString([]byte("doc")))
	merged := pipeline(&fakeEngine{fail: true}).Merge([]*model.PrintEntry{doc})
	assert.Equal(t, []byte{}, merged)
}
