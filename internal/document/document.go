// Package document renders notice bodies into print payloads and merges
// payloads into combined documents. The PDF engines themselves are consumed
// through the narrow Engine interface.
package document

import (
	"strings"

	"github.com/mdouchement/batchprint/internal/model"
	"github.com/sirupsen/logrus"
)

// An Engine produces and combines document payloads.
type Engine interface {
	// Render turns an HTML document into a paginated document payload.
	Render(html string) ([]byte, error)
	// Merge combines the payloads, in order, into one document.
	Merge(payloads [][]byte) ([]byte, error)
}

// A Pipeline wraps an engine with the input normalization and degradation
// rules of the print server. Engine failures never propagate: they are logged
// and converted to an empty payload.
type Pipeline struct {
	engine Engine
	logger logrus.FieldLogger
}

// NewPipeline returns a pipeline over the given engine.
func NewPipeline(engine Engine, logger logrus.FieldLogger) *Pipeline {
	return &Pipeline{engine: engine, logger: logger}
}

// entities maps named character references to their numeric form, together
// with the self-closing line-break rewrite. Applied in one pass, so the
// substitutions cannot compound.
var entities = strings.NewReplacer(
	"<br>", "<br/>",
	"&nbsp;", "&#160;",
	"&copy;", "&#169;",
	"&reg;", "&#174;",
	"&deg;", "&#176;",
	"&middot;", "&#183;",
	"&laquo;", "&#171;",
	"&raquo;", "&#187;",
	"&ndash;", "&#8211;",
	"&mdash;", "&#8212;",
	"&lsquo;", "&#8216;",
	"&rsquo;", "&#8217;",
	"&ldquo;", "&#8220;",
	"&rdquo;", "&#8221;",
	"&hellip;", "&#8230;",
	"&trade;", "&#8482;",
	"&euro;", "&#8364;",
	"&pound;", "&#163;",
	"&cent;", "&#162;",
	"&sect;", "&#167;",
)

// Render normalizes the notice body and hands it to the engine. A blank body
// yields empty bytes without invoking the engine.
func (p *Pipeline) Render(body string) []byte {
	if strings.TrimSpace(body) == "" {
		return []byte{}
	}

	html := "<div>" + entities.Replace(body) + "</div>"
	payload, err := p.engine.Render(html)
	if err != nil {
		p.logger.WithError(err).Error("error creating document")
		return []byte{}
	}
	return payload
}

// Merge combines the entries' payloads in order. Entries with blank or
// undecodable content are skipped with a log, they never fail the whole
// merge. An empty input yields empty bytes without invoking the engine.
func (p *Pipeline) Merge(entries []*model.PrintEntry) []byte {
	payloads := make([][]byte, 0, len(entries))
	for _, entry := range entries {
		if strings.TrimSpace(entry.Content) == "" {
			continue
		}
		payload, err := entry.ContentBytes()
		if err != nil {
			p.logger.WithError(err).WithField("id", entry.ID).Error("failed to merge entry")
			continue
		}
		payloads = append(payloads, payload)
	}
	if len(payloads) == 0 {
		return []byte{}
	}

	merged, err := p.engine.Merge(payloads)
	if err != nil {
		p.logger.WithError(err).Error("error merging documents")
		return []byte{}
	}
	return merged
}
