package document

import (
	"bytes"
	"io"
	"strings"

	wkhtmltopdf "github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pkg/errors"
)

// pdfEngine is the default Engine: wkhtmltopdf for rendering and pdfcpu for
// merging.
type pdfEngine struct{}

// NewPDFEngine returns the production PDF engine. It requires the wkhtmltopdf
// binary to be installed on the host.
func NewPDFEngine() Engine {
	return pdfEngine{}
}

func (pdfEngine) Render(html string) ([]byte, error) {
	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, errors.Wrap(err, "could not init renderer")
	}
	pdfg.PageSize.Set(wkhtmltopdf.PageSizeA4)
	pdfg.AddPage(wkhtmltopdf.NewPageReader(strings.NewReader(html)))

	if err := pdfg.Create(); err != nil {
		return nil, errors.Wrap(err, "could not render document")
	}
	return pdfg.Bytes(), nil
}

func (pdfEngine) Merge(payloads [][]byte) ([]byte, error) {
	readers := make([]io.ReadSeeker, 0, len(payloads))
	for _, payload := range payloads {
		readers = append(readers, bytes.NewReader(payload))
	}

	var buf bytes.Buffer
	if err := api.MergeRaw(readers, &buf, false, nil); err != nil {
		return nil, errors.Wrap(err, "could not merge documents")
	}
	return buf.Bytes(), nil
}
