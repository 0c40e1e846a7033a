package pdfextract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

var ErrEmptyDocument = errors.New("empty pdf document")

// Page is the plain text of one PDF page. Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// ExtractPages reads the entire content of r and returns the text of every
// page that has any. Pages without extractable text are skipped.
func ExtractPages(r io.Reader) ([]Page, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, ErrEmptyDocument
	}
	pdfReader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("open pdf failed: %w", err)
	}

	pages := make([]Page, 0, pdfReader.NumPage())
	for i := 1; i <= pdfReader.NumPage(); i++ {
		p := pdfReader.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d failed: %w", i, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, Page{Number: i, Text: text})
	}
	return pages, nil
}

// ExtractFile is ExtractPages for a file on disk.
func ExtractFile(path string) ([]Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ExtractPages(f)
}
