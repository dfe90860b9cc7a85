package parser

import (
	"fmt"
	"io"

	"github.com/mafadubu/google-docs-resizer/internal/doctree"
)

// JSONParser loads a saved documents.get response.
type JSONParser struct{}

func (p *JSONParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	doc, err := doctree.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("parse json snapshot: %w", err)
	}
	if doc.ID == "" {
		doc.ID = baseName(filename)
	}
	if doc.Title == "" {
		doc.Title = baseName(filename)
	}
	return doc, nil
}
