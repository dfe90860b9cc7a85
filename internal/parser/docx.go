package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/fumiama/go-docx"
	"github.com/mafadubu/google-docs-resizer/internal/doctree"
)

// EmbedScheme prefixes the relationship id of an image stored inside the
// .docx package. Such images have no fetchable URL.
const EmbedScheme = "docx-embed:"

// DOCXParser handles .docx files. Inline drawings become inline objects and
// anchored drawings become positioned objects, sized from their extents.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	name := baseName(filename)
	b := doctree.NewBuilder(name, name)
	docxItems(b, doc.Document.Body.Items)
	return b.Document(), nil
}

func docxItems(b *doctree.Builder, items []interface{}) {
	for _, item := range items {
		switch it := item.(type) {
		case *docx.Paragraph:
			docxParagraph(b, it)
		case *docx.Table:
			docxTable(b, it)
		}
	}
}

func docxParagraph(b *doctree.Builder, para *docx.Paragraph) {
	style := "NORMAL_TEXT"
	if docxIsTitle(para) {
		style = "TITLE"
	} else if level := docxHeadingLevel(para); level > 0 {
		style = doctree.HeadingStyle(level)
	}

	b.Paragraph(style, func(p *doctree.ParagraphBuilder) {
		for _, child := range para.Children {
			run, ok := child.(*docx.Run)
			if !ok {
				continue
			}
			for _, rc := range run.Children {
				switch c := rc.(type) {
				case *docx.Text:
					p.Text(c.Text)
				case *docx.Drawing:
					docxDrawing(p, c)
				}
			}
		}
	})
}

func docxDrawing(p *doctree.ParagraphBuilder, d *docx.Drawing) {
	switch {
	case d.Inline != nil:
		id, uri, w, h := drawingRef(d.Inline.DocPr, d.Inline.Extent, d.Inline.Graphic)
		p.InlineImage(id, uri, w, h)
	case d.Anchor != nil:
		id, uri, w, h := drawingRef(d.Anchor.DocPr, d.Anchor.Extent, d.Anchor.Graphic)
		p.FloatingImage(id, uri, w, h)
	}
}

func drawingRef(pr *docx.WPDocPr, ext *docx.WPExtent, g *docx.AGraphic) (id, uri string, width, height float64) {
	if pr != nil {
		id = fmt.Sprintf("docx-image-%d", pr.ID)
	}
	if ext != nil {
		width = float64(ext.CX) / doctree.EMUPerPoint
		height = float64(ext.CY) / doctree.EMUPerPoint
	}
	if g != nil && g.GraphicData != nil && g.GraphicData.Pic != nil && g.GraphicData.Pic.BlipFill != nil {
		if embed := g.GraphicData.Pic.BlipFill.Blip.Embed; embed != "" {
			uri = EmbedScheme + embed
		}
	}
	return id, uri, width, height
}

func docxTable(b *doctree.Builder, t *docx.Table) {
	b.Table(func(tb *doctree.TableBuilder) {
		for _, row := range t.TableRows {
			cells := make([]func(*doctree.Builder), 0, len(row.TableCells))
			for _, cell := range row.TableCells {
				cells = append(cells, func(cb *doctree.Builder) {
					for _, para := range cell.Paragraphs {
						docxParagraph(cb, para)
					}
					for _, nested := range cell.Tables {
						docxTable(cb, nested)
					}
				})
			}
			tb.Row(cells...)
		}
	})
}

func docxIsTitle(para *docx.Paragraph) bool {
	return para.Properties != nil && para.Properties.Style != nil &&
		strings.EqualFold(para.Properties.Style.Val, "Title")
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := para.Properties.Style.Val
	switch {
	case strings.EqualFold(style, "Heading1") || strings.EqualFold(style, "heading 1"):
		return 1
	case strings.EqualFold(style, "Heading2") || strings.EqualFold(style, "heading 2"):
		return 2
	case strings.EqualFold(style, "Heading3") || strings.EqualFold(style, "heading 3"):
		return 3
	case strings.EqualFold(style, "Heading4") || strings.EqualFold(style, "heading 4"):
		return 4
	case strings.EqualFold(style, "Heading5") || strings.EqualFold(style, "heading 5"):
		return 5
	case strings.EqualFold(style, "Heading6") || strings.EqualFold(style, "heading 6"):
		return 6
	}
	return 0
}
