package doctree

import (
	"fmt"
	"unicode/utf16"
)

// Builder assembles a Document with Docs-style offsets: the body starts at 1,
// offsets count UTF-16 code units, every paragraph ends with a newline, an
// inline object occupies one offset, and tables, rows and cells each open
// with a one-offset marker.
type Builder struct {
	doc    *Document
	offset *int64
	blocks *[]Block
}

// NewBuilder starts an empty document.
func NewBuilder(id, title string) *Builder {
	doc := &Document{
		ID:                id,
		Title:             title,
		InlineObjects:     make(map[string]EmbeddedObject),
		PositionedObjects: make(map[string]EmbeddedObject),
	}
	offset := int64(1)
	return &Builder{doc: doc, offset: &offset, blocks: &doc.Body}
}

// HeadingStyle returns the named style for a heading level.
func HeadingStyle(level int) string {
	return fmt.Sprintf("HEADING_%d", level)
}

// Heading appends a heading paragraph.
func (b *Builder) Heading(level int, text string) *Builder {
	return b.Paragraph(HeadingStyle(level), func(p *ParagraphBuilder) { p.Text(text) })
}

// Text appends a plain paragraph.
func (b *Builder) Text(text string) *Builder {
	return b.Paragraph("NORMAL_TEXT", func(p *ParagraphBuilder) { p.Text(text) })
}

// InlineImage appends a paragraph holding a single inline image.
func (b *Builder) InlineImage(id, uri string, width, height float64) *Builder {
	return b.Paragraph("NORMAL_TEXT", func(p *ParagraphBuilder) { p.InlineImage(id, uri, width, height) })
}

// Paragraph appends a paragraph populated by fill.
func (b *Builder) Paragraph(style string, fill func(p *ParagraphBuilder)) *Builder {
	start := *b.offset
	pb := &ParagraphBuilder{b: b, p: &Paragraph{NamedStyle: style}}
	if fill != nil {
		fill(pb)
	}
	pb.Text("\n")
	*b.blocks = append(*b.blocks, Block{StartIndex: start, EndIndex: *b.offset, Paragraph: pb.p})
	b.doc.EndIndex = *b.offset
	return b
}

// Table appends a table populated by fill.
func (b *Builder) Table(fill func(t *TableBuilder)) *Builder {
	start := *b.offset
	*b.offset++
	tb := &TableBuilder{b: b, t: &Table{}}
	if fill != nil {
		fill(tb)
	}
	*b.offset++
	*b.blocks = append(*b.blocks, Block{StartIndex: start, EndIndex: *b.offset, Table: tb.t})
	b.doc.EndIndex = *b.offset
	return b
}

// Offset returns the next free offset.
func (b *Builder) Offset() int64 { return *b.offset }

// Document returns the assembled document.
func (b *Builder) Document() *Document { return b.doc }

// ParagraphBuilder appends elements to one paragraph.
type ParagraphBuilder struct {
	b *Builder
	p *Paragraph
}

// Text appends a text run, merging with a preceding run.
func (pb *ParagraphBuilder) Text(s string) *ParagraphBuilder {
	if s == "" {
		return pb
	}
	n := int64(len(utf16.Encode([]rune(s))))
	if k := len(pb.p.Elements); k > 0 && pb.p.Elements[k-1].InlineObjectID == "" {
		last := &pb.p.Elements[k-1]
		last.Text += s
		last.EndIndex += n
	} else {
		pb.p.Elements = append(pb.p.Elements, Element{StartIndex: *pb.b.offset, EndIndex: *pb.b.offset + n, Text: s})
	}
	*pb.b.offset += n
	return pb
}

// InlineImage appends an inline object placeholder. Zero width or height
// records the dimension as absent.
func (pb *ParagraphBuilder) InlineImage(id, uri string, width, height float64) *ParagraphBuilder {
	start := *pb.b.offset
	pb.p.Elements = append(pb.p.Elements, Element{StartIndex: start, EndIndex: start + 1, InlineObjectID: id})
	*pb.b.offset++
	pb.b.doc.InlineObjects[id] = newEmbedded(uri, width, height)
	return pb
}

// FloatingImage anchors a positioned object to the paragraph. It occupies no
// offset.
func (pb *ParagraphBuilder) FloatingImage(id, uri string, width, height float64) *ParagraphBuilder {
	pb.p.PositionedObjectIDs = append(pb.p.PositionedObjectIDs, id)
	pb.b.doc.PositionedObjects[id] = newEmbedded(uri, width, height)
	return pb
}

// TableBuilder appends rows to one table.
type TableBuilder struct {
	b *Builder
	t *Table
}

// Row appends a row; each fill populates one cell.
func (tb *TableBuilder) Row(cells ...func(c *Builder)) *TableBuilder {
	*tb.b.offset++
	row := Row{Cells: make([]Cell, len(cells))}
	for i, fill := range cells {
		*tb.b.offset++
		cb := &Builder{doc: tb.b.doc, offset: tb.b.offset, blocks: &row.Cells[i].Content}
		if fill != nil {
			fill(cb)
		}
		if len(row.Cells[i].Content) == 0 {
			// A cell always holds at least one paragraph.
			cb.Text("")
		}
	}
	tb.t.Rows = append(tb.t.Rows, row)
	return tb
}

func newEmbedded(uri string, width, height float64) EmbeddedObject {
	eo := EmbeddedObject{ContentURI: uri}
	if width > 0 {
		eo.Width = &Dimension{Magnitude: width, Unit: "PT"}
	}
	if height > 0 {
		eo.Height = &Dimension{Magnitude: height, Unit: "PT"}
	}
	return eo
}
