package parser

import (
	"strings"
	"testing"

	"github.com/mafadubu/google-docs-resizer/internal/outline"
)

func TestMarkdownParser_HeadingsAndImages(t *testing.T) {
	input := `# Title

Intro text.

## Section A

![chart](https://img.example/a.png)

### Subsection A1

Some text with ![inline](https://img.example/b.png) in the middle.

## Section B

Section B content.
`
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "notes/doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Title != "doc" || doc.ID != "doc" {
		t.Errorf("expected title and id %q, got %q / %q", "doc", doc.Title, doc.ID)
	}

	s := outline.Build(doc)
	if len(s.Chapters) != 4 {
		t.Fatalf("expected 4 headings, got %d", len(s.Chapters))
	}
	wantTitles := []string{"Title", "Section A", "Subsection A1", "Section B"}
	wantLevels := []int{1, 2, 3, 2}
	for i, ch := range s.Chapters {
		if ch.Title != wantTitles[i] || ch.Level != wantLevels[i] {
			t.Errorf("heading %d: expected %q level %d, got %q level %d", i, wantTitles[i], wantLevels[i], ch.Title, ch.Level)
		}
	}

	if len(s.Images) != 2 {
		t.Fatalf("expected 2 images, got %d", len(s.Images))
	}
	if s.Images[0].ID != "md-image-1" || s.Images[0].SourceURI != "https://img.example/a.png" {
		t.Errorf("unexpected first image %+v", s.Images[0])
	}
	if s.Images[0].Width != 0 || s.Images[0].Height != 0 {
		t.Errorf("markdown images carry no size, got %v x %v", s.Images[0].Width, s.Images[0].Height)
	}

	// Section A owns its image, and the subsection owns the second.
	if s.Chapters[1].ImageCount != 2 {
		t.Errorf("expected Section A scope to hold 2 images, got %d", s.Chapters[1].ImageCount)
	}
	if s.Chapters[2].ImageCount != 1 || s.Chapters[2].Images[0].ID != "md-image-2" {
		t.Errorf("expected subsection to hold md-image-2, got %+v", s.Chapters[2].Images)
	}
}

func TestMarkdownParser_OffsetsAreContiguous(t *testing.T) {
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader("# A\n\nhello\nworld\n\n- one\n- two\n"), "x.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	next := int64(1)
	for i, blk := range doc.Body {
		if blk.StartIndex != next {
			t.Errorf("block %d starts at %d, expected %d", i, blk.StartIndex, next)
		}
		next = blk.EndIndex
	}
	if doc.EndIndex != next {
		t.Errorf("expected document end %d, got %d", next, doc.EndIndex)
	}
	// Soft line breaks join with a space.
	if got := doc.Body[1].Paragraph.Elements[0].Text; got != "hello world\n" {
		t.Errorf("expected joined paragraph, got %q", got)
	}
	if len(doc.Body) != 4 {
		t.Errorf("expected heading, paragraph and two list items, got %d blocks", len(doc.Body))
	}
}

func TestMarkdownParser_Table(t *testing.T) {
	input := `| a | b |
|---|---|
| ![x](https://img.example/x.png) | text |
`
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "t.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Body) != 1 || doc.Body[0].Table == nil {
		t.Fatalf("expected a single table block, got %+v", doc.Body)
	}
	if rows := len(doc.Body[0].Table.Rows); rows != 2 {
		t.Errorf("expected header and body rows, got %d", rows)
	}
	images := outline.Inventory(doc)
	if len(images) != 1 || images[0].SourceURI != "https://img.example/x.png" {
		t.Errorf("expected table image in inventory, got %+v", images)
	}
}

func TestMarkdownParser_NoHeadings(t *testing.T) {
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader("Just text.\n\n![a](https://img.example/a.png)\n"), "plain.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := outline.Build(doc)
	if len(s.Chapters) != 0 {
		t.Errorf("expected no chapters, got %d", len(s.Chapters))
	}
	if len(s.Unscoped) != 1 {
		t.Errorf("expected the image to be unscoped, got %+v", s.Unscoped)
	}
}
