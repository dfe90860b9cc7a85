package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/mafadubu/google-docs-resizer/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark. Images carry no
// intrinsic size, so their dimensions are left absent.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	root := md.Parser().Parse(text.NewReader(src))

	name := baseName(filename)
	w := &mdWalker{src: src}
	b := doctree.NewBuilder(name, name)
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		w.block(b, n)
	}
	return b.Document(), nil
}

type mdWalker struct {
	src    []byte
	images int
}

func (w *mdWalker) block(b *doctree.Builder, n ast.Node) {
	switch node := n.(type) {
	case *ast.Heading:
		b.Paragraph(doctree.HeadingStyle(node.Level), func(p *doctree.ParagraphBuilder) { w.inline(p, node) })
	case *ast.Paragraph, *ast.TextBlock:
		b.Paragraph("NORMAL_TEXT", func(p *doctree.ParagraphBuilder) { w.inline(p, node) })
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		lines := node.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			b.Text(strings.TrimRight(string(seg.Value(w.src)), "\r\n"))
		}
	case *east.Table:
		b.Table(func(tb *doctree.TableBuilder) {
			for row := node.FirstChild(); row != nil; row = row.NextSibling() {
				var cells []func(*doctree.Builder)
				for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
					cells = append(cells, func(cb *doctree.Builder) {
						cb.Paragraph("NORMAL_TEXT", func(p *doctree.ParagraphBuilder) { w.inline(p, cell) })
					})
				}
				tb.Row(cells...)
			}
		})
	case *ast.ThematicBreak, *ast.HTMLBlock:
	default:
		// Lists, list items and blockquotes.
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			w.block(b, c)
		}
	}
}

func (w *mdWalker) inline(p *doctree.ParagraphBuilder, n ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			p.Text(string(node.Segment.Value(w.src)))
			if node.SoftLineBreak() || node.HardLineBreak() {
				p.Text(" ")
			}
		case *ast.String:
			p.Text(string(node.Value))
		case *ast.AutoLink:
			p.Text(string(node.URL(w.src)))
		case *ast.Image:
			w.images++
			p.InlineImage(fmt.Sprintf("md-image-%d", w.images), string(node.Destination), 0, 0)
		case *ast.RawHTML:
		default:
			w.inline(p, c)
		}
	}
}
