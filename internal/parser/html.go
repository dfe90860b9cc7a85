package parser

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mafadubu/google-docs-resizer/internal/doctree"
	"golang.org/x/net/html"
)

// cssPixelPoints converts CSS pixels (96 per inch) to points (72 per inch).
const cssPixelPoints = 0.75

// HTMLParser handles HTML files. Inline content between block elements
// becomes one paragraph; img elements aligned or floated left/right become
// positioned objects.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := baseName(filename)
	if t := findTitle(root); t != "" {
		title = t
	}
	b := doctree.NewBuilder(baseName(filename), title)

	images := 0
	w := &htmlWalker{b: b, images: &images}
	if body := findBody(root); body != nil {
		w.children(body)
	} else {
		w.children(root)
	}
	w.flush()
	return b.Document(), nil
}

type htmlRun struct {
	text  string
	image *htmlImage
}

type htmlImage struct {
	id            string
	src           string
	width, height float64
	floating      bool
}

type htmlWalker struct {
	b       *doctree.Builder
	pending []htmlRun
	images  *int
}

func (w *htmlWalker) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func (w *htmlWalker) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.pending = append(w.pending, htmlRun{text: collapseSpace(n.Data)})
		return
	case html.ElementNode:
	default:
		w.children(n)
		return
	}

	if level := headingLevel(n.Data); level > 0 {
		w.flush()
		w.b.Heading(level, textContent(n))
		return
	}

	switch n.Data {
	case "script", "style", "nav", "footer", "header", "head":
		return
	case "img":
		if img, ok := w.image(n); ok {
			w.pending = append(w.pending, htmlRun{image: img})
		}
	case "br":
		w.pending = append(w.pending, htmlRun{text: " "})
	case "table":
		w.flush()
		w.table(n)
	case "p", "div", "li", "ul", "ol", "blockquote", "pre", "section", "article", "main", "figure", "figcaption", "dl", "dt", "dd":
		w.flush()
		w.children(n)
		w.flush()
	default:
		w.children(n)
	}
}

// flush turns pending inline runs into a paragraph. Whitespace-only runs
// produce nothing.
func (w *htmlWalker) flush() {
	runs := w.pending
	w.pending = nil

	hasContent := false
	for _, r := range runs {
		if r.image != nil || strings.TrimSpace(r.text) != "" {
			hasContent = true
			break
		}
	}
	if !hasContent {
		return
	}

	w.b.Paragraph("NORMAL_TEXT", func(p *doctree.ParagraphBuilder) {
		var buf strings.Builder
		started := false
		emit := func(last bool) {
			s := buf.String()
			buf.Reset()
			if !started {
				s = strings.TrimLeft(s, " ")
			}
			if last {
				s = strings.TrimRight(s, " ")
			}
			if s != "" {
				started = true
			}
			p.Text(s)
		}
		for _, r := range runs {
			switch {
			case r.image == nil:
				t := r.text
				if strings.HasSuffix(buf.String(), " ") {
					t = strings.TrimLeft(t, " ")
				}
				buf.WriteString(t)
			case r.image.floating:
				p.FloatingImage(r.image.id, r.image.src, r.image.width, r.image.height)
			default:
				emit(false)
				started = true
				p.InlineImage(r.image.id, r.image.src, r.image.width, r.image.height)
			}
		}
		emit(true)
	})
}

func (w *htmlWalker) table(n *html.Node) {
	var rows []*html.Node
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "tr":
				rows = append(rows, c)
			case "thead", "tbody", "tfoot":
				collect(c)
			}
		}
	}
	collect(n)
	if len(rows) == 0 {
		return
	}

	w.b.Table(func(tb *doctree.TableBuilder) {
		for _, tr := range rows {
			var cells []func(*doctree.Builder)
			for td := tr.FirstChild; td != nil; td = td.NextSibling {
				if td.Type != html.ElementNode || (td.Data != "td" && td.Data != "th") {
					continue
				}
				cells = append(cells, func(cb *doctree.Builder) {
					cw := &htmlWalker{b: cb, images: w.images}
					cw.children(td)
					cw.flush()
				})
			}
			tb.Row(cells...)
		}
	})
}

func (w *htmlWalker) image(n *html.Node) (*htmlImage, bool) {
	src := attr(n, "src")
	if src == "" {
		return nil, false
	}
	*w.images++
	img := &htmlImage{
		id:  attr(n, "id"),
		src: src,
	}
	if img.id == "" {
		img.id = fmt.Sprintf("html-image-%d", *w.images)
	}

	style := parseStyle(attr(n, "style"))
	img.width = pixelsToPoints(firstNonEmpty(style["width"], attr(n, "width")))
	img.height = pixelsToPoints(firstNonEmpty(style["height"], attr(n, "height")))

	switch strings.ToLower(firstNonEmpty(style["float"], attr(n, "align"))) {
	case "left", "right":
		img.floating = true
	}
	return img, true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

// parseStyle reads an inline style attribute into lower-cased properties.
func parseStyle(s string) map[string]string {
	props := make(map[string]string)
	for _, decl := range strings.Split(s, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		props[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return props
}

// pixelsToPoints parses "300" or "300px". Percentages and other units are
// treated as absent.
func pixelsToPoints(v string) float64 {
	v = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(v)), "px")
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || f <= 0 {
		return 0
	}
	return f * cssPixelPoints
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func collapseSpace(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s == "" {
			return ""
		}
		return " "
	}
	out := strings.Join(fields, " ")
	if strings.TrimLeft(s[:1], " \t\r\n") == "" {
		out = " " + out
	}
	if strings.TrimRight(s[len(s)-1:], " \t\r\n") == "" {
		out += " "
	}
	return out
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
