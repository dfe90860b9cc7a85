package doctree

// Document is a typed snapshot of a remote document body.
type Document struct {
	ID    string
	Title string
	Body  []Block

	// EndIndex is the offset just past the last body element.
	EndIndex int64

	InlineObjects     map[string]EmbeddedObject
	PositionedObjects map[string]EmbeddedObject
}

// Block is a block-level structural element. Exactly one of Paragraph or
// Table is set.
type Block struct {
	StartIndex int64
	EndIndex   int64
	Paragraph  *Paragraph
	Table      *Table
}

// Paragraph holds text runs and inline object placeholders.
type Paragraph struct {
	NamedStyle          string // e.g. "HEADING_2", "NORMAL_TEXT"
	Elements            []Element
	PositionedObjectIDs []string
}

// Element is either a text run (Text set) or an inline object placeholder
// (InlineObjectID set) occupying one offset.
type Element struct {
	StartIndex     int64
	EndIndex       int64
	Text           string
	InlineObjectID string
}

// Table is a grid of cells, each holding further blocks.
type Table struct {
	Rows []Row
}

type Row struct {
	Cells []Cell
}

type Cell struct {
	Content []Block
}

// EmbeddedObject is the part of an inline or positioned object the planner
// cares about.
type EmbeddedObject struct {
	ContentURI string
	Width      *Dimension
	Height     *Dimension
}

// Dimension is a magnitude+unit pair.
type Dimension struct {
	Magnitude float64
	Unit      string // "PT" or "EMU"
}

// EMUPerPoint is the number of English Metric Units in one point.
const EMUPerPoint = 12700

// Points returns the dimension in points, or 0 for a nil or unitless value.
func (d *Dimension) Points() float64 {
	if d == nil {
		return 0
	}
	switch d.Unit {
	case "EMU":
		return d.Magnitude / EMUPerPoint
	case "PT", "":
		return d.Magnitude
	}
	return 0
}

// Text concatenates the text runs of the paragraph.
func (p *Paragraph) Text() string {
	var n int
	for _, e := range p.Elements {
		n += len(e.Text)
	}
	buf := make([]byte, 0, n)
	for _, e := range p.Elements {
		buf = append(buf, e.Text...)
	}
	return string(buf)
}

// Walk visits every block in document order, descending into table cells.
// depth is 0 for body blocks and increases by one per table level. Descent
// stops below maxDepth; a non-positive maxDepth means no limit.
func Walk(blocks []Block, maxDepth int, fn func(b *Block, depth int)) {
	walk(blocks, 0, maxDepth, fn)
}

func walk(blocks []Block, depth, maxDepth int, fn func(*Block, int)) {
	for i := range blocks {
		b := &blocks[i]
		fn(b, depth)
		if b.Table == nil {
			continue
		}
		if maxDepth > 0 && depth+1 > maxDepth {
			continue
		}
		for _, row := range b.Table.Rows {
			for _, cell := range row.Cells {
				walk(cell.Content, depth+1, maxDepth, fn)
			}
		}
	}
}
