package doctree

import (
	"encoding/json"
	"fmt"
	"io"
)

// Wire types for the Docs API document resource. Only the fields the planner
// reads are declared.

type wireDocument struct {
	DocumentID        string                    `json:"documentId"`
	Title             string                    `json:"title"`
	Body              *wireBody                 `json:"body"`
	InlineObjects     map[string]wireObject     `json:"inlineObjects"`
	PositionedObjects map[string]wirePositioned `json:"positionedObjects"`
}

type wireBody struct {
	Content []wireStructural `json:"content"`
}

type wireStructural struct {
	StartIndex int64          `json:"startIndex"`
	EndIndex   int64          `json:"endIndex"`
	Paragraph  *wireParagraph `json:"paragraph"`
	Table      *wireTable     `json:"table"`
}

type wireParagraph struct {
	Elements       []wireElement `json:"elements"`
	ParagraphStyle *struct {
		NamedStyleType string `json:"namedStyleType"`
	} `json:"paragraphStyle"`
	PositionedObjectIDs []string `json:"positionedObjectIds"`
}

type wireElement struct {
	StartIndex int64 `json:"startIndex"`
	EndIndex   int64 `json:"endIndex"`
	TextRun    *struct {
		Content string `json:"content"`
	} `json:"textRun"`
	InlineObjectElement *struct {
		InlineObjectID string `json:"inlineObjectId"`
	} `json:"inlineObjectElement"`
}

type wireTable struct {
	TableRows []struct {
		TableCells []struct {
			Content []wireStructural `json:"content"`
		} `json:"tableCells"`
	} `json:"tableRows"`
}

type wireObject struct {
	Properties *struct {
		EmbeddedObject *wireEmbedded `json:"embeddedObject"`
	} `json:"inlineObjectProperties"`
}

type wirePositioned struct {
	Properties *struct {
		EmbeddedObject *wireEmbedded `json:"embeddedObject"`
	} `json:"positionedObjectProperties"`
}

type wireEmbedded struct {
	ImageProperties *struct {
		ContentURI string `json:"contentUri"`
	} `json:"imageProperties"`
	Size *struct {
		Width  *wireDimension `json:"width"`
		Height *wireDimension `json:"height"`
	} `json:"size"`
}

type wireDimension struct {
	Magnitude float64 `json:"magnitude"`
	Unit      string  `json:"unit"`
}

// Decode reads a Docs API document resource.
func Decode(r io.Reader) (*Document, error) {
	var wd wireDocument
	if err := json.NewDecoder(r).Decode(&wd); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return fromWire(&wd), nil
}

// Unmarshal is Decode for an in-memory payload.
func Unmarshal(data []byte) (*Document, error) {
	var wd wireDocument
	if err := json.Unmarshal(data, &wd); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return fromWire(&wd), nil
}

func fromWire(wd *wireDocument) *Document {
	doc := &Document{
		ID:                wd.DocumentID,
		Title:             wd.Title,
		InlineObjects:     make(map[string]EmbeddedObject, len(wd.InlineObjects)),
		PositionedObjects: make(map[string]EmbeddedObject, len(wd.PositionedObjects)),
	}
	if wd.Body != nil {
		doc.Body = convertBlocks(wd.Body.Content)
		if n := len(wd.Body.Content); n > 0 {
			doc.EndIndex = wd.Body.Content[n-1].EndIndex
		}
	}
	for id, o := range wd.InlineObjects {
		if o.Properties != nil {
			doc.InlineObjects[id] = convertEmbedded(o.Properties.EmbeddedObject)
		}
	}
	for id, o := range wd.PositionedObjects {
		if o.Properties != nil {
			doc.PositionedObjects[id] = convertEmbedded(o.Properties.EmbeddedObject)
		}
	}
	return doc
}

// convertBlocks keeps paragraphs and tables; section breaks and tables of
// contents carry nothing the planner addresses.
func convertBlocks(in []wireStructural) []Block {
	out := make([]Block, 0, len(in))
	for _, ws := range in {
		b := Block{StartIndex: ws.StartIndex, EndIndex: ws.EndIndex}
		switch {
		case ws.Paragraph != nil:
			b.Paragraph = convertParagraph(ws.Paragraph)
		case ws.Table != nil:
			t := &Table{Rows: make([]Row, 0, len(ws.Table.TableRows))}
			for _, wr := range ws.Table.TableRows {
				row := Row{Cells: make([]Cell, 0, len(wr.TableCells))}
				for _, wc := range wr.TableCells {
					row.Cells = append(row.Cells, Cell{Content: convertBlocks(wc.Content)})
				}
				t.Rows = append(t.Rows, row)
			}
			b.Table = t
		default:
			continue
		}
		out = append(out, b)
	}
	return out
}

func convertParagraph(wp *wireParagraph) *Paragraph {
	p := &Paragraph{PositionedObjectIDs: wp.PositionedObjectIDs}
	if wp.ParagraphStyle != nil {
		p.NamedStyle = wp.ParagraphStyle.NamedStyleType
	}
	p.Elements = make([]Element, 0, len(wp.Elements))
	for _, we := range wp.Elements {
		e := Element{StartIndex: we.StartIndex, EndIndex: we.EndIndex}
		if we.TextRun != nil {
			e.Text = we.TextRun.Content
		}
		if we.InlineObjectElement != nil {
			e.InlineObjectID = we.InlineObjectElement.InlineObjectID
		}
		p.Elements = append(p.Elements, e)
	}
	return p
}

func convertEmbedded(we *wireEmbedded) EmbeddedObject {
	var eo EmbeddedObject
	if we == nil {
		return eo
	}
	if we.ImageProperties != nil {
		eo.ContentURI = we.ImageProperties.ContentURI
	}
	if we.Size != nil {
		if we.Size.Width != nil {
			eo.Width = &Dimension{Magnitude: we.Size.Width.Magnitude, Unit: we.Size.Width.Unit}
		}
		if we.Size.Height != nil {
			eo.Height = &Dimension{Magnitude: we.Size.Height.Magnitude, Unit: we.Size.Height.Unit}
		}
	}
	return eo
}
