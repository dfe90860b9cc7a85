package outline

import "github.com/mafadubu/google-docs-resizer/internal/doctree"

// MaxTableDepth caps descent into nested tables.
const MaxTableDepth = 64

// Kind distinguishes text-flow images from paragraph-anchored ones.
type Kind string

const (
	KindInline   Kind = "inline"
	KindFloating Kind = "positioned"
)

// ImageRef is one image found in a snapshot. Width and Height are in points;
// zero means the snapshot carried no size.
type ImageRef struct {
	ID           string  `json:"id"`
	Kind         Kind    `json:"type"`
	AnchorOffset int64   `json:"startIndex"`
	SourceURI    string  `json:"uri"`
	Width        float64 `json:"width,omitempty"`
	Height       float64 `json:"height,omitempty"`
}

// Inventory lists every image in document order, including those inside
// (nested) tables. Objects without image content are skipped.
func Inventory(doc *doctree.Document) []ImageRef {
	var images []ImageRef
	doctree.Walk(doc.Body, MaxTableDepth, func(b *doctree.Block, _ int) {
		if b.Paragraph == nil {
			return
		}
		for _, el := range b.Paragraph.Elements {
			if el.InlineObjectID == "" {
				continue
			}
			if ref, ok := newRef(doc.InlineObjects, el.InlineObjectID, KindInline, el.StartIndex); ok {
				images = append(images, ref)
			}
		}
		for _, id := range b.Paragraph.PositionedObjectIDs {
			if ref, ok := newRef(doc.PositionedObjects, id, KindFloating, b.StartIndex); ok {
				images = append(images, ref)
			}
		}
	})
	return images
}

// Locate finds a single image by object id in a fresh snapshot.
func Locate(doc *doctree.Document, id string) (ImageRef, bool) {
	var (
		found ImageRef
		ok    bool
	)
	doctree.Walk(doc.Body, MaxTableDepth, func(b *doctree.Block, _ int) {
		if ok || b.Paragraph == nil {
			return
		}
		for _, el := range b.Paragraph.Elements {
			if el.InlineObjectID == id {
				found, ok = newRef(doc.InlineObjects, id, KindInline, el.StartIndex)
				return
			}
		}
		for _, pid := range b.Paragraph.PositionedObjectIDs {
			if pid == id {
				found, ok = newRef(doc.PositionedObjects, id, KindFloating, b.StartIndex)
				return
			}
		}
	})
	return found, ok
}

func newRef(objects map[string]doctree.EmbeddedObject, id string, kind Kind, anchor int64) (ImageRef, bool) {
	obj, ok := objects[id]
	if !ok || obj.ContentURI == "" {
		return ImageRef{}, false
	}
	return ImageRef{
		ID:           id,
		Kind:         kind,
		AnchorOffset: anchor,
		SourceURI:    obj.ContentURI,
		Width:        obj.Width.Points(),
		Height:       obj.Height.Points(),
	}, true
}
