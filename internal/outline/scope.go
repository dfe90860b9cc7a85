package outline

import "github.com/mafadubu/google-docs-resizer/internal/doctree"

// Chapter is a heading together with the images inside its scope. An image
// under an H2 is listed under that H2 and under its enclosing H1.
type Chapter struct {
	Node
	ImageCount int        `json:"imageCount"`
	Images     []ImageRef `json:"images"`
}

// Structure is the chaptered view of one snapshot.
type Structure struct {
	Title       string     `json:"title"`
	Chapters    []Chapter  `json:"items"`
	Images      []ImageRef `json:"images"`
	Unscoped    []ImageRef `json:"unscoped"`
	DocumentEnd int64      `json:"documentEnd"`
}

// Build extracts outline and inventory and binds images to scopes.
func Build(doc *doctree.Document) Structure {
	title := doc.Title
	if title == "" {
		title = "Untitled Document"
	}
	nodes := Extract(doc)
	images := Inventory(doc)

	s := Structure{
		Title:       title,
		Chapters:    make([]Chapter, len(nodes)),
		Images:      images,
		DocumentEnd: doc.EndIndex,
	}
	for i, n := range nodes {
		s.Chapters[i] = Chapter{Node: n, Images: []ImageRef{}}
	}
	for _, img := range images {
		scoped := false
		for i := range s.Chapters {
			if s.Chapters[i].Contains(img.AnchorOffset) {
				s.Chapters[i].Images = append(s.Chapters[i].Images, img)
				scoped = true
			}
		}
		if !scoped {
			s.Unscoped = append(s.Unscoped, img)
		}
	}
	for i := range s.Chapters {
		s.Chapters[i].ImageCount = len(s.Chapters[i].Images)
	}
	return s
}

// Owner returns the deepest heading whose scope contains offset. Ties at the
// same level cannot occur because same-level scopes never overlap.
func (s Structure) Owner(offset int64) (Node, bool) {
	var (
		best  Node
		found bool
	)
	for _, c := range s.Chapters {
		if !c.Contains(offset) {
			continue
		}
		if !found || c.Level > best.Level {
			best, found = c.Node, true
		}
	}
	return best, found
}

// Nodes returns the outline without image lists.
func (s Structure) Nodes() []Node {
	nodes := make([]Node, len(s.Chapters))
	for i, c := range s.Chapters {
		nodes[i] = c.Node
	}
	return nodes
}
