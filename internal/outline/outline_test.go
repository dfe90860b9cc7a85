package outline

import (
	"testing"

	"github.com/mafadubu/google-docs-resizer/internal/doctree"
)

// chapteredDoc builds:
//
//	intro image (unscoped)
//	H1 Intro
//	  inline img-a
//	  H2 Details
//	    floating pos-b + inline img-c in the same paragraph
//	    table > table > img-d
//	H1 Appendix
//	  inline img-e
func chapteredDoc() *doctree.Document {
	b := doctree.NewBuilder("doc", "Guide")
	b.InlineImage("img-0", "https://x/0", 100, 100)
	b.Heading(1, "Intro")
	b.InlineImage("img-a", "https://x/a", 500, 300)
	b.Heading(2, "Details")
	b.Paragraph("NORMAL_TEXT", func(p *doctree.ParagraphBuilder) {
		p.FloatingImage("pos-b", "https://x/b", 200, 100).InlineImage("img-c", "https://x/c", 400, 200)
	})
	b.Table(func(t *doctree.TableBuilder) {
		t.Row(func(c *doctree.Builder) {
			c.Table(func(inner *doctree.TableBuilder) {
				inner.Row(func(c2 *doctree.Builder) { c2.InlineImage("img-d", "https://x/d", 300, 300) })
			})
		})
	})
	b.Heading(1, "Appendix")
	b.InlineImage("img-e", "https://x/e", 600, 600)
	return b.Document()
}

func TestHeadingLevel(t *testing.T) {
	tests := []struct {
		style string
		want  int
	}{
		{"HEADING_1", 1},
		{"HEADING_6", 6},
		{"TITLE", 0},
		{"SUBTITLE", 0},
		{"NORMAL_TEXT", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := HeadingLevel(tt.style); got != tt.want {
			t.Errorf("HeadingLevel(%q) = %d, want %d", tt.style, got, tt.want)
		}
	}
}

func TestExtract_SkipsBlankHeadings(t *testing.T) {
	b := doctree.NewBuilder("doc", "T")
	b.Heading(1, "   ")
	b.Heading(2, "Real")
	b.Paragraph("TITLE", func(p *doctree.ParagraphBuilder) { p.Text("Doc title") })
	nodes := Extract(b.Document())
	if len(nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(nodes))
	}
	if nodes[0].Title != "Real" || nodes[0].Level != 2 {
		t.Errorf("unexpected node %+v", nodes[0])
	}
	if nodes[0].ID != "heading-5" {
		t.Errorf("expected id heading-5, got %q", nodes[0].ID)
	}
}

func TestExtract_Scopes(t *testing.T) {
	doc := chapteredDoc()
	nodes := Extract(doc)
	if len(nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(nodes))
	}
	intro, details, appendix := nodes[0], nodes[1], nodes[2]
	if intro.ScopeEndOffset != appendix.StartOffset {
		t.Errorf("H1 scope should end at next H1 (%d), got %d", appendix.StartOffset, intro.ScopeEndOffset)
	}
	if details.ScopeEndOffset != appendix.StartOffset {
		t.Errorf("H2 scope should end at next shallower heading (%d), got %d", appendix.StartOffset, details.ScopeEndOffset)
	}
	if appendix.ScopeEndOffset != doc.EndIndex {
		t.Errorf("last scope should end at document end %d, got %d", doc.EndIndex, appendix.ScopeEndOffset)
	}
}

func TestInventory_FindsNestedAndFloating(t *testing.T) {
	images := Inventory(chapteredDoc())
	var ids []string
	for _, img := range images {
		ids = append(ids, img.ID)
	}
	want := []string{"img-0", "img-a", "img-c", "pos-b", "img-d", "img-e"}
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], ids[i])
		}
	}

	byID := map[string]ImageRef{}
	for _, img := range images {
		byID[img.ID] = img
	}
	// Floating image anchors at its paragraph start, the inline one at its element.
	if byID["pos-b"].Kind != KindFloating || byID["img-c"].Kind != KindInline {
		t.Errorf("unexpected kinds %q %q", byID["pos-b"].Kind, byID["img-c"].Kind)
	}
	if byID["pos-b"].AnchorOffset != byID["img-c"].AnchorOffset {
		t.Errorf("expected shared anchor, got %d and %d", byID["pos-b"].AnchorOffset, byID["img-c"].AnchorOffset)
	}
	if byID["img-a"].Width != 500 || byID["img-a"].Height != 300 {
		t.Errorf("unexpected geometry %+v", byID["img-a"])
	}
}

func TestInventory_SkipsNonImageObjects(t *testing.T) {
	b := doctree.NewBuilder("doc", "T")
	b.InlineImage("chart", "", 100, 100)
	b.InlineImage("photo", "https://x/p", 100, 100)
	images := Inventory(b.Document())
	if len(images) != 1 || images[0].ID != "photo" {
		t.Errorf("expected only the photo, got %+v", images)
	}
}

func TestLocate(t *testing.T) {
	doc := chapteredDoc()
	img, ok := Locate(doc, "img-d")
	if !ok {
		t.Fatal("expected to locate nested image")
	}
	if img.Kind != KindInline || img.Width != 300 {
		t.Errorf("unexpected ref %+v", img)
	}
	pos, ok := Locate(doc, "pos-b")
	if !ok || pos.Kind != KindFloating {
		t.Errorf("expected floating ref, got %+v (ok=%v)", pos, ok)
	}
	if _, ok := Locate(doc, "missing"); ok {
		t.Error("expected missing id not to be found")
	}
}

func TestBuild_ChapteredView(t *testing.T) {
	s := Build(chapteredDoc())
	if s.Title != "Guide" {
		t.Errorf("unexpected title %q", s.Title)
	}
	if len(s.Unscoped) != 1 || s.Unscoped[0].ID != "img-0" {
		t.Errorf("expected img-0 unscoped, got %+v", s.Unscoped)
	}
	counts := map[string]int{}
	for _, c := range s.Chapters {
		counts[c.Title] = c.ImageCount
	}
	if counts["Intro"] != 4 {
		t.Errorf("expected Intro to see 4 images, got %d", counts["Intro"])
	}
	if counts["Details"] != 3 {
		t.Errorf("expected Details to see 3 images, got %d", counts["Details"])
	}
	if counts["Appendix"] != 1 {
		t.Errorf("expected Appendix to see 1 image, got %d", counts["Appendix"])
	}
}

func TestBuild_UntitledDocument(t *testing.T) {
	s := Build(doctree.NewBuilder("d", "").Document())
	if s.Title != "Untitled Document" {
		t.Errorf("expected fallback title, got %q", s.Title)
	}
}

// Every scoped image is owned by the deepest containing heading, and that
// heading's range contains the anchor.
func TestOwner_ScopeContainment(t *testing.T) {
	s := Build(chapteredDoc())
	want := map[string]string{
		"img-a": "Intro",
		"img-c": "Details",
		"pos-b": "Details",
		"img-d": "Details",
		"img-e": "Appendix",
	}
	for _, img := range s.Images {
		owner, ok := s.Owner(img.AnchorOffset)
		if img.ID == "img-0" {
			if ok {
				t.Errorf("img-0 precedes the first heading but got owner %q", owner.Title)
			}
			continue
		}
		if !ok {
			t.Errorf("%s: expected an owner", img.ID)
			continue
		}
		if !owner.Contains(img.AnchorOffset) {
			t.Errorf("%s: owner %q does not contain anchor %d", img.ID, owner.Title, img.AnchorOffset)
		}
		if owner.Title != want[img.ID] {
			t.Errorf("%s: expected owner %q, got %q", img.ID, want[img.ID], owner.Title)
		}
		for _, c := range s.Chapters {
			if c.Contains(img.AnchorOffset) && c.Level > owner.Level {
				t.Errorf("%s: deeper node %q also contains anchor", img.ID, c.Title)
			}
		}
	}
}
