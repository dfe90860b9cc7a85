package resize

import "github.com/mafadubu/google-docs-resizer/internal/outline"

// Range is a half-open offset range [Start, End).
type Range struct {
	Start int64 `json:"startIndex"`
	End   int64 `json:"endIndex"`
}

func (r Range) contains(offset int64) bool {
	return r.Start <= offset && offset < r.End
}

type selectionMode int

const (
	selectAll selectionMode = iota
	selectIDs
	selectScopes
)

// Selection chooses which images a request resizes. The zero value selects
// the whole document.
type Selection struct {
	mode   selectionMode
	ids    map[string]struct{}
	ranges []Range
}

// All selects every image in the document, including those before the first
// heading.
func All() Selection {
	return Selection{mode: selectAll}
}

// ByIDs selects images by object id regardless of scope. An empty set
// selects nothing.
func ByIDs(ids ...string) Selection {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return Selection{mode: selectIDs, ids: set}
}

// ByScopes selects images anchored inside any of the ranges. An empty list
// selects nothing.
func ByScopes(ranges ...Range) Selection {
	return Selection{mode: selectScopes, ranges: ranges}
}

// IsAll reports whether the selection is the whole-document sentinel.
func (s Selection) IsAll() bool { return s.mode == selectAll }

// Matches reports whether img is selected.
func (s Selection) Matches(img outline.ImageRef) bool {
	switch s.mode {
	case selectIDs:
		_, ok := s.ids[img.ID]
		return ok
	case selectScopes:
		for _, r := range s.ranges {
			if r.contains(img.AnchorOffset) {
				return true
			}
		}
		return false
	}
	return true
}

// Resolve filters images down to the selected ones, preserving order.
func (s Selection) Resolve(images []outline.ImageRef) []outline.ImageRef {
	var out []outline.ImageRef
	for _, img := range images {
		if s.Matches(img) {
			out = append(out, img)
		}
	}
	return out
}
