// Package outline extracts the heading outline and image inventory of a
// document and binds images to heading scopes.
package outline

import (
	"fmt"
	"strings"

	"github.com/mafadubu/google-docs-resizer/internal/doctree"
)

// Node is a heading with the offset range it owns.
type Node struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Level          int    `json:"level"`
	StartOffset    int64  `json:"startIndex"`
	EndOffset      int64  `json:"endIndex"`
	ScopeEndOffset int64  `json:"scopeEndIndex"`
}

// Contains reports whether offset falls inside the node's scope.
func (n Node) Contains(offset int64) bool {
	return n.StartOffset <= offset && offset < n.ScopeEndOffset
}

// HeadingLevel maps a named paragraph style to a heading level 1..6, or 0.
// TITLE and SUBTITLE do not open a scope.
func HeadingLevel(style string) int {
	switch style {
	case "HEADING_1":
		return 1
	case "HEADING_2":
		return 2
	case "HEADING_3":
		return 3
	case "HEADING_4":
		return 4
	case "HEADING_5":
		return 5
	case "HEADING_6":
		return 6
	}
	return 0
}

// Extract returns the body's heading nodes in document order with scopes
// assigned. Headings inside tables are not scope-bearing.
func Extract(doc *doctree.Document) []Node {
	var nodes []Node
	for _, b := range doc.Body {
		if b.Paragraph == nil {
			continue
		}
		level := HeadingLevel(b.Paragraph.NamedStyle)
		if level == 0 {
			continue
		}
		title := strings.TrimSpace(b.Paragraph.Text())
		if title == "" {
			continue
		}
		nodes = append(nodes, Node{
			ID:          fmt.Sprintf("heading-%d", b.StartIndex),
			Title:       title,
			Level:       level,
			StartOffset: b.StartIndex,
			EndOffset:   b.EndIndex,
		})
	}
	AssignScopes(nodes, doc.EndIndex)
	return nodes
}

// AssignScopes sets each node's ScopeEndOffset to the start of the next node
// at the same or a shallower level, or docEnd.
func AssignScopes(nodes []Node, docEnd int64) {
	for i := range nodes {
		nodes[i].ScopeEndOffset = docEnd
		for j := i + 1; j < len(nodes); j++ {
			if nodes[j].Level <= nodes[i].Level {
				nodes[i].ScopeEndOffset = nodes[j].StartOffset
				break
			}
		}
	}
}
