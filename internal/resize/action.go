// Package resize plans per-image size mutations and orders them so that
// offset shifts never invalidate a pending mutation.
package resize

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidWidth is returned for a non-positive target width.
	ErrInvalidWidth = errors.New("resize: target width must be positive")

	// ErrMissingGeometry marks an image whose snapshot carried no width. The
	// planner substitutes the target width so the image is reinserted 1:1.
	ErrMissingGeometry = errors.New("resize: image has no width")

	// ErrNoSource marks an image that cannot be reinserted because it has no
	// fetchable source URI.
	ErrNoSource = errors.New("resize: image has no source uri")
)

// ActionKind tags the mutation variant.
type ActionKind int

const (
	// DeleteInsert removes an inline placeholder and inserts a resized
	// inline image at the same offset.
	DeleteInsert ActionKind = iota
	// DeletePositionedInsert removes a floating object and inserts a resized
	// inline image at its anchor paragraph.
	DeletePositionedInsert
	// PropertyUpdate patches geometry in place without changing identity.
	PropertyUpdate
)

func (k ActionKind) String() string {
	switch k {
	case DeleteInsert:
		return "delete_insert"
	case DeletePositionedInsert:
		return "delete_positioned_insert"
	case PropertyUpdate:
		return "property_update"
	}
	return fmt.Sprintf("ActionKind(%d)", int(k))
}

// MarshalText lets plans render readably in JSON.
func (k ActionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Action is one image's planned mutation. Width and Height are in points;
// a zero Height leaves the remote service to keep the aspect ratio.
type Action struct {
	Kind    ActionKind `json:"kind"`
	ImageID string     `json:"imageId"`
	Anchor  int64      `json:"anchorOffset"`
	URI     string     `json:"uri,omitempty"`
	Width   float64    `json:"targetWidth"`
	Height  float64    `json:"targetHeight"`
}

// Destructive reports whether the action replaces the image and therefore
// changes its identifier.
func (a Action) Destructive() bool {
	return a.Kind != PropertyUpdate
}

// Ops is the number of remote operations the action expands to.
func (a Action) Ops() int {
	if a.Destructive() {
		return 2
	}
	return 1
}

// Skip records a selected image the planner could not turn into an action.
type Skip struct {
	ImageID string `json:"imageId"`
	Reason  string `json:"reason"`
}
