package pipeline

import (
	"github.com/mafadubu/google-docs-resizer/internal/docs"
	"github.com/mafadubu/google-docs-resizer/internal/resize"
)

// Chunk is one batchUpdate call. Owners is parallel to Requests: the
// original image id for each insert request, "" for everything else.
type Chunk struct {
	Index    int
	Actions  []resize.Action
	Requests []docs.Request
	Owners   []string
}

// RequestsFor expands an action into its remote requests. Destructive
// actions always yield the delete before the insert.
func RequestsFor(a resize.Action) ([]docs.Request, []string) {
	switch a.Kind {
	case resize.DeleteInsert:
		return []docs.Request{
			docs.DeleteRange(a.Anchor, a.Anchor+1),
			docs.InsertImage(a.Anchor, a.URI, a.Width, a.Height),
		}, []string{"", a.ImageID}
	case resize.DeletePositionedInsert:
		return []docs.Request{
			docs.DeletePositioned(a.ImageID),
			docs.InsertImage(a.Anchor, a.URI, a.Width, a.Height),
		}, []string{"", a.ImageID}
	case resize.PropertyUpdate:
		return []docs.Request{docs.ResizeInline(a.ImageID, a.Width, a.Height)}, []string{""}
	}
	return nil, nil
}

// BuildChunks splits sorted actions into chunks of at most chunkSize
// actions, preserving order. A chunk never splits an action's requests.
func BuildChunks(actions []resize.Action, chunkSize int) []Chunk {
	if chunkSize <= 0 {
		chunkSize = 1
	}
	var chunks []Chunk
	for start := 0; start < len(actions); start += chunkSize {
		end := min(start+chunkSize, len(actions))
		c := Chunk{Index: len(chunks), Actions: actions[start:end]}
		for _, a := range c.Actions {
			reqs, owners := RequestsFor(a)
			c.Requests = append(c.Requests, reqs...)
			c.Owners = append(c.Owners, owners...)
		}
		chunks = append(chunks, c)
	}
	return chunks
}
