package pipeline

import "github.com/mafadubu/google-docs-resizer/internal/docs"

// Reconcile records old→new object ids for a successfully applied chunk.
// Replies are matched to requests by position; a missing reply or an empty
// object id leaves that image unmapped. It returns the number of ids added.
func Reconcile(c Chunk, replies []docs.Response, idMap map[string]string) int {
	added := 0
	for i, owner := range c.Owners {
		if owner == "" || i >= len(replies) {
			continue
		}
		r := replies[i].InsertInlineImage
		if r == nil || r.ObjectID == "" {
			continue
		}
		idMap[owner] = r.ObjectID
		added++
	}
	return added
}
