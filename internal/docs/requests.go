package docs

// Request is one entry of a batchUpdate call. Exactly one field is set.
type Request struct {
	DeleteContentRange     *DeleteContentRangeRequest     `json:"deleteContentRange,omitempty"`
	InsertInlineImage      *InsertInlineImageRequest      `json:"insertInlineImage,omitempty"`
	DeletePositionedObject *DeletePositionedObjectRequest `json:"deletePositionedObject,omitempty"`
	UpdateInlineObjectSize *UpdateInlineObjectSizeRequest `json:"updateInlineObjectSize,omitempty"`
}

type Range struct {
	StartIndex int64 `json:"startIndex"`
	EndIndex   int64 `json:"endIndex"`
}

type Location struct {
	Index int64 `json:"index"`
}

type Dimension struct {
	Magnitude float64 `json:"magnitude"`
	Unit      string  `json:"unit"`
}

type Size struct {
	Width  *Dimension `json:"width,omitempty"`
	Height *Dimension `json:"height,omitempty"`
}

type DeleteContentRangeRequest struct {
	Range Range `json:"range"`
}

type InsertInlineImageRequest struct {
	Location   Location `json:"location"`
	URI        string   `json:"uri"`
	ObjectSize *Size    `json:"objectSize,omitempty"`
}

type DeletePositionedObjectRequest struct {
	ObjectID string `json:"objectId"`
}

// UpdateInlineObjectSizeRequest patches an inline object's size in place.
// The public v1 API does not accept it; it is only sent when the property
// strategy is configured against a compatible endpoint.
type UpdateInlineObjectSizeRequest struct {
	InlineObjectID string `json:"inlineObjectId"`
	ObjectSize     *Size  `json:"objectSize"`
}

// Response is one positional reply of a batchUpdate call. Replies for
// request kinds that produce no output are empty objects.
type Response struct {
	InsertInlineImage *InsertInlineImageReply `json:"insertInlineImage,omitempty"`
}

type InsertInlineImageReply struct {
	ObjectID string `json:"objectId"`
}

type batchUpdateRequest struct {
	Requests []Request `json:"requests"`
}

type batchUpdateResponse struct {
	DocumentID string     `json:"documentId"`
	Replies    []Response `json:"replies"`
}

// DeleteRange removes the half-open range [start, end).
func DeleteRange(start, end int64) Request {
	return Request{DeleteContentRange: &DeleteContentRangeRequest{
		Range: Range{StartIndex: start, EndIndex: end},
	}}
}

// InsertImage inserts uri at index sized in points. Zero dimensions are
// omitted so the service keeps the aspect ratio.
func InsertImage(index int64, uri string, width, height float64) Request {
	return Request{InsertInlineImage: &InsertInlineImageRequest{
		Location:   Location{Index: index},
		URI:        uri,
		ObjectSize: pointSize(width, height),
	}}
}

// DeletePositioned removes a floating object by id.
func DeletePositioned(objectID string) Request {
	return Request{DeletePositionedObject: &DeletePositionedObjectRequest{ObjectID: objectID}}
}

// ResizeInline updates an inline object's size in place.
func ResizeInline(objectID string, width, height float64) Request {
	return Request{UpdateInlineObjectSize: &UpdateInlineObjectSizeRequest{
		InlineObjectID: objectID,
		ObjectSize:     pointSize(width, height),
	}}
}

// IsInsert reports whether the request creates a new object.
func (r Request) IsInsert() bool {
	return r.InsertInlineImage != nil
}

func pointSize(width, height float64) *Size {
	if width <= 0 && height <= 0 {
		return nil
	}
	s := &Size{}
	if width > 0 {
		s.Width = &Dimension{Magnitude: width, Unit: "PT"}
	}
	if height > 0 {
		s.Height = &Dimension{Magnitude: height, Unit: "PT"}
	}
	return s
}
