package models

// Category is a free-form label attached to a segment by an external
// classifier. One row per segment/name association.
type Category struct {
	ID        string `bson:"_id" json:"id"`
	Name      string `bson:"name" json:"name"`
	SegmentID string `bson:"segment_id" json:"segment_id"`
}
