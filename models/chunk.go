package models

// Chunk is a retrieval-addressable fragment of a Segment. ChainOrder is
// the fragment's position when the segment text was split; concatenating
// a segment's chunks in ChainOrder reconstructs the segment content up
// to whitespace trimmed at split boundaries.
type Chunk struct {
	ID         string `bson:"_id" json:"id"`
	Content    string `bson:"content" json:"content"`
	SegmentID  string `bson:"segment_id" json:"segment_id"`
	ChainOrder int    `bson:"chain_order" json:"chain_order"`
}
