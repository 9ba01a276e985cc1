package models

import "time"

// Segment is a deduplicated logical document. Its ID is the SHA-256 hex
// digest of the trimmed content, so re-ingesting identical content maps
// to the same row.
type Segment struct {
	ID          string    `bson:"_id" json:"id"`
	Content     string    `bson:"content" json:"content"`
	DatasetName string    `bson:"dataset_name" json:"dataset_name"`
	NodeSet     []string  `bson:"node_set" json:"node_set"`
	ChunkIDs    []string  `bson:"chunk_ids" json:"chunk_ids"`
	BatchID     string    `bson:"batch_id" json:"batch_id"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}
