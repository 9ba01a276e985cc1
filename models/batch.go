package models

import "time"

const (
	BatchStatusProcessing = "processing"
	BatchStatusCompleted  = "completed"
)

// Batch marks one ingestion run over a dataset. Segments not stamped
// with the current batch id at reconcile time are treated as removed at
// the source and swept.
type Batch struct {
	ID          string    `bson:"_id" json:"id"`
	DatasetName string    `bson:"dataset_name" json:"dataset_name"`
	Status      string    `bson:"status" json:"status"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}
