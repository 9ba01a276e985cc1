package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"news-archive-rag/models"
)

// MongoStore persists the metadata entities in MongoDB.
type MongoStore struct {
	segments   *mongo.Collection
	chunks     *mongo.Collection
	batches    *mongo.Collection
	categories *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		segments:   db.Collection("segments"),
		chunks:     db.Collection("chunks"),
		batches:    db.Collection("batches"),
		categories: db.Collection("categories"),
	}
}

func (s *MongoStore) FindSegment(ctx context.Context, id string) (*models.Segment, error) {
	var seg models.Segment
	err := s.segments.FindOne(ctx, bson.M{"_id": id}).Decode(&seg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find segment: %w", err)
	}
	return &seg, nil
}

func (s *MongoStore) UpsertSegment(ctx context.Context, seg *models.Segment) error {
	_, err := s.segments.UpdateOne(ctx,
		bson.M{"_id": seg.ID},
		bson.M{"$set": seg},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert segment: %w", err)
	}
	return nil
}

func (s *MongoStore) TouchSegment(ctx context.Context, id, batchID string, at time.Time) error {
	_, err := s.segments.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"batch_id": batchID, "updated_at": at}},
	)
	if err != nil {
		return fmt.Errorf("touch segment: %w", err)
	}
	return nil
}

func (s *MongoStore) ListSegments(ctx context.Context, datasetName string) ([]models.Segment, error) {
	return s.findSegments(ctx, bson.M{"dataset_name": datasetName})
}

func (s *MongoStore) ListStaleSegments(ctx context.Context, datasetName, currentBatchID string) ([]models.Segment, error) {
	return s.findSegments(ctx, bson.M{
		"dataset_name": datasetName,
		"batch_id":     bson.M{"$ne": currentBatchID},
	})
}

func (s *MongoStore) SegmentsByChunkIDs(ctx context.Context, chunkIDs []string) ([]models.Segment, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}
	return s.findSegments(ctx, bson.M{"chunk_ids": bson.M{"$in": chunkIDs}})
}

func (s *MongoStore) SegmentsByCategories(ctx context.Context, datasetName string, names []string) ([]models.Segment, error) {
	if len(names) == 0 {
		return nil, nil
	}

	cur, err := s.categories.Find(ctx, bson.M{"name": bson.M{"$in": names}})
	if err != nil {
		return nil, fmt.Errorf("find categories: %w", err)
	}
	var cats []models.Category
	if err := cur.All(ctx, &cats); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	if len(cats) == 0 {
		return nil, nil
	}

	segmentIDs := make([]string, 0, len(cats))
	for _, c := range cats {
		segmentIDs = append(segmentIDs, c.SegmentID)
	}
	return s.findSegments(ctx, bson.M{
		"_id":          bson.M{"$in": segmentIDs},
		"dataset_name": datasetName,
	})
}

func (s *MongoStore) DeleteSegment(ctx context.Context, id string) error {
	if _, err := s.chunks.DeleteMany(ctx, bson.M{"segment_id": id}); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if _, err := s.categories.DeleteMany(ctx, bson.M{"segment_id": id}); err != nil {
		return fmt.Errorf("delete categories: %w", err)
	}
	if _, err := s.segments.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete segment: %w", err)
	}
	return nil
}

func (s *MongoStore) CreateChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	docs := make([]interface{}, len(chunks))
	for i, c := range chunks {
		docs[i] = c
	}
	_, err := s.chunks.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("create chunks: %w", err)
	}
	return nil
}

func (s *MongoStore) ChunksBySegment(ctx context.Context, segmentID string) ([]models.Chunk, error) {
	cur, err := s.chunks.Find(ctx,
		bson.M{"segment_id": segmentID},
		options.Find().SetSort(bson.D{{Key: "chain_order", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("find chunks: %w", err)
	}
	var chunks []models.Chunk
	if err := cur.All(ctx, &chunks); err != nil {
		return nil, fmt.Errorf("decode chunks: %w", err)
	}
	return chunks, nil
}

func (s *MongoStore) LatestBatch(ctx context.Context, datasetName string) (*models.Batch, error) {
	var batch models.Batch
	err := s.batches.FindOne(ctx,
		bson.M{"dataset_name": datasetName},
		options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	).Decode(&batch)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest batch: %w", err)
	}
	return &batch, nil
}

func (s *MongoStore) CreateBatch(ctx context.Context, batch *models.Batch) error {
	if _, err := s.batches.InsertOne(ctx, batch); err != nil {
		return fmt.Errorf("create batch: %w", err)
	}
	return nil
}

func (s *MongoStore) UpdateBatchStatus(ctx context.Context, id, status string) error {
	_, err := s.batches.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status}},
	)
	if err != nil {
		return fmt.Errorf("update batch status: %w", err)
	}
	return nil
}

func (s *MongoStore) CategoryNames(ctx context.Context) ([]string, error) {
	raw, err := s.categories.Distinct(ctx, "name", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("distinct category names: %w", err)
	}
	names := make([]string, 0, len(raw))
	for _, v := range raw {
		if name, ok := v.(string); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

func (s *MongoStore) CategoriesBySegment(ctx context.Context, segmentID string) ([]models.Category, error) {
	cur, err := s.categories.Find(ctx, bson.M{"segment_id": segmentID})
	if err != nil {
		return nil, fmt.Errorf("find categories: %w", err)
	}
	var cats []models.Category
	if err := cur.All(ctx, &cats); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	return cats, nil
}

func (s *MongoStore) CreateCategories(ctx context.Context, segmentID string, names []string) error {
	if len(names) == 0 {
		return nil
	}
	docs := make([]interface{}, len(names))
	for i, name := range names {
		docs[i] = models.Category{ID: uuid.NewString(), Name: name, SegmentID: segmentID}
	}
	if _, err := s.categories.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("create categories: %w", err)
	}
	return nil
}

func (s *MongoStore) DeleteCategoriesBySegment(ctx context.Context, segmentID string) error {
	if _, err := s.categories.DeleteMany(ctx, bson.M{"segment_id": segmentID}); err != nil {
		return fmt.Errorf("delete categories: %w", err)
	}
	return nil
}

func (s *MongoStore) findSegments(ctx context.Context, filter bson.M) ([]models.Segment, error) {
	cur, err := s.segments.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find segments: %w", err)
	}
	var segs []models.Segment
	if err := cur.All(ctx, &segs); err != nil {
		return nil, fmt.Errorf("decode segments: %w", err)
	}
	return segs, nil
}

var _ Store = (*MongoStore)(nil)
