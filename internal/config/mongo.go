package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson" // Use bson for index keys
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Test connection
	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	// Create indexes
	err = createIndexes(client, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexes: %v", err)
	}

	return client, nil
}

func createIndexes(client *mongo.Client, dbName string) error {
	db := client.Database(dbName)

	// Segments collection indexes: the reconciliation sweep scans by
	// dataset and batch stamp, retrieval resolves chunk ids back to
	// their segment.
	segmentsCollection := db.Collection("segments")
	segmentIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "dataset_name", Value: 1}, {Key: "batch_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "chunk_ids", Value: 1}},
		},
	}
	_, err := segmentsCollection.Indexes().CreateMany(context.Background(), segmentIndexes)
	if err != nil {
		return err
	}

	// Chunks collection indexes
	chunksCollection := db.Collection("chunks")
	chunkIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "segment_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "segment_id", Value: 1}, {Key: "chain_order", Value: 1}},
		},
	}
	_, err = chunksCollection.Indexes().CreateMany(context.Background(), chunkIndexes)
	if err != nil {
		return err
	}

	// Batches collection indexes
	batchesCollection := db.Collection("batches")
	batchIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "dataset_name", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
	}
	_, err = batchesCollection.Indexes().CreateMany(context.Background(), batchIndexes)
	if err != nil {
		return err
	}

	// Categories collection indexes
	categoriesCollection := db.Collection("categories")
	categoryIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "segment_id", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "segment_id", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err = categoriesCollection.Indexes().CreateMany(context.Background(), categoryIndexes)
	if err != nil {
		return err
	}

	return nil
}
