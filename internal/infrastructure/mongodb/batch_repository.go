package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bakehouse-platform/production-service/internal/domain"
)

// BatchRepository implements domain.BatchRepository using MongoDB
type BatchRepository struct {
	collection *mongo.Collection
	db         *mongo.Database
}

// NewBatchRepository creates a new BatchRepository
func NewBatchRepository(db *mongo.Database) *BatchRepository {
	repo := &BatchRepository{
		collection: db.Collection("production_batches"),
		db:         db,
	}
	repo.ensureIndexes(context.Background())
	return repo
}

// ensureIndexes creates the necessary indexes
func (r *BatchRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "batchId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "scheduleId", Value: 1}, {Key: "plannedStart", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "plannedStart", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "workflowId", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "createdAt", Value: -1}},
		},
	}

	r.collection.Indexes().CreateMany(ctx, indexes)
}

// Save persists a batch, upserting by its business key
func (r *BatchRepository) Save(ctx context.Context, batch *domain.ProductionBatch) error {
	batch.UpdatedAt = time.Now()

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"batchId": batch.BatchID}
	update := bson.M{"$set": batch}

	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save batch %s: %w", batch.BatchID, err)
	}

	return nil
}

// FindByID retrieves a batch by its ID
func (r *BatchRepository) FindByID(ctx context.Context, batchID string) (*domain.ProductionBatch, error) {
	filter := bson.M{"batchId": batchID}

	var batch domain.ProductionBatch
	err := r.collection.FindOne(ctx, filter).Decode(&batch)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}

	return &batch, nil
}

// FindByScheduleID retrieves all batches belonging to a schedule
func (r *BatchRepository) FindByScheduleID(ctx context.Context, scheduleID string) ([]*domain.ProductionBatch, error) {
	filter := bson.M{"scheduleId": scheduleID}
	opts := options.Find().SetSort(bson.D{{Key: "plannedStart", Value: 1}})

	return r.findMany(ctx, filter, opts)
}

// FindByStatus retrieves batches by status
func (r *BatchRepository) FindByStatus(ctx context.Context, status domain.BatchStatus) ([]*domain.ProductionBatch, error) {
	filter := bson.M{"status": status}
	opts := options.Find().SetSort(bson.D{{Key: "plannedStart", Value: 1}})

	return r.findMany(ctx, filter, opts)
}

// FindActive retrieves batches that are currently executing or blocked
func (r *BatchRepository) FindActive(ctx context.Context) ([]*domain.ProductionBatch, error) {
	filter := bson.M{
		"status": bson.M{
			"$in": []domain.BatchStatus{domain.BatchStatusInProgress, domain.BatchStatusWaiting},
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "plannedStart", Value: 1}})

	return r.findMany(ctx, filter, opts)
}

// Delete removes a batch
func (r *BatchRepository) Delete(ctx context.Context, batchID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"batchId": batchID})
	return err
}

// Count returns the number of batches matching a status
func (r *BatchRepository) Count(ctx context.Context, status domain.BatchStatus) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"status": status})
}

func (r *BatchRepository) findMany(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.ProductionBatch, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var batches []*domain.ProductionBatch
	if err := cursor.All(ctx, &batches); err != nil {
		return nil, err
	}

	return batches, nil
}
