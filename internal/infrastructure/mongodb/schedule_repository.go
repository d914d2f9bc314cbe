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

// ScheduleRepository implements domain.ScheduleRepository using MongoDB
type ScheduleRepository struct {
	collection *mongo.Collection
	db         *mongo.Database
}

// NewScheduleRepository creates a new ScheduleRepository
func NewScheduleRepository(db *mongo.Database) *ScheduleRepository {
	repo := &ScheduleRepository{
		collection: db.Collection("production_schedules"),
		db:         db,
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *ScheduleRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "scheduleId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "scheduleDate", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "scheduleDate", Value: 1}},
		},
	}

	r.collection.Indexes().CreateMany(ctx, indexes)
}

// Save persists a schedule, upserting by its business key
func (r *ScheduleRepository) Save(ctx context.Context, schedule *domain.ProductionSchedule) error {
	schedule.UpdatedAt = time.Now()

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"scheduleId": schedule.ScheduleID}
	update := bson.M{"$set": schedule}

	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save schedule %s: %w", schedule.ScheduleID, err)
	}

	return nil
}

// FindByID retrieves a schedule by its ID
func (r *ScheduleRepository) FindByID(ctx context.Context, scheduleID string) (*domain.ProductionSchedule, error) {
	filter := bson.M{"scheduleId": scheduleID}

	var schedule domain.ProductionSchedule
	err := r.collection.FindOne(ctx, filter).Decode(&schedule)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}

	return &schedule, nil
}

// FindByDate retrieves the schedule whose date falls on the given calendar day
func (r *ScheduleRepository) FindByDate(ctx context.Context, date time.Time) (*domain.ProductionSchedule, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	filter := bson.M{
		"scheduleDate": bson.M{
			"$gte": dayStart,
			"$lt":  dayEnd,
		},
	}

	var schedule domain.ProductionSchedule
	err := r.collection.FindOne(ctx, filter).Decode(&schedule)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}

	return &schedule, nil
}

// FindByStatus retrieves schedules by status
func (r *ScheduleRepository) FindByStatus(ctx context.Context, status domain.ScheduleStatus) ([]*domain.ProductionSchedule, error) {
	filter := bson.M{"status": status}
	opts := options.Find().SetSort(bson.D{{Key: "scheduleDate", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var schedules []*domain.ProductionSchedule
	if err := cursor.All(ctx, &schedules); err != nil {
		return nil, err
	}

	return schedules, nil
}

// Delete removes a schedule
func (r *ScheduleRepository) Delete(ctx context.Context, scheduleID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"scheduleId": scheduleID})
	return err
}
