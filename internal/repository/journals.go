package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AnshRaj112/calmsteps-backend/internal/apierr"
	"github.com/AnshRaj112/calmsteps-backend/internal/models"
)

const (
	moodCollection    = "mood_entries"
	thoughtCollection = "thought_records"
)

// JournalRepository stores mood check-ins and thought records in MongoDB.
type JournalRepository struct {
	db *mongo.Database
}

func NewJournalRepository(db *mongo.Database) *JournalRepository {
	return &JournalRepository{db: db}
}

// EnsureIndexes configures indexes for both collections.
// Called on startup from main after Mongo has connected.
func (r *JournalRepository) EnsureIndexes(ctx context.Context) error {
	if _, err := r.db.Collection(moodCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id_string", Value: 1}, {Key: "entry_date", Value: -1}},
		Options: options.Index().SetName("idx_user_entry_date").SetUnique(true),
	}); err != nil {
		return err
	}
	_, err := r.db.Collection(thoughtCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id_string", Value: 1}, {Key: "created_at", Value: -1}},
		Options: options.Index().SetName("idx_user_created"),
	})
	return err
}

// SaveMood writes the entry for (user, entryDate). An existing entry for the
// same day is updated in place rather than duplicated. The stored entry is returned.
func (r *JournalRepository) SaveMood(ctx context.Context, e models.MoodEntry) (models.MoodEntry, error) {
	col := r.db.Collection(moodCollection)
	now := time.Now().UTC()

	var existing models.MoodEntry
	err := col.FindOne(ctx, bson.M{"user_id_string": e.UserIDString, "entry_date": e.EntryDate}).Decode(&existing)
	switch {
	case err == nil:
		e.ID = existing.ID
		e.CreatedAt = existing.CreatedAt
		e.UpdatedAt = now
		_, err = col.UpdateByID(ctx, existing.ID, bson.M{"$set": bson.M{
			"mood":       e.Mood,
			"anxiety":    e.Anxiety,
			"sleep":      e.Sleep,
			"notes":      e.Notes,
			"updated_at": now,
		}})
		return e, err
	case errors.Is(err, mongo.ErrNoDocuments):
		e.ID = primitive.NewObjectID()
		e.CreatedAt = now
		e.UpdatedAt = now
		_, err = col.InsertOne(ctx, e)
		if mongo.IsDuplicateKeyError(err) {
			// Lost a race with a concurrent first write for the same day.
			return r.SaveMood(ctx, e)
		}
		return e, err
	default:
		return models.MoodEntry{}, err
	}
}

// ListMoods returns the user's most recent entries, newest day first.
func (r *JournalRepository) ListMoods(ctx context.Context, userID string, limit int64) ([]models.MoodEntry, error) {
	if limit <= 0 || limit > 366 {
		limit = 30
	}
	opts := options.Find().SetSort(bson.D{{Key: "entry_date", Value: -1}}).SetLimit(limit)
	cur, err := r.db.Collection(moodCollection).Find(ctx, bson.M{"user_id_string": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.MoodEntry{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *JournalRepository) InsertThought(ctx context.Context, t models.ThoughtRecord) (models.ThoughtRecord, error) {
	now := time.Now().UTC()
	t.ID = primitive.NewObjectID()
	t.CreatedAt = now
	t.UpdatedAt = now
	_, err := r.db.Collection(thoughtCollection).InsertOne(ctx, t)
	return t, err
}

// ListThoughts returns a page of thought records, newest first.
func (r *JournalRepository) ListThoughts(ctx context.Context, userID string, page, limit int64) ([]models.ThoughtRecord, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	col := r.db.Collection(thoughtCollection)
	filter := bson.M{"user_id_string": userID}

	total, err := col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)
	cur, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	out := []models.ThoughtRecord{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// DeleteThought removes a record owned by userID. Missing and foreign records
// are both apierr.ErrNotFound.
func (r *JournalRepository) DeleteThought(ctx context.Context, userID, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("thought record id: %w", apierr.ErrNotFound)
	}
	res, err := r.db.Collection(thoughtCollection).DeleteOne(ctx, bson.M{"_id": oid, "user_id_string": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("thought record %s: %w", id, apierr.ErrNotFound)
	}
	return nil
}
