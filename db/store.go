package db

import (
	"context"
	"time"

	"communityhub/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore exposes the reads and writes the leaderboard and XP services
// need. It is the concrete implementation behind the service-level
// interfaces so tests can substitute fakes.
type MongoStore struct {
	db *mongo.Database
}

// NewMongoStore creates a MongoStore backed by the connected database
func NewMongoStore() *MongoStore {
	return &MongoStore{db: MongoDatabase}
}

// FetchProfiles returns every user profile
func (s *MongoStore) FetchProfiles(ctx context.Context) ([]models.UserProfile, error) {
	cursor, err := s.db.Collection(UsersCollection).Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var profiles []models.UserProfile
	if err := cursor.All(ctx, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// FetchStats returns every aggregate stats row
func (s *MongoStore) FetchStats(ctx context.Context) ([]models.UserAggregateStats, error) {
	cursor, err := s.db.Collection(UserStatsCollection).Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var stats []models.UserAggregateStats
	if err := cursor.All(ctx, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// FetchPublicPostAuthors returns the author ID of every public post, one
// element per post, for client-side counting
func (s *MongoStore) FetchPublicPostAuthors(ctx context.Context) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"userId": 1})
	cursor, err := s.db.Collection(PostsCollection).Find(ctx, bson.M{"visibility": models.PostVisibilityPublic}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		UserID string `bson:"userId"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	authors := make([]string, 0, len(rows))
	for _, row := range rows {
		authors = append(authors, row.UserID)
	}
	return authors, nil
}

// FetchThresholds returns all level thresholds ordered by level number
func (s *MongoStore) FetchThresholds(ctx context.Context) ([]models.LevelThreshold, error) {
	opts := options.Find().SetSort(bson.D{{Key: "levelNumber", Value: 1}})
	cursor, err := s.db.Collection(LevelThresholdsCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var thresholds []models.LevelThreshold
	if err := cursor.All(ctx, &thresholds); err != nil {
		return nil, err
	}
	return thresholds, nil
}

// ApplyStatsDelta upserts a user's aggregate stats row and returns the row
// after the update
func (s *MongoStore) ApplyStatsDelta(ctx context.Context, userID string, delta models.StatsDelta) (models.UserAggregateStats, error) {
	now := time.Now()

	inc := bson.M{"totalXp": delta.XP}
	if delta.PostsCount != 0 {
		inc["postsCount"] = delta.PostsCount
	}
	if delta.CoursesCompleted != 0 {
		inc["coursesCompleted"] = delta.CoursesCompleted
	}
	if delta.IncrStreak {
		inc["currentStreak"] = 1
	}

	set := bson.M{"lastActivity": now, "updatedAt": now}
	if delta.SetStreak != nil {
		set["currentStreak"] = *delta.SetStreak
	}

	update := bson.M{
		"$inc":         inc,
		"$set":         set,
		"$setOnInsert": bson.M{"userId": userID, "level": 1},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var stats models.UserAggregateStats
	err := s.db.Collection(UserStatsCollection).
		FindOneAndUpdate(ctx, bson.M{"userId": userID}, update, opts).
		Decode(&stats)
	if err != nil {
		return models.UserAggregateStats{}, err
	}
	return stats, nil
}

// SetLevel persists the level derived from a user's total XP
func (s *MongoStore) SetLevel(ctx context.Context, userID string, level int) error {
	_, err := s.db.Collection(UserStatsCollection).UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{"$set": bson.M{"level": level}})
	return err
}

// InsertAction appends a record to the XP ledger
func (s *MongoStore) InsertAction(ctx context.Context, action models.XPAction) error {
	_, err := s.db.Collection(XPActionsCollection).InsertOne(ctx, action)
	return err
}

// CountActions counts a user's ledger records for an action since the given time
func (s *MongoStore) CountActions(ctx context.Context, userID, actionType string, since time.Time) (int64, error) {
	return s.db.Collection(XPActionsCollection).CountDocuments(ctx, bson.M{
		"userId":     userID,
		"actionType": actionType,
		"createdAt":  bson.M{"$gte": since},
	})
}

// LastAction returns a user's most recent ledger record for an action, or
// nil when none exists
func (s *MongoStore) LastAction(ctx context.Context, userID, actionType string) (*models.XPAction, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	var action models.XPAction
	err := s.db.Collection(XPActionsCollection).
		FindOne(ctx, bson.M{"userId": userID, "actionType": actionType}, opts).
		Decode(&action)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &action, nil
}

// CountActionsSince counts all ledger records since the given time,
// regardless of user
func (s *MongoStore) CountActionsSince(ctx context.Context, since time.Time) (int64, error) {
	return s.db.Collection(XPActionsCollection).CountDocuments(ctx, bson.M{
		"createdAt": bson.M{"$gte": since},
	})
}

// AllowAction checks and advances the windowed cap for a repeatable action.
// Returns false when the cap for the current window is exhausted.
func (s *MongoStore) AllowAction(ctx context.Context, userID, actionType string, window time.Duration, max int) (bool, error) {
	collection := s.db.Collection(RateLimitsCollection)
	windowStart := time.Now().Truncate(window)

	filter := bson.M{
		"userId":      userID,
		"action":      actionType,
		"windowStart": windowStart,
	}

	var entry models.RateLimitEntry
	err := collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if err != mongo.ErrNoDocuments {
			return false, err
		}
		newEntry := models.RateLimitEntry{
			UserID:      userID,
			Action:      actionType,
			Count:       1,
			WindowStart: windowStart,
		}
		if _, err := collection.InsertOne(ctx, newEntry); err != nil {
			return false, err
		}
		return true, nil
	}

	if entry.Count >= max {
		return false, nil
	}

	if _, err := collection.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"count": 1}}); err != nil {
		return false, err
	}

	// Clean up stale windows in the background
	go s.cleanupOldRateLimits(window)

	return true, nil
}

// cleanupOldRateLimits removes rate limit entries older than two windows
func (s *MongoStore) cleanupOldRateLimits(window time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-window * 2)
	s.db.Collection(RateLimitsCollection).DeleteMany(ctx, bson.M{"windowStart": bson.M{"$lt": cutoff}})
}
