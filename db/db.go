package db

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var MongoClient *mongo.Client
var MongoDatabase *mongo.Database

// Collection names used across the service
const (
	UsersCollection           = "users"
	UserStatsCollection       = "user_stats"
	PostsCollection           = "posts"
	XPActionsCollection       = "xp_actions"
	LevelThresholdsCollection = "level_thresholds"
	RateLimitsCollection      = "xp_rate_limits"
)

// GetCollection returns a collection by name
func GetCollection(collectionName string) *mongo.Collection {
	return MongoDatabase.Collection(collectionName)
}

// extractDBName parses the database name from the URI, defaulting to "communityhub"
func extractDBName(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "communityhub"
	}
	if u.Path != "" && u.Path != "/" {
		return u.Path[1:] // Trim leading '/'
	}
	return "communityhub"
}

// ConnectMongoDB establishes a connection to MongoDB using the provided URI
func ConnectMongoDB(uri string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Verify connection with a ping
	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	MongoClient = client
	dbName := extractDBName(uri)
	log.Printf("Using database: %s", dbName)

	MongoDatabase = client.Database(dbName)
	return nil
}

// EnsureIndexes creates the indexes the aggregator and ledger rely on:
// one stats row per user, ledger lookups by user/action/time, and the
// threshold table ordered by level number.
func EnsureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	unique := options.Index().SetUnique(true)

	_, err := MongoDatabase.Collection(UserStatsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: unique,
	})
	if err != nil {
		return fmt.Errorf("failed to index %s: %w", UserStatsCollection, err)
	}

	_, err = MongoDatabase.Collection(XPActionsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "actionType", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to index %s: %w", XPActionsCollection, err)
	}

	_, err = MongoDatabase.Collection(LevelThresholdsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "levelNumber", Value: 1}},
		Options: unique,
	})
	if err != nil {
		return fmt.Errorf("failed to index %s: %w", LevelThresholdsCollection, err)
	}

	_, err = MongoDatabase.Collection(PostsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "visibility", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to index %s: %w", PostsCollection, err)
	}

	return nil
}
