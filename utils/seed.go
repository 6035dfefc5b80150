package utils

import (
	"context"
	"log"
	"time"

	"communityhub/db"
	"communityhub/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SeedLevelThresholds inserts the default level table when none exists
func SeedLevelThresholds() {
	collection := db.GetCollection(db.LevelThresholdsCollection)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		log.Printf("Failed to check level thresholds: %v", err)
		return
	}
	if count > 0 {
		return
	}

	now := time.Now()
	thresholds := []interface{}{
		models.LevelThreshold{LevelNumber: 1, RequiredXP: 0, DisplayName: "Newcomer", Color: "#9ca3af", Icon: "seedling", UpdatedAt: now},
		models.LevelThreshold{LevelNumber: 2, RequiredXP: 100, DisplayName: "Explorer", Color: "#60a5fa", Icon: "compass", UpdatedAt: now},
		models.LevelThreshold{LevelNumber: 3, RequiredXP: 300, DisplayName: "Contributor", Color: "#34d399", Icon: "pencil", UpdatedAt: now},
		models.LevelThreshold{LevelNumber: 4, RequiredXP: 700, DisplayName: "Mentor", Color: "#fbbf24", Icon: "torch", UpdatedAt: now},
		models.LevelThreshold{LevelNumber: 5, RequiredXP: 1500, DisplayName: "Scholar", Color: "#f97316", Icon: "scroll", UpdatedAt: now},
		models.LevelThreshold{LevelNumber: 6, RequiredXP: 3000, DisplayName: "Sage", Color: "#a78bfa", Icon: "owl", UpdatedAt: now},
		models.LevelThreshold{LevelNumber: 7, RequiredXP: 6000, DisplayName: "Legend", Color: "#f43f5e", Icon: "crown", UpdatedAt: now},
	}

	if _, err := collection.InsertMany(ctx, thresholds); err != nil {
		log.Printf("Failed to seed level thresholds: %v", err)
		return
	}
	log.Printf("Seeded %d level thresholds", len(thresholds))
}

// PopulateTestUsers inserts sample users into the database
func PopulateTestUsers() {
	collection := db.GetCollection(db.UsersCollection)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		log.Printf("Failed to check users: %v", err)
		return
	}
	if count > 0 {
		return
	}

	users := []models.UserProfile{
		{
			ID:          primitive.NewObjectID(),
			Email:       "alice@example.com",
			DisplayName: "Alice Johnson",
			Bio:         "Lifelong learner",
			CreatedAt:   time.Now(),
		},
		{
			ID:          primitive.NewObjectID(),
			Email:       "bob@example.com",
			DisplayName: "Bob Smith",
			Bio:         "Course collector",
			CreatedAt:   time.Now(),
		},
		{
			ID:          primitive.NewObjectID(),
			Email:       "carol@example.com",
			DisplayName: "Carol Davis",
			Bio:         "Community regular",
			CreatedAt:   time.Now(),
		},
	}

	docs := make([]interface{}, 0, len(users))
	for _, user := range users {
		docs = append(docs, user)
	}
	if _, err := collection.InsertMany(ctx, docs); err != nil {
		log.Printf("Failed to seed users: %v", err)
		return
	}
	log.Printf("Seeded %d users", len(users))
}
