package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserAggregateStats is the per-user denormalized row maintained by the XP
// ledger. One row per user; absent rows mean a brand new member.
type UserAggregateStats struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID           string             `bson:"userId" json:"userId"`
	TotalXP          int                `bson:"totalXp" json:"totalXp"`
	Level            int                `bson:"level" json:"level"`
	PostsCount       int                `bson:"postsCount" json:"postsCount"`
	CoursesCompleted int                `bson:"coursesCompleted" json:"coursesCompleted"`
	CurrentStreak    int                `bson:"currentStreak" json:"currentStreak"`
	LastActivity     *time.Time         `bson:"lastActivity,omitempty" json:"lastActivity,omitempty"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// StatsDelta describes the stats-row mutation a granted XP action applies.
// SetStreak wins over IncrStreak when both are present.
type StatsDelta struct {
	XP               int
	PostsCount       int
	CoursesCompleted int
	IncrStreak       bool
	SetStreak        *int
}
