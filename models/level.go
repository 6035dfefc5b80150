package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LevelThreshold defines the minimum XP required to reach a level, plus the
// presentation attributes the leaderboard joins in. Administrator-managed.
type LevelThreshold struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	LevelNumber int                `bson:"levelNumber" json:"levelNumber"`
	RequiredXP  int                `bson:"requiredXp" json:"requiredXp"`
	DisplayName string             `bson:"displayName" json:"displayName"`
	Color       string             `bson:"color" json:"color"`
	Icon        string             `bson:"icon" json:"icon"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
