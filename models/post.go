package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post visibility values
const (
	PostVisibilityPublic  = "public"
	PostVisibilityPrivate = "private"
)

// Post defines a community post
type Post struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID     string             `bson:"userId" json:"userId"`
	Title      string             `bson:"title" json:"title"`
	Content    string             `bson:"content" json:"content"`
	Visibility string             `bson:"visibility" json:"visibility"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}
