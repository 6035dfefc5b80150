package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// XP-granting action types
const (
	ActionLike           = "like"
	ActionComment        = "comment"
	ActionShare          = "share"
	ActionCompleteCourse = "complete_course"
	ActionWritePost      = "write_post"
	ActionDailyLogin     = "daily_login"
	ActionHourlyOnline   = "hourly_online"
	ActionSendMessage    = "send_message"
	ActionLessonComplete = "lesson_complete"
)

// ActionXP maps each action type to the XP it grants
var ActionXP = map[string]int{
	ActionLike:           5,
	ActionComment:        10,
	ActionShare:          15,
	ActionCompleteCourse: 100,
	ActionWritePost:      25,
	ActionDailyLogin:     20,
	ActionHourlyOnline:   5,
	ActionSendMessage:    2,
	ActionLessonComplete: 50,
}

// XPAction is an append-only ledger record of a granted action
type XPAction struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID      string             `bson:"userId" json:"userId"`
	ActionType  string             `bson:"actionType" json:"actionType"`
	XPGranted   int                `bson:"xpGranted" json:"xpGranted"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	RelatedID   string             `bson:"relatedId,omitempty" json:"relatedId,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}

// RateLimitEntry tracks windowed caps for repeatable XP actions
type RateLimitEntry struct {
	UserID      string    `bson:"userId" json:"userId"`
	Action      string    `bson:"action" json:"action"`
	Count       int       `bson:"count" json:"count"`
	WindowStart time.Time `bson:"windowStart" json:"windowStart"`
}
