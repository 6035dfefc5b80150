package feed

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Tables the aggregator watches. Every insert/update/delete on one of these
// produces a ChangeEvent on the table's stream.
const (
	TableUserStats       = "user_stats"
	TableXPActions       = "xp_actions"
	TablePosts           = "posts"
	TableLevelThresholds = "level_thresholds"
)

// WatchedTables lists every stream the consumer subscribes to
var WatchedTables = []string{
	TableUserStats,
	TableXPActions,
	TablePosts,
	TableLevelThresholds,
}

// Change operations
const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// ChangeEvent is a row-level change notification published to a table's stream
type ChangeEvent struct {
	EventID   string `json:"eventId"`
	Table     string `json:"table"`
	Op        string `json:"op"`
	DocID     string `json:"docId,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// NewChangeEvent creates a change event with a fresh ID and timestamp
func NewChangeEvent(table, op, docID string) *ChangeEvent {
	return &ChangeEvent{
		EventID:   uuid.NewString(),
		Table:     table,
		Op:        op,
		DocID:     docID,
		Timestamp: time.Now().Unix(),
	}
}

// MarshalEvent marshals an event to JSON string for the Redis Stream
func MarshalEvent(event *ChangeEvent) (string, error) {
	b, err := json.Marshal(event)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalEvent unmarshals a JSON string to a ChangeEvent
func UnmarshalEvent(data string) (*ChangeEvent, error) {
	var event ChangeEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return nil, err
	}
	return &event, nil
}
