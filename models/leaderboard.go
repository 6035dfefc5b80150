package models

import "time"

// LeaderboardEntry is a derived row of the ranked board. Recomputed on every
// refresh, never persisted.
type LeaderboardEntry struct {
	UserID           string `json:"userId"`
	Rank             int    `json:"rank"`
	Name             string `json:"name"`
	AvatarURL        string `json:"avatarUrl"`
	XP               int    `json:"xp"`
	Level            int    `json:"level"`
	LevelProgress    int    `json:"levelProgress"` // 0-100
	LevelName        string `json:"levelName"`
	LevelColor       string `json:"levelColor"`
	LevelIcon        string `json:"levelIcon"`
	CoursesCompleted int    `json:"coursesCompleted"`
	Streak           int    `json:"streak"`
	PostsCount       int    `json:"postsCount"`
	IsOnline         bool   `json:"isOnline"`
	CurrentUser      bool   `json:"currentUser,omitempty"`
}

// PresenceRecord is the transient per-viewer record the presence channel
// announces on subscribe
type PresenceRecord struct {
	UserID   string    `json:"userId"`
	OnlineAt time.Time `json:"onlineAt"`
}

// Stat represents a single statistic shown alongside the board
type Stat struct {
	Icon  string `json:"icon"`
	Value string `json:"value"`
	Label string `json:"label"`
}
