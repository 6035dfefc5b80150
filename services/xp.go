package services

import (
	"context"
	"log"
	"time"

	"communityhub/internal/feed"
	"communityhub/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LedgerStore provides the ledger and stats writes behind LogAction
type LedgerStore interface {
	ApplyStatsDelta(ctx context.Context, userID string, delta models.StatsDelta) (models.UserAggregateStats, error)
	SetLevel(ctx context.Context, userID string, level int) error
	InsertAction(ctx context.Context, action models.XPAction) error
	CountActions(ctx context.Context, userID, actionType string, since time.Time) (int64, error)
	LastAction(ctx context.Context, userID, actionType string) (*models.XPAction, error)
	CountActionsSince(ctx context.Context, since time.Time) (int64, error)
	AllowAction(ctx context.Context, userID, actionType string, window time.Duration, max int) (bool, error)
}

// Windowed cap for repeatable actions
const (
	actionRateWindow    = 1 * time.Minute
	maxActionsPerWindow = 10
)

// XPService is the append-only XP ledger. It owns the idempotency and
// anti-abuse rules; callers only see the granted integer. Every failure
// grants 0 rather than surfacing an error.
type XPService struct {
	store  LedgerStore
	levels *LevelConfigService
}

// NewXPService creates the ledger service
func NewXPService(store LedgerStore, levels *LevelConfigService) *XPService {
	return &XPService{store: store, levels: levels}
}

// LogAction grants XP for an action and returns the amount granted.
// Unknown actions, exhausted caps, already-claimed daily/hourly grants and
// storage failures all grant 0.
func (s *XPService) LogAction(ctx context.Context, userID, actionType, description, relatedID string) int {
	xp, ok := models.ActionXP[actionType]
	if !ok {
		log.Printf("Rejecting unknown XP action %q for user %s", actionType, userID)
		return 0
	}

	allowed, streak := s.checkIdempotency(ctx, userID, actionType)
	if !allowed {
		return 0
	}

	delta := models.StatsDelta{XP: xp}
	switch actionType {
	case models.ActionWritePost:
		delta.PostsCount = 1
	case models.ActionCompleteCourse:
		delta.CoursesCompleted = 1
	case models.ActionDailyLogin:
		if streak {
			delta.IncrStreak = true
		} else {
			one := 1
			delta.SetStreak = &one
		}
	}

	stats, err := s.store.ApplyStatsDelta(ctx, userID, delta)
	if err != nil {
		log.Printf("Failed to grant XP for %s/%s: %v", userID, actionType, err)
		return 0
	}

	// Re-derive level from the live threshold table; the persisted level is
	// only a cache of this computation.
	newLevel := s.levels.LevelForXP(stats.TotalXP)
	if newLevel != stats.Level {
		if err := s.store.SetLevel(ctx, userID, newLevel); err != nil {
			log.Printf("Failed to persist level %d for %s: %v", newLevel, userID, err)
		}
	}

	action := models.XPAction{
		ID:          primitive.NewObjectID(),
		UserID:      userID,
		ActionType:  actionType,
		XPGranted:   xp,
		Description: description,
		RelatedID:   relatedID,
		CreatedAt:   time.Now(),
	}
	if err := s.store.InsertAction(ctx, action); err != nil {
		// XP is already granted; the ledger gap is logged but not fatal
		log.Printf("Failed to record XP action for %s/%s: %v", userID, actionType, err)
	}

	if err := feed.PublishChange(feed.TableUserStats, feed.OpUpdate, userID); err != nil {
		log.Printf("Failed to publish stats change: %v", err)
	}
	if err := feed.PublishChange(feed.TableXPActions, feed.OpInsert, action.ID.Hex()); err != nil {
		log.Printf("Failed to publish ledger change: %v", err)
	}

	return xp
}

// checkIdempotency enforces per-action grant rules. The second return value
// reports, for daily logins, whether the streak continues from yesterday.
func (s *XPService) checkIdempotency(ctx context.Context, userID, actionType string) (allowed, streak bool) {
	now := time.Now()

	switch actionType {
	case models.ActionDailyLogin:
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		count, err := s.store.CountActions(ctx, userID, actionType, dayStart)
		if err != nil {
			log.Printf("Failed to check daily login for %s: %v", userID, err)
			return false, false
		}
		if count > 0 {
			return false, false
		}

		last, err := s.store.LastAction(ctx, userID, actionType)
		if err != nil {
			log.Printf("Failed to read last daily login for %s: %v", userID, err)
			return false, false
		}
		if last != nil && last.CreatedAt.After(dayStart.AddDate(0, 0, -1)) {
			return true, true // logged in yesterday, streak continues
		}
		return true, false

	case models.ActionHourlyOnline:
		hourStart := now.Truncate(time.Hour)
		count, err := s.store.CountActions(ctx, userID, actionType, hourStart)
		if err != nil {
			log.Printf("Failed to check hourly grant for %s: %v", userID, err)
			return false, false
		}
		return count == 0, false

	default:
		ok, err := s.store.AllowAction(ctx, userID, actionType, actionRateWindow, maxActionsPerWindow)
		if err != nil {
			log.Printf("Failed to check action cap for %s/%s: %v", userID, actionType, err)
			return false, false
		}
		return ok, false
	}
}

// CountToday returns the number of ledger records since local midnight
func (s *XPService) CountToday(ctx context.Context) int64 {
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	count, err := s.store.CountActionsSince(ctx, dayStart)
	if err != nil {
		log.Printf("Failed to count today's XP actions: %v", err)
		return 0
	}
	return count
}
