package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"communityhub/models"
)

type fakeLedgerStore struct {
	stats       models.UserAggregateStats
	applyErr    error
	lastDeltas  []models.StatsDelta
	setLevels   []int
	actions     []models.XPAction
	pastActions []models.XPAction
	allow       bool
}

func newFakeLedgerStore() *fakeLedgerStore {
	return &fakeLedgerStore{allow: true}
}

func (f *fakeLedgerStore) ApplyStatsDelta(ctx context.Context, userID string, delta models.StatsDelta) (models.UserAggregateStats, error) {
	if f.applyErr != nil {
		return models.UserAggregateStats{}, f.applyErr
	}
	f.lastDeltas = append(f.lastDeltas, delta)
	f.stats.UserID = userID
	f.stats.TotalXP += delta.XP
	if f.stats.Level == 0 {
		f.stats.Level = 1
	}
	return f.stats, nil
}

func (f *fakeLedgerStore) SetLevel(ctx context.Context, userID string, level int) error {
	f.setLevels = append(f.setLevels, level)
	return nil
}

func (f *fakeLedgerStore) InsertAction(ctx context.Context, action models.XPAction) error {
	f.actions = append(f.actions, action)
	return nil
}

func (f *fakeLedgerStore) CountActions(ctx context.Context, userID, actionType string, since time.Time) (int64, error) {
	var count int64
	for _, action := range f.pastActions {
		if action.UserID == userID && action.ActionType == actionType && !action.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeLedgerStore) LastAction(ctx context.Context, userID, actionType string) (*models.XPAction, error) {
	var last *models.XPAction
	for i := range f.pastActions {
		action := f.pastActions[i]
		if action.UserID != userID || action.ActionType != actionType {
			continue
		}
		if last == nil || action.CreatedAt.After(last.CreatedAt) {
			last = &f.pastActions[i]
		}
	}
	return last, nil
}

func (f *fakeLedgerStore) CountActionsSince(ctx context.Context, since time.Time) (int64, error) {
	return int64(len(f.pastActions)), nil
}

func (f *fakeLedgerStore) AllowAction(ctx context.Context, userID, actionType string, window time.Duration, max int) (bool, error) {
	return f.allow, nil
}

func newXPFixture() (*XPService, *fakeLedgerStore) {
	store := newFakeLedgerStore()
	levels := NewLevelConfigService(&fakeThresholdStore{thresholds: testThresholds()})
	levels.Reload(context.Background())
	return NewXPService(store, levels), store
}

func TestLogActionUnknownType(t *testing.T) {
	svc, store := newXPFixture()

	if got := svc.LogAction(context.Background(), "u1", "teleport", "", ""); got != 0 {
		t.Errorf("Expected 0 XP for unknown action, got %d", got)
	}
	if len(store.actions) != 0 {
		t.Error("Expected no ledger record for unknown action")
	}
}

func TestLogActionGrantsAndRecords(t *testing.T) {
	svc, store := newXPFixture()

	got := svc.LogAction(context.Background(), "u1", models.ActionComment, "Commented", "post-1")
	if got != models.ActionXP[models.ActionComment] {
		t.Errorf("Expected %d XP, got %d", models.ActionXP[models.ActionComment], got)
	}
	if len(store.actions) != 1 {
		t.Fatalf("Expected 1 ledger record, got %d", len(store.actions))
	}
	action := store.actions[0]
	if action.ActionType != models.ActionComment || action.XPGranted != got || action.RelatedID != "post-1" {
		t.Errorf("Unexpected ledger record: %+v", action)
	}
}

func TestLogActionRecomputesLevel(t *testing.T) {
	svc, store := newXPFixture()
	store.stats = models.UserAggregateStats{TotalXP: 950, Level: 1}

	// 950 + 100 crosses the 1000 XP threshold for level 2
	svc.LogAction(context.Background(), "u1", models.ActionCompleteCourse, "", "")

	if len(store.setLevels) != 1 || store.setLevels[0] != 2 {
		t.Errorf("Expected level 2 to be persisted, got %v", store.setLevels)
	}
	if len(store.lastDeltas) != 1 || store.lastDeltas[0].CoursesCompleted != 1 {
		t.Errorf("Expected courses-completed increment, got %v", store.lastDeltas)
	}
}

func TestLogActionWritePostCountsPost(t *testing.T) {
	svc, store := newXPFixture()

	svc.LogAction(context.Background(), "u1", models.ActionWritePost, "", "")

	if len(store.lastDeltas) != 1 || store.lastDeltas[0].PostsCount != 1 {
		t.Errorf("Expected posts-count increment, got %v", store.lastDeltas)
	}
}

func TestDailyLoginOncePerDay(t *testing.T) {
	svc, store := newXPFixture()
	store.pastActions = []models.XPAction{
		{UserID: "u1", ActionType: models.ActionDailyLogin, CreatedAt: time.Now().Add(-time.Hour)},
	}

	if got := svc.LogAction(context.Background(), "u1", models.ActionDailyLogin, "", ""); got != 0 {
		t.Errorf("Expected 0 XP for second daily login, got %d", got)
	}
}

func TestDailyLoginStreak(t *testing.T) {
	svc, store := newXPFixture()

	// First login ever starts the streak at 1
	svc.LogAction(context.Background(), "u1", models.ActionDailyLogin, "", "")
	if len(store.lastDeltas) != 1 {
		t.Fatalf("Expected 1 delta, got %d", len(store.lastDeltas))
	}
	if store.lastDeltas[0].SetStreak == nil || *store.lastDeltas[0].SetStreak != 1 {
		t.Errorf("Expected streak reset to 1, got %+v", store.lastDeltas[0])
	}

	// A login yesterday continues the streak
	store.lastDeltas = nil
	store.pastActions = []models.XPAction{
		{UserID: "u1", ActionType: models.ActionDailyLogin, CreatedAt: time.Now().Add(-24 * time.Hour)},
	}
	svc.LogAction(context.Background(), "u1", models.ActionDailyLogin, "", "")
	if len(store.lastDeltas) != 1 || !store.lastDeltas[0].IncrStreak {
		t.Errorf("Expected streak increment for consecutive login, got %v", store.lastDeltas)
	}

	// A login three days ago resets the streak
	store.lastDeltas = nil
	store.pastActions = []models.XPAction{
		{UserID: "u1", ActionType: models.ActionDailyLogin, CreatedAt: time.Now().Add(-72 * time.Hour)},
	}
	svc.LogAction(context.Background(), "u1", models.ActionDailyLogin, "", "")
	if len(store.lastDeltas) != 1 || store.lastDeltas[0].SetStreak == nil || *store.lastDeltas[0].SetStreak != 1 {
		t.Errorf("Expected streak reset after gap, got %v", store.lastDeltas)
	}
}

func TestHourlyOnlineOncePerHour(t *testing.T) {
	svc, store := newXPFixture()
	store.pastActions = []models.XPAction{
		{UserID: "u1", ActionType: models.ActionHourlyOnline, CreatedAt: time.Now()},
	}

	if got := svc.LogAction(context.Background(), "u1", models.ActionHourlyOnline, "", ""); got != 0 {
		t.Errorf("Expected 0 XP within the same hour, got %d", got)
	}
}

func TestLogActionRespectsCap(t *testing.T) {
	svc, store := newXPFixture()
	store.allow = false

	if got := svc.LogAction(context.Background(), "u1", models.ActionLike, "", ""); got != 0 {
		t.Errorf("Expected 0 XP when cap exhausted, got %d", got)
	}
}

func TestLogActionStorageFailureGrantsZero(t *testing.T) {
	svc, store := newXPFixture()
	store.applyErr = errors.New("connection reset")

	if got := svc.LogAction(context.Background(), "u1", models.ActionShare, "", ""); got != 0 {
		t.Errorf("Expected 0 XP on storage failure, got %d", got)
	}
}
