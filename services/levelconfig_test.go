package services

import (
	"context"
	"errors"
	"testing"

	"communityhub/models"
)

type fakeThresholdStore struct {
	thresholds []models.LevelThreshold
	err        error
}

func (f *fakeThresholdStore) FetchThresholds(ctx context.Context) ([]models.LevelThreshold, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.thresholds, nil
}

func testThresholds() []models.LevelThreshold {
	return []models.LevelThreshold{
		{LevelNumber: 1, RequiredXP: 0, DisplayName: "Newcomer"},
		{LevelNumber: 2, RequiredXP: 1000, DisplayName: "Explorer"},
		{LevelNumber: 3, RequiredXP: 2500, DisplayName: "Scholar"},
	}
}

func TestLevelConfigReload(t *testing.T) {
	store := &fakeThresholdStore{thresholds: testThresholds()}
	svc := NewLevelConfigService(store)

	if svc.Ready() {
		t.Error("Expected service not ready before first reload")
	}

	svc.Reload(context.Background())

	if !svc.Ready() {
		t.Fatal("Expected service ready after reload")
	}
	if got := len(svc.FetchAll()); got != 3 {
		t.Errorf("Expected 3 thresholds, got %d", got)
	}

	threshold, ok := svc.GetByLevel(2)
	if !ok {
		t.Fatal("Expected level 2 to be configured")
	}
	if threshold.RequiredXP != 1000 {
		t.Errorf("Expected level 2 to require 1000 XP, got %d", threshold.RequiredXP)
	}
	if _, ok := svc.GetByLevel(9); ok {
		t.Error("Expected level 9 to be absent")
	}
}

func TestLevelConfigKeepsLastGoodOnFetchFailure(t *testing.T) {
	store := &fakeThresholdStore{thresholds: testThresholds()}
	svc := NewLevelConfigService(store)
	svc.Reload(context.Background())

	store.err = errors.New("connection reset")
	svc.Reload(context.Background())

	if !svc.Ready() {
		t.Error("Expected service to keep last-known-good table after fetch failure")
	}
	if got := len(svc.FetchAll()); got != 3 {
		t.Errorf("Expected stale table with 3 thresholds, got %d", got)
	}
}

func TestLevelConfigRejectsNonIncreasingXP(t *testing.T) {
	store := &fakeThresholdStore{thresholds: testThresholds()}
	svc := NewLevelConfigService(store)
	svc.Reload(context.Background())

	// Equal required XP on adjacent levels would divide progress by zero
	store.thresholds = []models.LevelThreshold{
		{LevelNumber: 1, RequiredXP: 0},
		{LevelNumber: 2, RequiredXP: 1000},
		{LevelNumber: 3, RequiredXP: 1000},
	}
	svc.Reload(context.Background())

	threshold, ok := svc.GetByLevel(3)
	if !ok {
		t.Fatal("Expected previous table to survive rejected reload")
	}
	if threshold.RequiredXP != 2500 {
		t.Errorf("Expected previous level 3 threshold 2500, got %d", threshold.RequiredXP)
	}
}

func TestLevelForXP(t *testing.T) {
	store := &fakeThresholdStore{thresholds: testThresholds()}
	svc := NewLevelConfigService(store)
	svc.Reload(context.Background())

	cases := []struct {
		xp   int
		want int
	}{
		{0, 1},
		{999, 1},
		{1000, 2},
		{2499, 2},
		{2500, 3},
		{99999, 3},
	}
	for _, c := range cases {
		if got := svc.LevelForXP(c.xp); got != c.want {
			t.Errorf("LevelForXP(%d) = %d, want %d", c.xp, got, c.want)
		}
	}

	empty := NewLevelConfigService(&fakeThresholdStore{})
	if got := empty.LevelForXP(5000); got != 1 {
		t.Errorf("Expected level 1 with empty table, got %d", got)
	}
}

func TestProgressFor(t *testing.T) {
	store := &fakeThresholdStore{thresholds: testThresholds()}
	svc := NewLevelConfigService(store)
	svc.Reload(context.Background())

	// 1500 XP at level 2: round(100 * (1500-1000) / (2500-1000)) = 33
	if got := svc.ProgressFor(2, 1500); got != 33 {
		t.Errorf("Expected progress 33, got %d", got)
	}

	// Max configured level always saturates at 100
	if got := svc.ProgressFor(3, 2500); got != 100 {
		t.Errorf("Expected progress 100 at max level, got %d", got)
	}

	// Unconfigured level means unknown, 0
	if got := svc.ProgressFor(9, 5000); got != 0 {
		t.Errorf("Expected progress 0 for unconfigured level, got %d", got)
	}

	// XP below the current threshold clamps to 0
	if got := svc.ProgressFor(2, 500); got != 0 {
		t.Errorf("Expected progress 0 below threshold, got %d", got)
	}

	// Bounds hold across the whole XP range
	for xp := 0; xp <= 3000; xp += 100 {
		for level := 1; level <= 3; level++ {
			p := svc.ProgressFor(level, xp)
			if p < 0 || p > 100 {
				t.Errorf("ProgressFor(%d, %d) = %d out of bounds", level, xp, p)
			}
		}
	}
}
