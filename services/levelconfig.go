package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"

	"communityhub/models"
)

// ThresholdStore fetches the ordered level threshold table
type ThresholdStore interface {
	FetchThresholds(ctx context.Context) ([]models.LevelThreshold, error)
}

// LevelConfigService caches the administrator-managed level thresholds.
// A fetch failure keeps the last-known-good list; callers never see an
// error, only a possibly stale or empty table.
type LevelConfigService struct {
	store ThresholdStore

	mu         sync.RWMutex
	thresholds []models.LevelThreshold // sorted by levelNumber ascending
	byLevel    map[int]models.LevelThreshold
}

// NewLevelConfigService creates the service without loading anything;
// call Reload to populate it.
func NewLevelConfigService(store ThresholdStore) *LevelConfigService {
	return &LevelConfigService{
		store:   store,
		byLevel: make(map[int]models.LevelThreshold),
	}
}

// Reload re-fetches the full threshold table. Invalid or unfetchable
// tables leave the previous one in place.
func (s *LevelConfigService) Reload(ctx context.Context) {
	thresholds, err := s.store.FetchThresholds(ctx)
	if err != nil {
		log.Printf("Failed to fetch level thresholds, keeping previous table: %v", err)
		return
	}

	if err := validateThresholds(thresholds); err != nil {
		log.Printf("Rejecting level threshold table: %v", err)
		return
	}

	byLevel := make(map[int]models.LevelThreshold, len(thresholds))
	for _, t := range thresholds {
		byLevel[t.LevelNumber] = t
	}

	s.mu.Lock()
	s.thresholds = thresholds
	s.byLevel = byLevel
	s.mu.Unlock()
}

// validateThresholds checks ordering and monotonicity. Adjacent levels with
// equal required XP would make progress math divide by zero, so such tables
// are treated as configuration errors.
func validateThresholds(thresholds []models.LevelThreshold) error {
	for i, t := range thresholds {
		if t.LevelNumber < 1 {
			return fmt.Errorf("level number %d must be positive", t.LevelNumber)
		}
		if t.RequiredXP < 0 {
			return fmt.Errorf("level %d has negative required XP", t.LevelNumber)
		}
		if i == 0 {
			continue
		}
		prev := thresholds[i-1]
		if t.LevelNumber <= prev.LevelNumber {
			return fmt.Errorf("level numbers not strictly ascending at level %d", t.LevelNumber)
		}
		if t.RequiredXP <= prev.RequiredXP {
			return fmt.Errorf("required XP not strictly increasing at level %d", t.LevelNumber)
		}
	}
	return nil
}

// Ready reports whether a threshold table has been loaded
func (s *LevelConfigService) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.thresholds) > 0
}

// FetchAll returns the cached thresholds ordered by level number
func (s *LevelConfigService) FetchAll() []models.LevelThreshold {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.LevelThreshold, len(s.thresholds))
	copy(out, s.thresholds)
	return out
}

// GetByLevel returns the threshold for a level, if configured
func (s *LevelConfigService) GetByLevel(level int) (models.LevelThreshold, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.byLevel[level]
	return t, ok
}

// LevelForXP returns the highest configured level whose required XP is
// within the given total. An empty table means level 1.
func (s *LevelConfigService) LevelForXP(totalXP int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	level := 1
	for _, t := range s.thresholds {
		if totalXP >= t.RequiredXP {
			level = t.LevelNumber
		} else {
			break
		}
	}
	return level
}

// ProgressFor computes the 0-100 progress of a user at the given level with
// the given total XP. Absent current level means 0; absent next level means
// the user sits at the configured maximum, which is always 100.
func (s *LevelConfigService) ProgressFor(level, totalXP int) int {
	current, ok := s.GetByLevel(level)
	if !ok {
		return 0
	}
	next, ok := s.GetByLevel(level + 1)
	if !ok {
		return 100
	}

	span := next.RequiredXP - current.RequiredXP
	if span <= 0 {
		// Validation rejects such tables; saturate rather than divide by zero
		return 100
	}

	gained := totalXP - current.RequiredXP
	if gained < 0 {
		gained = 0
	}

	progress := int(math.Round(float64(gained) * 100 / float64(span)))
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	return progress
}
