package services

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"communityhub/internal/feed"
	"communityhub/models"
	"communityhub/utils"
)

// ErrConfigNotReady is returned while the level threshold table is still
// empty. No board is produced at all rather than one with wrong progress.
var ErrConfigNotReady = errors.New("level configuration not loaded")

// Store provides the bulk reads a refresh joins together
type Store interface {
	FetchProfiles(ctx context.Context) ([]models.UserProfile, error)
	FetchStats(ctx context.Context) ([]models.UserAggregateStats, error)
	FetchPublicPostAuthors(ctx context.Context) ([]string, error)
}

const refreshTimeout = 10 * time.Second

// LeaderboardService owns the rendered board. Only Refresh replaces it,
// always wholesale. Change-feed events and presence changes both funnel
// through RequestRefresh, which runs at most one refresh at a time with at
// most one queued follow-up.
type LeaderboardService struct {
	store  Store
	levels *LevelConfigService

	mu      sync.Mutex
	entries []models.LeaderboardEntry
	online  map[string]bool // last authoritative presence set

	// refresh coalescing state
	gen            uint64
	appliedGen     uint64
	refreshing     bool
	queued         bool
	queuedOnline   map[string]bool
	queuedPresence bool
	closed         bool

	notify func([]models.LeaderboardEntry)
}

// NewLeaderboardService creates the aggregator
func NewLeaderboardService(store Store, levels *LevelConfigService) *LeaderboardService {
	return &LeaderboardService{
		store:  store,
		levels: levels,
		online: make(map[string]bool),
	}
}

// SetNotify registers a callback invoked with a copy of the board after
// every applied refresh
func (s *LeaderboardService) SetNotify(fn func([]models.LeaderboardEntry)) {
	s.mu.Lock()
	s.notify = fn
	s.mu.Unlock()
}

// Ready reports whether the aggregator can produce a board
func (s *LeaderboardService) Ready() bool {
	return s.levels.Ready()
}

// Entries returns a copy of the current board
func (s *LeaderboardService) Entries() []models.LeaderboardEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.LeaderboardEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// RequestRefresh schedules a refresh. A nil online set means the trigger was
// a data change and prior online flags are preserved; a non-nil set comes
// from the presence channel and fully replaces them. Overlapping requests
// coalesce into a single queued follow-up.
func (s *LeaderboardService) RequestRefresh(online map[string]bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if online != nil {
		s.queuedOnline = online
		s.queuedPresence = true
	}
	if s.refreshing {
		s.queued = true
		s.mu.Unlock()
		return
	}
	s.refreshing = true
	s.mu.Unlock()

	go s.refreshLoop()
}

// refreshLoop drains queued refresh requests one at a time
func (s *LeaderboardService) refreshLoop() {
	for {
		s.mu.Lock()
		var online map[string]bool
		if s.queuedPresence {
			online = s.queuedOnline
			s.queuedOnline = nil
			s.queuedPresence = false
		}
		s.queued = false
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		if _, err := s.Refresh(ctx, online); err != nil && err != ErrConfigNotReady {
			log.Printf("Leaderboard refresh failed, keeping previous board: %v", err)
		}
		cancel()

		s.mu.Lock()
		if !s.queued || s.closed {
			s.refreshing = false
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
	}
}

// Refresh runs one full aggregation pass: fetch profiles, stats and public
// post authors concurrently, join them against the level table, sort by XP
// descending and install the result. Any fetch error aborts the pass and
// keeps the previous board. A pass that loses the generation race to a
// fresher one is discarded.
func (s *LeaderboardService) Refresh(ctx context.Context, online map[string]bool) ([]models.LeaderboardEntry, error) {
	if !s.levels.Ready() {
		return nil, ErrConfigNotReady
	}

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	var (
		profiles []models.UserProfile
		stats    []models.UserAggregateStats
		authors  []string

		errProfiles, errStats, errPosts error
	)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		profiles, errProfiles = s.store.FetchProfiles(ctx)
	}()
	go func() {
		defer wg.Done()
		stats, errStats = s.store.FetchStats(ctx)
	}()
	go func() {
		defer wg.Done()
		authors, errPosts = s.store.FetchPublicPostAuthors(ctx)
	}()
	wg.Wait()

	for _, err := range []error{errProfiles, errStats, errPosts} {
		if err != nil {
			return s.Entries(), err
		}
	}

	postCounts := make(map[string]int)
	for _, author := range authors {
		postCounts[author]++
	}

	statsByUser := make(map[string]models.UserAggregateStats, len(stats))
	for _, st := range stats {
		statsByUser[st.UserID] = st
	}

	entries := make([]models.LeaderboardEntry, 0, len(profiles))
	for _, profile := range profiles {
		userID := profile.ID.Hex()

		st, ok := statsByUser[userID]
		if !ok {
			// No stats row yet: brand new member, zero-valued defaults
			st = models.UserAggregateStats{UserID: userID, Level: 1}
		}
		level := st.Level
		if level < 1 {
			level = 1
		}

		name := profile.DisplayName
		if name == "" {
			name = utils.ExtractNameFromEmail(profile.Email)
		}
		avatarURL := profile.AvatarURL
		if avatarURL == "" {
			avatarURL = utils.FallbackAvatarURL(name)
		}

		entry := models.LeaderboardEntry{
			UserID:           userID,
			Name:             name,
			AvatarURL:        avatarURL,
			XP:               st.TotalXP,
			Level:            level,
			LevelProgress:    s.levels.ProgressFor(level, st.TotalXP),
			CoursesCompleted: st.CoursesCompleted,
			Streak:           st.CurrentStreak,
			PostsCount:       postCounts[userID],
		}

		if cfg, ok := s.levels.GetByLevel(level); ok {
			entry.LevelName = cfg.DisplayName
			entry.LevelColor = cfg.Color
			entry.LevelIcon = cfg.Icon
		}

		entries = append(entries, entry)
	}

	// Stable sort keeps input order for ties
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].XP > entries[j].XP
	})

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return entries, nil
	}
	if gen < s.appliedGen {
		// A fresher pass already landed; drop this one
		current := make([]models.LeaderboardEntry, len(s.entries))
		copy(current, s.entries)
		s.mu.Unlock()
		return current, nil
	}
	s.appliedGen = gen

	if online != nil {
		s.online = make(map[string]bool, len(online))
		for id, on := range online {
			s.online[id] = on
		}
	}
	for i := range entries {
		entries[i].IsOnline = s.online[entries[i].UserID]
		entries[i].Rank = i + 1
	}

	s.entries = entries
	notify := s.notify
	s.mu.Unlock()

	if notify != nil {
		out := make([]models.LeaderboardEntry, len(entries))
		copy(out, entries)
		notify(out)
	}
	return entries, nil
}

// HandleChange implements feed.ChangeHandler. Threshold-table changes
// invalidate the level cache first; every change ends in a data-triggered
// refresh.
func (s *LeaderboardService) HandleChange(event *feed.ChangeEvent) {
	if event.Table == feed.TableLevelThresholds {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		s.levels.Reload(ctx)
		cancel()
	}
	s.RequestRefresh(nil)
}

// Close stops the service from acting on late refresh results
func (s *LeaderboardService) Close() {
	s.mu.Lock()
	s.closed = true
	s.notify = nil
	s.mu.Unlock()
}
