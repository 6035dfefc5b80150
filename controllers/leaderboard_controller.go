package controllers

import (
	"net/http"
	"strconv"

	"communityhub/models"
	"communityhub/services"
	"communityhub/websocket"

	"github.com/gin-gonic/gin"
)

// LeaderboardData defines the response structure for the frontend
type LeaderboardData struct {
	Entries []models.LeaderboardEntry `json:"entries"`
	Stats   []models.Stat             `json:"stats"`
}

// LeaderboardController serves the ranked board
type LeaderboardController struct {
	board *services.LeaderboardService
	xp    *services.XPService
	hub   *websocket.PresenceHub
}

// NewLeaderboardController creates the controller
func NewLeaderboardController(board *services.LeaderboardService, xp *services.XPService, hub *websocket.PresenceHub) *LeaderboardController {
	return &LeaderboardController{board: board, xp: xp, hub: hub}
}

// GetLeaderboard returns the current board with rank numbers and a stats strip
func (lc *LeaderboardController) GetLeaderboard(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if !lc.board.Ready() {
		// No board at all beats a board with wrong progress
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Leaderboard not ready yet"})
		return
	}

	entries := lc.board.Entries()
	currentID := user.ID.Hex()
	for i := range entries {
		entries[i].CurrentUser = entries[i].UserID == currentID
	}

	stats := []models.Stat{
		{Icon: "crown", Value: strconv.Itoa(len(entries)), Label: "REGISTERED MEMBERS"},
		{Icon: "pulse", Value: strconv.Itoa(lc.hub.Count()), Label: "ONLINE NOW"},
		{Icon: "spark", Value: strconv.FormatInt(lc.xp.CountToday(c.Request.Context()), 10), Label: "XP EVENTS TODAY"},
	}

	c.JSON(http.StatusOK, LeaderboardData{
		Entries: entries,
		Stats:   stats,
	})
}
