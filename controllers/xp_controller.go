package controllers

import (
	"net/http"

	"communityhub/models"
	"communityhub/services"

	"github.com/gin-gonic/gin"
)

// LogActionRequest represents the request to log an XP-granting action
type LogActionRequest struct {
	ActionType  string `json:"actionType" binding:"required"`
	Description string `json:"description,omitempty"`
	RelatedID   string `json:"relatedId,omitempty"`
}

// XPController exposes the XP ledger
type XPController struct {
	xp *services.XPService
}

// NewXPController creates the controller
func NewXPController(xp *services.XPService) *XPController {
	return &XPController{xp: xp}
}

// LogAction records an XP action for the authenticated user and surfaces
// the granted amount. A grant of 0 is not an error; the rules simply did
// not award anything.
func (xc *XPController) LogAction(c *gin.Context) {
	var req LogActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if _, ok := models.ActionXP[req.ActionType]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid action type"})
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}

	granted := xc.xp.LogAction(c.Request.Context(), user.ID.Hex(), req.ActionType, req.Description, req.RelatedID)

	message := "No XP granted"
	if granted > 0 {
		message = "XP granted"
	}
	c.JSON(http.StatusOK, gin.H{
		"xpGranted": granted,
		"message":   message,
	})
}
