package controllers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"communityhub/db"
	"communityhub/internal/feed"
	"communityhub/models"
	"communityhub/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ThresholdRequest represents an admin create/update of a level threshold
type ThresholdRequest struct {
	LevelNumber int    `json:"levelNumber" binding:"required"`
	RequiredXP  int    `json:"requiredXp"`
	DisplayName string `json:"displayName" binding:"required"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
}

// LevelController exposes the level threshold table
type LevelController struct {
	levels *services.LevelConfigService
}

// NewLevelController creates the controller
func NewLevelController(levels *services.LevelConfigService) *LevelController {
	return &LevelController{levels: levels}
}

// GetLevels returns the cached threshold table
func (lc *LevelController) GetLevels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"levels": lc.levels.FetchAll()})
}

// CreateThreshold inserts a level threshold and notifies the change feed
func (lc *LevelController) CreateThreshold(c *gin.Context) {
	var req ThresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if req.LevelNumber < 1 || req.RequiredXP < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid threshold values"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	threshold := models.LevelThreshold{
		ID:          primitive.NewObjectID(),
		LevelNumber: req.LevelNumber,
		RequiredXP:  req.RequiredXP,
		DisplayName: req.DisplayName,
		Color:       req.Color,
		Icon:        req.Icon,
		UpdatedAt:   time.Now(),
	}

	_, err := db.GetCollection(db.LevelThresholdsCollection).InsertOne(ctx, threshold)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "Level already configured"})
			return
		}
		log.Printf("Error creating level threshold: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create threshold"})
		return
	}

	publishThresholdChange(feed.OpInsert, threshold.ID.Hex())
	c.JSON(http.StatusOK, gin.H{"message": "Threshold created", "threshold": threshold})
}

// UpdateThreshold updates a level threshold and notifies the change feed
func (lc *LevelController) UpdateThreshold(c *gin.Context) {
	levelNumber, err := strconv.Atoi(c.Param("number"))
	if err != nil || levelNumber < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid level number"})
		return
	}

	var req ThresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"requiredXp":  req.RequiredXP,
		"displayName": req.DisplayName,
		"color":       req.Color,
		"icon":        req.Icon,
		"updatedAt":   time.Now(),
	}}

	result, err := db.GetCollection(db.LevelThresholdsCollection).UpdateOne(ctx, bson.M{"levelNumber": levelNumber}, update)
	if err != nil {
		log.Printf("Error updating level threshold %d: %v", levelNumber, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update threshold"})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Level not configured"})
		return
	}

	publishThresholdChange(feed.OpUpdate, strconv.Itoa(levelNumber))
	c.JSON(http.StatusOK, gin.H{"message": "Threshold updated"})
}

// DeleteThreshold removes a level threshold and notifies the change feed
func (lc *LevelController) DeleteThreshold(c *gin.Context) {
	levelNumber, err := strconv.Atoi(c.Param("number"))
	if err != nil || levelNumber < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid level number"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := db.GetCollection(db.LevelThresholdsCollection).DeleteOne(ctx, bson.M{"levelNumber": levelNumber})
	if err != nil {
		log.Printf("Error deleting level threshold %d: %v", levelNumber, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete threshold"})
		return
	}
	if result.DeletedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Level not configured"})
		return
	}

	publishThresholdChange(feed.OpDelete, strconv.Itoa(levelNumber))
	c.JSON(http.StatusOK, gin.H{"message": "Threshold deleted"})
}

func publishThresholdChange(op, id string) {
	if err := feed.PublishChange(feed.TableLevelThresholds, op, id); err != nil {
		log.Printf("Failed to publish threshold change: %v", err)
	}
}
