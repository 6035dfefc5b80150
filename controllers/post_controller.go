package controllers

import (
	"context"
	"log"
	"net/http"
	"time"

	"communityhub/db"
	"communityhub/internal/feed"
	"communityhub/models"
	"communityhub/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreatePostRequest represents the request to create a post
type CreatePostRequest struct {
	Title      string `json:"title" binding:"required"`
	Content    string `json:"content" binding:"required"`
	Visibility string `json:"visibility,omitempty"`
}

// PostController exposes community posts
type PostController struct {
	xp *services.XPService
}

// NewPostController creates the controller
func NewPostController(xp *services.XPService) *PostController {
	return &PostController{xp: xp}
}

// CreatePost inserts a post, grants write_post XP and notifies the change feed
func (pc *PostController) CreatePost(c *gin.Context) {
	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = models.PostVisibilityPublic
	}
	if visibility != models.PostVisibilityPublic && visibility != models.PostVisibilityPrivate {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid visibility"})
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	post := models.Post{
		ID:         primitive.NewObjectID(),
		UserID:     user.ID.Hex(),
		Title:      req.Title,
		Content:    req.Content,
		Visibility: visibility,
		CreatedAt:  time.Now(),
	}

	if _, err := db.GetCollection(db.PostsCollection).InsertOne(ctx, post); err != nil {
		log.Printf("Error creating post: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
		return
	}

	if err := feed.PublishChange(feed.TablePosts, feed.OpInsert, post.ID.Hex()); err != nil {
		log.Printf("Failed to publish post change: %v", err)
	}

	granted := pc.xp.LogAction(c.Request.Context(), post.UserID, models.ActionWritePost, "Wrote a post", post.ID.Hex())

	c.JSON(http.StatusOK, gin.H{
		"message":   "Post created",
		"post":      post,
		"xpGranted": granted,
	})
}

// GetPosts returns public posts, newest first
func (pc *PostController) GetPosts(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(100)
	cursor, err := db.GetCollection(db.PostsCollection).Find(ctx, bson.M{"visibility": models.PostVisibilityPublic}, opts)
	if err != nil {
		log.Printf("Failed to fetch posts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}
	defer cursor.Close(ctx)

	var posts []models.Post
	if err := cursor.All(ctx, &posts); err != nil {
		log.Printf("Failed to decode posts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode posts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"posts": posts, "total": len(posts)})
}
