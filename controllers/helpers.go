package controllers

import (
	"context"
	"net/http"
	"time"

	"communityhub/db"
	"communityhub/models"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
)

// currentUser resolves the authenticated user's profile from the email the
// auth middleware stored. Writes the error response itself on failure.
func currentUser(c *gin.Context) (models.UserProfile, bool) {
	email, exists := c.Get("email")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return models.UserProfile{}, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var user models.UserProfile
	err := db.GetCollection(db.UsersCollection).FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return models.UserProfile{}, false
	}
	return user, true
}
