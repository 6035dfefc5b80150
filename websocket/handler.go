package websocket

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"communityhub/db"
	"communityhub/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson"
)

var upgrader = websocket.Upgrader{
	// In production, adjust the CheckOrigin function to allow only trusted origins.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler serves the leaderboard presence channel endpoint
type Handler struct {
	hub       *PresenceHub
	board     Board
	jwtSecret string
}

// NewHandler creates the websocket handler
func NewHandler(hub *PresenceHub, board Board, jwtSecret string) *Handler {
	return &Handler{hub: hub, board: board, jwtSecret: jwtSecret}
}

// Serve upgrades the connection, announces the viewer's presence and keeps
// the channel alive until the client goes away
func (h *Handler) Serve(c *gin.Context) {
	// Get token from Authorization header or query parameter
	var tokenString string
	authz := c.GetHeader("Authorization")
	if authz != "" {
		tokenParts := strings.Split(authz, " ")
		if len(tokenParts) == 2 && tokenParts[0] == "Bearer" {
			tokenString = tokenParts[1]
		}
	}
	if tokenString == "" {
		tokenString = c.Query("token")
	}
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization token required"})
		return
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(h.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
		return
	}
	email, ok := claims["sub"].(string)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token: missing email"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var user models.UserProfile
	err = db.GetCollection(db.UsersCollection).FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &PresenceClient{
		Conn:     conn,
		UserID:   user.ID.Hex(),
		Name:     user.DisplayName,
		OnlineAt: time.Now(),
	}

	h.hub.Register(client)
	defer h.hub.Unregister(client)

	// Announce presence and send the current snapshot
	client.SafeWriteJSON(map[string]interface{}{
		"type":     "connected",
		"presence": models.PresenceRecord{UserID: client.UserID, OnlineAt: client.OnlineAt},
	})
	if h.board.Ready() {
		client.SafeWriteJSON(map[string]interface{}{
			"type":    "leaderboard",
			"entries": h.board.Entries(),
		})
	}

	// Keep the connection alive until the client goes away. Pings are
	// answered by the default ping handler.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Presence channel error for %s: %v", client.UserID, err)
			}
			break
		}
	}
}
