package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signedToken(t *testing.T, method jwt.SigningMethod, key interface{}) string {
	t.Helper()
	token := jwt.NewWithClaims(method, jwt.MapClaims{
		"sub": "alice@example.com",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return s
}

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/me", AuthMiddleware(testSecret), func(c *gin.Context) {
		email, _ := c.Get("email")
		c.JSON(http.StatusOK, gin.H{"email": email})
	})
	return router
}

func authRequest(router *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareAcceptsHMACToken(t *testing.T) {
	router := newAuthRouter()
	token := signedToken(t, jwt.SigningMethodHS256, []byte(testSecret))

	w := authRequest(router, "Bearer "+token)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for valid token, got %d", w.Code)
	}
}

func TestAuthMiddlewareRejectsNonHMACToken(t *testing.T) {
	router := newAuthRouter()
	token := signedToken(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType)

	w := authRequest(router, "Bearer "+token)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for non-HMAC signing method, got %d", w.Code)
	}
}

func TestAuthMiddlewareRejectsBadSignature(t *testing.T) {
	router := newAuthRouter()
	token := signedToken(t, jwt.SigningMethodHS256, []byte("other-secret"))

	w := authRequest(router, "Bearer "+token)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for wrong signing key, got %d", w.Code)
	}
}

func TestAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	router := newAuthRouter()

	w := authRequest(router, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without Authorization header, got %d", w.Code)
	}
}
