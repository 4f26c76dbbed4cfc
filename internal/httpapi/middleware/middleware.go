package middleware

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gopherchat/gopherchat/internal/auth"
	"github.com/gopherchat/gopherchat/internal/models"
	"gorm.io/gorm"
)

const (
	// CurrentUserKey holds the *models.User loaded by SessionRequired.
	CurrentUserKey = "currentUser"

	// SessionCookie is the cookie carrying the signed session token.
	SessionCookie = "chat_session"

	// LoginPath is where unauthenticated requests are sent.
	LoginPath = "/chat/login/"
)

// SessionStore is the slice of the session backend the middleware needs.
type SessionStore interface {
	SessionUserID(ctx context.Context, sessionID string) (uint64, error)
}

// SessionRequired authenticates the request from the session cookie: the
// token signature must verify, the session record must still exist, and the
// record must belong to the token's user. Anything else redirects to login.
func SessionRequired(db *gorm.DB, secret string, sessions SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, err := c.Cookie(SessionCookie)
		if err != nil || tokenStr == "" {
			redirectToLogin(c)
			return
		}

		claims, err := auth.ParseSessionToken(tokenStr, secret)
		if err != nil {
			redirectToLogin(c)
			return
		}

		userID, err := sessions.SessionUserID(c.Request.Context(), claims.SessionID)
		if err != nil || userID != claims.UserID {
			redirectToLogin(c)
			return
		}

		var user models.User
		if err := db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
			redirectToLogin(c)
			return
		}

		c.Set(CurrentUserKey, &user)
		c.Next()
	}
}

func redirectToLogin(c *gin.Context) {
	c.Redirect(http.StatusFound, LoginPath)
	c.Abort()
}

// CurrentUser returns the user loaded by SessionRequired.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(CurrentUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*models.User)
	return u, ok
}

// RequestID tags every request with an id for log correlation.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)
		c.Set("requestID", id)
		c.Next()
	}
}

// Recovery converts panics into 500 responses instead of dropped connections.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("panic recovered path=%s err=%v", c.Request.URL.Path, r)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "internal server error",
				})
			}
		}()
		c.Next()
	}
}
