package security

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/digibiomics/LungSense-main/models"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// ErrUnauthorized is returned by an Authenticator when the request must be
// treated as unauthenticated. Any other error is a server failure.
var ErrUnauthorized = errors.New("unauthorized")

const (
	ContextUserID  = "user_id"
	ContextAccount = "account"
)

// Authenticator resolves a bearer token to a live account.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.Account, error)
}

// AuthMiddleware creates a Gin middleware for bearer token authentication
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			SendError(c, http.StatusUnauthorized, CodeMissingToken, "Authentication required",
				"Please provide a valid authorization token in the request header", nil)
			c.Abort()
			return
		}

		tokenStr, ok := bearerToken(header)
		if !ok {
			SendUnauthorized(c)
			c.Abort()
			return
		}

		account, err := auth.Authenticate(c.Request.Context(), tokenStr)
		if err != nil {
			if errors.Is(err, ErrUnauthorized) {
				SendUnauthorized(c)
			} else {
				log.Printf("auth middleware: %v", err)
				SendDatabaseError(c, "Unable to verify user status. Please try again later")
			}
			c.Abort()
			return
		}

		c.Set(ContextUserID, account.ID)
		c.Set(ContextAccount, account)
		c.Next()
	}
}

// CurrentAccount returns the account stored by AuthMiddleware.
func CurrentAccount(c *gin.Context) (models.Account, bool) {
	v, ok := c.Get(ContextAccount)
	if !ok {
		return models.Account{}, false
	}
	account, ok := v.(models.Account)
	return account, ok
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// CORSMiddleware allows the configured browser origins. An empty list or "*"
// allows any origin without credentials.
func CORSMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "X-Requested-With", "Accept", "Origin", "Cache-Control"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
