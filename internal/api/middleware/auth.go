package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/spigell/havewant/internal/domain"
)

// CtxUserID is the gin context key holding the authenticated user id.
const CtxUserID = "userID"

// Claims are the identity-provider token claims the service relies on.
type Claims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type UserStore interface {
	Upsert(ctx context.Context, u *domain.User) error
}

// ParseToken validates an HMAC-signed identity token and returns its claims.
func ParseToken(secret []byte, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil || !token.Valid {
		return nil, domain.ErrTokenInvalid
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, domain.ErrTokenInvalid
	}
	return claims, nil
}

// JWTMiddleware validates the Bearer token in the Authorization header, refreshes
// the local profile of the caller and stores the user id in the gin context.
func JWTMiddleware(secret []byte, users UserStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			abortUnauthorized(c, domain.ErrUnauthorized)
			return
		}

		claims, err := ParseToken(secret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			abortUnauthorized(c, err)
			return
		}

		if users != nil {
			err := users.Upsert(c.Request.Context(), &domain.User{
				ID:    claims.Subject,
				Name:  claims.Name,
				Email: claims.Email,
			})
			if err != nil {
				logger.Warn("refreshing user profile failed", zap.String("user_id", claims.Subject), zap.Error(err))
			}
		}

		c.Set(CtxUserID, claims.Subject)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   err.Error(),
		"code":    "UNAUTHORIZED",
	})
}

// GetUserID retrieves the authenticated user id from the gin context.
// Returns "" if the middleware was not applied.
func GetUserID(c *gin.Context) string {
	v, _ := c.Get(CtxUserID)
	id, _ := v.(string)
	return id
}
