package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Shubhojeet-Ghosh/elysium-agents/models"
)

const (
	// ContextUserID is the gin context key carrying the authenticated user id.
	ContextUserID = "user_id"
	// ContextEmail is the gin context key carrying the authenticated email.
	ContextEmail = "email"

	passkeyHeader = "X-Application-Passkey"
)

// Claims represents JWT token claims.
type Claims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTValidator validates HMAC-signed tokens against the shared secret.
type JWTValidator struct {
	secret []byte
}

func NewJWTValidator(secret string) *JWTValidator {
	return &JWTValidator{secret: []byte(secret)}
}

// ValidateToken parses and validates a token string and returns its claims.
func (v *JWTValidator) ValidateToken(tokenString string) (*Claims, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Sub == "" {
		return nil, errors.New("token missing subject")
	}
	return claims, nil
}

// Middleware authenticates requests via the Authorization header and sets
// user_id and email on the gin context.
func (v *JWTValidator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Success: false,
				Message: "missing authorization header",
			})
			return
		}
		claims, err := v.ValidateToken(header)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Success: false,
				Message: "invalid or expired token",
			})
			return
		}
		c.Set(ContextUserID, claims.Sub)
		c.Set(ContextEmail, claims.Email)
		c.Next()
	}
}

// PasskeyMiddleware guards internal endpoints with the shared application
// passkey header.
func PasskeyMiddleware(passkey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if passkey == "" || c.GetHeader(passkeyHeader) != passkey {
			c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse{
				Success: false,
				Message: "invalid application passkey",
			})
			return
		}
		c.Next()
	}
}

// UserID reads the authenticated user id off the gin context.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(ContextUserID); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
