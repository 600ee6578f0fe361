package utils

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"maintenance-app/internal/models"
)

const sessionKey = "session"

type JWTUtil struct {
	secret string
}

func NewJWTUtil(secret string) *JWTUtil {
	return &JWTUtil{secret: secret}
}

func (j *JWTUtil) GenerateToken(sess models.Session) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id":   sess.UserID,
		"email":     sess.Email,
		"full_name": sess.FullName,
		"role":      string(sess.Role),
		"exp":       now.Add(72 * time.Hour).Unix(),
		"iat":       now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.secret))
}

// ValidateToken parses a signed token back into the session it carries.
func (j *JWTUtil) ValidateToken(tokenString string) (models.Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(j.secret), nil
	})
	if err != nil || !token.Valid {
		return models.Session{}, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.Session{}, errors.New("invalid claims")
	}

	sess := models.Session{}
	if v, ok := claims["user_id"].(string); ok {
		sess.UserID = v
	}
	if v, ok := claims["email"].(string); ok {
		sess.Email = v
	}
	if v, ok := claims["full_name"].(string); ok {
		sess.FullName = v
	}
	if v, ok := claims["role"].(string); ok {
		sess.Role = models.ToRole(v)
	}
	if sess.UserID == "" {
		return models.Session{}, errors.New("token missing user_id")
	}
	return sess, nil
}

// AuthMiddleware validates the bearer token and stores the caller session in
// the request context.
func AuthMiddleware(jwtUtil *JWTUtil) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Bearer token required"})
			return
		}

		sess, err := jwtUtil.ValidateToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(sessionKey, sess)
		c.Next()
	}
}

// RequireRoles rejects callers whose active role is not in the allowed list.
func RequireRoles(allowedRoles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := SessionFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Role not found"})
			return
		}
		for _, allowed := range allowedRoles {
			if sess.Role == allowed {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
	}
}

func SessionFromContext(c *gin.Context) (models.Session, bool) {
	val, exists := c.Get(sessionKey)
	if !exists {
		return models.Session{}, false
	}
	sess, ok := val.(models.Session)
	return sess, ok
}
