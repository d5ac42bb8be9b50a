package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ContextUserID    = "user_id"
	ContextAccountID = "account_id"
)

type Claims struct {
	UserID    string `json:"user_id"`
	AccountID string `json:"account_id"`
	jwt.RegisteredClaims
}

// GenerateToken 签发access token
func GenerateToken(userID, accountID, secret string, expire time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:    userID,
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expire)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseToken(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	return claims, nil
}

// NewJWTAuth 强制认证。没有合法token直接401
func NewJWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := extractClaims(c, secret)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "UNAUTHORIZED",
				"message": "invalid or missing token",
			})
			return
		}
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextAccountID, claims.AccountID)
		c.Next()
	}
}

// NewOptionalJWTAuth 可选认证。带合法token时注入身份，否则放行
func NewOptionalJWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := extractClaims(c, secret); ok {
			c.Set(ContextUserID, claims.UserID)
			c.Set(ContextAccountID, claims.AccountID)
		}
		c.Next()
	}
}

func extractClaims(c *gin.Context, secret string) (*Claims, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return nil, false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, false
	}
	claims, err := ParseToken(parts[1], secret)
	if err != nil {
		return nil, false
	}
	return claims, true
}

// GetUserID 读取认证中间件注入的用户ID
func GetUserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

func GetAccountID(c *gin.Context) string {
	return c.GetString(ContextAccountID)
}
