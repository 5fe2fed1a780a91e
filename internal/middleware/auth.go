package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/eschoolbooks/neox-go/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const userIDKey = "user_id"

// Identity 解析调用方身份
//
// 配置了 secret 时只认 token（HS256）的 sub；否则使用 X-User-ID 请求头，
// 浏览器建立 WebSocket 时无法设置请求头，可以改用 uid 查询参数。
// 都没有时为匿名请求，结果不保存。
func Identity(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			uid := strings.TrimSpace(c.GetHeader("X-User-ID"))
			if uid == "" {
				uid = strings.TrimSpace(c.Query("uid"))
			}
			c.Set(userIDKey, uid)
			c.Next()
			return
		}

		token := extractToken(c)
		if token == "" {
			c.Next()
			return
		}

		uid, err := ParseToken(secret, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   model.APIError{Message: "身份凭证无效", Type: "unauthorized"},
			})
			return
		}
		c.Set(userIDKey, uid)
		c.Next()
	}
}

// GetUserID 当前用户，匿名时为空
func GetUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// ParseToken 校验 HS256 token 并返回 sub
func ParseToken(secret, tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("解析 token 失败: %w", err)
	}
	if claims.Subject == "" {
		return "", errors.New("token 缺少 sub")
	}
	return claims.Subject, nil
}

// extractToken 浏览器建立 WebSocket 时无法设置请求头，允许通过 query 传 token
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return c.Query("token")
}
