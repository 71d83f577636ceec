package shared

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// 上下文键
const (
	ContextKeyUserID       = "user_id"
	ContextKeyGuestSession = "guest_session_id"
)

// GetContextUint 从上下文读取 uint 值，不存在或类型不符时返回 false。
func GetContextUint(c *gin.Context, key string) (uint, bool) {
	value, exists := c.Get(key)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, v != 0
	case int:
		if v <= 0 {
			return 0, false
		}
		return uint(v), true
	case float64:
		if v <= 0 {
			return 0, false
		}
		return uint(v), true
	default:
		return 0, false
	}
}

// GetUserID 已登录用户 ID
func GetUserID(c *gin.Context) (uint, bool) {
	return GetContextUint(c, ContextKeyUserID)
}

// GetGuestSession 访客会话 ID
func GetGuestSession(c *gin.Context) string {
	value, ok := c.Get(ContextKeyGuestSession)
	if !ok {
		return ""
	}
	text, _ := value.(string)
	return strings.TrimSpace(text)
}
