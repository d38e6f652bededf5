package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Chacatphol/FlowO/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetTokenMeta 提取当前 Access Token 的 jti 与过期时间（登出时使用）
func MustGetTokenMeta(c *gin.Context) (string, time.Time, bool) {
	jti := c.GetString("token_jti")
	v, exists := c.Get("token_exp")
	exp, ok := v.(time.Time)
	if jti == "" || !exists || !ok {
		response.Unauthorized(c, 10002, "未认证")
		return "", time.Time{}, false
	}
	return jti, exp, true
}

// MustGetIDParam 提取路径参数 :id 并校验为 UUID。
// 非法 ID 按资源不存在返回 404，code/message 由调用方给出。
func MustGetIDParam(c *gin.Context, code int, message string) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		response.NotFound(c, code, message)
		return "", false
	}
	return id, true
}
