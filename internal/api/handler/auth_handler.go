package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Chacatphol/FlowO/internal/dto"
	"github.com/Chacatphol/FlowO/internal/service"
	"github.com/Chacatphol/FlowO/pkg/response"
)

const refreshCookieName = "refresh_token"

// CookieConfig Refresh Token Cookie 配置；为 nil 时使用默认值
type CookieConfig struct {
	Path   string
	Secure bool
	MaxAge int // 秒
}

func (c *CookieConfig) orDefault() CookieConfig {
	if c == nil {
		return CookieConfig{Path: "/api/v1/auth", MaxAge: 7 * 24 * 3600}
	}
	out := *c
	if out.Path == "" {
		out.Path = "/api/v1/auth"
	}
	return out
}

// AuthHandler 认证模块 HTTP 处理器
type AuthHandler struct {
	authSvc service.AuthService
	cookie  CookieConfig
}

// NewAuthHandler 创建 AuthHandler
func NewAuthHandler(authSvc service.AuthService, cookie *CookieConfig) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, cookie: cookie.orDefault()}
}

// GoogleLogin Google 登录
// POST /api/v1/auth/google
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	var req dto.GoogleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.authSvc.GoogleLogin(c.Request.Context(), &req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken)
	response.OK(c, result)
}

// RefreshToken 刷新 Token，优先读取请求体，其次读取 Cookie
// POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		cookie, cerr := c.Cookie(refreshCookieName)
		if cerr != nil || cookie == "" {
			response.BadRequest(c, 10001, "refresh_token 不能为空")
			return
		}
		req.RefreshToken = cookie
	}

	result, err := h.authSvc.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken)
	response.OK(c, result)
}

// Logout 用户登出
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	jti, exp, ok := MustGetTokenMeta(c)
	if !ok {
		return
	}

	if err := h.authSvc.Logout(c.Request.Context(), jti, exp); err != nil {
		response.InternalError(c)
		return
	}

	h.setRefreshCookie(c, "")
	response.OK(c, nil)
}

// GetCurrentUser 获取当前用户
// GET /api/v1/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	user, err := h.authSvc.GetCurrentUser(c.Request.Context(), userID)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	response.OK(c, user)
}

// setRefreshCookie token 为空时清除 Cookie
func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	maxAge := h.cookie.MaxAge
	if token == "" {
		maxAge = -1
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookieName, token, maxAge, h.cookie.Path, "", h.cookie.Secure, true)
}

func (h *AuthHandler) handleAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidIDToken):
		response.Unauthorized(c, 11001, "Google 登录凭证无效")
	case errors.Is(err, service.ErrInvalidRefreshToken):
		response.Unauthorized(c, 11002, "Refresh Token 无效或已过期")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 11003, "用户不存在")
	default:
		response.InternalError(c)
	}
}
