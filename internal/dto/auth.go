package dto

// ── 认证模块 DTO ──

// GoogleLoginRequest Google 登录请求（前端 Firebase SDK 获取的 ID Token）
type GoogleLoginRequest struct {
	IDToken string `json:"id_token" binding:"required"`
}

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}
