package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Chacatphol/FlowO/internal/dto"
	"github.com/Chacatphol/FlowO/internal/model"
	"github.com/Chacatphol/FlowO/internal/repository"
	"github.com/Chacatphol/FlowO/pkg/jwt"
)

var (
	ErrInvalidIDToken      = errors.New("Google 登录凭证无效")
	ErrUserNotFound        = errors.New("用户不存在")
	ErrInvalidRefreshToken = errors.New("Refresh Token 无效或已过期")
)

// AuthService 认证业务接口
type AuthService interface {
	// GoogleLogin 校验 Google ID Token，首次登录自动建档，并更新连续登录天数
	GoogleLogin(ctx context.Context, req *dto.GoogleLoginRequest) (*dto.TokenResponse, error)
	// RefreshToken 轮换 Token 对，旧 Refresh Token 加入黑名单
	RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	// Logout 将当前 Access Token 加入黑名单直至其过期
	Logout(ctx context.Context, jti string, expiresAt time.Time) error
	GetCurrentUser(ctx context.Context, userID string) (*dto.UserResponse, error)
}

type authService struct {
	repo      *repository.Repository
	clock     Clock
	jwtMgr    *jwt.Manager
	verifier  IdentityVerifier
	blacklist TokenBlacklist
	logger    *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(
	repo *repository.Repository,
	clk Clock,
	jwtMgr *jwt.Manager,
	verifier IdentityVerifier,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) AuthService {
	return &authService{
		repo:      repo,
		clock:     clk,
		jwtMgr:    jwtMgr,
		verifier:  verifier,
		blacklist: blacklist,
		logger:    logger,
	}
}

func (s *authService) GoogleLogin(ctx context.Context, req *dto.GoogleLoginRequest) (*dto.TokenResponse, error) {
	// 1. 校验 ID Token
	identity, err := s.verifier.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		s.logger.Warn("Google 登录凭证校验失败", zap.Error(err))
		return nil, ErrInvalidIDToken
	}

	// 2. 查询或创建用户
	user, err := s.repo.User.GetByFirebaseUID(ctx, identity.UID)
	isNew := false
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询用户失败", zap.String("firebase_uid", identity.UID), zap.Error(err))
			return nil, err
		}
		user = &model.User{FirebaseUID: identity.UID}
		isNew = true
	}

	// 3. 同步资料并更新连续登录天数
	user.Email = identity.Email
	user.Name = identity.Name
	user.AvatarURL = identity.Picture

	now := s.clock.Now()
	user.LoginStreak = nextLoginStreak(user.LastLoginAt, user.LoginStreak, now, s.clock.Location)
	user.LastLoginAt = &now

	if isNew {
		err = s.repo.User.Create(ctx, user)
	} else {
		err = s.repo.User.Update(ctx, user)
	}
	if err != nil {
		s.logger.Error("保存用户失败", zap.String("firebase_uid", identity.UID), zap.Error(err))
		return nil, err
	}

	return s.issueTokens(user)
}

func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	claims, err := s.jwtMgr.ParseToken(refreshToken)
	if err != nil || claims.TokenType != jwt.TokenTypeRefresh {
		return nil, ErrInvalidRefreshToken
	}

	if s.blacklist != nil {
		revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			s.logger.Warn("检查 Token 黑名单失败，降级放行", zap.Error(err))
		} else if revoked {
			return nil, ErrInvalidRefreshToken
		}
	}

	user, err := s.repo.User.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("user_id", claims.UserID), zap.Error(err))
		return nil, err
	}

	// 轮换：旧 Refresh Token 立即失效
	if s.blacklist != nil {
		if err := s.blacklist.BlacklistToken(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
			s.logger.Warn("旧 Refresh Token 加入黑名单失败", zap.Error(err))
		}
	}

	return s.issueTokens(user)
}

func (s *authService) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	if s.blacklist == nil {
		s.logger.Warn("Redis 未启用，Access Token 将在过期后自然失效", zap.String("jti", jti))
		return nil
	}
	if err := s.blacklist.BlacklistToken(ctx, jti, time.Until(expiresAt)); err != nil {
		s.logger.Error("Token 加入黑名单失败", zap.String("jti", jti), zap.Error(err))
		return err
	}
	return nil
}

func (s *authService) GetCurrentUser(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

func (s *authService) issueTokens(user *model.User) (*dto.TokenResponse, error) {
	accessToken, err := s.jwtMgr.GenerateAccessToken(user.UserID, user.Email)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	refreshToken, err := s.jwtMgr.GenerateRefreshToken(user.UserID, user.Email)
	if err != nil {
		s.logger.Error("生成 RefreshToken 失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwtMgr.AccessTokenTTL().Seconds()),
		User:         toUserResponse(user),
	}, nil
}

// nextLoginStreak 连续登录天数：同一天不变，前一天登录则 +1，否则重置为 1
func nextLoginStreak(lastLogin *time.Time, streak int, now time.Time, loc *time.Location) int {
	if lastLogin == nil {
		return 1
	}
	last := civilDay(lastLogin.In(loc))
	today := civilDay(now.In(loc))

	switch {
	case last.Equal(today):
		if streak < 1 {
			return 1
		}
		return streak
	case last.AddDate(0, 0, 1).Equal(today):
		return streak + 1
	default:
		return 1
	}
}

func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func toUserResponse(user *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:           user.UserID,
		Name:         user.Name,
		Email:        user.Email,
		AvatarURL:    user.AvatarURL,
		LoginStreak:  user.LoginStreak,
		LastLoginAt:  user.LastLoginAt,
		ShareEnabled: user.ShareEnabled,
	}
}
