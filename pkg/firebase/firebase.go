package firebase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/db"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/Chacatphol/FlowO/config"
)

// ErrIDTokenInvalid Google/Firebase ID Token 校验失败
var ErrIDTokenInvalid = errors.New("Google 登录凭证无效")

// Identity 从 ID Token 中解析出的用户身份
type Identity struct {
	UID     string
	Email   string
	Name    string
	Picture string
}

// Client Firebase 客户端封装
// auth 用于校验 Google 登录；database 为可选的实时数据库，用于镜像分享快照
type Client struct {
	auth      *auth.Client
	database  *db.Client
	sharePath string
	logger    *zap.Logger
}

// NewClient 初始化 Firebase App；DatabaseURL 为空时不启用实时数据库
func NewClient(ctx context.Context, cfg *config.FirebaseConfig, logger *zap.Logger) (*Client, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:   cfg.ProjectID,
		DatabaseURL: cfg.DatabaseURL,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("初始化 Firebase 失败: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("初始化 Firebase Auth 失败: %w", err)
	}

	c := &Client{
		auth:      authClient,
		sharePath: strings.Trim(cfg.SharePath, "/"),
		logger:    logger,
	}

	if cfg.DatabaseURL != "" {
		c.database, err = app.Database(ctx)
		if err != nil {
			return nil, fmt.Errorf("初始化 Firebase 实时数据库失败: %w", err)
		}
		logger.Info("Firebase 实时数据库已启用", zap.String("share_path", c.sharePath))
	}

	logger.Info("Firebase 初始化成功", zap.String("project_id", cfg.ProjectID))
	return c, nil
}

// VerifyIDToken 校验前端 Google 登录得到的 ID Token
func (c *Client) VerifyIDToken(ctx context.Context, idToken string) (*Identity, error) {
	token, err := c.auth.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIDTokenInvalid, err)
	}

	return &Identity{
		UID:     token.UID,
		Email:   claimString(token.Claims, "email"),
		Name:    claimString(token.Claims, "name"),
		Picture: claimString(token.Claims, "picture"),
	}, nil
}

func claimString(claims map[string]interface{}, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

// MirrorEnabled 是否配置了实时数据库
func (c *Client) MirrorEnabled() bool {
	return c.database != nil
}

func (c *Client) shareRef(token string) string {
	if c.sharePath == "" {
		return token
	}
	return c.sharePath + "/" + token
}

// PublishShareSnapshot 将分享快照写入 <share_path>/<token>
func (c *Client) PublishShareSnapshot(ctx context.Context, token string, snapshot interface{}) error {
	if c.database == nil {
		return nil
	}
	if err := c.database.NewRef(c.shareRef(token)).Set(ctx, snapshot); err != nil {
		return fmt.Errorf("写入分享快照失败: %w", err)
	}
	return nil
}

// RemoveShareSnapshot 删除 <share_path>/<token>
func (c *Client) RemoveShareSnapshot(ctx context.Context, token string) error {
	if c.database == nil {
		return nil
	}
	if err := c.database.NewRef(c.shareRef(token)).Delete(ctx); err != nil {
		return fmt.Errorf("删除分享快照失败: %w", err)
	}
	return nil
}
