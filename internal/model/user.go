package model

import "time"

// User 用户表 — 对应 users
type User struct {
	UserID       string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	FirebaseUID  string     `gorm:"type:varchar(128);not null;uniqueIndex"         json:"-"`
	Email        string     `gorm:"type:varchar(255);not null"                     json:"email"`
	Name         string     `gorm:"type:varchar(100);not null"                     json:"name"`
	AvatarURL    string     `gorm:"type:text;not null"                             json:"avatar_url"`
	LastLoginAt  *time.Time `gorm:""                                               json:"last_login_at,omitempty"`
	LoginStreak  int        `gorm:"not null;default:0"                             json:"login_streak"`
	ShareToken   *string    `gorm:"type:varchar(64)"                               json:"-"`
	ShareEnabled bool       `gorm:"not null;default:false"                         json:"share_enabled"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }
