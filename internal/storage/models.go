package storage

import (
	"time"

	"gorm.io/datatypes"
)

// PortfolioSnapshot is a point-in-time rollup of one user's portfolio. The
// payload is the JSON encoding of tracking.Portfolio.
type PortfolioSnapshot struct {
	ID      string         `json:"id" gorm:"primaryKey;column:id"`
	UserID  string         `json:"user_id" gorm:"index;column:user_id"`
	TakenAt time.Time      `json:"taken_at" gorm:"index;column:taken_at"`
	Payload datatypes.JSON `json:"payload" gorm:"column:payload"`
}

func (PortfolioSnapshot) TableName() string { return "portfolio_snapshots" }

// User represents a registered user in the system.
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;column:id"`
	Username     string    `json:"username" gorm:"unique;column:username"`
	Email        string    `json:"email" gorm:"column:email"`
	PasswordHash string    `json:"-" gorm:"column:password_hash"`
	Role         string    `json:"role" gorm:"column:role"`
	Notify       bool      `json:"notify" gorm:"column:notify"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"column:updated_at"`
}

// Token represents an API access token.
type Token struct {
	ID         string     `json:"id" gorm:"primaryKey;column:id"`
	UserID     string     `json:"user_id" gorm:"index;column:user_id"`
	Name       string     `json:"name" gorm:"column:name"`
	TokenHash  string     `json:"-" gorm:"uniqueIndex;column:token_hash"`
	Role       string     `json:"role" gorm:"column:role"`
	CreatedAt  time.Time  `json:"created_at" gorm:"column:created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty" gorm:"column:expires_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty" gorm:"column:last_used_at"`
}

// CasbinRule represents a policy rule for RBAC.
type CasbinRule struct {
	ID    uint   `gorm:"primaryKey"`
	PType string `json:"ptype" gorm:"column:ptype"`
	V0    string `json:"v0" gorm:"column:v0"`
	V1    string `json:"v1" gorm:"column:v1"`
	V2    string `json:"v2" gorm:"column:v2"`
	V3    string `json:"v3" gorm:"column:v3"`
	V4    string `json:"v4" gorm:"column:v4"`
	V5    string `json:"v5" gorm:"column:v5"`
}

func (CasbinRule) TableName() string { return "casbin_rules" }

// EmailConfig holds configuration for email notifications.
type EmailConfig struct {
	ID          string    `json:"id" gorm:"primaryKey;column:id"`
	Provider    string    `json:"provider" gorm:"column:provider"` // "smtp", "sendgrid", "gmail"
	Host        string    `json:"host,omitempty" gorm:"column:host"`
	Port        int       `json:"port,omitempty" gorm:"column:port"`
	Username    string    `json:"username,omitempty" gorm:"column:username"`
	Password    string    `json:"password,omitempty" gorm:"column:password"`
	FromAddress string    `json:"from_address" gorm:"column:from_address"`
	FromName    string    `json:"from_name" gorm:"column:from_name"`
	APIKey      string    `json:"api_key,omitempty" gorm:"column:api_key"`       // For Sendgrid
	Encryption  string    `json:"encryption,omitempty" gorm:"column:encryption"` // "none", "ssl", "tls"
	Enabled     bool      `json:"enabled" gorm:"column:enabled"`
	CreatedAt   time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (EmailConfig) TableName() string { return "email_configs" }

type Setting struct {
	Key       string    `gorm:"primaryKey;column:key"`
	Value     string    `gorm:"column:value"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

type ScheduledJob struct {
	Name           string    `json:"name" gorm:"primaryKey;column:name"`
	LastRunAt      time.Time `json:"last_run_at" gorm:"column:last_run_at"`
	LastDurationMs int64     `json:"last_duration_ms" gorm:"column:last_duration_ms"`
	LastSuccess    bool      `json:"last_success" gorm:"column:last_success"`
	LastError      string    `json:"last_error,omitempty" gorm:"column:last_error"`
}
