package domain

import (
	"context"
	"time"
)

type User struct {
	ID    string `gorm:"primaryKey;size:36" json:"id"`
	Name  string `gorm:"size:64;not null" json:"name" binding:"required,max=64"`
	Email string `gorm:"uniqueIndex;size:191;not null" json:"email" binding:"required,email"`
	Photo string `gorm:"size:191;not null;default:default.jpg" json:"photo"`
	Role  Role   `gorm:"size:16;not null;default:user" json:"role" binding:"omitempty,oneof=user guide lead-guide admin"`

	// 以下字段永不出现在响应里
	PasswordHash         string     `gorm:"size:100;not null" json:"-"`
	PasswordChangedAt    *time.Time `json:"-"`
	PasswordResetToken   string     `gorm:"size:64;index" json:"-"`
	PasswordResetExpires *time.Time `json:"-"`
	Active               bool       `gorm:"not null;default:true;index" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ChangedPasswordAfter 凭证签发（秒级）之后是否改过密码
func (u *User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.Unix() > issuedAt.Unix()
}

type UserRepository interface {
	FindByID(ctx context.Context, id string, expand ...string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByResetToken(ctx context.Context, hashed string, now time.Time) (*User, error)
	Create(ctx context.Context, u *User) error
	Save(ctx context.Context, u *User) error
	Deactivate(ctx context.Context, id string) error
	PurgeExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}
