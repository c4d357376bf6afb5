package repo

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"natours/internal/core/errs"
	"natours/internal/domain"
)

// ActiveUsers 停用的用户对所有读操作透明隐藏
func ActiveUsers(db *gorm.DB) *gorm.DB {
	return db.Where(clause.Eq{Column: clause.Column{Name: "active"}, Value: true})
}

type UserRepo struct {
	*Store[domain.User]
}

var _ domain.UserRepository = (*UserRepo)(nil)

func NewUserRepo(db *gorm.DB) (*UserRepo, error) {
	s, err := NewStore[domain.User](db, Options{Visible: ActiveUsers, Multi: []string{"role"}})
	if err != nil {
		return nil, err
	}
	return &UserRepo{Store: s}, nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.FindOne(ctx, map[string]any{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (r *UserRepo) FindByResetToken(ctx context.Context, hashed string, now time.Time) (*domain.User, error) {
	u := new(domain.User)
	err := r.Scoped(ctx).
		Where("password_reset_token = ? AND password_reset_expires > ?", hashed, now).
		Take(u).Error
	if err != nil {
		if errs.Classify(err).Kind == errs.KindNotFound {
			return nil, errs.BadRequest("Token is invalid or has expired")
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepo) Deactivate(ctx context.Context, id string) error {
	res := r.Scoped(ctx).Where(clause.Eq{Column: clause.PrimaryColumn, Value: id}).Update("active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.NotFound(notFoundMsg)
	}
	return nil
}

// PurgeExpiredResetTokens 清理过期的重置令牌，返回影响行数
func (r *UserRepo) PurgeExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res := r.DB(ctx).
		Where("password_reset_expires IS NOT NULL AND password_reset_expires < ?", now).
		Updates(map[string]any{"password_reset_token": "", "password_reset_expires": nil})
	return res.RowsAffected, res.Error
}
