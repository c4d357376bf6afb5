package service

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin/binding"

	"natours/internal/core/errs"
	"natours/internal/domain"
)

// UpdateMeInput 只允许修改这几个字段；出现密码字段直接拒绝
type UpdateMeInput struct {
	Name            *string `json:"name" binding:"omitempty,max=64"`
	Email           *string `json:"email" binding:"omitempty,email"`
	Photo           *string `json:"photo"`
	Password        *string `json:"password"`
	PasswordConfirm *string `json:"passwordConfirm"`
}

type UserService struct {
	Users domain.UserRepository
}

func (s *UserService) Me(ctx context.Context, id string) (*domain.User, error) {
	return s.Users.FindByID(ctx, id)
}

func (s *UserService) UpdateMe(ctx context.Context, id string, in UpdateMeInput) (*domain.User, error) {
	if in.Password != nil || in.PasswordConfirm != nil {
		return nil, errs.BadRequest("This route is not for password updates. Please use /updateMyPassword.")
	}
	if err := binding.Validator.ValidateStruct(&in); err != nil {
		return nil, err
	}
	u, err := s.Users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.Photo != nil && *in.Photo != "" {
		u.Photo = *in.Photo
	}
	if err := binding.Validator.ValidateStruct(u); err != nil {
		return nil, err
	}
	if err := s.Users.Save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// DeleteMe 软删除：active=false，之后对所有读不可见
func (s *UserService) DeleteMe(ctx context.Context, id string) error {
	return s.Users.Deactivate(ctx, id)
}

// RefuseCreate 管理端不提供创建用户
func (s *UserService) RefuseCreate() error {
	return errs.BadRequest("This route is not defined! Please use /signup instead.")
}
