package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"

	"natours/internal/core/auth"
	"natours/internal/core/errs"
	"natours/internal/core/mail"
	"natours/internal/domain"
	"natours/pkg/utils"
)

const (
	msgNotLoggedIn   = "You are not logged in! Please log in to get access."
	msgUnknownUser   = "The user belonging to this token does no longer exist."
	msgStaleToken    = "User recently changed password! Please log in again."
	msgBadLogin      = "Incorrect email or password"
	msgResetMailFail = "There was an error sending the email. Try again later!"

	resetTokenTTL = 10 * time.Minute
)

type SignupInput struct {
	Name            string `json:"name" binding:"required,max=64"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=8"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required,eqfield=Password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type PasswordInput struct {
	Password        string `json:"password" binding:"required,min=8"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required,eqfield=Password"`
}

type UpdatePasswordInput struct {
	PasswordCurrent string `json:"passwordCurrent" binding:"required"`
	PasswordInput
}

// Session 登录成功后发给客户端的凭证
type Session struct {
	Token   string
	Expires time.Time
	User    *domain.User
}

type AuthService struct {
	Users   domain.UserRepository
	JWT     *auth.JWTer
	Mail    mail.Sender
	Log     *zap.Logger
	BaseURL string
	Now     func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *AuthService) issue(u *domain.User) (*Session, error) {
	tok, err := s.JWT.Issue(u.ID)
	if err != nil {
		return nil, errs.Internal("issue token failed", err)
	}
	return &Session{Token: tok, Expires: s.now().Add(s.JWT.TTL), User: u}, nil
}

// applyPassword 哈希新密码；非首次设置时把 passwordChangedAt 往前拨 1s，
// 保证改密之后立即签发的 token 仍然有效
func (s *AuthService) applyPassword(u *domain.User, raw string, initial bool) error {
	h, err := utils.HashPassword(raw)
	if err != nil {
		return errs.Internal("hash password failed", err)
	}
	u.PasswordHash = h
	if !initial {
		t := s.now().Add(-time.Second)
		u.PasswordChangedAt = &t
	}
	return nil
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	if err := binding.Validator.ValidateStruct(&in); err != nil {
		return nil, err
	}
	u := &domain.User{
		ID:     utils.NewID(),
		Name:   strings.TrimSpace(in.Name),
		Email:  strings.ToLower(strings.TrimSpace(in.Email)),
		Photo:  "default.jpg",
		Role:   domain.RoleUser,
		Active: true,
	}
	if err := s.applyPassword(u, in.Password, true); err != nil {
		return nil, err
	}
	if err := s.Users.Create(ctx, u); err != nil {
		return nil, err
	}
	signupsTotal.Inc()

	// 欢迎邮件失败不影响注册
	if err := s.Mail.Send(ctx, mail.Message{
		To:      u.Email,
		Name:    u.Name,
		Subject: "Welcome to the Natours Family!",
		Text:    fmt.Sprintf("Hi %s,\n\nWelcome to Natours! Upload your photo at %s/me", firstName(u.Name), s.BaseURL),
	}); err != nil {
		s.Log.Warn("welcome mail failed", zap.String("user", u.ID), zap.Error(err))
	}
	return s.issue(u)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, errs.BadRequest("Please provide email and password!")
	}
	u, err := s.Users.FindByEmail(ctx, in.Email)
	if err != nil && !errs.IsNotFound(err) {
		return nil, err
	}
	// 不区分"用户不存在"和"密码错误"
	if u == nil || !utils.CheckPassword(in.Password, u.PasswordHash) {
		return nil, errs.New(errs.KindInvalidCredential, msgBadLogin)
	}
	return s.issue(u)
}

// Resolve 凭证 → 当前用户；依次校验签名/过期、主体存在、改密时间
func (s *AuthService) Resolve(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, errs.Unauthenticated(msgNotLoggedIn)
	}
	claims, err := s.JWT.Parse(token)
	if err != nil {
		return nil, errs.Classify(err)
	}
	u, err := s.Users.FindByID(ctx, claims.UID)
	if err != nil {
		if errs.IsNotFound(err) {
			return nil, errs.New(errs.KindUnknownSubject, msgUnknownUser)
		}
		return nil, err
	}
	if u.ChangedPasswordAfter(claims.Issued()) {
		return nil, errs.New(errs.KindStaleCredential, msgStaleToken)
	}
	return u, nil
}

// ForgotPassword 生成重置令牌并发邮件；邮件失败时撤销令牌
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		if errs.IsNotFound(err) {
			return errs.NotFound("There is no user with that email address.")
		}
		return err
	}

	plain, hashed := utils.NewResetToken()
	expires := s.now().Add(resetTokenTTL)
	u.PasswordResetToken, u.PasswordResetExpires = hashed, &expires
	if err := s.Users.Save(ctx, u); err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/api/v1/users/resetPassword/%s", s.BaseURL, plain)
	err = s.Mail.Send(ctx, mail.Message{
		To:      u.Email,
		Name:    u.Name,
		Subject: "Your password reset token (valid for only 10 minutes)",
		Text: fmt.Sprintf("Forgot your password? Submit a PATCH request with your new password and passwordConfirm to: %s\n"+
			"If you didn't forget your password, please ignore this email!", resetURL),
	})
	if err == nil {
		return nil
	}

	s.Log.Warn("reset mail failed", zap.String("user", u.ID), zap.Error(err))
	u.PasswordResetToken, u.PasswordResetExpires = "", nil
	if rerr := s.Users.Save(ctx, u); rerr != nil {
		s.Log.Error("rollback reset token failed", zap.String("user", u.ID), zap.Error(rerr))
	}
	return errs.Internal(msgResetMailFail, err)
}

func (s *AuthService) ResetPassword(ctx context.Context, token string, in PasswordInput) (*Session, error) {
	if err := binding.Validator.ValidateStruct(&in); err != nil {
		return nil, err
	}
	u, err := s.Users.FindByResetToken(ctx, utils.HashToken(token), s.now())
	if err != nil {
		return nil, err
	}
	if err := s.applyPassword(u, in.Password, false); err != nil {
		return nil, err
	}
	u.PasswordResetToken, u.PasswordResetExpires = "", nil
	if err := s.Users.Save(ctx, u); err != nil {
		return nil, err
	}
	return s.issue(u)
}

func (s *AuthService) UpdatePassword(ctx context.Context, userID string, in UpdatePasswordInput) (*Session, error) {
	if err := binding.Validator.ValidateStruct(&in); err != nil {
		return nil, err
	}
	u, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(in.PasswordCurrent, u.PasswordHash) {
		return nil, errs.New(errs.KindInvalidCredential, "Your current password is wrong.")
	}
	if err := s.applyPassword(u, in.Password, false); err != nil {
		return nil, err
	}
	if err := s.Users.Save(ctx, u); err != nil {
		return nil, err
	}
	return s.issue(u)
}

// PurgeResetTokens 定时任务：清理过期的重置令牌
func (s *AuthService) PurgeResetTokens(ctx context.Context) error {
	n, err := s.Users.PurgeExpiredResetTokens(ctx, s.now())
	if err != nil {
		return err
	}
	if n > 0 {
		s.Log.Info("expired reset tokens purged", zap.Int64("count", n))
	}
	return nil
}

func firstName(name string) string {
	if f := strings.Fields(name); len(f) > 0 {
		return f[0]
	}
	return name
}
