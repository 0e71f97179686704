package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/tour-booking/internal/authz"
	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/repository"
	"github.com/iliyamo/tour-booking/internal/utils"
	"github.com/iliyamo/tour-booking/internal/validation"
)

// MaxAvatarBytes is the largest accepted avatar upload.
const MaxAvatarBytes = 2 << 20

// Accounts covers registration, sessions, the caller's profile and
// withdrawals.
type Accounts struct {
	Users          UserStore
	Tokens         TokenStore
	Assets         AssetStore
	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int
}

// TokenPair is issued on login and on refresh.
type TokenPair struct {
	Access  utils.AccessToken
	Refresh utils.RefreshToken
}

type RegisterInput struct {
	Username string `json:"username" validate:"required,max=123"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Phone    string `json:"phone" validate:"omitempty,max=17"`
}

// Register creates a plain account.  Nothing is written when any field
// fails validation.
func (s *Accounts) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	verr := &model.ValidationError{}
	if err := validation.Struct(in); err != nil {
		var v *model.ValidationError
		if !errors.As(err, &v) {
			return nil, err
		}
		verr.Merge("", v)
	}
	if !utils.PasswordFits(in.Password) {
		verr.Add("password", "Пароль не должен превышать 72 байта.")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(in.Password, s.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &model.User{
		Email:        in.Email,
		Username:     in.Username,
		Phone:        in.Phone,
		PasswordHash: hash,
		Status:       model.StatusPlain,
	}
	if err := s.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, model.NewValidationError("email", "Пользователь с таким email уже существует.")
		}
		return nil, err
	}
	return s.Users.GetByID(ctx, u.ID)
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login checks the credentials and issues a new token pair.
func (s *Accounts) Login(ctx context.Context, in LoginInput) (*model.User, TokenPair, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.Struct(in); err != nil {
		return nil, TokenPair{}, err
	}
	u, err := s.Users.GetByEmail(ctx, in.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return nil, TokenPair{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, in.Password) {
		return nil, TokenPair{}, ErrInvalidCredentials
	}
	pair, err := s.issue(ctx, u.ID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return u, pair, nil
}

// Refresh exchanges a refresh token for a new pair.  The old token is
// consumed atomically, so replaying it fails.
func (s *Accounts) Refresh(ctx context.Context, raw string) (*model.User, TokenPair, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, TokenPair{}, model.NewValidationError("refresh_token", "Обязательное поле.")
	}
	uid, err := s.Tokens.ConsumeRefresh(ctx, utils.HashRefreshRaw(raw))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, TokenPair{}, ErrInvalidRefresh
	}
	if err != nil {
		return nil, TokenPair{}, err
	}
	u, err := s.Users.GetByID(ctx, uid)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, TokenPair{}, ErrInvalidRefresh
	}
	if err != nil {
		return nil, TokenPair{}, err
	}
	pair, err := s.issue(ctx, u.ID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return u, pair, nil
}

// Logout revokes the given refresh token.
func (s *Accounts) Logout(ctx context.Context, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.NewValidationError("refresh_token", "Обязательное поле.")
	}
	if _, err := s.Tokens.ConsumeRefresh(ctx, utils.HashRefreshRaw(raw)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidRefresh
		}
		return err
	}
	return nil
}

func (s *Accounts) issue(ctx context.Context, userID uint64) (TokenPair, error) {
	access, err := utils.NewAccessToken(s.JWTSecret, userID, s.AccessTTLMin)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access: %w", err)
	}
	refresh, err := utils.NewRefreshToken(s.RefreshTTLDays)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh: %w", err)
	}
	if err := s.Tokens.StoreRefresh(ctx, userID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return TokenPair{}, fmt.Errorf("save refresh: %w", err)
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// Profile returns the caller's account.
func (s *Accounts) Profile(ctx context.Context, p *authz.Principal) (*model.User, error) {
	if err := authz.Authorize(p, authz.CapManageProfile); err != nil {
		return nil, err
	}
	return s.Users.GetByID(ctx, p.UserID)
}

// ProfileInput lists the editable profile fields; nil fields are kept.
type ProfileInput struct {
	Username *string `json:"username" form:"username" validate:"omitempty,min=1,max=123"`
	Email    *string `json:"email" form:"email" validate:"omitempty,email,max=254"`
	Phone    *string `json:"phone" form:"phone" validate:"omitempty,max=17"`
}

// UpdateProfile applies in and, when avatar is set, stores the new avatar.
// The size check runs before anything is stored.
func (s *Accounts) UpdateProfile(ctx context.Context, p *authz.Principal, in ProfileInput, avatar *Upload) (*model.User, error) {
	if err := authz.Authorize(p, authz.CapManageProfile); err != nil {
		return nil, err
	}
	verr := &model.ValidationError{}
	if err := validation.Struct(in); err != nil {
		var v *model.ValidationError
		if !errors.As(err, &v) {
			return nil, err
		}
		verr.Merge("", v)
	}
	if avatar != nil && avatar.Size > MaxAvatarBytes {
		verr.Add("avatar", "Размер аватара не должен превышать 2MB.")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	patch := model.ProfilePatch{Username: in.Username, Phone: in.Phone}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		patch.Email = &email
	}
	if avatar != nil {
		path, err := saveUpload(ctx, s.Assets, "avatars", "avatar", avatar)
		if err != nil {
			return nil, err
		}
		patch.Avatar = &path
	}
	if err := s.Users.UpdateProfile(ctx, p.UserID, patch); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, model.NewValidationError("email", "Пользователь с таким email уже существует.")
		}
		return nil, err
	}
	return s.Users.GetByID(ctx, p.UserID)
}

// WithdrawInput is the body of POST /profile/withdraw; Amount is in major
// units.
type WithdrawInput struct {
	Amount *float64 `json:"amount"`
}

// Withdraw subtracts the amount from the caller's balance and returns the
// remaining balance in cents.  The balance never goes negative.
func (s *Accounts) Withdraw(ctx context.Context, p *authz.Principal, in WithdrawInput) (int64, error) {
	if err := authz.Authorize(p, authz.CapWithdraw); err != nil {
		return 0, err
	}
	if in.Amount == nil || toCents(*in.Amount) == 0 {
		return 0, model.NewValidationError("amount", "Не указана сумма вывода.")
	}
	cents := toCents(*in.Amount)
	if cents < 0 {
		return 0, model.NewValidationError("amount", "Сумма вывода должна быть положительной.")
	}
	left, err := s.Users.Withdraw(ctx, p.UserID, cents)
	if errors.Is(err, repository.ErrInsufficientFunds) {
		return 0, ErrInsufficientFunds
	}
	return left, err
}
