// Package auth verifies credentials against the chatlog user table and
// manages password and TOTP enrollment.
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"pkt.systems/pslog"
	"pkt.systems/sketchroom/internal/chatlog"
	"pkt.systems/sketchroom/schema"
)

// TOTPIssuer is the issuer label shown in authenticator apps.
const TOTPIssuer = "sketchroom"

// Service authenticates users stored in the chatlog database.
type Service struct {
	store  *chatlog.Store
	logger pslog.Logger
}

// NewService wraps the chatlog store.
func NewService(store *chatlog.Store, logger pslog.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("missing chatlog store")
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Service{store: store, logger: logger}, nil
}

// Signup creates an account and returns its identifier.
func (s *Service) Signup(ctx context.Context, username, password, name string) (schema.UserID, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", errors.New("username is required")
	}
	if strings.TrimSpace(password) == "" {
		return "", errors.New("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	userID := schema.UserID(uuid.NewString())
	err = s.store.CreateUser(ctx, chatlog.User{
		ID:           userID,
		Username:     username,
		Name:         name,
		PasswordHash: hash,
	})
	if err != nil {
		s.logger.Warn("auth signup failed", "username", username, "err", err)
		return "", err
	}
	s.logger.Info("auth user added", "username", username, "user", userID)
	return userID, nil
}

// Authenticate verifies username, password, and, when the account has TOTP
// enrolled, the one-time code. It returns the account on success.
func (s *Service) Authenticate(ctx context.Context, username, password, totpCode string) (chatlog.User, error) {
	user, err := s.store.UserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, schema.ErrUserNotFound) {
			return chatlog.User{}, schema.ErrInvalidCredentials
		}
		return chatlog.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		s.logger.Warn("auth signin rejected", "username", username, "reason", "bad password")
		return chatlog.User{}, schema.ErrInvalidCredentials
	}
	if user.TOTPSecret != "" && !totp.Validate(totpCode, user.TOTPSecret) {
		s.logger.Warn("auth signin rejected", "username", username, "reason", "bad totp")
		return chatlog.User{}, schema.ErrInvalidCredentials
	}
	return user, nil
}

// ChangePassword verifies the current credentials and stores a new hash.
func (s *Service) ChangePassword(ctx context.Context, username, currentPassword, totpCode, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return errors.New("new password is required")
	}
	user, err := s.Authenticate(ctx, username, currentPassword, totpCode)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.store.UpdateUserPassword(ctx, user.ID, hash); err != nil {
		s.logger.Warn("auth password update failed", "username", username, "err", err)
		return err
	}
	s.logger.Info("auth password updated", "username", username)
	return nil
}

// EnrollTOTP generates and stores a fresh TOTP secret for the account and
// returns the provisioning key for QR display.
func (s *Service) EnrollTOTP(ctx context.Context, username string) (*otp.Key, error) {
	user, err := s.store.UserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      TOTPIssuer,
		AccountName: user.Username,
	})
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateUserTOTP(ctx, user.ID, key.Secret()); err != nil {
		s.logger.Warn("auth totp update failed", "username", username, "err", err)
		return nil, err
	}
	s.logger.Info("auth totp updated", "username", username)
	return key, nil
}

// DisableTOTP clears the account's TOTP secret.
func (s *Service) DisableTOTP(ctx context.Context, username string) error {
	user, err := s.store.UserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return err
	}
	if err := s.store.UpdateUserTOTP(ctx, user.ID, ""); err != nil {
		return err
	}
	s.logger.Info("auth totp disabled", "username", username)
	return nil
}
