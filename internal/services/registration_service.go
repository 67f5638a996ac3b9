package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/accounthub/internal/models"
	"github.com/charlesng35/accounthub/pkg/crypto"
)

// RegisterInput carries the data submitted by a new user.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	IP          string
	SiteAddress string
}

// RegistrationOption customises the RegistrationService.
type RegistrationOption func(*RegistrationService)

// WithRegistrationLogger overrides the service logger.
func WithRegistrationLogger(log *zap.Logger) RegistrationOption {
	return func(s *RegistrationService) {
		if log != nil {
			s.log = log
		}
	}
}

// RegistrationService creates accounts and runs the post-registration steps.
type RegistrationService struct {
	db           *gorm.DB
	validator    *UserValidator
	verification *EmailVerificationService
	ips          *IPAddressService
	log          *zap.Logger
}

// NewRegistrationService wires the registration flow. verification and ips may be nil.
func NewRegistrationService(db *gorm.DB, validator *UserValidator, verification *EmailVerificationService, ips *IPAddressService, opts ...RegistrationOption) (*RegistrationService, error) {
	if db == nil {
		return nil, errors.New("registration service: db is required")
	}
	if validator == nil {
		return nil, errors.New("registration service: validator is required")
	}
	s := &RegistrationService{
		db:           db,
		validator:    validator,
		verification: verification,
		ips:          ips,
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register validates input, creates the user and profile, then sends the
// verification email and records the address. Failures of the last two steps
// are logged only.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	ctx = ensureContext(ctx)
	input.Username = strings.TrimSpace(input.Username)
	email := normaliseEmail(input.Email)

	if err := s.validator.CheckUsername(ctx, input.Username); err != nil {
		return nil, err
	}
	if err := s.validator.CheckPassword(input.Password); err != nil {
		return nil, err
	}
	if email != "" {
		if err := s.validator.CheckEmail(ctx, email, false); err != nil {
			return nil, err
		}
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("registration service: hash password: %w", err)
	}

	user := &models.User{Username: input.Username, Password: hashed}
	if email != "" {
		user.Email = &email
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return tx.Create(&models.UserProfile{UserID: user.ID, Email: email}).Error
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, conflictFor(err)
		}
		return nil, fmt.Errorf("registration service: create user: %w", err)
	}

	if s.verification != nil {
		if err := s.verification.SendEmailVerification(ctx, user, input.SiteAddress); err != nil {
			s.log.Warn("verification email not sent", zap.Uint("user_id", user.ID), zap.Error(err))
		}
	}
	if s.ips != nil {
		if err := s.ips.SaveIP(ctx, user.ID, input.IP); err != nil {
			s.log.Warn("registration address not recorded", zap.Uint("user_id", user.ID), zap.Error(err))
		}
	}

	s.log.Info("user registered", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

// FindUser loads a user by id.
func (s *RegistrationService) FindUser(ctx context.Context, id uint) (*models.User, error) {
	if id == models.AnonymousUserID {
		return nil, ErrUserNotFound
	}
	var user models.User
	err := s.db.WithContext(ensureContext(ctx)).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("registration service: find user: %w", err)
	}
	return &user, nil
}
