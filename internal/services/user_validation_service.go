package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/accounthub/internal/models"
	apperrors "github.com/charlesng35/accounthub/pkg/errors"
	"github.com/charlesng35/accounthub/pkg/metrics"
	"github.com/charlesng35/accounthub/pkg/validator"
)

// UserValidatorOption customises the UserValidator.
type UserValidatorOption func(*UserValidator)

// WithMaxUsernameLength bounds usernames to n characters.
func WithMaxUsernameLength(n int) UserValidatorOption {
	return func(v *UserValidator) {
		if n > 0 {
			v.maxUsernameLength = n
		}
	}
}

// WithValidatorLogger overrides the logger used to report duplicate records.
func WithValidatorLogger(log *zap.Logger) UserValidatorOption {
	return func(v *UserValidator) {
		if log != nil {
			v.log = log
		}
	}
}

// UserValidator checks registration input against syntax rules and existing records.
// Uniqueness checks are plain lookups and do not lock; a concurrent insert can
// still win, which RegistrationService detects from the insert error.
type UserValidator struct {
	db                *gorm.DB
	log               *zap.Logger
	maxUsernameLength int
	usernamePattern   *regexp.Regexp
}

// NewUserValidator constructs a validator. The username rule is private to the
// instance so validators with different bounds can coexist.
func NewUserValidator(db *gorm.DB, opts ...UserValidatorOption) (*UserValidator, error) {
	if db == nil {
		return nil, errors.New("user validator: db is required")
	}

	v := &UserValidator{
		db:                db,
		log:               zap.NewNop(),
		maxUsernameLength: validator.DefaultMaxUsernameLength,
	}
	for _, opt := range opts {
		opt(v)
	}

	v.usernamePattern = validator.UsernamePattern(v.maxUsernameLength)
	return v, nil
}

// MaxUsernameLength returns the configured username bound.
func (v *UserValidator) MaxUsernameLength() int {
	return v.maxUsernameLength
}

// CheckPassword rejects blank passwords and passwords shorter than three characters
// or with leading or trailing whitespace.
func (v *UserValidator) CheckPassword(password string) error {
	if validator.IsBlankString(password) {
		return rejected("password", "blank", "Password can't be empty")
	}
	if !validator.ValidPassword(password) {
		return rejected("password", "pattern", "Password should be at least 3 characters without leading or trailing spaces")
	}
	return nil
}

// CheckEmail rejects malformed addresses unless skipSyntax is set, and always
// rejects addresses already held by a profile.
func (v *UserValidator) CheckEmail(ctx context.Context, email string, skipSyntax bool) error {
	if !skipSyntax && !validator.ValidEmail(email) {
		return rejected("email", "syntax", "Enter a valid email address")
	}

	count, err := v.countMatches(ctx, &models.UserProfile{}, "email = ?", normaliseEmail(email))
	if err != nil {
		return fmt.Errorf("user validator: check email: %w", err)
	}
	if count > 1 {
		v.log.Warn("email held by more than one profile", zap.Int64("profiles", count))
	}
	if count > 0 {
		metrics.ValidationFailures.WithLabelValues("email", "taken").Inc()
		return ErrEmailTaken
	}
	return nil
}

// CheckUsername rejects blank names, names outside the allowed pattern and names already taken.
func (v *UserValidator) CheckUsername(ctx context.Context, username string) error {
	if validator.IsBlankString(username) {
		return rejected("username", "blank", "User name can't be empty")
	}
	if !v.usernamePattern.MatchString(username) {
		return rejected("username", "pattern", fmt.Sprintf(
			"User name may contain only letters, digits, '_' and '-' and be at most %d characters", v.maxUsernameLength))
	}

	count, err := v.countMatches(ctx, &models.User{}, "username = ?", username)
	if err != nil {
		return fmt.Errorf("user validator: check username: %w", err)
	}
	if count > 1 {
		v.log.Warn("username held by more than one user", zap.String("username", username), zap.Int64("users", count))
	}
	if count > 0 {
		metrics.ValidationFailures.WithLabelValues("username", "taken").Inc()
		return ErrUsernameTaken
	}
	return nil
}

func (v *UserValidator) countMatches(ctx context.Context, model any, query string, args ...any) (int64, error) {
	var count int64
	err := v.db.WithContext(ensureContext(ctx)).Model(model).Where(query, args...).Count(&count).Error
	return count, err
}

func rejected(check, reason, message string) error {
	metrics.ValidationFailures.WithLabelValues(check, reason).Inc()
	return apperrors.NewValidation(message)
}

