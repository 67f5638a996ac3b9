package services

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/charlesng35/accounthub/pkg/errors"
)

var (
	// ErrUsernameTaken indicates another user already holds the username.
	ErrUsernameTaken = apperrors.NewConflict("USERNAME_TAKEN", "This user name is already used")
	// ErrEmailTaken indicates a profile already holds the email address.
	ErrEmailTaken = apperrors.NewConflict("EMAIL_TAKEN", "This email is already used")
	// ErrUserNotFound indicates the referenced user does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	// ErrVerificationNotFound indicates no user holds the verification code.
	ErrVerificationNotFound = apperrors.New("VERIFICATION_NOT_FOUND", "Verification code is invalid", http.StatusNotFound)
	// ErrVerificationExpired indicates the verification code is older than the configured lifetime.
	ErrVerificationExpired = apperrors.New("VERIFICATION_EXPIRED", "Verification code has expired", http.StatusGone)
	// ErrPhotoRejected indicates an uploaded photo is not an accepted image.
	ErrPhotoRejected = apperrors.New("PHOTO_REJECTED", "Photo must be a PNG, JPEG or GIF image", http.StatusUnprocessableEntity)
	// ErrPhotoTooLarge indicates an uploaded photo exceeds the size limit.
	ErrPhotoTooLarge = apperrors.New("PHOTO_TOO_LARGE", "Photo exceeds the maximum allowed size", http.StatusRequestEntityTooLarge)
)

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique") || strings.Contains(lower, "duplicate")
}

// conflictFor maps a unique violation to the conflict error for the column it names.
func conflictFor(err error) error {
	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "email"):
		return ErrEmailTaken.WithInternal(err)
	default:
		return ErrUsernameTaken.WithInternal(err)
	}
}
