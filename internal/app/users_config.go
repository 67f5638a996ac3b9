package app

import (
	"go.uber.org/zap"

	"github.com/charlesng35/accounthub/internal/services"
)

// ValidatorOptions configures services.UserValidator.
func (c UsersConfig) ValidatorOptions(log *zap.Logger) []services.UserValidatorOption {
	return []services.UserValidatorOption{
		services.WithMaxUsernameLength(c.MaxUsernameLength),
		services.WithValidatorLogger(log),
	}
}

// VerificationOptions configures services.EmailVerificationService. from is the
// sender address of the SMTP block.
func (c UsersConfig) VerificationOptions(from string, log *zap.Logger) []services.VerificationOption {
	return []services.VerificationOption{
		services.WithSiteAddress(c.SiteAddress),
		services.WithIssueReportURL(c.IssueReportURL),
		services.WithVerificationSender(from),
		services.WithVerificationExpiry(c.VerificationExpiry),
		services.WithVerificationCodeSize(c.VerificationCodeBytes),
		services.WithVerificationLogger(log),
	}
}

// PhotoOptions configures services.ProfilePhotoService.
func (c UsersConfig) PhotoOptions() []services.PhotoOption {
	return []services.PhotoOption{
		services.WithPhotoMaxBytes(c.PhotoMaxBytes),
		services.WithPhotoSize(c.PhotoSize),
	}
}
