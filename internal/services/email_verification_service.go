package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/accounthub/internal/models"
	"github.com/charlesng35/accounthub/pkg/crypto"
	"github.com/charlesng35/accounthub/pkg/mail"
	"github.com/charlesng35/accounthub/pkg/metrics"
)

const (
	defaultVerificationExpiry    = 24 * time.Hour
	defaultVerificationCodeBytes = 24

	// VerifyPath is the confirmation endpoint embedded in verification links.
	VerifyPath = "/api/users/verify"
)

var verificationTemplate = mail.MustParseTemplate("email_verification",
	"Confirm {{.Site}} registration",
	`Hi {{.Username}}, you have registered on {{.Site}}.
To complete your registration open the link below:
{{.Link}}
{{if .IssueReportURL}}
If you have any questions or suggestions, please post them here: {{.IssueReportURL}}
{{end}}`)

type verificationEmail struct {
	Username       string
	Site           string
	Link           string
	IssueReportURL string
}

// VerificationOption customises the EmailVerificationService.
type VerificationOption func(*EmailVerificationService)

// WithSiteAddress sets the address used when the caller does not supply one.
func WithSiteAddress(address string) VerificationOption {
	return func(s *EmailVerificationService) {
		s.siteAddress = strings.TrimSpace(address)
	}
}

// WithIssueReportURL sets the link appended to verification emails.
func WithIssueReportURL(link string) VerificationOption {
	return func(s *EmailVerificationService) {
		s.issueReportURL = strings.TrimSpace(link)
	}
}

// WithVerificationSender overrides the From address of verification emails.
func WithVerificationSender(from string) VerificationOption {
	return func(s *EmailVerificationService) {
		s.from = strings.TrimSpace(from)
	}
}

// WithVerificationExpiry overrides the code lifetime.
func WithVerificationExpiry(d time.Duration) VerificationOption {
	return func(s *EmailVerificationService) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithVerificationCodeSize adjusts the number of random bytes in generated codes.
func WithVerificationCodeSize(size int) VerificationOption {
	return func(s *EmailVerificationService) {
		if size > 0 {
			s.codeBytes = size
		}
	}
}

// WithVerificationClock injects a custom time source.
func WithVerificationClock(clock func() time.Time) VerificationOption {
	return func(s *EmailVerificationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithVerificationLogger overrides the service logger.
func WithVerificationLogger(log *zap.Logger) VerificationOption {
	return func(s *EmailVerificationService) {
		if log != nil {
			s.log = log
		}
	}
}

// EmailVerificationService issues and redeems email verification codes.
// Only a fingerprint of each code is stored; the plain code exists in the email alone.
type EmailVerificationService struct {
	db             *gorm.DB
	mailer         mail.Mailer
	log            *zap.Logger
	siteAddress    string
	issueReportURL string
	from           string
	expiry         time.Duration
	codeBytes      int
	now            func() time.Time
}

// NewEmailVerificationService constructs a verification service. Pass a *mail.Dispatcher
// as mailer so sending never blocks on SMTP.
func NewEmailVerificationService(db *gorm.DB, mailer mail.Mailer, opts ...VerificationOption) (*EmailVerificationService, error) {
	if db == nil {
		return nil, errors.New("email verification service: db is required")
	}

	service := &EmailVerificationService{
		db:        db,
		mailer:    mailer,
		log:       zap.NewNop(),
		expiry:    defaultVerificationExpiry,
		codeBytes: defaultVerificationCodeBytes,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Expiry returns the configured code lifetime.
func (s *EmailVerificationService) Expiry() time.Duration {
	return s.expiry
}

// SendEmailVerification assigns a fresh code to user, persists it, and hands the
// confirmation email to the mailer. Users without an email are left untouched.
// Delivery problems are logged and counted, never returned.
func (s *EmailVerificationService) SendEmailVerification(ctx context.Context, user *models.User, siteAddress string) error {
	if user == nil {
		return errors.New("email verification service: user is required")
	}
	if !user.HasEmail() {
		return nil
	}
	if user.IsAnonymous() {
		return errors.New("email verification service: user must be persisted")
	}
	ctx = ensureContext(ctx)

	code, err := crypto.GenerateToken(s.codeBytes)
	if err != nil {
		return fmt.Errorf("email verification service: generate code: %w", err)
	}

	now := s.now()
	fingerprint := crypto.Fingerprint(code)
	res := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{
			"verification_code":    fingerprint,
			"verification_sent_at": now,
			"email_verified":       false,
		})
	if res.Error != nil {
		return fmt.Errorf("email verification service: store code: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	user.VerificationCode = fingerprint
	user.VerificationSentAt = &now
	user.EmailVerified = false

	link, site := s.confirmationURL(siteAddress, code)
	msg, err := verificationTemplate.Render(verificationEmail{
		Username:       user.Username,
		Site:           site,
		Link:           link,
		IssueReportURL: s.issueReportURL,
	}, user.EmailAddress())
	if err != nil {
		return fmt.Errorf("email verification service: render email: %w", err)
	}
	msg.From = s.from

	s.dispatch(ctx, user, msg)
	return nil
}

func (s *EmailVerificationService) dispatch(ctx context.Context, user *models.User, msg mail.Message) {
	if s.mailer == nil {
		metrics.VerificationEmails.WithLabelValues("skipped").Inc()
		s.log.Debug("verification email skipped; no mailer", zap.Uint("user_id", user.ID))
		return
	}

	s.log.Info("sending verification email", zap.Uint("user_id", user.ID))
	err := s.mailer.Send(ctx, msg)
	switch {
	case err == nil:
		metrics.VerificationEmails.WithLabelValues("queued").Inc()
	case errors.Is(err, mail.ErrSMTPDisabled):
		metrics.VerificationEmails.WithLabelValues("skipped").Inc()
		s.log.Debug("verification email skipped; smtp disabled", zap.Uint("user_id", user.ID))
	case errors.Is(err, mail.ErrQueueFull), errors.Is(err, mail.ErrDispatcherClosed):
		metrics.VerificationEmails.WithLabelValues("dropped").Inc()
		s.log.Warn("verification email dropped", zap.Uint("user_id", user.ID), zap.Error(err))
	default:
		metrics.VerificationEmails.WithLabelValues("failed").Inc()
		s.log.Warn("verification email failed", zap.Uint("user_id", user.ID), zap.Error(err))
	}
}

// VerifyEmail redeems code, marking the holder's email as verified.
func (s *EmailVerificationService) VerifyEmail(ctx context.Context, code string) (*models.User, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrVerificationNotFound
	}
	ctx = ensureContext(ctx)

	var user models.User
	if err := s.db.WithContext(ctx).
		Where("verification_code = ?", crypto.Fingerprint(code)).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVerificationNotFound
		}
		return nil, fmt.Errorf("email verification service: find code: %w", err)
	}

	if user.VerificationSentAt != nil && s.now().After(user.VerificationSentAt.Add(s.expiry)) {
		return nil, ErrVerificationExpired
	}

	if err := s.db.WithContext(ctx).
		Model(&user).
		Updates(map[string]any{
			"email_verified":       true,
			"verification_code":    "",
			"verification_sent_at": nil,
		}).Error; err != nil {
		return nil, fmt.Errorf("email verification service: mark verified: %w", err)
	}

	user.EmailVerified = true
	user.VerificationCode = ""
	user.VerificationSentAt = nil
	return &user, nil
}

// ExpireCodes clears codes issued longer ago than the configured lifetime.
func (s *EmailVerificationService) ExpireCodes(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.expiry)
	res := s.db.WithContext(ensureContext(ctx)).
		Model(&models.User{}).
		Where("verification_code <> ? AND verification_sent_at < ?", "", cutoff).
		Updates(map[string]any{
			"verification_code":    "",
			"verification_sent_at": nil,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("email verification service: expire codes: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// confirmationURL builds the link for code and returns it with the site's display name.
// Addresses without a scheme are treated as plain http hosts.
func (s *EmailVerificationService) confirmationURL(siteAddress, code string) (string, string) {
	base := strings.TrimSpace(siteAddress)
	if base == "" {
		base = s.siteAddress
	}
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	base = strings.TrimRight(base, "/")

	site := base
	if parsed, err := url.Parse(base); err == nil && parsed.Host != "" {
		site = parsed.Host
	}
	return base + VerifyPath + "?code=" + url.QueryEscape(code), site
}
