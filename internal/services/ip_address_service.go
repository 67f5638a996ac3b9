package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/accounthub/internal/geo"
	"github.com/charlesng35/accounthub/internal/models"
	"github.com/charlesng35/accounthub/pkg/metrics"
)

// IPAddressOption customises the IPAddressService.
type IPAddressOption func(*IPAddressService)

// WithIPLogger overrides the service logger.
func WithIPLogger(log *zap.Logger) IPAddressOption {
	return func(s *IPAddressService) {
		if log != nil {
			s.log = log
		}
	}
}

// IPAddressService records the addresses users are seen from.
type IPAddressService struct {
	db      *gorm.DB
	locator geo.Locator
	log     *zap.Logger
}

// NewIPAddressService constructs the service. A nil locator stores bare records only.
func NewIPAddressService(db *gorm.DB, locator geo.Locator, opts ...IPAddressOption) (*IPAddressService, error) {
	if db == nil {
		return nil, errors.New("ip address service: db is required")
	}
	s := &IPAddressService{db: db, locator: locator, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SaveIP records ip for userID once. Anonymous users, blank addresses and pairs
// already on record are ignored. When the lookup fails for any reason a record
// carrying only the user and address is stored instead; only database errors
// reach the caller.
func (s *IPAddressService) SaveIP(ctx context.Context, userID uint, ip string) error {
	ip = strings.TrimSpace(ip)
	if userID == models.AnonymousUserID || ip == "" {
		return nil
	}
	ctx = ensureContext(ctx)

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.IPAddress{}).
		Where("user_id = ? AND ip = ?", userID, ip).
		Count(&count).Error; err != nil {
		return fmt.Errorf("ip address service: check existing: %w", err)
	}
	if count > 0 {
		return nil
	}

	loc, err := s.locate(ctx, ip)
	if err != nil {
		source := "none"
		if s.locator != nil {
			source = s.locator.Name()
		}
		reason := geo.FailureReason(err)
		metrics.GeoLookups.WithLabelValues(source, reason).Inc()
		s.log.Warn("ip geolocation failed; storing address only",
			zap.Uint("user_id", userID),
			zap.String("ip", ip),
			zap.String("reason", reason),
			zap.Error(err),
		)

		// The lookup may have failed because the caller went away; the fallback
		// record is still stored.
		bare := models.IPAddress{UserID: userID, IP: ip}
		if err := s.db.WithContext(context.WithoutCancel(ctx)).Create(&bare).Error; err != nil {
			if isUniqueConstraintError(err) {
				return nil
			}
			return fmt.Errorf("ip address service: store address: %w", err)
		}
		return nil
	}

	outcome := "success"
	if loc.Cached {
		outcome = "cached"
	}
	metrics.GeoLookups.WithLabelValues(loc.Source, outcome).Inc()
	record := models.IPAddress{UserID: userID, IP: ip}
	if err := s.db.WithContext(ctx).
		Where(models.IPAddress{UserID: userID, IP: ip}).
		Assign(models.IPAddress{
			ISP:     loc.ISP,
			Country: loc.Country,
			Region:  loc.Region,
			City:    loc.City,
			Source:  loc.Source,
			Raw:     datatypes.JSON(loc.Raw),
		}).
		FirstOrCreate(&record).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil
		}
		return fmt.Errorf("ip address service: store location: %w", err)
	}
	return nil
}

// ListIPs returns the addresses recorded for userID, newest first.
func (s *IPAddressService) ListIPs(ctx context.Context, userID uint) ([]models.IPAddress, error) {
	var records []models.IPAddress
	if err := s.db.WithContext(ensureContext(ctx)).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("ip address service: list: %w", err)
	}
	return records, nil
}

func (s *IPAddressService) locate(ctx context.Context, ip string) (*geo.Location, error) {
	if s.locator == nil {
		return nil, errors.New("no locator configured")
	}
	return s.locator.Locate(ctx, ip)
}
