package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/accounthub/internal/models"
	"github.com/charlesng35/accounthub/pkg/datauri"
	apperrors "github.com/charlesng35/accounthub/pkg/errors"
)

const (
	defaultPhotoMaxBytes int64 = 5 << 20
	defaultPhotoSize           = 256
)

var allowedPhotoTypes = []string{"image/png", "image/jpeg", "image/gif"}

// PhotoOption customises the ProfilePhotoService.
type PhotoOption func(*ProfilePhotoService)

// WithPhotoMaxBytes limits the decoded size of uploaded photos.
func WithPhotoMaxBytes(n int64) PhotoOption {
	return func(s *ProfilePhotoService) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

// WithPhotoSize sets the edge length of stored thumbnails.
func WithPhotoSize(px int) PhotoOption {
	return func(s *ProfilePhotoService) {
		if px > 0 {
			s.size = px
		}
	}
}

// WithPhotoClock injects a custom time source.
func WithPhotoClock(clock func() time.Time) PhotoOption {
	return func(s *ProfilePhotoService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// ProfilePhotoService stores profile photos uploaded as data URIs.
type ProfilePhotoService struct {
	db       *gorm.DB
	maxBytes int64
	size     int
	now      func() time.Time
}

// NewProfilePhotoService constructs the photo service.
func NewProfilePhotoService(db *gorm.DB, opts ...PhotoOption) (*ProfilePhotoService, error) {
	if db == nil {
		return nil, errors.New("profile photo service: db is required")
	}
	s := &ProfilePhotoService{
		db:       db,
		maxBytes: defaultPhotoMaxBytes,
		size:     defaultPhotoSize,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SetPhoto decodes dataURI, checks it is an accepted image, scales it to a square
// thumbnail and stores it on the user's profile, creating the profile if needed.
func (s *ProfilePhotoService) SetPhoto(ctx context.Context, userID uint, dataURI string) (*models.UserProfile, error) {
	if userID == models.AnonymousUserID {
		return nil, ErrUserNotFound
	}
	ctx = ensureContext(ctx)

	file, err := datauri.ExtractPhoto(dataURI)
	if err != nil {
		return nil, apperrors.NewValidation("Photo must be a base64 encoded data URI").WithInternal(err)
	}
	if file.Size > s.maxBytes {
		return nil, ErrPhotoTooLarge
	}
	if !file.Matches(allowedPhotoTypes...) {
		return nil, ErrPhotoRejected.WithInternal(fmt.Errorf("detected %s, declared %s", file.Detect(), file.ContentType))
	}

	thumb, err := datauri.Thumbnail(file, s.size)
	if err != nil {
		return nil, ErrPhotoRejected.WithInternal(err)
	}

	var profile models.UserProfile
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrUserNotFound
		}

		if err := tx.Where(models.UserProfile{UserID: userID}).FirstOrCreate(&profile).Error; err != nil {
			return err
		}

		now := s.now()
		profile.Photo = thumb.Bytes()
		profile.PhotoName = thumb.Name
		profile.PhotoContentType = thumb.ContentType
		profile.PhotoSize = thumb.Size
		profile.PhotoUpdatedAt = &now
		return tx.Save(&profile).Error
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("profile photo service: store photo: %w", err)
	}

	return &profile, nil
}

// Photo returns the stored photo of userID, or apperrors.ErrNotFound when none is set.
func (s *ProfilePhotoService) Photo(ctx context.Context, userID uint) (*datauri.UploadedFile, error) {
	var profile models.UserProfile
	err := s.db.WithContext(ensureContext(ctx)).Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("profile photo service: load photo: %w", err)
	}
	if len(profile.Photo) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return datauri.NewUploadedFile(datauri.PhotoFieldName, profile.PhotoName, profile.PhotoContentType, profile.Photo), nil
}
