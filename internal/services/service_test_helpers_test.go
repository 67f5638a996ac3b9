package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/accounthub/internal/database/testutil"
	"github.com/charlesng35/accounthub/internal/geo"
	"github.com/charlesng35/accounthub/internal/models"
	"github.com/charlesng35/accounthub/pkg/mail"
)

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
}

func createTestUser(t *testing.T, db *gorm.DB, username, email string) *models.User {
	t.Helper()

	user := &models.User{Username: username, Password: "hash"}
	if email != "" {
		user.Email = &email
	}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(&models.UserProfile{UserID: user.ID, Email: normaliseEmail(email)}).Error)
	return user
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

func (m *recordingMailer) messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.sent...)
}

type stubLocator struct {
	mu    sync.Mutex
	calls int
	loc   *geo.Location
	err   error
}

func (l *stubLocator) Locate(_ context.Context, ip string) (*geo.Location, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	loc := *l.loc
	loc.IP = ip
	return &loc, nil
}

func (l *stubLocator) Name() string { return "stub" }

func (l *stubLocator) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}
