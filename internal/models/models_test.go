package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUserEmailAddress(t *testing.T) {
	var nilUser *User
	require.Equal(t, "", nilUser.EmailAddress())
	require.False(t, nilUser.HasEmail())

	blank := "   "
	require.False(t, (&User{Email: &blank}).HasEmail())

	email := " ann@example.com "
	u := &User{Email: &email}
	require.True(t, u.HasEmail())
	require.Equal(t, "ann@example.com", u.EmailAddress())
}

func TestUserIsAnonymous(t *testing.T) {
	require.True(t, (&User{}).IsAnonymous())
	require.True(t, (*User)(nil).IsAnonymous())

	u := &User{}
	u.ID = 3
	require.False(t, u.IsAnonymous())
}

func TestIPAddressLocated(t *testing.T) {
	require.False(t, IPAddress{UserID: 1, IP: "10.0.0.1"}.Located())
	require.True(t, IPAddress{UserID: 1, IP: "10.0.0.1", Source: "ip-api"}.Located())
	require.Equal(t, "ip_addresses", IPAddress{}.TableName())
}

func TestCacheEntryExpired(t *testing.T) {
	now := time.Now()
	require.False(t, CacheEntry{}.Expired(now), "zero expiry never expires")
	require.False(t, CacheEntry{ExpiresAt: now.Add(time.Minute)}.Expired(now))
	require.True(t, CacheEntry{ExpiresAt: now.Add(-time.Second)}.Expired(now))
}
