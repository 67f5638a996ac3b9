package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/accounthub/internal/api"
	"github.com/charlesng35/accounthub/internal/app"
	"github.com/charlesng35/accounthub/internal/cache"
	sharedtestutil "github.com/charlesng35/accounthub/internal/database/testutil"
	"github.com/charlesng35/accounthub/internal/services"
	"github.com/charlesng35/accounthub/pkg/mail"
	"github.com/charlesng35/accounthub/pkg/response"
)

// FailingIP makes the fake geolocation API answer with a failure status.
const FailingIP = "203.0.113.99"

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T      *testing.T
	DB     *gorm.DB
	Router *gin.Engine
	Config *app.Config
	Mailer *RecordingMailer
	Store  cache.Store
}

// EnvOption adjusts the configuration before the router is built.
type EnvOption func(*app.Config)

// WithRateLimit enables rate limiting with the given budget.
func WithRateLimit(requests int, window time.Duration) EnvOption {
	return func(cfg *app.Config) {
		cfg.RateLimit = app.RateLimitConfig{Enabled: true, Requests: requests, Window: window}
	}
}

// NewEnv provisions a fresh handler test environment with migrations applied. The
// geolocation API is served by a local fake.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())
	geoAPI := httptest.NewServer(http.HandlerFunc(fakeGeoAPI))
	t.Cleanup(geoAPI.Close)

	cfg := &app.Config{
		Users: app.UsersConfig{
			MaxUsernameLength: 32,
			SiteAddress:       "https://accounts.example.com",
		},
		Geolocation: app.GeolocationConfig{
			APIURL:   geoAPI.URL + "/json/%s",
			Timeout:  time.Second,
			CacheTTL: time.Minute,
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true, Timeout: time.Second},
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	store := cache.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	locator, _, err := cfg.Geolocation.NewLocator(store, nil)
	require.NoError(t, err)

	mailer := &RecordingMailer{}
	validator, err := services.NewUserValidator(db, cfg.Users.ValidatorOptions(nil)...)
	require.NoError(t, err)
	verification, err := services.NewEmailVerificationService(db, mailer, cfg.Users.VerificationOptions("no-reply@example.com", nil)...)
	require.NoError(t, err)
	photos, err := services.NewProfilePhotoService(db, cfg.Users.PhotoOptions()...)
	require.NoError(t, err)
	ips, err := services.NewIPAddressService(db, locator)
	require.NoError(t, err)
	registration, err := services.NewRegistrationService(db, validator, verification, ips)
	require.NoError(t, err)

	router, err := api.NewRouter(db, cfg, api.Services{
		Validator:    validator,
		Registration: registration,
		Verification: verification,
		Photos:       photos,
		IPs:          ips,
	}, store)
	require.NoError(t, err)

	return &Env{
		T:      t,
		DB:     db,
		Router: router,
		Config: cfg,
		Mailer: mailer,
		Store:  store,
	}
}

func fakeGeoAPI(w http.ResponseWriter, r *http.Request) {
	ip := strings.TrimPrefix(r.URL.Path, "/json/")
	w.Header().Set("Content-Type", "application/json")
	if ip == FailingIP {
		_, _ = w.Write([]byte(`{"status":"fail","message":"reserved range","query":"` + ip + `"}`))
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":     "success",
		"query":      ip,
		"isp":        "Example ISP",
		"country":    "Iceland",
		"regionName": "Capital Region",
		"city":       "Reykjavik",
	})
}

// RecordingMailer captures messages instead of delivering them.
type RecordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

// Send records msg.
func (m *RecordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

// Messages returns a copy of the recorded messages.
func (m *RecordingMailer) Messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.sent...)
}

var verificationCodePattern = regexp.MustCompile(`code=([A-Za-z0-9_%-]+)`)

// LastVerificationCode extracts the code from the most recent verification email.
func (m *RecordingMailer) LastVerificationCode(t *testing.T) string {
	t.Helper()
	msgs := m.Messages()
	require.NotEmpty(t, msgs, "no email was sent")
	match := verificationCodePattern.FindStringSubmatch(msgs[len(msgs)-1].Body)
	require.Len(t, match, 2, msgs[len(msgs)-1].Body)
	return match[1]
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding automatically.
func (e *Env) Request(method, path string, body any) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)
	req.RemoteAddr = "198.51.100.7:41000"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// UserPayload mirrors the user object returned by the user endpoints.
type UserPayload struct {
	ID            uint   `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// Register creates an account through the API and returns the created user.
func (e *Env) Register(username, email, password string) UserPayload {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/users/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var user UserPayload
	DecodeInto(e.T, resp.Data, &user)
	require.NotZero(e.T, user.ID)
	return user
}
