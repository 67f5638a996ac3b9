package handlers_test

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/accounthub/internal/handlers/testutil"
	"github.com/charlesng35/accounthub/internal/models"
)

type ipPayload struct {
	IP      string `json:"ip"`
	City    string `json:"city"`
	Country string `json:"country"`
	Source  string `json:"source"`
}

func TestRegisterCreatesUserAndSendsVerification(t *testing.T) {
	env := testutil.NewEnv(t)

	user := env.Register("ann_1", "Ann@Example.com", "s3cret")
	require.Equal(t, "ann_1", user.Username)
	require.Equal(t, "ann@example.com", user.Email)
	require.False(t, user.EmailVerified)

	msgs := env.Mailer.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, []string{"ann@example.com"}, msgs[0].To)
	require.Contains(t, msgs[0].Body, "https://accounts.example.com/api/users/verify?code=")

	var addresses []models.IPAddress
	require.NoError(t, env.DB.Where("user_id = ?", user.ID).Find(&addresses).Error)
	require.Len(t, addresses, 1)
	require.Equal(t, "198.51.100.7", addresses[0].IP)
	require.Equal(t, "Reykjavik", addresses[0].City)
	require.True(t, addresses[0].Located())
}

func TestRegisterRejectsDuplicatesAndBadInput(t *testing.T) {
	env := testutil.NewEnv(t)
	env.Register("bob", "bob@example.com", "pw123")

	cases := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"username taken", map[string]string{"username": "bob", "email": "other@example.com", "password": "pw123"}, http.StatusConflict, "USERNAME_TAKEN"},
		{"email taken", map[string]string{"username": "bobby", "email": "BOB@example.com", "password": "pw123"}, http.StatusConflict, "EMAIL_TAKEN"},
		{"bad username", map[string]string{"username": "bad name!", "password": "pw123"}, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"short password", map[string]string{"username": "carol", "password": "ab"}, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"missing password", map[string]string{"username": "carol"}, http.StatusBadRequest, "VALIDATION_FAILED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.Request(http.MethodPost, "/api/users/register", tc.body)
			require.Equal(t, tc.status, w.Code, w.Body.String())
			resp := testutil.DecodeResponse(t, w)
			require.False(t, resp.Success)
			require.Equal(t, tc.code, resp.Error.Code)
		})
	}

	var count int64
	require.NoError(t, env.DB.Model(&models.User{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestRegisterInvalidJSON(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodPost, "/api/users/register", "not-an-object")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "BAD_REQUEST", testutil.DecodeResponse(t, w).Error.Code)
}

func TestVerifyEmail(t *testing.T) {
	env := testutil.NewEnv(t)
	user := env.Register("dana", "dana@example.com", "pw123")
	code := env.Mailer.LastVerificationCode(t)

	w := env.Request(http.MethodGet, "/api/users/verify?code="+code, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var verified testutil.UserPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &verified)
	require.Equal(t, user.ID, verified.ID)
	require.True(t, verified.EmailVerified)

	w = env.Request(http.MethodGet, "/api/users/verify?code="+code, nil)
	require.Equal(t, http.StatusNotFound, w.Code, "codes are single use")
	require.Equal(t, "VERIFICATION_NOT_FOUND", testutil.DecodeResponse(t, w).Error.Code)

	w = env.Request(http.MethodGet, "/api/users/verify", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendVerification(t *testing.T) {
	env := testutil.NewEnv(t)
	user := env.Register("erin", "erin@example.com", "pw123")
	first := env.Mailer.LastVerificationCode(t)

	w := env.Request(http.MethodPost, "/api/users/"+itoa(user.ID)+"/verification", map[string]string{
		"site_address": "beta.example.com/",
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	msgs := env.Mailer.Messages()
	require.Len(t, msgs, 2)
	require.Contains(t, msgs[1].Subject, "beta.example.com")
	require.Contains(t, msgs[1].Body, "http://beta.example.com/api/users/verify?code=")

	second := env.Mailer.LastVerificationCode(t)
	require.NotEqual(t, first, second)
	require.Equal(t, http.StatusNotFound, env.Request(http.MethodGet, "/api/users/verify?code="+first, nil).Code,
		"a new code replaces the previous one")
	require.Equal(t, http.StatusOK, env.Request(http.MethodGet, "/api/users/verify?code="+second, nil).Code)
}

func TestSendVerificationErrors(t *testing.T) {
	env := testutil.NewEnv(t)
	noEmail := env.Register("frank", "", "pw123")

	w := env.Request(http.MethodPost, "/api/users/"+itoa(noEmail.ID)+"/verification", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "VALIDATION_FAILED", testutil.DecodeResponse(t, w).Error.Code)

	w = env.Request(http.MethodPost, "/api/users/999/verification", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "USER_NOT_FOUND", testutil.DecodeResponse(t, w).Error.Code)

	w = env.Request(http.MethodPost, "/api/users/0/verification", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.Request(http.MethodPost, "/api/users/abc/verification", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	require.Empty(t, env.Mailer.Messages())
}

func TestPhotoUploadAndDownload(t *testing.T) {
	env := testutil.NewEnv(t)
	user := env.Register("gail", "gail@example.com", "pw123")
	path := "/api/users/" + itoa(user.ID) + "/photo"

	w := env.Request(http.MethodGet, path, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = env.Request(http.MethodPut, path, map[string]string{"photo": pngDataURI(t, 300, 200)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var profile struct {
		UserID           uint   `json:"user_id"`
		PhotoContentType string `json:"photo_content_type"`
		PhotoSize        int64  `json:"photo_size"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &profile)
	require.Equal(t, user.ID, profile.UserID)
	require.Equal(t, "image/jpeg", profile.PhotoContentType)
	require.Positive(t, profile.PhotoSize)

	w = env.Request(http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	require.EqualValues(t, profile.PhotoSize, w.Body.Len())
}

func TestPhotoUploadRejectsBadInput(t *testing.T) {
	env := testutil.NewEnv(t)
	user := env.Register("hank", "", "pw123")
	path := "/api/users/" + itoa(user.ID) + "/photo"

	w := env.Request(http.MethodPut, path, map[string]string{"photo": "not a data uri"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "VALIDATION_FAILED", testutil.DecodeResponse(t, w).Error.Code)

	text := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("just some text, not an image"))
	w = env.Request(http.MethodPut, path, map[string]string{"photo": text})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Equal(t, "PHOTO_REJECTED", testutil.DecodeResponse(t, w).Error.Code)

	w = env.Request(http.MethodPut, "/api/users/424242/photo", map[string]string{"photo": pngDataURI(t, 8, 8)})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSaveAndListIPs(t *testing.T) {
	env := testutil.NewEnv(t)
	user := env.Register("ivan", "", "pw123")
	path := "/api/users/" + itoa(user.ID) + "/ips"

	w := env.Request(http.MethodPost, path, map[string]string{"ip": testutil.FailingIP})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var addresses []ipPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &addresses)
	require.Len(t, addresses, 2)

	byIP := map[string]ipPayload{}
	for _, a := range addresses {
		byIP[a.IP] = a
	}
	require.Equal(t, "Reykjavik", byIP["198.51.100.7"].City)
	require.Equal(t, "ip-api", byIP["198.51.100.7"].Source)
	require.Empty(t, byIP[testutil.FailingIP].Source, "failed lookups store the bare address")
	require.Empty(t, byIP[testutil.FailingIP].City)

	w = env.Request(http.MethodPost, path, nil)
	require.Equal(t, http.StatusCreated, w.Code, "client address defaults to the caller")
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &addresses)
	require.Len(t, addresses, 2, "repeat addresses are not duplicated")

	w = env.Request(http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.Request(http.MethodPost, path, map[string]string{"ip": "not-an-ip"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, testutil.DecodeResponse(t, w).Error.Message, "valid IP address")

	w = env.Request(http.MethodGet, "/api/users/777/ips", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func pngDataURI(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
