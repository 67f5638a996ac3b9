package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	appValidator "github.com/charlesng35/accounthub/pkg/validator"
)

func TestFormatValidationError(t *testing.T) {
	err := appValidator.ValidationErrors{
		{Field: "user_name", Tag: "required"},
		{Field: "ip", Tag: "ip"},
		{Field: "site_address", Tag: "max", Param: "512"},
		{Field: "code", Tag: "len", Param: "6"},
	}
	require.Equal(t,
		"user name is required; ip must be a valid IP address; site address must be at most 512 characters; code failed validation: len=6",
		formatValidationError(err))
	require.Equal(t, "invalid request payload", formatValidationError(errors.New("boom")))
	require.Equal(t, "invalid request payload", formatValidationError(nil))
}

func TestUserIDParam(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := map[string]bool{"1": true, "42": true, "0": false, "-3": false, "abc": false}
	for raw, ok := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Params = gin.Params{{Key: "id", Value: raw}}

		id, got := userIDParam(c)
		require.Equal(t, ok, got, raw)
		if ok {
			require.NotZero(t, id)
		} else {
			require.Equal(t, http.StatusBadRequest, w.Code)
		}
	}
}
