package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/accounthub/internal/services"
	"github.com/charlesng35/accounthub/pkg/response"
)

// ValidationHandler lets clients check sign-up fields before submitting them.
type ValidationHandler struct {
	validator *services.UserValidator
}

// NewValidationHandler constructs a ValidationHandler.
func NewValidationHandler(validator *services.UserValidator) *ValidationHandler {
	return &ValidationHandler{validator: validator}
}

type usernameCheckRequest struct {
	Username string `json:"username"`
}

type emailCheckRequest struct {
	Email      string `json:"email"`
	SkipSyntax bool   `json:"skip_syntax"`
}

type passwordCheckRequest struct {
	Password string `json:"password"`
}

type validResponse struct {
	Valid bool `json:"valid"`
}

// Username handles POST /api/validation/username.
func (h *ValidationHandler) Username(c *gin.Context) {
	var body usernameCheckRequest
	if !bindAndValidate(c, &body) {
		return
	}

	if err := h.validator.CheckUsername(requestContext(c), body.Username); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, validResponse{Valid: true})
}

// Email handles POST /api/validation/email.
func (h *ValidationHandler) Email(c *gin.Context) {
	var body emailCheckRequest
	if !bindAndValidate(c, &body) {
		return
	}

	if err := h.validator.CheckEmail(requestContext(c), body.Email, body.SkipSyntax); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, validResponse{Valid: true})
}

// Password handles POST /api/validation/password.
func (h *ValidationHandler) Password(c *gin.Context) {
	var body passwordCheckRequest
	if !bindAndValidate(c, &body) {
		return
	}

	if err := h.validator.CheckPassword(body.Password); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, validResponse{Valid: true})
}
