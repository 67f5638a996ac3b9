package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/accounthub/internal/models"
	"github.com/charlesng35/accounthub/internal/services"
	appErrors "github.com/charlesng35/accounthub/pkg/errors"
	"github.com/charlesng35/accounthub/pkg/response"
)

// UserHandler exposes registration, email verification, photo and IP endpoints.
type UserHandler struct {
	registration *services.RegistrationService
	verification *services.EmailVerificationService
	photos       *services.ProfilePhotoService
	ips          *services.IPAddressService
}

// NewUserHandler configures a user handler with required services.
func NewUserHandler(registration *services.RegistrationService, verification *services.EmailVerificationService, photos *services.ProfilePhotoService, ips *services.IPAddressService) *UserHandler {
	return &UserHandler{
		registration: registration,
		verification: verification,
		photos:       photos,
		ips:          ips,
	}
}

type registerRequest struct {
	Username    string `json:"username" validate:"required"`
	Email       string `json:"email"`
	Password    string `json:"password" validate:"required"`
	SiteAddress string `json:"site_address" validate:"omitempty,max=512"`
}

type sendVerificationRequest struct {
	SiteAddress string `json:"site_address" validate:"omitempty,max=512"`
}

type setPhotoRequest struct {
	Photo string `json:"photo" validate:"required"`
}

type saveIPRequest struct {
	IP string `json:"ip" validate:"omitempty,ip"`
}

type userPayload struct {
	ID            uint      `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

func marshalUser(user *models.User) userPayload {
	return userPayload{
		ID:            user.ID,
		Username:      user.Username,
		Email:         user.EmailAddress(),
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt,
	}
}

// Register handles POST /api/users/register.
func (h *UserHandler) Register(c *gin.Context) {
	var body registerRequest
	if !bindAndValidate(c, &body) {
		return
	}

	user, err := h.registration.Register(requestContext(c), services.RegisterInput{
		Username:    body.Username,
		Email:       body.Email,
		Password:    body.Password,
		IP:          c.ClientIP(),
		SiteAddress: body.SiteAddress,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, marshalUser(user))
}

// Verify handles GET /api/users/verify?code=.
func (h *UserHandler) Verify(c *gin.Context) {
	code := strings.TrimSpace(c.Query("code"))
	if code == "" {
		response.Error(c, appErrors.NewBadRequest("code is required"))
		return
	}

	user, err := h.verification.VerifyEmail(requestContext(c), code)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, marshalUser(user))
}

// SendVerification handles POST /api/users/:id/verification. Delivery happens in
// the background so the response is 202 regardless of the mail outcome.
func (h *UserHandler) SendVerification(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	var body sendVerificationRequest
	if c.Request.ContentLength != 0 && !bindAndValidate(c, &body) {
		return
	}

	ctx := requestContext(c)
	user, err := h.registration.FindUser(ctx, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !user.HasEmail() {
		response.Error(c, appErrors.NewValidation("user has no email address"))
		return
	}

	if err := h.verification.SendEmailVerification(ctx, user, body.SiteAddress); err != nil {
		response.Error(c, err)
		return
	}

	response.Accepted(c, gin.H{
		"user_id":    user.ID,
		"expires_in": int(h.verification.Expiry().Seconds()),
	})
}

// SetPhoto handles PUT /api/users/:id/photo.
func (h *UserHandler) SetPhoto(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	var body setPhotoRequest
	if !bindAndValidate(c, &body) {
		return
	}

	profile, err := h.photos.SetPhoto(requestContext(c), userID, body.Photo)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, profile)
}

// Photo handles GET /api/users/:id/photo and streams the stored image.
func (h *UserHandler) Photo(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	file, err := h.photos.Photo(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Length", strconv.Itoa(len(file.Bytes())))
	c.Data(http.StatusOK, file.ContentType, file.Bytes())
}

// SaveIP handles POST /api/users/:id/ips. The caller's address is recorded when
// no ip is given.
func (h *UserHandler) SaveIP(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	var body saveIPRequest
	if c.Request.ContentLength != 0 && !bindAndValidate(c, &body) {
		return
	}
	ip := strings.TrimSpace(body.IP)
	if ip == "" {
		ip = c.ClientIP()
	}

	ctx := requestContext(c)
	if _, err := h.registration.FindUser(ctx, userID); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.ips.SaveIP(ctx, userID, ip); err != nil {
		response.Error(c, err)
		return
	}

	addresses, err := h.ips.ListIPs(ctx, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, addresses)
}

// ListIPs handles GET /api/users/:id/ips.
func (h *UserHandler) ListIPs(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	ctx := requestContext(c)
	if _, err := h.registration.FindUser(ctx, userID); err != nil {
		response.Error(c, err)
		return
	}

	addresses, err := h.ips.ListIPs(ctx, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, addresses)
}
