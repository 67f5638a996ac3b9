package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/charlesng35/accounthub/internal/app"
	"github.com/charlesng35/accounthub/internal/cache"
	"github.com/charlesng35/accounthub/internal/handlers"
	"github.com/charlesng35/accounthub/internal/middleware"
	"github.com/charlesng35/accounthub/internal/services"
)

// Services bundles the domain services exposed over HTTP.
type Services struct {
	Validator    *services.UserValidator
	Registration *services.RegistrationService
	Verification *services.EmailVerificationService
	Photos       *services.ProfilePhotoService
	IPs          *services.IPAddressService
}

func (s Services) validate() error {
	switch {
	case s.Validator == nil:
		return fmt.Errorf("user validator must be provided")
	case s.Registration == nil:
		return fmt.Errorf("registration service must be provided")
	case s.Verification == nil:
		return fmt.Errorf("verification service must be provided")
	case s.Photos == nil:
		return fmt.Errorf("photo service must be provided")
	case s.IPs == nil:
		return fmt.Errorf("ip address service must be provided")
	}
	return nil
}

// NewRouter builds the Gin engine, wires middleware and registers routes.
// store backs the rate limiter and may be nil when rate limiting is disabled.
func NewRouter(db *gorm.DB, cfg *app.Config, svc Services, store cache.Store) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if err := svc.validate(); err != nil {
		return nil, err
	}

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	metricsPath := metricsEndpoint(cfg.Monitoring.Prometheus)

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics(metricsPath))
	r.Use(middleware.SecurityHeaders(cfg.Server.HSTS))

	registerHealthRoutes(r, cfg.Monitoring.Health, db, store)

	limit := func(scope string) gin.HandlerFunc {
		if !cfg.RateLimit.Enabled {
			return middleware.RateLimit(nil, scope, 0, 0)
		}
		return middleware.RateLimit(store, scope, cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}

	api := r.Group("/api")
	registerValidationRoutes(api, handlers.NewValidationHandler(svc.Validator), limit("validation"))
	registerUserRoutes(api, handlers.NewUserHandler(svc.Registration, svc.Verification, svc.Photos, svc.IPs), limit("users"))

	if metricsPath != "" {
		r.GET(metricsPath, gin.WrapH(promhttp.Handler()))
	}

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

func metricsEndpoint(cfg app.PrometheusConfig) string {
	if !cfg.Enabled {
		return ""
	}
	path := strings.TrimSpace(cfg.Endpoint)
	if path == "" {
		return "/metrics"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}
