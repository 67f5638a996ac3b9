package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/accounthub/internal/api"
	"github.com/charlesng35/accounthub/internal/app"
	"github.com/charlesng35/accounthub/internal/app/maintenance"
	"github.com/charlesng35/accounthub/internal/cache"
	"github.com/charlesng35/accounthub/internal/database"
	"github.com/charlesng35/accounthub/internal/geo"
	"github.com/charlesng35/accounthub/internal/services"
	"github.com/charlesng35/accounthub/pkg/logger"
	"github.com/charlesng35/accounthub/pkg/mail"
	"github.com/charlesng35/accounthub/pkg/metrics"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB         *gorm.DB
	Store      cache.Store
	Locator    io.Closer
	Dispatcher *mail.Dispatcher
	Cleaner    *maintenance.Cleaner
	Services   api.Services
	Router     *gin.Engine
}

// bootstrapRuntime initialises the database, cache, mail pipeline, services and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mode
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	stack.Store, err = cfg.Cache.NewStore(ctx, stack.DB)
	if err != nil {
		return nil, err
	}
	log.Info("cache ready", zap.String("driver", cacheDriver(cfg.Cache)))

	locator, closer, err := cfg.Geolocation.NewLocator(stack.Store, logger.WithModule("geo"))
	if err != nil {
		return nil, err
	}
	stack.Locator = closer
	if locator == nil {
		log.Info("geolocation disabled")
	}

	smtp, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise smtp mailer: %w", err)
	}
	stack.Dispatcher, err = mail.NewDispatcher(smtp, cfg.Email.DispatcherOptions(logger.WithModule("mail"), recordDelivery)...)
	if err != nil {
		return nil, fmt.Errorf("initialise mail dispatcher: %w", err)
	}

	if err := buildServices(stack, cfg, locator); err != nil {
		return nil, err
	}

	if cfg.Maintenance.Enabled {
		var pruner maintenance.CachePruner
		if dbStore, ok := stack.Store.(*cache.DatabaseStore); ok {
			pruner = dbStore
		}
		stack.Cleaner = maintenance.NewCleaner(stack.Services.Verification, pruner,
			maintenance.WithVerificationSchedule(cfg.Maintenance.VerificationSchedule),
			maintenance.WithCacheSchedule(cfg.Maintenance.CacheSchedule),
		)
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	stack.Router, err = api.NewRouter(stack.DB, cfg, stack.Services, stack.Store)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

func buildServices(stack *runtimeStack, cfg *app.Config, locator geo.Locator) error {
	var err error
	svc := &stack.Services

	svc.Validator, err = services.NewUserValidator(stack.DB, cfg.Users.ValidatorOptions(logger.WithModule("validation"))...)
	if err != nil {
		return fmt.Errorf("initialise user validator: %w", err)
	}

	svc.Verification, err = services.NewEmailVerificationService(stack.DB, stack.Dispatcher,
		cfg.Users.VerificationOptions(cfg.Email.SMTP.From, logger.WithModule("verification"))...)
	if err != nil {
		return fmt.Errorf("initialise verification service: %w", err)
	}

	svc.Photos, err = services.NewProfilePhotoService(stack.DB, cfg.Users.PhotoOptions()...)
	if err != nil {
		return fmt.Errorf("initialise photo service: %w", err)
	}

	svc.IPs, err = services.NewIPAddressService(stack.DB, locator, services.WithIPLogger(logger.WithModule("ip")))
	if err != nil {
		return fmt.Errorf("initialise ip address service: %w", err)
	}

	svc.Registration, err = services.NewRegistrationService(stack.DB, svc.Validator, svc.Verification, svc.IPs,
		services.WithRegistrationLogger(logger.WithModule("registration")))
	if err != nil {
		return fmt.Errorf("initialise registration service: %w", err)
	}
	return nil
}

func recordDelivery(o mail.Outcome) {
	switch {
	case o.Err == nil:
		metrics.VerificationEmails.WithLabelValues("delivered").Inc()
	case errors.Is(o.Err, mail.ErrSMTPDisabled):
	default:
		metrics.VerificationEmails.WithLabelValues("failed").Inc()
	}
}

// Shutdown drains queued email, stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if s.Cleaner != nil {
		<-s.Cleaner.Stop().Done()
	}

	if s.Dispatcher != nil {
		errs = multierr.Append(errs, s.Dispatcher.Close(ctx))
	}

	if s.Locator != nil {
		errs = multierr.Append(errs, s.Locator.Close())
	}

	if s.Store != nil {
		errs = multierr.Append(errs, s.Store.Close())
	}

	if s.DB != nil {
		errs = multierr.Append(errs, database.Close(s.DB))
	}

	if errs != nil {
		log.Warn("shutdown completed with errors", zap.Error(errs))
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.ConnectionConfig()
	db, err := database.MigrateOnOpen(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}

func cacheDriver(cfg app.CacheConfig) string {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		return app.CacheDriverMemory
	}
	return driver
}
