package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinic-booking/config"
	deliveryHttp "clinic-booking/internal/delivery/http"
	"clinic-booking/internal/delivery/http/handler"
	"clinic-booking/internal/delivery/http/middleware"
	"clinic-booking/internal/infrastructure/cache"
	"clinic-booking/internal/infrastructure/database"
	"clinic-booking/internal/infrastructure/metrics"
	"clinic-booking/internal/infrastructure/notify"
	"clinic-booking/internal/repository"
	"clinic-booking/internal/service"
	"clinic-booking/internal/usecase"
	"clinic-booking/internal/worker"
	"clinic-booking/pkg/jwt"
	"clinic-booking/pkg/validator"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// App holds all dependencies for the application
type App struct {
	Config         *config.Config
	DB             *gorm.DB
	RedisClient    *redis.Client
	Server         *http.Server
	Notifier       *service.NotificationService
	ReminderWorker *worker.ReminderWorker
}

// New creates a new App instance with all dependencies initialized
func New() (*App, error) {
	app := &App{}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg

	// Setup logger
	log := setupLogger(cfg.App.Env)
	log.Info("Configuration loaded successfully")

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.DB, cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db
	log.Info("Database connected successfully")

	if err := database.EnsureSchema(db, cfg.DB.AutoMigrate, log); err != nil {
		app.Close()
		return nil, fmt.Errorf("database schema check failed: %w", err)
	}

	// Initialize Redis
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.RedisClient = redisClient
	log.Info("Redis connected successfully")

	// Initialize all layers
	if err := app.initialize(cfg, log); err != nil {
		app.Close()
		return nil, err
	}

	return app, nil
}

// setupLogger configures the logrus logger
func setupLogger(env string) *logrus.Logger {
	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.InfoLevel)
	if env == "development" {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

// initialize creates every layer and the HTTP server
func (app *App) initialize(cfg *config.Config, log *logrus.Logger) error {
	db, redisClient := app.DB, app.RedisClient
	loc := cfg.App.Location()

	// Metrics
	var registry *prometheus.Registry
	var bookingMetrics *metrics.BookingMetrics
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		bookingMetrics = metrics.NewBookingMetrics(registry)
	}

	// Initialize JWT service
	jwtService := jwt.NewJWTService(cfg.JWT)

	// Initialize validator
	customValidator := validator.NewValidator()

	// Availability cache backend
	availabilityCache, err := newAvailabilityCache(cfg.Cache, redisClient, log)
	if err != nil {
		return err
	}

	// Notification transports
	emailSender, err := newEmailSender(cfg.Email, log)
	if err != nil {
		return err
	}
	whatsappSender := notify.NewUltraMsgSender(cfg.WhatsApp, log)

	// Initialize repositories
	providerRepo := repository.NewProviderRepository()
	patientRepo := repository.NewPatientRepository()
	appointmentRepo := repository.NewAppointmentRepository()
	catalogRepo := repository.NewCatalogRepository()
	workScheduleRepo := repository.NewWorkScheduleRepository()
	unavailabilityRepo := repository.NewUnavailabilityRepository()
	auditLogRepo := repository.NewAuditLogRepository()

	// Initialize services
	policy := usecase.NewBookingPolicy(loc, cfg.App.BookingHorizonDays, time.Now)
	authority := service.NewCancellationAuthority(jwtService, loc, time.Now)
	auditService := service.NewAuditService(log, auditLogRepo)
	cacheService := service.NewAvailabilityCacheService(availabilityCache, cfg.Cache.AvailabilityTTL, log, bookingMetrics)
	notifier := service.NewNotificationService(whatsappSender, emailSender, cfg.App.BaseURL, log, bookingMetrics)
	app.Notifier = notifier

	// Initialize usecases
	authUsecase := usecase.NewAuthUsecase(db, log, providerRepo, auditService, jwtService, redisClient)
	availabilityUsecase := usecase.NewAvailabilityUsecase(db, log, policy, providerRepo, workScheduleRepo, unavailabilityRepo, appointmentRepo, cacheService)
	appointmentUsecase := usecase.NewAppointmentUsecase(db, log, policy, providerRepo, patientRepo, appointmentRepo, catalogRepo,
		workScheduleRepo, unavailabilityRepo, authority, auditService, cacheService, notifier, bookingMetrics)
	cancellationUsecase := usecase.NewCancellationUsecase(db, log, policy, appointmentRepo, authority, auditService, cacheService, notifier, bookingMetrics)
	workScheduleUsecase := usecase.NewWorkScheduleUsecase(db, log, policy, workScheduleRepo, appointmentRepo, auditService, cacheService)
	unavailabilityUsecase := usecase.NewUnavailabilityUsecase(db, log, policy, unavailabilityRepo, auditService, cacheService)
	catalogUsecase := usecase.NewCatalogUsecase(db, log, catalogRepo, auditService)
	auditLogUsecase := usecase.NewAuditLogUsecase(db, log, auditLogRepo)
	reminderUsecase := usecase.NewReminderUsecase(db, log, policy, usecase.ReminderWindow{
		Start:       cfg.Reminder.WindowStart,
		End:         cfg.Reminder.WindowEnd,
		Concurrency: cfg.Reminder.Concurrency,
	}, appointmentRepo, notifier, bookingMetrics)

	// Background reminders
	if cfg.Reminder.Enabled {
		app.ReminderWorker = worker.NewReminderWorker(reminderUsecase, cfg.Reminder.Interval, log)
	}

	// Initialize router
	var gatherer prometheus.Gatherer
	if registry != nil {
		gatherer = registry
	}
	router := deliveryHttp.NewRouter(deliveryHttp.Handlers{
		Auth:           handler.NewAuthHandler(authUsecase, customValidator),
		Appointment:    handler.NewAppointmentHandler(appointmentUsecase, cancellationUsecase, customValidator),
		Availability:   handler.NewAvailabilityHandler(availabilityUsecase),
		WorkSchedule:   handler.NewWorkScheduleHandler(workScheduleUsecase, customValidator),
		Unavailability: handler.NewUnavailabilityHandler(unavailabilityUsecase, customValidator),
		Catalog:        handler.NewCatalogHandler(catalogUsecase, customValidator),
		AuditLog:       handler.NewAuditLogHandler(auditLogUsecase),
		Cron:           handler.NewCronHandler(reminderUsecase),
		Health:         handler.NewHealthHandler(db, redisClient),
	}, deliveryHttp.Middlewares{
		Auth:    middleware.NewAuthMiddleware(jwtService, redisClient),
		CORS:    middleware.NewCORSMiddleware(cfg.App.BaseURL),
		Cron:    middleware.NewCronMiddleware(cfg.Reminder.CronSecret),
		Logging: middleware.NewLoggingMiddleware(log, bookingMetrics),
	}, gatherer)

	// Create server
	app.Server = &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.App.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

func newAvailabilityCache(cfg config.CacheConfig, redisClient *redis.Client, log *logrus.Logger) (cache.Cache, error) {
	switch cfg.Driver {
	case "local":
		log.WithField("capacity", cfg.LocalCapacity).Info("Using in-process availability cache")
		return cache.NewLocalCache(cfg.LocalCapacity)
	case "redis", "":
		return cache.NewRedisCache(redisClient), nil
	default:
		return nil, fmt.Errorf("unknown CACHE_DRIVER %q", cfg.Driver)
	}
}

func newEmailSender(cfg config.EmailConfig, log *logrus.Logger) (notify.EmailSender, error) {
	switch cfg.Provider {
	case "sendgrid":
		return notify.NewSendGridSender(cfg.SendGridAPIKey, cfg.FromEmail, cfg.FromName, log), nil
	case "ses":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return notify.NewSESSender(ctx, cfg.AWSRegion, cfg.FromEmail, cfg.FromName, log)
	case "stub", "":
		return notify.NewStubEmailSender(log), nil
	default:
		return nil, fmt.Errorf("unknown EMAIL_PROVIDER %q", cfg.Provider)
	}
}

// Run starts the HTTP server and handles graceful shutdown
func (app *App) Run() {
	// Start server in goroutine
	go func() {
		logrus.Infof("Server starting on port %s", app.Config.App.Port)
		logrus.Infof("Environment: %s", app.Config.App.Env)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	app.waitForShutdown()
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Shutdown HTTP server gracefully
	if err := app.Server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	// Stop background work before the pools go away
	if app.ReminderWorker != nil {
		app.ReminderWorker.Stop()
	}
	if app.Notifier != nil {
		app.Notifier.Wait()
	}

	// Close connections
	app.Close()

	logrus.Info("Server shutdown complete")
}

// Close closes all connections (database, redis, etc.)
func (app *App) Close() {
	// Close database connection
	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	// Close Redis connection
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
