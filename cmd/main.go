package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/shenikar/sos_broadcasting_system/internal/audience"
	"github.com/shenikar/sos_broadcasting_system/internal/channel"
	"github.com/shenikar/sos_broadcasting_system/internal/config"
	"github.com/shenikar/sos_broadcasting_system/internal/dispatch"
	"github.com/shenikar/sos_broadcasting_system/internal/events"
	"github.com/shenikar/sos_broadcasting_system/internal/geo"
	v1 "github.com/shenikar/sos_broadcasting_system/internal/handler/http/v1"
	"github.com/shenikar/sos_broadcasting_system/internal/repository"
	"github.com/shenikar/sos_broadcasting_system/internal/service"
	"github.com/shenikar/sos_broadcasting_system/pkg/logger"
	"github.com/shenikar/sos_broadcasting_system/pkg/postgres"
	redisclient "github.com/shenikar/sos_broadcasting_system/pkg/redis"
	"github.com/sirupsen/logrus"

	_ "github.com/shenikar/sos_broadcasting_system/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title SOS Broadcasting System API
// @version 1.0
// @description Emergency alert API: records incidents and fans notifications out to emergency contacts and trusted bystanders.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @securityDefinitions.apikey IdentityToken
// @in header
// @name X-Identity-Token
func runMigrations(cfg *config.Config, log *logrus.Logger) error {
	log.Info("Running database migrations...")

	migrationURL := cfg.DatabaseURL
	if !strings.HasPrefix(migrationURL, "pgx5://") {
		migrationURL = strings.Replace(migrationURL, "postgres://", "pgx5://", 1)
	}

	m, err := migrate.New(
		"file://migrations",
		migrationURL,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Database migrations applied successfully")
	return nil
}

// newGeocoder возвращает nil для GEOCODER_PROVIDER=none: адрес тогда не запрашивается
func newGeocoder(cfg *config.Config) (geo.Geocoder, error) {
	switch cfg.GeocoderProvider {
	case "google":
		return geo.NewGoogleGeocoder(cfg.GoogleMapsAPIKey)
	case "nominatim":
		return geo.NewNominatimGeocoder(cfg.NominatimURL), nil
	}
	return nil, nil
}

func newSMSSender(ctx context.Context, cfg *config.Config, log *logrus.Logger) (channel.SMSSender, error) {
	switch cfg.SMSProvider {
	case "twilio":
		return channel.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber), nil
	case "sns":
		return channel.NewSNSSender(ctx, cfg.AWSRegion)
	}
	log.Warn("SMS_PROVIDER=log: text messages are only written to the log")
	return channel.NewLogSMSSender(log), nil
}

func newMailSender(cfg *config.Config, log *logrus.Logger) channel.MailSender {
	if cfg.EmailProvider == "smtp" {
		return channel.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	}
	log.Warn("EMAIL_PROVIDER=log: emails are only written to the log")
	return channel.NewLogMailSender(log)
}

func main() {
	// Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	log := logger.New(cfg.LogLevel)

	// Контекст для graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Запуск миграций
	if err := runMigrations(cfg, log); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Подключение к PostgreSQL
	dbpool, err := postgres.NewPostgresDB(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer dbpool.Close()
	log.Info("Successfully connected to PostgreSQL")

	// Инициализация Redis клиента
	redisClient, err := redisclient.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Info("Successfully connected to Redis")

	// События: очередь вебхуков и live-поток
	eventPublisher := events.NewRedisEventPublisher(redisClient)
	subscriber := events.NewSubscriber(redisClient)

	// Воркер вебхуков
	webhookWorker := events.NewWebhookWorker(redisClient, log, cfg)
	webhookWorker.Start(ctx)

	// Инициализация репозиториев
	incidentRepo := repository.NewIncidentRepository(dbpool, redisClient, cfg.IncidentCacheTTL)
	audienceRepo := repository.NewAudienceRepository(dbpool)
	notificationRepo := repository.NewNotificationRepository(dbpool)

	// Геолокация
	geocoder, err := newGeocoder(cfg)
	if err != nil {
		log.Fatalf("Failed to create geocoder: %v", err)
	}
	locationResolver := geo.NewResolver(geocoder, log)

	// Каналы доставки
	smsSender, err := newSMSSender(ctx, cfg, log)
	if err != nil {
		log.Fatalf("Failed to create SMS sender: %v", err)
	}
	dispatcher := dispatch.NewDispatcher(log, cfg.ChannelSendTimeout,
		channel.NewInAppChannel(notificationRepo, eventPublisher, log),
		channel.NewSMSChannel(smsSender, cfg.SMSDefaultCountryCode),
		channel.NewEmailChannel(newMailSender(cfg, log)),
	)

	audienceResolver := audience.NewResolver(audienceRepo, audienceRepo, log)

	// Инициализация сервисов
	incidentService := service.NewIncidentService(
		incidentRepo,
		locationResolver,
		audienceResolver,
		dispatcher,
		eventPublisher,
		log,
		cfg,
	)
	notificationService := service.NewNotificationService(notificationRepo, log)

	// Инициализация хэндлеров
	handler := v1.NewHandler(incidentService, notificationService, subscriber, log, cfg)

	// Настройка Gin роутера
	router := gin.Default()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	// Добавление маршрута для Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Запуск HTTP-сервера
	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	// Запуск сервера в горутине
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Error starting HTTP server: %v", err)
		}
	}()
	log.Infof("HTTP server started on port %s", cfg.HTTPPort)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Received shutdown signal, shutting down server...")

	// Останавливаем воркер вебхуков
	cancel()

	// Запас на рассылки, которые уже начались
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 3*cfg.ChannelSendTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server gracefully stopped")
}
