package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"github.com/prelink-app/identity/internal/cache"
	"github.com/prelink-app/identity/internal/config"
	"github.com/prelink-app/identity/internal/env"
	"github.com/prelink-app/identity/internal/errHandler"
	"github.com/prelink-app/identity/internal/face"
	"github.com/prelink-app/identity/internal/file"
	"github.com/prelink-app/identity/internal/helper"
	"github.com/prelink-app/identity/internal/image"
	"github.com/prelink-app/identity/internal/ocr"
	"github.com/prelink-app/identity/internal/repository"
	"github.com/prelink-app/identity/internal/smtp"
	"github.com/prelink-app/identity/internal/stream"
	"github.com/prelink-app/identity/internal/verify"
)

// Essential services and resources are exposed to the application
// this makes it possible for methods to have access to these items and when they need them
type Application struct {
	Config       config.Config
	DB           repository.Database
	Logger       *slog.Logger
	Mailer       *smtp.Mailer
	WG           *sync.WaitGroup
	Cache        *cache.Cache
	Kafka        *stream.KafkaStream
	FileUploader *file.Uploader
	Engine       *verify.Engine
	errorHandler *errHandler.ErrorHandler
	helper       *helper.HelperRepository
}

func NewApplication(logger *slog.Logger) (*Application, error) {
	if err := godotenv.Load(); err != nil {
		logger.Error("Error loading .env file", "error", err)
	}

	var cfg config.Config

	// config values are loaded from the .env file
	// Default values are provided for these items and these should strictly be values for development mode only
	// make sure no production-level value is exposed as default value here
	cfg.BaseURL = env.GetString("BASE_URL", "http://localhost:4444")
	cfg.HttpPort = env.GetInt("HTTP_PORT", 4444)

	cfg.Db.Dsn = env.GetString("DB_DSN", "user:pass@localhost:5432/db")
	cfg.Db.Automigrate = env.GetBool("DB_AUTOMIGRATE", true)

	cfg.Jwt.SecretKey = env.GetString("JWT_SECRET_KEY", "ajf5nx3qmp6zquevllxocxqvyz42ypuo")

	// server errors won't be sent via email if the NOTIFICATIONS_EMAIL wasn't set in the .env file
	cfg.Notifications.Email = env.GetString("NOTIFICATIONS_EMAIL", "")

	cfg.Smtp.Host = env.GetString("SMTP_HOST", "example.smtp.host")
	cfg.Smtp.Port = env.GetInt("SMTP_PORT", 25)
	cfg.Smtp.Username = env.GetString("SMTP_USERNAME", "example_username")
	cfg.Smtp.Password = env.GetString("SMTP_PASSWORD", "pa55word")
	cfg.Smtp.From = env.GetString("SMTP_FROM", "PreLink Identity <no_reply@example.org>")

	cfg.RedisServer = env.GetString("REDIS_SERVER", "localhost:6379")
	cfg.KafkaServers = env.GetString("KAFKA_SERVERS", "localhost:9092")

	cfg.FileUploader.ApiKey = env.GetString("CLOUDINARY_API_KEY", "")
	cfg.FileUploader.CloudName = env.GetString("CLOUDINARY_CLOUD_NAME", "")
	cfg.FileUploader.ApiSecret = env.GetString("CLOUDINARY_API_SECRET", "")

	cfg.Aws.Region = env.GetString("AWS_REGION", "us-east-1")
	cfg.Aws.AccessKeyID = env.GetString("AWS_ACCESS_KEY_ID", "")
	cfg.Aws.SecretAccessKey = env.GetString("AWS_SECRET_ACCESS_KEY", "")

	cfg.Vision.ApiKey = env.GetString("GOOGLE_VISION_API_KEY", "")

	cfg.Verification.FaceThreshold = env.GetFloat("FACE_SIMILARITY_THRESHOLD", 93)
	cfg.Verification.SelfiePrimaryThreshold = env.GetFloat("SELFIE_PRIMARY_THRESHOLD", 0)
	cfg.Verification.SelfieSecondaryThreshold = env.GetFloat("SELFIE_SECONDARY_THRESHOLD", 0)
	cfg.Verification.PrimarySecondaryThreshold = env.GetFloat("PRIMARY_SECONDARY_THRESHOLD", 0)
	cfg.Verification.RequestTimeout = env.GetDuration("VERIFICATION_TIMEOUT", 60*time.Second)
	cfg.Verification.Validity = env.GetDuration("VERIFICATION_VALIDITY", 365*24*time.Hour)

	db, err := repository.New(cfg.Db.Dsn, cfg.Db.Automigrate)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	mailer, err := smtp.NewMailer(cfg.Smtp.Host, cfg.Smtp.Port, cfg.Smtp.Username, cfg.Smtp.Password, cfg.Smtp.From)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mailer: %w", err)
	}

	wg := &sync.WaitGroup{}

	help := helper.New(&cfg.BaseURL, wg, nil)
	errorHandler := errHandler.New(cfg.Notifications.Email, mailer, logger, help)
	help.SetReporter(errorHandler)

	redisCache := cache.New(cfg.RedisServer, 0)
	kafkaStream := stream.New(cfg.KafkaServers)
	fileUploader := file.New(cfg.FileUploader.CloudName, cfg.FileUploader.ApiKey, cfg.FileUploader.ApiSecret)

	ctx := context.Background()

	comparer, err := face.NewRekognitionComparer(ctx, cfg.Aws.Region, cfg.Aws.AccessKeyID, cfg.Aws.SecretAccessKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize face comparison client: %w", err)
	}

	extractor, err := ocr.NewVisionExtractor(ctx, cfg.Vision.ApiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize text extraction client: %w", err)
	}

	engine := verify.New(&verify.Engine{
		Comparer:  comparer,
		Extractor: extractor,
		Fetcher:   image.NewFetcher(30 * time.Second),
		Store:     db.Verification(),
		Producer:  kafkaStream,
		Thresholds: verify.Thresholds{
			Default:          cfg.Verification.FaceThreshold,
			SelfiePrimary:    cfg.Verification.SelfiePrimaryThreshold,
			SelfieSecondary:  cfg.Verification.SelfieSecondaryThreshold,
			PrimarySecondary: cfg.Verification.PrimarySecondaryThreshold,
		},
		Timeout:  cfg.Verification.RequestTimeout,
		Validity: cfg.Verification.Validity,
		Logger:   logger,
	})

	app := &Application{
		Config:       cfg,
		DB:           db,
		Logger:       logger,
		Mailer:       mailer,
		WG:           wg,
		Cache:        redisCache,
		Kafka:        kafkaStream,
		FileUploader: fileUploader,
		Engine:       engine,
		errorHandler: errorHandler,
		helper:       help,
	}

	return app, nil
}
