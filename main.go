package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"

	"estoque/internal/config"
	"estoque/internal/logging"
	"estoque/internal/notify"
	"estoque/internal/repositories"
	"estoque/internal/server"
	"estoque/internal/services"
	"estoque/internal/uploads"
	"estoque/pkg/rabbitmq"
)

const startupTimeout = 15 * time.Second

// application is the wired process: the HTTP app plus everything that must
// be drained or closed on shutdown.
type application struct {
	app      *fiber.App
	notifier *notify.Notifier
	closers  []func() error
}

func main() {
	// --- Configuration ---
	cfg, err := config.Load(viper.New())
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	a, err := buildApplication(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}

	// --- Start HTTP Server ---
	logger.Info("starting server", "addr", cfg.AppPort, "db", cfg.DBDriver, "uploads", cfg.UploadBackend)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := a.app.Listen(cfg.AppPort); err != nil {
			logger.Error("server failed", "error", err)
			quit <- syscall.SIGTERM
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-quit
	logger.Info("shutting down server")
	a.shutdown(logger)
	logger.Info("server gracefully stopped")
}

// buildApplication opens every backing service named by cfg and wires the
// HTTP app on top of them.
func buildApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	a := &application{}
	fail := func(err error) (*application, error) {
		a.close(logger)
		return nil, err
	}

	// --- Initialize Repositories ---
	productRepo, userRepo, closeRepos, err := openRepositories(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	a.closers = append(a.closers, closeRepos)

	// --- Initialize Upload Storage ---
	storage, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return fail(err)
	}

	// --- Initialize Notifications ---
	var publisher notify.EventPublisher
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Queue: rabbitmq.LowStockQueue}, logger)
		if err != nil {
			return fail(err)
		}
		a.closers = append(a.closers, mqClient.Close)
		publisher = mqClient
	}
	hub := notify.NewHub(logger)
	a.notifier = notify.NewNotifier(hub, openMailer(cfg, logger), publisher, cfg.AlertRecipient, logger)

	// --- Initialize Services and HTTP App ---
	a.app = server.New(server.Deps{
		Products:    services.NewProductService(productRepo, a.notifier, logger),
		Auth:        services.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL, logger),
		Uploads:     uploads.NewService(storage, logger),
		Hub:         hub,
		CORSOrigins: cfg.CORSOrigins,
	})
	return a, nil
}

// shutdown stops accepting requests, drains pending notifications and closes
// backing connections, in that order.
func (a *application) shutdown(logger *slog.Logger) {
	if a.app != nil {
		if err := a.app.Shutdown(); err != nil {
			logger.Error("error during fiber shutdown", "error", err)
		}
	}
	if a.notifier != nil {
		a.notifier.Wait()
	}
	a.close(logger)
}

func (a *application) close(logger *slog.Logger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Error("error during close", "error", err)
		}
	}
	a.closers = nil
}

// openRepositories builds the repositories for cfg.DBDriver. The returned
// func releases the underlying connection.
func openRepositories(ctx context.Context, cfg *config.Config) (repositories.ProductRepository, repositories.UserRepository, func() error, error) {
	switch cfg.DBDriver {
	case "postgres", "sqlite":
		db, err := repositories.OpenGORM(cfg.DBDriver, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to get sql.DB: %w", err)
		}
		return repositories.NewGORMProductRepository(db), repositories.NewGORMUserRepository(db), sqlDB.Close, nil
	case "mongo":
		client, database, err := repositories.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, nil, err
		}
		closeFn := func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return client.Disconnect(ctx)
		}
		return repositories.NewMongoProductRepository(database), repositories.NewMongoUserRepository(database), closeFn, nil
	case "memory":
		noop := func() error { return nil }
		return repositories.NewMemoryProductRepository(), repositories.NewMemoryUserRepository(), noop, nil
	default:
		return nil, nil, nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// openStorage builds the upload storage for cfg.UploadBackend.
func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (uploads.Storage, error) {
	switch cfg.UploadBackend {
	case "", "disk":
		return uploads.NewDiskStorage(cfg.UploadDir, logger), nil
	case "minio":
		return uploads.NewMinioStorage(ctx, uploads.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported UPLOAD_BACKEND %q", cfg.UploadBackend)
	}
}

// openMailer returns an SMTP mailer, or a logging no-op when SMTP_HOST is unset.
func openMailer(cfg *config.Config, logger *slog.Logger) notify.Mailer {
	if cfg.SMTPHost == "" {
		return notify.NoopMailer{Logger: logger}
	}
	return notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	})
}
