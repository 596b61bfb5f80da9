package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"yesod/internal/clients"
	"yesod/internal/config"
	"yesod/internal/logger"
	"yesod/internal/notice"
	"yesod/internal/ratelimit"
	"yesod/internal/repository"
	"yesod/internal/service"
	"yesod/internal/transport/auth"
	"yesod/internal/transport/rest"
	"yesod/internal/transport/websocket"
	"yesod/pkg/database/postgres"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = log.Sync() }()

	if envErr != nil {
		log.Info("no .env file found, using system env or defaults")
	}

	// top-level context which we can cancel on shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db := mustInitPostgres(ctx, cfg.Postgres, log)
	defer postgres.Close(db)

	if err := repository.ApplyMigrations(ctx, db); err != nil {
		log.Fatal("apply migrations", zap.Error(err))
	}

	redisClient := mustInitRedis(cfg.Redis, log)
	defer redisClient.Close()

	store, localStore := mustInitStorage(ctx, cfg, log)
	mailer := initMailer(ctx, cfg.SES, log)

	wsHub := websocket.NewHub(log.Named("ws"))
	go wsHub.Run(ctx)
	wsClient := clients.NewWebSocketClient(wsHub)

	noticeRepo := repository.NewNoticeRepository(db)
	tokenRepo := repository.NewPersonalAccessTokenRepository(db, log.Named("auth"))

	generator := notice.NewGenerator(
		notice.WithLetterhead(notice.LetterheadFor(cfg.Notice.OrganizationName)),
	)
	noticeSvc := service.NewNoticeService(
		generator, noticeRepo, store, mailer, wsClient, log.Named("notice"),
		service.NoticeServiceOptions{Archive: cfg.Notice.Archive},
	)
	exportSvc := service.NewExportService(redisClient, cfg.ExportPrefix)
	reportSvc := service.NewReportService(noticeRepo, exportSvc, store, wsClient, log.Named("export"))
	healthSvc := service.NewHealthService(cfg.Version,
		service.HealthCheck{Name: "database", Pinger: db, Slow: time.Second},
		service.HealthCheck{Name: "cache", Pinger: service.PingFunc(redisClient.Ping), Slow: 500 * time.Millisecond, Optional: true},
	)

	limiter := ratelimit.New(redisClient, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window, log.Named("ratelimit"))

	mw := rest.Middlewares{
		Auth:         auth.SanctumMiddleware(tokenRepo, log.Named("auth")),
		OptionalAuth: auth.OptionalSanctumMiddleware(tokenRepo, log.Named("auth")),
		RateLimit:    limiter.Middleware("generate-pdf", rest.TooManyRequests),
		WebSocket: func(w http.ResponseWriter, r *http.Request) {
			userID, err := auth.GetUserID(r.Context())
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			log.Debug("websocket connected", zap.Int64("user_id", userID))
			wsHub.HandleWebSocket(w, r, userID)
		},
		AllowedOrigins: cfg.AllowedOrigins,
	}
	if localStore != nil {
		mw.Files = rest.LocalFiles(localStore)
	}

	handler := rest.NewHandler(noticeSvc, noticeSvc, reportSvc, exportSvc, healthSvc, cfg.ExportPrefix, log.Named("http"))
	router := handler.InitRouter(mw)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run HTTP server in goroutine so we can listen for shutdown signals
	srvErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
			return
		}
		srvErr <- nil
	}()

	if localStore != nil && cfg.Storage.MaxAge > 0 {
		go cleanupLoop(ctx, localStore, cfg.Storage.MaxAge, log)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-srvErr:
		if err != nil {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	case sig := <-stop:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown", zap.Error(err))
		}

		// archiving, delivery and exports still hold the database and cache
		noticeSvc.Wait()
		reportSvc.Wait()

		cancel()
		log.Info("shutdown complete")
	}
}

func mustInitPostgres(ctx context.Context, cfg config.PostgresConfig, log *zap.Logger) *sql.DB {
	db, err := postgres.NewPostgresConnection(ctx, postgres.ConnectionInfo{
		Host:         cfg.Host,
		Port:         cfg.Port,
		Username:     cfg.User,
		DBName:       cfg.DBName,
		SSLMode:      cfg.SSLMode,
		Password:     cfg.Password,
		MaxOpenConns: 20,
	})
	if err != nil {
		log.Fatal("postgres init error", zap.Error(err))
	}
	return db
}

func mustInitRedis(cfg config.RedisConfig, log *zap.Logger) *clients.RedisClient {
	client, err := clients.NewRedisClient(clients.RedisConfig{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		MaxRetries:  cfg.MaxRetries,
		DialTimeout: time.Duration(cfg.DialTimeout) * time.Second,
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
		Prefix:      cfg.Prefix,
	})
	if err != nil {
		log.Fatal("redis init error", zap.Error(err))
	}
	return client
}

// mustInitStorage returns the configured FileStore and, for the local
// driver, the same store so its files can be served and cleaned.
func mustInitStorage(ctx context.Context, cfg config.AppConfig, log *zap.Logger) (clients.FileStore, *clients.StorageClient) {
	switch cfg.Storage.Driver {
	case "s3":
		s3, err := clients.NewS3Client(ctx, clients.S3Config{
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Bucket:          cfg.S3.Bucket,
			UseSSL:          cfg.S3.UseSSL,
			Region:          cfg.S3.Region,
			Prefix:          cfg.S3.Prefix,
			URLTTL:          cfg.S3.URLTTL,
		})
		if err != nil {
			log.Fatal("s3 init error", zap.Error(err))
		}
		if err := s3.EnsureBucket(ctx); err != nil {
			log.Fatal("s3 bucket error", zap.String("bucket", cfg.S3.Bucket), zap.Error(err))
		}
		log.Info("storage ready", zap.String("driver", "s3"), zap.String("bucket", cfg.S3.Bucket))
		return s3, nil
	case "local", "":
		local, err := clients.NewLocalStorage(cfg.Storage.Dir, cfg.Storage.PublicPrefix, cfg.Storage.ExternalURL)
		if err != nil {
			log.Fatal("storage init error", zap.Error(err))
		}
		log.Info("storage ready", zap.String("driver", "local"), zap.String("dir", local.BaseDir))
		return local, local
	default:
		log.Fatal("unknown storage driver", zap.String("driver", cfg.Storage.Driver))
		return nil, nil
	}
}

// initMailer returns nil when delivery is disabled or SES cannot be set up;
// email requests are then recorded as skipped.
func initMailer(ctx context.Context, cfg config.SESConfig, log *zap.Logger) service.Mailer {
	if !cfg.Enabled {
		log.Info("email delivery disabled")
		return nil
	}
	ses, err := clients.NewSESClient(ctx, cfg.Region, cfg.Sender)
	if err != nil {
		log.Error("ses init error, email delivery disabled", zap.Error(err))
		return nil
	}
	return ses
}

func cleanupLoop(ctx context.Context, store *clients.StorageClient, maxAge time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(30 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := store.CleanupOlderThan(maxAge); err != nil {
				log.Warn("storage cleanup error", zap.Error(err))
			}
		}
	}
}
