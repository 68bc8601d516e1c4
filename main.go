package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/bodyfit/internal/analysis"
	"github.com/example/bodyfit/internal/auth"
	"github.com/example/bodyfit/internal/classifier"
	"github.com/example/bodyfit/internal/config"
	"github.com/example/bodyfit/internal/detector"
	"github.com/example/bodyfit/internal/handlers"
	"github.com/example/bodyfit/internal/logging"
	"github.com/example/bodyfit/internal/middleware"
	"github.com/example/bodyfit/internal/repository"
)

func main() {
	cfg := config.Load()

	logger, err := logging.NewLogger(logging.Options{FilePath: cfg.LogFile})
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if cfg.OpenAIAPIKey == "" {
		logger.Warn("OPENAI_API_KEY is not set, every classification will fail")
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o750); err != nil {
		logger.Fatal("failed to create upload dir", zap.Error(err), zap.String("dir", cfg.UploadDir))
	}

	db := initDatabase(ctx, cfg.DatabaseDSN, logger)
	users := repository.NewUserRepository(db)
	history := repository.NewAnalysisRepository(db)
	if cfg.AutoMigrate {
		if err := users.AutoMigrate(ctx); err != nil {
			logger.Fatal("auto migrate users failed", zap.Error(err))
		}
		if err := history.AutoMigrate(ctx); err != nil {
			logger.Fatal("auto migrate analysis logs failed", zap.Error(err))
		}
	}

	redisCtx, redisCancel := context.WithTimeout(ctx, 5*time.Second)
	defer redisCancel()
	redisClient := initRedis(redisCtx, cfg.RedisAddr, logger)
	defer redisClient.Close()

	runner := detector.NewPythonRunner(cfg.PythonBin, logger)
	svc := analysis.NewService(analysis.Dependencies{
		Pose: detector.NewPose(runner, cfg.PoseDetectorScript),
		Tone: detector.NewTone(runner, cfg.ToneDetectorScript),
		Classifier: classifier.NewOpenAI(classifier.Options{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
		}, logger),
		Users:     users,
		History:   history,
		Cache:     analysis.NewRedisCache(redisClient),
		ResultTTL: cfg.ResultTTL,
	}, logger)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newRouter(cfg, svc, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("analysis API listening", zap.String("addr", cfg.HTTPAddr))
	if err := serveHTTPServer(server, 15*time.Second, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func newRouter(cfg *config.Config, analyzer handlers.Analyzer, logger *zap.Logger) *gin.Engine {
	r := gin.Default()
	r.MaxMultipartMemory = handlers.MaxUploadSize
	r.Use(cors.New(corsConfig(cfg.CORSAllowOrigins)))

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst, logger)
	handlers.RegisterRoutes(r,
		handlers.NewHandler(analyzer, cfg.UploadDir, logger),
		auth.JWTMiddleware(cfg.JWTSecret, cfg.JWTAudience),
		limiter.Middleware(),
	)
	return r
}

func initDatabase(ctx context.Context, dsn string, zapLogger *zap.Logger) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		zapLogger.Fatal("failed to access db handle", zap.Error(err))
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.PingContext(ctx); err != nil {
		zapLogger.Fatal("database ping failed", zap.Error(err))
	}

	return db
}

func initRedis(ctx context.Context, addr string, zapLogger *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		// results are cached best-effort, the API still works without redis
		zapLogger.Warn("redis connection failed", zap.Error(err), zap.String("addr", addr))
	}
	return client
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization")
	return cfg
}

func serveHTTPServer(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	return serveHTTPServerWithOptions(server, shutdownTimeout, logger, nil, nil)
}

func serveHTTPServerWithOptions(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener, signalCh <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if listener != nil {
			err = server.Serve(listener)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	var (
		sigCh       <-chan os.Signal
		stopSignals func()
	)

	if signalCh != nil {
		sigCh = signalCh
		stopSignals = func() {}
	} else {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		sigCh = ch
		stopSignals = func() {
			signal.Stop(ch)
		}
	}
	defer stopSignals()

	select {
	case err := <-errCh:
		return err
	case sig, ok := <-sigCh:
		if !ok {
			return <-errCh
		}
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}
