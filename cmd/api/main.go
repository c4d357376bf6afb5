package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"natours/internal/core/auth"
	"natours/internal/core/cache"
	"natours/internal/core/config"
	"natours/internal/core/database"
	"natours/internal/core/jobs"
	"natours/internal/core/logger"
	"natours/internal/core/mail"
	"natours/internal/core/payment"
	"natours/internal/core/server"
	"natours/internal/repo"
	"natours/internal/service"
	"natours/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.Build(logger.Options{
		Level:       cfg.Log.Level,
		JSON:        cfg.Log.JSON,
		AddCaller:   true,
		Development: cfg.App.Dev(),
		Rotate:      logger.FileRotate(cfg.Log.Rotate),
		App:         cfg.App.Name,
		Env:         cfg.App.Env,
	})
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()

	if !cfg.App.Dev() {
		gin.SetMode(gin.ReleaseMode)
	}

	// 数据库（失败会直接 Fatal）
	db := mustOpenDB(cfg, log)
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))
	if cfg.DB.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			log.Fatal("automigrate failed", zap.Error(err))
		}
		log.Info("automigrate done")
	}

	users, err := repo.NewUserRepo(db)
	must(log, "user repo", err)
	tours, err := repo.NewTourRepo(db, users, cfg.Limits.ParamWhitelist...)
	must(log, "tour repo", err)
	reviews, err := repo.NewReviewRepo(db)
	must(log, "review repo", err)
	bookings, err := repo.NewBookingRepo(db)
	must(log, "booking repo", err)

	rc := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer func() { _ = rc.Close() }()

	jwter := &auth.JWTer{Secret: []byte(cfg.JWT.Secret), Issuer: cfg.JWT.Issuer, TTL: cfg.JWT.TTL()}

	tourSvc := &service.TourService{
		Tours: tours, Cache: rc, CacheTTL: time.Duration(cfg.Redis.TTLSec) * time.Second, Log: log,
	}
	authSvc := &service.AuthService{
		Users: users, JWT: jwter, Mail: mail.New(cfg.Mail, log), Log: log, BaseURL: cfg.App.BaseURL,
	}
	reviewSvc := &service.ReviewService{Reviews: reviews, Tours: tours, Cache: tourSvc, Log: log}
	bookingSvc := &service.BookingService{
		Bookings: bookings, Tours: tours, Users: users,
		Gateway: payment.NewStripe(cfg.Payment), Log: log, BaseURL: cfg.App.BaseURL,
	}

	r := router.NewAPIEngine(router.Deps{
		Log:    log,
		Config: cfg,
		Stores: router.Stores{Users: users, Tours: tours, Reviews: reviews, Bookings: bookings},

		Auth:     authSvc,
		Users:    &service.UserService{Users: users},
		Tours:    tourSvc,
		Reviews:  reviewSvc,
		Bookings: bookingSvc,
	})

	// 定时任务
	sched := jobs.New(log, 5*time.Minute)
	must(log, "ratings job", sched.Add("ratings-reconcile", cfg.Jobs.RatingsSpec, reviewSvc.ReconcileAll))
	must(log, "reset token job", sched.Add("reset-token-purge", cfg.Jobs.ResetTokensSpec, authSvc.PurgeResetTokens))
	sched.Start()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.FromConfig(cfg.App.HTTP, r)
	log.Info("natours api starting",
		zap.String("addr", srv.Addr),
		zap.String("open", cfg.App.BaseURL),
		zap.String("health", cfg.App.BaseURL+"/health"),
		zap.String("api_v1", cfg.App.BaseURL+"/api/v1"),
		zap.String("env", cfg.App.Env),
	)
	if err := server.Run(ctx, srv, log, 10*time.Second); err != nil {
		log.Error("natours api start FAILED", zap.Error(err))
	}

	jctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sched.Stop(jctx)
	log.Info("natours api stopped")
}

func must(l *zap.Logger, what string, err error) {
	if err != nil {
		l.Fatal(what, zap.Error(err))
	}
}

func mustOpenDB(cfg *config.Config, l *zap.Logger) *gorm.DB {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		LogWriter:          logger.ToWriter(l.Named("gorm"), zapcore.WarnLevel),
	})
	if err != nil {
		l.Fatal("db open", zap.Error(err))
	}
	return db
}
