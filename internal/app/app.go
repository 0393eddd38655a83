package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"lostfound-api/internal/core/auth"
	"lostfound-api/internal/core/cache"
	"lostfound-api/internal/core/config"
	"lostfound-api/internal/core/database"
	"lostfound-api/internal/core/storage"
	"lostfound-api/internal/feature/conversation"
	"lostfound-api/internal/feature/item"
	"lostfound-api/internal/feature/notification"
	"lostfound-api/internal/feature/user"
	"lostfound-api/internal/repo"
	"lostfound-api/internal/transport/http/router"
)

// App 进程级依赖；两个入口共用同一套组装
type App struct {
	DB         *gorm.DB
	Cache      *cache.Cache
	Dispatcher *notification.Dispatcher // 仅 async=true 时非空
	Deps       router.Deps
}

// Build 打开 DB、执行迁移并组装各业务服务
// async=true 时通知经 Dispatcher 异步落库，需调用方 Run
func Build(ctx context.Context, cfg *config.Config, l *zap.Logger, async bool) (*App, error) {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Logger:             l,
	})
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	l.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := database.Migrate(ctx, db, cfg.DB.Driver, cfg.DB.Migrator, l); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		l.Info("migrate done", zap.String("migrator", cfg.DB.Migrator))
	}

	rc := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := rc.Ping(ctx); err != nil {
		// redis 只做缓存，不可用时降级为直接回源
		l.Warn("redis unavailable, profile cache disabled", zap.Error(err))
		_ = rc.Close()
		rc = nil
	}

	store, err := storage.NewLocal(cfg.Upload.Dir, cfg.Upload.URLPrefix, cfg.Upload.MaxBytes)
	if err != nil {
		return nil, err
	}

	jwter := &auth.JWTer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
	}

	userRepo := repo.NewUserRepo(db)
	itemRepo := repo.NewItemRepo(db)
	noteRepo := repo.NewNotificationRepo(db)

	a := &App{DB: db, Cache: rc}
	writer := notification.NewWriter(noteRepo, l)
	var pub notification.Publisher = notification.Inline{W: writer}
	if async {
		a.Dispatcher = notification.NewDispatcher(writer, l, cfg.Notify.Buffer, cfg.Notify.Workers)
		pub = a.Dispatcher
	}

	a.Deps = router.Deps{
		Log:      l,
		JWT:      jwter,
		Accounts: userRepo,
		Users: user.NewService(userRepo, jwter, rc, l, user.Options{
			EmailDomain: cfg.Auth.EmailDomain,
			ProfileTTL:  time.Duration(cfg.Redis.ProfileTTLSec) * time.Second,
		}),
		Items: item.NewService(itemRepo, pub, l, item.Reputation{
			Points: cfg.Reputation.ReturnCredit,
			Apply:  cfg.Reputation.ApplyCredit,
		}),
		Conversations: conversation.NewService(repo.NewConversationRepo(db), itemRepo, pub, l),
		Notifications: notification.NewService(noteRepo),
		Store:         store,
		Limits:        cfg.Limits,
		AllowOrigins:  cfg.App.CORS.AllowOrigins,
		Health:        a.Ping,
	}
	return a, nil
}

// Ping 健康检查：DB 必须可用
func (a *App) Ping(ctx context.Context) error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 释放 DB 与 redis 连接
func (a *App) Close() {
	_ = a.Cache.Close()
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
