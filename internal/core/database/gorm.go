package database

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	mysqldrv "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"lostfound-api/internal/core/logger"
)

var ErrUnsupportedDriver = errors.New("unsupported db driver")

type Opts struct {
	Driver             string // postgres | mysql | sqlite
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	LogLevel           string
	Logger             *zap.Logger // 为空则用 gorm 默认 logger
}

func NewGorm(o Opts) (*gorm.DB, error) {
	var dial gorm.Dialector
	switch o.Driver {
	case "postgres":
		dial = postgres.Open(o.DSN)
	case "mysql":
		dsn, masked, err := normalizeMySQLDSN(o.DSN, o.Username, o.Password)
		if err != nil {
			return nil, fmt.Errorf("mysql dsn: %w", err)
		}
		if o.Logger != nil {
			o.Logger.Info("mysql dsn", zap.String("dsn", masked))
		}
		dial = mysql.Open(dsn)
	case "sqlite":
		dial = sqlite.Open(o.DSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, o.Driver)
	}

	db, err := gorm.Open(dial, &gorm.Config{
		Logger:         gormLogger(o.Logger, o.LogLevel),
		TranslateError: true, // 唯一冲突 → gorm.ErrDuplicatedKey
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if o.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(o.MaxOpenConns)
	}
	if o.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(o.MaxIdleConns)
	}
	if o.ConnMaxLifetimeMin > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(o.ConnMaxLifetimeMin) * time.Minute)
	}
	// 事务由仓储按需显式开启
	return db.Session(&gorm.Session{SkipDefaultTransaction: true}), nil
}

func gormLogger(l *zap.Logger, level string) gormlogger.Interface {
	lvl := gormlogger.Warn
	switch level {
	case "silent":
		lvl = gormlogger.Silent
	case "error":
		lvl = gormlogger.Error
	case "info":
		lvl = gormlogger.Info
	}
	if l == nil {
		return gormlogger.Default.LogMode(lvl)
	}
	std, err := logger.ToStdLogger(l.Named("gorm"), zapcore.InfoLevel)
	if err != nil {
		return gormlogger.Default.LogMode(lvl)
	}
	return gormlogger.New(std, gormlogger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  lvl,
		IgnoreRecordNotFoundError: true,
	})
}

// normalizeMySQLDSN 兼容 mysql:// 与 jdbc:mysql:// URL，统一转成 go-sql-driver DSN；
// 第二个返回值是脱敏后的 DSN，仅用于日志
func normalizeMySQLDSN(input, userOverride, passOverride string) (string, string, error) {
	in := strings.TrimPrefix(strings.TrimSpace(input), "jdbc:")

	var cfg *mysqldrv.Config
	if strings.HasPrefix(in, "mysql://") {
		u, err := url.Parse(in)
		if err != nil {
			return "", "", err
		}
		cfg = mysqldrv.NewConfig()
		cfg.Net = "tcp"
		cfg.Addr = u.Host
		cfg.DBName = strings.TrimPrefix(u.Path, "/")
		if u.User != nil {
			cfg.User = u.User.Username()
			cfg.Passwd, _ = u.User.Password()
		}
		q := u.Query()
		if cs := q.Get("characterEncoding"); cs != "" && q.Get("charset") == "" {
			q.Set("charset", cs)
		}
		if tz := q.Get("serverTimezone"); tz != "" {
			if loc, err := time.LoadLocation(tz); err == nil {
				cfg.Loc = loc
			}
		}
		// JDBC 专用参数，驱动不识别
		for _, k := range []string{"characterEncoding", "useUnicode", "zeroDateTimeBehavior", "serverTimezone", "useSSL"} {
			q.Del(k)
		}
		if cs := q.Get("charset"); cs != "" {
			cfg.Params = map[string]string{"charset": cs}
		}
	} else {
		var err error
		if cfg, err = mysqldrv.ParseDSN(in); err != nil {
			return "", "", err
		}
	}

	if userOverride != "" {
		cfg.User = userOverride
	}
	if passOverride != "" {
		cfg.Passwd = passOverride
	}
	cfg.ParseTime = true
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	if _, ok := cfg.Params["charset"]; !ok {
		cfg.Params["charset"] = "utf8mb4"
	}

	masked := cfg.Clone()
	if masked.Passwd != "" {
		masked.Passwd = "****"
	}
	return cfg.FormatDSN(), masked.FormatDSN(), nil
}
