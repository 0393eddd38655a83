package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const DefaultPath = "./configs/config.local.yaml"

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}

type AdminHTTP struct {
	Host string
	Port int
}

type CORS struct {
	AllowOrigins []string
}

type App struct {
	Name  string
	Env   string
	HTTP  HTTP
	Admin AdminHTTP
	CORS  CORS
}

type Rotate struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Log struct {
	Level  string
	JSON   bool
	Rotate Rotate
}

type JWT struct {
	Secret            string
	Issuer            string
	AccessTokenTTLMin int
}

type Redis struct {
	Addr          string `mapstructure:"addr"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"`
	ProfileTTLSec int    `mapstructure:"profilettlsec"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	Migrator           string // auto | goose
	LogLevel           string
}

type Upload struct {
	Dir       string
	URLPrefix string
	MaxBytes  int64
}

type Notify struct {
	Buffer  int
	Workers int
}

// Reputation 确认归还时的信誉分；ApplyCredit=false 时只在通知文案里出现
type Reputation struct {
	ReturnCredit int
	ApplyCredit  bool
}

type Auth struct {
	EmailDomain string // 为空则不限制邮箱域名
}

type Limits struct {
	RPS           float64
	Burst         int
	AuthRPS       float64
	AuthBurst     int
	MaxConcurrent int64
	TimeoutSec    int
	MaxBodyBytes  int64
}

type Config struct {
	App        App
	Log        Log
	JWT        JWT
	DB         DB
	Redis      Redis `mapstructure:"redis"`
	Upload     Upload
	Notify     Notify
	Reputation Reputation
	Auth       Auth
	Limits     Limits
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "lostfound-api")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.readTimeoutSec", 10)
	v.SetDefault("app.http.writeTimeoutSec", 30)
	v.SetDefault("app.http.idleTimeoutSec", 60)
	v.SetDefault("app.admin.host", "127.0.0.1")
	v.SetDefault("app.admin.port", 8081)
	v.SetDefault("app.cors.allowOrigins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.rotate.maxSizeMB", 100)
	v.SetDefault("log.rotate.maxBackups", 7)
	v.SetDefault("log.rotate.maxAgeDays", 14)

	// 所有 key 都需要默认值，否则仅靠环境变量时 Unmarshal 读不到
	v.SetDefault("log.rotate.enable", false)
	v.SetDefault("log.rotate.filename", "logs/api.log")
	v.SetDefault("log.rotate.compress", false)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "lostfound-api")
	v.SetDefault("jwt.accessTokenTTLMin", 7*24*60)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "file:lostfound.db?_pragma=foreign_keys(1)")
	v.SetDefault("db.username", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.maxOpenConns", 20)
	v.SetDefault("db.maxIdleConns", 10)
	v.SetDefault("db.connMaxLifetimeMin", 30)
	v.SetDefault("db.autoMigrate", true)
	v.SetDefault("db.migrator", "auto")
	v.SetDefault("db.logLevel", "warn")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.profilettlsec", 300)

	v.SetDefault("upload.dir", "./uploads")
	v.SetDefault("upload.urlPrefix", "/uploads")
	v.SetDefault("upload.maxBytes", 5<<20)

	v.SetDefault("notify.buffer", 256)
	v.SetDefault("notify.workers", 2)

	v.SetDefault("reputation.returnCredit", 10)
	v.SetDefault("reputation.applyCredit", false)

	v.SetDefault("auth.emailDomain", "alu.ufc.br")

	v.SetDefault("limits.rps", 200)
	v.SetDefault("limits.burst", 400)
	v.SetDefault("limits.authRps", 5)
	v.SetDefault("limits.authBurst", 10)
	v.SetDefault("limits.maxConcurrent", 300)
	v.SetDefault("limits.timeoutSec", 10)
	v.SetDefault("limits.maxBodyBytes", 16<<20)
}

// Read 读取配置；使用默认路径且文件不存在时仅用默认值 + 环境变量
func Read(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	if c.JWT.Secret == "" {
		return nil, errors.New("jwt.secret is required (APP_JWT_SECRET)")
	}
	return &c, nil
}

// Load 启动期使用，失败直接退出
func Load(path string) *Config {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	c, err := Read(path)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	return c
}
