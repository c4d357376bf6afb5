package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}

type App struct {
	Name    string
	Env     string // development | production
	BaseURL string // 邮件里的链接、支付回跳地址
	HTTP    HTTP
}

// Dev 开发模式下错误响应携带完整细节
func (a App) Dev() bool { return a.Env == "development" }

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
	Secret        string
	Issuer        string
	ExpiresInMin  int
	CookieName    string
	CookieTTLDays int
}

func (j JWT) TTL() time.Duration { return time.Duration(j.ExpiresInMin) * time.Minute }

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TTLSec   int    `mapstructure:"ttlSec"`
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
	LogLevel           string
}

type Mail struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type Payment struct {
	StripeSecretKey string
	WebhookSecret   string
	Currency        string
}

type Limits struct {
	RPS            float64
	Burst          int
	PerIPPerHour   int
	MaxConcurrent  int64
	MaxBodyBytes   int64
	TimeoutSec     int
	ParamWhitelist []string
}

type Jobs struct {
	RatingsSpec     string
	ResetTokensSpec string
}

type Config struct {
	App     App
	Log     Log
	JWT     JWT
	DB      DB
	Redis   Redis `mapstructure:"redis"`
	Mail    Mail
	Payment Payment
	Limits  Limits
	Jobs    Jobs
}

func defaults(v *viper.Viper) {
	v.SetDefault("app.name", "natours")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.baseURL", "http://127.0.0.1:8080")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.readTimeoutSec", 15)
	v.SetDefault("app.http.writeTimeoutSec", 15)
	v.SetDefault("app.http.idleTimeoutSec", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("jwt.issuer", "natours")
	v.SetDefault("jwt.expiresInMin", 90*24*60)
	v.SetDefault("jwt.cookieName", "jwt")
	v.SetDefault("jwt.cookieTTLDays", 90)
	v.SetDefault("redis.ttlSec", 300)
	v.SetDefault("db.maxOpenConns", 20)
	v.SetDefault("db.maxIdleConns", 10)
	v.SetDefault("db.connMaxLifetimeMin", 30)
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.from", "Natours <hello@natours.io>")
	v.SetDefault("payment.currency", "usd")
	v.SetDefault("limits.rps", 200)
	v.SetDefault("limits.burst", 400)
	v.SetDefault("limits.perIPPerHour", 100)
	v.SetDefault("limits.maxConcurrent", 300)
	v.SetDefault("limits.maxBodyBytes", 10<<10)
	v.SetDefault("limits.timeoutSec", 10)
	v.SetDefault("limits.paramWhitelist",
		[]string{"duration", "ratingsQuantity", "ratingsAverage", "maxGroupSize", "difficulty", "price"})
	v.SetDefault("jobs.ratingsSpec", "@every 6h")
	v.SetDefault("jobs.resetTokensSpec", "@every 30m")
}

func Load(path string) *Config {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	defaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("read config: %v", err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		log.Fatalf("unmarshal config: %v", err)
	}
	return &c
}
