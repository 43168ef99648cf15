package config

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env:"BIND_IP" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env:"PORT" env-default:"5000"`
}

type MongoConfig struct {
	Uri      string `yaml:"uri" env:"MONGODB_URI" env-default:""`
	Host     string `yaml:"host" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"27017"`
	User     string `yaml:"user" env-default:""`
	Password string `yaml:"password" env-default:""`
	Database string `yaml:"database" env:"MONGODB_DATABASE" env-default:"cep-survey"`
}

type RedisConfig struct {
	Enabled bool   `yaml:"enabled" env:"REDIS_ENABLED" env-default:"false"`
	Url     string `yaml:"url" env:"REDIS_URL" env-default:"redis://localhost:6379/0"`
	Prefix  string `yaml:"prefix" env-default:"finsurvey:"`
}

type SmtpConfig struct {
	Host     string `yaml:"host" env:"SMTP_HOST" env-default:""`
	Port     int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	User     string `yaml:"user" env:"SMTP_USER" env-default:""`
	Password string `yaml:"password" env:"SMTP_PASSWORD" env-default:""`
	From     string `yaml:"from" env:"EMAIL_FROM" env-default:""`
	FromName string `yaml:"from_name" env:"EMAIL_FROM_NAME" env-default:"Financial Awareness Survey"`
	SSL      bool   `yaml:"ssl" env-default:"false"`
}

type TelegramConfig struct {
	Enabled  bool    `yaml:"enabled" env-default:"false"`
	ApiKey   string  `yaml:"api_key" env:"TELEGRAM_API_KEY" env-default:""`
	AdminIds []int64 `yaml:"admin_ids" env:"TELEGRAM_ADMIN_IDS" env-separator:","`
	LogLevel string  `yaml:"log_level" env-default:"error"`
}

type AdminConfig struct {
	Keys       []string      `yaml:"keys" env:"ADMIN_KEYS" env-separator:","`
	Recipients []string      `yaml:"recipients" env:"ADMIN_EMAILS" env-separator:","`
	TokenTTL   time.Duration `yaml:"token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"10m"`
	Pepper     string        `yaml:"pepper" env:"ACCESS_TOKEN_PEPPER" env-default:""`
}

type AccessConfig struct {
	BaseUrl          string        `yaml:"base_url" env:"APP_BASE_URL" env-default:"http://localhost:5000"`
	RateWindow       time.Duration `yaml:"rate_window" env-default:"15m"`
	RateMax          int           `yaml:"rate_max" env-default:"3"`
	ConfirmDecisions bool          `yaml:"confirm_decisions" env-default:"true"`
}

type OtpConfig struct {
	TTL         time.Duration `yaml:"ttl" env-default:"10m"`
	VerifiedTTL time.Duration `yaml:"verified_ttl" env-default:"1h"`
	RateWindow  time.Duration `yaml:"rate_window" env-default:"15m"`
	RateMax     int           `yaml:"rate_max" env-default:"5"`
}

type SurveyConfig struct {
	RequireVerifiedEmail bool `yaml:"require_verified_email" env-default:"true"`
	MaxPageSize          int  `yaml:"max_page_size" env-default:"100"`
}

type RateLimitConfig struct {
	Requests int           `yaml:"requests" env-default:"100"`
	Window   time.Duration `yaml:"window" env-default:"15m"`
}

type Config struct {
	Mongo     MongoConfig     `yaml:"mongo"`
	Redis     RedisConfig     `yaml:"redis"`
	Smtp      SmtpConfig      `yaml:"smtp"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Admin     AdminConfig     `yaml:"admin"`
	Access    AccessConfig    `yaml:"access"`
	Otp       OtpConfig       `yaml:"otp"`
	Survey    SurveyConfig    `yaml:"survey"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Listen    Listen          `yaml:"listen"`
	Cors      []string        `yaml:"cors_origins" env:"CORS_ORIGIN" env-separator:","`
	Location  string          `yaml:"location" env:"TZ_LOCATION" env-default:"Asia/Kolkata"`
	Env       string          `yaml:"env" env:"APP_ENV" env-default:"local"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("config: %s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
		instance.normalize()
	})
	return instance
}

// normalize drops blanks left by comma-separated env values
func (c *Config) normalize() {
	c.Admin.Keys = compact(c.Admin.Keys)
	c.Admin.Recipients = compact(c.Admin.Recipients)
	c.Cors = compact(c.Cors)
	c.Access.BaseUrl = strings.TrimRight(c.Access.BaseUrl, "/")
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
