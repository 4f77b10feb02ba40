package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Service names accepted by Validate and used as metric/log labels.
const (
	ServicePost    = "post"
	ServiceWorker  = "worker"
	ServiceUser    = "user"
	ServiceGateway = "gateway"
)

// AppConfig holds configuration for every service of the platform.
// Sensitive data never has defaults inside code and must be provided via config files or the environment.
type AppConfig struct {
	App           AppSection          `mapstructure:"app"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Log           LogConfig           `mapstructure:"log"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Services      ServicesConfig      `mapstructure:"services"`
	Gateway       GatewayConfig       `mapstructure:"gateway"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Outbox        OutboxConfig        `mapstructure:"outbox"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type AppSection struct {
	// Port overrides the per-service port when set.
	Port               string   `mapstructure:"port"`
	PostPort           string   `mapstructure:"post_port"`
	WorkerPort         string   `mapstructure:"worker_port"`
	UserPort           string   `mapstructure:"user_port"`
	GatewayPort        string   `mapstructure:"gateway_port"`
	Environment        string   `mapstructure:"environment"`
	GinMode            string   `mapstructure:"gin_mode"`
	AllowedOrigins     []string `mapstructure:"allowed_origins"`
	RateLimitPerMinute int      `mapstructure:"rate_limit_per_minute"`
}

type DatabaseConfig struct {
	// Driver is one of postgres, mysql or sqlite.
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"ssl_mode"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
}

// Enabled reports whether a Redis host was configured.
func (r RedisConfig) Enabled() bool { return r.Host != "" }

type CacheConfig struct {
	TTLSeconds int `mapstructure:"ttl_seconds"`
}

func (c CacheConfig) TTL() time.Duration { return time.Duration(c.TTLSeconds) * time.Second }

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Path       string `mapstructure:"path"`
	GinPath    string `mapstructure:"gin_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type AuthConfig struct {
	// Mode selects the gateway authorizer: jwt or none.
	Mode            string   `mapstructure:"mode"`
	JWTSecret       string   `mapstructure:"jwt_secret"`
	TokenTTLMinutes int      `mapstructure:"token_ttl_minutes"`
	PublicPrefixes  []string `mapstructure:"public_prefixes"`
}

func (a AuthConfig) TokenTTL() time.Duration { return time.Duration(a.TokenTTLMinutes) * time.Minute }

type ServicesConfig struct {
	UserURL        string `mapstructure:"user_url"`
	WorkerURL      string `mapstructure:"worker_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

func (s ServicesConfig) Timeout() time.Duration { return time.Duration(s.TimeoutSeconds) * time.Second }

type GatewayConfig struct {
	Upstream string `mapstructure:"upstream"`
}

type StorageConfig struct {
	// Driver is s3 or local.
	Driver          string `mapstructure:"driver"`
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	PublicBaseURL   string `mapstructure:"public_base_url"`
	LocalDir        string `mapstructure:"local_dir"`
	MaxImageMB      int    `mapstructure:"max_image_mb"`
}

type OutboxConfig struct {
	Enabled             bool `mapstructure:"enabled"`
	PollIntervalSeconds int  `mapstructure:"poll_interval_seconds"`
	BatchSize           int  `mapstructure:"batch_size"`
	MaxAttempts         int  `mapstructure:"max_attempts"`
	BaseDelaySeconds    int  `mapstructure:"base_delay_seconds"`
	MaxDelaySeconds     int  `mapstructure:"max_delay_seconds"`
	// RetentionHours is how long delivered events are kept before the cleaner deletes them.
	RetentionHours      int  `mapstructure:"retention_hours"`
}

type ObservabilityConfig struct {
	ServiceName  string `mapstructure:"service_name"`
	SentryDSN    string `mapstructure:"sentry_dsn"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// legacyEnv maps config keys to the flat environment names older deployments use.
var legacyEnv = map[string][]string{
	"app.port":                  {"APP_PORT"},
	"app.gin_mode":              {"GIN_MODE"},
	"app.allowed_origins":       {"ALLOWED_ORIGINS"},
	"app.rate_limit_per_minute": {"RATE_LIMIT_PER_MINUTE"},
	"database.dsn":              {"DATABASE_URI", "DATABASE_URL"},
	"database.host":             {"DB_HOST"},
	"database.port":             {"DB_PORT"},
	"database.user":             {"DB_USER"},
	"database.password":         {"DB_PASSWORD"},
	"database.name":             {"DB_NAME"},
	"redis.host":                {"REDIS_HOST"},
	"redis.port":                {"REDIS_PORT"},
	"redis.db":                  {"REDIS_DB"},
	"redis.password":            {"REDIS_PASSWORD"},
	"log.level":                 {"LOG_LEVEL"},
	"log.path":                  {"LOG_PATH"},
	"log.gin_path":              {"GIN_PATH"},
	"auth.jwt_secret":           {"JWT_SECRET"},
	"services.user_url":         {"USER_SERVICE_URL"},
	"services.worker_url":       {"WORKER_SERVICE_URL"},
	"storage.bucket":            {"AWS_S3_BUCKET_NAME"},
	"storage.region":            {"AWS_REGION"},
	"storage.access_key_id":     {"AWS_ACCESS_KEY_ID"},
	"storage.secret_access_key": {"AWS_SECRET_ACCESS_KEY"},
	"observability.sentry_dsn":  {"SENTRY_DSN"},
}

// Load reads configuration with precedence config file -> defaults -> environment.
// A missing file is not an error; an unreadable one is.
func Load(path string) (AppConfig, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, aliases := range legacyEnv {
		names := append([]string{strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, aliases...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return AppConfig{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path == "" {
		path = filepath.Join("config", "config.json")
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return AppConfig{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.App.AllowedOrigins = splitAndTrim(cfg.App.AllowedOrigins)
	cfg.Auth.PublicPrefixes = splitAndTrim(cfg.Auth.PublicPrefixes)
	return cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "")
	v.SetDefault("app.user_port", "3000")
	v.SetDefault("app.worker_port", "3001")
	v.SetDefault("app.post_port", "3002")
	v.SetDefault("app.gateway_port", "8080")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.gin_mode", "release")
	v.SetDefault("app.allowed_origins", []string{"*"})
	v.SetDefault("app.rate_limit_per_minute", 120)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", "")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "primepatrol")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")

	v.SetDefault("cache.ttl_seconds", 60)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", "logs/app.log")
	v.SetDefault("log.gin_path", "logs/gin.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 7)
	v.SetDefault("log.compress", false)

	v.SetDefault("auth.mode", "jwt")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl_minutes", 24*60)
	v.SetDefault("auth.public_prefixes", []string{"/api/v1/auth/"})

	v.SetDefault("services.user_url", "http://localhost:3000")
	v.SetDefault("services.worker_url", "http://localhost:3001")
	v.SetDefault("services.timeout_seconds", 10)

	v.SetDefault("gateway.upstream", "http://localhost:3000")

	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key_id", "")
	v.SetDefault("storage.secret_access_key", "")
	v.SetDefault("storage.public_base_url", "")
	v.SetDefault("storage.local_dir", "static/uploads")
	v.SetDefault("storage.max_image_mb", 10)

	v.SetDefault("outbox.enabled", true)
	v.SetDefault("outbox.poll_interval_seconds", 5)
	v.SetDefault("outbox.batch_size", 50)
	v.SetDefault("outbox.max_attempts", 8)
	v.SetDefault("outbox.base_delay_seconds", 2)
	v.SetDefault("outbox.max_delay_seconds", 300)
	v.SetDefault("outbox.retention_hours", 168)

	v.SetDefault("observability.service_name", "primepatrol")
	v.SetDefault("observability.sentry_dsn", "")
	v.SetDefault("observability.otlp_endpoint", "")
}

// Validate checks the settings the given service cannot start without.
func (c AppConfig) Validate(service string) error {
	switch service {
	case ServiceUser:
		if c.Auth.JWTSecret == "" {
			return errors.New("auth.jwt_secret (JWT_SECRET) must be set for the user service")
		}
	case ServiceGateway:
		if c.Auth.Mode != "none" && c.Auth.JWTSecret == "" {
			return errors.New("auth.jwt_secret (JWT_SECRET) must be set when auth.mode is jwt")
		}
		if c.Gateway.Upstream == "" {
			return errors.New("gateway.upstream must be set")
		}
	case ServicePost:
		if c.Storage.Driver == "s3" && (c.Storage.Bucket == "" || c.Storage.Region == "") {
			return errors.New("storage.bucket and storage.region must be set for s3 storage")
		}
	case ServiceWorker:
	default:
		return fmt.Errorf("unknown service %q", service)
	}
	return nil
}

// PortFor returns the listen port of a service, honouring app.port as an override.
func (c AppConfig) PortFor(service string) string {
	if c.App.Port != "" {
		return c.App.Port
	}
	switch service {
	case ServicePost:
		return c.App.PostPort
	case ServiceWorker:
		return c.App.WorkerPort
	case ServiceUser:
		return c.App.UserPort
	default:
		return c.App.GatewayPort
	}
}

func splitAndTrim(items []string) []string {
	var out []string
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
