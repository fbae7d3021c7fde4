package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreMemory   = "memory"
)

// Config holds application configuration loaded from environment variables.
// Built once at startup and handed to constructors by pointer.
type Config struct {
	AppName    string
	Env        string // development, staging, production
	Port       string
	GinMode    string
	APIVersion string

	// FrontendURL is used to build the password reset link.
	FrontendURL string

	// StoreDriver selects the credential store implementation.
	StoreDriver string

	// Database
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBSSLMode     string
	DBMaxConns    int32
	DBMinConns    int32
	DBMaxConnLife time.Duration

	// MongoDB
	MongoURI      string
	MongoDatabase string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	JWTAccessSecret  string
	JWTRefreshSecret string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration

	// Password reset
	ResetTokenTTL time.Duration

	// CORS
	CORSAllowedOrigins string // comma-separated

	// Rate limiting (per IP, whole API)
	RateLimitWindow time.Duration
	RateLimitMax    int

	// Migrations
	MigrationsDir string

	// RabbitMQ
	RabbitMQURL         string
	RabbitMQEventsQueue string

	// Elasticsearch
	ElasticsearchAddrs string // comma-separated
	ElasticsearchUser  string
	ElasticsearchPass  string
	ESUsersIndex       string

	// Google Cloud Storage
	GCSBucket              string
	GCSCredentialsJSONPath string // optional; if empty, Application Default Credentials are used

	// Debug metrics (/api/v1/debug/vars)
	DebugMetricsEnabled bool

	// HTTP access log toggle
	HTTPLogEnabled bool
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getbool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("invalid boolean for %s: %v, using default %v", key, err, def)
			return def
		}
		return b
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("invalid int for %s: %v, using default %d", key, err, def)
			return def
		}
		return i
	}
	return def
}

func getdur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using default %v", key, err, def)
			return def
		}
		return d
	}
	return def
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		AppName:    getenv("APP_NAME", "yardsale-auth"),
		Env:        getenv("APP_ENV", "development"),
		Port:       getenv("PORT", "5000"),
		GinMode:    getenv("GIN_MODE", "release"),
		APIVersion: getenv("API_VERSION", "v1"),

		FrontendURL: getenv("FRONTEND_URL", "http://localhost:5173"),

		StoreDriver: strings.ToLower(getenv("STORE_DRIVER", StorePostgres)),

		DBHost:        getenv("DB_HOST", "localhost"),
		DBPort:        getenv("DB_PORT", "5432"),
		DBUser:        getenv("DB_USER", "postgres"),
		DBPassword:    getenv("DB_PASSWORD", "postgres"),
		DBName:        getenv("DB_NAME", "yardsale"),
		DBSSLMode:     getenv("DB_SSLMODE", "disable"),
		DBMaxConns:    int32(getint("DB_MAX_CONNS", 10)),
		DBMinConns:    int32(getint("DB_MIN_CONNS", 2)),
		DBMaxConnLife: getdur("DB_MAX_CONN_LIFETIME", time.Hour),

		MongoURI:      getenv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getenv("MONGODB_DATABASE", "yardsale"),

		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getint("REDIS_DB", 0),

		JWTAccessSecret:  getenv("JWT_ACCESS_SECRET", "devaccesssecret"),
		JWTRefreshSecret: getenv("JWT_REFRESH_SECRET", "devrefreshsecret"),
		AccessTTL:        getdur("JWT_ACCESS_TTL", 15*time.Minute),
		RefreshTTL:       getdur("JWT_REFRESH_TTL", 168*time.Hour),

		ResetTokenTTL: getdur("RESET_TOKEN_TTL", time.Hour),

		CORSAllowedOrigins: getenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),

		RateLimitWindow: getdur("RATE_LIMIT_WINDOW", 15*time.Minute),
		RateLimitMax:    getint("RATE_LIMIT_MAX", 100),

		MigrationsDir: getenv("MIGRATIONS_DIR", "db/migrations"),

		RabbitMQURL:         getenv("RABBITMQ_URL", ""),
		RabbitMQEventsQueue: getenv("RABBITMQ_EVENTS_QUEUE", "auth.events"),

		ElasticsearchAddrs: getenv("ELASTICSEARCH_ADDRS", ""),
		ElasticsearchUser:  getenv("ELASTICSEARCH_USERNAME", ""),
		ElasticsearchPass:  getenv("ELASTICSEARCH_PASSWORD", ""),
		ESUsersIndex:       getenv("ES_USERS_INDEX", "users"),

		GCSBucket:              getenv("GCS_BUCKET", ""),
		GCSCredentialsJSONPath: getenv("GCS_CREDENTIALS_JSON", ""),

		DebugMetricsEnabled: getbool("DEBUG_METRICS_ENABLED", true),

		HTTPLogEnabled: getbool("HTTP_LOG_ENABLED", true),
	}
}

// IsDevelopment reports whether reset tokens and raw error messages may be echoed to clients.
func (c *Config) IsDevelopment() bool { return c.Env == "development" }

// IsProduction reports whether internal error detail must be hidden from clients.
func (c *Config) IsProduction() bool { return c.Env == "production" }

// PostgresDSN returns a DSN compatible with pgx
func (c *Config) PostgresDSN() string {
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName + "?sslmode=" + c.DBSSLMode
}

// ResetPasswordURL builds the frontend link that carries a reset secret.
func (c *Config) ResetPasswordURL(secret string) string {
	return strings.TrimRight(c.FrontendURL, "/") + "/reset-password?token=" + secret
}

// CORSOrigins returns the allowed origins as slice
func (c *Config) CORSOrigins() []string {
	return splitList(c.CORSAllowedOrigins)
}

// ESAddrs returns Elasticsearch addresses as a slice
func (c *Config) ESAddrs() []string {
	return splitList(c.ElasticsearchAddrs)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			res = append(res, p)
		}
	}
	return res
}
