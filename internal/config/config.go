package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServerPort  string
	Environment string

	// Backend REST API consumed by the portal
	BackendURL     string
	BackendTimeout time.Duration
	CSRFCookieName string
	CSRFHeaderName string
	LoginPath      string
	PublicPaths    []string // paths exempt from the login redirect (prefix match)
	SessionCookie  string
	SessionSecret  string
	SessionTTL     time.Duration
	AuthCheckTTL   time.Duration // how long a successful /api/me/ check is trusted

	// Order form behaviour
	RequirePaymentType bool
	OrderPageSize      int
	MailPageSize       int
	Locale             string // collation locale for catalog/item grouping
	TimeZone           string

	DatabaseURL        string
	RedisURL           string
	RedisSentinelAddrs []string
	RedisMasterName    string
	ReferenceCacheTTL  time.Duration

	KafkaBrokers  string
	KafkaUsername string
	KafkaPassword string
	KafkaCACert   string
	KafkaTopic    string

	// Public download page
	CertificateURL string
	InstallerURL   string
	MSIXURL        string
}

func Load() *Config {
	// PostgreSQL is optional: the activity log is disabled without it
	databaseURL := getEnv("DATABASE_URL", "")
	if databaseURL == "" {
		pgHost := getEnv("PGHOST", "")
		pgPort := getEnv("PGPORT", "5432")
		pgUser := getEnv("PGUSER", "postgres")
		pgPassword := getEnv("PGPASSWORD", "")
		pgDatabase := getEnv("PGDATABASE", "orderportal")

		if pgHost != "" {
			if pgPassword != "" {
				databaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
					pgUser, pgPassword, pgHost, pgPort, pgDatabase)
			} else {
				databaseURL = fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=disable",
					pgUser, pgHost, pgPort, pgDatabase)
			}
		}
	}

	redisURL := getEnv("REDIS_URL", "")
	if redisURL == "" {
		redisHost := getEnv("REDISHOST", "")
		redisPort := getEnv("REDISPORT", "6379")
		redisPassword := getEnv("REDISPASSWORD", "")
		redisDB := getEnv("REDISDB", "0")

		if redisHost != "" {
			if redisPassword != "" {
				redisURL = fmt.Sprintf("redis://:%s@%s:%s/%s", redisPassword, redisHost, redisPort, redisDB)
			} else {
				redisURL = fmt.Sprintf("redis://%s:%s/%s", redisHost, redisPort, redisDB)
			}
		}
	}

	return &Config{
		ServerPort:  getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),

		BackendURL:     strings.TrimRight(getEnv("BACKEND_URL", "http://web:8000"), "/"),
		BackendTimeout: getEnvDuration("BACKEND_TIMEOUT", 15*time.Second),
		CSRFCookieName: getEnv("CSRF_COOKIE_NAME", "csrftoken"),
		CSRFHeaderName: getEnv("CSRF_HEADER_NAME", "X-CSRFToken"),
		LoginPath:      getEnv("LOGIN_PATH", "/login"),
		PublicPaths:    getEnvList("PUBLIC_PATHS", []string{"/login", "/download"}),
		SessionCookie:  getEnv("SESSION_COOKIE", "portal_session"),
		SessionSecret:  getEnv("SESSION_SECRET", "change-me-in-production-please-32b"),
		SessionTTL:     getEnvDuration("SESSION_TTL", 12*time.Hour),
		AuthCheckTTL:   getEnvDuration("AUTH_CHECK_TTL", 30*time.Second),

		RequirePaymentType: getEnvBool("ORDER_REQUIRE_PAYMENT_TYPE", false),
		OrderPageSize:      getEnvInt("ORDER_PAGE_SIZE", 20),
		MailPageSize:       getEnvInt("MAIL_PAGE_SIZE", 20),
		Locale:             getEnv("LOCALE", "hr"),
		TimeZone:           getEnv("TZ_NAME", "Europe/Zagreb"),

		DatabaseURL:        databaseURL,
		RedisURL:           redisURL,
		RedisSentinelAddrs: getEnvList("REDIS_SENTINEL_ADDRS", nil),
		RedisMasterName:    getEnv("REDIS_MASTER_NAME", "mymaster"),
		ReferenceCacheTTL:  getEnvDuration("REFERENCE_CACHE_TTL", 5*time.Minute),

		KafkaBrokers:  getEnv("KAFKA_BROKERS", ""),
		KafkaUsername: getEnv("KAFKA_USERNAME", ""),
		KafkaPassword: getEnv("KAFKA_PASSWORD", ""),
		KafkaCACert:   getEnv("KAFKA_CA_CERT", ""),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "purchase-order-events"),

		CertificateURL: getEnv("DOWNLOAD_CERTIFICATE_URL", "/download/TouchScreenPOS-Company-Signing.cer"),
		InstallerURL:   getEnv("DOWNLOAD_INSTALLER_URL", "/download/Blagajna.appinstaller"),
		MSIXURL:        getEnv("DOWNLOAD_MSIX_URL", "/download/Blagajna_1.0.0.0_x64.msix"),
	}
}

// IsProduction reports whether the portal runs with production defaults.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, trimming blanks
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
