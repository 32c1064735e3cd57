package config

import (
	"errors"
	"fmt"
	"net"
	neturl "net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environments accepted in APP_ENV.
const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"
)

// MinSecretLength is the shortest accepted JWT signing secret.
const MinSecretLength = 30

// Config centralises runtime configuration. It is built once at startup and
// passed by value to the components that need it.
type Config struct {
	Env             string
	HTTPPort        string
	DatabaseURL     string
	JWTSecret       string
	JWTExpiry       time.Duration
	AllowedOrigins  []string
	LogLevel        string
	LogFormat       string
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	if strings.Contains(c.HTTPPort, ":") {
		return c.HTTPPort
	}
	return ":" + c.HTTPPort
}

// Load reads an optional .env file and then the process environment.
// Every missing or malformed value is reported in the returned error.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from the supplied lookup function.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	env := envReader{lookup: lookup}

	cfg := Config{
		Env:             env.oneOf("APP_ENV", EnvDevelopment, EnvDevelopment, EnvTest, EnvProduction),
		HTTPPort:        env.port("PORT", "3000"),
		DatabaseURL:     env.databaseURL(),
		JWTSecret:       env.secret("JWT_ACCESS_SECRET"),
		JWTExpiry:       env.expiry("JWT_ACCESS_EXPIRES_IN", "15m"),
		AllowedOrigins:  splitCSV(env.get("CORS_ALLOWED_ORIGINS", "*")),
		LogLevel:        env.oneOf("LOG_LEVEL", "info", "debug", "info", "warn", "error"),
		LogFormat:       env.oneOf("LOG_FORMAT", "text", "text", "json"),
		ReadTimeoutSec:  env.positiveInt("HTTP_READ_TIMEOUT", 15),
		WriteTimeoutSec: env.positiveInt("HTTP_WRITE_TIMEOUT", 15),
		IdleTimeoutSec:  env.positiveInt("HTTP_IDLE_TIMEOUT", 60),
	}

	if err := errors.Join(env.errs...); err != nil {
		return Config{}, fmt.Errorf("invalid environment: %w", err)
	}
	return cfg, nil
}

// LoadDatabaseURL resolves only the database connection string, for commands
// that do not serve HTTP.
func LoadDatabaseURL() (string, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("loading .env: %w", err)
	}
	return DatabaseURLFromLookup(os.LookupEnv)
}

// DatabaseURLFromLookup resolves the database connection string from the
// supplied lookup function.
func DatabaseURLFromLookup(lookup func(string) (string, bool)) (string, error) {
	env := envReader{lookup: lookup}
	url := env.databaseURL()
	if err := errors.Join(env.errs...); err != nil {
		return "", fmt.Errorf("invalid environment: %w", err)
	}
	return url, nil
}

type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *envReader) fail(format string, args ...any) {
	e.errs = append(e.errs, fmt.Errorf(format, args...))
}

func (e *envReader) get(key, fallback string) string {
	if val, ok := e.lookup(key); ok && strings.TrimSpace(val) != "" {
		return strings.TrimSpace(val)
	}
	return fallback
}

func (e *envReader) oneOf(key, fallback string, allowed ...string) string {
	val := strings.ToLower(e.get(key, fallback))
	for _, candidate := range allowed {
		if val == candidate {
			return val
		}
	}
	e.fail("%s must be one of %s, got %q", key, strings.Join(allowed, ", "), val)
	return ""
}

func (e *envReader) port(key, fallback string) string {
	val := e.get(key, fallback)
	n, err := strconv.Atoi(val)
	if err != nil || n < 1 || n > 65535 {
		e.fail("%s must be a port number, got %q", key, val)
		return ""
	}
	return val
}

func (e *envReader) secret(key string) string {
	val := e.get(key, "")
	switch {
	case val == "":
		e.fail("%s is required", key)
	case len(val) < MinSecretLength:
		e.fail("%s must be at least %d characters", key, MinSecretLength)
	}
	return val
}

func (e *envReader) expiry(key, fallback string) time.Duration {
	val := e.get(key, fallback)
	d, err := ParseExpiry(val)
	if err != nil {
		e.fail("%s: %w", key, err)
		return 0
	}
	return d
}

func (e *envReader) positiveInt(key string, fallback int) int {
	val := e.get(key, "")
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		e.fail("%s must be a positive integer, got %q", key, val)
		return 0
	}
	return n
}

func (e *envReader) databaseURL() string {
	if raw := e.get("DATABASE_URL", ""); raw != "" {
		url, ok := coerceDatabaseURL(raw)
		if !ok {
			e.fail("DATABASE_URL must use the postgres:// or postgresql:// scheme")
		}
		return url
	}

	if path := e.get("DATABASE_URL_FILE", ""); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			e.fail("DATABASE_URL_FILE: %w", err)
			return ""
		}
		url, ok := coerceDatabaseURL(string(data))
		if !ok {
			e.fail("DATABASE_URL_FILE must contain a postgres:// or postgresql:// URL")
		}
		return url
	}

	if url := e.databaseURLFromParts(); url != "" {
		return url
	}
	e.fail("database configuration missing: provide DATABASE_URL or PGHOST/PGUSER")
	return ""
}

func (e *envReader) databaseURLFromParts() string {
	host := e.get("PGHOST", "")
	user := e.get("PGUSER", "")
	if host == "" || user == "" {
		return ""
	}

	dsn := &neturl.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, e.get("PGPORT", "5432")),
		Path:   "/" + e.get("PGDATABASE", user),
		User:   neturl.User(user),
	}
	if password := e.get("PGPASSWORD", ""); password != "" {
		dsn.User = neturl.UserPassword(user, password)
	}
	query := dsn.Query()
	query.Set("sslmode", e.get("PGSSLMODE", "disable"))
	dsn.RawQuery = query.Encode()
	return dsn.String()
}

func coerceDatabaseURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if rest, ok := strings.CutPrefix(raw, "postgresql://"); ok {
		return "postgres://" + rest, true
	}
	if strings.HasPrefix(raw, "postgres://") {
		return raw, true
	}
	return "", false
}

var dayExpiry = regexp.MustCompile(`^(\d+)d$`)

// ParseExpiry accepts Go durations ("15m", "1h30m") and whole days ("7d").
// The result must be positive.
func ParseExpiry(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	var (
		d   time.Duration
		err error
	)
	if m := dayExpiry.FindStringSubmatch(raw); m != nil {
		var days int
		days, err = strconv.Atoi(m[1])
		d = time.Duration(days) * 24 * time.Hour
	} else {
		d, err = time.ParseDuration(raw)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %q", raw)
	}
	return d, nil
}

func splitCSV(value string) []string {
	parts := []string{}
	for _, part := range strings.Split(value, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		return []string{"*"}
	}
	return parts
}
