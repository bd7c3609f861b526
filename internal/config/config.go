// Package config loads server settings from flags, the environment and an
// optional .env file, in that order of precedence.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Storage   StorageConfig
	Server    ServerConfig
	Auth      AuthConfig
	Search    SearchConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Jobs      JobsConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StorageConfig holds on-disk storage configuration.
// The badger store and the bleve index live below DataPath.
type StorageConfig struct {
	DataPath string
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port               string        // Server port (default: 8080)
	ReadTimeout        time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout       time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout        time.Duration // HTTP idle timeout (default: 60s)
	RequestTimeout     time.Duration // Per-request deadline (default: 10s)
	CORSAllowedOrigins []string      // Default: *
}

// Auth providers.
const (
	AuthProviderPaseto   = "paseto"
	AuthProviderFirebase = "firebase"
)

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	Provider string
	// Hex-encoded PASETO v4 local key. Empty means load or generate DATA_PATH/auth.key.
	TokenKeyHex             string
	FirebaseProjectID       string
	FirebaseCredentialsFile string
	// Identity IDs or emails promoted to admin when their profile is created.
	AdminIdentities []string
}

// IsAdminIdentity reports whether the identity id or email is listed in ADMIN_IDENTITIES.
func (a AuthConfig) IsAdminIdentity(id, email string) bool {
	for _, v := range a.AdminIdentities {
		if v == id || (email != "" && strings.EqualFold(v, email)) {
			return true
		}
	}
	return false
}

// Search backends.
const (
	SearchBackendBleve       = "bleve"
	SearchBackendMeilisearch = "meilisearch"
)

// SearchConfig holds full-text search configuration.
type SearchConfig struct {
	Backend     string
	MeiliURL    string
	MeiliAPIKey string
}

// CacheConfig holds the optional redis list cache configuration.
type CacheConfig struct {
	RedisURL string // Empty disables the cache
	ListTTL  time.Duration
}

// RateLimitConfig holds per-caller write limits.
type RateLimitConfig struct {
	WritesPerMinute int
	Burst           int
}

// JobsConfig holds background job configuration.
type JobsConfig struct {
	BookmarkRepairInterval time.Duration // 0 disables the job
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	// Define command-line flags.
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Base path for the database and search index")

	// Server flags
	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	requestTimeout := flag.String("request-timeout", "", "Per-request deadline (default: 10s)")
	corsOrigins := flag.String("cors-origins", "", "Comma separated allowed CORS origins (default: *)")

	// Auth flags
	authProvider := flag.String("auth-provider", "", "Identity provider: paseto or firebase (default: paseto)")
	firebaseProject := flag.String("firebase-project", "", "Firebase project ID")

	// Search and cache flags
	searchBackend := flag.String("search-backend", "", "Search backend: bleve or meilisearch (default: bleve)")
	meiliURL := flag.String("meili-url", "", "Meilisearch URL")
	redisURL := flag.String("redis-url", "", "Redis URL for the topic list cache (optional)")
	listCacheTTL := flag.String("list-cache-ttl", "", "Topic list cache TTL (default: 30s)")

	bookmarkRepair := flag.String("bookmark-repair-interval", "", "Bookmark reconciliation interval, 0 to disable (default: 1h)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	// Parse flags but don't exit on error - we want to handle it gracefully.
	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	// Build config with proper precedence.
	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			DataPath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Server: ServerConfig{
			Port:               getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSAllowedOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ALLOWED_ORIGINS", "*")),
		},
		Auth: AuthConfig{
			Provider:                strings.ToLower(getConfigValue(*authProvider, "AUTH_PROVIDER", AuthProviderPaseto)),
			TokenKeyHex:             getConfigValue("", "AUTH_TOKEN_KEY", ""),
			FirebaseProjectID:       getConfigValue(*firebaseProject, "FIREBASE_PROJECT_ID", ""),
			FirebaseCredentialsFile: getConfigValue("", "FIREBASE_CREDENTIALS_FILE", ""),
			AdminIdentities:         splitList(getConfigValue("", "ADMIN_IDENTITIES", "")),
		},
		Search: SearchConfig{
			Backend:     strings.ToLower(getConfigValue(*searchBackend, "SEARCH_BACKEND", SearchBackendBleve)),
			MeiliURL:    getConfigValue(*meiliURL, "MEILI_URL", "http://localhost:7700"),
			MeiliAPIKey: getConfigValue("", "MEILI_API_KEY", ""),
		},
		Cache: CacheConfig{
			RedisURL: getConfigValue(*redisURL, "REDIS_URL", ""),
		},
		RateLimit: RateLimitConfig{
			WritesPerMinute: getIntConfigValue("", "RATE_LIMIT_WRITES_PER_MINUTE", 30),
			Burst:           getIntConfigValue("", "RATE_LIMIT_BURST", 10),
		},
	}

	durations := []struct {
		dst      *time.Duration
		flag     string
		envKey   string
		fallback string
	}{
		{&cfg.Server.ReadTimeout, *readTimeout, "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"},
		{&cfg.Server.RequestTimeout, *requestTimeout, "SERVER_REQUEST_TIMEOUT", "10s"},
		{&cfg.Cache.ListTTL, *listCacheTTL, "LIST_CACHE_TTL", "30s"},
		{&cfg.Jobs.BookmarkRepairInterval, *bookmarkRepair, "BOOKMARK_REPAIR_INTERVAL", "1h"},
	}
	for _, d := range durations {
		v, err := getDurationConfigValue(d.flag, d.envKey, d.fallback)
		if err != nil {
			return nil, err
		}
		*d.dst = v
	}

	// Expand and validate data path.
	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

var (
	environments = []string{"development", "staging", "production"}
	logLevels    = []string{"debug", "info", "warn", "error"}
)

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if !slices.Contains(environments, c.App.Environment) {
		return fmt.Errorf("ENV %q: want one of %s", c.App.Environment, strings.Join(environments, ", "))
	}
	if !slices.Contains(logLevels, strings.ToLower(c.Logger.Level)) {
		return fmt.Errorf("LOG_LEVEL %q: want one of %s", c.Logger.Level, strings.Join(logLevels, ", "))
	}
	if c.Storage.DataPath == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	switch c.Auth.Provider {
	case AuthProviderPaseto:
	case AuthProviderFirebase:
		if c.Auth.FirebaseProjectID == "" {
			return errors.New("AUTH_PROVIDER=firebase needs FIREBASE_PROJECT_ID")
		}
	default:
		return fmt.Errorf("AUTH_PROVIDER %q: want paseto or firebase", c.Auth.Provider)
	}

	switch c.Search.Backend {
	case SearchBackendBleve:
	case SearchBackendMeilisearch:
		if c.Search.MeiliURL == "" {
			return errors.New("SEARCH_BACKEND=meilisearch needs MEILI_URL")
		}
	default:
		return fmt.Errorf("SEARCH_BACKEND %q: want bleve or meilisearch", c.Search.Backend)
	}

	if c.RateLimit.WritesPerMinute < 0 || c.RateLimit.Burst < 0 {
		return errors.New("rate limits must not be negative")
	}
	return nil
}

// expandPath resolves ~ and relative paths. An empty path yields fallback.
func expandPath(path, fallback string) (string, error) {
	if path == "" {
		return fallback, nil
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("home directory: %w", err)
		}
		path = filepath.Join(home, rest)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("absolute path for %s: %w", path, err)
	}
	return abs, nil
}

// expandDataPath defaults DataPath to ~/Wellspring/data.
func (c *Config) expandDataPath() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("home directory: %w", err)
	}
	c.Storage.DataPath, err = expandPath(c.Storage.DataPath, filepath.Join(home, "Wellspring", "data"))
	return err
}

// DatabasePath is the badger directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Storage.DataPath, "db")
}

// SearchIndexPath is the bleve directory.
func (c *Config) SearchIndexPath() string {
	return filepath.Join(c.Storage.DataPath, "search")
}

// getConfigValue picks the flag, then the environment, then fallback.
func getConfigValue(flagValue, envKey, fallback string) string {
	for _, v := range []string{flagValue, os.Getenv(envKey)} {
		if v != "" {
			return v
		}
	}
	return fallback
}

// getIntConfigValue is getConfigValue for integers. Unparseable values
// fall back.
func getIntConfigValue(flagValue, envKey string, fallback int) int {
	n, err := strconv.Atoi(getConfigValue(flagValue, envKey, ""))
	if err != nil {
		return fallback
	}
	return n
}

// getDurationConfigValue is getConfigValue for durations. Zero is allowed
// and disables interval jobs.
func getDurationConfigValue(flagValue, envKey, fallback string) (time.Duration, error) {
	raw := getConfigValue(flagValue, envKey, fallback)
	d, err := time.ParseDuration(raw)
	switch {
	case err != nil:
		return 0, fmt.Errorf("%s %q: %w", envKey, raw, err)
	case d < 0:
		return 0, fmt.Errorf("%s %q: negative duration", envKey, raw)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile exports KEY=value lines from path without overriding
// variables already set. Blank lines and # comments are skipped.
func loadEnvFile(path string) error {
	f, err := os.Open(path) //#nosec G304 -- operator-supplied path
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("%s:%d: invalid format, want KEY=value", path, n)
		}
		key = strings.TrimSpace(key)
		if os.Getenv(key) != "" {
			continue
		}
		if err := os.Setenv(key, strings.Trim(strings.TrimSpace(value), `"'`)); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return sc.Err()
}
