// Package config loads the maintenance agent configuration: an optional
// YAML file, then .env files and environment variables, then defaults.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
)

// DefaultPath is read when no config file is named and it exists
const DefaultPath = "config.yaml"

// DevelopmentJWTSecret is the fallback signing key; never use it in production
const DevelopmentJWTSecret = "development-secret-change-in-production"

// Log store drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the root application configuration
type Config struct {
	Server     ServerConfig              `yaml:"server"`
	LogStore   LogStoreConfig            `yaml:"log_store"`
	Index      IndexConfig               `yaml:"index"`
	Embedding  domain.EmbeddingSettings  `yaml:"embedding"`
	Classifier domain.ClassifierSettings `yaml:"classifier"`
	Redis      RedisConfig               `yaml:"redis"`
	Auth       AuthConfig                `yaml:"auth"`
	RateLimit  RateLimitConfig           `yaml:"rate_limit"`
	Log        LogConfig                 `yaml:"log"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Host         string   `yaml:"host"`
	Port         int      `yaml:"port"`
	CORSOrigins  []string `yaml:"cors_origins"`
	MaxBodyBytes int64    `yaml:"max_body_bytes"`
	// MaxImagePixels caps width*height of an uploaded image before it is decoded
	MaxImagePixels int64 `yaml:"max_image_pixels"`
}

// LogStoreConfig selects the request log backend.
// Path is the SQLite file; DSN is the PostgreSQL connection URL.
type LogStoreConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	DSN      string `yaml:"dsn"`
	ImageDir string `yaml:"image_dir"`
}

// IndexConfig configures the manual retrieval index
type IndexConfig struct {
	ManualDir      string        `yaml:"manual_dir"`
	SnapshotPath   string        `yaml:"snapshot_path"`
	ChunkSize      int           `yaml:"chunk_size"`
	Overlap        int           `yaml:"overlap"`
	TopK           int           `yaml:"top_k"`
	ScoreThreshold float64       `yaml:"score_threshold"`
	Watch          bool          `yaml:"watch"`
	WatchDebounce  time.Duration `yaml:"watch_debounce"`
	LockTTL        time.Duration `yaml:"lock_ttl"`
}

// RedisConfig configures the optional Redis connection used for rebuild locks
type RedisConfig struct {
	URL        string `yaml:"url"`
	LockPrefix string `yaml:"lock_prefix"`
}

// AuthConfig configures operator authentication
type AuthConfig struct {
	JWTSecret string            `yaml:"jwt_secret"`
	TokenTTL  time.Duration     `yaml:"token_ttl"`
	Operators []domain.Operator `yaml:"operators"`
}

// RateLimitConfig throttles /analyze per client address; rps 0 disables it
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// LogConfig configures the process logger
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			CORSOrigins:    []string{"*"},
			MaxBodyBytes:   20 << 20,
			MaxImagePixels: 89_478_485,
		},
		LogStore: LogStoreConfig{
			Driver:   DriverSQLite,
			Path:     "maintenance_logs.db",
			ImageDir: "logs_images",
		},
		Index: IndexConfig{
			ManualDir:     "manuals",
			SnapshotPath:  "manual_index.snapshot",
			ChunkSize:     800,
			Overlap:       200,
			TopK:          3,
			WatchDebounce: 2 * time.Second,
			LockTTL:       10 * time.Minute,
		},
		Embedding:  domain.DefaultEmbeddingSettings(),
		Classifier: domain.DefaultClassifierSettings(),
		Auth: AuthConfig{
			JWTSecret: DevelopmentJWTSecret,
			TokenTTL:  24 * time.Hour,
		},
		RateLimit: RateLimitConfig{RPS: 10, Burst: 20},
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration. An explicitly named file must exist;
// with an empty path, DefaultPath is used when present.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultPath); err == nil {
			path = DefaultPath
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}
	dropLocalEmbeddingDefaults(&cfg.Embedding)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// dropLocalEmbeddingDefaults clears the local model name and size when a
// remote provider is selected without its own, so the provider defaults apply
func dropLocalEmbeddingDefaults(e *domain.EmbeddingSettings) {
	local := domain.DefaultEmbeddingSettings()
	if e.Provider == domain.EmbeddingProviderLocal || e.Model != local.Model {
		return
	}
	e.Model = ""
	if e.Dimensions == local.Dimensions {
		e.Dimensions = 0
	}
}

// LoadEnvFiles loads .env style files into the environment without
// overriding variables that are already set. Missing files are skipped.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// applyEnv overrides file values with environment variables
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	env := envReader{lookup: lookup}

	env.str("HOST", &cfg.Server.Host)
	env.int("PORT", &cfg.Server.Port)
	env.list("CORS_ORIGINS", &cfg.Server.CORSOrigins)
	env.int64("MAX_IMAGE_PIXELS", &cfg.Server.MaxImagePixels)

	env.str("LOG_STORE", &cfg.LogStore.Driver)
	env.str("SQLITE_PATH", &cfg.LogStore.Path)
	env.str("DATABASE_URL", &cfg.LogStore.DSN)
	env.str("IMAGE_DIR", &cfg.LogStore.ImageDir)

	env.str("MANUAL_DIR", &cfg.Index.ManualDir)
	env.str("SNAPSHOT_PATH", &cfg.Index.SnapshotPath)
	env.int("CHUNK_SIZE", &cfg.Index.ChunkSize)
	env.int("CHUNK_OVERLAP", &cfg.Index.Overlap)
	env.int("TOP_K", &cfg.Index.TopK)
	env.bool("INDEX_WATCH", &cfg.Index.Watch)

	var provider string
	if env.str("EMBEDDING_PROVIDER", &provider) {
		cfg.Embedding.Provider = domain.EmbeddingProvider(strings.ToLower(provider))
	}
	env.str("EMBEDDING_MODEL", &cfg.Embedding.Model)
	env.str("EMBEDDING_BASE_URL", &cfg.Embedding.BaseURL)
	env.str("OPENAI_API_KEY", &cfg.Embedding.APIKey)
	env.int("EMBEDDING_DIMENSIONS", &cfg.Embedding.Dimensions)

	if env.str("CLASSIFIER_PROVIDER", &provider) {
		cfg.Classifier.Provider = domain.ClassifierProvider(strings.ToLower(provider))
	}
	env.str("CLASSIFIER_ENDPOINT", &cfg.Classifier.Endpoint)
	env.str("CLASSIFIER_API_KEY", &cfg.Classifier.APIKey)
	env.int64("CLASSIFIER_SEED", &cfg.Classifier.Seed)
	env.duration("CLASSIFIER_TIMEOUT", &cfg.Classifier.Timeout)

	env.str("REDIS_URL", &cfg.Redis.URL)

	env.str("JWT_SECRET", &cfg.Auth.JWTSecret)
	env.duration("TOKEN_TTL", &cfg.Auth.TokenTTL)

	env.float("RATE_LIMIT_RPS", &cfg.RateLimit.RPS)
	env.int("RATE_LIMIT_BURST", &cfg.RateLimit.Burst)

	env.str("LOG_LEVEL", &cfg.Log.Level)
	env.str("LOG_FORMAT", &cfg.Log.Format)

	return errors.Join(env.errs...)
}

// Validate checks that the configuration can start the service
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{domain.ErrInvalidInput}, args...)...))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		add("server.port %d out of range", c.Server.Port)
	}
	if c.Server.MaxImagePixels < 1 {
		add("server.max_image_pixels must be at least 1")
	}

	switch c.LogStore.Driver {
	case DriverSQLite:
		if c.LogStore.Path == "" {
			add("log_store.path is required for sqlite")
		}
	case DriverPostgres:
		if c.LogStore.DSN == "" {
			add("log_store.dsn (DATABASE_URL) is required for postgres")
		}
	default:
		add("log_store.driver %q must be sqlite or postgres", c.LogStore.Driver)
	}
	if c.LogStore.ImageDir == "" {
		add("log_store.image_dir is required")
	}

	if c.Index.ChunkSize <= 0 || c.Index.Overlap < 0 || c.Index.Overlap >= c.Index.ChunkSize {
		errs = append(errs, fmt.Errorf("%w: chunk_size %d, overlap %d", domain.ErrInvalidChunkConfig, c.Index.ChunkSize, c.Index.Overlap))
	}
	if c.Index.TopK < 1 {
		add("index.top_k must be at least 1")
	}
	if c.Index.ScoreThreshold < -1 || c.Index.ScoreThreshold > 1 {
		add("index.score_threshold %v outside [-1,1]", c.Index.ScoreThreshold)
	}

	if err := c.Embedding.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Classifier.Validate(); err != nil {
		errs = append(errs, err)
	}

	if c.Auth.JWTSecret == "" {
		add("auth.jwt_secret is required")
	}
	if c.Auth.TokenTTL < 0 {
		add("auth.token_ttl must not be negative")
	}
	if c.RateLimit.RPS < 0 {
		add("rate_limit.rps must not be negative")
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		add("log.format %q must be text or json", c.Log.Format)
	}

	return errors.Join(errs...)
}

// UsesDevelopmentSecret reports whether tokens are signed with the fallback key
func (c *Config) UsesDevelopmentSecret() bool {
	return c.Auth.JWTSecret == DevelopmentJWTSecret
}

// NewLogger builds the process logger described by the log section
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("%w: log.level %q", domain.ErrInvalidInput, s)
	}
	return level, nil
}

// envReader applies typed overrides and collects parse errors
type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (e *envReader) str(key string, dst *string) bool {
	v, ok := e.get(key)
	if ok {
		*dst = v
	}
	return ok
}

func (e *envReader) list(key string, dst *[]string) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func (e *envReader) int(key string, dst *int) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%w: %s=%q is not an integer", domain.ErrInvalidInput, key, v))
		return
	}
	*dst = n
}

func (e *envReader) int64(key string, dst *int64) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%w: %s=%q is not an integer", domain.ErrInvalidInput, key, v))
		return
	}
	*dst = n
}

func (e *envReader) float(key string, dst *float64) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%w: %s=%q is not a number", domain.ErrInvalidInput, key, v))
		return
	}
	*dst = f
}

func (e *envReader) bool(key string, dst *bool) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes", "on":
		*dst = true
	case "false", "0", "no", "off":
		*dst = false
	default:
		e.errs = append(e.errs, fmt.Errorf("%w: %s=%q is not a boolean", domain.ErrInvalidInput, key, v))
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%w: %s=%q is not a duration", domain.ErrInvalidInput, key, v))
		return
	}
	*dst = d
}
