package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	LLM      LLMConfig
	Extract  ExtractConfig
	Storage  StorageConfig
	Auth     AuthConfig
	Jobs     JobsConfig
	Log      LogConfig
	Stats    StatsConfig
	Backend  BackendConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string // postgres | sqlite
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
	AutoMigrate      bool
}

type ServerConfig struct {
	HTTPAddr        string
	GRPCAddr        string
	ShutdownTimeout time.Duration
}

// LLMConfig carries the raw credentials; the provider is resolved from them once.
type LLMConfig struct {
	ZhipuAPIKey    string
	DeepSeekAPIKey string
	BaseURL        string
	Model          string
	Temperature    float32
	Timeout        time.Duration
}

type ExtractConfig struct {
	BackendURL              string        `yaml:"backend_url"`
	ReaderURL               string        `yaml:"reader_url"`
	Strategies              []string      `yaml:"strategies"`
	BackendDomains          []string      `yaml:"backend_domains"`
	AntiBotMarkers          []string      `yaml:"anti_bot_markers"`
	QRKeywords              []string      `yaml:"qr_keywords"`
	MinContentLength        int           `yaml:"min_content_length"`
	MaxContentLength        int           `yaml:"max_content_length"`
	BackendMaxContentLength int           `yaml:"backend_max_content_length"`
	BackendTimeout          time.Duration `yaml:"backend_timeout"`
	ReaderTimeout           time.Duration `yaml:"reader_timeout"`
	DirectTimeout           time.Duration `yaml:"direct_timeout"`
	OCRTimeout              time.Duration `yaml:"ocr_timeout"`
}

type StorageConfig struct {
	Driver         string // supabase | local | none
	SupabaseURL    string
	SupabaseKey    string
	Bucket         string
	LocalDir       string
	PublicBaseURL  string
	RequestTimeout time.Duration
}

type AuthConfig struct {
	// Tokens is "name:role:token" entries separated by commas.
	Tokens string
	// Disabled lets every request through as an anonymous editor. Dev only.
	Disabled bool
}

type JobsConfig struct {
	RedisURL  string
	Workers   int
	QueueSize int
	Timeout   time.Duration
	ResultTTL time.Duration
	KeyPrefix string
}

type LogConfig struct {
	Format string // text | json
	Level  string
}

type StatsConfig struct {
	Timezone string
}

// BackendConfig configures cmd/ocrd, the OCR and content-extraction sidecar.
type BackendConfig struct {
	Addr          string
	Tesseract     string
	TesseractLang string
	TessdataDir   string
	HeicConverter string // heif-convert | magick | sips; empty disables HEIC posters
	TSVConfidence bool
	Renderer      string // rod | chromedp
	BrowserURL    string
	RenderTimeout time.Duration
}

var defaultAntiBotMarkers = []string{"环境异常", "完成验证后即可继续访问", "去验证"}

var defaultQRKeywords = []string{
	"扫码", "二维码", "QR", "qr code", "scan", "Scan", "扫一扫", "扫描",
	"Registration", "registration", "报名二维码", "扫码报名", "扫码注册",
}

// LoadConfig loads configuration from environment variables, then applies the
// YAML overlay named by CONFIG_FILE if present.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Driver:           getEnv("DB_DRIVER", "postgres"),
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
			AutoMigrate:      getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Server: ServerConfig{
			HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
			GRPCAddr:        getEnv("GRPC_ADDR", ":9090"),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		LLM: LLMConfig{
			ZhipuAPIKey:    getEnv("ZHIPU_API_KEY", ""),
			DeepSeekAPIKey: getEnv("DEEPSEEK_API_KEY", ""),
			BaseURL:        getEnv("LLM_BASE_URL", ""),
			Model:          getEnv("LLM_MODEL", ""),
			Temperature:    getEnvAsFloat32("LLM_TEMPERATURE", 0.1),
			Timeout:        getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
		},
		Extract: ExtractConfig{
			BackendURL:              getEnv("API_URL", "http://localhost:5001"),
			ReaderURL:               getEnv("READER_URL", "https://r.jina.ai/"),
			Strategies:              getEnvAsList("URL_STRATEGIES", []string{"backend", "reader", "direct"}),
			BackendDomains:          getEnvAsList("BACKEND_DOMAINS", []string{"mp.weixin.qq.com"}),
			AntiBotMarkers:          defaultAntiBotMarkers,
			QRKeywords:              defaultQRKeywords,
			MinContentLength:        getEnvAsInt("MIN_CONTENT_LENGTH", 100),
			MaxContentLength:        getEnvAsInt("MAX_CONTENT_LENGTH", 5000),
			BackendMaxContentLength: getEnvAsInt("BACKEND_MAX_CONTENT_LENGTH", 10000),
			BackendTimeout:          getEnvAsDuration("BACKEND_TIMEOUT", 120*time.Second),
			ReaderTimeout:           getEnvAsDuration("READER_TIMEOUT", 60*time.Second),
			DirectTimeout:           getEnvAsDuration("DIRECT_TIMEOUT", 30*time.Second),
			OCRTimeout:              getEnvAsDuration("OCR_TIMEOUT", 120*time.Second),
		},
		Storage: StorageConfig{
			Driver:         getEnv("STORAGE_DRIVER", "supabase"),
			SupabaseURL:    getEnv("SUPABASE_URL", ""),
			SupabaseKey:    getEnv("SUPABASE_SERVICE_ROLE_KEY", getEnv("SUPABASE_ANON_KEY", "")),
			Bucket:         getEnv("STORAGE_BUCKET", "posters"),
			LocalDir:       getEnv("STORAGE_DIR", "./uploads"),
			PublicBaseURL:  getEnv("STORAGE_PUBLIC_BASE_URL", "/uploads"),
			RequestTimeout: getEnvAsDuration("STORAGE_TIMEOUT", 30*time.Second),
		},
		Auth: AuthConfig{
			Tokens:   getEnv("AUTH_TOKENS", ""),
			Disabled: getEnvAsBool("AUTH_DISABLED", false),
		},
		Jobs: JobsConfig{
			RedisURL:  getEnv("REDIS_URL", ""),
			Workers:   getEnvAsInt("JOB_WORKERS", 4),
			QueueSize: getEnvAsInt("JOB_QUEUE_SIZE", 256),
			Timeout:   getEnvAsDuration("JOB_TIMEOUT", 3*time.Minute),
			ResultTTL: getEnvAsDuration("JOB_RESULT_TTL", 24*time.Hour),
			KeyPrefix: getEnv("JOB_KEY_PREFIX", "campusfeed:job:"),
		},
		Log: LogConfig{
			Format: getEnv("LOG_FORMAT", "text"),
			Level:  getEnv("LOG_LEVEL", "info"),
		},
		Stats: StatsConfig{
			Timezone: getEnv("STATS_TIMEZONE", "Local"),
		},
		Backend: BackendConfig{
			Addr:          getEnv("OCRD_ADDR", ":5001"),
			Tesseract:     getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang: getEnv("TESSERACT_LANG", "chi_sim+eng"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			HeicConverter: getEnv("HEIC_CONVERTER", ""),
			TSVConfidence: getEnvAsBool("OCR_TSV_CONFIDENCE", false),
			Renderer:      getEnv("RENDERER", "rod"),
			BrowserURL:    getEnv("BROWSER_URL", ""),
			RenderTimeout: getEnvAsDuration("RENDER_TIMEOUT", 90*time.Second),
		},
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// fileOverlay is the subset of configuration that may come from YAML.
type fileOverlay struct {
	Extract *ExtractConfig `yaml:"extract"`
}

// ApplyFile overlays non-zero values from a YAML file onto c.
func (c *Config) ApplyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return NewAppError("CONFIG_ERROR", "read config file", err)
	}
	var ov fileOverlay
	if err := yaml.Unmarshal(raw, &ov); err != nil {
		return NewAppError("CONFIG_ERROR", "parse config file "+path, err)
	}
	if e := ov.Extract; e != nil {
		mergeString(&c.Extract.BackendURL, e.BackendURL)
		mergeString(&c.Extract.ReaderURL, e.ReaderURL)
		mergeList(&c.Extract.Strategies, e.Strategies)
		mergeList(&c.Extract.BackendDomains, e.BackendDomains)
		mergeList(&c.Extract.AntiBotMarkers, e.AntiBotMarkers)
		mergeList(&c.Extract.QRKeywords, e.QRKeywords)
		mergeInt(&c.Extract.MinContentLength, e.MinContentLength)
		mergeInt(&c.Extract.MaxContentLength, e.MaxContentLength)
		mergeInt(&c.Extract.BackendMaxContentLength, e.BackendMaxContentLength)
		mergeDuration(&c.Extract.BackendTimeout, e.BackendTimeout)
		mergeDuration(&c.Extract.ReaderTimeout, e.ReaderTimeout)
		mergeDuration(&c.Extract.DirectTimeout, e.DirectTimeout)
		mergeDuration(&c.Extract.OCRTimeout, e.OCRTimeout)
	}
	return nil
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func mergeList(dst *[]string, v []string) {
	if len(v) > 0 {
		*dst = v
	}
}

func mergeInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func mergeDuration(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// Validate checks the settings every server binary needs.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("DB_DRIVER %q is not supported", c.Database.Driver), ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" && c.Server.GRPCAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR or GRPC_ADDR is required", ErrInvalidInput)
	}
	return c.Extract.Validate()
}

func (e ExtractConfig) Validate() error {
	if e.MinContentLength <= 0 {
		return NewAppError("CONFIG_ERROR", "MIN_CONTENT_LENGTH must be positive", ErrInvalidInput)
	}
	if e.MaxContentLength < e.MinContentLength {
		return NewAppError("CONFIG_ERROR", "MAX_CONTENT_LENGTH must be at least MIN_CONTENT_LENGTH", ErrInvalidInput)
	}
	for _, s := range e.Strategies {
		switch s {
		case "backend", "reader", "direct":
		default:
			return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown url strategy %q", s), ErrInvalidInput)
		}
	}
	return nil
}
