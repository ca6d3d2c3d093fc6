package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Index drivers.
const (
	DriverQdrant = "qdrant"
	DriverRedis  = "redis"
	DriverValkey = "valkey"
)

// Config holds the semsearch service configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Auth        AuthConfig        `yaml:"auth"`
	Logging     LoggingConfig     `yaml:"logging"`
	Index       IndexConfig       `yaml:"index"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Rerank      RerankConfig      `yaml:"rerank"`
	Search      SearchConfig      `yaml:"search"`
	Indexing    IndexingConfig    `yaml:"indexing"`
	Collections CollectionsConfig `yaml:"collections"`
	Cache       CacheConfig       `yaml:"cache"`
	NATS        NATSConfig        `yaml:"nats"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// IndexConfig holds vector index connection and HNSW settings.
type IndexConfig struct {
	Driver           string   `yaml:"driver"` // qdrant, redis, valkey (default: qdrant)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	TimeoutSec       int      `yaml:"timeout_sec"`
	HNSWM            int      `yaml:"hnsw_m"`
	HNSWEFConstruct  int      `yaml:"hnsw_ef_construction"`
	KeyPrefix        string   `yaml:"key_prefix"` // redis/valkey only
}

// EmbeddingConfig holds the embedding provider settings.
type EmbeddingConfig struct {
	BaseURL             string `yaml:"base_url"`
	APIKey              string `yaml:"api_key"`
	Model               string `yaml:"model"`
	Dimension           int    `yaml:"dimension"`
	MaxChars            int    `yaml:"max_chars"`
	TimeoutSec          int    `yaml:"timeout_sec"`
	MaxBatchSize        int    `yaml:"max_batch_size"`
	QueryInstruction    string `yaml:"query_instruction"`
	DocumentInstruction string `yaml:"document_instruction"`
}

// RerankConfig holds the relevance reranker settings.
type RerankConfig struct {
	Enabled    bool    `yaml:"enabled"`
	BaseURL    string  `yaml:"base_url"`
	APIKey     string  `yaml:"api_key"`
	Model      string  `yaml:"model"`
	TimeoutSec int     `yaml:"timeout_sec"`
	RPS        float64 `yaml:"rps"`
	Burst      int     `yaml:"burst"`
}

// SearchConfig holds query defaults.
type SearchConfig struct {
	Oversample   int      `yaml:"oversample"`
	MinScore     float64  `yaml:"min_score"`
	DefaultTopK  int      `yaml:"default_top_k"`
	MaxTopK      int      `yaml:"max_top_k"`
	TimeoutSec   int      `yaml:"timeout_sec"`
	UnifiedKinds []string `yaml:"unified_kinds"`
}

// IndexingConfig holds the indexing pipeline settings.
type IndexingConfig struct {
	BatchSizes     map[string]int `yaml:"batch_sizes"` // per kind
	PayloadTextCap int            `yaml:"payload_text_cap"`
	WebTextCap     int            `yaml:"web_text_cap"`
}

// CollectionsConfig names the collection of each kind.
type CollectionsConfig struct {
	Product  string `yaml:"product"`
	FAQ      string `yaml:"faq"`
	Web      string `yaml:"web"`
	Document string `yaml:"document"`
}

// CacheConfig holds embedding cache settings. The cache lives in redis/valkey.
type CacheConfig struct {
	Enabled bool     `yaml:"enabled"`
	Addrs   []string `yaml:"addrs"` // defaults to index.addrs for redis/valkey drivers
	TTLSec  int      `yaml:"ttl_sec"`
}

// NATSConfig holds the event consumer settings. Empty URL disables it.
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
	Queue         string `yaml:"queue"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands env variables in data, then decodes, defaults and validates it.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	c.applyHTTPDefaults()
	c.applyIndexDefaults()
	c.applyEmbeddingDefaults()
	c.applyQueryDefaults()
	c.applyIndexingDefaults()
}

func (c *Config) applyHTTPDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
}

func (c *Config) applyIndexDefaults() {
	if c.Index.Driver == "" {
		c.Index.Driver = DriverQdrant
	}
	if c.Index.ReadinessTimeout <= 0 {
		c.Index.ReadinessTimeout = 10
	}
	if c.Index.TimeoutSec <= 0 {
		c.Index.TimeoutSec = 10
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Index.KeyPrefix == "" {
		c.Index.KeyPrefix = "semsearch:"
	}
	if c.Collections.Product == "" {
		c.Collections.Product = "products"
	}
	if c.Collections.FAQ == "" {
		c.Collections.FAQ = "faq"
	}
	if c.Collections.Web == "" {
		c.Collections.Web = "web_knowledge"
	}
	if c.Collections.Document == "" {
		c.Collections.Document = "documents"
	}
}

func (c *Config) applyEmbeddingDefaults() {
	if c.Embedding.Dimension <= 0 {
		c.Embedding.Dimension = 384
	}
	if c.Embedding.MaxChars <= 0 {
		c.Embedding.MaxChars = 3000
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 15
	}
	if c.Embedding.MaxBatchSize <= 0 {
		c.Embedding.MaxBatchSize = 256
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 3600
	}
	if len(c.Cache.Addrs) == 0 && c.Index.Driver != DriverQdrant {
		c.Cache.Addrs = c.Index.Addrs
	}
}

func (c *Config) applyQueryDefaults() {
	if c.Rerank.TimeoutSec <= 0 {
		c.Rerank.TimeoutSec = 8
	}
	if c.Rerank.RPS <= 0 {
		c.Rerank.RPS = 5
	}
	if c.Rerank.Burst <= 0 {
		c.Rerank.Burst = 10
	}
	if c.Search.Oversample <= 0 {
		c.Search.Oversample = 2
	}
	if c.Search.DefaultTopK <= 0 {
		c.Search.DefaultTopK = 5
	}
	if c.Search.MaxTopK <= 0 {
		c.Search.MaxTopK = 50
	}
	if c.Search.TimeoutSec <= 0 {
		c.Search.TimeoutSec = 10
	}
	if len(c.Search.UnifiedKinds) == 0 {
		c.Search.UnifiedKinds = []string{"product", "faq", "web"}
	}
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = "semsearch"
	}
	if c.NATS.Queue == "" {
		c.NATS.Queue = "semsearch"
	}
}

func (c *Config) applyIndexingDefaults() {
	if c.Indexing.PayloadTextCap <= 0 {
		c.Indexing.PayloadTextCap = 3000
	}
	if c.Indexing.WebTextCap <= 0 {
		c.Indexing.WebTextCap = 500
	}
	defaults := map[string]int{"product": 10, "faq": 10, "web": 10, "document": 2}
	if c.Indexing.BatchSizes == nil {
		c.Indexing.BatchSizes = make(map[string]int, len(defaults))
	}
	for k, v := range defaults {
		if c.Indexing.BatchSizes[k] <= 0 {
			c.Indexing.BatchSizes[k] = v
		}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Index.Driver {
	case DriverQdrant, DriverRedis, DriverValkey:
	default:
		return fmt.Errorf("index.driver must be %q, %q or %q, got %q",
			DriverQdrant, DriverRedis, DriverValkey, c.Index.Driver)
	}
	if len(c.Index.Addrs) == 0 {
		return fmt.Errorf("index.addrs is required")
	}
	if c.Embedding.BaseURL == "" {
		return fmt.Errorf("embedding.base_url is required")
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Rerank.Enabled && c.Rerank.Model == "" {
		return fmt.Errorf("rerank.model is required when rerank is enabled")
	}
	if c.Cache.Enabled && len(c.Cache.Addrs) == 0 {
		return fmt.Errorf("cache.addrs is required when the cache is enabled with the %s driver", c.Index.Driver)
	}
	for _, k := range c.Search.UnifiedKinds {
		if !knownKind(k) {
			return fmt.Errorf("search.unified_kinds: unknown kind %q", k)
		}
	}
	for k := range c.Indexing.BatchSizes {
		if !knownKind(k) {
			return fmt.Errorf("indexing.batch_sizes: unknown kind %q", k)
		}
	}
	return nil
}

func knownKind(k string) bool {
	switch k {
	case "product", "faq", "web", "document":
		return true
	}
	return false
}

// CollectionName returns the collection configured for kind k.
func (c CollectionsConfig) CollectionName(k string) string {
	switch k {
	case "product":
		return c.Product
	case "faq":
		return c.FAQ
	case "web":
		return c.Web
	case "document":
		return c.Document
	}
	return ""
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
