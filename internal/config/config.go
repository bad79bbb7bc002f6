package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the evaluation service.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	DatabaseURL string
	RedisURL    string
	NATSURL     string
	NATSSubject string
	JWTSecret   string
	LogLevel    string
	LogFormat   string

	LLM     LLMConfig
	Bonus   BonusConfig
	Scoring ScoringConfig

	StorageRoots        []StorageRoot
	RubricOverridesFile string
}

// LLMConfig configures the chat-completion endpoint used for scoring.
type LLMConfig struct {
	EndpointURL string
	APIKey      string
	Model       string
	Temperature float32
	MaxRetries  int
	Timeout     time.Duration
	MaxTokens   int
}

// BonusConfig caps caller supplied bonus items.
type BonusConfig struct {
	MaxTotal float64
	MaxItem  float64
}

// ScoringConfig groups orchestrator knobs.
type ScoringConfig struct {
	DefaultTotalScore  int
	ResultCacheTTL     time.Duration
	BatchConcurrency   int
	ExtensionFileTypes map[string]string
}

// StorageRoot maps a stored path prefix onto a local mount point.
type StorageRoot struct {
	Prefix string
	Root   string
}

// String redacts the API key so configs can be logged safely.
func (c LLMConfig) String() string {
	return fmt.Sprintf("endpoint=%s model=%s temperature=%.2f retries=%d timeout=%s max_tokens=%d",
		c.EndpointURL, c.Model, c.Temperature, c.MaxRetries, c.Timeout, c.MaxTokens)
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// DefaultExtensionFileTypes is the canonical extension to file-type mapping.
func DefaultExtensionFileTypes() map[string]string {
	return map[string]string{
		"pdf":  "教案",
		"docx": "教案",
		"doc":  "教案",
		"txt":  "教案",
		"pptx": "课件",
		"ppt":  "课件",
		"xlsx": "成绩/学情分析",
	}
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GEMA_EVAL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "GEMA Evaluation API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.url", "sqlite://gema-eval.db")
	v.SetDefault("nats.subject", "gema.scoring.events")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("llm.endpoint_url", "https://api.deepseek.com/chat/completions")
	v.SetDefault("llm.model", "deepseek-chat")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.timeout_seconds", 30)
	v.SetDefault("llm.max_tokens", 2000)
	v.SetDefault("bonus.max_total", 10)
	v.SetDefault("bonus.max_item", 5)
	v.SetDefault("scoring.default_total_score", 100)
	v.SetDefault("scoring.result_cache_ttl", "10m")
	v.SetDefault("scoring.batch_concurrency", 1)
	v.SetDefault("scoring.extension_file_types", "")
	v.SetDefault("storage.roots", "/media/=./media,/uploads/=./uploads")

	ttl, err := time.ParseDuration(v.GetString("scoring.result_cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid result cache ttl: %w", err)
	}

	roots, err := ParseStorageRoots(v.GetString("storage.roots"))
	if err != nil {
		return Config{}, err
	}

	fileTypes, err := ParseExtensionFileTypes(v.GetString("scoring.extension_file_types"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:     v.GetString("app.name"),
		AppEnv:      v.GetString("app.env"),
		AppPort:     v.GetString("app.port"),
		DatabaseURL: v.GetString("database.url"),
		RedisURL:    v.GetString("redis.url"),
		NATSURL:     v.GetString("nats.url"),
		NATSSubject: v.GetString("nats.subject"),
		JWTSecret:   v.GetString("jwt.secret"),
		LogLevel:    strings.ToLower(v.GetString("log.level")),
		LogFormat:   strings.ToLower(v.GetString("log.format")),
		LLM: LLMConfig{
			EndpointURL: strings.TrimSpace(v.GetString("llm.endpoint_url")),
			APIKey:      strings.TrimSpace(v.GetString("llm.api_key")),
			Model:       v.GetString("llm.model"),
			Temperature: float32(v.GetFloat64("llm.temperature")),
			MaxRetries:  v.GetInt("llm.max_retries"),
			Timeout:     time.Duration(v.GetInt("llm.timeout_seconds")) * time.Second,
			MaxTokens:   v.GetInt("llm.max_tokens"),
		},
		Bonus: BonusConfig{
			MaxTotal: v.GetFloat64("bonus.max_total"),
			MaxItem:  v.GetFloat64("bonus.max_item"),
		},
		Scoring: ScoringConfig{
			DefaultTotalScore:  v.GetInt("scoring.default_total_score"),
			ResultCacheTTL:     ttl,
			BatchConcurrency:   v.GetInt("scoring.batch_concurrency"),
			ExtensionFileTypes: fileTypes,
		},
		StorageRoots:        roots,
		RubricOverridesFile: strings.TrimSpace(v.GetString("rubric.overrides_file")),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm api key must be provided")
	}
	if c.LLM.EndpointURL == "" {
		return fmt.Errorf("llm endpoint url must be provided")
	}
	if c.LLM.MaxRetries < 1 {
		return fmt.Errorf("llm max retries must be at least 1")
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm timeout must be positive")
	}
	if c.LLM.MaxTokens < 2000 {
		c.LLM.MaxTokens = 2000
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm temperature must be between 0 and 2")
	}
	if c.Bonus.MaxTotal < 0 || c.Bonus.MaxItem < 0 {
		return fmt.Errorf("bonus caps must not be negative")
	}
	if c.Scoring.DefaultTotalScore <= 0 {
		return fmt.Errorf("default total score must be positive")
	}
	if c.Scoring.BatchConcurrency <= 0 {
		c.Scoring.BatchConcurrency = 1
	}
	return nil
}

// ParseStorageRoots parses "prefix=root,prefix=root" pairs. Order is preserved.
func ParseStorageRoots(raw string) ([]StorageRoot, error) {
	roots := make([]StorageRoot, 0)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		prefix, root, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(root) == "" {
			return nil, fmt.Errorf("invalid storage root %q: expected prefix=root", pair)
		}
		roots = append(roots, StorageRoot{Prefix: strings.TrimSpace(prefix), Root: strings.TrimSpace(root)})
	}
	return roots, nil
}

// ParseExtensionFileTypes merges "ext=type" pairs over the default mapping.
func ParseExtensionFileTypes(raw string) (map[string]string, error) {
	mapping := DefaultExtensionFileTypes()
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		ext, fileType, ok := strings.Cut(pair, "=")
		ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
		fileType = strings.TrimSpace(fileType)
		if !ok || ext == "" || fileType == "" {
			return nil, fmt.Errorf("invalid extension mapping %q: expected ext=type", pair)
		}
		mapping[ext] = fileType
	}
	return mapping, nil
}
