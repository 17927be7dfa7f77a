package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/vbonduro/ingredia/internal/prompt"
)

// ErrMissingCredential is returned by RequireCredential when the selected
// backend needs an API key and none is configured.
var ErrMissingCredential = errors.New("missing credential")

const (
	dotEnvFile   = ".env"
	yamlFileName = "ingredia.yaml"
)

type Config struct {
	ListenAddr string `mapstructure:"listen_addr" validate:"required"`
	DBPath     string `mapstructure:"db_path" validate:"required"`
	ImagePath  string `mapstructure:"image_path" validate:"required"`

	ModelBackend   string        `mapstructure:"model_backend" validate:"oneof=gemini claude openai ollama"`
	ModelTimeout   time.Duration `mapstructure:"model_timeout" validate:"gt=0"`
	GoogleAPIKey   string        `mapstructure:"google_api_key"`
	GeminiModel    string        `mapstructure:"gemini_model"`
	GeminiEndpoint string        `mapstructure:"gemini_endpoint" validate:"omitempty,url"`
	ClaudeAPIKey   string        `mapstructure:"claude_api_key"`
	ClaudeModel    string        `mapstructure:"claude_model"`
	OpenAIAPIKey   string        `mapstructure:"openai_api_key"`
	OpenAIModel    string        `mapstructure:"openai_model"`
	OpenAIBaseURL  string        `mapstructure:"openai_base_url" validate:"omitempty,url"`
	OllamaHost     string        `mapstructure:"ollama_host" validate:"omitempty,url"`
	OllamaModel    string        `mapstructure:"ollama_model"`

	SpreadsheetPath     string `mapstructure:"spreadsheet_path" validate:"required"`
	MaxSpreadsheetBytes int64  `mapstructure:"max_spreadsheet_bytes" validate:"gt=0"`
	MaxSpreadsheetChars int    `mapstructure:"max_spreadsheet_chars" validate:"gt=0"`
	MaxImageBytes       int64  `mapstructure:"max_image_bytes" validate:"gt=0"`
	MaxQuestionChars    int    `mapstructure:"max_question_chars" validate:"gt=0"`
	MaxPromptChars      int    `mapstructure:"max_prompt_chars" validate:"gt=0"`
	CacheSize           int    `mapstructure:"cache_size" validate:"gt=0"`

	LogLevel  string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFile   string `mapstructure:"log_file"`
	LogFormat string `mapstructure:"log_format" validate:"oneof=json text"`
}

var defaults = map[string]any{
	"listen_addr":           ":8080",
	"db_path":               "ingredia.db",
	"image_path":            "images",
	"model_backend":         "gemini",
	"model_timeout":         "120s",
	"google_api_key":        "",
	"gemini_model":          "gemini-1.5-flash",
	"gemini_endpoint":       "",
	"claude_api_key":        "",
	"claude_model":          "",
	"openai_api_key":        "",
	"openai_model":          "",
	"openai_base_url":       "",
	"ollama_host":           "http://localhost:11434",
	"ollama_model":          "llava",
	"spreadsheet_path":      "Food_data.xlsx",
	"max_spreadsheet_bytes": 10 << 20,
	"max_spreadsheet_chars": 100_000,
	"max_image_bytes":       10 << 20,
	"max_question_chars":    2000,
	"max_prompt_chars":      120_000,
	"cache_size":            128,
	"log_level":             "info",
	"log_file":              "",
	"log_format":            "json",
}

// Load builds the configuration from, in increasing precedence: defaults,
// dir/.env, dir/ingredia.yaml (or configFile when set), and the process
// environment. An empty dir means the working directory. Missing files are
// skipped; an explicit configFile must exist.
func Load(dir, configFile string) (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	if dir == "" {
		dir = "."
	}

	dotEnv := filepath.Join(dir, dotEnvFile)
	if fileExists(dotEnv) {
		v.SetConfigFile(dotEnv)
		v.SetConfigType("env")
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", dotEnv, err)
		}
	}

	yamlPath := configFile
	if yamlPath == "" {
		yamlPath = filepath.Join(dir, yamlFileName)
		if !fileExists(yamlPath) {
			yamlPath = ""
		}
	}
	if yamlPath != "" {
		v.SetConfigFile(yamlPath)
		v.SetConfigType("yaml")
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", yamlPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints. Call it again after overriding fields.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if minChars := prompt.MinChars(c.MaxQuestionChars); c.MaxPromptChars < minChars {
		return fmt.Errorf("invalid config: MAX_PROMPT_CHARS must be at least %d for MAX_QUESTION_CHARS=%d",
			minChars, c.MaxQuestionChars)
	}
	return nil
}

// CredentialVar names the setting holding the selected backend's API key.
// Backends that need no key return "".
func (c *Config) CredentialVar() string {
	switch c.ModelBackend {
	case "gemini":
		return "GOOGLE_API_KEY"
	case "claude":
		return "CLAUDE_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}

// Credential returns the selected backend's API key.
func (c *Config) Credential() string {
	switch c.ModelBackend {
	case "gemini":
		return c.GoogleAPIKey
	case "claude":
		return c.ClaudeAPIKey
	case "openai":
		return c.OpenAIAPIKey
	default:
		return ""
	}
}

func (c *Config) RequireCredential() error {
	name := c.CredentialVar()
	if name != "" && c.Credential() == "" {
		return fmt.Errorf("%w: %s", ErrMissingCredential, name)
	}
	return nil
}

// MissingCredentialMessage is the text shown to the user when
// RequireCredential fails.
func (c *Config) MissingCredentialMessage() string {
	return fmt.Sprintf("Please set your %s in the .env file.", c.CredentialVar())
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
