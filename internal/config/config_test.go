package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("MODEL_BACKEND", "")

	cfg, err := Load(t.TempDir(), "")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "gemini", cfg.ModelBackend)
	assert.Equal(t, "gemini-1.5-flash", cfg.GeminiModel)
	assert.Equal(t, "Food_data.xlsx", cfg.SpreadsheetPath)
	assert.Equal(t, 120*time.Second, cfg.ModelTimeout)
	assert.Equal(t, int64(10<<20), cfg.MaxImageBytes)
	assert.Equal(t, 2000, cfg.MaxQuestionChars)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadCustomValues(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("DB_PATH", "/custom/db.sqlite")
	t.Setenv("MODEL_BACKEND", "claude")
	t.Setenv("CLAUDE_API_KEY", "sk-test123")
	t.Setenv("MODEL_TIMEOUT", "30s")
	t.Setenv("MAX_QUESTION_CHARS", "500")

	cfg, err := Load(t.TempDir(), "")
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "/custom/db.sqlite", cfg.DBPath)
	assert.Equal(t, "claude", cfg.ModelBackend)
	assert.Equal(t, "sk-test123", cfg.ClaudeAPIKey)
	assert.Equal(t, 30*time.Second, cfg.ModelTimeout)
	assert.Equal(t, 500, cfg.MaxQuestionChars)
}

func TestLoadDotEnv(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("SPREADSHEET_PATH", "")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("GOOGLE_API_KEY=from-dotenv\nSPREADSHEET_PATH=data/foods.xlsx\n"), 0o600))

	cfg, err := Load(dir, "")
	require.NoError(t, err)

	assert.Equal(t, "from-dotenv", cfg.GoogleAPIKey)
	assert.Equal(t, "data/foods.xlsx", cfg.SpreadsheetPath)
}

func TestLoadEnvOverridesFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GOOGLE_API_KEY=from-dotenv\n"), 0o600))
	t.Setenv("GOOGLE_API_KEY", "from-env")

	cfg, err := Load(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.GoogleAPIKey)
}

func TestLoadYAML(t *testing.T) {
	t.Setenv("OLLAMA_MODEL", "")
	t.Setenv("CACHE_SIZE", "")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ingredia.yaml"),
		[]byte("ollama_model: llava:13b\ncache_size: 16\n"), 0o600))

	cfg, err := Load(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "llava:13b", cfg.OllamaModel)
	assert.Equal(t, 16, cfg.CacheSize)
}

func TestLoadExplicitConfigFileMissing(t *testing.T) {
	_, err := Load(t.TempDir(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown backend", "MODEL_BACKEND", "watson"},
		{"unknown log level", "LOG_LEVEL", "loud"},
		{"unknown log format", "LOG_FORMAT", "xml"},
		{"zero cache", "CACHE_SIZE", "0"},
		{"bad endpoint", "OPENAI_BASE_URL", "not a url"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			_, err := Load(t.TempDir(), "")
			assert.Error(t, err)
		})
	}
}

func TestRequireCredential(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantVar string
		wantErr bool
	}{
		{"gemini missing", Config{ModelBackend: "gemini"}, "GOOGLE_API_KEY", true},
		{"gemini set", Config{ModelBackend: "gemini", GoogleAPIKey: "k"}, "GOOGLE_API_KEY", false},
		{"claude missing", Config{ModelBackend: "claude"}, "CLAUDE_API_KEY", true},
		{"openai set", Config{ModelBackend: "openai", OpenAIAPIKey: "k"}, "OPENAI_API_KEY", false},
		{"ollama needs none", Config{ModelBackend: "ollama"}, "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.wantVar, tc.cfg.CredentialVar())
			err := tc.cfg.RequireCredential()
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrMissingCredential)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMissingCredentialMessage(t *testing.T) {
	cfg := Config{ModelBackend: "gemini"}
	assert.Equal(t, "Please set your GOOGLE_API_KEY in the .env file.", cfg.MissingCredentialMessage())
}

func TestValidateAfterOverride(t *testing.T) {
	cfg, err := Load(t.TempDir(), "")
	require.NoError(t, err)

	cfg.ModelBackend = "ollama"
	assert.NoError(t, cfg.Validate())

	cfg.ModelBackend = "bard"
	assert.Error(t, cfg.Validate())
}

func TestLoadRejectsPromptBoundBelowQuestionBound(t *testing.T) {
	t.Setenv("MAX_QUESTION_CHARS", "2000")
	t.Setenv("MAX_PROMPT_CHARS", "1000")

	_, err := Load(t.TempDir(), "")
	assert.ErrorContains(t, err, "MAX_PROMPT_CHARS")
}
