package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/vbonduro/ingredia/internal/config"
	"github.com/vbonduro/ingredia/internal/spreadsheet"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.Load(dir, "")
	require.NoError(t, err)
	cfg.DBPath = filepath.Join(dir, "ingredia.db")
	cfg.ImagePath = filepath.Join(dir, "images")
	cfg.LogFile = ""

	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	return cfg
}

func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Food_data.csv")
	require.NoError(t, os.WriteFile(path, []byte("Ingredient,Effect\nGlycerin,Hydrates skin\n"), 0o600))
	return path
}

func TestNewApp_MissingCredential(t *testing.T) {
	cfg := testConfig(t)
	cfg.ModelBackend = "gemini"
	cfg.GoogleAPIKey = ""

	_, err := newApp(context.Background(), cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrMissingCredential)
	assert.Equal(t, "Please set your GOOGLE_API_KEY in the .env file.", err.Error())
}

func TestNewApp_MissingSpreadsheet(t *testing.T) {
	cfg := testConfig(t)
	cfg.ModelBackend = "gemini"
	cfg.GoogleAPIKey = "test-key"
	cfg.SpreadsheetPath = filepath.Join(t.TempDir(), "Food_data.xlsx")

	_, err := newApp(context.Background(), cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, spreadsheet.ErrFileNotFound)
	assert.Equal(t, "Error: "+cfg.SpreadsheetPath+" not found. Please make sure the file exists.", err.Error())

	_, statErr := os.Stat(cfg.DBPath)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "database must not be opened before the spreadsheet gate")
}

func TestNewApp_Wires(t *testing.T) {
	cfg := testConfig(t)
	cfg.ModelBackend = "ollama"
	cfg.SpreadsheetPath = writeCSV(t)

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	sheet, err := a.svc.Spreadsheet(context.Background())
	require.NoError(t, err)
	assert.Contains(t, sheet.Text, "Glycerin")
}

func TestNewProvider(t *testing.T) {
	for _, backend := range []string{"gemini", "claude", "openai", "ollama"} {
		t.Run(backend, func(t *testing.T) {
			p, err := newProvider(&config.Config{ModelBackend: backend})
			require.NoError(t, err)
			assert.Equal(t, backend, p.Name())
		})
	}

	_, err := newProvider(&config.Config{ModelBackend: "bard"})
	assert.Error(t, err)
}

func TestReadImage(t *testing.T) {
	dir := t.TempDir()
	jpeg := filepath.Join(dir, "cream.jpg")
	require.NoError(t, os.WriteFile(jpeg, []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0x10}, 0o600))
	gif := filepath.Join(dir, "cream.gif")
	require.NoError(t, os.WriteFile(gif, []byte("GIF89a"), 0o600))

	data, mimeType, err := readImage(jpeg, 1024)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mimeType)
	assert.Len(t, data, 6)

	_, _, err = readImage(jpeg, 4)
	assert.Error(t, err)

	_, _, err = readImage(gif, 1024)
	assert.Error(t, err)

	_, _, err = readImage(filepath.Join(dir, "missing.png"), 1024)
	assert.Error(t, err)
}

var sampleResult = result{
	Image:       "cream.jpg",
	Provider:    "gemini",
	Description: "A tube of hand cream.",
	Question:    "Is this safe for sensitive skin?",
	Answer:      "Probably, patch test first.",
}

func TestWriteResult_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, "text", sampleResult))

	out := buf.String()
	assert.Contains(t, out, "Image Analysis\n\nA tube of hand cream.\n")
	assert.Contains(t, out, "Analysis Result\n\nProbably, patch test first.\n")
}

func TestWriteResult_TextDescribeOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, "text", result{Description: "A jar."}))
	assert.Equal(t, "Image Analysis\n\nA jar.\n", buf.String())
}

func TestWriteResult_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, "json", sampleResult))

	var got result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, sampleResult, got)
}

func TestWriteResult_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, "yaml", sampleResult))
	assert.Contains(t, buf.String(), "question: Is this safe for sensitive skin?")

	var got result
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, sampleResult, got)
}

func TestCheckFormat(t *testing.T) {
	assert.NoError(t, checkFormat("text"))
	assert.NoError(t, checkFormat("json"))
	assert.NoError(t, checkFormat("yaml"))
	assert.Error(t, checkFormat("xml"))
}

func TestUserErrorUnwraps(t *testing.T) {
	err := error(&userError{msg: "shown", err: config.ErrMissingCredential})
	assert.Equal(t, "shown", err.Error())
	assert.ErrorIs(t, err, config.ErrMissingCredential)
}
