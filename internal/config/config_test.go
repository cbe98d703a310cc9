package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 0.3, cfg.VisibilityThreshold)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "light", cfg.DefaultTheme)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "marginalia.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9000"
content_dir: `+dir+`
session_ttl: 5m
visibility_threshold: 0.5
site:
  title: Notebook
logging:
  level: debug
  format: console
`), 0o644))

	t.Setenv("PORT", "9100")
	t.Setenv("MAX_SESSIONS", "7")
	t.Setenv("VISIBILITY_THRESHOLD", "not-a-number")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Port, "environment wins over file")
	assert.Equal(t, dir, cfg.ContentDir)
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 0.5, cfg.VisibilityThreshold, "unparsable env keeps the file value")
	assert.Equal(t, 7, cfg.MaxSessions)
	assert.Equal(t, "Notebook", cfg.Site.Title)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [\n"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Port = "http"
	cfg.VisibilityThreshold = 1.5
	cfg.DefaultTheme = "sepia"
	cfg.WatchContent = true
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 5)
}

func TestValidate_ContentDirMustExist(t *testing.T) {
	cfg := Default()
	cfg.ContentDir = filepath.Join(t.TempDir(), "nope")
	assert.ErrorContains(t, cfg.Validate(), "content_dir")
}

func TestLogging_BuildTo(t *testing.T) {
	var buf bytes.Buffer
	log, err := Logging{Level: "warn", Format: "json"}.BuildTo(&buf)
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("shown")
	require.NoError(t, log.Sync())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "warn", entry["level"])
}

func TestLogging_Invalid(t *testing.T) {
	_, err := Logging{Level: "loud", Format: "json"}.Build()
	assert.Error(t, err)
}
