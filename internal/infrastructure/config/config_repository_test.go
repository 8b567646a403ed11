package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowlab/studioport/internal/domain/model"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	repo := NewConfigRepository()

	config, err := repo.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "relay.glowlab.dev", config.ServerAddress)
	assert.Equal(t, 443, config.ControlPort)
	assert.True(t, config.TLSEnabled)
	assert.Equal(t, "127.0.0.1", config.LocalHost)
	assert.Equal(t, 8501, config.LocalPort)
	assert.Equal(t, model.PublishAuthToken, config.PublishAuth)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	repo := NewConfigRepository()
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	config := model.NewConfig()
	config.Domain = "wahoo-unified-oyster.example"
	config.LocalPort = 3000
	config.ServiceCommand = "streamlit run app.py"
	config.ReadyTimeout = 45 * time.Second
	config.PublishAuth = model.PublishAuthApp
	config.AppID = 7
	config.InstallationID = 42
	config.LogLevel = model.LogLevelDebug

	require.NoError(t, repo.Save(config, path))

	loaded, err := repo.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "wahoo-unified-oyster.example", loaded.Domain)
	assert.Equal(t, 3000, loaded.LocalPort)
	assert.Equal(t, "streamlit run app.py", loaded.ServiceCommand)
	assert.Equal(t, 45*time.Second, loaded.ReadyTimeout)
	assert.Equal(t, model.PublishAuthApp, loaded.PublishAuth)
	assert.Equal(t, int64(7), loaded.AppID)
	assert.Equal(t, int64(42), loaded.InstallationID)
	assert.Equal(t, model.LogLevelDebug, loaded.LogLevel)
	// Untouched settings keep their defaults through the round trip.
	assert.Equal(t, "relay.glowlab.dev", loaded.ServerAddress)
	assert.Equal(t, 443, loaded.ControlPort)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	partial := "domain: wahoo-unified-oyster.example\nlocal_port: 3000\n"
	require.NoError(t, os.WriteFile(path, []byte(partial), 0644))

	repo := NewConfigRepository()
	config, err := repo.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "wahoo-unified-oyster.example", config.Domain)
	assert.Equal(t, 3000, config.LocalPort)
	// Everything the file does not mention keeps its default.
	assert.Equal(t, "relay.glowlab.dev", config.ServerAddress)
	assert.Equal(t, 443, config.ControlPort)
	assert.True(t, config.TLSEnabled)
	assert.Equal(t, 30*time.Second, config.ReadyTimeout)
	assert.Equal(t, "content/posts", config.ContentDir)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml: ["), 0644))

	repo := NewConfigRepository()
	_, err := repo.Load(path)
	require.Error(t, err)
}

func TestConfigFileNeverHoldsCredentials(t *testing.T) {
	repo := NewConfigRepository()
	path := filepath.Join(t.TempDir(), "config.yaml")

	require.NoError(t, repo.Save(model.NewConfig(), path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "token")
	assert.NotContains(t, string(raw), "authtoken")
	assert.NotContains(t, string(raw), "secret")
}
