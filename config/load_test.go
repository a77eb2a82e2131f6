package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvironment(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		c, err := LoadEnvironment()
		require.NoError(t, err)
		assert.Equal(t, "defcheck.yml", c.ApplicationConfigFileYmlPath)
	})

	t.Run("override", func(t *testing.T) {
		t.Setenv("DEFCHECK_CONFIG_FILE_YML_PATH", "/etc/defcheck/app.yml")
		c, err := LoadEnvironment()
		require.NoError(t, err)
		assert.Equal(t, "/etc/defcheck/app.yml", c.ApplicationConfigFileYmlPath)
	})
}

func TestReadApplicationConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defcheck.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8080
prometheus:
  path: /metrics
git:
  uri: https://github.com/Ultimaker/Cura.git
  subdir: resources/definitions
  refreshRate: 60000
k8s:
  enabled: true
  namespace: printers
  configMap: definitions
lint:
  settingsFile: /etc/defcheck/settings.yml
  strict: true
`), 0o600))

	c, err := ReadApplicationConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "/metrics", c.Prometheus.Path)
	assert.Equal(t, "resources/definitions", c.Git.Subdir)
	assert.Equal(t, int64(60000), c.Git.RefreshRateMillis)
	assert.Equal(t, "printers", c.K8s.DefaultNamespace)
	assert.Equal(t, "definitions", c.K8s.ConfigMap)
	assert.Equal(t, "/etc/defcheck/settings.yml", c.Lint.SettingsFile)
	assert.True(t, c.Lint.Strict)
	assert.Equal(t, "info", c.Logging.Level)
	assert.Equal(t, "", c.File.Path)
}

func TestReadApplicationConfig_Missing(t *testing.T) {
	c, err := ReadApplicationConfig(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, 80, c.Server.Port)
	assert.Equal(t, ".", c.File.Path)
}

func TestReadApplicationConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defcheck.yml")
	require.NoError(t, os.WriteFile(path, []byte("server: [1"), 0o600))

	_, err := ReadApplicationConfig(path)
	assert.Error(t, err)
}
