package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/computerscienceiscool/nodekit/pkg/config"
)

// TestBuildConfig_Defaults tests buildConfig with default values
func TestBuildConfig_Defaults(t *testing.T) {
	cfg, err := buildConfig(newViper())
	require.NoError(t, err)

	assert.Equal(t, config.DefaultLshwPath, cfg.Hardware.LshwPath)
	assert.Equal(t, config.DefaultERUCLIPath, cfg.ERU.CLIPath)
	assert.Equal(t, 72, cfg.ERU.CPU)
	assert.Equal(t, "62G", cfg.ERU.Memory)
	assert.Equal(t, "62G", cfg.ERU.Storage)
	assert.Equal(t, 2*time.Second, cfg.Guest.PollInterval)
	assert.Equal(t, 180, cfg.Guest.MaxAttempts)
	assert.Equal(t, config.DefaultToolTimeout, cfg.Runner.Timeout)
	assert.Equal(t, config.DefaultNATSSubject, cfg.NATS.Subject)
	assert.Empty(t, cfg.Audit.DBPath)
	assert.NoError(t, cfg.Validate())
}

// TestBuildConfig_InvalidDurations tests unparsable duration values
func TestBuildConfig_InvalidDurations(t *testing.T) {
	for _, key := range []string{"guest.poll_interval", "runner.timeout", "nats.timeout"} {
		t.Run(key, func(t *testing.T) {
			v := newViper()
			v.Set(key, "invalid")

			_, err := buildConfig(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

// TestBuildConfig_CustomValues tests buildConfig with overridden values
func TestBuildConfig_CustomValues(t *testing.T) {
	v := newViper()
	v.Set("eru.hostname", "gpu-node-01")
	v.Set("eru.cpu", 96)
	v.Set("guest.poll_interval", "500ms")
	v.Set("guest.max_attempts", 10)
	v.Set("guest.connect_uri", "qemu:///system")

	cfg, err := buildConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "gpu-node-01", cfg.ERU.Hostname)
	assert.Equal(t, 96, cfg.ERU.CPU)
	assert.Equal(t, 500*time.Millisecond, cfg.Guest.PollInterval)
	assert.Equal(t, 10, cfg.Guest.MaxAttempts)
	assert.Equal(t, "qemu:///system", cfg.Guest.ConnectURI)
}

// TestBuildConfig_FromEnv tests NODEKIT_ environment overrides
func TestBuildConfig_FromEnv(t *testing.T) {
	t.Setenv("NODEKIT_ERU_HOSTNAME", "env-host")
	t.Setenv("NODEKIT_GUEST_MAX_ATTEMPTS", "5")

	cfg, err := buildConfig(newViper())
	require.NoError(t, err)
	assert.Equal(t, "env-host", cfg.ERU.Hostname)
	assert.Equal(t, 5, cfg.Guest.MaxAttempts)
}

// TestReadConfig_File tests loading an explicit YAML config file
func TestReadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodekit.config.yaml")
	content := `
eru:
  hostname: file-host
  memory: 128G
guest:
  poll_interval: 1s
logging:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	v := newViper()
	require.NoError(t, readConfig(v, path))

	cfg, err := buildConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "file-host", cfg.ERU.Hostname)
	assert.Equal(t, "128G", cfg.ERU.Memory)
	assert.Equal(t, "62G", cfg.ERU.Storage)
	assert.Equal(t, time.Second, cfg.Guest.PollInterval)
	assert.Equal(t, "json", cfg.Logging.Format)
}

// TestReadConfig_Missing tests explicit and implicit missing config files
func TestReadConfig_Missing(t *testing.T) {
	assert.Error(t, readConfig(newViper(), filepath.Join(t.TempDir(), "absent.yaml")))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", t.TempDir())
	assert.NoError(t, readConfig(newViper(), ""))
}
