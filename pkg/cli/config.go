package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/computerscienceiscool/nodekit/pkg/config"
)

// newViper returns a viper instance with defaults, config file lookup and
// NODEKIT_ environment overrides (NODEKIT_ERU_HOSTNAME sets eru.hostname)
func newViper() *viper.Viper {
	v := viper.New()
	config.SetDefaults(v)

	v.SetConfigName(config.ConfigName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME")
	v.AddConfigPath("/etc/nodekit")

	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// readConfig loads path, or searches the default locations when path is
// empty. A missing default config file is not an error.
func readConfig(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// bindFlags maps flag names to config keys
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if f := flags.Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}

// buildConfig constructs a config.Config from viper values
func buildConfig(v *viper.Viper) (*config.Config, error) {
	cfg := &config.Config{
		Hardware: config.HardwareConfig{
			LshwPath: v.GetString("hardware.lshw_path"),
			GPUClass: v.GetString("hardware.gpu_class"),
			CPUClass: v.GetString("hardware.cpu_class"),
		},
		ERU: config.ERUConfig{
			CLIPath:        v.GetString("eru.cli_path"),
			Hostname:       v.GetString("eru.hostname"),
			CPU:            v.GetInt("eru.cpu"),
			Memory:         v.GetString("eru.memory"),
			Storage:        v.GetString("eru.storage"),
			Container:      v.GetString("eru.container"),
			DetectCapacity: v.GetBool("eru.detect_capacity"),
			DryRun:         v.GetBool("eru.dry_run"),
		},
		Guest: config.GuestConfig{
			VirshPath:    v.GetString("guest.virsh_path"),
			ConnectURI:   v.GetString("guest.connect_uri"),
			AgentTimeout: v.GetInt("guest.agent_timeout"),
			MaxAttempts:  v.GetInt("guest.max_attempts"),
			Container:    v.GetString("guest.container"),
		},
		Audit: config.AuditConfig{
			DBPath: v.GetString("audit.db_path"),
		},
		NATS: config.NATSConfig{
			URL:     v.GetString("nats.url"),
			Subject: v.GetString("nats.subject"),
		},
		Logging: config.LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
			File:   v.GetString("logging.file"),
		},
	}

	// Parse durations
	var err error
	if cfg.Guest.PollInterval, err = parseDuration(v, "guest.poll_interval"); err != nil {
		return nil, err
	}
	if cfg.Runner.Timeout, err = parseDuration(v, "runner.timeout"); err != nil {
		return nil, err
	}
	if cfg.NATS.Timeout, err = parseDuration(v, "nats.timeout"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
