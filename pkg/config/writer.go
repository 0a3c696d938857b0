package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileConfig mirrors the YAML layout read by viper
type FileConfig struct {
	Hardware struct {
		LshwPath string `yaml:"lshw_path"`
		GPUClass string `yaml:"gpu_class"`
		CPUClass string `yaml:"cpu_class"`
	} `yaml:"hardware"`
	ERU struct {
		CLIPath        string `yaml:"cli_path"`
		Hostname       string `yaml:"hostname"`
		CPU            int    `yaml:"cpu"`
		Memory         string `yaml:"memory"`
		Storage        string `yaml:"storage"`
		Container      string `yaml:"container"`
		DetectCapacity bool   `yaml:"detect_capacity"`
		DryRun         bool   `yaml:"dry_run"`
	} `yaml:"eru"`
	Guest struct {
		VirshPath    string `yaml:"virsh_path"`
		ConnectURI   string `yaml:"connect_uri"`
		AgentTimeout int    `yaml:"agent_timeout"`
		PollInterval string `yaml:"poll_interval"`
		MaxAttempts  int    `yaml:"max_attempts"`
		Container    string `yaml:"container"`
	} `yaml:"guest"`
	Runner struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"runner"`
	Audit struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"audit"`
	NATS struct {
		URL     string `yaml:"url"`
		Subject string `yaml:"subject"`
		Timeout string `yaml:"timeout"`
	} `yaml:"nats"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		File   string `yaml:"file"`
	} `yaml:"logging"`
}

// DefaultFileConfig returns a FileConfig holding every default value
func DefaultFileConfig() *FileConfig {
	fc := &FileConfig{}
	fc.Hardware.LshwPath = DefaultLshwPath
	fc.Hardware.GPUClass = DefaultGPUClass
	fc.Hardware.CPUClass = DefaultCPUClass
	fc.ERU.CLIPath = DefaultERUCLIPath
	fc.ERU.CPU = DefaultNodeCPU
	fc.ERU.Memory = DefaultNodeMemory
	fc.ERU.Storage = DefaultNodeStorage
	fc.Guest.VirshPath = DefaultVirshPath
	fc.Guest.PollInterval = DefaultPollInterval.String()
	fc.Guest.MaxAttempts = DefaultMaxAttempts
	fc.Runner.Timeout = DefaultToolTimeout.String()
	fc.NATS.Subject = DefaultNATSSubject
	fc.NATS.Timeout = DefaultNATSTimeout.String()
	fc.Logging.Level = DefaultLogLevel
	fc.Logging.Format = DefaultLogFormat
	return fc
}

// SaveConfig writes fc as YAML to configPath. An existing file is only
// replaced when overwrite is set.
func SaveConfig(fc *FileConfig, configPath string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file %s already exists", configPath)
		}
	}

	data, err := yaml.Marshal(fc)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}
