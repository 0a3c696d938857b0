package config

import "github.com/spf13/viper"

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	// Hardware defaults
	v.SetDefault("hardware.lshw_path", DefaultLshwPath)
	v.SetDefault("hardware.gpu_class", DefaultGPUClass)
	v.SetDefault("hardware.cpu_class", DefaultCPUClass)

	// Registration defaults
	v.SetDefault("eru.cli_path", DefaultERUCLIPath)
	v.SetDefault("eru.hostname", "")
	v.SetDefault("eru.cpu", DefaultNodeCPU)
	v.SetDefault("eru.memory", DefaultNodeMemory)
	v.SetDefault("eru.storage", DefaultNodeStorage)
	v.SetDefault("eru.container", "")
	v.SetDefault("eru.detect_capacity", false)
	v.SetDefault("eru.dry_run", false)

	// Guest agent defaults
	v.SetDefault("guest.virsh_path", DefaultVirshPath)
	v.SetDefault("guest.connect_uri", "")
	v.SetDefault("guest.agent_timeout", 0)
	v.SetDefault("guest.poll_interval", DefaultPollInterval.String())
	v.SetDefault("guest.max_attempts", DefaultMaxAttempts)
	v.SetDefault("guest.container", "")

	// Runner defaults
	v.SetDefault("runner.timeout", DefaultToolTimeout.String())

	// Audit defaults
	v.SetDefault("audit.db_path", "")

	// NATS defaults
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", DefaultNATSSubject)
	v.SetDefault("nats.timeout", DefaultNATSTimeout.String())

	// Logging defaults
	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)
	v.SetDefault("logging.file", "")
}
