package config

import "time"

// Default values and limits for the node tools
const (
	// Hardware discovery
	DefaultLshwPath = "lshw"
	DefaultGPUClass = "display"
	DefaultCPUClass = "processor"

	// Cluster registration
	DefaultERUCLIPath  = "/usr/local/bin/eru-cli"
	DefaultNodeCPU     = 72
	DefaultNodeMemory  = "62G"
	DefaultNodeStorage = "62G"

	// Guest agent polling
	DefaultVirshPath    = "virsh"
	DefaultPollInterval = 2 * time.Second // delay between guest-exec-status polls
	DefaultMaxAttempts  = 180             // guest-exec-status polls before giving up

	// External tool execution
	DefaultToolTimeout = 60 * time.Second // per-invocation cap for lshw, eru-cli and virsh

	// Inventory fan-out
	DefaultNATSSubject = "nodekit.hardware.gpus"
	DefaultNATSTimeout = 5 * time.Second

	// Logging
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"

	// Config file lookup
	ConfigName = "nodekit.config"
	EnvPrefix  = "NODEKIT"
)
