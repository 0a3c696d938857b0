package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds the resolved configuration for both utilities
type Config struct {
	Hardware HardwareConfig
	ERU      ERUConfig
	Guest    GuestConfig
	Runner   RunnerConfig
	Audit    AuditConfig
	NATS     NATSConfig
	Logging  LoggingConfig
}

// HardwareConfig controls lshw invocation
type HardwareConfig struct {
	LshwPath string
	GPUClass string
	CPUClass string
}

// ERUConfig controls node resource registration
type ERUConfig struct {
	CLIPath        string
	Hostname       string
	CPU            int
	Memory         string
	Storage        string
	Container      string // run eru-cli via docker exec in this container
	DetectCapacity bool
	DryRun         bool
}

// GuestConfig controls the guest agent dispatcher
type GuestConfig struct {
	VirshPath    string
	ConnectURI   string
	AgentTimeout int // seconds passed to virsh --timeout, 0 leaves the virsh default
	PollInterval time.Duration
	MaxAttempts  int
	Container    string // run virsh via docker exec in this container
}

// RunnerConfig controls external tool execution
type RunnerConfig struct {
	Timeout time.Duration
}

// AuditConfig controls the invocation store
type AuditConfig struct {
	DBPath string // empty disables auditing
}

// NATSConfig controls inventory publishing
type NATSConfig struct {
	URL     string // empty disables publishing
	Subject string
	Timeout time.Duration
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	Level  string
	Format string
	File   string // empty logs to stderr
}

// Validate checks values that would otherwise fail deep inside a run
func (c *Config) Validate() error {
	if c.Guest.PollInterval < 0 {
		return fmt.Errorf("guest.poll_interval must not be negative, got %v", c.Guest.PollInterval)
	}
	if c.Guest.MaxAttempts <= 0 {
		return fmt.Errorf("guest.max_attempts must be positive, got %d", c.Guest.MaxAttempts)
	}
	if c.Guest.AgentTimeout < 0 {
		return fmt.Errorf("guest.agent_timeout must not be negative, got %d", c.Guest.AgentTimeout)
	}
	if c.ERU.CPU <= 0 {
		return fmt.Errorf("eru.cpu must be positive, got %d", c.ERU.CPU)
	}
	if strings.TrimSpace(c.ERU.Memory) == "" || strings.TrimSpace(c.ERU.Storage) == "" {
		return fmt.Errorf("eru.memory and eru.storage cannot be empty")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
