package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// BootstrapFileName is the file LoadBootstrapConfig reads from the config dir.
const BootstrapFileName = "controller_config.yaml"

// BootstrapConfig holds the process-level settings loaded at startup.
type BootstrapConfig struct {
	Logging  LoggingConfig   `yaml:"logging"`
	Server   ServerConfig    `yaml:"server"`
	Device   DeviceConfig    `yaml:"device"`
	Dispatch DispatchConfig  `yaml:"dispatch"`
	ZeroMQ   ZeroMQBootstrap `yaml:"zeromq"`
	Data     DataConfig      `yaml:"data"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogPath string `yaml:"log_path,omitempty"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	HTTPPort          int    `yaml:"http_port"`
	StaticDir         string `yaml:"static_dir,omitempty"`
	ShutdownTimeoutMs int    `yaml:"shutdown_timeout_ms"`
}

// DeviceConfig holds settings for the outbound forklift calls.
type DeviceConfig struct {
	// RequestTimeoutMs bounds how long a dispatch worker waits on the
	// device. Commands are never retried.
	RequestTimeoutMs int `yaml:"request_timeout_ms"`
	// Port overrides the scheme's default port. Endpoints never carry one.
	Port int `yaml:"port,omitempty"`
}

// DispatchConfig sizes the command lanes and session loops.
type DispatchConfig struct {
	QueueSize        int `yaml:"queue_size"`
	SessionQueueSize int `yaml:"session_queue_size"`
}

// ZeroMQBootstrap holds the control event bus settings.
type ZeroMQBootstrap struct {
	Enabled            bool   `yaml:"enabled"`
	RequestBindAddress string `yaml:"request_bind_address"`
	PublishBindAddress string `yaml:"publish_bind_address"`
}

// DataConfig holds data directory settings.
type DataConfig struct {
	Directory       string `yaml:"directory"`
	ProfileFilename string `yaml:"profile_file"`
}

// ProfilePath returns the absolute location of the control profile.
func (d DataConfig) ProfilePath() string {
	return filepath.Join(d.Directory, d.ProfileFilename)
}

// RequestTimeout converts the device timeout to a duration.
func (d DeviceConfig) RequestTimeout() time.Duration {
	return time.Duration(d.RequestTimeoutMs) * time.Millisecond
}

// ShutdownTimeout converts the shutdown grace period to a duration.
func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutMs) * time.Millisecond
}

func defaultBootstrap() BootstrapConfig {
	return BootstrapConfig{
		Logging:  LoggingConfig{Level: "info"},
		Server:   ServerConfig{HTTPPort: 8080, ShutdownTimeoutMs: 5000},
		Device:   DeviceConfig{RequestTimeoutMs: 2000},
		Dispatch: DispatchConfig{QueueSize: 64, SessionQueueSize: 64},
	}
}

// LoadBootstrapConfig loads configDir/controller_config.yaml. Unset fields
// keep their defaults.
func LoadBootstrapConfig(configDir string) (*BootstrapConfig, error) {
	bootstrapConfigPath := filepath.Join(configDir, BootstrapFileName)

	data, err := os.ReadFile(bootstrapConfigPath)
	if err != nil {
		return nil, fmt.Errorf("error reading bootstrap config file '%s': %w", bootstrapConfigPath, err)
	}

	bootstrapCfg := defaultBootstrap()
	if err := yaml.Unmarshal(data, &bootstrapCfg); err != nil {
		return nil, fmt.Errorf("error parsing bootstrap config file '%s': %w", bootstrapConfigPath, err)
	}

	if bootstrapCfg.Data.Directory == "" {
		return nil, fmt.Errorf("missing required field in bootstrap config: data.directory")
	}
	if bootstrapCfg.Data.ProfileFilename == "" {
		return nil, fmt.Errorf("missing required field in bootstrap config: data.profile_file")
	}
	if bootstrapCfg.ZeroMQ.Enabled {
		if bootstrapCfg.ZeroMQ.RequestBindAddress == "" {
			return nil, fmt.Errorf("missing required field in bootstrap config: zeromq.request_bind_address")
		}
		if bootstrapCfg.ZeroMQ.PublishBindAddress == "" {
			return nil, fmt.Errorf("missing required field in bootstrap config: zeromq.publish_bind_address")
		}
	}
	if bootstrapCfg.Server.HTTPPort <= 0 || bootstrapCfg.Server.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid server.http_port %d", bootstrapCfg.Server.HTTPPort)
	}
	if bootstrapCfg.Device.Port < 0 || bootstrapCfg.Device.Port > 65535 {
		return nil, fmt.Errorf("invalid device.port %d", bootstrapCfg.Device.Port)
	}
	if bootstrapCfg.Dispatch.QueueSize <= 0 || bootstrapCfg.Dispatch.SessionQueueSize <= 0 {
		return nil, fmt.Errorf("dispatch queue sizes must be positive")
	}

	return &bootstrapCfg, nil
}
