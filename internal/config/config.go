// Package config provides the configuration schema and loader for the
// cadenza scheduler host.
package config

import (
	"time"

	"github.com/MrWong99/cadenza/pkg/audio"
)

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server ServerConfig `yaml:"server"`
	Audio  AudioConfig  `yaml:"audio"`
	Alert  AlertConfig  `yaml:"alert"`
}

// LogLevel controls logging verbosity.
type LogLevel string

// Valid log levels.
const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is one of the known levels.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// ServerConfig holds logging and telemetry settings.
type ServerConfig struct {
	// LogLevel controls verbosity. Valid values: "debug", "info", "warn", "error".
	LogLevel LogLevel `yaml:"log_level"`

	// ListenAddr is the TCP address the /metrics endpoint listens on
	// (e.g., ":9090"). Empty disables the endpoint.
	ListenAddr string `yaml:"listen_addr"`
}

// AudioConfig holds the call audio settings.
type AudioConfig struct {
	// Path is the directory holding prompt and DTMF tone files.
	// Relative filenames in commands are resolved against it.
	Path string `yaml:"path"`

	// SampleRate is the capture sample rate in Hz. Default 16000.
	SampleRate int `yaml:"sample_rate"`

	// Channels is the capture channel count. Default 1.
	Channels int `yaml:"channels"`

	// PtimeMS is the capture packetisation interval in milliseconds.
	// Default 20.
	PtimeMS int `yaml:"ptime_ms"`
}

// AlertConfig selects the host playback device.
type AlertConfig struct {
	// Module is the host audio module name (e.g., "alsa").
	Module string `yaml:"module"`

	// Device is the device name within the module (e.g., "default").
	Device string `yaml:"device"`
}

// StreamParams returns the capture format as [audio.StreamParams].
func (a AudioConfig) StreamParams() audio.StreamParams {
	return audio.StreamParams{
		SampleRate: a.SampleRate,
		Channels:   a.Channels,
		Ptime:      time.Duration(a.PtimeMS) * time.Millisecond,
	}
}
