package config

import "time"

// CLIConfig is the configuration for respkv-cli.
type CLIConfig struct {
	DefaultServer string        `yaml:"default_server"`
	DefaultOutput string        `yaml:"default_output"` // text, json, yaml
	Timeout       time.Duration `yaml:"timeout"`
	HistoryFile   string        `yaml:"history_file"`

	// Profiles are saved connections, selected with --profile or
	// CurrentProfile.
	Profiles       map[string]Profile `yaml:"profiles"`
	CurrentProfile string             `yaml:"current_profile,omitempty"`
}

// Profile is a saved connection.
type Profile struct {
	Server string `yaml:"server"`
	TLS    bool   `yaml:"tls,omitempty"`

	CAFile     string `yaml:"ca_file,omitempty"`
	CertFile   string `yaml:"cert_file,omitempty"`
	KeyFile    string `yaml:"key_file,omitempty"`
	ServerName string `yaml:"server_name,omitempty"`
	Insecure   bool   `yaml:"insecure,omitempty"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		DefaultServer: "127.0.0.1:6379",
		DefaultOutput: "text",
		Timeout:       5 * time.Second,
		HistoryFile:   "~/.respkv/history",
		Profiles:      make(map[string]Profile),
	}
}
