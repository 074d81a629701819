package config

import "time"

// ServerConfig is the root configuration for respkv-server.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server"`
	Storage  StorageSection  `koanf:"storage"`
	Security SecuritySection `koanf:"security"`
	Log      LogSection      `koanf:"log"`
	Shutdown ShutdownSection `koanf:"shutdown"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP  HTTPConfig  `koanf:"http"`
	Redis RedisConfig `koanf:"redis"`
	Local LocalConfig `koanf:"local"`
}

// HTTPConfig configures the admin HTTP server (metrics and health).
type HTTPConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
	// AllowList restricts /metrics to these IPs or CIDRs. Empty allows all.
	AllowList []string `koanf:"allow_list"`
}

// RedisConfig configures the RESP server.
type RedisConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Addr       string `koanf:"addr"`
	TLSEnabled bool   `koanf:"tls_enabled"`
	TLSAddr    string `koanf:"tls_addr"`

	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`

	// RateLimit is commands per second per client IP. 0 disables limiting.
	RateLimit int `koanf:"rate_limit"`
	RateBurst int `koanf:"rate_burst"`
}

// LocalConfig configures the RESP listener on a Unix domain socket.
type LocalConfig struct {
	Enabled bool   `koanf:"enabled"`
	Socket  string `koanf:"socket"`
}

// StorageSection configures the in-memory store.
type StorageSection struct {
	ChannelCapacity int           `koanf:"channel_capacity"`
	SweepInterval   time.Duration `koanf:"sweep_interval"`
}

// SecuritySection configures TLS material for the RESP TLS port.
type SecuritySection struct {
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`
	// TLSCAFile enables client certificate verification when set.
	TLSCAFile string `koanf:"tls_ca_file"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`

	// File switches output from stderr to a rotating file.
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
	Compress   bool   `koanf:"compress"`
}

// ShutdownSection configures graceful shutdown.
type ShutdownSection struct {
	Timeout time.Duration `koanf:"timeout"`
}
