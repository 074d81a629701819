package config

import "time"

// Default configuration values.
const (
	DefaultHTTPAddr     = "127.0.0.1:9121"
	DefaultRedisAddr    = "127.0.0.1:6379"
	DefaultRedisTLSAddr = "127.0.0.1:6380"
	DefaultLocalSocket  = "~/.respkv/respkv.sock"

	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultIdleTimeout  = 5 * time.Minute

	DefaultChannelCapacity = 1024
	DefaultSweepInterval   = time.Second

	DefaultLogLevel      = "info"
	DefaultLogFormat     = "json"
	DefaultLogMaxSizeMB  = 100
	DefaultLogMaxBackups = 5
	DefaultLogMaxAgeDays = 28

	DefaultShutdownTimeout = 30 * time.Second
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Enabled: true,
				Addr:    DefaultHTTPAddr,
			},
			Redis: RedisConfig{
				Enabled:      true,
				Addr:         DefaultRedisAddr,
				TLSEnabled:   false,
				TLSAddr:      DefaultRedisTLSAddr,
				ReadTimeout:  DefaultReadTimeout,
				WriteTimeout: DefaultWriteTimeout,
				IdleTimeout:  DefaultIdleTimeout,
			},
			Local: LocalConfig{
				Socket: DefaultLocalSocket,
			},
		},
		Storage: StorageSection{
			ChannelCapacity: DefaultChannelCapacity,
			SweepInterval:   DefaultSweepInterval,
		},
		Log: LogSection{
			Level:      DefaultLogLevel,
			Format:     DefaultLogFormat,
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
			MaxAgeDays: DefaultLogMaxAgeDays,
		},
		Shutdown: ShutdownSection{
			Timeout: DefaultShutdownTimeout,
		},
	}
}
