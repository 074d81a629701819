package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	return errors.Join(
		verifyServer(&cfg.Server),
		verifySecurity(&cfg.Server.Redis, &cfg.Security),
		verifyStorage(&cfg.Storage),
		verifyLog(&cfg.Log),
		verifyShutdown(&cfg.Shutdown),
	)
}

func verifyServer(cfg *ServerSection) error {
	var errs []error
	seen := make(map[string]string)
	check := func(name, addr string) {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid address %q: %w", name, addr, err))
			return
		}
		if other, ok := seen[addr]; ok && !strings.HasSuffix(addr, ":0") {
			errs = append(errs, fmt.Errorf("%s: address %s already used by %s", name, addr, other))
			return
		}
		seen[addr] = name
	}

	if cfg.Redis.Enabled {
		check("server.redis.addr", cfg.Redis.Addr)
	}
	if cfg.Redis.TLSEnabled {
		check("server.redis.tls_addr", cfg.Redis.TLSAddr)
	}
	if cfg.HTTP.Enabled {
		check("server.http.addr", cfg.HTTP.Addr)
	}
	for _, entry := range cfg.HTTP.AllowList {
		if !validAllowEntry(entry) {
			errs = append(errs, fmt.Errorf("server.http.allow_list: %q is neither an IP nor a CIDR", entry))
		}
	}
	if cfg.Local.Enabled && cfg.Local.Socket == "" {
		errs = append(errs, errors.New("server.local.socket is required when server.local.enabled is set"))
	}
	if !cfg.Redis.Enabled && !cfg.Redis.TLSEnabled && !cfg.Local.Enabled {
		errs = append(errs, errors.New("server: at least one of redis.enabled, redis.tls_enabled or local.enabled must be set"))
	}

	if cfg.Redis.ReadTimeout < 0 || cfg.Redis.WriteTimeout < 0 || cfg.Redis.IdleTimeout < 0 {
		errs = append(errs, errors.New("server.redis: timeouts must not be negative"))
	}
	if cfg.Redis.RateLimit < 0 || cfg.Redis.RateBurst < 0 {
		errs = append(errs, errors.New("server.redis: rate_limit and rate_burst must not be negative"))
	}
	return errors.Join(errs...)
}

func verifySecurity(redis *RedisConfig, cfg *SecuritySection) error {
	if !redis.TLSEnabled {
		return nil
	}
	if cfg.TLSCertFile == "" || cfg.TLSKeyFile == "" {
		return errors.New("security: tls_cert_file and tls_key_file are required when server.redis.tls_enabled is set")
	}
	var errs []error
	for _, f := range []string{cfg.TLSCertFile, cfg.TLSKeyFile, cfg.TLSCAFile} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			errs = append(errs, fmt.Errorf("security: %w", err))
		}
	}
	return errors.Join(errs...)
}

func verifyStorage(cfg *StorageSection) error {
	if cfg.ChannelCapacity < 1 {
		return errors.New("storage.channel_capacity must be at least 1")
	}
	if cfg.SweepInterval <= 0 {
		return errors.New("storage.sweep_interval must be positive")
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", cfg.Level)
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text", "console":
	default:
		return fmt.Errorf("log.format: unknown format %q", cfg.Format)
	}
	if cfg.File != "" && cfg.MaxSizeMB < 0 {
		return errors.New("log.max_size_mb must not be negative")
	}
	return nil
}

func verifyShutdown(cfg *ShutdownSection) error {
	if cfg.Timeout <= 0 {
		return errors.New("shutdown.timeout must be positive")
	}
	return nil
}

func validAllowEntry(entry string) bool {
	if strings.Contains(entry, "/") {
		_, _, err := net.ParseCIDR(entry)
		return err == nil
	}
	return net.ParseIP(entry) != nil
}
