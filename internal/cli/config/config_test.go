package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.DefaultServer != "127.0.0.1:6379" {
		t.Errorf("DefaultServer = %q", cfg.DefaultServer)
	}
	if cfg.DefaultOutput != "text" {
		t.Errorf("DefaultOutput = %q", cfg.DefaultOutput)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
	if cfg.Profiles == nil {
		t.Error("Profiles should not be nil")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()
	if !strings.HasSuffix(path, filepath.Join(".respkv", "cli.yaml")) {
		t.Errorf("DefaultConfigPath() = %q", path)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DefaultServer != Default().DefaultServer {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.yaml")
	content := `
default_output: json
timeout: 2s
profiles:
  prod:
    server: db.internal:6380
    tls: true
    ca_file: /etc/respkv/ca.pem
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DefaultOutput != "json" || cfg.Timeout != 2*time.Second {
		t.Errorf("Load() = %+v", cfg)
	}
	if cfg.DefaultServer != "127.0.0.1:6379" {
		t.Errorf("DefaultServer = %q, want default kept", cfg.DefaultServer)
	}
	p := cfg.Profiles["prod"]
	if p.Server != "db.internal:6380" || !p.TLS || p.CAFile != "/etc/respkv/ca.pem" {
		t.Errorf("profile = %+v", p)
	}
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.yaml")
	if err := os.WriteFile(path, []byte("timeout: [oops"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() expected parse error")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cli.yaml")

	cfg := Default()
	cfg.CurrentProfile = "local"
	cfg.Profiles["local"] = Profile{Server: "127.0.0.1:7000"}
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("mode = %v, want 0600", perm)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.CurrentProfile != "local" || got.Profiles["local"].Server != "127.0.0.1:7000" {
		t.Errorf("round trip = %+v", got)
	}
}

func TestProfile(t *testing.T) {
	cfg := Default()
	cfg.Profiles["a"] = Profile{Server: "a:1"}
	cfg.Profiles["b"] = Profile{Server: "b:2"}

	tests := []struct {
		name    string
		current string
		lookup  string
		want    string
		wantErr error
	}{
		{"default server", "", "", "127.0.0.1:6379", nil},
		{"current profile", "b", "", "b:2", nil},
		{"explicit wins", "b", "a", "a:1", nil},
		{"unknown", "", "c", "", ErrUnknownProfile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg.CurrentProfile = tt.current
			p, err := cfg.Profile(tt.lookup)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Profile() error = %v, want %v", err, tt.wantErr)
			}
			if p.Server != tt.want {
				t.Errorf("Server = %q, want %q", p.Server, tt.want)
			}
		})
	}
}
