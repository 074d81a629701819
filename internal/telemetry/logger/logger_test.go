package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_Format(t *testing.T) {
	tests := []struct {
		format string
		json   bool
	}{
		{"", true},
		{"json", true},
		{"text", false},
		{"CONSOLE", false},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			New(Config{Level: "info", Format: tt.format, Output: &buf}).Info("listening")
			if got := json.Valid(buf.Bytes()); got != tt.json {
				t.Errorf("json output = %v, want %v: %s", got, tt.json, buf.String())
			}
		})
	}
}

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "debug", Format: "json", Output: &buf})

	tests := []struct {
		level   string
		logFunc func(string, ...any)
	}{
		{"DEBUG", l.Debug},
		{"INFO", l.Info},
		{"WARN", l.Warn},
		{"ERROR", l.Error},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf.Reset()
			tt.logFunc("accepted connection", "remote", "127.0.0.1:5000")

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("Failed to parse JSON log: %v", err)
			}
			if entry["level"] != tt.level {
				t.Errorf("level = %v, want %s", entry["level"], tt.level)
			}
			if entry["msg"] != "accepted connection" {
				t.Errorf("msg = %v", entry["msg"])
			}
			if entry["remote"] != "127.0.0.1:5000" {
				t.Errorf("remote = %v", entry["remote"])
			}
		})
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", Format: "json", Output: &buf})

	l.With("component", "redisserver").Info("listening")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}
	if entry["component"] != "redisserver" {
		t.Errorf("component = %v, want redisserver", entry["component"])
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "error", Format: "json", Output: &buf})

	l.Info("filtered")
	if buf.Len() > 0 {
		t.Error("Info should be filtered at error level")
	}

	SetLevel("debug")
	l.Info("visible")
	if buf.Len() == 0 {
		t.Error("Info should be logged after level changed to debug")
	}
	if level := GetLevel(); level != "debug" {
		t.Errorf("GetLevel() = %q, want %q", level, "debug")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"debug", "debug"},
		{"DEBUG", "debug"},
		{"info", "info"},
		{"warning", "warn"},
		{"error", "error"},
		{"invalid", "info"},
		{"", "info"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			SetLevel(tt.input)
			if got := GetLevel(); got != tt.want {
				t.Errorf("SetLevel(%q); GetLevel() = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSetDefault(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	l := New(Config{Level: "debug", Format: "json", Output: &buf})
	SetDefault(l)

	Default().Debug("through Default")
	if !strings.Contains(buf.String(), "through Default") {
		t.Error("Default() should return the logger passed to SetDefault")
	}

	buf.Reset()
	slog.Info("through slog")
	if !strings.Contains(buf.String(), "through slog") {
		t.Error("SetDefault should also replace slog's default logger")
	}
}

func TestLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", Format: "text", Output: &buf})

	l.Info("listening", "addr", "127.0.0.1:6379")

	output := buf.String()
	if !strings.Contains(output, "listening") || !strings.Contains(output, "addr=127.0.0.1:6379") {
		t.Errorf("unexpected text output: %s", output)
	}
}

func TestFromSlog(t *testing.T) {
	var buf bytes.Buffer
	l := FromSlog(slog.New(slog.NewTextHandler(&buf, nil)))

	l.With("conn_id", "abc").Info("accepted")

	if !strings.Contains(buf.String(), "conn_id=abc") {
		t.Errorf("unexpected output: %s", buf.String())
	}
	if FromSlog(nil).Slog() == nil {
		t.Error("FromSlog(nil) should fall back to slog.Default()")
	}
}

func TestNewFileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "respkv.log")
	w := NewFileWriter(FileConfig{Path: path, MaxSizeMB: 1, MaxBackups: 1})

	l := New(Config{Level: "info", Format: "json", Output: w})
	l.Info("written to file")
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("log file content = %q", data)
	}
}
