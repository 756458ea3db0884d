package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

// launcherConfig mirrors the shape of the CLI options in main.go.
type launcherConfig struct {
	Config string `help:"Config file path"`

	ServerPython  string   `toml:"server.python" env:"SERVER_PYTHON"`
	ServerScript  string   `toml:"server.script" env:"SERVER_SCRIPT"`
	ServerArgs    []string `toml:"server.args" env:"SERVER_ARGS"`
	ServerTimeout string   `toml:"server.startup_timeout" env:"SERVER_STARTUP_TIMEOUT"`
	Headless      bool     `toml:"shell.headless" env:"HEADLESS"`
	WindowWidth   int      `toml:"shell.width" env:"WINDOW_WIDTH"`

	LoggingLevel  string `toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingServer string `toml:"logging.server" env:"LOGGING_SERVER"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

const sampleConfig = `
[server]
python = "/usr/bin/python3.12"
script = "b_transfer_server.py"
args = ["--port", "8081"]
startup_timeout = "15s"

[shell]
headless = true
width = 1400

[logging]
level = "debug"
server = "warn"
`

func TestLoadConfigFromTOML(t *testing.T) {
	cfg := &launcherConfig{Config: writeConfig(t, sampleConfig)}

	if err := LoadConfig(cfg, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.ServerPython != "/usr/bin/python3.12" {
		t.Errorf("ServerPython = %q", cfg.ServerPython)
	}
	if cfg.ServerScript != "b_transfer_server.py" {
		t.Errorf("ServerScript = %q", cfg.ServerScript)
	}
	if !reflect.DeepEqual(cfg.ServerArgs, []string{"--port", "8081"}) {
		t.Errorf("ServerArgs = %v", cfg.ServerArgs)
	}
	if cfg.ServerTimeout != "15s" {
		t.Errorf("ServerTimeout = %q", cfg.ServerTimeout)
	}
	if !cfg.Headless {
		t.Error("Headless should be true")
	}
	if cfg.WindowWidth != 1400 {
		t.Errorf("WindowWidth = %d", cfg.WindowWidth)
	}
	if cfg.LoggingLevel != "debug" || cfg.LoggingServer != "warn" {
		t.Errorf("logging = %q/%q", cfg.LoggingLevel, cfg.LoggingServer)
	}
}

func TestLoadConfigFromEnvVars(t *testing.T) {
	t.Setenv("BTRANSFER_SERVER_PYTHON", "python")
	t.Setenv("BTRANSFER_SERVER_ARGS", "a.py, --debug")
	t.Setenv("BTRANSFER_HEADLESS", "true")
	t.Setenv("BTRANSFER_WINDOW_WIDTH", "800")
	t.Setenv("SERVER_SCRIPT", "unprefixed.py")

	cfg := &launcherConfig{ServerScript: "b_transfer_server.py"}
	if err := LoadConfig(cfg, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.ServerPython != "python" {
		t.Errorf("ServerPython = %q", cfg.ServerPython)
	}
	if !reflect.DeepEqual(cfg.ServerArgs, []string{"a.py", "--debug"}) {
		t.Errorf("ServerArgs = %v", cfg.ServerArgs)
	}
	if !cfg.Headless || cfg.WindowWidth != 800 {
		t.Errorf("Headless/WindowWidth = %v/%d", cfg.Headless, cfg.WindowWidth)
	}
	if cfg.ServerScript != "b_transfer_server.py" {
		t.Errorf("unprefixed env var must be ignored, got %q", cfg.ServerScript)
	}
}

func TestLoadConfigPrecedence(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	t.Setenv("BTRANSFER_SERVER_PYTHON", "python3-from-env")
	t.Setenv("BTRANSFER_LOGGING_LEVEL", "error")

	cfg := &launcherConfig{Config: path}

	// LoggingLevel was given on the command line
	cmd := &cobra.Command{Use: "btransfer"}
	cmd.Flags().String("logging-level", "info", "")
	cmd.Flags().String("server-python", "", "")
	if err := cmd.Flags().Set("logging-level", "warn"); err != nil {
		t.Fatal(err)
	}
	cfg.LoggingLevel = "warn"

	if err := LoadConfig(cfg, cmd); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.LoggingLevel != "warn" {
		t.Errorf("CLI flag should win, got %q", cfg.LoggingLevel)
	}
	if cfg.ServerPython != "python3-from-env" {
		t.Errorf("env should override TOML, got %q", cfg.ServerPython)
	}
	if cfg.ServerScript != "b_transfer_server.py" {
		t.Errorf("TOML value expected, got %q", cfg.ServerScript)
	}
}

func TestExplicitFields(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	t.Setenv("BTRANSFER_SERVER_PYTHON", "python3-from-env")
	t.Setenv("BTRANSFER_LOGGING_SERVER", "")

	cmd := &cobra.Command{Use: "btransfer"}
	cmd.Flags().String("logging-level", "info", "")
	cmd.Flags().String("server-script", "", "")
	if err := cmd.Flags().Set("logging-level", "warn"); err != nil {
		t.Fatal(err)
	}

	cfg := &launcherConfig{Config: path, LoggingLevel: "warn"}
	if err := LoadConfig(cfg, cmd); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	got := ExplicitFields(cfg, cmd)
	want := map[string]bool{"LoggingLevel": true, "ServerPython": true}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExplicitFields() = %v, want %v", got, want)
	}

	// Values that only came from the file are not explicit.
	if cfg.LoggingServer == "" {
		t.Fatal("sample config should set logging.server")
	}
	if got["LoggingServer"] || got["ServerScript"] {
		t.Errorf("file values reported as explicit: %v", got)
	}

	if got := ExplicitFields("not a struct", nil); len(got) != 0 {
		t.Errorf("ExplicitFields(string) = %v", got)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg := &launcherConfig{
		Config:       filepath.Join(t.TempDir(), "nonexistent.toml"),
		ServerScript: "b_transfer_server.py",
	}

	if err := LoadConfig(cfg, nil); err != nil {
		t.Fatalf("LoadConfig should not fail for missing file: %v", err)
	}
	if cfg.ServerScript != "b_transfer_server.py" {
		t.Errorf("defaults must survive, got %q", cfg.ServerScript)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	cfg := &launcherConfig{Config: writeConfig(t, "[server\ninvalid toml syntax\n")}

	if err := LoadConfig(cfg, nil); err == nil {
		t.Fatal("LoadConfig should fail for invalid TOML")
	}
}

func TestLoadLoggingConfig(t *testing.T) {
	path := writeConfig(t, `
[logging]
level = "warn"
format = "json"
server = "debug"
supervisor = "error"
`)

	cfg, err := LoadLoggingConfig(path)
	if err != nil {
		t.Fatalf("LoadLoggingConfig failed: %v", err)
	}
	if cfg.Level != "warn" || cfg.Format != "json" {
		t.Errorf("level/format = %q/%q", cfg.Level, cfg.Format)
	}
	want := map[string]string{"server": "debug", "supervisor": "error"}
	if !reflect.DeepEqual(cfg.Modules, want) {
		t.Errorf("Modules = %v, want %v", cfg.Modules, want)
	}

	missing, err := LoadLoggingConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil || missing.Level != "info" {
		t.Errorf("missing file should give defaults, got %+v, %v", missing, err)
	}

	if _, err := LoadLoggingConfig(writeConfig(t, "[logging\n")); err == nil {
		t.Error("invalid TOML should be an error")
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 5 * time.Second},
		{"10s", 10 * time.Second},
		{"750ms", 750 * time.Millisecond},
		{"soon", 5 * time.Second},
		{"-1s", 5 * time.Second},
		{"0s", 5 * time.Second},
	}
	for _, tt := range tests {
		if got := ParseDuration(tt.in, 5*time.Second); got != tt.want {
			t.Errorf("ParseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestConfigPath(t *testing.T) {
	if got := ConfigPath(&launcherConfig{Config: "x.toml"}); got != "x.toml" {
		t.Errorf("ConfigPath = %q", got)
	}
	if got := ConfigPath(struct{ Other string }{"y"}); got != "" {
		t.Errorf("ConfigPath without Config field = %q", got)
	}
	if got := ConfigPath("not a struct"); got != "" {
		t.Errorf("ConfigPath(string) = %q", got)
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"LoggingLevel":    "logging-level",
		"ServerPython":    "server-python",
		"Headless":        "headless",
		"MetricsFile":     "metrics-file",
		"StopKillTimeout": "stop-kill-timeout",
		"HealthURL":       "health-url",
		"HTTPTimeout":     "http-timeout",
	}
	for in, want := range tests {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"server": map[string]any{"script": "b_transfer_server.py"},
		"flat":   "value",
	}

	if got := getNestedValue(data, "server.script"); got != "b_transfer_server.py" {
		t.Errorf("server.script = %v", got)
	}
	if got := getNestedValue(data, "flat"); got != "value" {
		t.Errorf("flat = %v", got)
	}
	if got := getNestedValue(data, "flat.deeper"); got != nil {
		t.Errorf("flat.deeper = %v, want nil", got)
	}
	if got := getNestedValue(data, "missing.key"); got != nil {
		t.Errorf("missing.key = %v, want nil", got)
	}
}
