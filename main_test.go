package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/balsim/btransfer-desktop/internal/config"
	"github.com/balsim/btransfer-desktop/internal/logging"
	"github.com/spf13/cobra"
)

func TestLaunchSpecDefaults(t *testing.T) {
	dir := t.TempDir()
	spec, err := launchSpec(&Options{AppRoot: dir, ServerScript: "b_transfer_server.py", StartupTimeout: "10s"})
	if err != nil {
		t.Fatalf("launchSpec() = %v", err)
	}
	if spec.Command != "python3" && spec.Command != "python" {
		t.Errorf("Command = %q", spec.Command)
	}
	if !reflect.DeepEqual(spec.Args, []string{"b_transfer_server.py"}) {
		t.Errorf("Args = %v", spec.Args)
	}
	if spec.Dir != dir {
		t.Errorf("Dir = %q, want %q", spec.Dir, dir)
	}
	if spec.StartupTimeout != 10*time.Second {
		t.Errorf("StartupTimeout = %v", spec.StartupTimeout)
	}
}

func TestLaunchSpecOverrides(t *testing.T) {
	spec, err := launchSpec(&Options{
		AppRoot:        ".",
		ServerPython:   "/opt/py/bin/python3",
		ServerScript:   "b_transfer_server_simple.py",
		StartupTimeout: "bogus",
	})
	if err != nil {
		t.Fatalf("launchSpec() = %v", err)
	}
	if spec.Command != "/opt/py/bin/python3" || spec.Args[0] != "b_transfer_server_simple.py" {
		t.Errorf("spec = %+v", spec)
	}
	if !filepath.IsAbs(spec.Dir) {
		t.Errorf("Dir should be absolute, got %q", spec.Dir)
	}
	if spec.StartupTimeout != 10*time.Second {
		t.Errorf("invalid timeout should fall back to 10s, got %v", spec.StartupTimeout)
	}
}

func TestLaunchSpecCommandLine(t *testing.T) {
	spec, err := launchSpec(&Options{AppRoot: ".", ServerCommand: `pipenv run python "b_transfer_server.py" --port 8081`, StartupTimeout: "30s"})
	if err != nil {
		t.Fatalf("launchSpec() = %v", err)
	}
	if spec.Command != "pipenv" {
		t.Errorf("Command = %q", spec.Command)
	}
	want := []string{"run", "python", "b_transfer_server.py", "--port", "8081"}
	if !reflect.DeepEqual(spec.Args, want) {
		t.Errorf("Args = %v, want %v", spec.Args, want)
	}
	if spec.StartupTimeout != 30*time.Second {
		t.Errorf("StartupTimeout = %v", spec.StartupTimeout)
	}

	if _, err := launchSpec(&Options{AppRoot: ".", ServerCommand: `python "unterminated`}); err == nil {
		t.Error("expected error for unclosed quote")
	}
}

func TestModuleLevels(t *testing.T) {
	opts := &Options{LoggingServer: "debug", LoggingHealth: "warn"}
	want := map[string]string{"server": "debug", "health": "warn"}
	if got := opts.moduleLevels(nil); !reflect.DeepEqual(got, want) {
		t.Errorf("moduleLevels(nil) = %v, want %v", got, want)
	}

	only := map[string]bool{"LoggingHealth": true, "LoggingShell": true}
	if got := opts.moduleLevels(only); !reflect.DeepEqual(got, map[string]string{"health": "warn"}) {
		t.Errorf("moduleLevels(only) = %v", got)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestConfigFileModuleLevelsReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[logging]\nlevel = \"info\"\nsupervisor = \"info\"\nserver = \"info\"\n")
	t.Setenv("BTRANSFER_LOGGING_HEALTH", "warn")

	cmd := &cobra.Command{Use: "btransfer"}
	cmd.Flags().String("logging-server", "", "")
	if err := cmd.Flags().Set("logging-server", "debug"); err != nil {
		t.Fatal(err)
	}
	opts := &Options{Config: path, LoggingLevel: "info", LoggingFormat: "text", LoggingServer: "debug"}

	if err := config.LoadConfig(opts, cmd); err != nil {
		t.Fatalf("LoadConfig() = %v", err)
	}
	if opts.LoggingSupervisor != "info" {
		t.Fatalf("supervisor level from file = %q", opts.LoggingSupervisor)
	}

	overrides := opts.moduleLevels(config.ExplicitFields(opts, cmd))
	want := map[string]string{"server": "debug", "health": "warn"}
	if !reflect.DeepEqual(overrides, want) {
		t.Fatalf("overrides = %v, want %v", overrides, want)
	}

	logging.Initialize(logging.Config{
		Level:   opts.LoggingLevel,
		Format:  opts.LoggingFormat,
		Modules: opts.moduleLevels(nil),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watcher, err := config.WatchLogging(ctx, path, overrides)
	if err != nil {
		t.Fatalf("WatchLogging() = %v", err)
	}
	defer watcher.Stop()

	supervisor := logging.GetLogger(logging.ModuleSupervisor)
	if supervisor.Enabled(ctx, slog.LevelDebug) {
		t.Fatal("supervisor should start at info")
	}

	writeFile(t, path, "[logging]\nlevel = \"info\"\nsupervisor = \"debug\"\nserver = \"error\"\n")

	deadline := time.Now().Add(5 * time.Second)
	for !supervisor.Enabled(ctx, slog.LevelDebug) {
		if time.Now().After(deadline) {
			t.Fatal("supervisor level edited in the config file was not reloaded")
		}
		time.Sleep(20 * time.Millisecond)
	}

	// The flag still outranks the file.
	if !logging.GetLogger(logging.ModuleServer).Enabled(ctx, slog.LevelDebug) {
		t.Error("server level set by flag was replaced by the file")
	}
}
