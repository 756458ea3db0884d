package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/balsim/btransfer-desktop/cmd"
	"github.com/balsim/btransfer-desktop/internal/config"
	"github.com/balsim/btransfer-desktop/internal/events"
	"github.com/balsim/btransfer-desktop/internal/health"
	"github.com/balsim/btransfer-desktop/internal/lifecycle"
	"github.com/balsim/btransfer-desktop/internal/logging"
	"github.com/balsim/btransfer-desktop/internal/metrics"
	"github.com/balsim/btransfer-desktop/internal/process"
	"github.com/balsim/btransfer-desktop/internal/shell"
	"github.com/danielgtaylor/huma/v2/humacli"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Backend settings
	AppRoot          string `help:"Directory containing b_transfer_server.py" default:"." toml:"server.app_root" env:"APP_ROOT"`
	ServerPython     string `help:"Python interpreter (python3, python on Windows)" toml:"server.python" env:"SERVER_PYTHON"`
	ServerScript     string `help:"Backend script, relative to the app root" default:"b_transfer_server.py" toml:"server.script" env:"SERVER_SCRIPT"`
	ServerCommand    string `help:"Full backend command line, replaces python and script" toml:"server.command" env:"SERVER_COMMAND"`
	StartupTimeout   string `help:"How long to wait for the server to become ready" default:"10s" toml:"server.startup_timeout" env:"SERVER_STARTUP_TIMEOUT"`
	StopGraceTimeout string `help:"How long the server gets to exit before it is killed" default:"5s" toml:"server.stop_grace_timeout" env:"SERVER_STOP_GRACE_TIMEOUT"`
	StopKillTimeout  string `help:"How long to wait after the kill signal" default:"5s" toml:"server.stop_kill_timeout" env:"SERVER_STOP_KILL_TIMEOUT"`
	HealthURL        string `help:"Base URL of the server" default:"http://localhost:8081" toml:"server.health_url" env:"HEALTH_URL"`

	// Shell settings
	Headless     bool   `help:"Do not open a window" toml:"shell.headless" env:"HEADLESS"`
	WindowWidth  int    `help:"Window width" default:"1200" toml:"shell.width" env:"WINDOW_WIDTH"`
	WindowHeight int    `help:"Window height" default:"800" toml:"shell.height" env:"WINDOW_HEIGHT"`
	ProfileDir   string `help:"Chrome profile directory (temporary when empty)" toml:"shell.profile_dir" env:"PROFILE_DIR"`

	// Metrics settings
	MetricsFile string `help:"Write Prometheus metrics to this file on exit" toml:"metrics.textfile" env:"METRICS_FILE"`

	// Logging settings
	LoggingLevel      string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat     string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingSupervisor string `help:"Supervisor logging level" toml:"logging.supervisor" env:"LOGGING_SUPERVISOR"`
	LoggingServer     string `help:"Backend output logging level" toml:"logging.server" env:"LOGGING_SERVER"`
	LoggingLifecycle  string `help:"Lifecycle logging level" toml:"logging.lifecycle" env:"LOGGING_LIFECYCLE"`
	LoggingShell      string `help:"Shell logging level" toml:"logging.shell" env:"LOGGING_SHELL"`
	LoggingHealth     string `help:"Health check logging level" toml:"logging.health" env:"LOGGING_HEALTH"`
}

// moduleLevels returns the per-module levels that were set, keyed by module.
// A non-nil only restricts the result to those Options fields.
func (o *Options) moduleLevels(only map[string]bool) map[string]string {
	fields := []struct {
		field, module, level string
	}{
		{"LoggingSupervisor", logging.ModuleSupervisor, o.LoggingSupervisor},
		{"LoggingServer", logging.ModuleServer, o.LoggingServer},
		{"LoggingLifecycle", logging.ModuleLifecycle, o.LoggingLifecycle},
		{"LoggingShell", logging.ModuleShell, o.LoggingShell},
		{"LoggingHealth", logging.ModuleHealth, o.LoggingHealth},
	}

	levels := make(map[string]string)
	for _, f := range fields {
		if f.level == "" || (only != nil && !only[f.field]) {
			continue
		}
		levels[f.module] = f.level
	}
	return levels
}

// launchSpec builds the backend command from the options.
func launchSpec(opts *Options) (process.Spec, error) {
	appRoot, err := filepath.Abs(opts.AppRoot)
	if err != nil {
		return process.Spec{}, err
	}

	var spec process.Spec
	if opts.ServerCommand != "" {
		spec, err = process.SpecFromCommandLine(opts.ServerCommand)
		if err != nil {
			return process.Spec{}, err
		}
		spec.Dir = appRoot
		spec.Env = []string{"PYTHONUNBUFFERED=1"}
	} else {
		spec = lifecycle.DefaultSpec(appRoot)
		if opts.ServerPython != "" {
			spec.Command = opts.ServerPython
		}
		if opts.ServerScript != "" {
			spec.Args = []string{opts.ServerScript}
		}
	}

	spec.StartupTimeout = config.ParseDuration(opts.StartupTimeout, process.DefaultStartupTimeout)
	return spec, nil
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:   opts.LoggingLevel,
			Format:  opts.LoggingFormat,
			Modules: opts.moduleLevels(nil),
		})
		// Only flag and env levels outrank the file when it is reloaded.
		levelOverrides := opts.moduleLevels(config.ExplicitFields(opts, cli.Root()))
		logger := logging.GetLogger(logging.ModuleApp)

		spec, specErr := launchSpec(opts)
		if specErr != nil {
			logger.Error("Invalid server command", "error", specErr)
			os.Exit(2)
		}

		// Create event bus for in-process event handling
		eventBus := events.New()
		recorder := metrics.New()
		detachMetrics := recorder.Attach(eventBus)

		supervisor := process.NewSupervisor(&process.Options{
			Logger:          logging.GetLogger(logging.ModuleSupervisor),
			OutputLogger:    logging.GetLogger(logging.ModuleServer),
			LogParser:       process.ParsePythonLogLevel,
			OutputHandler:   events.OutputPublisher{Bus: eventBus},
			OnStateChange:   lifecycle.StateChangePublisher(eventBus),
			GracefulTimeout: config.ParseDuration(opts.StopGraceTimeout, 0),
			KillTimeout:     config.ParseDuration(opts.StopKillTimeout, 0),
		})

		healthClient := health.NewClient(opts.HealthURL, 0)

		var controller *lifecycle.Controller
		var ui shell.Shell
		if opts.Headless {
			ui = shell.NewHeadless(healthClient.URL())
		} else {
			ui = shell.NewWindow(shell.WindowOptions{
				URL:        shell.UIURL(spec.Dir, healthClient.URL()),
				Width:      opts.WindowWidth,
				Height:     opts.WindowHeight,
				ProfileDir: opts.ProfileDir,
				Health:     healthClient,
				Bus:        eventBus,
				OnQuit:     func() { controller.Quit() },
			})
		}

		controller = lifecycle.New(lifecycle.Options{
			Supervisor: supervisor,
			Shell:      ui,
			Spec:       spec,
			Bus:        eventBus,
		})

		var finishOnce sync.Once
		finish := func() {
			finishOnce.Do(func() {
				detachMetrics()
				if opts.MetricsFile == "" {
					return
				}
				if err := recorder.WriteTextfile(opts.MetricsFile); err != nil {
					logger.Warn("Failed to write metrics", "error", err)
				}
			})
		}

		hooks.OnStart(func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			if _, statErr := os.Stat(opts.Config); statErr == nil {
				watcher, watchErr := config.WatchLogging(ctx, opts.Config, levelOverrides)
				if watchErr != nil {
					logger.Warn("Failed to watch config file", "error", watchErr)
				} else {
					defer watcher.Stop()
				}
			}

			runErr := controller.Run(ctx)
			finish()
			if runErr != nil {
				if errors.Is(runErr, lifecycle.ErrStartupFailed) {
					logger.Error("B-Transfer server did not start", "error", runErr)
				} else {
					logger.Error("Launcher failed", "error", runErr)
				}
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			controller.BeforeQuit()
			finish()
		})
	})

	cli.Root().Use = "btransfer"
	cli.Root().Short = "B-Transfer desktop launcher"

	cli.Root().AddCommand(cmd.CreateHealthCmd())
	cli.Root().AddCommand(cmd.CreateAboutCmd())

	// Run the CLI
	cli.Run()
}
