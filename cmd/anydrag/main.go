package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"anydrag/internal/config"
	"anydrag/internal/drag"
	"anydrag/internal/hittest"
	"anydrag/internal/inventory"
	"anydrag/internal/ipc"
	"anydrag/internal/logging"
	"anydrag/internal/mover"
	"anydrag/internal/runtimepath"
	"anydrag/internal/x11"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		if len(os.Args) > 2 && (os.Args[2] == "help" || os.Args[2] == "-h" || os.Args[2] == "--help") {
			fmt.Fprintln(os.Stdout, "Usage: anydrag daemon")
			os.Exit(0)
		}
		if len(os.Args) > 2 {
			fmt.Fprintln(os.Stderr, "daemon takes no arguments")
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Usage: anydrag daemon")
			os.Exit(2)
		}
		runDaemon()
	case "enable":
		os.Exit(runEnable(os.Args[2:]))
	case "disable":
		os.Exit(runDisable(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "permission":
		os.Exit(runPermission(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: anydrag <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Hold a modifier key and move the pointer to drag any window")
	fmt.Fprintln(w, "from any point inside it.")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the anydrag daemon (foreground)")
	fmt.Fprintln(w, "  enable              Enable drag monitoring")
	fmt.Fprintln(w, "  disable             Disable drag monitoring")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  permission          Check window-control permission")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  help                Show this help")
}

func runEnable(args []string) int {
	fs := flag.NewFlagSet("enable", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: anydrag enable")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Enable drag monitoring via IPC.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "enable takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	if err := client.Enable(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println("monitoring enabled")
	return 0
}

func runDisable(args []string) int {
	fs := flag.NewFlagSet("disable", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: anydrag disable")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Disable drag monitoring via IPC.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "disable takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	if err := client.Disable(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println("monitoring disabled")
	return 0
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: anydrag status")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show daemon status via IPC.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("daemon_running:        %v\n", status.DaemonRunning)
	fmt.Printf("monitoring_enabled:    %v\n", status.MonitoringEnabled)
	fmt.Printf("accessibility_granted: %v\n", status.AccessibilityGranted)
	fmt.Printf("dragging:              %v\n", status.Dragging)
	fmt.Printf("window_count:          %d\n", status.WindowCount)
	fmt.Printf("uptime_seconds:        %d\n", status.UptimeSeconds)
	return 0
}

func runPermission(args []string) int {
	fs := flag.NewFlagSet("permission", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: anydrag permission")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Ask the daemon to check (and if needed request) window-control")
		fmt.Fprintln(os.Stderr, "permission.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "permission takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	granted, err := client.CheckPermission()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if !granted {
		fmt.Println("permission: not granted")
		return 1
	}
	fmt.Println("permission: granted")
	return 0
}

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  anydrag config validate [--path PATH]")
		fmt.Fprintln(os.Stderr, "  anydrag config print [--path PATH] [--defaults]")
		return 2
	}

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/anydrag/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		var err error
		if *path == "" {
			_, err = config.Load()
		} else {
			_, err = config.LoadFromPath(*path)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println("config: ok")
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/anydrag/config.yaml)")
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		var cfg *config.Config
		var err error
		if *printDefaults {
			cfg = config.Default()
		} else if *path == "" {
			cfg, err = config.Load()
		} else {
			cfg, err = config.LoadFromPath(*path)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(string(data))
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		return 2
	}
}

// engine bundles the pieces whose tunables change on config reload.
type engine struct {
	conn   *x11.Connection
	log    zerolog.Logger
	cache  *inventory.Cache
	tester *hittest.Tester
	mover  *mover.Mover
	ctrl   *drag.Controller

	monMu   sync.Mutex
	monitor *x11.InputMonitor
}

func runDaemon() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	logger.Info().Str("modifier", cfg.Modifier).Msg("configuration loaded")

	conn, err := x11.NewConnection()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to display")
	}
	defer conn.Close()

	eng := &engine{conn: conn, log: logger}

	eng.cache = inventory.NewCache(conn, filterOptions(cfg), cfg.RefreshInterval(), logger)
	eng.tester = hittest.New(eng.cache, conn, conn, logger)
	eng.mover = mover.New(conn, mover.TimerScheduler(), logger)
	perm := x11.NewPermission(conn, logger)
	eng.ctrl = drag.NewController(eng.tester, eng.mover, perm, logger)
	eng.applyTunables(cfg)

	monitor, err := x11.NewInputMonitor(conn, cfg.Modifier, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid modifier configuration")
	}
	eng.monitor = monitor

	// Attach or detach the input hooks whenever monitoring flips.
	eng.ctrl.Subscribe(func(st drag.Status) {
		eng.monMu.Lock()
		defer eng.monMu.Unlock()
		if st.MonitoringEnabled {
			if err := eng.monitor.Subscribe(eng.inputHandler()); err != nil {
				logger.Error().Err(err).Msg("failed to attach input monitoring")
			}
		} else {
			eng.monitor.Unsubscribe()
		}
	})

	if err := eng.ctrl.StartMonitoring(); err != nil {
		if errors.Is(err, drag.ErrPermissionDenied) {
			logger.Warn().Msg("window-control permission missing, monitoring stays off until granted")
		} else {
			logger.Fatal().Err(err).Msg("failed to start monitoring")
		}
	}

	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve IPC socket path")
	}

	reloadChan := make(chan struct{}, 1)
	ipcServer := ipc.NewServer(socketPath, eng.ctrl, eng.cache, reloadChan, logger)
	if err := ipcServer.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start IPC server")
	}
	defer ipcServer.Stop()

	// Watch the config file so edits apply without a restart.
	if configPath, err := config.DefaultConfigPath(); err == nil {
		stop, err := config.Watch(configPath, reloadChan, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("config file watching unavailable")
		} else {
			defer stop()
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		for {
			select {
			case sig := <-sigCh:
				switch sig {
				case syscall.SIGHUP:
					logger.Info().Msg("received SIGHUP, reloading config")
					eng.reload()
				case os.Interrupt, syscall.SIGTERM:
					logger.Info().Msg("shutting down anydrag daemon")
					ipcServer.Stop()
					conn.Quit()
					return
				}
			case <-reloadChan:
				eng.reload()
			}
		}
	}()

	logger.Info().Msg("anydrag daemon started, entering event loop")
	conn.EventLoop()
}

// inputHandler routes raw input into the drag state machine, splitting
// the unified event stream into modifier transitions and plain motion.
func (e *engine) inputHandler() x11.Handler {
	var lastHeld bool
	return func(ev x11.Event) {
		if ev.ModifierHeld != lastHeld {
			lastHeld = ev.ModifierHeld
			e.ctrl.ModifierChanged(ev.ModifierHeld, ev.Pointer)
			return
		}
		e.ctrl.PointerMoved(ev.Pointer, ev.ModifierHeld)
	}
}

func (e *engine) applyTunables(cfg *config.Config) {
	e.tester.Tolerance = cfg.MatchTolerance
	e.tester.MaxAncestorDepth = cfg.MaxAncestorDepth
	e.mover.RaiseDelay = cfg.RaiseDelay()
	e.ctrl.Throttle = cfg.EventThrottle()
}

// reload re-reads the config and applies it. Monitoring is stopped while
// tunables swap so no event observes a half-applied config, then
// restored to its previous state.
func (e *engine) reload() {
	cfg, err := config.Load()
	if err != nil {
		e.log.Error().Err(err).Msg("config reload failed, keeping previous config")
		return
	}

	wasEnabled := e.ctrl.Status().MonitoringEnabled
	e.ctrl.StopMonitoring()

	e.cache.Reconfigure(filterOptions(cfg), cfg.RefreshInterval())
	e.applyTunables(cfg)

	monitor, err := x11.NewInputMonitor(e.conn, cfg.Modifier, e.log)
	if err != nil {
		e.log.Error().Err(err).Msg("invalid modifier in reloaded config, keeping previous")
	} else {
		e.monMu.Lock()
		e.monitor = monitor
		e.monMu.Unlock()
	}

	if wasEnabled {
		if err := e.ctrl.StartMonitoring(); err != nil {
			e.log.Error().Err(err).Msg("failed to re-enable monitoring after reload")
		}
	}

	e.log.Info().Str("modifier", cfg.Modifier).Msg("config reloaded")
}

func filterOptions(cfg *config.Config) inventory.Options {
	return inventory.Options{
		MinWidth:       cfg.MinWindowWidth,
		MinHeight:      cfg.MinWindowHeight,
		ExcludedOwners: cfg.ExcludedOwners,
	}
}
