// Package daemon wires the configuration, desktop session, IPC server and
// reconciler into the long-running deskgrid process.
package daemon

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/1broseidon/deskgrid/internal/clipboard"
	"github.com/1broseidon/deskgrid/internal/config"
	"github.com/1broseidon/deskgrid/internal/desktop"
	"github.com/1broseidon/deskgrid/internal/fileops"
	"github.com/1broseidon/deskgrid/internal/ipc"
	"github.com/1broseidon/deskgrid/internal/layout"
	"github.com/1broseidon/deskgrid/internal/metadata"
	"github.com/1broseidon/deskgrid/internal/platform"
	"github.com/1broseidon/deskgrid/internal/registry"
)

// Options configures a daemon. Zero values select the production defaults.
type Options struct {
	// ConfigPath overrides ~/.config/deskgrid/config.yaml.
	ConfigPath string
	Backend    platform.Backend
	Clipboard  clipboard.Provider
	Files      desktop.FileOps
	// LogOutput receives structured logs; defaults to stderr.
	LogOutput io.Writer
}

// Daemon is one assembled deskgrid process.
type Daemon struct {
	configPath string
	cfg        *config.Config
	logger     *slog.Logger

	store      metadata.Store
	reg        *registry.Registry
	backend    platform.Backend
	desk       *desktop.Desktop
	server     *ipc.Server
	sync       *StateSynchronizer
	reconciler *Reconciler
	reloadChan chan struct{}
	files      *fileops.Client
}

// NewLogger builds the slog text logger for level ("debug", "info", "warn",
// "error").
func NewLogger(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func (o Options) loadConfig() (*config.Config, error) {
	if o.ConfigPath == "" {
		return config.Load()
	}
	res, err := config.LoadFromPath(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

// New loads the configuration and assembles every component. An unreadable
// or invalid configuration is logged and replaced by the defaults.
func New(opts Options) (*Daemon, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		log.Printf("Failed to load configuration, using defaults: %v", err)
		cfg = config.DefaultConfig()
	}
	log.Printf("Configuration loaded (desktop: %s, cell size: %dpx, metadata: %s)",
		cfg.DesktopDir, cfg.CellSize, cfg.Metadata.Backend)

	if opts.LogOutput == nil {
		opts.LogOutput = os.Stderr
	}
	logger := NewLogger(cfg.LogLevel, opts.LogOutput)

	store, err := metadata.Open(cfg.Metadata.Backend, config.ExpandPath(cfg.Metadata.Path))
	if err != nil {
		log.Printf("Failed to open %s metadata store, positions will not persist: %v", cfg.Metadata.Backend, err)
		store = metadata.NewMemoryStore()
	}

	backend := opts.Backend
	if backend == nil {
		backend, err = NewBackend(cfg)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to connect to display: %w", err)
		}
	}

	d := &Daemon{
		configPath: opts.ConfigPath,
		cfg:        cfg,
		logger:     logger,
		store:      store,
		backend:    backend,
		reloadChan: make(chan struct{}, 1),
	}

	files := opts.Files
	if files == nil {
		d.files = fileops.New(nil, nil)
		files = d.files
	}
	clip := opts.Clipboard
	if clip == nil {
		clip = clipboard.Default()
	}

	settings := SettingsFromConfig(cfg)
	d.reg = registry.New(settings.Registry, store)
	engine := layout.New(layout.Options{
		CellSize:    settings.CellSize,
		SearchLimit: settings.SearchLimit,
		Primary:     cfg.PrimarySurface,
		Logger:      logger,
	})
	d.desk = desktop.New(desktop.Options{
		Settings:  settings,
		Registry:  d.reg,
		Engine:    engine,
		Backend:   backend,
		Clipboard: clip,
		Files:     files,
		Logger:    logger,
	})

	d.server, err = ipc.NewServer(cfg, d.desk, d.reloadChan)
	if err != nil {
		backend.Close()
		store.Close()
		return nil, fmt.Errorf("failed to create IPC server: %w", err)
	}
	if opts.ConfigPath != "" {
		d.server.SetConfigLoader(opts.loadConfig)
	}

	d.sync = NewStateSynchronizer(d.desk, backend, logger)
	d.reconciler = NewReconciler(ReconcilerConfig{
		Interval: time.Duration(cfg.ReconcileInterval) * time.Second,
		Dir:      func() string { return d.reg.Options().Dir },
		Logger:   logger,
	}, d.sync, d.reg.Names)

	return d, nil
}

// Desktop returns the session the daemon drives.
func (d *Daemon) Desktop() *desktop.Desktop {
	return d.desk
}

// Config returns the configuration currently applied.
func (d *Daemon) Config() *config.Config {
	return d.server.GetConfig()
}

// Run serves until ctx is cancelled. SIGHUP reloads the configuration.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := d.desk.Run(ctx); err != nil {
			log.Printf("Desktop session failed: %v", err)
			cancel()
		}
	}()
	defer func() {
		cancel()
		<-d.desk.Done()
		if d.files != nil {
			d.files.Wait()
		}
		d.backend.Close()
		if err := d.store.Close(); err != nil {
			log.Printf("Failed to close metadata store: %v", err)
		}
	}()

	if err := d.server.Start(); err != nil {
		return fmt.Errorf("failed to start IPC server: %w", err)
	}
	defer d.server.Stop()
	log.Printf("deskgrid daemon started (socket: %s)", d.server.SocketPath())

	go d.reconciler.Run(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			log.Println("Shutting down deskgrid daemon...")
			return nil
		case <-sigCh:
			log.Println("Received SIGHUP, reloading config...")
			if err := d.Reload(ctx); err != nil {
				log.Printf("Config reload failed: %v", err)
				continue
			}
			log.Println("Config reloaded successfully")
		case <-d.reloadChan:
			// Config was reloaded via IPC; the server already holds it.
			if err := d.sync.ApplyConfig(ctx, d.server.GetConfig()); err != nil {
				log.Printf("Config reload failed: %v", err)
			}
		}
	}
}

// Reload re-reads the configuration file and applies it.
func (d *Daemon) Reload(ctx context.Context) error {
	cfg, err := Options{ConfigPath: d.configPath}.loadConfig()
	if err != nil {
		return err
	}
	d.server.UpdateConfig(cfg)
	return d.sync.ApplyConfig(ctx, cfg)
}
