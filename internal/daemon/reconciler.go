package daemon

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"
)

// NameLister returns the file names the registry currently tracks.
type NameLister func() map[string]struct{}

// DriftHandler is told which names are missing from, or untracked by, the
// registry.
type DriftHandler interface {
	HandleDrift(ctx context.Context, missing, extra []string) error
}

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	// Dir returns the desktop directory to compare against.
	Dir    func() string
	Logger *slog.Logger
}

// Reconciler periodically compares the desktop directory with the registry
// and triggers a rescan when a filesystem notification was missed.
type Reconciler struct {
	interval time.Duration
	dir      func() string
	handler  DriftHandler
	expected NameLister
	logger   *slog.Logger
}

// NewReconciler creates a new reconciler with the given configuration.
func NewReconciler(cfg ReconcilerConfig, handler DriftHandler, expected NameLister) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		interval: interval,
		dir:      cfg.Dir,
		handler:  handler,
		expected: expected,
		logger:   logger,
	}
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reconciler started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			r.reconcile(ctx)
		}
	}
}

// reconcile performs a single reconciliation pass and reports whether drift
// was found.
func (r *Reconciler) reconcile(ctx context.Context) (drift bool) {
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("reconciler panic recovered", "error", err)
		}
	}()

	dir := r.dir()
	actual, err := listNames(dir)
	if err != nil {
		r.logger.Error("reconciler: failed to list desktop", "dir", dir, "error", err)
		return false
	}
	expected := r.expected()

	var missing, extra []string
	for name := range expected {
		if _, ok := actual[name]; !ok {
			missing = append(missing, name)
		}
	}
	for name := range actual {
		if _, ok := expected[name]; !ok {
			extra = append(extra, name)
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		return false
	}

	if err := r.handler.HandleDrift(ctx, missing, extra); err != nil {
		r.logger.Warn("reconciler: rescan failed", "error", err)
	}
	return true
}

// ReconcileNow triggers an immediate reconciliation pass.
func (r *Reconciler) ReconcileNow(ctx context.Context) bool {
	return r.reconcile(ctx)
}

// listNames reads the visible entries of dir.
func listNames(dir string) (map[string]struct{}, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		out[e.Name()] = struct{}{}
	}
	return out, nil
}
