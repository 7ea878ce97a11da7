// Package daemon provides the core daemon runner for warpsched.
// It assembles the config store, session, schedule engine and web server,
// and manages their lifecycle including graceful shutdown.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
	"github.com/warpdl/warpsched/common"
	"github.com/warpdl/warpsched/internal/metrics"
	"github.com/warpdl/warpsched/internal/scheduler"
	"github.com/warpdl/warpsched/internal/server"
	"github.com/warpdl/warpsched/internal/store"
	"github.com/warpdl/warpsched/pkg/logger"
	"github.com/warpdl/warpsched/pkg/schedule"
	"github.com/warpdl/warpsched/pkg/secret"
	"github.com/warpdl/warpsched/pkg/session"
)

// Sentinel errors for the daemon runner.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running daemon.
	ErrAlreadyRunning = errors.New("daemon is already running")

	// ErrNotRunning is returned when Shutdown() is called on a stopped daemon.
	ErrNotRunning = errors.New("daemon is not running")

	// ErrShutdownTimeout is returned when shutdown exceeds the configured timeout.
	ErrShutdownTimeout = errors.New("shutdown timed out")

	// ErrUnknownStore is returned when Config.Store names no known backend.
	ErrUnknownStore = errors.New("unknown config store")
)

// DefaultShutdownTimeout bounds the HTTP server drain when Config leaves it unset.
const DefaultShutdownTimeout = 5 * time.Second

// sqliteFile is the database name used by the sqlite store backend.
const sqliteFile = "warpsched.db"

// Config holds the configuration for the daemon runner.
type Config struct {
	// ConfigDir is the directory for the config store and secret fallback.
	ConfigDir string

	// Addr is the listen address of the web server.
	Addr string

	// Secret is the RPC bearer token. When empty one is loaded from the
	// keyring, or generated and stored there.
	Secret string

	// Store selects the config backend: common.StoreFile or common.StoreSQLite.
	Store string

	// Baseline is the session's globally configured limits, in KiB/s.
	Baseline schedule.Limits

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration

	// Build information reported by system.getVersion.
	Version   string
	Commit    string
	BuildType string
}

// SecretSource yields the RPC secret, creating it on first use.
type SecretSource interface {
	Ensure() (secret string, created bool, err error)
}

// Dependencies holds the external dependencies for the daemon runner.
// This enables dependency injection for testing.
type Dependencies struct {
	// Logger defaults to a StandardLogger on stderr.
	Logger logger.Logger

	// Fs backs the file store. If nil, the OS filesystem is used.
	Fs afero.Fs

	// Clock drives the engine. If nil, time.Now is used.
	Clock func() time.Time

	// Secrets is consulted when Config.Secret is empty.
	// If nil, the OS keyring with a file fallback in ConfigDir is used.
	Secrets SecretSource

	// ListenerFactory creates network listeners.
	// If nil, net.Listen is used.
	ListenerFactory func(network, address string) (net.Listener, error)

	// ShutdownFunc is called during shutdown to clean up resources.
	// If nil, no cleanup function is called.
	ShutdownFunc func() error
}

// Runner manages the daemon lifecycle.
type Runner struct {
	config *Config
	deps   *Dependencies

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	listener net.Listener
	parts    *components
}

// New creates a new daemon runner with the given configuration and dependencies.
// If config is nil, default values are used.
// If deps is nil, default dependencies are used.
func New(config *Config, deps *Dependencies) *Runner {
	return &Runner{
		config: applyConfigDefaults(config),
		deps:   applyDependencyDefaults(deps),
	}
}

// applyConfigDefaults returns a copy of config with defaults applied for
// zero fields.
func applyConfigDefaults(config *Config) *Config {
	var cfg Config
	if config != nil {
		cfg = *config
	}
	if cfg.ConfigDir == "" {
		cfg.ConfigDir = common.ConfigDir()
	}
	if cfg.Addr == "" {
		cfg.Addr = common.DefaultRPCAddr
	}
	if cfg.Store == "" {
		cfg.Store = common.StoreFile
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	return &cfg
}

// applyDependencyDefaults returns Dependencies with default values applied.
func applyDependencyDefaults(deps *Dependencies) *Dependencies {
	var d Dependencies
	if deps != nil {
		d = *deps
	}
	if d.Logger == nil {
		d.Logger = logger.NewStandardLogger(log.New(os.Stderr, "", log.LstdFlags))
	}
	if d.Fs == nil {
		d.Fs = afero.NewOsFs()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.ListenerFactory == nil {
		d.ListenerFactory = net.Listen
	}
	return &d
}

// Config returns the runner's configuration.
func (r *Runner) Config() *Config {
	return r.config
}

// Start builds the daemon components, serves the RPC endpoints and blocks
// until the context is canceled or Shutdown is called.
// Returns ErrAlreadyRunning if the daemon is already started.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	parts, err := r.build(ctx)
	if err != nil {
		cancel()
		r.mu.Unlock()
		return err
	}

	// Create listener BEFORE setting running=true to avoid race condition
	listener, err := r.deps.ListenerFactory("tcp", r.config.Addr)
	if err != nil {
		parts.close(r.config.ShutdownTimeout)
		cancel()
		r.mu.Unlock()
		return err
	}
	if err := parts.engine.Start(); err != nil {
		r.deps.Logger.Warning("Initial schedule reconcile failed: %v", err)
	}

	r.listener = listener
	r.parts = parts
	r.cancel = cancel
	r.running = true
	r.mu.Unlock()

	r.deps.Logger.Info("warpsched %s started, level %s", r.config.Version, parts.engine.CurrentLevel())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- parts.web.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		err = ctx.Err()
	case err = <-serveErr:
		if err == nil {
			err = ctx.Err()
		}
	}

	r.cleanupOnStop()
	return err
}

// Addr returns the bound listen address, or nil when not running.
func (r *Runner) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

// Engine returns the running schedule engine, or nil when not running.
func (r *Runner) Engine() *schedule.Engine {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.parts == nil {
		return nil
	}
	return r.parts.engine
}

// cleanupOnStop performs cleanup when the daemon stops.
func (r *Runner) cleanupOnStop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.running = false
	if r.cancel != nil {
		r.cancel()
	}
	if r.parts != nil {
		r.parts.close(r.config.ShutdownTimeout)
		r.parts = nil
	}
	r.listener = nil
	r.deps.Logger.Info("Daemon stopped")
}

// Shutdown gracefully stops the daemon.
// Returns ErrNotRunning if the daemon is not running.
// Returns ErrShutdownTimeout if the shutdown function exceeds the configured timeout.
func (r *Runner) Shutdown() error {
	if err := r.validateRunning(); err != nil {
		return err
	}

	// Execute shutdown function if configured
	if err := r.executeShutdownFunc(); err != nil {
		return err
	}

	r.stop()
	return nil
}

// validateRunning checks if the daemon is running.
// Returns ErrNotRunning if not running.
func (r *Runner) validateRunning() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return ErrNotRunning
	}
	return nil
}

// executeShutdownFunc runs the shutdown function with the configured timeout.
// Returns ErrShutdownTimeout if the function exceeds the timeout.
func (r *Runner) executeShutdownFunc() error {
	if r.deps.ShutdownFunc == nil {
		return nil
	}
	return r.executeWithTimeout(r.deps.ShutdownFunc, r.config.ShutdownTimeout)
}

// executeWithTimeout runs a function with a timeout.
// Returns ErrShutdownTimeout if the function exceeds the timeout.
// Returns the function's error if it completes within the timeout.
func (r *Runner) executeWithTimeout(fn func() error, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		r.stop()
		return ErrShutdownTimeout
	}
}

// stop cancels the run context; Start performs the cleanup on its way out.
func (r *Runner) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}

// IsRunning returns true if the daemon is currently running.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// components holds everything built for one run, in initialization order.
type components struct {
	log      logger.Logger
	sqlite   *store.SQLiteStore
	session  *session.Session
	timers   *scheduler.Scheduler
	metrics  *metrics.Metrics
	notifier *server.RPCNotifier
	engine   *schedule.Engine
	rpc      *server.RPCServer
	web      *server.WebServer
}

func (r *Runner) build(ctx context.Context) (*components, error) {
	l := r.deps.Logger
	c := &components{log: l}

	cfgStore, err := r.openStore(c)
	if err != nil {
		return nil, err
	}

	secretValue := r.config.Secret
	if secretValue == "" {
		src := r.deps.Secrets
		if src == nil {
			src = secret.New(r.config.ConfigDir, l)
		}
		var created bool
		secretValue, created, err = src.Ensure()
		if err != nil {
			c.close(r.config.ShutdownTimeout)
			return nil, fmt.Errorf("rpc secret: %w", err)
		}
		if created {
			l.Info("Generated a new RPC secret")
		}
	}

	stdLog := logger.ToStdLogger(l)
	c.session = session.New(r.config.Baseline, l)
	c.timers = scheduler.New(ctx)
	c.notifier = server.NewRPCNotifier(stdLog)
	c.metrics = metrics.New(func() schedule.Status { return c.engine.Status() }, c.session.Paused)

	recorders := schedule.MultiRecorder{c.metrics}
	if c.sqlite != nil {
		recorders = append(recorders, c.sqlite)
	}
	c.engine, err = schedule.NewEngine(schedule.Deps{
		Session:  c.session,
		Store:    cfgStore,
		Sink:     c.notifier,
		Recorder: recorders,
		Timers:   c.timers,
		Clock:    r.deps.Clock,
		Logger:   l,
	})
	if err != nil {
		c.close(r.config.ShutdownTimeout)
		return nil, err
	}

	var history server.HistorySource
	if c.sqlite != nil {
		history = c.sqlite
	}
	c.rpc = server.NewRPCServer(&server.RPCConfig{
		Secret:    secretValue,
		Version:   r.config.Version,
		Commit:    r.config.Commit,
		BuildType: r.config.BuildType,
	}, c.engine, history, c.session)
	c.web = server.NewWebServer(stdLog, r.config.Addr, c.rpc, c.notifier, c.metrics.Handler())
	return c, nil
}

func (r *Runner) openStore(c *components) (schedule.Store, error) {
	switch r.config.Store {
	case common.StoreFile:
		return store.NewFileStore(r.deps.Fs, r.config.ConfigDir), nil
	case common.StoreSQLite:
		if err := os.MkdirAll(r.config.ConfigDir, 0o700); err != nil {
			return nil, fmt.Errorf("create config dir: %w", err)
		}
		s, err := store.OpenSQLite(filepath.Join(r.config.ConfigDir, sqliteFile), c.log)
		if err != nil {
			return nil, err
		}
		c.sqlite = s
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, r.config.Store)
	}
}

// close releases the components in reverse order of initialization.
// The engine is stopped first so no reconcile races the teardown.
func (c *components) close(timeout time.Duration) {
	if c.engine != nil {
		c.engine.Shutdown()
	}
	if c.web != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := c.web.Shutdown(ctx); err != nil {
			c.log.Warning("Web server shutdown: %v", err)
		}
		cancel()
	}
	if c.rpc != nil {
		c.rpc.Close()
	}
	if c.notifier != nil {
		c.notifier.Close()
	}
	if c.session != nil {
		_ = c.session.Close()
	}
	if c.sqlite != nil {
		if err := c.sqlite.Close(); err != nil {
			c.log.Warning("Closing history store: %v", err)
		}
	}
}
