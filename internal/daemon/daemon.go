package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"spool/internal/config"
	"spool/internal/deps"
	"spool/internal/logging"
	"spool/internal/notifications"
	"spool/internal/queue"
	"spool/internal/workflow"
	"spool/internal/ytdlp"
)

// Daemon coordinates background processing and the HTTP API, and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager
	fetcher  ytdlp.Fetcher
	notifier notifications.Service
	api      *apiServer
	logPath  string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Bind         string
	Workflow     workflow.StatusSummary
	Dependencies []deps.Status
	QueueDBPath  string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager, fetcher ytdlp.Fetcher) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || wf == nil || fetcher == nil {
		return nil, errors.New("daemon requires config, store, logger, workflow manager, and fetcher")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "spoold.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		workflow: wf,
		fetcher:  fetcher,
		notifier: notifications.NewService(cfg),
		logPath:  filepath.Join(cfg.Paths.LogDir, logging.LogFileName),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start launches the workflow manager and HTTP API, acquiring the daemon lock.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another spool daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.workflow.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.api.start(d.ctx); err != nil {
		d.workflow.Stop()
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("spool daemon started",
		logging.String("bind", d.api.addr()),
		logging.String("lock", d.lockPath),
	)
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("spool daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Enqueue validates a download request and adds it to the queue.
func (d *Daemon) Enqueue(ctx context.Context, params queue.NewJobParams) (*queue.Job, error) {
	job, err := d.store.NewJob(ctx, params)
	if err != nil {
		return nil, err
	}
	d.logger.Info("download queued",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String(logging.FieldJobToken, job.Token),
		logging.String("url", job.URL),
		logging.String("kind", string(job.Kind)),
	)
	if err := d.notifier.NotifyJobQueued(ctx, job.Title, string(job.Kind)); err != nil {
		d.logger.Debug("queued notification failed", logging.Error(err))
	}
	return job, nil
}

// Analyze resolves source metadata for a URL without queueing anything.
func (d *Daemon) Analyze(ctx context.Context, url string) (*ytdlp.Info, error) {
	return d.fetcher.Analyze(ctx, url)
}

// ListQueue returns jobs filtered by optional statuses.
func (d *Daemon) ListQueue(ctx context.Context, statuses []queue.Status) ([]*queue.Job, error) {
	if len(statuses) == 0 {
		return d.store.List(ctx)
	}
	return d.store.List(ctx, statuses...)
}

// ClearQueue removes all jobs.
func (d *Daemon) ClearQueue(ctx context.Context) (int64, error) {
	return d.store.Clear(ctx)
}

// ClearCompleted removes only completed jobs.
func (d *Daemon) ClearCompleted(ctx context.Context) (int64, error) {
	return d.store.ClearCompleted(ctx)
}

// ClearFailed removes only failed jobs.
func (d *Daemon) ClearFailed(ctx context.Context) (int64, error) {
	return d.store.ClearFailed(ctx)
}

// ResetStuck transitions in-flight jobs back to pending for retry.
func (d *Daemon) ResetStuck(ctx context.Context) (int64, error) {
	return d.store.ResetStuckProcessing(ctx)
}

// RetryFailed resets failed jobs (optionally a subset) back to pending.
func (d *Daemon) RetryFailed(ctx context.Context, ids []int64) (int64, error) {
	return d.store.RetryFailed(ctx, ids...)
}

// QueueHealth returns aggregate queue diagnostics.
func (d *Daemon) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	return d.store.Health(ctx)
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	return d.store.CheckHealth(ctx)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Addr returns the address the API server is bound to.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	summary := d.workflow.Status(ctx)
	return Status{
		Running:      d.running.Load(),
		Bind:         d.api.addr(),
		Workflow:     summary,
		Dependencies: deps.Check(d.cfg),
		QueueDBPath:  filepath.Join(d.cfg.Paths.LogDir, queue.DBFileName),
		LockFilePath: d.lockPath,
	}
}
