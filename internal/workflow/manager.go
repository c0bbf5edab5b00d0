package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"spool/internal/config"
	"spool/internal/logging"
	"spool/internal/notifications"
	"spool/internal/queue"
	"spool/internal/stage"
)

// StageSet bundles the concrete workflow handlers the manager orchestrates.
type StageSet struct {
	Fetcher stage.Handler
	Merger  stage.Handler
}

type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      queue.Status
	processingStatus queue.Status
	doneStatus       queue.Status
}

// Manager coordinates queue processing using registered stage handlers.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	logger       *slog.Logger
	notifier     notifications.Service
	pollInterval time.Duration

	heartbeat *HeartbeatMonitor

	stages       []pipelineStage
	stageByStart map[queue.Status]pipelineStage
	statusOrder  []queue.Status

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
	lastJob *queue.Job
}

// NewManager constructs a workflow manager with the default notifier.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, store, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier constructs a workflow manager with a custom notifier (used in tests).
func NewManagerWithNotifier(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Manager {
	return &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logger,
		notifier:     notifier,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
	}
}

// Configure registers the stage handlers that drive jobs through the queue.
func (m *Manager) Configure(stages StageSet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages = []pipelineStage{
		{
			name:             "fetch",
			handler:          stages.Fetcher,
			startStatus:      queue.StatusPending,
			processingStatus: queue.StatusFetching,
			doneStatus:       queue.StatusFetched,
		},
		{
			name:             "merge",
			handler:          stages.Merger,
			startStatus:      queue.StatusFetched,
			processingStatus: queue.StatusMerging,
			doneStatus:       queue.StatusCompleted,
		},
	}
	m.stageByStart = make(map[queue.Status]pipelineStage, len(m.stages))
	m.statusOrder = m.statusOrder[:0]
	for _, stg := range m.stages {
		m.stageByStart[stg.startStatus] = stg
		m.statusOrder = append(m.statusOrder, stg.startStatus)
	}
}

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if len(m.statusOrder) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(2)
	m.mu.Unlock()

	go m.run(runCtx)
	go m.runRetentionSweep(runCtx)
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()
	logger := m.logger
	if logger == nil {
		logger = logging.NewNop()
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := m.heartbeat.ReclaimStaleJobs(ctx, logger); err != nil {
			logger.Warn("reclaim stale processing failed; stuck jobs may remain",
				logging.Error(err),
				logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
		}

		job, err := m.store.NextForStatuses(ctx, m.statusOrder...)
		if err != nil {
			m.handleNextJobError(ctx, logger, err)
			continue
		}
		if job == nil {
			m.waitForJobOrShutdown(ctx)
			continue
		}

		if err := m.processJob(ctx, logger, job); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

func (m *Manager) handleNextJobError(ctx context.Context, logger *slog.Logger, err error) {
	m.setLastError(err)
	logger.Error("failed to fetch next queue job",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_fetch_failed"),
		logging.String(logging.FieldErrorHint, "check queue database access"),
	)
	select {
	case <-ctx.Done():
		return
	case <-time.After(time.Duration(m.cfg.Workflow.ErrorRetryInterval) * time.Second):
	}
}

func (m *Manager) waitForJobOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(m.pollInterval):
	}
}

// Running reports whether the manager has been started.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastJob(job *queue.Job) {
	m.mu.Lock()
	if job != nil {
		copied := *job
		m.lastJob = &copied
	} else {
		m.lastJob = nil
	}
	m.mu.Unlock()
}
