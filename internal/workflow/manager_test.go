package workflow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"spool/internal/logging"
	"spool/internal/queue"
	"spool/internal/services"
	"spool/internal/stage"
	"spool/internal/testsupport"
	"spool/internal/workflow"
)

type stubHandler struct {
	name string

	mu         sync.Mutex
	executions int
	prepareErr error
	execFn     func(attempt int, job *queue.Job) error
}

func (h *stubHandler) Prepare(ctx context.Context, job *queue.Job) error {
	return h.prepareErr
}

func (h *stubHandler) Execute(ctx context.Context, job *queue.Job) error {
	h.mu.Lock()
	h.executions++
	attempt := h.executions
	fn := h.execFn
	h.mu.Unlock()
	if fn != nil {
		return fn(attempt, job)
	}
	return nil
}

func (h *stubHandler) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy(h.name)
}

func (h *stubHandler) executionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.executions
}

type recordingNotifier struct {
	mu        sync.Mutex
	completed []string
	failed    []string
}

func (n *recordingNotifier) NotifyJobQueued(ctx context.Context, title, kind string) error {
	return nil
}

func (n *recordingNotifier) NotifyJobCompleted(ctx context.Context, title, finalFile string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, finalFile)
	return nil
}

func (n *recordingNotifier) NotifyJobFailed(ctx context.Context, title string, err error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, err.Error())
	return nil
}

func (n *recordingNotifier) TestNotification(ctx context.Context) error { return nil }

func startManager(t *testing.T, fetcher, merger *stubHandler, opts ...testsupport.ConfigOption) (*workflow.Manager, *queue.Store, *recordingNotifier) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Workflow.QueuePollInterval = 1
	store := testsupport.MustOpenStore(t, cfg)
	notifier := &recordingNotifier{}

	manager := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), notifier)
	manager.Configure(workflow.StageSet{Fetcher: fetcher, Merger: merger})
	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(manager.Stop)
	return manager, store, notifier
}

func waitForStatus(t *testing.T, store *queue.Store, id int64, want queue.Status) *queue.Job {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if job.Status == want {
			return job
		}
		time.Sleep(25 * time.Millisecond)
	}
	job, _ := store.GetByID(context.Background(), id)
	t.Fatalf("job never reached %s, last status %s (%s)", want, job.Status, job.ErrorMessage)
	return nil
}

func TestManagerRunsJobThroughPipeline(t *testing.T) {
	fetcher := &stubHandler{name: "fetch"}
	merger := &stubHandler{
		name: "merge",
		execFn: func(attempt int, job *queue.Job) error {
			job.OutputFile = "download_" + job.Token + ".mp4"
			return nil
		},
	}
	manager, store, notifier := startManager(t, fetcher, merger)

	job := testsupport.MustNewJob(t, store, queue.NewJobParams{
		URL: "https://example.com/watch?v=abc",
	})

	done := waitForStatus(t, store, job.ID, queue.StatusCompleted)
	if done.ProgressPercent != 100 {
		t.Errorf("progress = %v", done.ProgressPercent)
	}
	if done.ProgressStage != "Completed" {
		t.Errorf("progress stage = %q", done.ProgressStage)
	}
	if fetcher.executionCount() != 1 || merger.executionCount() != 1 {
		t.Errorf("executions fetch=%d merge=%d", fetcher.executionCount(), merger.executionCount())
	}

	notifier.mu.Lock()
	completed := len(notifier.completed)
	notifier.mu.Unlock()
	if completed != 1 {
		t.Errorf("completion notifications = %d", completed)
	}
	if !manager.Running() {
		t.Error("manager should report running")
	}
}

func TestManagerRetriesTransientFailure(t *testing.T) {
	fetcher := &stubHandler{
		name: "fetch",
		execFn: func(attempt int, job *queue.Job) error {
			if attempt == 1 {
				return services.Wrap(services.ErrTransient, "fetch", "download", "network blip", nil)
			}
			return nil
		},
	}
	merger := &stubHandler{name: "merge"}
	_, store, notifier := startManager(t, fetcher, merger, testsupport.WithMaxAttempts(3))

	job := testsupport.MustNewJob(t, store, queue.NewJobParams{
		URL: "https://example.com/watch?v=abc",
	})

	waitForStatus(t, store, job.ID, queue.StatusCompleted)
	if got := fetcher.executionCount(); got != 2 {
		t.Errorf("fetch executions = %d, want 2", got)
	}

	notifier.mu.Lock()
	failed := len(notifier.failed)
	notifier.mu.Unlock()
	if failed != 0 {
		t.Errorf("transient retry should not notify failure, got %d", failed)
	}
}

func TestManagerFailsPermanentErrorImmediately(t *testing.T) {
	fetcher := &stubHandler{
		name: "fetch",
		execFn: func(attempt int, job *queue.Job) error {
			return services.Wrap(services.ErrValidation, "fetch", "prepare", "bad url", nil)
		},
	}
	merger := &stubHandler{name: "merge"}
	_, store, notifier := startManager(t, fetcher, merger, testsupport.WithMaxAttempts(3))

	job := testsupport.MustNewJob(t, store, queue.NewJobParams{
		URL: "https://example.com/watch?v=abc",
	})

	failedJob := waitForStatus(t, store, job.ID, queue.StatusFailed)
	if fetcher.executionCount() != 1 {
		t.Errorf("fetch executions = %d, want 1", fetcher.executionCount())
	}
	if failedJob.ErrorMessage == "" {
		t.Error("failed job should carry an error message")
	}
	if failedJob.Attempts != 1 {
		t.Errorf("attempts = %d", failedJob.Attempts)
	}

	notifier.mu.Lock()
	failed := len(notifier.failed)
	notifier.mu.Unlock()
	if failed != 1 {
		t.Errorf("failure notifications = %d", failed)
	}
}

func TestManagerExhaustsRetries(t *testing.T) {
	fetcher := &stubHandler{
		name: "fetch",
		execFn: func(attempt int, job *queue.Job) error {
			return services.Wrap(services.ErrExternalTool, "fetch", "download", "exit status 1", nil)
		},
	}
	merger := &stubHandler{name: "merge"}
	_, store, _ := startManager(t, fetcher, merger, testsupport.WithMaxAttempts(2))

	job := testsupport.MustNewJob(t, store, queue.NewJobParams{
		URL: "https://example.com/watch?v=abc",
	})

	failedJob := waitForStatus(t, store, job.ID, queue.StatusFailed)
	if fetcher.executionCount() != 2 {
		t.Errorf("fetch executions = %d, want 2", fetcher.executionCount())
	}
	if failedJob.Attempts != 2 {
		t.Errorf("attempts = %d", failedJob.Attempts)
	}
}

func TestManagerStatusSummary(t *testing.T) {
	fetcher := &stubHandler{name: "fetch"}
	merger := &stubHandler{name: "merge"}
	manager, store, _ := startManager(t, fetcher, merger)

	testsupport.MustNewJob(t, store, queue.NewJobParams{
		URL: "https://example.com/watch?v=abc",
	})

	summary := manager.Status(context.Background())
	if !summary.Running {
		t.Error("summary should report running")
	}
	if len(summary.StageHealth) != 2 {
		t.Fatalf("stage health entries = %d", len(summary.StageHealth))
	}
	for name, health := range summary.StageHealth {
		if !health.Ready {
			t.Errorf("stage %s unhealthy: %s", name, health.Detail)
		}
	}
}

func TestManagerStartRequiresStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	manager := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), &recordingNotifier{})

	if err := manager.Start(context.Background()); err == nil {
		manager.Stop()
		t.Fatal("expected error when stages are not configured")
	}
}
