package testsupport

import (
	"context"
	"testing"

	"spool/internal/config"
	"spool/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open queue store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// MustNewJob enqueues a job for tests.
func MustNewJob(t testing.TB, store *queue.Store, params queue.NewJobParams) *queue.Job {
	t.Helper()

	job, err := store.NewJob(context.Background(), params)
	if err != nil {
		t.Fatalf("enqueue job: %v", err)
	}
	return job
}
