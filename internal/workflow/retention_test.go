package workflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"spool/internal/logging"
	"spool/internal/queue"
	"spool/internal/testsupport"
)

func TestSweepExpiredRemovesJobAndFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	// A cutoff in the future makes every completed job eligible without
	// having to age rows in the database.
	cfg.Downloads.RetentionDays = -1
	store := testsupport.MustOpenStore(t, cfg)
	manager := NewManagerWithNotifier(cfg, store, logging.NewNop(), nil)

	job := testsupport.MustNewJob(t, store, queue.NewJobParams{
		URL: "https://example.com/watch?v=abc",
	})
	job.Status = queue.StatusCompleted
	job.OutputFile = "download_" + job.Token + ".mp4"
	if err := store.Update(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	outputPath := filepath.Join(cfg.Paths.DownloadDir, job.OutputFile)
	testsupport.WriteFile(t, outputPath, 32)

	pending := testsupport.MustNewJob(t, store, queue.NewJobParams{
		URL: "https://example.com/watch?v=def",
	})

	manager.sweepExpired(context.Background(), logging.NewNop())

	if _, err := os.Stat(outputPath); !os.IsNotExist(err) {
		t.Errorf("expired file still present: %v", err)
	}
	removed, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if removed != nil {
		t.Error("expired job still in queue")
	}
	kept, err := store.GetByID(context.Background(), pending.ID)
	if err != nil {
		t.Fatal(err)
	}
	if kept == nil {
		t.Error("pending job should survive the sweep")
	}
}

func TestSweepExpiredToleratesMissingFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Downloads.RetentionDays = -1
	store := testsupport.MustOpenStore(t, cfg)
	manager := NewManagerWithNotifier(cfg, store, logging.NewNop(), nil)

	job := testsupport.MustNewJob(t, store, queue.NewJobParams{
		URL: "https://example.com/watch?v=abc",
	})
	job.Status = queue.StatusCompleted
	job.OutputFile = "download_" + job.Token + ".mp4"
	if err := store.Update(context.Background(), job); err != nil {
		t.Fatal(err)
	}

	manager.sweepExpired(context.Background(), logging.NewNop())

	removed, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if removed != nil {
		t.Error("expired job still in queue")
	}
}
