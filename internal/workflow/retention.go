package workflow

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"spool/internal/logging"
)

const retentionSweepInterval = time.Hour

// runRetentionSweep periodically removes completed jobs older than the
// configured retention window, together with their published files.
func (m *Manager) runRetentionSweep(ctx context.Context) {
	defer m.wg.Done()
	if m.cfg.Downloads.RetentionDays <= 0 {
		return
	}
	logger := logging.NewComponentLogger(m.logger, "retention")

	ticker := time.NewTicker(retentionSweepInterval)
	defer ticker.Stop()

	m.sweepExpired(ctx, logger)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweepExpired(ctx, logger)
		}
	}
}

func (m *Manager) sweepExpired(ctx context.Context, logger *slog.Logger) {
	cutoff := time.Now().UTC().AddDate(0, 0, -m.cfg.Downloads.RetentionDays)
	jobs, err := m.store.CompletedOlderThan(ctx, cutoff)
	if err != nil {
		logger.Warn("retention query failed", logging.Error(err))
		return
	}
	for _, job := range jobs {
		if file := strings.TrimSpace(job.OutputFile); file != "" {
			target := file
			if !filepath.IsAbs(target) {
				target = filepath.Join(m.cfg.Paths.DownloadDir, target)
			}
			if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
				logger.Warn("failed to remove expired download",
					logging.String("file", target),
					logging.Error(err),
				)
				continue
			}
		}
		if _, err := m.store.Remove(ctx, job.ID); err != nil {
			logger.Warn("failed to remove expired job",
				logging.Int64(logging.FieldJobID, job.ID),
				logging.Error(err),
			)
			continue
		}
		logger.Info("expired download removed",
			logging.Int64(logging.FieldJobID, job.ID),
			logging.String(logging.FieldJobToken, job.Token),
		)
	}
}
