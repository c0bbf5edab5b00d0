package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"spool/internal/logging"
	"spool/internal/queue"
	"spool/internal/services"
	"spool/internal/stage"
)

func (m *Manager) processJob(ctx context.Context, logger *slog.Logger, job *queue.Job) error {
	stg, ok := m.stageByStart[job.Status]
	if !ok {
		logger.Warn("no stage configured for status", logging.String("status", string(job.Status)))
		m.waitForJobOrShutdown(ctx)
		return nil
	}

	requestID := uuid.NewString()
	stageCtx := services.WithRequestID(services.WithStage(services.WithJobID(ctx, job.ID), stg.name), requestID)
	stageLogger := logging.WithContext(stageCtx, logger).With(
		logging.String(logging.FieldJobToken, job.Token),
	)
	if aware, ok := stg.handler.(stage.LoggerAware); ok {
		aware.SetLogger(stageLogger)
	}

	if err := m.transitionToProcessing(stageCtx, stg.processingStatus, job); err != nil {
		stageLogger.Error("failed to transition job to processing", logging.Error(err))
		m.setLastError(err)
		return err
	}

	return m.executeStage(stageCtx, stageLogger, stg, job)
}

func (m *Manager) executeStage(ctx context.Context, stageLogger *slog.Logger, stg pipelineStage, job *queue.Job) error {
	stageStart := time.Now()
	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(stg.processingStatus)),
		logging.String("url", strings.TrimSpace(job.URL)),
		logging.String("kind", string(job.Kind)),
	)

	handler := stg.handler
	if handler == nil {
		stageLogger.Warn("missing stage handler", logging.String("stage", stg.name))
		job.SetFailed(fmt.Sprintf("stage %s missing handler", stg.name))
		if err := m.store.Update(ctx, job); err != nil {
			stageLogger.Error("failed to persist missing handler failure", logging.Error(err))
		}
		err := errors.New("stage handler unavailable")
		m.setLastError(err)
		return err
	}

	if err := handler.Prepare(ctx, job); err != nil {
		m.handleStageFailure(ctx, stg, job, err)
		m.setLastError(err)
		return err
	}
	if err := m.store.Update(ctx, job); err != nil {
		wrapped := fmt.Errorf("persist stage preparation: %w", err)
		stageLogger.Error("failed to persist stage preparation", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	execErr := m.executeWithHeartbeat(ctx, handler, job)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			stageLogger.Debug("stage interrupted by shutdown")
			return execErr
		}
		m.handleStageFailure(ctx, stg, job, execErr)
		m.setLastError(execErr)
		return execErr
	}

	if job.Status == stg.processingStatus || job.Status == "" {
		job.Status = stg.doneStatus
	}
	job.LastHeartbeat = nil
	if job.Status == queue.StatusCompleted {
		if job.ProgressPercent < 100 {
			job.ProgressPercent = 100
		}
		job.ProgressStage = "Completed"
		if strings.TrimSpace(job.ProgressMessage) == "" {
			job.ProgressMessage = "Completed"
		}
	}
	if err := m.store.Update(ctx, job); err != nil {
		wrapped := fmt.Errorf("persist stage result: %w", err)
		stageLogger.Error("failed to persist stage result", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}
	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(job.Status)),
		logging.String("progress_message", strings.TrimSpace(job.ProgressMessage)),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	m.setLastJob(job)

	if job.Status == queue.StatusCompleted && m.notifier != nil {
		if err := m.notifier.NotifyJobCompleted(ctx, job.Title, job.OutputFile); err != nil {
			stageLogger.Debug("completion notification failed", logging.Error(err))
		}
	}
	return nil
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, handler stage.Handler, job *queue.Job) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, job.ID)

	execErr := handler.Execute(ctx, job)
	hbCancel()
	hbWG.Wait()
	return execErr
}

func (m *Manager) transitionToProcessing(ctx context.Context, processing queue.Status, job *queue.Job) error {
	if processing == "" {
		return errors.New("processing status must not be empty")
	}

	now := time.Now().UTC()
	job.Status = processing
	job.Attempts++
	job.ProgressStage = deriveStageLabel(processing)
	if strings.TrimSpace(job.ProgressMessage) == "" || job.Attempts == 1 {
		job.ProgressMessage = fmt.Sprintf("%s started", deriveStageLabel(processing))
	}
	job.ProgressPercent = 0
	job.ErrorMessage = ""
	job.LastHeartbeat = &now

	if err := m.store.Update(ctx, job); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}
	m.setLastJob(job)
	return nil
}

func (m *Manager) handleStageFailure(ctx context.Context, stg pipelineStage, job *queue.Job, stageErr error) {
	logger := logging.WithContext(ctx, m.logger)

	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		message = fmt.Sprintf("%s failed", stg.name)
	}

	retryable := !services.IsPermanent(stageErr) && job.Attempts < m.cfg.Downloads.MaxAttempts
	if retryable {
		job.Status = stg.startStatus
		job.ErrorMessage = message
		job.ProgressMessage = fmt.Sprintf("Retrying after error (attempt %d of %d)", job.Attempts, m.cfg.Downloads.MaxAttempts)
		job.ProgressPercent = 0
		job.LastHeartbeat = nil
		logger.Warn("stage failed, job requeued",
			logging.String(logging.FieldEventType, "stage_retry"),
			logging.Int("attempt", job.Attempts),
			logging.Int("max_attempts", m.cfg.Downloads.MaxAttempts),
			logging.Error(stageErr),
		)
	} else {
		job.SetFailed(message)
		if workDir := strings.TrimSpace(job.WorkDir); workDir != "" {
			if err := os.RemoveAll(workDir); err != nil {
				logger.Warn("failed work directory cleanup failed",
					logging.String("work_dir", workDir),
					logging.Error(err),
				)
			}
		}
		logger.Error("stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.String("error_message", message),
			logging.Error(stageErr),
		)
	}

	if err := m.store.Update(ctx, job); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not update stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}
	m.setLastJob(job)

	if !retryable && m.notifier != nil {
		if err := m.notifier.NotifyJobFailed(ctx, job.Title, stageErr); err != nil {
			logger.Debug("failure notification failed", logging.Error(err))
		}
	}
}

func deriveStageLabel(status queue.Status) string {
	text := strings.TrimSpace(string(status))
	if text == "" {
		return ""
	}
	return strings.ToUpper(text[:1]) + text[1:]
}
