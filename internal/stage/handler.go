package stage

import (
	"context"
	"log/slog"

	"spool/internal/queue"
)

// Handler describes the contract the workflow manager needs from each stage.
type Handler interface {
	Prepare(context.Context, *queue.Job) error
	Execute(context.Context, *queue.Job) error
	HealthCheck(context.Context) Health
}

// LoggerAware lets the manager hand each handler a stage-scoped logger before
// execution.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}
