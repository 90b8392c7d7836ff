package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cockroachdb/errors"

	"finanze/internal/amqp"
	"finanze/internal/core"
)

// Exporter runs one export to completion.
type Exporter interface {
	Run(ctx context.Context, target core.ExportTarget) error
}

// ExportWorker runs export jobs received from AMQP.
type ExportWorker struct {
	exporter Exporter
}

func NewExportWorker(exporter Exporter) *ExportWorker {
	return &ExportWorker{exporter: exporter}
}

// HandleExportJob processes a single export job message. Returning an error
// requeues the message, so failures that a retry cannot fix are logged and
// acknowledged instead.
func (w *ExportWorker) HandleExportJob(ctx context.Context, msg *amqp.ExportJobMessage) error {
	slog.InfoContext(ctx, "Processing export job",
		"id", msg.ID,
		"target", msg.Target,
		"timestamp", msg.Timestamp)

	err := w.exporter.Run(ctx, msg.Target)
	switch {
	case err == nil:
		slog.InfoContext(ctx, "Export job completed", "id", msg.ID)
		return nil

	case errors.Is(err, core.ErrExecutionConflict):
		// The export already running writes the same data.
		slog.InfoContext(ctx, "Export already running, dropping job", "id", msg.ID)
		return nil

	case errors.Is(err, core.ErrUnsupportedExport), errors.Is(err, core.ErrExportNotConfigured):
		slog.ErrorContext(ctx, "Export job cannot run, dropping it",
			"id", msg.ID,
			"error", err)
		return nil
	}

	slog.ErrorContext(ctx, "Export job failed",
		"id", msg.ID,
		"error", err)
	return fmt.Errorf("run export %s: %w", msg.ID, err)
}
