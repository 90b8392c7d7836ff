package worker

import (
	"context"
	"errors"
	"testing"

	cerrors "github.com/cockroachdb/errors"

	"finanze/internal/amqp"
	"finanze/internal/core"
)

type fakeExporter struct {
	err     error
	targets []core.ExportTarget
}

func (f *fakeExporter) Run(_ context.Context, target core.ExportTarget) error {
	f.targets = append(f.targets, target)
	return f.err
}

func TestExportWorker_HandleExportJob(t *testing.T) {
	transient := errors.New("sheets unavailable")

	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{name: "success"},
		{name: "conflict is dropped", err: cerrors.Wrap(core.ErrExecutionConflict, "export")},
		{name: "not configured is dropped", err: cerrors.Wrap(core.ErrExportNotConfigured, "no credentials")},
		{name: "unsupported target is dropped", err: core.ErrUnsupportedExport},
		{name: "transient failure requeues", err: transient, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := &fakeExporter{err: tt.err}
			w := NewExportWorker(exp)
			msg := amqp.NewExportJobMessage(core.GoogleSheets)

			err := w.HandleExportJob(context.Background(), msg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("HandleExportJob() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, transient) {
				t.Errorf("expected wrapped cause, got %v", err)
			}
			if len(exp.targets) != 1 || exp.targets[0] != core.GoogleSheets {
				t.Errorf("Run called with %v", exp.targets)
			}
		})
	}
}
