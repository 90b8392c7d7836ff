package services

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gammazero/workerpool"

	"finanze/internal/amqp"
	"finanze/internal/core"
	"finanze/internal/log"
	"finanze/internal/sheets"
	"finanze/internal/storage"
)

// ExportService writes the stored data to the configured sheets. With a
// publisher the request is queued and a worker calls Run.
type ExportService struct {
	repo      *storage.SQLiteRepository
	settings  SettingsLoader
	sheets    sheets.ReadWriter
	publisher JobPublisher
	workers   int
	running   sync.Mutex
	logger    *log.Logger
	now       func() time.Time
}

// NewExportService accepts a nil publisher, in which case exports run
// inline. A nil sheets adapter makes every export fail with
// core.ErrExportNotConfigured.
func NewExportService(repo *storage.SQLiteRepository, settings SettingsLoader, rw sheets.ReadWriter, publisher JobPublisher, workers int, logger *log.Logger) *ExportService {
	if workers < 1 {
		workers = 1
	}
	return &ExportService{
		repo:      repo,
		settings:  settings,
		sheets:    rw,
		publisher: publisher,
		workers:   workers,
		logger:    logger.WithComponent(log.ComponentExport),
		now:       time.Now,
	}
}

// Export validates the request and either enqueues it or runs it.
func (s *ExportService) Export(ctx context.Context, req core.ExportRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if s.publisher != nil {
		msg := amqp.NewExportJobMessage(req.Target)
		if err := s.publisher.PublishExportJob(ctx, msg); err != nil {
			return errors.Wrap(err, "enqueue export")
		}
		s.logger.InfoContext(ctx, "Export enqueued", log.FieldJobID, msg.ID, log.FieldTarget, req.Target)
		return nil
	}
	return s.Run(ctx, req.Target)
}

type sheetJob struct {
	cfg     core.SheetConfig
	records []sheets.Record
}

// Run exports every configured sheet. Only one export runs at a time.
func (s *ExportService) Run(ctx context.Context, target core.ExportTarget) error {
	if target != core.GoogleSheets {
		return errors.Wrapf(core.ErrUnsupportedExport, "%q", string(target))
	}
	if s.sheets == nil {
		return errors.Wrap(core.ErrExportNotConfigured, "no sheets credentials")
	}
	if !s.running.TryLock() {
		return errors.Wrap(core.ErrExecutionConflict, "export")
	}
	defer s.running.Unlock()

	cfg, err := s.settings.Load(ctx)
	if err != nil {
		return errors.Wrap(err, "load settings")
	}
	jobs, err := s.jobs(ctx, cfg.ApplyGlobals().Export.Sheets)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		s.logger.WarnContext(ctx, "No sheets configured, nothing to export")
		return nil
	}

	var (
		mu       sync.Mutex
		failures []error
		now      = s.now()
	)
	wp := workerpool.New(s.workers)
	for _, job := range jobs {
		job := job
		wp.Submit(func() {
			n, err := sheets.Export(ctx, s.sheets, job.cfg, job.records, now)
			switch {
			case errors.Is(err, sheets.ErrEmptySheet), errors.Is(err, sheets.ErrNoHeaders):
				s.logger.WarnContext(ctx, "Skipping sheet without headers", log.FieldSheetRange, job.cfg.Range)
			case err != nil:
				s.logger.ErrorContext(ctx, "Sheet export failed", log.FieldSheetRange, job.cfg.Range, log.FieldError, err)
				mu.Lock()
				failures = append(failures, err)
				mu.Unlock()
			default:
				s.logger.DebugContext(ctx, "Sheet exported", log.FieldSheetRange, job.cfg.Range, "rows", n)
			}
		})
	}
	wp.StopWait()

	if len(failures) > 0 {
		return errors.Wrapf(failures[0], "%d of %d sheets failed", len(failures), len(jobs))
	}
	s.logger.InfoContext(ctx, "Export completed", log.FieldTarget, target, "sheets", len(jobs))
	return nil
}

// jobs builds the records of every configured sheet from the stored
// snapshots.
func (s *ExportService) jobs(ctx context.Context, cfg core.SheetsSettings) ([]sheetJob, error) {
	snapshots, err := s.repo.Snapshots(ctx)
	if err != nil {
		return nil, err
	}
	entities, err := s.repo.ListEntities(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(entities))
	for _, e := range entities {
		names[e.ID] = e.Name
	}

	var (
		positions     []core.GlobalPosition
		contributions []core.AutoContribution
		transactions  []core.Transaction
		historic      []core.HistoricEntry
	)
	for _, snap := range snapshots {
		if snap.Data.Position != nil {
			positions = append(positions, *snap.Data.Position)
		}
		contributions = append(contributions, snap.Data.AutoContributions...)
		transactions = append(transactions, snap.Data.Transactions...)
		historic = append(historic, snap.Data.Historic...)
	}

	var jobs []sheetJob
	add := func(cs []core.SheetConfig, records []sheets.Record) {
		for _, c := range cs {
			jobs = append(jobs, sheetJob{cfg: c, records: records})
		}
	}
	add(cfg.Position, sheets.PositionRecords(positions, names))
	add(cfg.Contributions, sheets.ContributionRecords(contributions, names))
	add(cfg.Transactions, sheets.TransactionRecords(transactions, names))
	add(cfg.Historic, sheets.HistoricRecords(historic, names))
	return jobs, nil
}
