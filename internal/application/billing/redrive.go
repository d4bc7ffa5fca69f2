package billing

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	"github.com/jhoicas/facturacion-sri/internal/domain/repository"
	"github.com/jhoicas/facturacion-sri/internal/infrastructure/metrics"
	"github.com/jhoicas/facturacion-sri/pkg/config"
	"github.com/jhoicas/facturacion-sri/pkg/logger"
)

// RedriveReport resume una pasada del re-drive.
type RedriveReport struct {
	Scanned    int `json:"scanned"`
	Authorized int `json:"authorized"`
	Rejected   int `json:"rejected"`
	Pending    int `json:"pending"` // siguen en SIGNED/SUBMITTED
	Failed     int `json:"failed"`
}

// Redriver retoma los documentos SIGNED/SUBMITTED cuyo NextRetryAt venció.
type Redriver struct {
	documents repository.DocumentRepository
	processor Processor
	cfg       config.RedriveConfig
	log       *logger.Logger
	metrics   *metrics.Metrics
}

func NewRedriver(
	documents repository.DocumentRepository,
	processor Processor,
	cfg config.RedriveConfig,
	log *logger.Logger,
	m *metrics.Metrics,
) *Redriver {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Batch <= 0 {
		cfg.Batch = 50
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Redriver{
		documents: documents,
		processor: processor,
		cfg:       cfg,
		log:       log.Component("redrive"),
		metrics:   m,
	}
}

// Run ejecuta RunOnceAt en cada tick hasta que ctx se cancele. Con Interval 0 no hace nada.
func (r *Redriver) Run(ctx context.Context) error {
	if r.cfg.Interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := r.RunOnceAt(ctx, time.Now()); err != nil {
				r.log.Error().Err(err).Msg("pasada de re-drive fallida")
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnceAt procesa un lote de documentos vencidos a la fecha now, con concurrencia acotada.
func (r *Redriver) RunOnceAt(ctx context.Context, now time.Time) (*RedriveReport, error) {
	due, err := r.documents.ListDueForRedrive(ctx, now, r.cfg.Batch)
	if err != nil {
		return nil, err
	}
	report := &RedriveReport{Scanned: len(due)}
	if len(due) == 0 {
		return report, nil
	}

	var authorized, rejected, pending, failed atomic.Int64
	p := pool.New().WithContext(ctx).WithMaxGoroutines(r.cfg.Concurrency)
	for _, d := range due {
		id := d.ID
		p.Go(func(ctx context.Context) error {
			doc, err := r.processor.Process(ctx, id)
			result := "pending"
			switch {
			case doc != nil && doc.Status == entity.StatusAuthorized:
				result = "authorized"
				authorized.Add(1)
			case doc != nil && doc.Status.IsTerminal():
				result = "rejected"
				rejected.Add(1)
			case err != nil && doc == nil:
				result = "failed"
				failed.Add(1)
			default:
				pending.Add(1)
			}
			r.metrics.IncRedriven(result)
			if err != nil {
				r.log.Warn().Err(err).Str("document_id", id).Msg("re-drive sin disposición final")
			}
			// Un documento que no avanza no detiene al resto del lote.
			return nil
		})
	}
	_ = p.Wait()

	report.Authorized = int(authorized.Load())
	report.Rejected = int(rejected.Load())
	report.Pending = int(pending.Load())
	report.Failed = int(failed.Load())
	r.log.Info().Int("scanned", report.Scanned).Int("authorized", report.Authorized).
		Int("rejected", report.Rejected).Int("pending", report.Pending).Int("failed", report.Failed).
		Msg("pasada de re-drive")
	return report, nil
}
