package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"smartledger/internal/core"
)

// DefaultConcurrency bounds how many detectors run at once.
const DefaultConcurrency = 4

// Result lists the alerts inserted by one Run, in detector order.
type Result struct {
	Kinds []core.AlertKind
	IDs   []int64
}

// Raised reports whether kind was emitted.
func (r Result) Raised(kind core.AlertKind) bool {
	for _, k := range r.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Engine runs a fixed set of detectors against one trigger transaction.
type Engine struct {
	detectors []Detector
	limit     int
}

type EngineOption func(*Engine)

// WithConcurrency sets the number of detectors run in parallel. Values
// below one mean sequential.
func WithConcurrency(n int) EngineOption {
	return func(e *Engine) {
		if n < 1 {
			n = 1
		}
		e.limit = n
	}
}

func NewEngine(detectors []Detector, opts ...EngineOption) *Engine {
	e := &Engine{detectors: detectors, limit: DefaultConcurrency}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes every detector. The first failure cancels the detectors that
// have not finished and is returned; the caller must then roll back.
func (e *Engine) Run(ctx context.Context, l Ledger, userID, txID int64) (Result, error) {
	recorders := make([]*recordingLedger, len(e.detectors))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.limit)
	for i, d := range e.detectors {
		d := d
		rec := &recordingLedger{Ledger: l}
		recorders[i] = rec
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := d.Detect(gctx, rec, userID, txID); err != nil {
				return fmt.Errorf("detector %s: %w", d.Name(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.ErrorContext(ctx, "Alert detection failed",
			"user_id", userID, "transaction_id", txID, "error", err)
		return Result{}, err
	}

	var res Result
	for _, rec := range recorders {
		res.Kinds = append(res.Kinds, rec.kinds...)
		res.IDs = append(res.IDs, rec.ids...)
	}
	if len(res.Kinds) > 0 {
		slog.InfoContext(ctx, "Alerts raised",
			"user_id", userID, "transaction_id", txID, "kinds", res.Kinds)
	}
	return res, nil
}

// recordingLedger remembers what one detector inserted.
type recordingLedger struct {
	Ledger
	mu    sync.Mutex
	kinds []core.AlertKind
	ids   []int64
}

func (r *recordingLedger) InsertAlert(ctx context.Context, a core.NewAlert) (int64, error) {
	id, err := r.Ledger.InsertAlert(ctx, a)
	if err != nil {
		return 0, err
	}
	r.mu.Lock()
	r.kinds = append(r.kinds, a.Kind)
	r.ids = append(r.ids, id)
	r.mu.Unlock()
	return id, nil
}
