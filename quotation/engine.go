// Package quotation requests price quotations, at most once per wizard run.
package quotation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"go.pilab.hu/portal/domain"
	perrors "go.pilab.hu/portal/errors"
	"go.pilab.hu/portal/internal/metrics"
	"go.pilab.hu/portal/log"
)

// DefaultRetention is how long a finished quotation stays attached to its run.
const DefaultRetention = time.Hour

// Generator is the remote quotation contract.
type Generator interface {
	GenerateQuote(ctx context.Context, req domain.QuoteRequest) (*domain.Quotation, error)
}

// call is the shared future of one run's quotation.
type call struct {
	done  chan struct{}
	quote *domain.Quotation
	err   error
}

// Engine issues the generate-quote call once per run. Later and concurrent
// callers for the same run attach to the first call's result, including
// its failure.
type Engine struct {
	gen       Generator
	logger    log.Logger
	retention time.Duration

	mu    sync.Mutex
	calls *ttlcache.Cache[string, *call]
}

// NewEngine creates an engine. Close releases its cleanup goroutine.
func NewEngine(gen Generator, logger log.Logger) *Engine {
	if logger == nil {
		logger = log.Nop()
	}
	calls := ttlcache.New(ttlcache.WithDisableTouchOnHit[string, *call]())
	go calls.Start()

	return &Engine{
		gen:       gen,
		logger:    logger.With(map[string]interface{}{"component": "quotation"}),
		retention: DefaultRetention,
		calls:     calls,
	}
}

// Generate returns the quotation for runID, requesting it if this is the
// first call for the run. Answers are validated before anything is sent.
// Cancelling ctx stops the wait, not the request: the result is still
// recorded for the run.
func (e *Engine) Generate(ctx context.Context, runID, policyID string, category domain.Category, answers domain.Answers) (*domain.Quotation, error) {
	if runID == "" || policyID == "" {
		return nil, perrors.NewValidation(perrors.ErrInvalidStep.Code, "A policy must be selected before requesting a quotation.")
	}
	if answers == nil || answers.Category() != category {
		return nil, perrors.NewValidation(perrors.ErrInvalidAnswers.Code,
			fmt.Sprintf("Answers must be for %s cover.", category))
	}
	if err := answers.Validate(); err != nil {
		return nil, err
	}

	c, started := e.register(runID)
	if started {
		req := domain.NewQuoteRequest(policyID, answers)
		go e.execute(context.WithoutCancel(ctx), runID, c, req)
	} else {
		metrics.QuotationsTotal.WithLabelValues("joined").Inc()
	}

	select {
	case <-c.done:
		return c.quote, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// register returns the run's call, creating it when absent. The entry is
// in place before the remote call starts.
func (e *Engine) register(runID string) (*call, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if item := e.calls.Get(runID); item != nil {
		return item.Value(), false
	}
	c := &call{done: make(chan struct{})}
	e.calls.Set(runID, c, ttlcache.NoTTL)
	return c, true
}

func (e *Engine) execute(ctx context.Context, runID string, c *call, req domain.QuoteRequest) {
	q, err := e.gen.GenerateQuote(ctx, req)
	if err == nil {
		err = check(q, req)
	}
	if err != nil {
		metrics.QuotationsTotal.WithLabelValues("failed").Inc()
		e.logger.Warn(ctx, "quotation failed", map[string]interface{}{
			"run_id": runID, "policy_id": req.PolicyID, "kind": string(perrors.KindOf(err)),
		})
		c.err = fmt.Errorf("generate quotation: %w", err)
	} else {
		metrics.QuotationsTotal.WithLabelValues("ok").Inc()
		e.logger.Info(ctx, "quotation generated", map[string]interface{}{
			"run_id": runID, "quote_id": q.QuoteID, "total": q.Breakdown.Total.String(),
		})
		c.quote = q
	}
	close(c.done)

	e.mu.Lock()
	defer e.mu.Unlock()
	if item := e.calls.Get(runID); item != nil && item.Value() == c {
		e.calls.Set(runID, c, e.retention)
	}
}

func check(q *domain.Quotation, req domain.QuoteRequest) error {
	const path = "/insurance/generate-quote"
	if q == nil || q.QuoteID == "" {
		return perrors.NewServer(0, "invalid_quotation", "", path)
	}
	if q.Policy.ID != "" && q.Policy.ID != req.PolicyID {
		return perrors.NewServer(0, "invalid_quotation", "", path)
	}
	if !q.Breakdown.Balanced() {
		return perrors.NewServer(0, "unbalanced_quotation",
			"The quotation breakdown does not add up to its total.", path)
	}
	return nil
}

// Forget detaches runID. A call still in flight completes but its result is
// no longer reachable through the engine.
func (e *Engine) Forget(runID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls.Delete(runID)
}

// Close stops the retention cleanup.
func (e *Engine) Close() error {
	e.calls.Stop()
	return nil
}

// IsFailure reports whether err is a recorded quotation failure, as opposed
// to a local validation error or the caller giving up waiting.
func IsFailure(err error) bool {
	if err == nil {
		return false
	}
	if kind := perrors.KindOf(err); kind != "" {
		return kind != perrors.KindValidation
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
