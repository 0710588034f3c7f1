package wizard

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"go.pilab.hu/portal/domain"
	perrors "go.pilab.hu/portal/errors"
	"go.pilab.hu/portal/log"
	"go.pilab.hu/portal/quotation"
	"go.pilab.hu/portal/upload"
)

// CatalogSource lists the purchasable policies of a category.
type CatalogSource interface {
	PoliciesByCategory(ctx context.Context, category domain.Category) ([]domain.InsurancePolicy, error)
}

// Quoter requests the quotation of a run.
type Quoter interface {
	Generate(ctx context.Context, runID, policyID string, category domain.Category, answers domain.Answers) (*domain.Quotation, error)
	Forget(runID string)
}

// DocumentSender uploads a supporting document for a quotation.
type DocumentSender interface {
	Upload(ctx context.Context, quoteID string, f upload.File) error
}

// PaymentSender pays a quotation.
type PaymentSender interface {
	Pay(ctx context.Context, quoteID string) (domain.IssuedPolicy, error)
}

// Controller owns the current run and performs its side effects. Results
// of asynchronous work are applied only while the run that started them is
// still the current one.
type Controller struct {
	catalog  CatalogSource
	quoter   Quoter
	uploader DocumentSender
	payer    PaymentSender
	logger   log.Logger
	newID    func() string

	mu            sync.Mutex
	run           Run
	cancelCatalog context.CancelFunc
	catalogDone   chan struct{}
}

// NewController creates a controller showing the category step.
func NewController(catalog CatalogSource, quoter Quoter, uploader DocumentSender, payer PaymentSender, logger log.Logger) *Controller {
	if logger == nil {
		logger = log.Nop()
	}
	return &Controller{
		catalog:  catalog,
		quoter:   quoter,
		uploader: uploader,
		payer:    payer,
		logger:   logger.With(map[string]interface{}{"component": "wizard"}),
		newID:    uuid.NewString,
		run:      New(),
	}
}

// Snapshot returns a copy of the current run.
func (c *Controller) Snapshot() Run {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run.clone()
}

// Content resolves what the current step renders.
func (c *Controller) Content() Content {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run.Content()
}

func (c *Controller) apply(e Event) (Run, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applyLocked(e)
}

func (c *Controller) applyLocked(e Event) (Run, error) {
	next, err := Reduce(c.run, e)
	if err != nil {
		return c.run.clone(), err
	}
	c.run = next
	return next.clone(), nil
}

// SelectCategory starts a new run for category and fetches its catalog in
// the background. Any previous run is discarded along with its pending
// work. Use AwaitCatalog to wait for the fetch.
func (c *Controller) SelectCategory(ctx context.Context, category domain.Category) (Run, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.run.ID
	run, err := c.applyLocked(CategorySelected{RunID: c.newID(), Category: category})
	if err != nil {
		return run, err
	}
	c.stopCatalogLocked()
	if prev != "" {
		c.quoter.Forget(prev)
	}

	fetchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	c.cancelCatalog, c.catalogDone = cancel, done

	go c.fetchCatalog(fetchCtx, run.ID, category, done)

	c.logger.Debug(ctx, "wizard run started", map[string]interface{}{"run_id": run.ID, "category": string(category)})
	return run, nil
}

func (c *Controller) fetchCatalog(ctx context.Context, runID string, category domain.Category, done chan struct{}) {
	defer close(done)

	policies, err := c.catalog.PoliciesByCategory(ctx, category)
	var e Event = CatalogLoaded{RunID: runID, Policies: policies}
	if err != nil {
		e = CatalogFailed{RunID: runID, Err: err}
	}
	if _, err := c.apply(e); err != nil {
		c.logger.Debug(ctx, "catalog result discarded", map[string]interface{}{"run_id": runID, "reason": err.Error()})
	}
}

func (c *Controller) stopCatalogLocked() {
	if c.cancelCatalog != nil {
		c.cancelCatalog()
		c.cancelCatalog = nil
	}
}

// AwaitCatalog blocks until the catalog fetch of the current run settles
// and returns its policies or its error.
func (c *Controller) AwaitCatalog(ctx context.Context) ([]domain.InsurancePolicy, error) {
	c.mu.Lock()
	done, runID := c.catalogDone, c.run.ID
	c.mu.Unlock()

	if done == nil {
		return nil, perrors.NewValidation(perrors.ErrInvalidStep.Code, "Choose an insurance type first.")
	}
	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.run.ID != runID {
		return nil, perrors.ErrRunNotActive
	}
	if c.run.Catalog.Status == OpFailed {
		return nil, c.run.Catalog.Err
	}
	return append([]domain.InsurancePolicy(nil), c.run.Catalog.Policies...), nil
}

// SelectPolicy picks policyID from the loaded catalog.
func (c *Controller) SelectPolicy(policyID string) (Run, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := domain.FindPolicy(c.run.Catalog.Policies, policyID)
	if !ok {
		return c.run.clone(), perrors.NewValidation(perrors.ErrInvalidStep.Code, "Select one of the listed policies.")
	}
	return c.applyLocked(PolicySelected{Policy: p})
}

// ConfirmCoverage accepts the coverage review.
func (c *Controller) ConfirmCoverage() (Run, error) {
	return c.apply(CoverageConfirmed{})
}

// SubmitUnderwriting records the underwriting answers.
func (c *Controller) SubmitUnderwriting(answers domain.Answers) (Run, error) {
	return c.apply(UnderwritingSubmitted{Answers: answers})
}

func (c *Controller) Advance() (Run, error) {
	return c.apply(Advanced{})
}

func (c *Controller) Retreat() (Run, error) {
	return c.apply(Retreated{})
}

// RequestQuote returns the quotation of the current run, requesting it on
// the first call. A failed quotation stays failed for the run.
func (c *Controller) RequestQuote(ctx context.Context) (*domain.Quotation, error) {
	c.mu.Lock()
	run, err := c.applyLocked(QuoteRequested{RunID: c.run.ID})
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if run.Quote.Status == OpSucceeded {
		return run.Quote.Quotation, nil
	}

	q, err := c.quoter.Generate(ctx, run.ID, run.Policy.ID, run.Category, run.Answers)
	if err != nil && !quotation.IsFailure(err) {
		// The run stays pending; a later call attaches to the same request.
		return nil, err
	}

	var e Event = QuoteSucceeded{RunID: run.ID, Quotation: q}
	if err != nil {
		e = QuoteFailed{RunID: run.ID, Err: err}
	}
	after, applyErr := c.apply(e)
	if applyErr != nil {
		if errors.Is(applyErr, ErrStale) || errors.Is(applyErr, perrors.ErrRunNotActive) {
			return nil, perrors.ErrRunNotActive
		}
		return nil, applyErr
	}
	if err != nil {
		return nil, err
	}
	return after.Quote.Quotation, nil
}

// Upload attaches a supporting document to the run's quotation. Allowed
// after payment too.
func (c *Controller) Upload(ctx context.Context, f upload.File) error {
	c.mu.Lock()
	run, err := c.applyLocked(UploadStarted{RunID: c.run.ID, FileName: f.Name})
	c.mu.Unlock()
	if err != nil {
		return err
	}

	err = c.uploader.Upload(ctx, run.Quote.Quotation.QuoteID, f)
	var e Event = UploadSucceeded{RunID: run.ID}
	if err != nil {
		e = UploadFailed{RunID: run.ID, Err: err}
	}
	if _, applyErr := c.apply(e); applyErr != nil {
		c.logger.Debug(ctx, "upload result discarded", map[string]interface{}{"run_id": run.ID, "reason": applyErr.Error()})
	}
	return err
}

// Pay pays the run's quotation. The payment is not abandoned when ctx is
// cancelled once submitted. On failure the run keeps its quotation and
// Pay may be called again.
func (c *Controller) Pay(ctx context.Context) (domain.IssuedPolicy, error) {
	c.mu.Lock()
	run, err := c.applyLocked(PaymentStarted{RunID: c.run.ID})
	c.mu.Unlock()
	if err != nil {
		return domain.IssuedPolicy{}, err
	}

	issued, err := c.payer.Pay(context.WithoutCancel(ctx), run.Quote.Quotation.QuoteID)
	var e Event = PaymentSucceeded{RunID: run.ID, Issued: &issued}
	if err != nil {
		e = PaymentFailed{RunID: run.ID, Err: err}
	}
	if _, applyErr := c.apply(e); applyErr != nil {
		c.logger.Warn(ctx, "payment result arrived for a closed run", map[string]interface{}{
			"run_id": run.ID, "user_policy_id": issued.UserPolicyID,
		})
	}
	return issued, err
}

// Abandon ends the current run. Pending work is cancelled or detached.
func (c *Controller) Abandon() Run {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopCatalogLocked()
	if c.run.ID != "" {
		c.quoter.Forget(c.run.ID)
	}
	run, err := c.applyLocked(Abandoned{})
	if err != nil {
		return c.run.clone()
	}
	return run
}
