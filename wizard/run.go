package wizard

import (
	"errors"
	"fmt"

	"go.pilab.hu/portal/domain"
	perrors "go.pilab.hu/portal/errors"
)

// ErrStale is returned by Reduce for an asynchronous result whose run is no
// longer the current one. Callers drop such events.
var ErrStale = errors.New("wizard: result for a superseded run")

// Phase is the lifecycle of a run.
type Phase int

const (
	PhaseActive Phase = iota
	PhaseComplete
	PhaseAbandoned
)

func (p Phase) String() string {
	switch p {
	case PhaseComplete:
		return "complete"
	case PhaseAbandoned:
		return "abandoned"
	}
	return "active"
}

// OpStatus is the state of an asynchronous operation owned by the run.
type OpStatus int

const (
	OpIdle OpStatus = iota
	OpPending
	OpSucceeded
	OpFailed
)

func (s OpStatus) String() string {
	switch s {
	case OpPending:
		return "pending"
	case OpSucceeded:
		return "succeeded"
	case OpFailed:
		return "failed"
	}
	return "idle"
}

// CatalogState tracks the catalog fetch of the run.
type CatalogState struct {
	Status   OpStatus
	Policies []domain.InsurancePolicy
	Err      error
}

// QuoteState tracks the single quotation of the run.
type QuoteState struct {
	Status    OpStatus
	Quotation *domain.Quotation
	Err       error
}

// UploadState tracks the latest document upload.
type UploadState struct {
	Status   OpStatus
	FileName string
	Err      error
}

// PaymentState tracks payment of the quotation.
type PaymentState struct {
	Status OpStatus
	Issued *domain.IssuedPolicy
	Err    error
}

// Run is one attempt to acquire a policy. Values are treated as immutable;
// Reduce returns a modified copy.
type Run struct {
	ID        string
	Category  domain.Category
	Steps     []Step
	Current   int
	Completed []bool
	Policy    *domain.InsurancePolicy
	Answers   domain.Answers
	Catalog   CatalogState
	Quote     QuoteState
	Upload    UploadState
	Payment   PaymentState
	Phase     Phase
}

// New returns the run shown before any category is chosen.
func New() Run {
	return Run{
		Steps:     append([]Step(nil), initialSteps...),
		Completed: make([]bool, len(initialSteps)),
	}
}

// Step returns the name of the current step.
func (r Run) Step() Step {
	return r.Steps[r.Current]
}

// Content resolves what the current step renders.
func (r Run) Content() Content {
	return Resolve(r.Step(), r.Category)
}

// CompletedSteps lists the indexes marked completed, ascending.
func (r Run) CompletedSteps() []int {
	var out []int
	for i, done := range r.Completed {
		if done {
			out = append(out, i)
		}
	}
	return out
}

// satisfied reports whether step i counts as done when repairing
// navigation. The category step is satisfied once a category is chosen.
func (r Run) satisfied(i int) bool {
	if r.Completed[i] {
		return true
	}
	return r.Steps[i] == StepSelectType && r.Category != ""
}

// AllStepsComplete reports whether every step is satisfied.
func (r Run) AllStepsComplete() bool {
	for i := range r.Steps {
		if !r.satisfied(i) {
			return false
		}
	}
	return true
}

// Locked reports whether the selections are frozen by a quotation.
func (r Run) Locked() bool {
	return r.Quote.Status == OpPending || r.Quote.Status == OpSucceeded
}

func (r Run) clone() Run {
	r.Steps = append([]Step(nil), r.Steps...)
	r.Completed = append([]bool(nil), r.Completed...)
	return r
}

func (r Run) completeCurrent() Run {
	r.Completed[r.Current] = true
	return r
}

func (r Run) advance() Run {
	last := len(r.Steps) - 1
	if r.Current >= last {
		r.Current = last
		if !r.AllStepsComplete() {
			for i := range r.Steps {
				if !r.satisfied(i) {
					r.Current = i
					break
				}
			}
		}
		return r
	}
	r.Current++
	return r
}

// Event is an input to Reduce. The set is closed.
type Event interface {
	isEvent()
}

type (
	// CategorySelected starts a fresh run with the given id.
	CategorySelected struct {
		RunID    string
		Category domain.Category
	}
	CatalogLoaded struct {
		RunID    string
		Policies []domain.InsurancePolicy
	}
	CatalogFailed struct {
		RunID string
		Err   error
	}
	PolicySelected struct {
		Policy domain.InsurancePolicy
	}
	CoverageConfirmed     struct{}
	UnderwritingSubmitted struct {
		Answers domain.Answers
	}
	Advanced  struct{}
	Retreated struct{}

	QuoteRequested struct {
		RunID string
	}
	QuoteSucceeded struct {
		RunID     string
		Quotation *domain.Quotation
	}
	QuoteFailed struct {
		RunID string
		Err   error
	}

	UploadStarted struct {
		RunID    string
		FileName string
	}
	UploadSucceeded struct {
		RunID string
	}
	UploadFailed struct {
		RunID string
		Err   error
	}

	PaymentStarted struct {
		RunID string
	}
	PaymentSucceeded struct {
		RunID  string
		Issued *domain.IssuedPolicy
	}
	PaymentFailed struct {
		RunID string
		Err   error
	}

	// Abandoned ends the run without a purchase.
	Abandoned struct{}
)

func (CategorySelected) isEvent()      {}
func (CatalogLoaded) isEvent()         {}
func (CatalogFailed) isEvent()         {}
func (PolicySelected) isEvent()        {}
func (CoverageConfirmed) isEvent()     {}
func (UnderwritingSubmitted) isEvent() {}
func (Advanced) isEvent()              {}
func (Retreated) isEvent()             {}
func (QuoteRequested) isEvent()        {}
func (QuoteSucceeded) isEvent()        {}
func (QuoteFailed) isEvent()           {}
func (UploadStarted) isEvent()         {}
func (UploadSucceeded) isEvent()       {}
func (UploadFailed) isEvent()          {}
func (PaymentStarted) isEvent()        {}
func (PaymentSucceeded) isEvent()      {}
func (PaymentFailed) isEvent()         {}
func (Abandoned) isEvent()             {}

// Reduce applies e to r and returns the new run. It performs no I/O. On
// error the returned run equals r.
func Reduce(r Run, e Event) (Run, error) {
	if sel, ok := e.(CategorySelected); ok {
		return selectCategory(r, sel)
	}
	if r.Phase != PhaseActive && !(r.Phase == PhaseComplete && isUploadEvent(e)) {
		return r, perrors.ErrRunNotActive
	}
	if id, ok := runIDOf(e); ok && id != r.ID {
		return r, ErrStale
	}

	next := r.clone()
	switch e := e.(type) {
	case CatalogLoaded:
		next.Catalog = CatalogState{Status: OpSucceeded, Policies: append([]domain.InsurancePolicy(nil), e.Policies...)}
	case CatalogFailed:
		next.Catalog = CatalogState{Status: OpFailed, Err: e.Err}

	case PolicySelected:
		if err := expect[PolicyPicker](r); err != nil {
			return r, err
		}
		if r.Locked() {
			return r, lockedErr()
		}
		if e.Policy.Type.Category() != r.Category {
			return r, perrors.NewValidation(perrors.ErrInvalidStep.Code,
				fmt.Sprintf("A %s policy cannot be used for %s cover.", e.Policy.Type, r.Category))
		}
		p := e.Policy
		next.Policy = &p
		next = next.completeCurrent().advance()

	case CoverageConfirmed:
		if err := expect[CoverageReview](r); err != nil {
			return r, err
		}
		if r.Policy == nil {
			return r, perrors.NewValidation(perrors.ErrInvalidStep.Code, "Select a policy first.")
		}
		next = next.completeCurrent().advance()

	case UnderwritingSubmitted:
		if err := expect[UnderwritingForm](r); err != nil {
			return r, err
		}
		if r.Locked() {
			return r, lockedErr()
		}
		if r.Policy == nil {
			return r, perrors.NewValidation(perrors.ErrInvalidStep.Code, "Select a policy first.")
		}
		if e.Answers == nil || e.Answers.Category() != r.Category {
			return r, perrors.NewValidation(perrors.ErrInvalidAnswers.Code,
				fmt.Sprintf("Answers must be for %s cover.", r.Category))
		}
		if err := e.Answers.Validate(); err != nil {
			return r, err
		}
		next.Answers = e.Answers
		next = next.completeCurrent().advance()

	case Advanced:
		next = next.advance()
	case Retreated:
		if next.Current > 0 {
			next.Current--
		}

	case QuoteRequested:
		if err := expect[QuotationView](r); err != nil {
			return r, err
		}
		switch r.Quote.Status {
		case OpPending, OpSucceeded:
			return r, nil
		case OpFailed:
			return r, perrors.ErrQuotationFailed
		}
		if r.Policy == nil || r.Answers == nil {
			return r, perrors.NewValidation(perrors.ErrInvalidStep.Code, "Complete the policy and information steps first.")
		}
		next.Quote = QuoteState{Status: OpPending}
	case QuoteSucceeded:
		if r.Quote.Status == OpFailed {
			return r, perrors.ErrQuotationFailed
		}
		next.Quote = QuoteState{Status: OpSucceeded, Quotation: e.Quotation}
		if i := indexOf(next.Steps, StepQuotation); i >= 0 {
			next.Completed[i] = true
		}
	case QuoteFailed:
		if r.Quote.Status == OpSucceeded {
			return r, nil
		}
		next.Quote = QuoteState{Status: OpFailed, Err: e.Err}

	case UploadStarted:
		if err := requireQuotation(r); err != nil {
			return r, err
		}
		if r.Upload.Status == OpPending {
			return r, perrors.NewValidation(perrors.ErrInvalidStep.Code, "A document is already being uploaded.")
		}
		next.Upload = UploadState{Status: OpPending, FileName: e.FileName}
	case UploadSucceeded:
		next.Upload.Status, next.Upload.Err = OpSucceeded, nil
	case UploadFailed:
		next.Upload.Status, next.Upload.Err = OpFailed, e.Err

	case PaymentStarted:
		if err := requireQuotation(r); err != nil {
			return r, err
		}
		if r.Payment.Status == OpPending {
			return r, perrors.NewValidation(perrors.ErrInvalidStep.Code, "A payment is already being processed.")
		}
		next.Payment = PaymentState{Status: OpPending}
	case PaymentSucceeded:
		next.Payment = PaymentState{Status: OpSucceeded, Issued: e.Issued}
		next.Phase = PhaseComplete
	case PaymentFailed:
		next.Payment = PaymentState{Status: OpFailed, Err: e.Err}

	case Abandoned:
		next.Phase = PhaseAbandoned

	default:
		return r, fmt.Errorf("wizard: unknown event %T", e)
	}
	return next, nil
}

func selectCategory(r Run, e CategorySelected) (Run, error) {
	steps, ok := StepsFor(e.Category)
	if !ok {
		return r, perrors.NewValidation("unknown_category", fmt.Sprintf("Unknown insurance type %q.", e.Category))
	}
	current := 1
	if len(steps) < 2 {
		current = 0
	}
	return Run{
		ID:        e.RunID,
		Category:  e.Category,
		Steps:     steps,
		Current:   current,
		Completed: make([]bool, len(steps)),
		Catalog:   CatalogState{Status: OpPending},
	}, nil
}

func runIDOf(e Event) (string, bool) {
	switch e := e.(type) {
	case CatalogLoaded:
		return e.RunID, true
	case CatalogFailed:
		return e.RunID, true
	case QuoteRequested:
		return e.RunID, true
	case QuoteSucceeded:
		return e.RunID, true
	case QuoteFailed:
		return e.RunID, true
	case UploadStarted:
		return e.RunID, true
	case UploadSucceeded:
		return e.RunID, true
	case UploadFailed:
		return e.RunID, true
	case PaymentStarted:
		return e.RunID, true
	case PaymentSucceeded:
		return e.RunID, true
	case PaymentFailed:
		return e.RunID, true
	}
	return "", false
}

// isUploadEvent reports events still accepted after payment: the document
// upload is independent of it.
func isUploadEvent(e Event) bool {
	switch e.(type) {
	case UploadStarted, UploadSucceeded, UploadFailed:
		return true
	}
	return false
}

func expect[C Content](r Run) error {
	if _, ok := r.Content().(C); !ok {
		return perrors.NewValidation(perrors.ErrInvalidStep.Code,
			fmt.Sprintf("That action is not available on step %q.", r.Step()))
	}
	return nil
}

func requireQuotation(r Run) error {
	switch r.Quote.Status {
	case OpSucceeded:
		return nil
	case OpFailed:
		return perrors.ErrQuotationFailed
	}
	return perrors.ErrNoQuotation
}

func lockedErr() error {
	return perrors.NewValidation(perrors.ErrInvalidStep.Code,
		"The quotation has been requested. Start a new application to change your selections.")
}

func indexOf(steps []Step, s Step) int {
	for i, v := range steps {
		if v == s {
			return i
		}
	}
	return -1
}
