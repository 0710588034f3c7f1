package wizard

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"go.pilab.hu/portal/domain"
	perrors "go.pilab.hu/portal/errors"
	"go.pilab.hu/portal/upload"
)

type mockCatalog struct{ mock.Mock }

func (m *mockCatalog) PoliciesByCategory(ctx context.Context, category domain.Category) ([]domain.InsurancePolicy, error) {
	args := m.Called(ctx, category)
	p, _ := args.Get(0).([]domain.InsurancePolicy)
	return p, args.Error(1)
}

type mockQuoter struct{ mock.Mock }

func (m *mockQuoter) Generate(ctx context.Context, runID, policyID string, category domain.Category, answers domain.Answers) (*domain.Quotation, error) {
	args := m.Called(ctx, runID, policyID, category, answers)
	q, _ := args.Get(0).(*domain.Quotation)
	return q, args.Error(1)
}

func (m *mockQuoter) Forget(runID string) {
	m.Called(runID)
}

type mockDocs struct{ mock.Mock }

func (m *mockDocs) Upload(ctx context.Context, quoteID string, f upload.File) error {
	return m.Called(ctx, quoteID, f).Error(0)
}

type mockPayer struct{ mock.Mock }

func (m *mockPayer) Pay(ctx context.Context, quoteID string) (domain.IssuedPolicy, error) {
	args := m.Called(ctx, quoteID)
	p, _ := args.Get(0).(domain.IssuedPolicy)
	return p, args.Error(1)
}

type fixture struct {
	c       *Controller
	catalog *mockCatalog
	quoter  *mockQuoter
	docs    *mockDocs
	payer   *mockPayer
}

func newFixture() *fixture {
	f := &fixture{
		catalog: new(mockCatalog),
		quoter:  new(mockQuoter),
		docs:    new(mockDocs),
		payer:   new(mockPayer),
	}
	f.c = NewController(f.catalog, f.quoter, f.docs, f.payer, nil)
	n := 0
	f.c.newID = func() string {
		n++
		return fmt.Sprintf("run-%d", n)
	}
	f.quoter.On("Forget", mock.Anything).Maybe()
	return f
}

// toQuotation walks a home run up to the quotation step.
func (f *fixture) toQuotation(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	f.catalog.On("PoliciesByCategory", mock.Anything, domain.CategoryHome).
		Return([]domain.InsurancePolicy{homePolicy}, nil).Once()

	_, err := f.c.SelectCategory(ctx, domain.CategoryHome)
	require.NoError(t, err)
	_, err = f.c.AwaitCatalog(ctx)
	require.NoError(t, err)
	_, err = f.c.SelectPolicy("p-home")
	require.NoError(t, err)
	_, err = f.c.ConfirmCoverage()
	require.NoError(t, err)
	_, err = f.c.SubmitUnderwriting(homeAns)
	require.NoError(t, err)
}

func TestController_HomeApplication(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.toQuotation(t)
	assert.IsType(t, QuotationView{}, f.c.Content())

	f.quoter.On("Generate", mock.Anything, "run-1", "p-home", domain.CategoryHome, homeAns).
		Return(quote, nil).Once()
	q, err := f.c.RequestQuote(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Q1", q.QuoteID)

	again, err := f.c.RequestQuote(ctx)
	require.NoError(t, err)
	assert.Same(t, q, again)

	doc := upload.File{Name: "id.pdf", ContentType: upload.ContentTypePDF, Size: 3}
	f.docs.On("Upload", mock.Anything, "Q1", doc).Return(nil).Once()
	require.NoError(t, f.c.Upload(ctx, doc))

	f.payer.On("Pay", mock.Anything, "Q1").Return(domain.IssuedPolicy{UserPolicyID: "up-1"}, nil).Once()
	issued, err := f.c.Pay(ctx)
	require.NoError(t, err)
	assert.Equal(t, "up-1", issued.UserPolicyID)

	run := f.c.Snapshot()
	assert.Equal(t, PhaseComplete, run.Phase)
	assert.Equal(t, OpSucceeded, run.Upload.Status)

	f.catalog.AssertExpectations(t)
	f.quoter.AssertExpectations(t)
	f.docs.AssertExpectations(t)
	f.payer.AssertExpectations(t)
}

func TestController_SelectPolicyNotInCatalog(t *testing.T) {
	f := newFixture()
	f.toQuotation(t)
	_, err := f.c.Retreat()
	require.NoError(t, err)

	_, err = f.c.SelectPolicy("p-unknown")
	assert.True(t, perrors.IsKind(err, perrors.KindValidation))
}

func TestController_StaleCatalogIsDiscarded(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	release := make(chan time.Time)
	f.catalog.On("PoliciesByCategory", mock.Anything, domain.CategoryHome).
		WaitUntil(release).Return([]domain.InsurancePolicy{homePolicy}, nil).Once()
	f.catalog.On("PoliciesByCategory", mock.Anything, domain.CategoryLife).
		Return([]domain.InsurancePolicy{lifePolicy}, nil).Once()

	_, err := f.c.SelectCategory(ctx, domain.CategoryHome)
	require.NoError(t, err)
	homeDone := f.c.catalogDone

	_, err = f.c.SelectCategory(ctx, domain.CategoryLife)
	require.NoError(t, err)
	policies, err := f.c.AwaitCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.InsurancePolicy{lifePolicy}, policies)

	close(release)
	<-homeDone

	run := f.c.Snapshot()
	assert.Equal(t, "run-2", run.ID)
	assert.Equal(t, domain.CategoryLife, run.Category)
	assert.Equal(t, []domain.InsurancePolicy{lifePolicy}, run.Catalog.Policies)
	f.quoter.AssertCalled(t, "Forget", "run-1")
}

func TestController_CatalogFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.catalog.On("PoliciesByCategory", mock.Anything, domain.CategoryAuto).
		Return(nil, perrors.NewNetwork("list policies", errors.New("connection refused"))).Once()

	_, err := f.c.SelectCategory(ctx, domain.CategoryAuto)
	require.NoError(t, err)
	_, err = f.c.AwaitCatalog(ctx)
	assert.True(t, perrors.IsKind(err, perrors.KindNetwork))
	assert.Equal(t, OpFailed, f.c.Snapshot().Catalog.Status)
}

func TestController_QuotationFailureIsTerminal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.toQuotation(t)

	f.quoter.On("Generate", mock.Anything, "run-1", "p-home", domain.CategoryHome, homeAns).
		Return(nil, perrors.NewServer(500, "", "Pricing unavailable", "/insurance/generate-quote")).Once()

	_, err := f.c.RequestQuote(ctx)
	require.Error(t, err)
	assert.True(t, perrors.IsKind(err, perrors.KindServer))

	_, err = f.c.RequestQuote(ctx)
	assert.ErrorIs(t, err, perrors.ErrQuotationFailed)
	f.quoter.AssertNumberOfCalls(t, "Generate", 1)
}

func TestController_QuotationAfterAbandonIsDiscarded(t *testing.T) {
	f := newFixture()
	f.toQuotation(t)

	release := make(chan time.Time)
	f.quoter.On("Generate", mock.Anything, "run-1", "p-home", domain.CategoryHome, homeAns).
		WaitUntil(release).Return(quote, nil).Once()

	errc := make(chan error, 1)
	go func() {
		_, err := f.c.RequestQuote(context.Background())
		errc <- err
	}()
	require.Eventually(t, func() bool {
		return f.c.Snapshot().Quote.Status == OpPending
	}, time.Second, 5*time.Millisecond)

	run := f.c.Abandon()
	assert.Equal(t, PhaseAbandoned, run.Phase)
	close(release)

	assert.ErrorIs(t, <-errc, perrors.ErrRunNotActive)
	assert.Nil(t, f.c.Snapshot().Quote.Quotation)
	f.quoter.AssertCalled(t, "Forget", "run-1")
}

func TestController_CallerGivingUpKeepsQuotePending(t *testing.T) {
	f := newFixture()
	f.toQuotation(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.quoter.On("Generate", mock.Anything, "run-1", "p-home", domain.CategoryHome, homeAns).
		Return(nil, context.Canceled).Once()
	_, err := f.c.RequestQuote(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, OpPending, f.c.Snapshot().Quote.Status)

	f.quoter.On("Generate", mock.Anything, "run-1", "p-home", domain.CategoryHome, homeAns).
		Return(quote, nil).Once()
	q, err := f.c.RequestQuote(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Q1", q.QuoteID)
}

func TestController_PaymentFailureKeepsQuotation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.toQuotation(t)
	f.quoter.On("Generate", mock.Anything, "run-1", "p-home", domain.CategoryHome, homeAns).Return(quote, nil).Once()
	_, err := f.c.RequestQuote(ctx)
	require.NoError(t, err)

	f.payer.On("Pay", mock.Anything, "Q1").
		Return(domain.IssuedPolicy{}, perrors.NewServer(402, "", "Card declined", "/insurance/payment")).Once()
	_, err = f.c.Pay(ctx)
	require.Error(t, err)
	assert.Equal(t, "Card declined", perrors.UserMessage(err))

	run := f.c.Snapshot()
	assert.Equal(t, PhaseActive, run.Phase)
	assert.Equal(t, StepQuotation, run.Step())
	assert.Same(t, quote, run.Quote.Quotation)

	f.payer.On("Pay", mock.Anything, "Q1").Return(domain.IssuedPolicy{UserPolicyID: "up-1"}, nil).Once()
	issued, err := f.c.Pay(ctx)
	require.NoError(t, err)
	assert.Equal(t, "up-1", issued.UserPolicyID)
	assert.Equal(t, PhaseComplete, f.c.Snapshot().Phase)
}

func TestController_UploadWithoutQuotation(t *testing.T) {
	f := newFixture()
	f.toQuotation(t)

	err := f.c.Upload(context.Background(), upload.File{Name: "id.pdf"})
	assert.ErrorIs(t, err, perrors.ErrNoQuotation)
	f.docs.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
}

func TestController_OverlappingUploadIsRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.toQuotation(t)
	f.quoter.On("Generate", mock.Anything, "run-1", "p-home", domain.CategoryHome, homeAns).
		Return(quote, nil).Once()
	_, err := f.c.RequestQuote(ctx)
	require.NoError(t, err)

	first := upload.File{Name: "first.pdf", ContentType: upload.ContentTypePDF, Size: 3}
	release := make(chan time.Time)
	f.docs.On("Upload", mock.Anything, "Q1", first).WaitUntil(release).Return(nil).Once()

	done := make(chan error, 1)
	go func() { done <- f.c.Upload(ctx, first) }()
	require.Eventually(t, func() bool { return f.c.Snapshot().Upload.Status == OpPending }, time.Second, 5*time.Millisecond)

	second := upload.File{Name: "second.pdf", ContentType: upload.ContentTypePDF, Size: 3}
	err = f.c.Upload(ctx, second)
	assert.ErrorIs(t, err, perrors.ErrInvalidStep)
	assert.Equal(t, "first.pdf", f.c.Snapshot().Upload.FileName)

	close(release)
	require.NoError(t, <-done)
	run := f.c.Snapshot()
	assert.Equal(t, OpSucceeded, run.Upload.Status)
	assert.Equal(t, "first.pdf", run.Upload.FileName)
	f.docs.AssertNumberOfCalls(t, "Upload", 1)
}

func TestController_AwaitCatalogBeforeCategory(t *testing.T) {
	f := newFixture()
	_, err := f.c.AwaitCatalog(context.Background())
	assert.ErrorIs(t, err, perrors.ErrInvalidStep)
}
