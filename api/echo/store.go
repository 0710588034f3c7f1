package echo

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"

	"go.pilab.hu/portal/domain"
	perrors "go.pilab.hu/portal/errors"
)

// DefaultRefreshTTL is the lifetime of a refresh session.
const DefaultRefreshTTL = 7 * 24 * time.Hour

type userRecord struct {
	user         domain.User
	passwordHash string
}

type quoteRecord struct {
	userID    string
	policy    domain.InsurancePolicy
	quotation domain.Quotation
	paid      bool
	documents []Document
}

type policyRecord struct {
	userID    string
	policy    domain.InsurancePolicy
	details   domain.UserPolicy
	breakdown domain.QuoteBreakdown
	issuedAt  time.Time
	payments  []domain.UserPolicyPayment
}

// Document is an uploaded supporting document.
type Document struct {
	Name       string
	Size       int64
	Body       []byte
	UploadedAt time.Time
}

// Store is the in-memory state of the reference server.
type Store struct {
	mu       sync.RWMutex
	users    map[string]*userRecord
	byEmail  map[string]string
	catalog  []domain.InsurancePolicy
	quotes   map[string]*quoteRecord
	policies map[string]*policyRecord

	sessions *ttlcache.Cache[string, string]
	now      func() time.Time
}

// NewStore creates a store seeded with catalog. Close stops the session
// expiry loop.
func NewStore(catalog []domain.InsurancePolicy, refreshTTL time.Duration) *Store {
	sessions := ttlcache.New(
		ttlcache.WithTTL[string, string](refreshTTL),
		ttlcache.WithDisableTouchOnHit[string, string](),
	)
	go sessions.Start()

	return &Store{
		users:    make(map[string]*userRecord),
		byEmail:  make(map[string]string),
		catalog:  append([]domain.InsurancePolicy(nil), catalog...),
		quotes:   make(map[string]*quoteRecord),
		policies: make(map[string]*policyRecord),
		sessions: sessions,
		now:      time.Now,
	}
}

func (s *Store) Close() {
	s.sessions.Stop()
}

// DefaultCatalog is the catalog the reference server starts with.
func DefaultCatalog() []domain.InsurancePolicy {
	return []domain.InsurancePolicy{
		{ID: "pol-auto-basic", Name: "Auto Basic", Type: domain.PolicyTypeAuto, CoverageAmount: 50000, PremiumPerMonth: 80, TermLengthInMonths: 12},
		{ID: "pol-auto-plus", Name: "Auto Plus", Type: domain.PolicyTypeAuto, CoverageAmount: 120000, PremiumPerMonth: 140, TermLengthInMonths: 12},
		{ID: "pol-home-shield", Name: "Home Shield", Type: domain.PolicyTypeHome, CoverageAmount: 200000, PremiumPerMonth: 45, TermLengthInMonths: 12},
		{ID: "pol-life-care", Name: "Life Care", Type: domain.PolicyTypeLife, CoverageAmount: 300000, PremiumPerMonth: 30, TermLengthInMonths: 24},
	}
}

// CreateUser registers a user. The email must be unused.
func (s *Store) CreateUser(req domain.SignupRequest, passwordHash string, roles ...domain.Role) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(req.Email)
	if _, taken := s.byEmail[email]; taken {
		return domain.User{}, perrors.NewServer(409, "email_taken", "An account with this email already exists.", "")
	}
	if len(roles) == 0 {
		roles = []domain.Role{domain.RoleUser}
	}
	now := s.now().UTC()
	u := domain.User{
		ID:        uuid.NewString(),
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Status:    domain.UserStatusActive,
		Roles:     roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.users[u.ID] = &userRecord{user: u, passwordHash: passwordHash}
	s.byEmail[email] = u.ID
	return u, nil
}

// UserByEmail returns the user and their password hash.
func (s *Store) UserByEmail(email string) (domain.User, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return domain.User{}, "", false
	}
	r := s.users[id]
	return r.user, r.passwordHash, true
}

func (s *Store) User(id string) (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.users[id]
	if !ok {
		return domain.User{}, false
	}
	return r.user, true
}

// OpenSession creates a refresh session for userID.
func (s *Store) OpenSession(userID string) string {
	token := uuid.NewString()
	s.sessions.Set(token, userID, ttlcache.DefaultTTL)
	return token
}

// SessionUser resolves a refresh token.
func (s *Store) SessionUser(token string) (string, bool) {
	item := s.sessions.Get(token)
	if item == nil {
		return "", false
	}
	return item.Value(), true
}

func (s *Store) CloseSession(token string) {
	s.sessions.Delete(token)
}

// Catalog lists the policies of category.
func (s *Store) Catalog(category domain.Category) []domain.InsurancePolicy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.InsurancePolicy{}
	for _, p := range s.catalog {
		if p.Type.Category() == category {
			out = append(out, p)
		}
	}
	return out
}

func (s *Store) CatalogPolicy(id string) (domain.InsurancePolicy, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.FindPolicy(s.catalog, id)
}

// CreateQuotation prices and stores a quotation for userID.
func (s *Store) CreateQuotation(userID string, policy domain.InsurancePolicy, answers domain.Answers, details []byte) domain.Quotation {
	q := domain.Quotation{
		QuoteID:            uuid.NewString(),
		Policy:             domain.QuotePolicyRef{ID: policy.ID, Name: policy.Name, Type: policy.Type},
		Details:            details,
		CoverageAmount:     policy.CoverageAmount,
		PremiumPerMonth:    policy.PremiumPerMonth,
		TermLengthInMonths: policy.TermLengthInMonths,
		Breakdown:          Price(policy, answers),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[q.QuoteID] = &quoteRecord{userID: userID, policy: policy, quotation: q}
	return q
}

// quote returns the caller's quotation. Quotations of other users are
// reported as missing. Callers hold s.mu.
func (s *Store) quote(userID, quoteID string) (*quoteRecord, error) {
	r, ok := s.quotes[quoteID]
	if !ok || r.userID != userID {
		return nil, perrors.NewNotFoundOrForbidden(404, "", "Quotation not found.")
	}
	return r, nil
}

// AttachDocument stores a document against the caller's quotation.
func (s *Store) AttachDocument(userID, quoteID string, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.quote(userID, quoteID)
	if err != nil {
		return err
	}
	doc.UploadedAt = s.now().UTC()
	r.documents = append(r.documents, doc)
	return nil
}

// Documents returns the documents attached to a quotation.
func (s *Store) Documents(userID, quoteID string) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, err := s.quote(userID, quoteID)
	if err != nil {
		return nil, err
	}
	return append([]Document(nil), r.documents...), nil
}

// Pay issues a policy from the caller's quotation. The first month is paid
// immediately; the rest are scheduled monthly.
func (s *Store) Pay(userID, quoteID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.quote(userID, quoteID)
	if err != nil {
		return "", err
	}
	if r.paid {
		return "", perrors.NewServer(409, "already_paid", "This quotation has already been paid.", "")
	}

	now := s.now().UTC()
	q := r.quotation
	term := q.TermLengthInMonths
	if term < 1 {
		term = 1
	}
	id := uuid.NewString()
	rec := &policyRecord{
		userID:    userID,
		policy:    r.policy,
		breakdown: q.Breakdown,
		issuedAt:  now,
		details: domain.UserPolicy{
			UserPolicyID:          id,
			Status:                domain.PolicyStatusActive,
			CoverageAmount:        q.CoverageAmount,
			MonthlyPremiumAmount:  q.Breakdown.Total,
			PaymentMode:           "Monthly",
			PaymentDueDate:        now.AddDate(0, 1, 0).Format(time.DateOnly),
			TermInMonths:          term,
			StartDate:             now.Format(time.DateOnly),
			EndDate:               now.AddDate(0, term, 0).Format(time.DateOnly),
			TermRemainingInMonths: term,
			HaveDocument:          true,
		},
	}
	for m := 1; m <= term; m++ {
		due := now.AddDate(0, m-1, 0)
		p := domain.UserPolicyPayment{
			ID:              uuid.NewString(),
			UserID:          userID,
			UserPolicyID:    id,
			Amount:          q.Breakdown.Total,
			Status:          domain.PaymentStatusPending,
			BillingSchedule: &due,
			Month:           m,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if m == 1 {
			paid := now
			p.Status, p.PaymentDate = domain.PaymentStatusPaid, &paid
		}
		rec.payments = append(rec.payments, p)
	}

	r.paid = true
	s.policies[id] = rec
	return id, nil
}

func (s *Store) policy(userID, userPolicyID string) (*policyRecord, error) {
	r, ok := s.policies[userPolicyID]
	if !ok || r.userID != userID {
		return nil, perrors.NewNotFoundOrForbidden(404, "", "Policy not found.")
	}
	return r, nil
}

// OwnPolicies lists the caller's policies, newest first.
func (s *Store) OwnPolicies(userID string) []domain.PolicySummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var recs []*policyRecord
	for _, r := range s.policies {
		if r.userID == userID {
			recs = append(recs, r)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].issuedAt.After(recs[j].issuedAt) })

	out := make([]domain.PolicySummary, 0, len(recs))
	for _, r := range recs {
		out = append(out, domain.PolicySummary{
			UserPolicyID:   r.details.UserPolicyID,
			Name:           r.policy.Name,
			Type:           r.policy.Type,
			Status:         r.details.Status,
			CoverageAmount: r.details.CoverageAmount,
		})
	}
	return out
}

func (s *Store) PolicyDetails(userID, userPolicyID string) (domain.PolicyDetails, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, err := s.policy(userID, userPolicyID)
	if err != nil {
		return domain.PolicyDetails{}, err
	}
	var d domain.PolicyDetails
	d.Policy.Name, d.Policy.Type = r.policy.Name, r.policy.Type
	d.UserPolicy = r.details
	d.QuoteBreakdown = r.breakdown
	return d, nil
}

func (s *Store) Payments(userID, userPolicyID string) ([]domain.UserPolicyPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, err := s.policy(userID, userPolicyID)
	if err != nil {
		return nil, err
	}
	return append([]domain.UserPolicyPayment(nil), r.payments...), nil
}

// PolicyDocument renders the policy certificate as a small PDF.
func (s *Store) PolicyDocument(userID, userPolicyID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, err := s.policy(userID, userPolicyID)
	if err != nil {
		return nil, err
	}
	text := fmt.Sprintf("%s policy %s, coverage %s, premium %s per month",
		r.policy.Name, r.details.UserPolicyID, r.details.CoverageAmount, r.details.MonthlyPremiumAmount)
	return minimalPDF(text), nil
}

// Summary counts the caller's active policies and unpaid quotations.
func (s *Store) Summary(userID string) domain.DashboardSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum domain.DashboardSummary
	for _, r := range s.policies {
		if r.userID == userID && r.details.Status == domain.PolicyStatusActive {
			sum.ActivePolicies++
		}
	}
	for _, q := range s.quotes {
		if q.userID == userID && !q.paid {
			sum.PendingApplications++
		}
	}
	return sum
}

// IssuanceStats counts issued policies per day, oldest first.
func (s *Store) IssuanceStats() domain.IssuanceStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	perDay := make(map[string]int)
	for _, r := range s.policies {
		perDay[r.issuedAt.Format(time.DateOnly)]++
	}
	stats := domain.IssuanceStats{Data: []domain.IssuancePoint{}}
	for day, n := range perDay {
		stats.Data = append(stats.Data, domain.IssuancePoint{Date: day, PoliciesIssued: n})
	}
	sort.Slice(stats.Data, func(i, j int) bool { return stats.Data[i].Date < stats.Data[j].Date })
	return stats
}

func minimalPDF(text string) []byte {
	text = strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`).Replace(text)
	stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	return []byte(fmt.Sprintf("%%PDF-1.4\n"+
		"1 0 obj << /Type /Catalog /Pages 2 0 R >> endobj\n"+
		"2 0 obj << /Type /Pages /Kids [3 0 R] /Count 1 >> endobj\n"+
		"3 0 obj << /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R "+
		"/Resources << /Font << /F1 5 0 R >> >> >> endobj\n"+
		"4 0 obj << /Length %d >> stream\n%s\nendstream endobj\n"+
		"5 0 obj << /Type /Font /Subtype /Type1 /BaseFont /Helvetica >> endobj\n"+
		"trailer << /Root 1 0 R >>\n%%%%EOF\n", len(stream), stream))
}
