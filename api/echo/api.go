//nolint:varnamelen
package echo

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"go.pilab.hu/portal/api"
	"go.pilab.hu/portal/domain"
	perrors "go.pilab.hu/portal/errors"
	"go.pilab.hu/portal/internal/audit"
	"go.pilab.hu/portal/internal/auth"
	"go.pilab.hu/portal/internal/auth/rbac"
	"go.pilab.hu/portal/internal/metrics"
	"go.pilab.hu/portal/log"
	"go.pilab.hu/portal/middleware"
)

// PortalAPI serves the portal endpoints from a Store.
type PortalAPI struct {
	store         *Store
	hasher        auth.PasswordHasher
	tokens        *auth.TokenIssuer
	logger        log.Logger
	maxUpload     int64
	refreshTTL    time.Duration
	secureCookies bool
	audit         *audit.Recorder
}

// Option configures a PortalAPI.
type Option func(*PortalAPI)

// WithMaxUploadBytes sets the document size ceiling.
func WithMaxUploadBytes(n int64) Option {
	return func(a *PortalAPI) { a.maxUpload = n }
}

// WithSecureCookies marks the refresh cookie Secure.
func WithSecureCookies(secure bool) Option {
	return func(a *PortalAPI) { a.secureCookies = secure }
}

// WithRefreshTTL sets the refresh cookie lifetime. It should match the
// store's session lifetime.
func WithRefreshTTL(ttl time.Duration) Option {
	return func(a *PortalAPI) { a.refreshTTL = ttl }
}

// WithAuditRecorder records signups, logins, uploads and payments.
func WithAuditRecorder(r *audit.Recorder) Option {
	return func(a *PortalAPI) { a.audit = r }
}

// NewPortalAPI initializes the API.
func NewPortalAPI(store *Store, hasher auth.PasswordHasher, tokens *auth.TokenIssuer, logger log.Logger, opts ...Option) *PortalAPI {
	if logger == nil {
		logger = log.Nop()
	}
	a := &PortalAPI{
		store:      store,
		hasher:     hasher,
		tokens:     tokens,
		logger:     logger,
		maxUpload:  10 << 20,
		refreshTTL: DefaultRefreshTTL,
		audit:      audit.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RegisterRoutes registers the portal routes on g.
func (a *PortalAPI) RegisterRoutes(g *echo.Group) {
	g.POST(api.PathSignup, a.SignupHandler)
	g.POST(api.PathLogin, a.LoginHandler)
	g.GET(api.PathToken, a.TokenHandler)
	g.POST(api.PathLogout, a.LogoutHandler)

	authn := middleware.Authenticate(a.tokens, a.logger)
	perm := func(p string) echo.MiddlewareFunc { return middleware.RequirePermission(p, a.logger) }

	g.GET(api.PathProfile, a.ProfileHandler, authn, perm(rbac.PermProfileReadSelf))
	g.GET(api.PathOwnPolicies, a.OwnPoliciesHandler, authn, perm(rbac.PermPoliciesReadSelf))
	g.GET(api.PathOwnPolicies+"/:id", a.PolicyDetailHandler, authn, perm(rbac.PermPoliciesReadSelf))
	g.GET(api.PathOwnPolicies+"/:id/payments", a.PaymentsHandler, authn, perm(rbac.PermPoliciesReadSelf))
	g.GET(api.PathOwnPolicies+"/:id/download", a.DownloadHandler, authn, perm(rbac.PermPoliciesReadSelf))
	g.GET(api.PathSummary, a.SummaryHandler, authn, perm(rbac.PermDashboardReadSelf))
	g.GET(api.PathIssuance, a.IssuanceHandler, authn, perm(rbac.PermIssuanceStatsRead))

	g.GET(api.PathCatalog, a.CatalogHandler, authn, perm(rbac.PermCatalogRead))
	g.POST(api.PathGenerateQuote, a.GenerateQuoteHandler, authn, perm(rbac.PermQuotationsCreate))
	g.POST(api.PathUpload, a.UploadHandler, authn, perm(rbac.PermDocumentsUpload))
	g.POST(api.PathPayment, a.PaymentHandler, authn, perm(rbac.PermPaymentsCreate))
}

func badRequest(message string) error {
	return perrors.NewValidation("bad_request", message)
}

func claims(c echo.Context) *domain.Claims {
	cl, _ := middleware.ClaimsFromContext(c)
	return cl
}

// SignupHandler registers an account. The password confirmation is a
// client-side check and is not part of the payload.
func (a *PortalAPI) SignupHandler(c echo.Context) error {
	var req domain.SignupRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Malformed signup request.")
	}
	req.ConfirmPassword = req.Password
	if err := c.Validate(&req); err != nil {
		return err
	}

	hash, err := a.hasher.Hash(req.Password)
	if err != nil {
		return err
	}
	u, err := a.store.CreateUser(req, hash)
	if err != nil {
		a.audit.Record(c.Request().Context(), audit.Event{Action: audit.ActionSignup, User: req.Email, Err: err})
		return err
	}
	a.audit.Record(c.Request().Context(), audit.Event{Action: audit.ActionSignup, User: u.ID})
	metrics.UserRegisteredTotal.Inc()
	a.logger.Info(c.Request().Context(), "user registered", map[string]interface{}{"user_id": u.ID})
	return c.JSON(http.StatusCreated, api.MessageResponse{Message: "Account created."})
}

// LoginHandler checks the credentials and sets the refresh cookie. No
// access token is returned; the client fetches one from the token endpoint.
func (a *PortalAPI) LoginHandler(c echo.Context) error {
	var req domain.LoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Malformed login request.")
	}

	u, hash, ok := a.store.UserByEmail(req.Email)
	var err error = auth.ErrBadCredentials
	if ok {
		err = a.hasher.Verify(hash, req.Password)
	}
	if err != nil {
		metrics.LoginFailureTotal.Inc()
		a.audit.Record(c.Request().Context(), audit.Event{Action: audit.ActionLogin, User: req.Email, Err: err})
		return err
	}
	if u.Status != domain.UserStatusActive {
		metrics.LoginFailureTotal.Inc()
		return perrors.NewNotFoundOrForbidden(http.StatusForbidden, "", "This account is disabled.")
	}

	c.SetCookie(a.refreshCookie(a.store.OpenSession(u.ID), int(a.refreshTTL/time.Second)))
	metrics.LoginSuccessTotal.Inc()
	a.audit.Record(c.Request().Context(), audit.Event{Action: audit.ActionLogin, User: u.ID})
	a.logger.Info(c.Request().Context(), "user logged in", map[string]interface{}{"user_id": u.ID})
	return c.JSON(http.StatusOK, domain.LoginResponse{Message: "Login successful."})
}

// TokenHandler exchanges the refresh cookie for an access token.
func (a *PortalAPI) TokenHandler(c echo.Context) error {
	ck, err := c.Cookie(api.RefreshCookie)
	if err != nil || ck.Value == "" {
		return perrors.NewAuth("Your session has expired. Please sign in again.", nil)
	}
	userID, ok := a.store.SessionUser(ck.Value)
	if !ok {
		return perrors.NewAuth("Your session has expired. Please sign in again.", nil)
	}
	u, ok := a.store.User(userID)
	if !ok {
		a.store.CloseSession(ck.Value)
		return perrors.NewAuth("Your session has expired. Please sign in again.", nil)
	}

	tok, err := a.tokens.Issue(&u)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tok)
}

// LogoutHandler ends the refresh session and clears the cookie.
func (a *PortalAPI) LogoutHandler(c echo.Context) error {
	if ck, err := c.Cookie(api.RefreshCookie); err == nil {
		if userID, ok := a.store.SessionUser(ck.Value); ok {
			a.audit.Record(c.Request().Context(), audit.Event{Action: audit.ActionLogout, User: userID})
		}
		a.store.CloseSession(ck.Value)
	}
	c.SetCookie(a.refreshCookie("", -1))
	return c.JSON(http.StatusOK, api.MessageResponse{Message: "Logged out."})
}

func (a *PortalAPI) refreshCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     api.RefreshCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

func (a *PortalAPI) ProfileHandler(c echo.Context) error {
	u, ok := a.store.User(claims(c).UserID)
	if !ok {
		return perrors.NewNotFoundOrForbidden(http.StatusNotFound, "", "User not found.")
	}
	return c.JSON(http.StatusOK, u)
}

func (a *PortalAPI) OwnPoliciesHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, domain.OwnPoliciesResponse{Policies: a.store.OwnPolicies(claims(c).UserID)})
}

func (a *PortalAPI) PolicyDetailHandler(c echo.Context) error {
	d, err := a.store.PolicyDetails(claims(c).UserID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (a *PortalAPI) PaymentsHandler(c echo.Context) error {
	p, err := a.store.Payments(claims(c).UserID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// DownloadHandler streams the policy certificate.
func (a *PortalAPI) DownloadHandler(c echo.Context) error {
	id := c.Param("id")
	pdf, err := a.store.PolicyDocument(claims(c).UserID, id)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment",
		map[string]string{"filename": "policy-" + id + ".pdf"}))
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}

func (a *PortalAPI) SummaryHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, a.store.Summary(claims(c).UserID))
}

func (a *PortalAPI) IssuanceHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, a.store.IssuanceStats())
}

// CatalogHandler lists the policies of ?type=AUTO|HOME|LIFE.
func (a *PortalAPI) CatalogHandler(c echo.Context) error {
	category, err := domain.ParseCategory(c.QueryParam(api.CatalogTypeParam))
	if err != nil {
		return badRequest("Unknown insurance type.")
	}
	return c.JSON(http.StatusOK, domain.PoliciesResponse{Policies: a.store.Catalog(category)})
}

// GenerateQuoteHandler prices the answers for a catalog policy.
func (a *PortalAPI) GenerateQuoteHandler(c echo.Context) error {
	var req domain.QuoteRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Malformed quotation request.")
	}
	policy, ok := a.store.CatalogPolicy(req.PolicyID)
	if !ok {
		return perrors.NewNotFoundOrForbidden(http.StatusNotFound, "", "Policy not found.")
	}

	answers := req.Answers()
	if answers == nil || answers.Category() != policy.Type.Category() {
		return perrors.NewValidation(perrors.ErrInvalidAnswers.Code, "Answers do not match the policy type.")
	}
	if err := c.Validate(answers); err != nil {
		return err
	}

	details, err := json.Marshal(answers)
	if err != nil {
		return err
	}
	q := a.store.CreateQuotation(claims(c).UserID, policy, answers, details)
	a.logger.Info(c.Request().Context(), "quotation created", map[string]interface{}{
		"quote_id": q.QuoteID, "policy_id": policy.ID, "total": q.Breakdown.Total.String(),
	})
	return c.JSON(http.StatusOK, q)
}

// UploadHandler stores a PDF against a quotation.
func (a *PortalAPI) UploadHandler(c echo.Context) error {
	quoteID := c.FormValue(api.FieldQuoteID)
	if quoteID == "" {
		return badRequest("A quotation id is required.")
	}
	fh, err := c.FormFile(api.FieldFile)
	if err != nil {
		return badRequest("A file is required.")
	}

	mediaType, _, err := mime.ParseMediaType(fh.Header.Get(echo.HeaderContentType))
	if err != nil || mediaType != "application/pdf" {
		return perrors.ErrInvalidFormat
	}
	if fh.Size > a.maxUpload {
		return perrors.NewServer(http.StatusRequestEntityTooLarge, perrors.ErrTooLarge.Code, perrors.ErrTooLarge.Message, "")
	}

	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	body, err := io.ReadAll(io.LimitReader(f, a.maxUpload+1))
	if err != nil {
		return err
	}
	if int64(len(body)) > a.maxUpload {
		return perrors.NewServer(http.StatusRequestEntityTooLarge, perrors.ErrTooLarge.Code, perrors.ErrTooLarge.Message, "")
	}

	doc := Document{Name: fh.Filename, Size: int64(len(body)), Body: body}
	err = a.store.AttachDocument(claims(c).UserID, quoteID, doc)
	a.audit.Record(c.Request().Context(), audit.Event{
		Action: audit.ActionDocumentUpload, User: claims(c).UserID, Target: quoteID, Details: fh.Filename, Err: err,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, api.MessageResponse{Message: "Document uploaded."})
}

// PaymentHandler issues the policy for a quotation.
func (a *PortalAPI) PaymentHandler(c echo.Context) error {
	var req domain.PaymentRequest
	if err := c.Bind(&req); err != nil || req.UserQuotePolicyID == "" {
		return badRequest("A quotation id is required.")
	}

	id, err := a.store.Pay(claims(c).UserID, req.UserQuotePolicyID)
	a.audit.Record(c.Request().Context(), audit.Event{
		Action: audit.ActionPayment, User: claims(c).UserID, Target: req.UserQuotePolicyID, Err: err,
	})
	if err != nil {
		var pe *perrors.PortalError
		if errors.As(err, &pe) && pe.Code == "already_paid" {
			a.logger.Warn(c.Request().Context(), "duplicate payment", map[string]interface{}{"quote_id": req.UserQuotePolicyID})
		}
		return err
	}
	metrics.PoliciesIssuedTotal.Inc()
	a.logger.Info(c.Request().Context(), "policy issued", map[string]interface{}{
		"quote_id": req.UserQuotePolicyID, "user_policy_id": id,
	})
	return c.JSON(http.StatusOK, domain.ActivatePolicyResponse{UserPolicyID: id})
}
