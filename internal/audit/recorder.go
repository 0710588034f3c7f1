// Package audit records security-relevant actions of the reference server
// as JSON lines.
package audit

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Audited actions.
const (
	ActionSignup         = "user.signup"
	ActionLogin          = "user.login"
	ActionLogout         = "user.logout"
	ActionDocumentUpload = "quotation.document_upload"
	ActionPayment        = "quotation.payment"
)

// Event represents an audit log event.
type Event struct {
	Action  string
	User    string // user id or email
	Target  string // affected resource id
	Details string
	Err     error
}

// Recorder writes audit events. The zero value is not usable; use New or
// Nop.
type Recorder struct {
	logger  zerolog.Logger
	service string
	now     func() time.Time
}

// New returns a recorder writing one JSON object per event to w.
func New(w io.Writer, service string) *Recorder {
	return &Recorder{
		logger:  zerolog.New(w),
		service: service,
		now:     time.Now,
	}
}

// Nop returns a recorder that drops every event.
func Nop() *Recorder {
	return &Recorder{logger: zerolog.Nop(), now: time.Now}
}

// Record writes e. Success is derived from e.Err.
func (r *Recorder) Record(ctx context.Context, e Event) {
	entry := r.logger.Log().
		Time("timestamp", r.now().UTC()).
		Str("service", r.service).
		Str("action", e.Action).
		Bool("success", e.Err == nil)
	if e.User != "" {
		entry = entry.Str("user", e.User)
	}
	if e.Target != "" {
		entry = entry.Str("target", e.Target)
	}
	if e.Details != "" {
		entry = entry.Str("details", e.Details)
	}
	if e.Err != nil {
		entry = entry.Str("error", e.Err.Error())
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		entry = entry.Str("trace_id", sc.TraceID().String())
	}
	entry.Msg("")
}
