package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a failure by how the caller has to react to it.
type Kind string

const (
	// KindValidation is raised locally before any network call.
	KindValidation Kind = "validation"
	// KindAuth means the session is gone: 401 or a rejected refresh.
	KindAuth Kind = "auth"
	// KindNotFoundOrForbidden is a resource error (403/404).
	KindNotFoundOrForbidden Kind = "not_found_or_forbidden"
	// KindNetwork is a transport failure. Never retried automatically.
	KindNetwork Kind = "network"
	// KindServer is any other non-2xx answer from the remote service.
	KindServer Kind = "server"
	// KindTimeout is raised when the bounded request deadline expires.
	KindTimeout Kind = "timeout"
)

// GenericMessage is shown when the remote service gave no usable message.
const GenericMessage = "Something went wrong, please try again later."

// PortalError represents a classified portal failure.
type PortalError struct {
	Kind    Kind   `json:"kind"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
	Path    string `json:"path,omitempty"`

	Err error `json:"-"`
}

func (e *PortalError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = GenericMessage
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", msg, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s (%s)", msg, e.Kind)
}

func (e *PortalError) Unwrap() error {
	return e.Err
}

// Is matches another *PortalError with the same kind and code, so the
// sentinels below work with errors.Is regardless of message or status.
func (e *PortalError) Is(target error) bool {
	t, ok := target.(*PortalError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code != "" && e.Code == t.Code
}

// UserMessage returns the text that may be shown to the user verbatim.
func (e *PortalError) UserMessage() string {
	if e.Message == "" {
		return GenericMessage
	}
	return e.Message
}

// Common error constructors

func NewValidation(code, message string) *PortalError {
	return &PortalError{
		Kind:    KindValidation,
		Code:    code,
		Message: message,
	}
}

func NewAuth(message string, cause error) *PortalError {
	return &PortalError{
		Kind:    KindAuth,
		Code:    "unauthenticated",
		Message: message,
		Status:  401,
		Err:     cause,
	}
}

func NewNotFoundOrForbidden(status int, path, message string) *PortalError {
	code := "not_found"
	if status == 403 {
		code = "forbidden"
	}
	return &PortalError{
		Kind:    KindNotFoundOrForbidden,
		Code:    code,
		Message: message,
		Status:  status,
		Path:    path,
	}
}

func NewNetwork(op string, cause error) *PortalError {
	return &PortalError{
		Kind:    KindNetwork,
		Code:    "network_error",
		Message: fmt.Sprintf("unable to reach the portal service (%s)", op),
		Err:     cause,
	}
}

func NewTimeout(op string, cause error) *PortalError {
	return &PortalError{
		Kind:    KindTimeout,
		Code:    "timeout",
		Message: fmt.Sprintf("the portal service did not answer in time (%s)", op),
		Err:     cause,
	}
}

func NewServer(status int, code, message, path string) *PortalError {
	return &PortalError{
		Kind:    KindServer,
		Code:    code,
		Message: message,
		Status:  status,
		Path:    path,
	}
}

// KindOf reports the Kind of the first *PortalError in err's chain.
// It returns an empty Kind for unclassified errors.
func KindOf(err error) Kind {
	var pe *PortalError
	if stderrors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// UserMessage extracts a displayable message from any error.
func UserMessage(err error) string {
	var pe *PortalError
	if stderrors.As(err, &pe) {
		return pe.UserMessage()
	}
	return GenericMessage
}
