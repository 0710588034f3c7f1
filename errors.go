package portal

import (
	perrors "go.pilab.hu/portal/errors"
)

// Well-known failures, re-exported from the errors package.
var (
	ErrUnauthenticated = perrors.ErrUnauthenticated
	ErrForbidden       = perrors.ErrForbidden
	ErrNotFound        = perrors.ErrNotFound

	ErrInvalidFormat  = perrors.ErrInvalidFormat
	ErrTooLarge       = perrors.ErrTooLarge
	ErrInvalidAnswers = perrors.ErrInvalidAnswers
	ErrInvalidSignup  = perrors.ErrInvalidSignup

	ErrQuotationFailed = perrors.ErrQuotationFailed
	ErrRunNotActive    = perrors.ErrRunNotActive
	ErrNoQuotation     = perrors.ErrNoQuotation
	ErrInvalidStep     = perrors.ErrInvalidStep
)

// UserMessage returns the text to show for err.
func UserMessage(err error) string {
	return perrors.UserMessage(err)
}
