package errors

// Well-known failures. Compare with errors.Is; the concrete error returned
// by a component may carry a more specific message.
var (
	ErrInvalidFormat   = NewValidation("invalid_format", "Only PDF files are allowed.")
	ErrTooLarge        = NewValidation("too_large", "File size must be 10MB or smaller.")
	ErrInvalidAnswers  = NewValidation("invalid_answers", "underwriting answers are invalid")
	ErrInvalidSignup   = NewValidation("invalid_signup", "signup details are invalid")
	ErrUnauthenticated = NewAuth("not signed in", nil)
	ErrForbidden       = NewNotFoundOrForbidden(403, "", "you are not allowed to access this resource")
	ErrNotFound        = NewNotFoundOrForbidden(404, "", "resource not found")
)

// Wizard and quotation conditions.
var (
	ErrQuotationFailed = NewServer(0, "quotation_failed", "The quotation could not be generated. Please start again.", "")
	ErrRunNotActive    = NewValidation("run_not_active", "This application is no longer active.")
	ErrNoQuotation     = NewValidation("no_quotation", "A quotation is required first.")
	ErrInvalidStep     = NewValidation("invalid_step", "That action is not available at this step.")
)
