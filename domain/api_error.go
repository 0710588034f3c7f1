package domain

// APIErrorResponse is the structured error body the remote service sends
// with non-2xx answers.
type APIErrorResponse struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Path      string `json:"path"`
}
