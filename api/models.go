// Package api holds the wire contract shared by the portal client and the
// reference server: endpoint paths, form field names and small payloads.
package api

// Endpoint paths, relative to the API base URL.
const (
	PathSignup  = "/auth/signup"
	PathLogin   = "/auth/login"
	PathToken   = "/auth/token"
	PathLogout  = "/auth/logout"
	PathProfile = "/users/profile"

	PathOwnPolicies = "/users/policies"
	PathSummary     = "/dashboard/summary"
	PathIssuance    = "/admin/dashboard/policies/issued"

	PathCatalog       = "/insurance/policies"
	PathGenerateQuote = "/insurance/generate-quote"
	PathUpload        = "/insurance/upload"
	PathPayment       = "/insurance/payment"
)

// RefreshCookie is the cookie carrying the refresh credential.
const RefreshCookie = "refresh_token"

// Multipart fields of the upload request.
const (
	FieldQuoteID = "userQuotePolicyId"
	FieldFile    = "file"
)

// CatalogTypeParam is the query parameter selecting the catalog category.
const CatalogTypeParam = "type"

// MessageResponse is the body of endpoints that only acknowledge.
type MessageResponse struct {
	Message string `json:"message"`
}

// PolicyPath returns /users/policies/{id}.
func PolicyPath(userPolicyID string) string {
	return PathOwnPolicies + "/" + userPolicyID
}
