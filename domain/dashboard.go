package domain

// DashboardSummary is /dashboard/summary for a standard user.
type DashboardSummary struct {
	ActivePolicies      int `json:"activePolicies"`
	PendingApplications int `json:"pendingApplications"`
}

// IssuancePoint is the number of policies issued on one day.
type IssuancePoint struct {
	Date           string `json:"date"`
	PoliciesIssued int    `json:"policiesIssued"`
}

// IssuanceStats is /admin/dashboard/policies/issued.
type IssuanceStats struct {
	Data []IssuancePoint `json:"data"`
}

// Total sums the series.
func (s IssuanceStats) Total() int {
	n := 0
	for _, p := range s.Data {
		n += p.PoliciesIssued
	}
	return n
}
