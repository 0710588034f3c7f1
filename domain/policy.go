package domain

// InsurancePolicy is a purchasable catalog item. Immutable, keyed by ID.
type InsurancePolicy struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Type               PolicyType `json:"type"`
	CoverageAmount     Money      `json:"coverageAmount"`
	PremiumPerMonth    Money      `json:"premiumPerMonth"`
	TermLengthInMonths int        `json:"termLengthInMonths"`
}

// PoliciesResponse is the catalog endpoint payload.
type PoliciesResponse struct {
	Policies []InsurancePolicy `json:"policies"`
}

// FindPolicy returns the policy with the given id.
func FindPolicy(policies []InsurancePolicy, id string) (InsurancePolicy, bool) {
	for _, p := range policies {
		if p.ID == id {
			return p, true
		}
	}
	return InsurancePolicy{}, false
}
