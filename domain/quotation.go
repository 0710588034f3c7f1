package domain

import "encoding/json"

// QuoteComponent is one line of a quotation breakdown.
type QuoteComponent struct {
	Description string `json:"description"`
	Amount      Money  `json:"amount"`
}

// QuoteBreakdown is the ordered list of components and their total.
type QuoteBreakdown struct {
	Total      Money            `json:"total"`
	Components []QuoteComponent `json:"components"`
}

// Balanced reports whether the components add up to Total to the sen.
func (b QuoteBreakdown) Balanced() bool {
	var sum int64
	for _, c := range b.Components {
		sum += c.Amount.Cents()
	}
	return sum == b.Total.Cents()
}

// QuotePolicyRef identifies the catalog item a quotation was priced for.
type QuotePolicyRef struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Type PolicyType `json:"type"`
}

// Quotation is a priced offer. Created once per wizard run and never
// modified afterwards; upload and payment refer to it by QuoteID.
type Quotation struct {
	QuoteID            string          `json:"userQuoteId"`
	Policy             QuotePolicyRef  `json:"policy"`
	Details            json.RawMessage `json:"details,omitempty"`
	CoverageAmount     Money           `json:"coverageAmount"`
	PremiumPerMonth    Money           `json:"premiumPerMonth"`
	TermLengthInMonths int             `json:"termLengthInMonths"`
	Breakdown          QuoteBreakdown  `json:"quoteBreakdown"`
}

// QuoteRequest is the generate-quote payload. Only the block matching the
// policy's category is set.
type QuoteRequest struct {
	PolicyID       string       `json:"policyId"`
	Identification string       `json:"identification,omitempty"`
	Auto           *AutoAnswers `json:"auto,omitempty"`
	Home           *HomeAnswers `json:"home,omitempty"`
	Life           *LifeAnswers `json:"life,omitempty"`
}

// NewQuoteRequest builds the payload for policyID from typed answers.
func NewQuoteRequest(policyID string, answers Answers) QuoteRequest {
	req := QuoteRequest{PolicyID: policyID}
	switch a := answers.(type) {
	case AutoAnswers:
		req.Auto = &a
	case HomeAnswers:
		req.Home = &a
	case LifeAnswers:
		req.Life = &a
	}
	return req
}

// Answers returns the answer block carried by the request, if any.
func (r QuoteRequest) Answers() Answers {
	switch {
	case r.Auto != nil:
		return *r.Auto
	case r.Home != nil:
		return *r.Home
	case r.Life != nil:
		return *r.Life
	}
	return nil
}

// PaymentRequest is the payment payload.
type PaymentRequest struct {
	UserQuotePolicyID string `json:"userQuotePolicyId"`
}

// ActivatePolicyResponse is returned by a successful payment.
type ActivatePolicyResponse struct {
	UserPolicyID string `json:"userPolicyId"`
}
