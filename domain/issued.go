package domain

import "time"

// PolicyStatus is the lifecycle state of an issued policy.
type PolicyStatus string

const (
	PolicyStatusActive    PolicyStatus = "Active"
	PolicyStatusLapsed    PolicyStatus = "Lapsed"
	PolicyStatusCompleted PolicyStatus = "Completed"
)

// PaymentStatus is the state of one scheduled premium payment.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "Pending"
	PaymentStatusPaid    PaymentStatus = "Paid"
	PaymentStatusOverdue PaymentStatus = "Overdue"
)

// PolicySummary is one row of /users/policies.
type PolicySummary struct {
	UserPolicyID   string       `json:"userPolicyId"`
	Name           string       `json:"name"`
	Type           PolicyType   `json:"type"`
	Status         PolicyStatus `json:"status"`
	CoverageAmount Money        `json:"coverageAmount"`
}

// UserPolicy is the issued-policy block of a policy detail.
type UserPolicy struct {
	UserPolicyID          string       `json:"userPolicyId"`
	Status                PolicyStatus `json:"status"`
	CoverageAmount        Money        `json:"coverageAmount"`
	MonthlyPremiumAmount  Money        `json:"monthlyPremiumAmount"`
	PaymentMode           string       `json:"paymentMode"`
	PaymentDueDate        string       `json:"paymentDueDate"`
	TermInMonths          int          `json:"termInMonths"`
	StartDate             string       `json:"startDate"`
	EndDate               string       `json:"endDate"`
	TermRemainingInMonths int          `json:"termRemainingInMonths"`
	HaveDocument          bool         `json:"haveDocument"`
}

// PolicyDetails is the body of /users/policies/{id}.
type PolicyDetails struct {
	Policy struct {
		Name string     `json:"name"`
		Type PolicyType `json:"type"`
	} `json:"policy"`
	UserPolicy     UserPolicy     `json:"userPolicy"`
	QuoteBreakdown QuoteBreakdown `json:"quoteBreakdown"`
}

// UserPolicyPayment is one entry of /users/policies/{id}/payments.
type UserPolicyPayment struct {
	ID              string        `json:"id"`
	UserID          string        `json:"userId"`
	UserPolicyID    string        `json:"userPolicyId"`
	Amount          Money         `json:"amount"`
	Status          PaymentStatus `json:"status"`
	PaymentDate     *time.Time    `json:"paymentDate"`
	BillingSchedule *time.Time    `json:"billingSchedule"`
	Month           int           `json:"month"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// ScheduleEntry is one month of an issued policy's payment schedule.
type ScheduleEntry struct {
	Month    int
	Amount   Money
	DueDate  *time.Time
	PaidDate *time.Time
	Status   PaymentStatus
}

// IssuedPolicy is a policy created by a successful payment. Read-only.
// Only UserPolicyID is guaranteed; the rest is filled when the follow-up
// detail load succeeded.
type IssuedPolicy struct {
	UserPolicyID         string
	Name                 string
	Type                 PolicyType
	Status               PolicyStatus
	CoverageAmount       Money
	MonthlyPremiumAmount Money
	PaymentSchedule      []ScheduleEntry
}

// NewIssuedPolicy assembles the read model from a detail and its payments.
func NewIssuedPolicy(d PolicyDetails, payments []UserPolicyPayment) IssuedPolicy {
	ip := IssuedPolicy{
		UserPolicyID:         d.UserPolicy.UserPolicyID,
		Name:                 d.Policy.Name,
		Type:                 d.Policy.Type,
		Status:               d.UserPolicy.Status,
		CoverageAmount:       d.UserPolicy.CoverageAmount,
		MonthlyPremiumAmount: d.UserPolicy.MonthlyPremiumAmount,
	}
	for _, p := range payments {
		ip.PaymentSchedule = append(ip.PaymentSchedule, ScheduleEntry{
			Month:    p.Month,
			Amount:   p.Amount,
			DueDate:  p.BillingSchedule,
			PaidDate: p.PaymentDate,
			Status:   p.Status,
		})
	}
	return ip
}

// OwnPoliciesResponse is the body of /users/policies.
type OwnPoliciesResponse struct {
	Policies []PolicySummary `json:"policies"`
}
