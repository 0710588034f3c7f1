// Package wizard drives the policy-acquisition flow: category, policy,
// coverage, underwriting, quotation, then upload and payment.
package wizard

import "go.pilab.hu/portal/domain"

// Step is a step name as shown to the user.
type Step string

const (
	StepSelectType  Step = "Select Insurance Type"
	StepPolicyList  Step = "Policy List"
	StepCoverage    Step = "Coverage Details"
	StepInformation Step = "Information"
	StepQuotation   Step = "Quotation"
)

// Journeys maps every category to its fixed step sequence. Each category
// owns its own slice so one can change without touching the others.
var Journeys = map[domain.Category][]Step{
	domain.CategoryAuto: {StepSelectType, StepPolicyList, StepCoverage, StepInformation, StepQuotation},
	domain.CategoryLife: {StepSelectType, StepPolicyList, StepCoverage, StepInformation, StepQuotation},
	domain.CategoryHome: {StepSelectType, StepPolicyList, StepCoverage, StepInformation, StepQuotation},
}

// initialSteps is the sequence shown before a category is chosen.
var initialSteps = []Step{StepSelectType}

// StepsFor returns a copy of the journey for c.
func StepsFor(c domain.Category) ([]Step, bool) {
	steps, ok := Journeys[c]
	if !ok {
		return nil, false
	}
	return append([]Step(nil), steps...), true
}
