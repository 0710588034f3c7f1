package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.pilab.hu/portal/domain"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		step     Step
		category domain.Category
		want     Content
	}{
		{"category step", StepSelectType, "", CategoryPicker{Options: domain.Categories}},
		{"policy list", StepPolicyList, domain.CategoryAuto, PolicyPicker{Category: domain.CategoryAuto}},
		{"coverage", StepCoverage, domain.CategoryLife, CoverageReview{Category: domain.CategoryLife}},
		{"quotation", StepQuotation, domain.CategoryHome, QuotationView{Category: domain.CategoryHome}},
		{"unknown category", StepInformation, "pet", Unavailable{Step: StepInformation, Category: "pet"}},
		{"unknown step", Step("Review"), domain.CategoryHome, Unavailable{Step: "Review", Category: domain.CategoryHome}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.step, tt.category))
		})
	}
}

func TestResolve_UnderwritingFormPerCategory(t *testing.T) {
	names := func(fields []Field) []string {
		var out []string
		for _, f := range fields {
			out = append(out, f.Name)
		}
		return out
	}

	auto, ok := Resolve(StepInformation, domain.CategoryAuto).(UnderwritingForm)
	require.True(t, ok)
	assert.Equal(t, []string{"type", "additionalDriver", "naturalDisaster"}, names(auto.Fields))

	home, ok := Resolve(StepInformation, domain.CategoryHome).(UnderwritingForm)
	require.True(t, ok)
	assert.Equal(t, []string{"type", "numberOfRooms"}, names(home.Fields))

	life, ok := Resolve(StepInformation, domain.CategoryLife).(UnderwritingForm)
	require.True(t, ok)
	assert.Equal(t, []string{"age", "healthStatus"}, names(life.Fields))
	assert.Equal(t, domain.MinimumInsurableAge, life.Fields[0].Min)
}

func TestUnavailable_Message(t *testing.T) {
	u := Unavailable{Step: StepInformation, Category: "pet"}
	assert.Equal(t, "Coming soon for: Information (pet)", u.Message())
}

func TestStepsFor_ReturnsCopy(t *testing.T) {
	steps, ok := StepsFor(domain.CategoryHome)
	require.True(t, ok)
	steps[0] = "changed"
	assert.Equal(t, StepSelectType, Journeys[domain.CategoryHome][0])

	_, ok = StepsFor("pet")
	assert.False(t, ok)
}
