package echo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go.pilab.hu/portal/domain"
)

func TestPrice(t *testing.T) {
	home := domain.InsurancePolicy{ID: "p-home", Type: domain.PolicyTypeHome, PremiumPerMonth: 45}
	auto := domain.InsurancePolicy{ID: "p-auto", Type: domain.PolicyTypeAuto, PremiumPerMonth: 80}
	life := domain.InsurancePolicy{ID: "p-life", Type: domain.PolicyTypeLife, PremiumPerMonth: 30}

	tests := []struct {
		name      string
		policy    domain.InsurancePolicy
		answers   domain.Answers
		wantTotal domain.Money
		wantParts int
	}{
		{"home landed", home, domain.HomeAnswers{PropertyType: domain.PropertyLanded, NumberOfRooms: 4}, 63.34, 4},
		{"home apartment", home, domain.HomeAnswers{PropertyType: domain.PropertyApartment, NumberOfRooms: 1}, 52.21, 4},
		{"auto motor no extras", auto, domain.AutoAnswers{VehicleType: domain.VehicleMotor}, 84.80, 2},
		{"auto car all extras", auto, domain.AutoAnswers{VehicleType: domain.VehicleCar, AdditionalDriver: true, NaturalDisasterCoverage: true}, 111.94, 5},
		{"life minimum age excellent", life, domain.LifeAnswers{Age: 18, HealthStatus: domain.HealthExcellent}, 31.80, 2},
		{"life poor", life, domain.LifeAnswers{Age: 38, HealthStatus: domain.HealthPoor}, 46.11, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Price(tt.policy, tt.answers)
			assert.Equal(t, tt.wantTotal.Cents(), b.Total.Cents())
			assert.Len(t, b.Components, tt.wantParts)
			assert.True(t, b.Balanced())
		})
	}
}
