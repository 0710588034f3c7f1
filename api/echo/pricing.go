package echo

import (
	"fmt"

	"go.pilab.hu/portal/domain"
)

// ServiceTaxPercent is applied to the subtotal of every quotation.
const ServiceTaxPercent = 6

// Price computes the monthly premium breakdown for policy and answers. All
// arithmetic is in sen so the components always add up to the total.
func Price(policy domain.InsurancePolicy, answers domain.Answers) domain.QuoteBreakdown {
	base := policy.PremiumPerMonth.Cents()
	components := []domain.QuoteComponent{{Description: "Base premium", Amount: domain.MoneyFromCents(base)}}
	add := func(desc string, cents int64) {
		if cents != 0 {
			components = append(components, domain.QuoteComponent{Description: desc, Amount: domain.MoneyFromCents(cents)})
		}
	}

	switch a := answers.(type) {
	case domain.HomeAnswers:
		if a.PropertyType == domain.PropertyLanded {
			add("Landed property loading", percent(base, 15))
		} else {
			add("Apartment loading", percent(base, 5))
		}
		add(fmt.Sprintf("Rooms (%d)", a.NumberOfRooms), int64(a.NumberOfRooms)*200)
	case domain.AutoAnswers:
		if a.VehicleType == domain.VehicleCar {
			add("Car loading", percent(base, 10))
		}
		if a.AdditionalDriver {
			add("Additional driver", 800)
		}
		if a.NaturalDisasterCoverage {
			add("Natural disaster coverage", percent(base, 12))
		}
	case domain.LifeAnswers:
		add("Age loading", base*int64(a.Age-domain.MinimumInsurableAge)*5/1000)
		switch a.HealthStatus {
		case domain.HealthGood:
			add("Health loading", percent(base, 10))
		case domain.HealthPoor:
			add("Health loading", percent(base, 35))
		}
	}

	var subtotal int64
	for _, c := range components {
		subtotal += c.Amount.Cents()
	}
	tax := percent(subtotal, ServiceTaxPercent)
	add("Service tax", tax)

	return domain.QuoteBreakdown{Total: domain.MoneyFromCents(subtotal + tax), Components: components}
}

// percent returns p% of cents, rounded half up.
func percent(cents, p int64) int64 {
	return (cents*p + 50) / 100
}
