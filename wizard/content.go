package wizard

import (
	"fmt"

	"go.pilab.hu/portal/domain"
)

// Content is what a step renders. The concrete types are CategoryPicker,
// PolicyPicker, CoverageReview, UnderwritingForm, QuotationView and
// Unavailable; switch on them exhaustively.
type Content interface {
	isContent()
}

// CategoryPicker offers the purchasable categories.
type CategoryPicker struct {
	Options []domain.Category
}

// PolicyPicker lists the catalog for Category.
type PolicyPicker struct {
	Category domain.Category
}

// CoverageReview shows the selected policy's coverage for confirmation.
type CoverageReview struct {
	Category domain.Category
}

// UnderwritingForm collects the category's underwriting answers.
type UnderwritingForm struct {
	Category domain.Category
	Fields   []Field
}

// QuotationView shows the quotation and offers upload and payment.
type QuotationView struct {
	Category domain.Category
}

// Unavailable is the placeholder for a step with no form for the category.
type Unavailable struct {
	Step     Step
	Category domain.Category
}

func (CategoryPicker) isContent()   {}
func (PolicyPicker) isContent()     {}
func (CoverageReview) isContent()   {}
func (UnderwritingForm) isContent() {}
func (QuotationView) isContent()    {}
func (Unavailable) isContent()      {}

// Message is the placeholder text.
func (u Unavailable) Message() string {
	return fmt.Sprintf("Coming soon for: %s (%s)", u.Step, u.Category)
}

// FieldKind is the input type of an underwriting field.
type FieldKind int

const (
	FieldChoice FieldKind = iota
	FieldNumber
	FieldFlag
)

// Field describes one underwriting input.
type Field struct {
	Name    string
	Label   string
	Kind    FieldKind
	Options []string
	Min     int
}

// forms maps step and category to a content builder. Adding a category
// means adding rows here and a journey in Journeys.
var forms = map[Step]map[domain.Category]func(domain.Category) Content{
	StepPolicyList: {
		domain.CategoryAuto: policyPicker,
		domain.CategoryLife: policyPicker,
		domain.CategoryHome: policyPicker,
	},
	StepCoverage: {
		domain.CategoryAuto: coverageReview,
		domain.CategoryLife: coverageReview,
		domain.CategoryHome: coverageReview,
	},
	StepInformation: {
		domain.CategoryAuto: underwriting(autoFields),
		domain.CategoryLife: underwriting(lifeFields),
		domain.CategoryHome: underwriting(homeFields),
	},
	StepQuotation: {
		domain.CategoryAuto: quotationView,
		domain.CategoryLife: quotationView,
		domain.CategoryHome: quotationView,
	},
}

var (
	autoFields = []Field{
		{Name: "type", Label: "Type", Kind: FieldChoice, Options: []string{domain.VehicleCar, domain.VehicleMotor}},
		{Name: "additionalDriver", Label: "Include Additional Driver", Kind: FieldFlag},
		{Name: "naturalDisaster", Label: "Natural Disaster Coverage", Kind: FieldFlag},
	}
	homeFields = []Field{
		{Name: "type", Label: "Type", Kind: FieldChoice, Options: []string{domain.PropertyApartment, domain.PropertyLanded}},
		{Name: "numberOfRooms", Label: "Number of Rooms", Kind: FieldNumber, Min: 1},
	}
	lifeFields = []Field{
		{Name: "age", Label: "Age", Kind: FieldNumber, Min: domain.MinimumInsurableAge},
		{Name: "healthStatus", Label: "Health Status", Kind: FieldChoice,
			Options: []string{domain.HealthExcellent, domain.HealthGood, domain.HealthPoor}},
	}
)

func policyPicker(c domain.Category) Content   { return PolicyPicker{Category: c} }
func coverageReview(c domain.Category) Content { return CoverageReview{Category: c} }
func quotationView(c domain.Category) Content  { return QuotationView{Category: c} }

func underwriting(fields []Field) func(domain.Category) Content {
	return func(c domain.Category) Content {
		return UnderwritingForm{Category: c, Fields: append([]Field(nil), fields...)}
	}
}

// Resolve returns the content for step within category. It never fails:
// an unknown combination yields Unavailable.
func Resolve(step Step, category domain.Category) Content {
	if step == StepSelectType {
		return CategoryPicker{Options: append([]domain.Category(nil), domain.Categories...)}
	}
	if build, ok := forms[step][category]; ok {
		return build(category)
	}
	return Unavailable{Step: step, Category: category}
}
