package domain

import (
	perrors "go.pilab.hu/portal/errors"
	"go.pilab.hu/portal/internal/validation"
)

// Answers is a category-shaped underwriting record. The concrete types are
// AutoAnswers, HomeAnswers and LifeAnswers.
type Answers interface {
	Category() Category
	Validate() error
	isAnswers()
}

// Vehicle types accepted for auto cover.
const (
	VehicleCar   = "car"
	VehicleMotor = "motor"
)

// Property types accepted for home cover.
const (
	PropertyApartment = "Apartment"
	PropertyLanded    = "Landed"
)

// Health statuses accepted for life cover.
const (
	HealthExcellent = "Excellent"
	HealthGood      = "Good"
	HealthPoor      = "Poor"
)

// MinimumInsurableAge is the youngest age accepted for life cover.
const MinimumInsurableAge = 18

type AutoAnswers struct {
	VehicleType             string `json:"type" validate:"oneof=car motor" msg:"Type is required (car or motor)"`
	AdditionalDriver        bool   `json:"additionalDriver"`
	NaturalDisasterCoverage bool   `json:"naturalDisaster"`
}

func (AutoAnswers) Category() Category { return CategoryAuto }
func (AutoAnswers) isAnswers()         {}

func (a AutoAnswers) Validate() error { return validation.Check(a) }

type HomeAnswers struct {
	PropertyType  string `json:"type" validate:"oneof=Apartment Landed" msg:"Type is required (Apartment or Landed)"`
	NumberOfRooms int    `json:"numberOfRooms" validate:"min=1" msg:"Must be at least 1 room"`
}

func (HomeAnswers) Category() Category { return CategoryHome }
func (HomeAnswers) isAnswers()         {}

func (a HomeAnswers) Validate() error { return validation.Check(a) }

type LifeAnswers struct {
	Age          int    `json:"age" validate:"gte=18" msg:"Age must be at least 18"`
	HealthStatus string `json:"healthStatus" validate:"oneof=Excellent Good Poor" msg:"Health status is required (Excellent, Good or Poor)"`
}

func (LifeAnswers) Category() Category { return CategoryLife }
func (LifeAnswers) isAnswers()         {}

func (a LifeAnswers) Validate() error { return validation.Check(a) }

func (AutoAnswers) ValidationCode() string { return perrors.ErrInvalidAnswers.Code }
func (HomeAnswers) ValidationCode() string { return perrors.ErrInvalidAnswers.Code }
func (LifeAnswers) ValidationCode() string { return perrors.ErrInvalidAnswers.Code }
