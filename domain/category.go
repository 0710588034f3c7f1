package domain

import (
	"fmt"
	"strings"
)

// Category is the product category a wizard run is for.
type Category string

const (
	CategoryAuto Category = "auto"
	CategoryLife Category = "life"
	CategoryHome Category = "home"
)

// Categories lists the purchasable categories in display order.
var Categories = []Category{CategoryAuto, CategoryLife, CategoryHome}

// ParseCategory accepts any casing ("home", "HOME", "Home").
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown product category %q", s)
	}
	return c, nil
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryAuto, CategoryLife, CategoryHome:
		return true
	}
	return false
}

// APIType is the value the catalog endpoint expects in ?type=.
func (c Category) APIType() string {
	return strings.ToUpper(string(c))
}

// PolicyType is the type label carried by catalog items and issued policies.
type PolicyType string

const (
	PolicyTypeLife PolicyType = "Life"
	PolicyTypeHome PolicyType = "Home"
	PolicyTypeAuto PolicyType = "Auto"
)

// Category maps the type label back to its category.
func (t PolicyType) Category() Category {
	return Category(strings.ToLower(string(t)))
}

// PolicyTypeOf returns the label used for c in remote payloads.
func PolicyTypeOf(c Category) PolicyType {
	switch c {
	case CategoryAuto:
		return PolicyTypeAuto
	case CategoryHome:
		return PolicyTypeHome
	case CategoryLife:
		return PolicyTypeLife
	}
	return PolicyType(c)
}
