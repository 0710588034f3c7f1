package domain

import (
	"time"

	perrors "go.pilab.hu/portal/errors"
	"go.pilab.hu/portal/internal/validation"
)

// UserStatus defines the possible statuses of a user account.
type UserStatus string

const (
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusInactive UserStatus = "INACTIVE"
)

// User is the signed-in user's profile as returned by /users/profile.
type User struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Status    UserStatus `json:"status"`
	Roles     []Role     `json:"roles"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// IsAdmin reports whether the user carries the admin role.
func (u User) IsAdmin() bool {
	return HasRole(u.Roles, RoleAdmin)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest is the registration form. ConfirmPassword never leaves the
// client.
type SignupRequest struct {
	FirstName       string `json:"firstName" validate:"required" msg:"First name is required"`
	LastName        string `json:"lastName" validate:"required" msg:"Last name is required"`
	Email           string `json:"email" validate:"required,email" msg:"Enter a valid email address"`
	Password        string `json:"password" validate:"min=8,max=64,password" msg:"Password must be 8 to 64 characters with an uppercase letter, a lowercase letter, a digit and one of @$!&"`
	ConfirmPassword string `json:"-" validate:"eqfield=Password" msg:"Passwords do not match"`
}

const (
	PasswordMinLength = 8
	PasswordMaxLength = 64
)

// ValidationCode tags signup failures as invalid_signup.
func (SignupRequest) ValidationCode() string { return perrors.ErrInvalidSignup.Code }

// Validate checks the form locally; nothing is sent when it fails.
func (r SignupRequest) Validate() error {
	return validation.Check(r)
}

type passwordPolicy struct {
	Password string `json:"password" validate:"min=8,max=64,password" msg:"Password must be 8 to 64 characters with an uppercase letter, a lowercase letter, a digit and one of @$!&"`
}

func (passwordPolicy) ValidationCode() string { return perrors.ErrInvalidSignup.Code }

// ValidatePassword applies the portal password policy on its own.
func ValidatePassword(pw string) error {
	return validation.Check(passwordPolicy{Password: pw})
}
