package auth

import (
	"errors"
	"time"
)

// Scope distinguishes the two portals.
type Scope string

const (
	ScopeHospital Scope = "hospital"
	ScopeSupplier Scope = "supplier"
)

// User is a portal account. OrgID is the hospital or supplier the account
// belongs to, depending on Scope.
type User struct {
	ID           int64     `json:"id"`
	Scope        Scope     `json:"scope"`
	OrgID        int64     `json:"orgId"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Actor is the verified identity attached to each request.
type Actor struct {
	Scope  Scope
	UserID int64
	OrgID  int64
	Role   string
}

var (
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrDuplicateUsername indicates the username is taken.
	ErrDuplicateUsername = errors.New("auth: username already registered")
	// ErrValidation indicates invalid registration input.
	ErrValidation = errors.New("auth: invalid input")
)
