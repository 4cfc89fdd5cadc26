package event

import (
	"encoding/json"
	"fmt"
)

// Event types emitted by the wrapper platform toward downstream apps.
const (
	TypeOrganizationCreated = "organization.created"
	TypeCreditAllocated     = "credit.allocated"
	TypeRoleUpdated         = "role.updated"
	TypeUserSynced          = "user.synced"
)

// OrganizationCreated announces a new organization to downstream apps.
type OrganizationCreated struct {
	OrganizationID string `json:"organizationId"`
	Name           string `json:"name"`
	Plan           string `json:"plan"`
}

// CreditAllocated carries a credit grant for a tenant entity.
type CreditAllocated struct {
	AllocationID string `json:"allocationId"`
	Amount       int64  `json:"amount"`
	Reason       string `json:"reason,omitempty"`
}

// RoleUpdated propagates a role definition change.
type RoleUpdated struct {
	RoleID      string   `json:"roleId"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

// UserSynced mirrors a wrapper user into a downstream app.
type UserSynced struct {
	UserID string   `json:"userId"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles,omitempty"`
}

// DefaultRegistry returns a registry preloaded with the platform's event
// payload schemas.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(TypeOrganizationCreated, func(data json.RawMessage) error {
		var p OrganizationCreated
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if p.OrganizationID == "" || p.Name == "" {
			return fmt.Errorf("%w: organization.created requires organizationId and name", ErrMalformed)
		}
		return nil
	})
	r.Register(TypeCreditAllocated, func(data json.RawMessage) error {
		var p CreditAllocated
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if p.AllocationID == "" {
			return fmt.Errorf("%w: credit.allocated requires allocationId", ErrMalformed)
		}
		if p.Amount <= 0 {
			return fmt.Errorf("%w: credit.allocated requires a positive amount", ErrMalformed)
		}
		return nil
	})
	r.Register(TypeRoleUpdated, func(data json.RawMessage) error {
		var p RoleUpdated
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if p.RoleID == "" {
			return fmt.Errorf("%w: role.updated requires roleId", ErrMalformed)
		}
		return nil
	})
	r.Register(TypeUserSynced, func(data json.RawMessage) error {
		var p UserSynced
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if p.UserID == "" || p.Email == "" {
			return fmt.Errorf("%w: user.synced requires userId and email", ErrMalformed)
		}
		return nil
	})
	return r
}
