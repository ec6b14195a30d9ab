package models

import "time"

const (
	RoleCustomer = "customer"
	RoleManager  = "manager"
)

type Account struct {
	ID        int64     `yaml:"id" json:"id"`
	Email     string    `yaml:"email" json:"email"`
	Name      string    `yaml:"name" json:"name"`
	IsActive  bool      `yaml:"is_active" json:"is_active"`
	CreatedAt time.Time `yaml:"-" json:"created_at"`
}

// Identity is the pre-validated caller handed down to every operation.
// It is resolved once per request by the API auth layer and never
// re-derived inside services.
type Identity struct {
	AccountID int64
	Roles     []string
}

func (i Identity) HasRole(role string) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// CanManage reports whether the caller may act on a booking owned by
// the given account.
func (i Identity) CanManage(ownerAccountID int64) bool {
	return i.AccountID == ownerAccountID || i.HasRole(RoleManager)
}
