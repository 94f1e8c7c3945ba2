package domain

// Role differentiates client and employee identities.
type Role string

const (
	RoleClient   Role = "CLIENT"
	RoleEmployee Role = "EMPLOYEE"
)

// Identity is the authenticated caller as the engine sees it.
type Identity struct {
	ID      int64
	Role    Role
	IsAdmin bool
}
