package domain

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

type User struct {
	ID    uint64
	Email string
	Role  Role
}

// Principal is the identity acting on a request.
type Principal struct {
	UserID        uint64
	Role          Role
	Authenticated bool
}

func (p *Principal) IsAuthenticated() bool {
	return p != nil && p.Authenticated
}

func (p *Principal) IsAdmin() bool {
	return p.IsAuthenticated() && p.Role == RoleAdmin
}
