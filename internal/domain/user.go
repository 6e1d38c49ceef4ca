package domain

type ContextKey string

const UserContextKey ContextKey = "user"

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User is the authenticated principal taken from the JWT claims.
// Account management lives outside this service.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
