package models

const (
	RoleProctor = "proctor"
	RoleGate    = "gate"
	RoleAdmin   = "admin"
)

var allowedRoles = map[string]struct{}{
	RoleProctor: {},
	RoleGate:    {},
	RoleAdmin:   {},
}

func IsValidRole(role string) bool {
	_, ok := allowedRoles[role]
	return ok
}

// Actor is the staff member behind a request, resolved once by the auth
// middleware and handed to the lifecycle engine explicitly.
type Actor struct {
	ID   string `json:"staff_id"`
	Name string `json:"name"`
	Role string `json:"role"`
	Gate string `json:"gate,omitempty"`
}

// Display is the name stamped into approved_by / exited_by.
func (a Actor) Display() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}
