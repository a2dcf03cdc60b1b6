package users

// Role values the platform issues. The set is open; unknown values pass
// through untouched.
const (
	RoleAdmin           = "admin"
	RoleInstitutionUser = "institution_user"
	RolePatient         = "patient"
)

// User is a platform login identity. relatedEntityId ties the identity to
// a domain record, e.g. the patient a patient-role login belongs to.
type User struct {
	ID              string `json:"id,omitempty"`
	Email           string `json:"email"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
	Role            string `json:"role,omitempty"`
	RelatedEntityID string `json:"relatedEntityId,omitempty"`
	IsActive        bool   `json:"is_active"`
	LastLogin       string `json:"last_login,omitempty"`
}
