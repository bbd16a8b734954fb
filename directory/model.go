package directory

import "time"

// Account user types.
const (
	UserTypeStudent      = "student"
	UserTypeProfessional = "professional"
)

// Account is a member record as held by the directory. SecretHash is
// the argon2id hash of the account password; the directory never sees
// plaintext.
type Account struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	SecretHash     string `json:"secretHash"`
	Organization   string `json:"organization"`
	UserType       string `json:"userType,omitempty"`
	ProblemsSolved int    `json:"problemsSolved"`
	Points         int    `json:"points"`
	ProfileImage   string `json:"profileImage,omitempty"`
	Downloads      int    `json:"downloads,omitempty"`
	// Demo marks seeded demonstration accounts. They can sign in but
	// are excluded from peer listings.
	Demo      bool      `json:"demo,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy so callers cannot mutate directory state
// through a returned pointer.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	out := *a
	return &out
}

// Update carries the mutable profile fields for UpdateProfile. Nil
// pointers mean "leave unchanged".
type Update struct {
	Name           *string
	Username       *string
	Email          *string
	Organization   *string
	UserType       *string
	ProblemsSolved *int
	Points         *int
	ProfileImage   *string
	Downloads      *int
	SecretHash     *string
}
