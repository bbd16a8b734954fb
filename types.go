package codehub

import (
	"time"

	"github.com/praveen-sk-07/codegen-code-hub/directory"
	"github.com/praveen-sk-07/codegen-code-hub/ledger"
	"github.com/praveen-sk-07/codegen-code-hub/store"
)

// RedactedSecret is the fixed placeholder substituted for a peer's
// password in every peer listing. The real hash never leaves the
// directory.
const RedactedSecret = "********"

// Status is the sign-in state of the engine.
type Status uint8

const (
	// StatusSignedOut is an exported constant or variable used by the session engine.
	StatusSignedOut Status = iota
	// StatusSignedIn is an exported constant or variable used by the session engine.
	StatusSignedIn
)

// String returns the status name.
func (s Status) String() string {
	if s == StatusSignedIn {
		return "signed_in"
	}
	return "signed_out"
}

// Profile is the public view of an account: everything the directory
// holds except the secret hash. Rank is derived from ProblemsSolved.
type Profile struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	Organization   string `json:"organization"`
	UserType       string `json:"userType,omitempty"`
	ProblemsSolved int    `json:"problemsSolved"`
	Points         int    `json:"points"`
	ProfileImage   string `json:"profileImage,omitempty"`
	Downloads      int    `json:"downloads,omitempty"`
	Rank           int    `json:"rank"`
}

// PeerProfile is a Profile as shown in a peer listing, with the secret
// slot filled by the fixed placeholder.
type PeerProfile struct {
	Profile
	Secret string `json:"secret"`
}

// State is a point-in-time snapshot of the engine's session state.
// Account is nil when signed out. Loading is true while a sign-in,
// registration, or hydration is in flight.
type State struct {
	Status  Status
	Account *Profile
	Loading bool
}

// EventKind classifies a session state change.
type EventKind uint8

const (
	// EventSignedIn is an exported constant or variable used by the session engine.
	EventSignedIn EventKind = iota
	// EventSignedOut is an exported constant or variable used by the session engine.
	EventSignedOut
	// EventUpdated is an exported constant or variable used by the session engine.
	EventUpdated
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventSignedIn:
		return "signed_in"
	case EventSignedOut:
		return "signed_out"
	default:
		return "updated"
	}
}

// Event is delivered to Subscribe channels on every session state
// change. Account is nil for EventSignedOut.
type Event struct {
	Kind    EventKind
	Account *Profile
	At      time.Time
}

// RegisterInput is the input for [Engine.Register]. Organization may
// be empty; it is stored as "N/A".
type RegisterInput struct {
	Name         string `validate:"required,min=2,max=100"`
	Username     string `validate:"required,min=3,max=30,alphanum"`
	Email        string `validate:"required,email"`
	Password     string `validate:"required"`
	Organization string `validate:"max=120"`
	UserType     string `validate:"omitempty,oneof=student professional"`
	Remember     bool   `validate:"-"`
}

// ProfileUpdate carries the mutable profile fields for
// [Engine.UpdateProfile]. Nil pointers mean "leave unchanged". A
// non-nil NewPassword is checked against the password policy and
// re-hashed.
type ProfileUpdate struct {
	Name         *string
	Username     *string
	Email        *string
	Organization *string
	UserType     *string
	ProfileImage *string
	NewPassword  *string
}

// Account is the directory's account record.
type Account = directory.Account

// Challenge is one entry of the practice catalog.
type Challenge = ledger.Challenge

// Record is the persisted session record shared by both scopes.
type Record = store.Record

// KV is the byte-oriented scope interface used by the session store.
type KV = store.KV
