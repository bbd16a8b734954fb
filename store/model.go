package store

import (
	"encoding/json"
	"errors"
)

// CurrentSchemaVersion is stamped into every encoded Record. Blobs
// carrying an unknown version are treated as corrupt.
const CurrentSchemaVersion = 1

// ErrCorruptRecord is returned when a stored session blob cannot be
// decoded. Callers treat a corrupt record as an absent one.
var ErrCorruptRecord = errors.New("corrupt session record")

// Record is the persisted session state: which account is signed in,
// the session token proving it, and when this state was last written.
//
// LastSync orders the two scopes during reconciliation: the record
// with the larger LastSync wins.
type Record struct {
	SchemaVersion int    `json:"v"`
	AccountID     string `json:"accountId"`
	Token         string `json:"token"`
	// Remember records whether the account opted into the persistent
	// scope at sign-in.
	Remember bool `json:"remember"`
	// LastSync is the write instant in Unix milliseconds.
	LastSync int64 `json:"lastSync"`
}

// Encode serializes rec, stamping the current schema version.
func Encode(rec *Record) ([]byte, error) {
	if rec == nil {
		return nil, errors.New("nil record")
	}
	if rec.AccountID == "" || rec.Token == "" {
		return nil, errors.New("record missing account id or token")
	}

	out := *rec
	out.SchemaVersion = CurrentSchemaVersion
	return json.Marshal(&out)
}

// Decode parses a stored blob. Any malformed or out-of-version blob
// returns ErrCorruptRecord rather than a raw decode error, so callers
// can uniformly map corruption to absence.
func Decode(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, ErrCorruptRecord
	}
	if rec.SchemaVersion != CurrentSchemaVersion {
		return nil, ErrCorruptRecord
	}
	if rec.AccountID == "" || rec.Token == "" {
		return nil, ErrCorruptRecord
	}
	return &rec, nil
}
