package record

import "github.com/rotisserie/eris"

var (
	// ErrMalformedJSON indicates an import payload that is not a JSON object
	// or array of objects. The prior collection is left untouched.
	ErrMalformedJSON = eris.New("record: malformed JSON")

	// ErrEditSessionConflict indicates BeginEdit while another record's edit
	// session is open. Only one session may be open at a time.
	ErrEditSessionConflict = eris.New("record: edit session already open")

	// ErrNoActiveEditSession indicates a draft operation with no open session.
	ErrNoActiveEditSession = eris.New("record: no active edit session")

	// ErrRecordNotFound indicates an identity that matches no record in the
	// current collection.
	ErrRecordNotFound = eris.New("record: not found")
)
