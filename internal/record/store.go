package record

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// visibilityPriority seeds column visibility on load. If none of these
// fields exist in the collection, the first defaultVisibleCount known
// fields are shown instead.
var visibilityPriority = []string{"indicator", "title", "tier", "ladmLink", "externalData"}

const defaultVisibleCount = 6

// Entry pairs a record with its derived identity and edit marker for
// presentation callers.
type Entry struct {
	Identity string `json:"identity"`
	Edited   bool   `json:"edited"`
	Record   Record `json:"record"`
}

type editSession struct {
	identity string
	index    int
	draft    Record
}

// Store holds an ordered record collection together with its known-field
// universe, column visibility, filter state and edit overlay. It is not
// safe for concurrent use; callers serialize access.
type Store struct {
	records    []Record
	fields     []string
	visibility map[string]bool
	filter     FilterState
	edited     map[string]bool
	session    *editSession
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		visibility: map[string]bool{},
		edited:     map[string]bool{},
	}
}

// Load replaces the active collection, recomputes the known-field universe
// and reseeds column visibility. The edit overlay is cleared. Filter state
// is deliberately preserved across loads.
func (s *Store) Load(records []Record) {
	s.records = make([]Record, len(records))
	copy(s.records, records)
	s.fields = FieldUniverse(s.records)
	s.visibility = seedVisibility(s.fields)
	s.edited = map[string]bool{}
	s.session = nil
}

func seedVisibility(fields []string) map[string]bool {
	vis := make(map[string]bool, len(fields))
	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		vis[f] = false
		known[f] = true
	}

	any := false
	for _, f := range visibilityPriority {
		if known[f] {
			vis[f] = true
			any = true
		}
	}
	if !any {
		for i, f := range fields {
			if i >= defaultVisibleCount {
				break
			}
			vis[f] = true
		}
	}
	return vis
}

// Len returns the size of the active collection.
func (s *Store) Len() int {
	return len(s.records)
}

// KnownFields returns the ordered field universe.
func (s *Store) KnownFields() []string {
	out := make([]string, len(s.fields))
	copy(out, s.fields)
	return out
}

// Visibility returns a copy of the column visibility map.
func (s *Store) Visibility() map[string]bool {
	out := make(map[string]bool, len(s.visibility))
	for k, v := range s.visibility {
		out[k] = v
	}
	return out
}

// SetVisibility toggles a known column; unknown fields are ignored.
func (s *Store) SetVisibility(field string, visible bool) {
	if _, ok := s.visibility[field]; ok {
		s.visibility[field] = visible
	}
}

// SetGlobalQuery sets the global substring query.
func (s *Store) SetGlobalQuery(query string) {
	s.filter.Query = query
}

// SetFieldFilter configures a per-field predicate. An empty pattern removes
// the predicate for that field.
func (s *Store) SetFieldFilter(field, pattern string, mode MatchMode) {
	if pattern == "" {
		delete(s.filter.Fields, field)
		return
	}
	if s.filter.Fields == nil {
		s.filter.Fields = map[string]FieldFilter{}
	}
	s.filter.Fields[field] = FieldFilter{Pattern: pattern, Mode: mode}
}

// ClearFilters resets the global query and all per-field predicates.
func (s *Store) ClearFilters() {
	s.filter = FilterState{}
}

// Filter returns a copy of the current filter state.
func (s *Store) Filter() FilterState {
	return s.filter.Clone()
}

// SetFilter replaces the whole filter state.
func (s *Store) SetFilter(state FilterState) {
	s.filter = state.Clone()
}

// VisibleRecords returns the records passing the current filter state in
// original relative order, recomputed from scratch on every call.
func (s *Store) VisibleRecords() []Record {
	return Visible(s.records, s.fields, s.filter)
}

// VisibleEntries returns the filtered records annotated with identity and
// edit markers. Identities derive from positions in the full collection,
// not the filtered view.
func (s *Store) VisibleEntries() []Entry {
	out := make([]Entry, 0, len(s.records))
	for i, r := range s.records {
		if !s.filter.Matches(r, s.fields) {
			continue
		}
		id := Identity(r, i)
		out = append(out, Entry{Identity: id, Edited: s.edited[id], Record: r})
	}
	return out
}

// indexOf locates a record by derived identity.
func (s *Store) indexOf(identity string) (int, bool) {
	for i, r := range s.records {
		if Identity(r, i) == identity {
			return i, true
		}
	}
	return 0, false
}

// BeginEdit opens an edit session for the identified record and returns a
// draft copy of its fields. Calling it again for the same identity returns
// the existing draft; any other identity while a session is open is an
// ErrEditSessionConflict.
func (s *Store) BeginEdit(identity string) (Record, error) {
	if s.session != nil {
		if s.session.identity == identity {
			return s.session.draft, nil
		}
		return Record{}, eris.Wrapf(ErrEditSessionConflict, "editing %s", s.session.identity)
	}

	idx, ok := s.indexOf(identity)
	if !ok {
		return Record{}, eris.Wrapf(ErrRecordNotFound, "identity %s", identity)
	}

	s.session = &editSession{
		identity: identity,
		index:    idx,
		draft:    s.records[idx].Clone(),
	}
	return s.session.draft, nil
}

// SetDraftField updates a field on the open draft.
func (s *Store) SetDraftField(field string, value any) error {
	if s.session == nil {
		return ErrNoActiveEditSession
	}
	s.session.draft.Set(field, value)
	return nil
}

// CommitEdit replaces the record at its original position with the draft
// and marks its identity as edited.
func (s *Store) CommitEdit() error {
	if s.session == nil {
		return ErrNoActiveEditSession
	}
	s.records[s.session.index] = s.session.draft
	s.edited[s.session.identity] = true
	s.session = nil
	// The draft may have introduced fields unknown to the universe. New
	// fields default to hidden; visibility is only reseeded on Load.
	s.fields = FieldUniverse(s.records)
	for _, f := range s.fields {
		if _, ok := s.visibility[f]; !ok {
			s.visibility[f] = false
		}
	}
	return nil
}

// CancelEdit discards any open draft without touching the collection.
// It is a no-op when no session is open.
func (s *Store) CancelEdit() {
	s.session = nil
}

// Editing returns the identity of the open edit session, if any.
func (s *Store) Editing() (string, bool) {
	if s.session == nil {
		return "", false
	}
	return s.session.identity, true
}

// IsEdited reports whether the identity was committed during this session.
func (s *Store) IsEdited(identity string) bool {
	return s.edited[identity]
}

// ExportSnapshot returns the full current collection, ignoring filters.
func (s *Store) ExportSnapshot() []Record {
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// ImportCollection parses a raw JSON payload into a record collection. A
// top-level object is wrapped into a one-element collection; a top-level
// array is used directly; anything else is ErrMalformedJSON.
func ImportCollection(raw []byte) ([]Record, error) {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, eris.Wrap(ErrMalformedJSON, "empty input")
	}

	switch trimmed[0] {
	case '[':
		var records []Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, eris.Wrap(ErrMalformedJSON, err.Error())
		}
		return records, nil
	case '{':
		var r Record
		if err := json.Unmarshal(trimmed, &r); err != nil {
			return nil, eris.Wrap(ErrMalformedJSON, err.Error())
		}
		return []Record{r}, nil
	default:
		return nil, eris.Wrap(ErrMalformedJSON, "top-level value must be an object or array")
	}
}
