// Package vprecord defines the runtime scratch record the tree evaluator
// mutates during one Label call, plus the two collaborators this domain
// treats as opaque: field-path resolution and merge_from. There is no protobuf
// schema available in this environment (see DESIGN.md), so records are
// represented as nested string-keyed maps, resolved once at build time into
// a FieldPath — a pre-split list of segments — so apply-time access never
// re-parses a dotted string.
package vprecord

import "strings"

// Fields is the generic nested record both LabelerInput and the well-known
// demographic/country/shredder/multiplicity fields live in. A nested record
// is itself a Fields value; a repeated field is a []any of scalars or nested
// Fields.
type Fields map[string]any

// EventID mirrors the well-known event_id message: an opaque id plus its
// derived fingerprint, computed by the labeler before the tree runs.
type EventID struct {
	ID            string
	IDFingerprint uint64
}

// UserInfo mirrors one id-space entry of profile_info.
type UserInfo struct {
	UserID            string
	UserIDFingerprint uint64
}

// LabelerInput is the public input contract.
type LabelerInput struct {
	EventID     *EventID
	ProfileInfo map[string]UserInfo // keyed by id-space name
	// Extra carries any additional input fields the tree's filters or
	// updaters address by field path; merged into the event's Fields
	// under the "input" root before the tree runs.
	Extra Fields
}

// Activity is one produced virtual-person activity. Populated distinguishes
// "no virtual_person_id assigned yet" from an assignment that happens to
// land on id 0, since a population node's apply must detect a
// pre-populated activity as an invalid-argument error. Label carries the
// demographic record a population node copies from the event's reserved
// label field, regardless of whether a virtual_person_id ends up assigned.
type Activity struct {
	VirtualPersonID int64
	Populated       bool
	Label           Fields
}

// labelFieldName is the reserved top-level Fields key updaters write
// demographic output into; Event.Label reads it back for a population node
// to copy onto the activity it produces.
const labelFieldName = "label"

// Label returns a copy of the event's reserved label record (empty if no
// updater has written to it yet). Updaters address it like any other field,
// via a FieldPath rooted at "label".
func (e *Event) Label() Fields {
	if v, ok := e.Fields[labelFieldName]; ok {
		if f, ok := v.(Fields); ok {
			return cloneFields(f)
		}
	}
	return make(Fields)
}

// Event is the mutable scratch record the tree evaluates for one input (or
// one multiplicity clone of it). It exists only for the duration of a single
// Label call.
type Event struct {
	Input                   LabelerInput
	ActingFingerprint       uint64
	VirtualPersonActivities []Activity

	// Fields holds every well-known and ad hoc demographic/country/
	// shredder/multiplicity field the tree's updaters and filters
	// address by dotted path, plus the raw input under "input".
	Fields Fields
}

// NewEvent builds a fresh scratch event from an input, seeding Fields with a
// copy of the input's Extra bag under "input" so field paths like
// "input.person_country_code" resolve against it.
func NewEvent(input LabelerInput) *Event {
	fields := make(Fields)
	if input.Extra != nil {
		fields["input"] = cloneFields(input.Extra)
	} else {
		fields["input"] = make(Fields)
	}

	return &Event{
		Input:  input,
		Fields: fields,
	}
}

// Clone returns a deep, independent copy suitable for a multiplicity clone:
// same input and field values, but its own VirtualPersonActivities slice
// (started empty — a clone accumulates its own activities which are later
// concatenated onto the original).
func (e *Event) Clone() *Event {
	return &Event{
		Input:             e.Input,
		ActingFingerprint: e.ActingFingerprint,
		Fields:            cloneFields(e.Fields),
	}
}

func cloneFields(f Fields) Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Fields:
		return cloneFields(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// MergeFrom applies merge_from semantics: scalars overwrite, lists
// concatenate, nested records recursively merge.
func (e *Event) MergeFrom(patch Fields) {
	e.Fields = mergeFields(e.Fields, patch)
}

// MergeFields merges patch into dst in place, following the same scalar/
// list/record rules, and returns the result (useful for merging two plain
// Fields values outside of an Event, e.g. field-mask projection).
func MergeFields(dst, patch Fields) Fields {
	return mergeFields(dst, patch)
}

func mergeFields(dst, patch Fields) Fields {
	if dst == nil {
		dst = make(Fields)
	}
	for k, pv := range patch {
		dv, exists := dst[k]
		if !exists {
			dst[k] = cloneValue(pv)
			continue
		}
		switch pt := pv.(type) {
		case Fields:
			if dsub, ok := dv.(Fields); ok {
				dst[k] = mergeFields(dsub, pt)
			} else {
				dst[k] = cloneFields(pt)
			}
		case []any:
			if dlist, ok := dv.([]any); ok {
				dst[k] = append(append([]any{}, dlist...), cloneValue(pt).([]any)...)
			} else {
				dst[k] = cloneValue(pt)
			}
		default:
			dst[k] = pv
		}
	}
	return dst
}

// FieldPath is a dotted path resolved once, at build time, into its
// segments — matching the design note that a systems language without
// runtime reflection must resolve field paths at build time, never at apply
// time.
type FieldPath []string

// ParseFieldPath splits a dotted path string into a FieldPath. Callers must
// do this during build; Get/Set never re-split a string.
func ParseFieldPath(path string) FieldPath {
	return strings.Split(path, ".")
}

// Resolvable reports whether p is a non-empty path with no empty segment
// (an empty input string, a leading/trailing/doubled dot). Build-time
// validators use this to reject an unresolvable field path the same way a
// schema-backed field lookup would reject an unknown field.
func (p FieldPath) Resolvable() bool {
	if len(p) == 0 {
		return false
	}
	for _, seg := range p {
		if seg == "" {
			return false
		}
	}
	return true
}

// Get walks the path over fields and reports whether every segment was set.
func (p FieldPath) Get(fields Fields) (any, bool) {
	var cur any = fields
	for _, seg := range p {
		m, ok := cur.(Fields)
		if !ok {
			return nil, false
		}
		v, ok := m[seg]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// Set writes value at the path, creating intermediate records as needed.
func (p FieldPath) Set(fields Fields, value any) {
	cur := fields
	for i, seg := range p {
		if i == len(p)-1 {
			cur[seg] = value
			return
		}
		next, ok := cur[seg].(Fields)
		if !ok {
			next = make(Fields)
			cur[seg] = next
		}
		cur = next
	}
}

// String returns the original dotted-path form, for diagnostics.
func (p FieldPath) String() string {
	return strings.Join(p, ".")
}
