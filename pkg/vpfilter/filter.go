// Package vpfilter provides the field-filter predicate engine the core
// consumes as an opaque collaborator, plus the two matchers built on top of
// it: FieldFiltersMatcher (linear scan of predicates) and
// HashFieldMaskMatcher (build-time hash lookup over a field-mask
// projection). The predicate engine itself is backed by expr-lang/expr,
// used here for evaluating a boolean expression against a record.
package vpfilter

import (
	"github.com/vplabeler/core/pkg/vprecord"
)

// NoMatch is the sentinel index returned by both matchers when nothing
// matches. It is distinct from any valid column/branch index (which are
// always >= 0).
const NoMatch = -1

// Filter answers matches(event) -> bool. The core never constructs a Filter
// directly except through ExprFilter or a hand-built template match list;
// callers that need the "build(record_template) -> Filter" form use
// NewTemplateFilter.
type Filter interface {
	Matches(event *vprecord.Event) bool
}

// ColumnMatcher is the shared contract between FieldFiltersMatcher and
// HashFieldMaskMatcher, used by pkg/updater's matrix updaters without a
// direct import of this package (see that package's local interface
// declaration — Go interfaces are satisfied structurally).
type ColumnMatcher interface {
	Match(event *vprecord.Event) int
}

// FuncFilter adapts a plain function to Filter, used by tests and by
// hand-built template filters that do not need a full expression.
type FuncFilter func(event *vprecord.Event) bool

func (f FuncFilter) Matches(event *vprecord.Event) bool {
	return f(event)
}

// TemplateMatch is one field path and the value it must equal for a
// template filter to match; NewTemplateFilter AND's them together. This is
// the "build(record_template) -> Filter" form: a filter built from a
// record template rather than a free-form expression.
type TemplateMatch struct {
	Path  vprecord.FieldPath
	Value any
}

// NewTemplateFilter builds a Filter from a record template: matches an
// event iff every templated field is set and equal to the template's value.
func NewTemplateFilter(matches []TemplateMatch) Filter {
	return FuncFilter(func(event *vprecord.Event) bool {
		for _, m := range matches {
			v, ok := m.Path.Get(event.Fields)
			if !ok || v != m.Value {
				return false
			}
		}
		return true
	})
}
