// Package vpio provides I/O-adjacent concerns treated as thin glue around
// the core evaluator: a canonical, order-stable encoding used by the
// hash-field-mask matcher, JSON (de)serialization standing in for the
// textproto single-root model format, and a simplified length-prefixed
// binary stream standing in for the Riegeli node-list format. None of this
// is a real protobuf wire codec — see DESIGN.md for why that substitution
// was made.
package vpio

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vplabeler/core/pkg/vprecord"
)

// ProjectFieldMask copies the subtree at each path in mask from src into a
// fresh, otherwise-empty record, preserving the unset/set distinction: a
// path absent from src is simply absent from the result, rather than
// written as some zero value.
func ProjectFieldMask(src vprecord.Fields, mask []vprecord.FieldPath) vprecord.Fields {
	dst := make(vprecord.Fields)
	for _, path := range mask {
		v, ok := path.Get(src)
		if !ok {
			continue
		}
		path.Set(dst, v)
	}
	return dst
}

// CanonicalEncode produces a deterministic byte encoding of fields: map keys
// are visited in sorted order at every level, and every value carries an
// explicit type tag, so two semantically-equal records always encode
// identically regardless of map iteration order, and an unset field
// contributes nothing (matching "unset projected field hashes the same as
// any other unset projected field" — both simply contribute no bytes).
func CanonicalEncode(fields vprecord.Fields) []byte {
	var b strings.Builder
	encodeFields(&b, fields)
	return []byte(b.String())
}

func encodeFields(b *strings.Builder, fields vprecord.Fields) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteByte('{')
	for _, k := range keys {
		b.WriteString(strconv.Quote(k))
		b.WriteByte(':')
		encodeValue(b, fields[k])
		b.WriteByte(';')
	}
	b.WriteByte('}')
}

func encodeValue(b *strings.Builder, v any) {
	switch t := v.(type) {
	case vprecord.Fields:
		encodeFields(b, t)
	case []any:
		b.WriteByte('[')
		for _, e := range t {
			encodeValue(b, e)
			b.WriteByte(',')
		}
		b.WriteByte(']')
	case string:
		b.WriteByte('s')
		b.WriteString(strconv.Quote(t))
	case bool:
		b.WriteByte('b')
		b.WriteString(strconv.FormatBool(t))
	case int64:
		b.WriteByte('i')
		b.WriteString(strconv.FormatInt(t, 10))
	case uint64:
		b.WriteByte('u')
		b.WriteString(strconv.FormatUint(t, 10))
	case float64:
		b.WriteByte('f')
		b.WriteString(strconv.FormatFloat(t, 'g', -1, 64))
	case nil:
		b.WriteByte('n')
	default:
		// Any other concrete scalar type (e.g. int32 literals from a
		// hand-built template) is encoded via fmt's default form;
		// field-path resolved values in this module are always one
		// of the cases above in practice.
		b.WriteByte('x')
		b.WriteString(strconv.Quote(fmt.Sprint(t)))
	}
}
