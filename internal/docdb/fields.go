// Maps JSON field names to struct fields for equality filters.

package docdb

import (
	"reflect"
	"strings"
)

// fieldIndex maps JSON names to struct field index paths, following the
// encoding/json visibility rules for embedded structs.
type fieldIndex map[string][]int

func newFieldIndex(t reflect.Type) fieldIndex {
	idx := fieldIndex{}
	collectFields(t, nil, idx)
	return idx
}

func collectFields(t reflect.Type, prefix []int, idx fieldIndex) {
	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		path := append(append([]int(nil), prefix...), i)
		if f.Anonymous && name == "" && f.Type.Kind() == reflect.Struct {
			collectFields(f.Type, path, idx)
			continue
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		// Shallower fields shadow embedded ones, as in encoding/json.
		if prev, ok := idx[name]; ok && len(prev) <= len(path) {
			continue
		}
		idx[name] = path
	}
}

// value returns the named field of the struct pointed to by e.
func (idx fieldIndex) value(e any, name string) (reflect.Value, bool) {
	path, ok := idx[name]
	if !ok {
		return reflect.Value{}, false
	}
	return reflect.ValueOf(e).Elem().FieldByIndex(path), true
}

// equalValue reports whether the field value fv equals want.
//
// Numbers compare by value across Go numeric types and strings by content
// across named string types; anything else must match with reflect.DeepEqual.
func equalValue(fv reflect.Value, want any) bool {
	wv := reflect.ValueOf(want)
	if !wv.IsValid() {
		switch fv.Kind() { //nolint:exhaustive // Only nilable kinds can equal nil.
		case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map:
			return fv.IsNil()
		default:
			return false
		}
	}
	switch {
	case isInt(fv.Kind()) && isInt(wv.Kind()):
		return fv.Int() == wv.Int()
	case isUint(fv.Kind()) && isUint(wv.Kind()):
		return fv.Uint() == wv.Uint()
	case isNumber(fv.Kind()) && isNumber(wv.Kind()):
		return asFloat(fv) == asFloat(wv)
	case fv.Kind() == reflect.String && wv.Kind() == reflect.String:
		return fv.String() == wv.String()
	}
	return reflect.DeepEqual(fv.Interface(), want)
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isNumber(k reflect.Kind) bool {
	return isInt(k) || isUint(k) || k == reflect.Float32 || k == reflect.Float64
}

func asFloat(v reflect.Value) float64 {
	switch {
	case isInt(v.Kind()):
		return float64(v.Int())
	case isUint(v.Kind()):
		return float64(v.Uint())
	default:
		return v.Float()
	}
}
