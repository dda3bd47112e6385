package bridge

import (
	"fmt"
	"math"
	"reflect"

	"github.com/chazu/slotbridge/layout"
)

// convert turns a host value into a value of type t.
//
// Assignable values pass through. Numbers convert between kinds when no
// information is lost, so a JSON 2.0 can fill an int parameter. []any and
// map[string]any are converted element-wise into slices, arrays, maps and
// structs. Objects unwrap to their pointer or struct value.
func convert(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("%w: nil to %s", ErrConvert, t)
	}

	if o, ok := v.(*Object); ok {
		switch {
		case o.ptr.Type().AssignableTo(t):
			return o.ptr, nil
		case o.ptr.Type().Elem().AssignableTo(t):
			return o.ptr.Elem(), nil
		}
	}

	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}

	switch {
	case isNumber(rv.Kind()) && isNumber(t.Kind()):
		return convertNumber(rv, t)

	case rv.Kind() == t.Kind() && rv.Type().ConvertibleTo(t):
		// Named types over the same underlying kind, e.g. string → type Name string.
		return rv.Convert(t), nil

	case rv.Kind() == reflect.String && t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8,
		rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 && t.Kind() == reflect.String:
		return rv.Convert(t), nil

	case rv.Kind() == reflect.Slice && (t.Kind() == reflect.Slice || t.Kind() == reflect.Array):
		return convertSlice(rv, t)

	case rv.Kind() == reflect.Map && t.Kind() == reflect.Map:
		return convertMap(rv, t)

	case rv.Kind() == reflect.Map && t.Kind() == reflect.Struct:
		return convertStruct(rv, t)

	case t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct && rv.Kind() == reflect.Map:
		sv, err := convertStruct(rv, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(sv)
		return p, nil
	}

	return reflect.Value{}, fmt.Errorf("%w: %T to %s", ErrConvert, v, t)
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isFloat(k reflect.Kind) bool { return k == reflect.Float32 || k == reflect.Float64 }

func isUnsigned(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

func isSigned(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

// convertNumber converts between numeric kinds, rejecting conversions that
// change the value. Float to float may round but not overflow.
func convertNumber(rv reflect.Value, t reflect.Type) (reflect.Value, error) {
	out := rv.Convert(t)
	if isFloat(rv.Kind()) && isFloat(t.Kind()) {
		// Narrowing rounds; only leaving the target's range is an error.
		if math.IsInf(out.Float(), 0) && !math.IsInf(rv.Float(), 0) {
			return reflect.Value{}, fmt.Errorf("%w: %v overflows %s", ErrConvert, rv.Interface(), t)
		}
		return out, nil
	}

	negative := false
	switch {
	case isFloat(rv.Kind()):
		negative = rv.Float() < 0
	case !isUnsigned(rv.Kind()):
		negative = rv.Int() < 0
	}
	if negative && isUnsigned(t.Kind()) {
		return reflect.Value{}, fmt.Errorf("%w: %v to %s", ErrConvert, rv.Interface(), t)
	}
	// Wrapping into the sign bit survives the round trip below.
	if isUnsigned(rv.Kind()) && isSigned(t.Kind()) && out.Int() < 0 {
		return reflect.Value{}, fmt.Errorf("%w: %v overflows %s", ErrConvert, rv.Interface(), t)
	}

	back := out.Convert(rv.Type())
	if back.Interface() != rv.Interface() {
		return reflect.Value{}, fmt.Errorf("%w: %v to %s loses precision", ErrConvert, rv.Interface(), t)
	}
	return out, nil
}

func convertSlice(rv reflect.Value, t reflect.Type) (reflect.Value, error) {
	n := rv.Len()
	var out reflect.Value
	if t.Kind() == reflect.Array {
		if n != t.Len() {
			return reflect.Value{}, fmt.Errorf("%w: %d elements to %s", ErrConvert, n, t)
		}
		out = reflect.New(t).Elem()
	} else {
		out = reflect.MakeSlice(t, n, n)
	}

	for i := 0; i < n; i++ {
		ev, err := convert(rv.Index(i).Interface(), t.Elem())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
		}
		out.Index(i).Set(ev)
	}
	return out, nil
}

func convertMap(rv reflect.Value, t reflect.Type) (reflect.Value, error) {
	out := reflect.MakeMapWithSize(t, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k, err := convert(iter.Key().Interface(), t.Key())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("key %v: %w", iter.Key().Interface(), err)
		}
		ev, err := convert(iter.Value().Interface(), t.Elem())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("key %v: %w", iter.Key().Interface(), err)
		}
		out.SetMapIndex(k, ev)
	}
	return out, nil
}

// convertStruct fills exported fields from a string-keyed map. Keys match
// the Go field name or its host name.
func convertStruct(rv reflect.Value, t reflect.Type) (reflect.Value, error) {
	if rv.Type().Key().Kind() != reflect.String {
		return reflect.Value{}, fmt.Errorf("%w: %s to %s", ErrConvert, rv.Type(), t)
	}

	out := reflect.New(t).Elem()
	iter := rv.MapRange()
	for iter.Next() {
		key := iter.Key().String()
		f, ok := fieldByHostName(t, key)
		if !ok {
			return reflect.Value{}, fmt.Errorf("%w: %s has no field %q", ErrConvert, t, key)
		}
		fv, err := convert(iter.Value().Interface(), f.Type)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("field %s: %w", f.Name, err)
		}
		out.FieldByIndex(f.Index).Set(fv)
	}
	return out, nil
}

func fieldByHostName(t reflect.Type, key string) (reflect.StructField, bool) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.IsExported() && (f.Name == key || layout.HostName(f.Name) == key) {
			return f, true
		}
	}
	return reflect.StructField{}, false
}
