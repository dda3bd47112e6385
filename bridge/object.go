package bridge

import (
	"fmt"
	"reflect"
)

// Object is the host-side handle of a Go value of a registered type.
type Object struct {
	info *TypeInfo
	ptr  reflect.Value // always a non-nil *T
}

// Type returns the object's slot space.
func (o *Object) Type() *TypeInfo { return o.info }

// Interface returns the wrapped pointer.
func (o *Object) Interface() any { return o.ptr.Interface() }

func (o *Object) String() string {
	return fmt.Sprintf("<%s %v>", o.info.Name, o.ptr.Elem().Interface())
}

// Wrap returns an Object for v, which must be a non-nil pointer to a
// registered struct type.
func (b *Bridge) Wrap(v any) (*Object, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return nil, fmt.Errorf("Wrap: %w: %T is not a non-nil pointer", ErrTypeNotRegistered, v)
	}
	ti := b.LookupType(rv.Type())
	if ti == nil {
		return nil, fmt.Errorf("Wrap: %w: %s", ErrTypeNotRegistered, rv.Type().Elem())
	}
	return &Object{info: ti, ptr: rv}, nil
}

// NewObject allocates a zero value of the named type and runs its init
// function with args. Types without an init accept no arguments.
func (b *Bridge) NewObject(typeName string, args ...any) (*Object, error) {
	b.mu.RLock()
	ti := b.byName[typeName]
	b.mu.RUnlock()
	if ti == nil {
		return nil, fmt.Errorf("NewObject: %w: %s", ErrTypeNotRegistered, typeName)
	}

	ptr := reflect.New(ti.GoType)
	if ti.init == nil {
		if len(args) > 0 {
			return nil, arityError(typeName, "expects 0 arguments, got %d", len(args))
		}
		return &Object{info: ti, ptr: ptr}, nil
	}

	if _, err := invoke(ti.init, typeName+".init", ptr, args, nil); err != nil {
		return nil, err
	}
	return &Object{info: ti, ptr: ptr}, nil
}
