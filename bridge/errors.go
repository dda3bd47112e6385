package bridge

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/chazu/slotbridge/layout"
	"github.com/chazu/slotbridge/slots"
)

var (
	// ErrTypeNotRegistered means the receiver's type was never registered.
	ErrTypeNotRegistered = errors.New("type not registered")
	// ErrSlotNotFound means the receiver's type has nothing in that slot.
	ErrSlotNotFound = errors.New("slot not found")
	// ErrSlotKind means the slot holds a member of another kind, e.g. a
	// getter reached through the call table.
	ErrSlotKind = errors.New("slot kind mismatch")
	// ErrArity means the argument count does not match the member.
	ErrArity = errors.New("wrong number of arguments")
	// ErrConvert means an argument could not be converted to its parameter type.
	ErrConvert = errors.New("cannot convert value")
	// ErrNotStruct is returned when registering something other than a struct.
	ErrNotStruct = errors.New("not a struct type")
	// ErrNotFunc is returned when adding something other than a function.
	ErrNotFunc = errors.New("not a function")
	// ErrParamNames is returned when ParamNames does not name every parameter.
	ErrParamNames = errors.New("parameter names do not match signature")
	// ErrDuplicate is returned when a type or function name is taken.
	ErrDuplicate = errors.New("already registered")
	// ErrTooManySlots is returned when a type outgrows its dispatch tables.
	ErrTooManySlots = layout.ErrTooManySlots
)

// SlotError reports a failed slot resolution.
type SlotError struct {
	Type string
	ID   slots.ID
	Kind slots.Kind
	Err  error
}

func (e *SlotError) Error() string {
	return fmt.Sprintf("%s slot %s (%s): %v", e.Type, e.ID, e.Kind, e.Err)
}

func (e *SlotError) Unwrap() error { return e.Err }

// TypeError reports arguments a member cannot accept.
type TypeError struct {
	Member string
	Arg    int // -1 when the error concerns the argument list as a whole
	Want   reflect.Type
	Got    any
	Err    error
}

func (e *TypeError) Error() string {
	if e.Arg < 0 {
		return fmt.Sprintf("%s: %v", e.Member, e.Err)
	}
	return fmt.Sprintf("%s argument %d: %v", e.Member, e.Arg, e.Err)
}

func (e *TypeError) Unwrap() error { return e.Err }

func arityError(member string, format string, args ...any) error {
	return &TypeError{Member: member, Arg: -1, Err: fmt.Errorf("%w: "+format, append([]any{ErrArity}, args...)...)}
}
