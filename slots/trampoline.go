package slots

// Value is anything a host passes through a slot.
type Value = any

// Args is a positional argument list.
type Args = []Value

// Kwargs maps keyword names to argument values.
type Kwargs = map[string]Value

// Shared handlers. There is one per table; the trampoline supplies the ID.
type (
	// CallHandler implements every slot of a call table.
	CallHandler func(recv Value, args Args, id ID) (Value, error)

	// CallKwHandler implements every slot of a call-with-keywords table.
	CallKwHandler func(recv Value, args Args, kw Kwargs, id ID) (Value, error)

	// GetHandler implements every slot of a getter table. attr is the opaque
	// per-attribute context the host registered alongside the slot.
	GetHandler func(recv Value, attr Value, id ID) (Value, error)

	// SetHandler implements every slot of a setter table.
	SetHandler func(recv Value, value Value, attr Value, id ID) error
)

// Trampoline is the kind-independent view of a table entry.
type Trampoline interface {
	ID() ID
	Kind() Kind
}

// ---------------------------------------------------------------------------
// Kind-specialized trampolines
// ---------------------------------------------------------------------------

// CallSlot forwards a positional call to its table's CallHandler.
type CallSlot struct {
	id ID
	h  CallHandler
}

func (s *CallSlot) ID() ID     { return s.id }
func (s *CallSlot) Kind() Kind { return KindCall }

// Call invokes the shared handler with this slot's ID.
func (s *CallSlot) Call(recv Value, args Args) (Value, error) {
	return s.h(recv, args, s.id)
}

// Func returns the entry as a plain function value.
func (s *CallSlot) Func() func(recv Value, args Args) (Value, error) {
	return s.Call
}

// CallKwSlot forwards a keyword call to its table's CallKwHandler.
type CallKwSlot struct {
	id ID
	h  CallKwHandler
}

func (s *CallKwSlot) ID() ID     { return s.id }
func (s *CallKwSlot) Kind() Kind { return KindCallKw }

// CallKw invokes the shared handler with this slot's ID.
func (s *CallKwSlot) CallKw(recv Value, args Args, kw Kwargs) (Value, error) {
	return s.h(recv, args, kw, s.id)
}

// Func returns the entry as a plain function value.
func (s *CallKwSlot) Func() func(recv Value, args Args, kw Kwargs) (Value, error) {
	return s.CallKw
}

// GetSlot forwards an attribute read to its table's GetHandler.
type GetSlot struct {
	id ID
	h  GetHandler
}

func (s *GetSlot) ID() ID     { return s.id }
func (s *GetSlot) Kind() Kind { return KindGet }

// Get invokes the shared handler with this slot's ID.
func (s *GetSlot) Get(recv Value, attr Value) (Value, error) {
	return s.h(recv, attr, s.id)
}

// Func returns the entry as a plain function value.
func (s *GetSlot) Func() func(recv Value, attr Value) (Value, error) {
	return s.Get
}

// SetSlot forwards an attribute write to its table's SetHandler.
type SetSlot struct {
	id ID
	h  SetHandler
}

func (s *SetSlot) ID() ID     { return s.id }
func (s *SetSlot) Kind() Kind { return KindSet }

// Set invokes the shared handler with this slot's ID.
func (s *SetSlot) Set(recv Value, value Value, attr Value) error {
	return s.h(recv, value, attr, s.id)
}

// Func returns the entry as a plain function value.
func (s *SetSlot) Func() func(recv Value, value Value, attr Value) error {
	return s.Set
}
