package slots

// Tables are filled once by a single loop over 0..255 and never written again,
// so lookups need no locking. Each entry is a distinct pointer; looking up the
// same ID twice yields the same trampoline.

// CallTable holds the 256 trampolines of a call table.
type CallTable struct {
	entries [Count]*CallSlot
}

// NewCallTable builds a call table whose every entry forwards to h.
func NewCallTable(h CallHandler) *CallTable {
	if h == nil {
		panic("slots: nil call handler")
	}
	t := &CallTable{}
	for i := range t.entries {
		t.entries[i] = &CallSlot{id: FromNibbles(uint8(i>>4), uint8(i&0xF)), h: h}
	}
	return t
}

// At returns the trampoline for id.
func (t *CallTable) At(id ID) *CallSlot { return t.entries[id] }

// Len returns the number of entries, always Count.
func (t *CallTable) Len() int { return len(t.entries) }

// Entries returns a copy of the entry array in slot order.
func (t *CallTable) Entries() [Count]*CallSlot { return t.entries }

// CallKwTable holds the 256 trampolines of a call-with-keywords table.
type CallKwTable struct {
	entries [Count]*CallKwSlot
}

// NewCallKwTable builds a call-with-keywords table whose every entry forwards to h.
func NewCallKwTable(h CallKwHandler) *CallKwTable {
	if h == nil {
		panic("slots: nil call-kw handler")
	}
	t := &CallKwTable{}
	for i := range t.entries {
		t.entries[i] = &CallKwSlot{id: FromNibbles(uint8(i>>4), uint8(i&0xF)), h: h}
	}
	return t
}

// At returns the trampoline for id.
func (t *CallKwTable) At(id ID) *CallKwSlot { return t.entries[id] }

// Len returns the number of entries, always Count.
func (t *CallKwTable) Len() int { return len(t.entries) }

// Entries returns a copy of the entry array in slot order.
func (t *CallKwTable) Entries() [Count]*CallKwSlot { return t.entries }

// GetterTable holds the 256 trampolines of an attribute getter table.
type GetterTable struct {
	entries [Count]*GetSlot
}

// NewGetterTable builds a getter table whose every entry forwards to h.
func NewGetterTable(h GetHandler) *GetterTable {
	if h == nil {
		panic("slots: nil getter handler")
	}
	t := &GetterTable{}
	for i := range t.entries {
		t.entries[i] = &GetSlot{id: FromNibbles(uint8(i>>4), uint8(i&0xF)), h: h}
	}
	return t
}

// At returns the trampoline for id.
func (t *GetterTable) At(id ID) *GetSlot { return t.entries[id] }

// Len returns the number of entries, always Count.
func (t *GetterTable) Len() int { return len(t.entries) }

// Entries returns a copy of the entry array in slot order.
func (t *GetterTable) Entries() [Count]*GetSlot { return t.entries }

// SetterTable holds the 256 trampolines of an attribute setter table.
type SetterTable struct {
	entries [Count]*SetSlot
}

// NewSetterTable builds a setter table whose every entry forwards to h.
func NewSetterTable(h SetHandler) *SetterTable {
	if h == nil {
		panic("slots: nil setter handler")
	}
	t := &SetterTable{}
	for i := range t.entries {
		t.entries[i] = &SetSlot{id: FromNibbles(uint8(i>>4), uint8(i&0xF)), h: h}
	}
	return t
}

// At returns the trampoline for id.
func (t *SetterTable) At(id ID) *SetSlot { return t.entries[id] }

// Len returns the number of entries, always Count.
func (t *SetterTable) Len() int { return len(t.entries) }

// Entries returns a copy of the entry array in slot order.
func (t *SetterTable) Entries() [Count]*SetSlot { return t.entries }

// ---------------------------------------------------------------------------
// Table sets
// ---------------------------------------------------------------------------

// Handlers names the shared handler of each table kind. Any of them may be
// nil; the matching table is then not built.
type Handlers struct {
	Call   CallHandler
	CallKw CallKwHandler
	Get    GetHandler
	Set    SetHandler
}

// Tables is a set of independent dispatch tables sharing one indexing
// convention. Tables for kinds without a handler are nil. The set is fixed
// once built; callers reach the tables through accessors only.
type Tables struct {
	call   *CallTable
	callKw *CallKwTable
	get    *GetterTable
	set    *SetterTable
}

// Build constructs a table for every non-nil handler in h.
func Build(h Handlers) *Tables {
	t := &Tables{}
	if h.Call != nil {
		t.call = NewCallTable(h.Call)
	}
	if h.CallKw != nil {
		t.callKw = NewCallKwTable(h.CallKw)
	}
	if h.Get != nil {
		t.get = NewGetterTable(h.Get)
	}
	if h.Set != nil {
		t.set = NewSetterTable(h.Set)
	}
	return t
}

// Call returns the positional call table, or nil.
func (t *Tables) Call() *CallTable { return t.call }

// CallKw returns the keyword call table, or nil.
func (t *Tables) CallKw() *CallKwTable { return t.callKw }

// Get returns the getter table, or nil.
func (t *Tables) Get() *GetterTable { return t.get }

// Set returns the setter table, or nil.
func (t *Tables) Set() *SetterTable { return t.set }

// Lookup returns the entry for kind and id, or false if that table was not built.
func (t *Tables) Lookup(kind Kind, id ID) (Trampoline, bool) {
	switch kind {
	case KindCall:
		if t.call != nil {
			return t.call.At(id), true
		}
	case KindCallKw:
		if t.callKw != nil {
			return t.callKw.At(id), true
		}
	case KindGet:
		if t.get != nil {
			return t.get.At(id), true
		}
	case KindSet:
		if t.set != nil {
			return t.set.At(id), true
		}
	}
	return nil, false
}
