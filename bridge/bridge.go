// Package bridge exposes Go values to a slot-addressed host runtime.
//
// A Bridge implements the four shared handlers of the slots package. Each
// registered struct type (and each module of free functions) gets its own
// slot space: methods first, then a getter and a setter per exported field.
// The host invokes entry N of a dispatch table with a receiver; the bridge
// resolves the receiver's type, looks up member N and calls it through
// reflection.
package bridge

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/chazu/slotbridge/layout"
	"github.com/chazu/slotbridge/slots"
)

var log = commonlog.GetLogger("slotbridge.bridge")

// Bridge maps Go types and modules to slot spaces.
// Thread-safe for concurrent registration and dispatch.
type Bridge struct {
	mu      sync.RWMutex
	types   map[reflect.Type]*TypeInfo
	byName  map[string]*TypeInfo
	modules map[string]*Module
	plans   []*layout.Plan

	tables func() *slots.Tables
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithPlan pins slot IDs to the assignments recorded in the given plans.
// Members missing from every plan get the lowest free IDs.
func WithPlan(plans ...*layout.Plan) Option {
	return func(b *Bridge) {
		for _, p := range plans {
			if p != nil {
				b.plans = append(b.plans, p)
			}
		}
	}
}

// New creates an empty bridge.
func New(opts ...Option) *Bridge {
	b := &Bridge{
		types:   make(map[reflect.Type]*TypeInfo),
		byName:  make(map[string]*TypeInfo),
		modules: make(map[string]*Module),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.tables = sync.OnceValue(func() *slots.Tables {
		return slots.Build(b.Handlers())
	})
	return b
}

var defaultBridge = sync.OnceValue(func() *Bridge { return New() })

// Default returns the process-wide bridge.
func Default() *Bridge { return defaultBridge() }

// Handlers returns the bridge's shared handlers, one per table kind.
func (b *Bridge) Handlers() slots.Handlers {
	return slots.Handlers{
		Call:   b.DispatchCall,
		CallKw: b.DispatchCallKw,
		Get:    b.DispatchGet,
		Set:    b.DispatchSet,
	}
}

// Tables returns the dispatch tables bound to this bridge. They are built on
// first use and shared by every caller afterwards.
func (b *Bridge) Tables() *slots.Tables { return b.tables() }

// Lookup returns the registered type or module with the given name, or nil.
// Type names take precedence over module names.
func (b *Bridge) Lookup(name string) *TypeInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if ti := b.byName[name]; ti != nil {
		return ti
	}
	if m := b.modules[name]; m != nil {
		return m.info
	}
	return nil
}

// LookupModule returns the named module, or nil. Unlike Module it never
// creates one, and unlike Lookup it ignores types of the same name.
func (b *Bridge) LookupModule(name string) *Module {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.modules[name]
}

// LookupType returns the info for a Go struct type (or pointer to one).
func (b *Bridge) LookupType(t reflect.Type) *TypeInfo {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.types[t]
}

// Types returns every registered type and module, sorted by name.
func (b *Bridge) Types() []*TypeInfo {
	b.mu.RLock()
	result := make([]*TypeInfo, 0, len(b.byName)+len(b.modules))
	for _, ti := range b.byName {
		result = append(result, ti)
	}
	for _, m := range b.modules {
		result = append(result, m.info)
	}
	b.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Module returns the module with the given name, creating it if needed.
func (b *Bridge) Module(name string) *Module {
	b.mu.Lock()
	defer b.mu.Unlock()

	if m, ok := b.modules[name]; ok {
		return m
	}
	m := &Module{bridge: b}
	m.info = &TypeInfo{
		Name:   name,
		bridge: b,
		module: m,
		byKey:  make(map[layout.Key]slots.ID),
		alloc:  layout.NewAllocator(b.previousLayout(name)),
	}
	b.modules[name] = m
	log.Debugf("created module %s", name)
	return m
}

// previousLayout returns the pinned layout for name. Callers hold b.mu.
func (b *Bridge) previousLayout(name string) *layout.TypeLayout {
	for _, p := range b.plans {
		if tl := p.Type(name); tl != nil {
			return tl
		}
	}
	return nil
}

// resolve finds the type behind a receiver. Modules and Objects carry their
// type; a bare pointer to a registered struct is accepted as well.
func (b *Bridge) resolve(recv slots.Value) (*TypeInfo, reflect.Value, error) {
	switch r := recv.(type) {
	case *Module:
		return r.info, reflect.Value{}, nil
	case *Object:
		return r.info, r.ptr, nil
	}

	rv := reflect.ValueOf(recv)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		b.mu.RLock()
		ti := b.types[rv.Type().Elem()]
		b.mu.RUnlock()
		if ti != nil {
			return ti, rv, nil
		}
	}
	return nil, reflect.Value{}, fmt.Errorf("%w: %T", ErrTypeNotRegistered, recv)
}

// member returns the member in slot id, checking it can be reached through
// a table of the given kind.
func (b *Bridge) member(ti *TypeInfo, id slots.ID, kind slots.Kind) (*member, error) {
	b.mu.RLock()
	m := ti.members[id]
	b.mu.RUnlock()

	if m == nil {
		return nil, &SlotError{Type: ti.Name, ID: id, Kind: kind, Err: ErrSlotNotFound}
	}
	want := kind
	if want == slots.KindCallKw {
		want = slots.KindCall
	}
	if m.kind != want {
		return nil, &SlotError{
			Type: ti.Name, ID: id, Kind: kind,
			Err: fmt.Errorf("%w: %s is a %s slot", ErrSlotKind, m.name, m.kind),
		}
	}
	return m, nil
}
