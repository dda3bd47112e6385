package bridge

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/chazu/slotbridge/layout"
	"github.com/chazu/slotbridge/slots"
)

// TypeInfo is the slot space of a registered struct type or module.
type TypeInfo struct {
	Name   string
	GoType reflect.Type // struct type; nil for modules

	bridge  *Bridge
	module  *Module
	init    *member
	members [slots.Count]*member
	byKey   map[layout.Key]slots.ID
	alloc   *layout.Allocator // modules only; types allocate once
}

// member is what a slot resolves to.
type member struct {
	name     string
	hostName string
	kind     slots.Kind // KindCall for methods and functions

	fn      reflect.Value
	hasRecv bool
	params  []string // host names of non-receiver parameters, for keywords
	doc     string

	field     []int // get/set
	fieldType reflect.Type
}

func (m *member) signature() string {
	if m.kind == slots.KindCall {
		return m.fn.Type().String()
	}
	return m.fieldType.String()
}

// checkParams verifies that names given with ParamNames cover exactly the
// member's n non-receiver parameters.
func (m *member) checkParams(n int) error {
	if m.params == nil || len(m.params) == n {
		return nil
	}
	return fmt.Errorf("%w: %s has %d parameters, got %d names", ErrParamNames, m.name, n, len(m.params))
}

// IsModule reports whether ti holds free functions rather than a struct type.
func (ti *TypeInfo) IsModule() bool { return ti.module != nil }

// SlotOf returns the slot a member occupies for the given kind. Methods and
// functions are found under slots.KindCall.
func (ti *TypeInfo) SlotOf(memberName string, kind slots.Kind) (slots.ID, bool) {
	if kind == slots.KindCallKw {
		kind = slots.KindCall
	}
	ti.bridge.mu.RLock()
	defer ti.bridge.mu.RUnlock()
	id, ok := ti.byKey[layout.Key{Member: memberName, Kind: kind}]
	return id, ok
}

// Slots returns the type's assignments in slot order.
func (ti *TypeInfo) Slots() []layout.Assignment {
	ti.bridge.mu.RLock()
	defer ti.bridge.mu.RUnlock()

	var result []layout.Assignment
	for i, m := range ti.members {
		if m == nil {
			continue
		}
		result = append(result, layout.Assignment{
			ID:        slots.ID(i),
			Kind:      m.kind,
			Member:    m.name,
			HostName:  m.hostName,
			Signature: m.signature(),
		})
	}
	return result
}

// Doc returns the doc string attached to a call slot, if any.
func (ti *TypeInfo) Doc(id slots.ID) string {
	ti.bridge.mu.RLock()
	defer ti.bridge.mu.RUnlock()
	if m := ti.members[id]; m != nil {
		return m.doc
	}
	return ""
}

// Arity returns the number of arguments call slot id takes, not counting the
// receiver, or -1 if id holds no call member. Variadic members count their
// fixed parameters only.
func (ti *TypeInfo) Arity(id slots.ID) int {
	ti.bridge.mu.RLock()
	m := ti.members[id]
	ti.bridge.mu.RUnlock()
	if m == nil || m.kind != slots.KindCall {
		return -1
	}
	ft := m.fn.Type()
	n := ft.NumIn()
	if m.hasRecv {
		n--
	}
	if ft.IsVariadic() {
		n--
	}
	return n
}

// Layout returns the type's slots as a layout entry, e.g. for saving as a plan.
func (ti *TypeInfo) Layout() layout.TypeLayout {
	name := ti.Name
	if ti.GoType != nil {
		name = ti.GoType.Name()
	}
	return layout.TypeLayout{Name: name, Slots: ti.Slots()}
}

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// MemberOption configures a method or function.
type MemberOption func(*member)

// ParamNames names the parameters (excluding the receiver) so the member can
// be called with keyword arguments.
func ParamNames(names ...string) MemberOption {
	return func(m *member) { m.params = names }
}

// Doc attaches a doc string.
func Doc(doc string) MemberOption {
	return func(m *member) { m.doc = doc }
}

// TypeOption configures a type at registration.
type TypeOption func(*typeConfig)

type typeConfig struct {
	init        any
	methodOpts  map[string][]MemberOption
	excludeName map[string]bool
}

// WithInit sets the function run by NewObject. Its first parameter must be
// a pointer to the registered type; a trailing error result aborts creation.
func WithInit(fn any) TypeOption {
	return func(c *typeConfig) { c.init = fn }
}

// WithMethod applies options to the named method.
func WithMethod(name string, opts ...MemberOption) TypeOption {
	return func(c *typeConfig) { c.methodOpts[name] = append(c.methodOpts[name], opts...) }
}

// Exclude keeps the named methods or fields out of the slot space.
func Exclude(names ...string) TypeOption {
	return func(c *typeConfig) {
		for _, n := range names {
			c.excludeName[n] = true
		}
	}
}

// ---------------------------------------------------------------------------
// Registration
// ---------------------------------------------------------------------------

// RegisterType adds a struct type to the bridge and assigns its slots. sample
// is a value or pointer of the type; name defaults to the Go type name.
// Registering the same type again returns the existing info.
func (b *Bridge) RegisterType(sample any, name string, opts ...TypeOption) (*TypeInfo, error) {
	ty := reflect.TypeOf(sample)
	if ty == nil {
		return nil, fmt.Errorf("RegisterType: %w: nil", ErrNotStruct)
	}
	if ty.Kind() == reflect.Pointer {
		ty = ty.Elem()
	}
	if ty.Kind() != reflect.Struct {
		return nil, fmt.Errorf("RegisterType: %w: %s", ErrNotStruct, ty)
	}
	if name == "" {
		name = ty.Name()
	}

	cfg := &typeConfig{
		methodOpts:  make(map[string][]MemberOption),
		excludeName: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if ti, ok := b.types[ty]; ok {
		return ti, nil
	}
	if _, taken := b.byName[name]; taken {
		return nil, fmt.Errorf("RegisterType %s: %w", name, ErrDuplicate)
	}

	ti := &TypeInfo{
		Name:   name,
		GoType: ty,
		bridge: b,
		byKey:  make(map[layout.Key]slots.ID),
	}

	var pending []*member
	var methodNames, fieldNames []string

	// The pointer method set includes value-receiver methods; objects always
	// hold a pointer. Methods promoted from embedded fields stay out, as they
	// do in generated plans.
	pt := reflect.PointerTo(ty)
	promoted := promotedMethods(ty)
	for i := 0; i < pt.NumMethod(); i++ {
		meth := pt.Method(i)
		if cfg.excludeName[meth.Name] || promoted[meth.Name] {
			continue
		}
		m := &member{
			name:     meth.Name,
			hostName: layout.HostName(meth.Name),
			kind:     slots.KindCall,
			fn:       meth.Func,
			hasRecv:  true,
		}
		for _, opt := range cfg.methodOpts[meth.Name] {
			opt(m)
		}
		if err := m.checkParams(meth.Type.NumIn() - 1); err != nil {
			return nil, fmt.Errorf("RegisterType %s: %w", name, err)
		}
		pending = append(pending, m)
		methodNames = append(methodNames, meth.Name)
	}

	var fields []reflect.StructField
	for i := 0; i < ty.NumField(); i++ {
		f := ty.Field(i)
		if !f.IsExported() || f.Anonymous || cfg.excludeName[f.Name] {
			continue
		}
		fields = append(fields, f)
		fieldNames = append(fieldNames, f.Name)
	}
	for _, f := range fields {
		for _, kind := range []slots.Kind{slots.KindGet, slots.KindSet} {
			pending = append(pending, &member{
				name:      f.Name,
				hostName:  layout.HostName(f.Name),
				kind:      kind,
				field:     f.Index,
				fieldType: f.Type,
			})
		}
	}

	keys := layout.TypeKeys(methodNames, fieldNames)
	ids, err := layout.Allocate(keys, b.previousLayout(ty.Name()))
	if err != nil {
		return nil, fmt.Errorf("RegisterType %s: %w", name, err)
	}
	for i, m := range pending {
		ti.members[ids[i]] = m
		ti.byKey[keys[i]] = ids[i]
	}

	if cfg.init != nil {
		initFn := reflect.ValueOf(cfg.init)
		ft := initFn.Type()
		if ft.Kind() != reflect.Func || ft.NumIn() == 0 || ft.In(0) != pt {
			return nil, fmt.Errorf("RegisterType %s: %w: init must be func(*%s, ...)", name, ErrNotFunc, ty.Name())
		}
		ti.init = &member{
			name:     "init",
			hostName: "__init__",
			kind:     slots.KindCall,
			fn:       initFn,
			hasRecv:  true,
		}
	}

	b.types[ty] = ti
	b.byName[name] = ti
	log.Debugf("registered type %s (%s) with %d slots", name, ty, len(pending))
	return ti, nil
}

// promotedMethods returns the names of methods ty has only through its
// embedded fields. A method ty declares itself, shadowing an embedded one,
// is not included.
func promotedMethods(ty reflect.Type) map[string]bool {
	var promoted map[string]bool
	for i := 0; i < ty.NumField(); i++ {
		f := ty.Field(i)
		if !f.Anonymous {
			continue
		}
		ft := f.Type
		if ft.Kind() != reflect.Pointer && ft.Kind() != reflect.Interface {
			ft = reflect.PointerTo(ft)
		}
		for j := 0; j < ft.NumMethod(); j++ {
			name := ft.Method(j).Name
			if promoted[name] || declaresMethod(ty, name) {
				continue
			}
			if promoted == nil {
				promoted = make(map[string]bool)
			}
			promoted[name] = true
		}
	}
	return promoted
}

// declaresMethod reports whether ty or *ty declares the named method. The
// compiler emits promotion and pointer wrappers as autogenerated code.
func declaresMethod(ty reflect.Type, name string) bool {
	for _, t := range []reflect.Type{ty, reflect.PointerTo(ty)} {
		meth, ok := t.MethodByName(name)
		if !ok {
			continue
		}
		fn := runtime.FuncForPC(meth.Func.Pointer())
		if fn == nil {
			continue
		}
		if file, _ := fn.FileLine(fn.Entry()); file != "<autogenerated>" {
			return true
		}
	}
	return false
}

// MustRegisterType is like RegisterType but panics on error.
// Useful for static initialization.
func (b *Bridge) MustRegisterType(sample any, name string, opts ...TypeOption) *TypeInfo {
	ti, err := b.RegisterType(sample, name, opts...)
	if err != nil {
		panic(err)
	}
	return ti
}

// ---------------------------------------------------------------------------
// Modules
// ---------------------------------------------------------------------------

// Module is a named group of free functions. A module is its own receiver:
// the host passes the *Module when invoking one of its slots.
type Module struct {
	bridge *Bridge
	info   *TypeInfo
}

// Name returns the module name.
func (m *Module) Name() string { return m.info.Name }

// Info returns the module's slot space.
func (m *Module) Info() *TypeInfo { return m.info }

// AddFunc adds fn to the module and returns its slot. An empty name is taken
// from the function's symbol.
func (m *Module) AddFunc(name string, fn any, opts ...MemberOption) (slots.ID, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return 0, fmt.Errorf("AddFunc %s: %w", name, ErrNotFunc)
	}

	if name == "" {
		name = runtime.FuncForPC(v.Pointer()).Name()
		if idx := strings.LastIndex(name, "."); idx >= 0 {
			name = name[idx+1:]
		}
	}
	if name == "" {
		name = fmt.Sprintf("anonymous_func_%p", fn)
	}

	mem := &member{
		name:     name,
		hostName: layout.HostName(name),
		kind:     slots.KindCall,
		fn:       v,
	}
	for _, opt := range opts {
		opt(mem)
	}
	if err := mem.checkParams(v.Type().NumIn()); err != nil {
		return 0, fmt.Errorf("AddFunc %s.%s: %w", m.info.Name, name, err)
	}

	b := m.bridge
	b.mu.Lock()
	defer b.mu.Unlock()

	key := layout.Key{Member: name, Kind: slots.KindCall}
	if _, taken := m.info.byKey[key]; taken {
		return 0, fmt.Errorf("AddFunc %s.%s: %w", m.info.Name, name, ErrDuplicate)
	}
	id, err := m.info.alloc.Next(key)
	if err != nil {
		return 0, fmt.Errorf("AddFunc %s.%s: %w", m.info.Name, name, err)
	}
	m.info.members[id] = mem
	m.info.byKey[key] = id
	log.Debugf("added %s.%s at slot %s", m.info.Name, name, id)
	return id, nil
}

// MustAddFunc is like AddFunc but panics on error.
func (m *Module) MustAddFunc(name string, fn any, opts ...MemberOption) slots.ID {
	id, err := m.AddFunc(name, fn, opts...)
	if err != nil {
		panic(err)
	}
	return id
}
