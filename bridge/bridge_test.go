package bridge

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/chazu/slotbridge/layout"
	"github.com/chazu/slotbridge/slots"
)

type Point struct {
	X, Y   float64
	Label  string
	hidden int
}

var errRefused = errors.New("refused")

func (p Point) Norm() float64 { return math.Hypot(p.X, p.Y) }

func (p *Point) Scale(f float64) {
	p.X *= f
	p.Y *= f
}

func (p *Point) Move(dx, dy float64) (float64, float64) {
	p.X += dx
	p.Y += dy
	return p.X, p.Y
}

func (p *Point) Refuse() error { return errRefused }

func newPoint(p *Point, x, y float64) error {
	if x < 0 || y < 0 {
		return fmt.Errorf("negative coordinate")
	}
	p.X, p.Y = x, y
	return nil
}

type engine struct{ RPM int }

func (e *engine) Start() string { return "started" }
func (e *engine) Stop() string { return "stopped" }

// car gets Start from engine but declares its own Stop.
type car struct {
	*engine
	Model string
}

func (c *car) Stop() string { return "parked" }

type taggedPoint struct {
	Point
	Tag string
}

// Method slots are assigned in method-set order: Move, Norm, Refuse, Scale.
// Fields follow as getter/setter pairs: X 4/5, Y 6/7, Label 8/9.
const (
	slotMove   slots.ID = 0
	slotNorm   slots.ID = 1
	slotRefuse slots.ID = 2
	slotScale  slots.ID = 3
	slotGetX   slots.ID = 4
	slotSetX   slots.ID = 5
	slotGetLbl slots.ID = 8
	slotSetLbl slots.ID = 9
)

func newTestBridge(t *testing.T) *Bridge {
	t.Helper()
	b := New()
	if _, err := b.RegisterType(Point{}, "", WithInit(newPoint)); err != nil {
		t.Fatalf("RegisterType: %v", err)
	}
	return b
}

func newTestPoint(t *testing.T, b *Bridge, x, y float64) *Object {
	t.Helper()
	obj, err := b.NewObject("Point", x, y)
	if err != nil {
		t.Fatalf("NewObject: %v", err)
	}
	return obj
}

func TestRegisterType_SlotOrder(t *testing.T) {
	b := newTestBridge(t)
	ti := b.Lookup("Point")
	if ti == nil {
		t.Fatal("Point not registered")
	}

	want := []struct {
		member string
		kind   slots.Kind
		id     slots.ID
	}{
		{"Move", slots.KindCall, slotMove},
		{"Norm", slots.KindCall, slotNorm},
		{"Refuse", slots.KindCall, slotRefuse},
		{"Scale", slots.KindCall, slotScale},
		{"X", slots.KindGet, slotGetX},
		{"X", slots.KindSet, slotSetX},
		{"Label", slots.KindGet, slotGetLbl},
		{"Label", slots.KindSet, slotSetLbl},
	}
	for _, w := range want {
		id, ok := ti.SlotOf(w.member, w.kind)
		if !ok || id != w.id {
			t.Errorf("SlotOf(%s, %s) = %d, %v; want %d", w.member, w.kind, id, ok, w.id)
		}
	}

	if _, ok := ti.SlotOf("hidden", slots.KindGet); ok {
		t.Error("unexported field got a slot")
	}
	if got := len(ti.Slots()); got != 10 {
		t.Errorf("len(Slots()) = %d, want 10", got)
	}
	if ti.Slots()[0].HostName != "move" {
		t.Errorf("slot 0 host name = %q", ti.Slots()[0].HostName)
	}
}

func TestRegisterType_Errors(t *testing.T) {
	b := New()
	if _, err := b.RegisterType(42, "Int"); !errors.Is(err, ErrNotStruct) {
		t.Errorf("RegisterType(int) error = %v, want ErrNotStruct", err)
	}
	if _, err := b.RegisterType(nil, "Nil"); !errors.Is(err, ErrNotStruct) {
		t.Errorf("RegisterType(nil) error = %v, want ErrNotStruct", err)
	}

	first := b.MustRegisterType(&Point{}, "Point")
	again, err := b.RegisterType(Point{}, "Other")
	if err != nil || again != first {
		t.Errorf("re-registering returned %v, %v; want the existing info", again, err)
	}

	type Other struct{ A int }
	if _, err := b.RegisterType(Other{}, "Point"); !errors.Is(err, ErrDuplicate) {
		t.Errorf("name clash error = %v, want ErrDuplicate", err)
	}

	type Bad struct{ A int }
	if _, err := b.RegisterType(Bad{}, "", WithInit(func(p *Point) {})); !errors.Is(err, ErrNotFunc) {
		t.Errorf("bad init error = %v, want ErrNotFunc", err)
	}
}

func TestDispatchCall_ThroughTable(t *testing.T) {
	b := newTestBridge(t)
	p := newTestPoint(t, b, 3, 4)
	call := b.Tables().Call()

	got, err := call.At(slotNorm).Call(p, nil)
	if err != nil {
		t.Fatalf("Norm: %v", err)
	}
	if got != 5.0 {
		t.Errorf("Norm = %v, want 5", got)
	}

	// An int converts losslessly to the float64 parameter.
	if _, err := call.At(slotScale).Call(p, slots.Args{2}); err != nil {
		t.Fatalf("Scale: %v", err)
	}
	if pt := p.Interface().(*Point); pt.X != 6 || pt.Y != 8 {
		t.Errorf("after Scale(2) point = %+v", pt)
	}

	got, err = call.At(slotMove).Call(p, slots.Args{1.0, -1.0})
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	pair, ok := got.([]any)
	if !ok || len(pair) != 2 || pair[0] != 7.0 || pair[1] != 7.0 {
		t.Errorf("Move = %#v, want [7 7]", got)
	}
}

func TestDispatchCall_MatchesDirectHandler(t *testing.T) {
	b := newTestBridge(t)
	p := newTestPoint(t, b, 3, 4)
	call := b.Tables().Call()

	for _, id := range []slots.ID{slotNorm, slotRefuse, 200} {
		v1, err1 := call.At(id).Call(p, nil)
		v2, err2 := b.DispatchCall(p, nil, id)
		if v1 != v2 {
			t.Errorf("slot %s: table %v, direct %v", id, v1, v2)
		}
		if (err1 == nil) != (err2 == nil) || (err1 != nil && err1.Error() != err2.Error()) {
			t.Errorf("slot %s: table err %v, direct err %v", id, err1, err2)
		}
	}
}

func TestDispatchCall_GoErrorPassesThrough(t *testing.T) {
	b := newTestBridge(t)
	p := newTestPoint(t, b, 1, 1)

	_, err := b.Tables().Call().At(slotRefuse).Call(p, nil)
	if err != errRefused {
		t.Errorf("Refuse error = %v, want the method's own error", err)
	}
}

func TestDispatchCall_Errors(t *testing.T) {
	b := newTestBridge(t)
	p := newTestPoint(t, b, 1, 1)

	tests := []struct {
		name   string
		recv   any
		id     slots.ID
		args   slots.Args
		target error
	}{
		{"unregistered receiver", "a string", slotNorm, nil, ErrTypeNotRegistered},
		{"empty slot", p, 200, nil, ErrSlotNotFound},
		{"getter via call table", p, slotGetX, nil, ErrSlotKind},
		{"too many arguments", p, slotNorm, slots.Args{1}, ErrArity},
		{"too few arguments", p, slotMove, slots.Args{1.0}, ErrArity},
		{"unconvertible argument", p, slotScale, slots.Args{"big"}, ErrConvert},
		{"lossy argument", p, slotScale, slots.Args{complex(1, 1)}, ErrConvert},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.DispatchCall(tt.recv, tt.args, tt.id)
			if !errors.Is(err, tt.target) {
				t.Errorf("error = %v, want %v", err, tt.target)
			}
		})
	}

	_, err := b.DispatchCall(p, nil, 200)
	var se *SlotError
	if !errors.As(err, &se) || se.Type != "Point" || se.ID != 200 || se.Kind != slots.KindCall {
		t.Errorf("SlotError = %+v", se)
	}

	_, err = b.DispatchCall(p, slots.Args{"big"}, slotScale)
	var te *TypeError
	if !errors.As(err, &te) || te.Arg != 0 || te.Member != "Point.Scale" {
		t.Errorf("TypeError = %+v", te)
	}
}

func TestDispatchGetSet(t *testing.T) {
	b := newTestBridge(t)
	p := newTestPoint(t, b, 1, 2)
	tables := b.Tables()

	if err := tables.Set().At(slotSetLbl).Set(p, "origin", nil); err != nil {
		t.Fatalf("Set Label: %v", err)
	}
	got, err := tables.Get().At(slotGetLbl).Get(p, nil)
	if err != nil {
		t.Fatalf("Get Label: %v", err)
	}
	if got != "origin" {
		t.Errorf("Label = %v, want origin", got)
	}

	if err := tables.Set().At(slotSetX).Set(p, 3, nil); err != nil {
		t.Fatalf("Set X: %v", err)
	}
	if got, _ := tables.Get().At(slotGetX).Get(p, nil); got != 3.0 {
		t.Errorf("X = %v, want 3", got)
	}

	if err := tables.Set().At(slotSetX).Set(p, "three", nil); !errors.Is(err, ErrConvert) {
		t.Errorf("Set X with string error = %v, want ErrConvert", err)
	}
	if err := tables.Set().At(slotGetX).Set(p, 1.0, nil); !errors.Is(err, ErrSlotKind) {
		t.Errorf("Set through getter slot error = %v, want ErrSlotKind", err)
	}
	if _, err := tables.Get().At(slotNorm).Get(p, nil); !errors.Is(err, ErrSlotKind) {
		t.Errorf("Get through method slot error = %v, want ErrSlotKind", err)
	}
}

func TestDispatch_BarePointerReceiver(t *testing.T) {
	b := newTestBridge(t)
	pt := &Point{X: 6, Y: 8}

	got, err := b.DispatchCall(pt, nil, slotNorm)
	if err != nil || got != 10.0 {
		t.Errorf("Norm on bare pointer = %v, %v", got, err)
	}
	if err := b.DispatchSet(pt, 1.5, nil, slotSetX); err != nil || pt.X != 1.5 {
		t.Errorf("Set X on bare pointer: %v, X = %v", err, pt.X)
	}
}

func TestNewObject(t *testing.T) {
	b := newTestBridge(t)

	if _, err := b.NewObject("Point", -1.0, 0.0); err == nil || err.Error() != "negative coordinate" {
		t.Errorf("init error = %v, want negative coordinate", err)
	}
	if _, err := b.NewObject("Point", 1.0); !errors.Is(err, ErrArity) {
		t.Errorf("init arity error = %v, want ErrArity", err)
	}
	if _, err := b.NewObject("Nope"); !errors.Is(err, ErrTypeNotRegistered) {
		t.Errorf("unknown type error = %v, want ErrTypeNotRegistered", err)
	}

	type Plain struct{ N int }
	b.MustRegisterType(Plain{}, "")
	if _, err := b.NewObject("Plain", 1); !errors.Is(err, ErrArity) {
		t.Errorf("Plain with args error = %v, want ErrArity", err)
	}
	obj, err := b.NewObject("Plain")
	if err != nil {
		t.Fatalf("NewObject(Plain): %v", err)
	}
	if obj.Type().Name != "Plain" {
		t.Errorf("Type().Name = %q", obj.Type().Name)
	}
}

func TestWrap(t *testing.T) {
	b := newTestBridge(t)
	obj, err := b.Wrap(&Point{X: 1})
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	if obj.Type() != b.Lookup("Point") {
		t.Error("wrapped object has the wrong type info")
	}
	if _, err := b.Wrap(Point{}); !errors.Is(err, ErrTypeNotRegistered) {
		t.Errorf("Wrap(value) error = %v", err)
	}
	if _, err := b.Wrap(&struct{}{}); !errors.Is(err, ErrTypeNotRegistered) {
		t.Errorf("Wrap(unregistered) error = %v", err)
	}
}

func TestWithPlan_PinsSlots(t *testing.T) {
	plan := &layout.Plan{
		Package: "bridge",
		Version: layout.PlanVersion,
		Types: []layout.TypeLayout{{
			Name: "Point",
			Slots: []layout.Assignment{
				{ID: 40, Kind: slots.KindCall, Member: "Norm"},
				{ID: 0, Kind: slots.KindGet, Member: "Label"},
			},
		}, {
			Name:  "geo",
			Slots: []layout.Assignment{{ID: 7, Kind: slots.KindCall, Member: "Dist"}},
		}},
	}
	b := New(WithPlan(plan, nil))
	ti := b.MustRegisterType(Point{}, "")

	if id, _ := ti.SlotOf("Norm", slots.KindCall); id != 40 {
		t.Errorf("Norm pinned to %d, want 40", id)
	}
	if id, _ := ti.SlotOf("Label", slots.KindGet); id != 0 {
		t.Errorf("Label getter pinned to %d, want 0", id)
	}
	// Move is new and must avoid the reserved slots 0 and 40.
	if id, _ := ti.SlotOf("Move", slots.KindCall); id != 1 {
		t.Errorf("Move = %d, want 1", id)
	}

	geo := b.Module("geo")
	if id := geo.MustAddFunc("Hello", func() string { return "hi" }); id != 0 {
		t.Errorf("Hello = %d, want 0", id)
	}
	if id := geo.MustAddFunc("Dist", func(a, b float64) float64 { return b - a }); id != 7 {
		t.Errorf("Dist = %d, want 7", id)
	}

	tl := ti.Layout()
	if tl.Name != "Point" || len(tl.Slots) != 10 {
		t.Errorf("Layout() = %s with %d slots", tl.Name, len(tl.Slots))
	}
}

func TestDefault(t *testing.T) {
	if Default() != Default() {
		t.Error("Default() returned two bridges")
	}
	b := New()
	if b.Tables() != b.Tables() {
		t.Error("Tables() rebuilt its tables")
	}
	if b.Tables().Call().At(9) != b.Tables().Call().At(9) {
		t.Error("table entry identity changed")
	}
}

func TestTypes_Sorted(t *testing.T) {
	b := newTestBridge(t)
	b.Module("alpha")
	b.Module("zeta")
	var names []string
	for _, ti := range b.Types() {
		names = append(names, ti.Name)
	}
	want := []string{"Point", "alpha", "zeta"}
	if fmt.Sprint(names) != fmt.Sprint(want) {
		t.Errorf("Types() = %v, want %v", names, want)
	}
	if !b.Lookup("alpha").IsModule() || b.Lookup("Point").IsModule() {
		t.Error("IsModule mismatch")
	}
}

func TestTypeInfo_Arity(t *testing.T) {
	b := newTestBridge(t)
	ti := b.Lookup("Point")
	tests := []struct {
		id   slots.ID
		want int
	}{
		{slotNorm, 0},
		{slotScale, 1},
		{slotMove, 2},
		{slotGetX, -1},
		{200, -1},
	}
	for _, tt := range tests {
		if got := ti.Arity(tt.id); got != tt.want {
			t.Errorf("Arity(%s) = %d, want %d", tt.id, got, tt.want)
		}
	}

	m := b.Module("num")
	id := m.MustAddFunc("Sum", func(base int, xs ...int) int { return base })
	if got := m.Info().Arity(id); got != 1 {
		t.Errorf("variadic Arity = %d, want 1", got)
	}
}

func TestRegisterType_SkipsPromotedMethods(t *testing.T) {
	b := New()
	ti, err := b.RegisterType(car{}, "")
	if err != nil {
		t.Fatalf("RegisterType: %v", err)
	}
	if _, ok := ti.SlotOf("Start", slots.KindCall); ok {
		t.Error("promoted Start got a slot")
	}
	if _, ok := ti.SlotOf("RPM", slots.KindGet); ok {
		t.Error("promoted field RPM got a slot")
	}
	stop, ok := ti.SlotOf("Stop", slots.KindCall)
	if !ok {
		t.Fatal("declared Stop has no slot")
	}
	if _, ok := ti.SlotOf("Model", slots.KindGet); !ok {
		t.Error("Model has no getter")
	}

	// The embedded pointer is nil after NewObject; only car's own methods
	// are reachable, so dispatch cannot dereference it.
	obj, err := b.NewObject("car")
	if err != nil {
		t.Fatalf("NewObject: %v", err)
	}
	call := b.Tables().Call()
	got, err := call.At(stop).Call(obj, nil)
	if err != nil || got != "parked" {
		t.Errorf("Stop = %v, %v; want parked", got, err)
	}
	for _, a := range ti.Slots() {
		if a.Kind != slots.KindCall {
			continue
		}
		if _, err := call.At(a.ID).Call(obj, nil); err != nil {
			t.Errorf("slot %s (%s): %v", a.ID, a.Member, err)
		}
	}

	tp, err := b.RegisterType(taggedPoint{}, "")
	if err != nil {
		t.Fatalf("RegisterType(taggedPoint): %v", err)
	}
	for _, name := range []string{"Norm", "Scale", "Move", "Refuse"} {
		if _, ok := tp.SlotOf(name, slots.KindCall); ok {
			t.Errorf("promoted %s got a slot", name)
		}
	}
	if got := len(tp.Slots()); got != 2 {
		t.Errorf("len(Slots()) = %d, want 2 (Tag getter and setter)", got)
	}
}

func TestRegisterType_ParamNamesMustMatch(t *testing.T) {
	b := New()
	_, err := b.RegisterType(Point{}, "", WithMethod("Move", ParamNames("dx")))
	if !errors.Is(err, ErrParamNames) {
		t.Fatalf("RegisterType error = %v, want ErrParamNames", err)
	}
	if b.Lookup("Point") != nil {
		t.Error("failed registration left Point registered")
	}

	ti, err := b.RegisterType(Point{}, "", WithMethod("Move", ParamNames("dx", "dy")))
	if err != nil {
		t.Fatalf("RegisterType: %v", err)
	}
	if _, ok := ti.SlotOf("Move", slots.KindCall); !ok {
		t.Error("Move has no slot")
	}
}
