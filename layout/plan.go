package layout

import (
	"errors"
	"fmt"
	"sort"

	"github.com/chazu/slotbridge/slots"
)

// ErrTooManySlots is returned when a type exposes more members than a
// dispatch table has entries.
var ErrTooManySlots = errors.New("too many slots")

// Allocator hands out slot IDs for one type.
//
// IDs recorded in the previous layout are reserved for the member that held
// them. New members take the lowest ID that is neither used nor reserved;
// once those run out they take reservations of members that never showed up.
type Allocator struct {
	previous *TypeLayout
	used     [slots.Count]bool
	reserved [slots.Count]bool
	n        int
}

// NewAllocator returns an allocator honoring previous, which may be nil.
func NewAllocator(previous *TypeLayout) *Allocator {
	a := &Allocator{previous: previous}
	if previous != nil {
		for _, s := range previous.Slots {
			a.reserved[s.ID] = true
		}
	}
	return a
}

// Next returns the slot for k.
func (a *Allocator) Next(k Key) (slots.ID, error) {
	if a.n >= slots.Count {
		return 0, fmt.Errorf("%w: %s %q would be slot %d", ErrTooManySlots, k.Kind, k.Member, a.n)
	}
	if prev, ok := a.previous.Lookup(k); ok && !a.used[prev.ID] {
		return a.take(prev.ID), nil
	}
	for i := 0; i < slots.Count; i++ {
		if !a.used[i] && !a.reserved[i] {
			return a.take(slots.ID(i)), nil
		}
	}
	for i := 0; i < slots.Count; i++ {
		if !a.used[i] {
			return a.take(slots.ID(i)), nil
		}
	}
	// Unreachable: n < Count guarantees a free entry.
	return 0, ErrTooManySlots
}

// Len returns the number of IDs handed out.
func (a *Allocator) Len() int { return a.n }

func (a *Allocator) take(id slots.ID) slots.ID {
	a.used[id] = true
	a.n++
	return id
}

// Allocate assigns slots to keys in order.
func Allocate(keys []Key, previous *TypeLayout) ([]slots.ID, error) {
	if len(keys) > slots.Count {
		return nil, fmt.Errorf("%w: %d members, table holds %d", ErrTooManySlots, len(keys), slots.Count)
	}
	a := NewAllocator(previous)
	ids := make([]slots.ID, len(keys))
	for i, k := range keys {
		id, err := a.Next(k)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// TypeKeys lists a type's members in slot order: methods first, then a
// getter and a setter per field.
func TypeKeys(methods, fields []string) []Key {
	keys := make([]Key, 0, len(methods)+2*len(fields))
	for _, m := range methods {
		keys = append(keys, Key{Member: m, Kind: slots.KindCall})
	}
	for _, f := range fields {
		keys = append(keys, Key{Member: f, Kind: slots.KindGet}, Key{Member: f, Kind: slots.KindSet})
	}
	return keys
}

// PlanPackage lays out every type in model, plus a module layout named after
// the package for its free functions. IDs already present in previous are
// kept for members that still exist.
func PlanPackage(model *PackageModel, previous *Plan) (*Plan, error) {
	plan := &Plan{
		Package: model.ImportPath,
		Version: PlanVersion,
	}

	if len(model.Functions) > 0 {
		keys := make([]Key, len(model.Functions))
		sigs := make(map[string]string, len(model.Functions))
		for i, fn := range model.Functions {
			keys[i] = Key{Member: fn.Name, Kind: slots.KindCall}
			sigs[fn.Name] = fn.Signature
		}
		tl, err := planType(model.Name, keys, sigs, previous.Type(model.Name))
		if err != nil {
			return nil, err
		}
		plan.Types = append(plan.Types, tl)
	}

	for _, tm := range model.Types {
		methods := make([]string, len(tm.Methods))
		sigs := make(map[string]string, len(tm.Methods)+len(tm.Fields))
		for i, m := range tm.Methods {
			methods[i] = m.Name
			sigs[m.Name] = m.Signature
		}
		fields := make([]string, len(tm.Fields))
		for i, f := range tm.Fields {
			fields[i] = f.Name
			sigs[f.Name] = f.TypeStr
		}
		tl, err := planType(tm.Name, TypeKeys(methods, fields), sigs, previous.Type(tm.Name))
		if err != nil {
			return nil, err
		}
		plan.Types = append(plan.Types, tl)
	}

	return plan, nil
}

func planType(name string, keys []Key, sigs map[string]string, previous *TypeLayout) (TypeLayout, error) {
	ids, err := Allocate(keys, previous)
	if err != nil {
		return TypeLayout{}, fmt.Errorf("type %s: %w", name, err)
	}
	tl := TypeLayout{Name: name, Slots: make([]Assignment, len(keys))}
	for i, k := range keys {
		tl.Slots[i] = Assignment{
			ID:        ids[i],
			Kind:      k.Kind,
			Member:    k.Member,
			HostName:  HostName(k.Member),
			Signature: sigs[k.Member],
		}
	}
	sort.Slice(tl.Slots, func(i, j int) bool { return tl.Slots[i].ID < tl.Slots[j].ID })
	return tl, nil
}
