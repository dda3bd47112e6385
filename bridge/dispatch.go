package bridge

import (
	"reflect"
	"slices"
	"sort"

	"github.com/chazu/slotbridge/slots"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// DispatchCall is the shared handler of the call table.
func (b *Bridge) DispatchCall(recv slots.Value, args slots.Args, id slots.ID) (slots.Value, error) {
	return b.call(recv, args, nil, id, slots.KindCall)
}

// DispatchCallKw is the shared handler of the call-with-keywords table.
// Keyword arguments fill the parameters after the positional ones, matched
// by the names given with ParamNames.
func (b *Bridge) DispatchCallKw(recv slots.Value, args slots.Args, kw slots.Kwargs, id slots.ID) (slots.Value, error) {
	return b.call(recv, args, kw, id, slots.KindCallKw)
}

func (b *Bridge) call(recv slots.Value, args slots.Args, kw slots.Kwargs, id slots.ID, kind slots.Kind) (slots.Value, error) {
	ti, self, err := b.resolve(recv)
	if err != nil {
		return nil, err
	}
	m, err := b.member(ti, id, kind)
	if err != nil {
		return nil, err
	}
	return invoke(m, ti.Name+"."+m.name, self, args, kw)
}

// DispatchGet is the shared handler of the getter table. The attribute
// context is not needed; the slot alone names the field.
func (b *Bridge) DispatchGet(recv slots.Value, attr slots.Value, id slots.ID) (slots.Value, error) {
	ti, self, err := b.resolve(recv)
	if err != nil {
		return nil, err
	}
	m, err := b.member(ti, id, slots.KindGet)
	if err != nil {
		return nil, err
	}
	return self.Elem().FieldByIndex(m.field).Interface(), nil
}

// DispatchSet is the shared handler of the setter table.
func (b *Bridge) DispatchSet(recv slots.Value, value slots.Value, attr slots.Value, id slots.ID) error {
	ti, self, err := b.resolve(recv)
	if err != nil {
		return err
	}
	m, err := b.member(ti, id, slots.KindSet)
	if err != nil {
		return err
	}
	v, err := convert(value, m.fieldType)
	if err != nil {
		return &TypeError{Member: ti.Name + "." + m.name, Arg: 0, Want: m.fieldType, Got: value, Err: err}
	}
	self.Elem().FieldByIndex(m.field).Set(v)
	return nil
}

// invoke calls a method or function member. self is the receiver for
// methods and ignored for free functions.
func invoke(m *member, qualified string, self reflect.Value, args []any, kw map[string]any) (any, error) {
	ft := m.fn.Type()
	first := 0
	in := make([]reflect.Value, 0, ft.NumIn())
	if m.hasRecv {
		in = append(in, self)
		first = 1
	}

	argv, err := bindKeywords(m, qualified, args, kw)
	if err != nil {
		return nil, err
	}

	fixed := ft.NumIn() - first
	variadic := ft.IsVariadic()
	if variadic {
		fixed--
		if len(argv) < fixed {
			return nil, arityError(qualified, "expects at least %d arguments, got %d", fixed, len(argv))
		}
	} else if len(argv) != fixed {
		return nil, arityError(qualified, "expects %d arguments, got %d", fixed, len(argv))
	}

	for i, a := range argv {
		var t reflect.Type
		if variadic && i >= fixed {
			t = ft.In(ft.NumIn() - 1).Elem()
		} else {
			t = ft.In(first + i)
		}
		v, err := convert(a, t)
		if err != nil {
			return nil, &TypeError{Member: qualified, Arg: i, Want: t, Got: a, Err: err}
		}
		in = append(in, v)
	}

	return results(m.fn.Call(in), ft)
}

// bindKeywords appends keyword arguments to the positional ones in
// parameter order.
func bindKeywords(m *member, qualified string, args []any, kw map[string]any) ([]any, error) {
	if len(kw) == 0 {
		return args, nil
	}
	if m.params == nil {
		return nil, arityError(qualified, "keyword arguments not accepted")
	}
	if len(args) > len(m.params) {
		return nil, arityError(qualified, "expects at most %d arguments, got %d", len(m.params), len(args))
	}

	out := append([]any(nil), args...)
	rest := m.params[len(args):]
	consumed := 0
	gap := ""
	for _, p := range rest {
		v, ok := kw[p]
		if !ok {
			if gap == "" {
				gap = p
			}
			continue
		}
		if gap != "" {
			return nil, arityError(qualified, "missing argument %q", gap)
		}
		out = append(out, v)
		consumed++
	}

	if consumed != len(kw) {
		names := make([]string, 0, len(kw))
		for k := range kw {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			if !slices.Contains(rest, k) {
				return nil, arityError(qualified, "unexpected keyword argument %q", k)
			}
		}
	}
	return out, nil
}

// results maps Go return values to a single host value: nothing is nil, one
// value is itself, several become a slice. A trailing error is returned as
// the error.
func results(out []reflect.Value, ft reflect.Type) (any, error) {
	if n := len(out); n > 0 && ft.Out(n-1) == errorType {
		if e := out[n-1]; !e.IsNil() {
			return nil, e.Interface().(error)
		}
		out = out[:n-1]
	}

	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0].Interface(), nil
	}
	vals := make([]any, len(out))
	for i, v := range out {
		vals[i] = v.Interface()
	}
	return vals, nil
}
