package main

import (
	"math"
	"strings"

	"github.com/chazu/slotbridge/bridge"
)

// Packages whose functions registerBuiltins exposes as modules.
var builtinPackages = []string{"strings", "math"}

// registerBuiltins adds the demo modules and types to b.
func registerBuiltins(b *bridge.Bridge) error {
	str := b.Module("strings")
	funcs := []struct {
		name string
		fn   any
		opts []bridge.MemberOption
	}{
		{"Contains", strings.Contains, []bridge.MemberOption{bridge.ParamNames("s", "substr")}},
		{"Fields", strings.Fields, nil},
		{"HasPrefix", strings.HasPrefix, []bridge.MemberOption{bridge.ParamNames("s", "prefix")}},
		{"Join", strings.Join, []bridge.MemberOption{bridge.ParamNames("elems", "sep")}},
		{"Repeat", strings.Repeat, []bridge.MemberOption{bridge.ParamNames("s", "count")}},
		{"Replace", strings.Replace, []bridge.MemberOption{bridge.ParamNames("s", "old", "new", "n")}},
		{"Split", strings.Split, []bridge.MemberOption{bridge.ParamNames("s", "sep")}},
		{"ToLower", strings.ToLower, nil},
		{"ToUpper", strings.ToUpper, nil},
		{"TrimSpace", strings.TrimSpace, nil},
	}
	for _, f := range funcs {
		if _, err := str.AddFunc(f.name, f.fn, f.opts...); err != nil {
			return err
		}
	}

	mth := b.Module("math")
	for _, f := range []struct {
		name string
		fn   any
	}{
		{"Abs", math.Abs},
		{"Ceil", math.Ceil},
		{"Floor", math.Floor},
		{"Hypot", math.Hypot},
		{"Max", math.Max},
		{"Min", math.Min},
		{"Pow", math.Pow},
		{"Sqrt", math.Sqrt},
	} {
		if _, err := mth.AddFunc(f.name, f.fn); err != nil {
			return err
		}
	}

	_, err := b.RegisterType(strings.Builder{}, "Builder")
	return err
}
