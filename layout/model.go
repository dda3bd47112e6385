// Package layout plans and persists slot assignments.
//
// A Plan records which slot ID every exposed member of a Go type occupies.
// Plans are produced by introspecting a Go package and are fed back into
// later planning runs and into the bridge so IDs a host has already compiled
// against stay put when members are added.
package layout

import (
	"go/types"

	"github.com/chazu/slotbridge/slots"
)

// PackageModel is the in-memory representation of a Go package's exported API.
type PackageModel struct {
	ImportPath string
	Name       string // short package name (e.g., "json")
	Functions  []FunctionModel
	Types      []TypeModel
}

// TypeModel represents an exported Go struct type.
type TypeModel struct {
	Name    string
	GoType  types.Type
	Fields  []FieldModel
	Methods []FunctionModel // pointer-receiver method set
}

// FunctionModel represents an exported function or method.
type FunctionModel struct {
	Name       string
	Params     []ParamModel
	Results    []ParamModel
	Signature  string
	ReturnsErr bool // true if last result is error
}

// ParamModel represents a function parameter or result.
type ParamModel struct {
	Name    string
	TypeStr string
}

// FieldModel represents a struct field.
type FieldModel struct {
	Name    string
	TypeStr string
}

// Plan is the slot layout of one Go package.
type Plan struct {
	Package string       `cbor:"1,keyasint"`
	Types   []TypeLayout `cbor:"2,keyasint"`
	Version byte         `cbor:"3,keyasint"`
}

// TypeLayout is the slot layout of one type or module.
type TypeLayout struct {
	Name  string       `cbor:"1,keyasint"`
	Slots []Assignment `cbor:"2,keyasint,omitempty"`
}

// Assignment binds one member, under one calling convention, to a slot.
type Assignment struct {
	ID        slots.ID   `cbor:"1,keyasint"`
	Kind      slots.Kind `cbor:"2,keyasint"`
	Member    string     `cbor:"3,keyasint"`
	HostName  string     `cbor:"4,keyasint,omitempty"`
	Signature string     `cbor:"5,keyasint,omitempty"`
}

// Key identifies a member independently of the slot it lands in.
type Key struct {
	Member string
	Kind   slots.Kind
}

// PlanVersion is written into every Plan.
const PlanVersion byte = 1

// Type returns the layout for name, or nil.
func (p *Plan) Type(name string) *TypeLayout {
	if p == nil {
		return nil
	}
	for i := range p.Types {
		if p.Types[i].Name == name {
			return &p.Types[i]
		}
	}
	return nil
}

// Lookup returns the assignment of member/kind within typeName.
func (p *Plan) Lookup(typeName, member string, kind slots.Kind) (Assignment, bool) {
	return p.Type(typeName).Lookup(Key{member, kind})
}

// Lookup returns the assignment for k.
func (tl *TypeLayout) Lookup(k Key) (Assignment, bool) {
	if tl == nil {
		return Assignment{}, false
	}
	for _, a := range tl.Slots {
		if a.Member == k.Member && a.Kind == k.Kind {
			return a, true
		}
	}
	return Assignment{}, false
}
