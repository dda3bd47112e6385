package server

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/chazu/slotbridge/bridge"
	"github.com/chazu/slotbridge/layout"
	"github.com/chazu/slotbridge/slots"
)

// Objects travel as {"handle": "h-1", "type": "Point"}.
const (
	handleKey = "handle"
	typeKey   = "type"
)

// toWire converts a Go result to a protobuf value. Objects of registered
// types are replaced by handles.
func (s *Server) toWire(v any) (*structpb.Value, error) {
	switch x := v.(type) {
	case nil:
		return structpb.NewNullValue(), nil
	case *bridge.Object:
		return s.handleValue(x), nil
	case error:
		return structpb.NewStringValue(x.Error()), nil
	}
	if obj, ok := s.wrap(v); ok {
		return s.handleValue(obj), nil
	}
	if pv, err := structpb.NewValue(v); err == nil {
		return pv, nil
	}
	if x, ok := v.(fmt.Stringer); ok {
		return structpb.NewStringValue(x.String()), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		list := &structpb.ListValue{Values: make([]*structpb.Value, rv.Len())}
		for i := range list.Values {
			ev, err := s.toWire(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			list.Values[i] = ev
		}
		return structpb.NewListValue(list), nil

	case reflect.Map:
		st := &structpb.Struct{Fields: make(map[string]*structpb.Value, rv.Len())}
		iter := rv.MapRange()
		for iter.Next() {
			ev, err := s.toWire(iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			st.Fields[fmt.Sprint(iter.Key().Interface())] = ev
		}
		return structpb.NewStructValue(st), nil

	case reflect.Pointer:
		if rv.IsNil() {
			return structpb.NewNullValue(), nil
		}
		return s.toWire(rv.Elem().Interface())

	case reflect.Struct:
		st := &structpb.Struct{Fields: make(map[string]*structpb.Value)}
		t := rv.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			fv, err := s.toWire(rv.Field(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f.Name, err)
			}
			st.Fields[layout.HostName(f.Name)] = fv
		}
		return structpb.NewStructValue(st), nil
	}

	return structpb.NewStringValue(fmt.Sprint(v)), nil
}

// wrap returns an Object when v is a pointer to a registered struct.
func (s *Server) wrap(v any) (*bridge.Object, bool) {
	obj, err := s.bridge.Wrap(v)
	return obj, err == nil
}

func (s *Server) handleValue(obj *bridge.Object) *structpb.Value {
	return structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
		handleKey: structpb.NewStringValue(s.handles.Create(obj)),
		typeKey:   structpb.NewStringValue(obj.Type().Name),
	}})
}

// fromWire converts a protobuf value to a host value. A struct holding a
// known handle becomes its object.
func (s *Server) fromWire(v *structpb.Value) (any, error) {
	switch k := v.GetKind().(type) {
	case *structpb.Value_StructValue:
		if id, ok := handleID(k.StructValue); ok {
			obj, found := s.handles.Lookup(id)
			if !found {
				return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("handle %q not found", id))
			}
			return obj, nil
		}
		m := make(map[string]any, len(k.StructValue.GetFields()))
		for key, fv := range k.StructValue.GetFields() {
			x, err := s.fromWire(fv)
			if err != nil {
				return nil, err
			}
			m[key] = x
		}
		return m, nil
	case *structpb.Value_ListValue:
		vals := k.ListValue.GetValues()
		out := make([]any, len(vals))
		for i, ev := range vals {
			x, err := s.fromWire(ev)
			if err != nil {
				return nil, err
			}
			out[i] = x
		}
		return out, nil
	}
	return v.AsInterface(), nil
}

func (s *Server) fromWireList(list *structpb.ListValue) ([]any, error) {
	if list == nil {
		return nil, nil
	}
	x, err := s.fromWire(structpb.NewListValue(list))
	if err != nil {
		return nil, err
	}
	return x.([]any), nil
}

// handleID reports whether st is a handle reference.
func handleID(st *structpb.Struct) (string, bool) {
	hv, ok := st.GetFields()[handleKey]
	if !ok {
		return "", false
	}
	sv, ok := hv.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", false
	}
	return sv.StringValue, true
}

// slotOf resolves a request's slot, given either as "member" or as "slot"
// (a number or a string such as "0x2a").
func slotOf(ti *bridge.TypeInfo, req *structpb.Struct, kind slots.Kind) (slots.ID, error) {
	fields := req.GetFields()
	if name := fields["member"].GetStringValue(); name != "" {
		id, ok := ti.SlotOf(name, kind)
		if !ok {
			return 0, connect.NewError(connect.CodeNotFound, fmt.Errorf("%s has no %s member %q", ti.Name, kind, name))
		}
		return id, nil
	}

	sv, ok := fields["slot"]
	if !ok {
		return 0, connect.NewError(connect.CodeInvalidArgument, errors.New("slot or member is required"))
	}
	switch k := sv.GetKind().(type) {
	case *structpb.Value_NumberValue:
		if k.NumberValue != math.Trunc(k.NumberValue) {
			return 0, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("slot %v is not an integer", k.NumberValue))
		}
		id, err := slots.CheckedID(int(k.NumberValue))
		if err != nil {
			return 0, connect.NewError(connect.CodeInvalidArgument, err)
		}
		return id, nil
	case *structpb.Value_StringValue:
		id, err := slots.ParseID(k.StringValue)
		if err != nil {
			return 0, connect.NewError(connect.CodeInvalidArgument, err)
		}
		return id, nil
	}
	return 0, connect.NewError(connect.CodeInvalidArgument, errors.New("slot must be a number or string"))
}

// connectError maps bridge errors to Connect codes. Errors that already
// carry a code pass through.
func connectError(err error) error {
	var ce *connect.Error
	if errors.As(err, &ce) {
		return ce
	}
	switch {
	case errors.Is(err, bridge.ErrTypeNotRegistered), errors.Is(err, bridge.ErrSlotNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, bridge.ErrArity), errors.Is(err, bridge.ErrConvert), errors.Is(err, bridge.ErrSlotKind):
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	return connect.NewError(connect.CodeUnknown, err)
}
