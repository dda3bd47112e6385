package server

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/chazu/slotbridge/bridge"
	"github.com/chazu/slotbridge/layout"
	"github.com/chazu/slotbridge/slots"
)

// ListTypes returns every registered type and module.
func (s *Server) ListTypes(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	infos := s.bridge.Types()
	types := make([]any, 0, len(infos))
	for _, ti := range infos {
		kind := "type"
		if ti.IsModule() {
			kind = "module"
		}
		types = append(types, map[string]any{
			"name":  ti.Name,
			"kind":  kind,
			"slots": len(ti.Slots()),
		})
	}
	return structResponse(map[string]any{"types": types})
}

// DescribeType returns the slot assignments of one type or module.
func (s *Server) DescribeType(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	name := req.Msg.GetFields()["name"].GetStringValue()
	if name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("name is required"))
	}
	ti := s.bridge.Lookup(name)
	if ti == nil {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("type %q not found", name))
	}

	assignments := ti.Slots()
	entries := make([]any, 0, len(assignments))
	for _, a := range assignments {
		entry := map[string]any{
			"id":        int(a.ID),
			"hex":       a.ID.String(),
			"kind":      a.Kind.String(),
			"member":    a.Member,
			"host_name": a.HostName,
			"signature": a.Signature,
		}
		if a.Kind == slots.KindCall {
			entry["selector"] = layout.Selector(a.Member, ti.Arity(a.ID))
			if doc := ti.Doc(a.ID); doc != "" {
				entry["doc"] = doc
			}
		}
		entries = append(entries, entry)
	}
	return structResponse(map[string]any{
		"name":   ti.Name,
		"module": ti.IsModule(),
		"slots":  entries,
	})
}

// NewObject creates an object of a registered type and returns its handle.
func (s *Server) NewObject(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	fields := req.Msg.GetFields()
	typeName := fields[typeKey].GetStringValue()
	if typeName == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("type is required"))
	}
	args, err := s.fromWireList(fields["args"].GetListValue())
	if err != nil {
		return nil, err
	}

	obj, err := s.bridge.NewObject(typeName, args...)
	if err != nil {
		return nil, connectError(err)
	}
	log.Debugf("created %s", obj)
	return connect.NewResponse(&structpb.Struct{Fields: map[string]*structpb.Value{
		"object": s.handleValue(obj),
	}}), nil
}

// Invoke calls a method or module function through the bridge's call
// table, or its call-with-keywords table when kwargs are given.
func (s *Server) Invoke(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	fields := req.Msg.GetFields()
	recv, ti, err := s.receiver(fields)
	if err != nil {
		return nil, err
	}
	id, err := slotOf(ti, req.Msg, slots.KindCall)
	if err != nil {
		return nil, err
	}
	args, err := s.fromWireList(fields["args"].GetListValue())
	if err != nil {
		return nil, err
	}

	tables := s.bridge.Tables()
	var result any
	if kwFields := fields["kwargs"].GetStructValue().GetFields(); len(kwFields) > 0 {
		kw := make(slots.Kwargs, len(kwFields))
		for k, v := range kwFields {
			if kw[k], err = s.fromWire(v); err != nil {
				return nil, err
			}
		}
		log.Debugf("invoke %s slot %s with keywords", ti.Name, id)
		result, err = tables.CallKw().At(id).CallKw(recv, args, kw)
	} else {
		log.Debugf("invoke %s slot %s", ti.Name, id)
		result, err = tables.Call().At(id).Call(recv, args)
	}
	if err != nil {
		return nil, connectError(err)
	}

	rv, err := s.toWire(result)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&structpb.Struct{Fields: map[string]*structpb.Value{"result": rv}}), nil
}

// GetAttr reads a field through the bridge's getter table.
func (s *Server) GetAttr(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	obj, err := s.object(req.Msg.GetFields())
	if err != nil {
		return nil, err
	}
	id, err := slotOf(obj.Type(), req.Msg, slots.KindGet)
	if err != nil {
		return nil, err
	}

	value, err := s.bridge.Tables().Get().At(id).Get(obj, nil)
	if err != nil {
		return nil, connectError(err)
	}
	rv, err := s.toWire(value)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&structpb.Struct{Fields: map[string]*structpb.Value{"value": rv}}), nil
}

// SetAttr writes a field through the bridge's setter table.
func (s *Server) SetAttr(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[emptypb.Empty], error) {
	fields := req.Msg.GetFields()
	obj, err := s.object(fields)
	if err != nil {
		return nil, err
	}
	id, err := slotOf(obj.Type(), req.Msg, slots.KindSet)
	if err != nil {
		return nil, err
	}
	wv, ok := fields["value"]
	if !ok {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("value is required"))
	}
	value, err := s.fromWire(wv)
	if err != nil {
		return nil, err
	}

	if err := s.bridge.Tables().Set().At(id).Set(obj, value, nil); err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&emptypb.Empty{}), nil
}

// Release drops an object handle.
func (s *Server) Release(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[emptypb.Empty], error) {
	id := req.Msg.GetFields()[handleKey].GetStringValue()
	if !s.handles.Release(id) {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("handle %q not found", id))
	}
	return connect.NewResponse(&emptypb.Empty{}), nil
}

// receiver resolves the "handle" or "module" field of a request.
func (s *Server) receiver(fields map[string]*structpb.Value) (slots.Value, *bridge.TypeInfo, error) {
	if fields[handleKey].GetStringValue() != "" {
		obj, err := s.object(fields)
		if err != nil {
			return nil, nil, err
		}
		return obj, obj.Type(), nil
	}

	name := fields["module"].GetStringValue()
	if name == "" {
		return nil, nil, connect.NewError(connect.CodeInvalidArgument, errors.New("handle or module is required"))
	}
	m := s.bridge.LookupModule(name)
	if m == nil {
		return nil, nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("module %q not found", name))
	}
	return m, m.Info(), nil
}

func (s *Server) object(fields map[string]*structpb.Value) (*bridge.Object, error) {
	id := fields[handleKey].GetStringValue()
	if id == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("handle is required"))
	}
	obj, ok := s.handles.Lookup(id)
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("handle %q not found", id))
	}
	return obj, nil
}

func structResponse(m map[string]any) (*connect.Response[structpb.Struct], error) {
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(st), nil
}
