package server

import (
	"context"
	"errors"
	"strings"
	"testing"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/chazu/slotbridge/bridge"
)

// ---------------------------------------------------------------------------
// Shared test infrastructure for server package tests.
// ---------------------------------------------------------------------------

type Counter struct {
	Name  string
	Count int
}

func (c *Counter) Clone() *Counter {
	cp := *c
	return &cp
}

func (c *Counter) Fail() error { return errors.New("counter failure") }

func (c *Counter) Incr(by int) int {
	c.Count += by
	return c.Count
}

func pair(s string) (string, int) { return s, len(s) }

func newTestBridge(t *testing.T) *bridge.Bridge {
	t.Helper()
	b := bridge.New()
	b.MustRegisterType(Counter{}, "")
	text := b.Module("text")
	text.MustAddFunc("Repeat", strings.Repeat, bridge.ParamNames("s", "count"), bridge.Doc("Repeat s count times."))
	text.MustAddFunc("Fields", strings.Fields)
	text.MustAddFunc("Pair", pair)
	return b
}

// newTestServer creates a Server without a background sweeper.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := New(newTestBridge(t), WithHandleTTL(0, 0))
	t.Cleanup(s.Stop)
	return s
}

func bg() context.Context { return context.Background() }

func connectReq[T any](msg *T) *connect.Request[T] { return connect.NewRequest(msg) }

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	st, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	return st
}

func wantCode(t *testing.T, err error, code connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", code)
	}
	if got := connect.CodeOf(err); got != code {
		t.Errorf("code = %v, want %v (err: %v)", got, code, err)
	}
}

// newCounter creates a Counter through the service and returns its handle.
func newCounter(t *testing.T, s *Server) string {
	t.Helper()
	resp, err := s.NewObject(bg(), connectReq(mustStruct(t, map[string]any{"type": "Counter"})))
	if err != nil {
		t.Fatalf("NewObject: %v", err)
	}
	obj := resp.Msg.GetFields()["object"].GetStructValue()
	id, ok := handleID(obj)
	if !ok {
		t.Fatalf("NewObject returned %v, want a handle", obj)
	}
	return id
}
