// Package server exposes a bridge over Connect.
//
// Messages are protobuf well-known types (structpb.Struct, emptypb.Empty),
// so clients need no generated code. Calls travel the same path a host
// runtime takes: through the bridge's dispatch table entries.
package server

import (
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"

	"github.com/chazu/slotbridge/bridge"
)

var log = commonlog.GetLogger("slotbridge.server")

// ServiceName is the fully-qualified name of the bridge service.
const ServiceName = "slotbridge.v1.BridgeService"

// Procedure paths.
const (
	ListTypesProcedure    = "/" + ServiceName + "/ListTypes"
	DescribeTypeProcedure = "/" + ServiceName + "/DescribeType"
	NewObjectProcedure    = "/" + ServiceName + "/NewObject"
	InvokeProcedure       = "/" + ServiceName + "/Invoke"
	GetAttrProcedure      = "/" + ServiceName + "/GetAttr"
	SetAttrProcedure      = "/" + ServiceName + "/SetAttr"
	ReleaseProcedure      = "/" + ServiceName + "/Release"
)

// Server serves one bridge.
type Server struct {
	bridge  *bridge.Bridge
	handles *HandleStore
	mux     *http.ServeMux

	stopSweeper func()
}

// Option configures a Server.
type Option func(*config)

type config struct {
	handlerOpts   []connect.HandlerOption
	sweepInterval time.Duration
	handleTTL     time.Duration
}

// WithHandlerOptions passes options to every Connect handler.
func WithHandlerOptions(opts ...connect.HandlerOption) Option {
	return func(c *config) { c.handlerOpts = append(c.handlerOpts, opts...) }
}

// WithHandleTTL sets how long an unused object handle lives and how often
// idle handles are swept. A zero interval disables sweeping.
func WithHandleTTL(interval, ttl time.Duration) Option {
	return func(c *config) {
		c.sweepInterval = interval
		c.handleTTL = ttl
	}
}

// New creates a Server for b.
func New(b *bridge.Bridge, opts ...Option) *Server {
	cfg := &config{
		sweepInterval: 5 * time.Minute,
		handleTTL:     30 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &Server{
		bridge:  b,
		handles: NewHandleStore(),
		mux:     http.NewServeMux(),
	}

	ho := cfg.handlerOpts
	s.mux.Handle(ListTypesProcedure, connect.NewUnaryHandler(ListTypesProcedure, s.ListTypes, ho...))
	s.mux.Handle(DescribeTypeProcedure, connect.NewUnaryHandler(DescribeTypeProcedure, s.DescribeType, ho...))
	s.mux.Handle(NewObjectProcedure, connect.NewUnaryHandler(NewObjectProcedure, s.NewObject, ho...))
	s.mux.Handle(InvokeProcedure, connect.NewUnaryHandler(InvokeProcedure, s.Invoke, ho...))
	s.mux.Handle(GetAttrProcedure, connect.NewUnaryHandler(GetAttrProcedure, s.GetAttr, ho...))
	s.mux.Handle(SetAttrProcedure, connect.NewUnaryHandler(SetAttrProcedure, s.SetAttr, ho...))
	s.mux.Handle(ReleaseProcedure, connect.NewUnaryHandler(ReleaseProcedure, s.Release, ho...))

	if cfg.sweepInterval > 0 {
		s.stopSweeper = s.handles.StartSweeper(cfg.sweepInterval, cfg.handleTTL)
	}
	return s
}

// Handler returns the HTTP handler serving every procedure.
func (s *Server) Handler() http.Handler { return s.mux }

// Handles returns the server's object handle store.
func (s *Server) Handles() *HandleStore { return s.handles }

// ListenAndServe starts the HTTP server on the given address.
// The address should be in the form "host:port" or ":port".
func (s *Server) ListenAndServe(addr string) error {
	log.Noticef("slotbridge listening on %s", addr)
	log.Infof("  Connect (HTTP/JSON): http://%s%s", addr, ListTypesProcedure)
	return http.ListenAndServe(addr, s.mux)
}

// Stop stops background work.
func (s *Server) Stop() {
	if s.stopSweeper != nil {
		s.stopSweeper()
	}
}
