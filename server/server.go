// Package server exposes registered classes over Connect: clients list
// and describe classes, create objects, invoke methods and read or write
// properties. Messages travel as CBOR.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"

	"github.com/chazu/metaobject/meta"
	"github.com/chazu/metaobject/wire"
)

var log = commonlog.GetLogger("metaobject.server")

// MetaServer serves the MetaService over HTTP.
type MetaServer struct {
	thread  *meta.Thread
	handles *HandleStore
	service *MetaService
	mux     *http.ServeMux

	stopSweeper func()
}

// ServerOption configures a MetaServer.
type ServerOption func(*serverConfig)

type serverConfig struct {
	policy        *CapabilityPolicy
	classes       ClassSource
	handleTTL     time.Duration
	sweepInterval time.Duration
}

// WithPolicy sets the capability policy. If not set, a permissive policy
// (expose all) is used.
func WithPolicy(policy *CapabilityPolicy) ServerOption {
	return func(c *serverConfig) { c.policy = policy }
}

// WithClasses serves classes from src instead of the process registry.
func WithClasses(src ClassSource) ServerOption {
	return func(c *serverConfig) { c.classes = src }
}

// WithHandleTTL sets how long an unused handle lives and how often
// expired handles are swept.
func WithHandleTTL(ttl, sweepInterval time.Duration) ServerOption {
	return func(c *serverConfig) {
		c.handleTTL = ttl
		c.sweepInterval = sweepInterval
	}
}

// New creates a MetaServer with its own event-loop thread.
func New(opts ...ServerOption) *MetaServer {
	cfg := &serverConfig{
		policy:        NewPermissivePolicy(),
		classes:       processClasses{},
		handleTTL:     30 * time.Minute,
		sweepInterval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	thread := meta.NewThread("server")
	thread.Start()
	handles := NewHandleStore()

	s := &MetaServer{
		thread:  thread,
		handles: handles,
		service: NewMetaService(thread, handles, cfg.policy, cfg.classes),
		mux:     http.NewServeMux(),
	}

	codec := connect.WithCodec(wire.Codec{})
	svc := s.service
	s.mux.Handle(ListClassesProcedure, connect.NewUnaryHandler(ListClassesProcedure, svc.ListClasses, codec))
	s.mux.Handle(DescribeClassProcedure, connect.NewUnaryHandler(DescribeClassProcedure, svc.DescribeClass, codec))
	s.mux.Handle(ListObjectsProcedure, connect.NewUnaryHandler(ListObjectsProcedure, svc.ListObjects, codec))
	s.mux.Handle(CreateObjectProcedure, connect.NewUnaryHandler(CreateObjectProcedure, svc.CreateObject, codec))
	s.mux.Handle(ReleaseObjectProcedure, connect.NewUnaryHandler(ReleaseObjectProcedure, svc.ReleaseObject, codec))
	s.mux.Handle(InvokeProcedure, connect.NewUnaryHandler(InvokeProcedure, svc.Invoke, codec))
	s.mux.Handle(ReadPropertyProcedure, connect.NewUnaryHandler(ReadPropertyProcedure, svc.ReadProperty, codec))
	s.mux.Handle(WritePropertyProcedure, connect.NewUnaryHandler(WritePropertyProcedure, svc.WriteProperty, codec))
	s.mux.Handle(ResetPropertyProcedure, connect.NewUnaryHandler(ResetPropertyProcedure, svc.ResetProperty, codec))

	s.stopSweeper = handles.StartSweeper(cfg.sweepInterval, cfg.handleTTL)
	return s
}

// Handler returns the HTTP handler serving every procedure.
func (s *MetaServer) Handler() http.Handler { return s.mux }

// Service returns the underlying service.
func (s *MetaServer) Service() *MetaService { return s.service }

// Handles returns the handle store.
func (s *MetaServer) Handles() *HandleStore { return s.handles }

// ListenAndServe serves on addr until ctx is cancelled.
func (s *MetaServer) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *MetaServer) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.mux, ReadHeaderTimeout: 10 * time.Second}
	log.Noticef("metaobject server listening on %s", ln.Addr())
	log.Noticef("  Connect (CBOR): http://%s%s", ln.Addr(), ListClassesProcedure)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts down the sweeper and the event loop. Live handles are
// released.
func (s *MetaServer) Stop() {
	if s.stopSweeper != nil {
		s.stopSweeper()
	}
	for _, info := range s.handles.List() {
		s.handles.Release(info.Handle)
	}
	s.thread.Stop()
}
