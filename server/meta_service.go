package server

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"

	"github.com/chazu/metaobject/meta"
	"github.com/chazu/metaobject/wire"
)

// ClassSource resolves the classes the service can expose.
// *meta.ClassRegistry implements it.
type ClassSource interface {
	Lookup(name string) *meta.MetaObject
	All() []*meta.MetaObject
}

// processClasses is the process-wide class registry.
type processClasses struct{}

func (processClasses) Lookup(name string) *meta.MetaObject { return meta.Lookup(name) }
func (processClasses) All() []*meta.MetaObject             { return meta.Classes() }

// MetaService implements the MetaService Connect handlers. Objects it
// creates live in its thread; auto and direct calls run there.
type MetaService struct {
	thread  *meta.Thread
	handles *HandleStore
	policy  *CapabilityPolicy
	classes ClassSource
}

// NewMetaService creates a MetaService.
func NewMetaService(thread *meta.Thread, handles *HandleStore, policy *CapabilityPolicy, classes ClassSource) *MetaService {
	return &MetaService{
		thread:  thread,
		handles: handles,
		policy:  policy,
		classes: classes,
	}
}

// ListClasses returns the exposed classes.
func (s *MetaService) ListClasses(
	ctx context.Context,
	req *connect.Request[ListClassesRequest],
) (*connect.Response[ListClassesResponse], error) {
	resp := &ListClassesResponse{Classes: []ClassSummary{}}
	for _, cls := range s.classes.All() {
		if !s.policy.Allows(cls) {
			continue
		}
		if req.Msg.Capability != "" && !cls.HasCapability(req.Msg.Capability) {
			continue
		}
		resp.Classes = append(resp.Classes, classSummary(cls))
	}
	return connect.NewResponse(resp), nil
}

// DescribeClass returns the encoded descriptors of a class and its
// ancestors.
func (s *MetaService) DescribeClass(
	ctx context.Context,
	req *connect.Request[DescribeClassRequest],
) (*connect.Response[DescribeClassResponse], error) {
	cls, err := s.exposedClass(req.Msg.Name)
	if err != nil {
		return nil, err
	}
	resp := &DescribeClassResponse{}
	for n := cls; n != nil; n = n.SuperClass() {
		resp.Chain = append(resp.Chain, wire.EncodeClass(n))
	}
	return connect.NewResponse(resp), nil
}

// ListObjects returns the live handles.
func (s *MetaService) ListObjects(
	ctx context.Context,
	req *connect.Request[ListObjectsRequest],
) (*connect.Response[ListObjectsResponse], error) {
	return connect.NewResponse(&ListObjectsResponse{Objects: s.handles.List()}), nil
}

// CreateObject constructs an instance through a class constructor and
// returns its handle.
func (s *MetaService) CreateObject(
	ctx context.Context,
	req *connect.Request[CreateObjectRequest],
) (*connect.Response[CreateObjectResponse], error) {
	cls, err := s.exposedClass(req.Msg.Class)
	if err != nil {
		return nil, err
	}
	args, err := wire.DecodeValues(req.Msg.Args)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	obj, err := cls.NewInstance(args...)
	if err != nil {
		return nil, connectError(err)
	}
	obj.ObjectBase().MoveToThread(s.thread)
	if req.Msg.Name != "" {
		if err := s.thread.Do(func() { meta.SetObjectName(obj, req.Msg.Name) }); err != nil {
			return nil, connectError(err)
		}
	}

	id := s.handles.Create(obj)
	log.Infof("created %s as %s", cls.ClassName(), id)
	return connect.NewResponse(&CreateObjectResponse{Object: objectInfo(id, obj)}), nil
}

// ReleaseObject destroys an object and drops its handle.
func (s *MetaService) ReleaseObject(
	ctx context.Context,
	req *connect.Request[ReleaseObjectRequest],
) (*connect.Response[ReleaseObjectResponse], error) {
	if !s.handles.Release(req.Msg.Handle) {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("handle %q not found", req.Msg.Handle))
	}
	return connect.NewResponse(&ReleaseObjectResponse{}), nil
}

// Invoke calls a method by name. Queued calls return as soon as the call
// is posted and carry no return value.
func (s *MetaService) Invoke(
	ctx context.Context,
	req *connect.Request[InvokeRequest],
) (*connect.Response[InvokeResponse], error) {
	if req.Msg.Method == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("method is required"))
	}
	obj, err := s.object(req.Msg.Handle)
	if err != nil {
		return nil, err
	}
	args, err := wire.DecodeValues(req.Msg.Args)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	ct, err := meta.ParseConnectionType(req.Msg.Connection)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	var ret meta.Value
	switch ct {
	case meta.QueuedConnection:
		err = meta.Invoke(obj, req.Msg.Method, ct, nil, args...)
	case meta.BlockingQueuedConnection:
		err = meta.Invoke(obj, req.Msg.Method, ct, &ret, args...)
	default:
		err = s.onThread(func() error {
			return meta.Invoke(obj, req.Msg.Method, ct, &ret, args...)
		})
	}
	if err != nil {
		return nil, connectError(err)
	}

	w, err := wire.EncodeValue(ret)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&InvokeResponse{Return: w}), nil
}

// ReadProperty reads a property by name.
func (s *MetaService) ReadProperty(
	ctx context.Context,
	req *connect.Request[ReadPropertyRequest],
) (*connect.Response[ReadPropertyResponse], error) {
	obj, prop, err := s.property(req.Msg.Handle, req.Msg.Property)
	if err != nil {
		return nil, err
	}
	var v meta.Value
	if err := s.onThread(func() error {
		v = prop.Read(obj)
		return nil
	}); err != nil {
		return nil, connectError(err)
	}
	if !v.IsValid() && prop.Type() == meta.UnknownType {
		return nil, connect.NewError(connect.CodeFailedPrecondition,
			fmt.Errorf("property %s has unregistered type %q: %w", prop.Name(), prop.TypeName(), meta.ErrUnregisteredType))
	}

	w, err := wire.EncodeValue(v)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&ReadPropertyResponse{Value: w}), nil
}

// WriteProperty writes a property by name. An empty value resets a
// resettable property.
func (s *MetaService) WriteProperty(
	ctx context.Context,
	req *connect.Request[WritePropertyRequest],
) (*connect.Response[WritePropertyResponse], error) {
	obj, prop, err := s.property(req.Msg.Handle, req.Msg.Property)
	if err != nil {
		return nil, err
	}
	v, err := wire.DecodeValue(req.Msg.Value)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	if err := s.onThread(func() error { return prop.Write(obj, v) }); err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&WritePropertyResponse{}), nil
}

// ResetProperty resets a property by name.
func (s *MetaService) ResetProperty(
	ctx context.Context,
	req *connect.Request[ResetPropertyRequest],
) (*connect.Response[ResetPropertyResponse], error) {
	obj, prop, err := s.property(req.Msg.Handle, req.Msg.Property)
	if err != nil {
		return nil, err
	}
	if err := s.onThread(func() error { return prop.Reset(obj) }); err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&ResetPropertyResponse{}), nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *MetaService) exposedClass(name string) (*meta.MetaObject, error) {
	if name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("class name is required"))
	}
	cls := s.classes.Lookup(name)
	if cls == nil {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("class %q not found", name))
	}
	if err := s.policy.Check(cls); err != nil {
		return nil, connect.NewError(connect.CodePermissionDenied, err)
	}
	return cls, nil
}

func (s *MetaService) object(id string) (meta.Object, error) {
	if id == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("handle is required"))
	}
	obj, ok := s.handles.Lookup(id)
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("handle %q not found", id))
	}
	return obj, nil
}

func (s *MetaService) property(id, name string) (meta.Object, meta.MetaProperty, error) {
	obj, err := s.object(id)
	if err != nil {
		return nil, meta.MetaProperty{}, err
	}
	mo := obj.MetaObject()
	idx := mo.IndexOfProperty(name)
	if idx < 0 {
		return nil, meta.MetaProperty{}, connect.NewError(connect.CodeNotFound,
			fmt.Errorf("%s has no property %q", mo.ClassName(), name))
	}
	return obj, mo.Property(idx), nil
}

// onThread runs fn on the service thread and returns its error.
func (s *MetaService) onThread(fn func() error) error {
	var err error
	if doErr := s.thread.Do(func() { err = fn() }); doErr != nil {
		return doErr
	}
	return err
}

func classSummary(cls *meta.MetaObject) ClassSummary {
	sum := ClassSummary{
		Name:         cls.ClassName(),
		Methods:      cls.MethodCount(),
		Properties:   cls.PropertyCount(),
		Capabilities: cls.Capabilities(),
	}
	if super := cls.SuperClass(); super != nil {
		sum.Super = super.ClassName()
	}
	return sum
}

// connectError maps meta sentinels to connect codes.
func connectError(err error) *connect.Error {
	code := connect.CodeInternal
	switch {
	case errors.Is(err, meta.ErrNotFound):
		code = connect.CodeNotFound
	case errors.Is(err, meta.ErrArgumentMismatch),
		errors.Is(err, meta.ErrTypeMismatch),
		errors.Is(err, meta.ErrUnregisteredType):
		code = connect.CodeInvalidArgument
	case errors.Is(err, meta.ErrNotWritable),
		errors.Is(err, meta.ErrNotResettable),
		errors.Is(err, meta.ErrDeadlockRisk):
		code = connect.CodeFailedPrecondition
	case errors.Is(err, meta.ErrUnsupported):
		code = connect.CodeUnimplemented
	case errors.Is(err, meta.ErrNoEventLoop),
		errors.Is(err, meta.ErrThreadStopped):
		code = connect.CodeUnavailable
	}
	return connect.NewError(code, err)
}
