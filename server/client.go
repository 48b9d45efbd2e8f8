package server

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	"github.com/chazu/metaobject/meta"
	"github.com/chazu/metaobject/wire"
)

// Client calls a MetaService.
type Client struct {
	listClasses   *connect.Client[ListClassesRequest, ListClassesResponse]
	describeClass *connect.Client[DescribeClassRequest, DescribeClassResponse]
	listObjects   *connect.Client[ListObjectsRequest, ListObjectsResponse]
	createObject  *connect.Client[CreateObjectRequest, CreateObjectResponse]
	releaseObject *connect.Client[ReleaseObjectRequest, ReleaseObjectResponse]
	invoke        *connect.Client[InvokeRequest, InvokeResponse]
	readProperty  *connect.Client[ReadPropertyRequest, ReadPropertyResponse]
	writeProperty *connect.Client[WritePropertyRequest, WritePropertyResponse]
	resetProperty *connect.Client[ResetPropertyRequest, ResetPropertyResponse]
}

// NewClient creates a client for the service at baseURL
// (e.g. "http://localhost:4010").
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(wire.Codec{})}, opts...)
	return &Client{
		listClasses:   connect.NewClient[ListClassesRequest, ListClassesResponse](httpClient, baseURL+ListClassesProcedure, opts...),
		describeClass: connect.NewClient[DescribeClassRequest, DescribeClassResponse](httpClient, baseURL+DescribeClassProcedure, opts...),
		listObjects:   connect.NewClient[ListObjectsRequest, ListObjectsResponse](httpClient, baseURL+ListObjectsProcedure, opts...),
		createObject:  connect.NewClient[CreateObjectRequest, CreateObjectResponse](httpClient, baseURL+CreateObjectProcedure, opts...),
		releaseObject: connect.NewClient[ReleaseObjectRequest, ReleaseObjectResponse](httpClient, baseURL+ReleaseObjectProcedure, opts...),
		invoke:        connect.NewClient[InvokeRequest, InvokeResponse](httpClient, baseURL+InvokeProcedure, opts...),
		readProperty:  connect.NewClient[ReadPropertyRequest, ReadPropertyResponse](httpClient, baseURL+ReadPropertyProcedure, opts...),
		writeProperty: connect.NewClient[WritePropertyRequest, WritePropertyResponse](httpClient, baseURL+WritePropertyProcedure, opts...),
		resetProperty: connect.NewClient[ResetPropertyRequest, ResetPropertyResponse](httpClient, baseURL+ResetPropertyProcedure, opts...),
	}
}

// ListClasses lists exposed classes, optionally filtered by capability.
func (c *Client) ListClasses(ctx context.Context, capability string) ([]ClassSummary, error) {
	resp, err := c.listClasses.CallUnary(ctx, connect.NewRequest(&ListClassesRequest{Capability: capability}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.Classes, nil
}

// DescribeClass rebuilds a describe-only node chain for name. Ancestors
// registered locally are reused.
func (c *Client) DescribeClass(ctx context.Context, name string) (*meta.MetaObject, error) {
	resp, err := c.describeClass.CallUnary(ctx, connect.NewRequest(&DescribeClassRequest{Name: name}))
	if err != nil {
		return nil, err
	}
	var parent *meta.MetaObject
	for i := len(resp.Msg.Chain) - 1; i >= 0; i-- {
		wc := resp.Msg.Chain[i]
		d, err := wc.Descriptor()
		if err != nil {
			return nil, err
		}
		parent = meta.NewMetaObject(d, parent, nil, wc.Capabilities...)
	}
	return parent, nil
}

// ListObjects lists live handles.
func (c *Client) ListObjects(ctx context.Context) ([]ObjectInfo, error) {
	resp, err := c.listObjects.CallUnary(ctx, connect.NewRequest(&ListObjectsRequest{}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.Objects, nil
}

// CreateObject constructs an object of class with args.
func (c *Client) CreateObject(ctx context.Context, class, name string, args ...meta.Value) (ObjectInfo, error) {
	ws, err := wire.EncodeValues(args)
	if err != nil {
		return ObjectInfo{}, err
	}
	resp, err := c.createObject.CallUnary(ctx, connect.NewRequest(&CreateObjectRequest{Class: class, Args: ws, Name: name}))
	if err != nil {
		return ObjectInfo{}, err
	}
	return resp.Msg.Object, nil
}

// ReleaseObject destroys the object behind handle.
func (c *Client) ReleaseObject(ctx context.Context, handle string) error {
	_, err := c.releaseObject.CallUnary(ctx, connect.NewRequest(&ReleaseObjectRequest{Handle: handle}))
	return err
}

// Invoke calls method on the object behind handle.
func (c *Client) Invoke(ctx context.Context, handle, method string, ct meta.ConnectionType, args ...meta.Value) (meta.Value, error) {
	ws, err := wire.EncodeValues(args)
	if err != nil {
		return meta.Value{}, err
	}
	resp, err := c.invoke.CallUnary(ctx, connect.NewRequest(&InvokeRequest{
		Handle:     handle,
		Method:     method,
		Args:       ws,
		Connection: ct.String(),
	}))
	if err != nil {
		return meta.Value{}, err
	}
	return wire.DecodeValue(resp.Msg.Return)
}

// ReadProperty reads a property.
func (c *Client) ReadProperty(ctx context.Context, handle, property string) (meta.Value, error) {
	resp, err := c.readProperty.CallUnary(ctx, connect.NewRequest(&ReadPropertyRequest{Handle: handle, Property: property}))
	if err != nil {
		return meta.Value{}, err
	}
	return wire.DecodeValue(resp.Msg.Value)
}

// WriteProperty writes a property.
func (c *Client) WriteProperty(ctx context.Context, handle, property string, v meta.Value) error {
	w, err := wire.EncodeValue(v)
	if err != nil {
		return err
	}
	_, err = c.writeProperty.CallUnary(ctx, connect.NewRequest(&WritePropertyRequest{Handle: handle, Property: property, Value: w}))
	return err
}

// ResetProperty resets a property.
func (c *Client) ResetProperty(ctx context.Context, handle, property string) error {
	_, err := c.resetProperty.CallUnary(ctx, connect.NewRequest(&ResetPropertyRequest{Handle: handle, Property: property}))
	return err
}
