package server

import "github.com/chazu/metaobject/wire"

// Procedure paths of the MetaService.
const (
	ServiceName = "metaobject.v1.MetaService"

	ListClassesProcedure   = "/" + ServiceName + "/ListClasses"
	DescribeClassProcedure = "/" + ServiceName + "/DescribeClass"
	ListObjectsProcedure   = "/" + ServiceName + "/ListObjects"
	CreateObjectProcedure  = "/" + ServiceName + "/CreateObject"
	ReleaseObjectProcedure = "/" + ServiceName + "/ReleaseObject"
	InvokeProcedure        = "/" + ServiceName + "/Invoke"
	ReadPropertyProcedure  = "/" + ServiceName + "/ReadProperty"
	WritePropertyProcedure = "/" + ServiceName + "/WriteProperty"
	ResetPropertyProcedure = "/" + ServiceName + "/ResetProperty"
)

// ClassSummary describes one exposed class.
type ClassSummary struct {
	Name         string   `cbor:"name"`
	Super        string   `cbor:"super,omitempty"`
	Methods      int      `cbor:"methods"`
	Properties   int      `cbor:"properties"`
	Capabilities []string `cbor:"caps,omitempty"`
}

type ListClassesRequest struct {
	// Capability filters classes to those carrying it.
	Capability string `cbor:"capability,omitempty"`
}

type ListClassesResponse struct {
	Classes []ClassSummary `cbor:"classes"`
}

type DescribeClassRequest struct {
	Name string `cbor:"name"`
}

// DescribeClassResponse carries the class and its ancestors, most
// derived first.
type DescribeClassResponse struct {
	Chain []*wire.Class `cbor:"chain"`
}

// ObjectInfo describes one live handle.
type ObjectInfo struct {
	Handle string `cbor:"handle"`
	Class  string `cbor:"class"`
	Name   string `cbor:"name,omitempty"`
	ID     string `cbor:"id"`
}

type ListObjectsRequest struct{}

type ListObjectsResponse struct {
	Objects []ObjectInfo `cbor:"objects"`
}

type CreateObjectRequest struct {
	Class string       `cbor:"class"`
	Args  []wire.Value `cbor:"args,omitempty"`
	Name  string       `cbor:"name,omitempty"`
}

type CreateObjectResponse struct {
	Object ObjectInfo `cbor:"object"`
}

type ReleaseObjectRequest struct {
	Handle string `cbor:"handle"`
}

type ReleaseObjectResponse struct{}

// InvokeRequest calls Method by name with Args. Connection is one of
// "auto", "direct", "queued" or "blocking"; empty means auto.
type InvokeRequest struct {
	Handle     string       `cbor:"handle"`
	Method     string       `cbor:"method"`
	Args       []wire.Value `cbor:"args,omitempty"`
	Connection string       `cbor:"connection,omitempty"`
}

type InvokeResponse struct {
	Return wire.Value `cbor:"return"`
}

type ReadPropertyRequest struct {
	Handle   string `cbor:"handle"`
	Property string `cbor:"property"`
}

type ReadPropertyResponse struct {
	Value wire.Value `cbor:"value"`
}

type WritePropertyRequest struct {
	Handle   string     `cbor:"handle"`
	Property string     `cbor:"property"`
	Value    wire.Value `cbor:"value"`
}

type WritePropertyResponse struct{}

type ResetPropertyRequest struct {
	Handle   string `cbor:"handle"`
	Property string `cbor:"property"`
}

type ResetPropertyResponse struct{}
