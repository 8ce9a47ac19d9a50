package grpc_control

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

// -----------------------------------------------------------------------------
// control.proto, assembled as a descriptor. Messages travel as dynamicpb
// values on grpc's default proto codec and are converted to the plain structs
// in messages.go at the service boundary.
// -----------------------------------------------------------------------------

const (
	protoFile    = "marketpulse/control/v1/control.proto"
	protoPackage = "marketpulse.control.v1"
)

var (
	controlFile protoreflect.FileDescriptor

	emptyDesc                 protoreflect.MessageDescriptor
	sourceStatusDesc          protoreflect.MessageDescriptor
	listSourcesResponseDesc   protoreflect.MessageDescriptor
	forceRefreshRequestDesc   protoreflect.MessageDescriptor
	sourceControlResponseDesc protoreflect.MessageDescriptor
	updateSymbolsRequestDesc  protoreflect.MessageDescriptor
	updateSymbolsResponseDesc protoreflect.MessageDescriptor
)

func init() {
	fd, err := protodesc.NewFile(controlFileProto(), protoregistry.GlobalFiles)
	if err != nil {
		panic(fmt.Sprintf("invalid %s: %v", protoFile, err))
	}
	controlFile = fd

	msgs := fd.Messages()
	emptyDesc = msgs.ByName("Empty")
	sourceStatusDesc = msgs.ByName("SourceStatus")
	listSourcesResponseDesc = msgs.ByName("ListSourcesResponse")
	forceRefreshRequestDesc = msgs.ByName("ForceRefreshRequest")
	sourceControlResponseDesc = msgs.ByName("SourceControlResponse")
	updateSymbolsRequestDesc = msgs.ByName("UpdateSymbolsRequest")
	updateSymbolsResponseDesc = msgs.ByName("UpdateSymbolsResponse")
}

// FileDescriptor describes the control service, for reflection and tooling.
func FileDescriptor() protoreflect.FileDescriptor {
	return controlFile
}

// -----------------------------------------------------------------------------

func controlFileProto() *descriptorpb.FileDescriptorProto {
	const (
		tString = descriptorpb.FieldDescriptorProto_TYPE_STRING
		tBool   = descriptorpb.FieldDescriptorProto_TYPE_BOOL
		tInt32  = descriptorpb.FieldDescriptorProto_TYPE_INT32
		tInt64  = descriptorpb.FieldDescriptorProto_TYPE_INT64
		tDouble = descriptorpb.FieldDescriptorProto_TYPE_DOUBLE
	)

	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String(protoFile),
		Package: proto.String(protoPackage),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			message("Empty"),
			message("SourceStatus",
				field("name", 1, tString),
				field("kind", 2, tString),
				field("status", 3, tString),
				field("interval_seconds", 4, tDouble),
				field("failures", 5, tInt32),
				field("last_error", 6, tString),
				field("last_ok_unix", 7, tInt64),
			),
			message("ListSourcesResponse", repeatedMessage("sources", 1, "SourceStatus")),
			message("ForceRefreshRequest", field("source_name", 1, tString)),
			message("SourceControlResponse",
				field("success", 1, tBool),
				field("message", 2, tString),
			),
			message("UpdateSymbolsRequest",
				field("source_name", 1, tString),
				repeated(field("symbols", 2, tString)),
			),
			message("UpdateSymbolsResponse",
				field("success", 1, tBool),
				field("message", 2, tString),
				field("symbol_count", 3, tInt32),
			),
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("Control"),
			Method: []*descriptorpb.MethodDescriptorProto{
				rpc("ListSources", "Empty", "ListSourcesResponse"),
				rpc("ForceRefresh", "ForceRefreshRequest", "SourceControlResponse"),
				rpc("UpdateSymbols", "UpdateSymbolsRequest", "UpdateSymbolsResponse"),
			},
		}},
	}
}

func qualified(name string) string {
	return "." + protoPackage + "." + name
}

func message(name string, fields ...*descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{Name: proto.String(name), Field: fields}
}

func field(name string, number int32, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(number),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:   typ.Enum(),
	}
}

func repeated(f *descriptorpb.FieldDescriptorProto) *descriptorpb.FieldDescriptorProto {
	f.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
	return f
}

func repeatedMessage(name string, number int32, typeName string) *descriptorpb.FieldDescriptorProto {
	f := repeated(field(name, number, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE))
	f.TypeName = proto.String(qualified(typeName))
	return f
}

func rpc(name, in, out string) *descriptorpb.MethodDescriptorProto {
	return &descriptorpb.MethodDescriptorProto{
		Name:       proto.String(name),
		InputType:  proto.String(qualified(in)),
		OutputType: proto.String(qualified(out)),
	}
}

// -----------------------------------------------------------------------------
// Field access on dynamic messages
// -----------------------------------------------------------------------------

type wire struct {
	*dynamicpb.Message
}

func newWire(md protoreflect.MessageDescriptor) wire {
	return wire{dynamicpb.NewMessage(md)}
}

func asWire(v interface{}) wire {
	if m, ok := v.(*dynamicpb.Message); ok {
		return wire{m}
	}
	return wire{}
}

func (w wire) fd(name string) protoreflect.FieldDescriptor {
	return w.Descriptor().Fields().ByName(protoreflect.Name(name))
}

func (w wire) ok() bool { return w.Message != nil }

func (w wire) setString(name, v string)         { w.Set(w.fd(name), protoreflect.ValueOfString(v)) }
func (w wire) setBool(name string, v bool)      { w.Set(w.fd(name), protoreflect.ValueOfBool(v)) }
func (w wire) setInt32(name string, v int32)    { w.Set(w.fd(name), protoreflect.ValueOfInt32(v)) }
func (w wire) setInt64(name string, v int64)    { w.Set(w.fd(name), protoreflect.ValueOfInt64(v)) }
func (w wire) setDouble(name string, v float64) { w.Set(w.fd(name), protoreflect.ValueOfFloat64(v)) }

func (w wire) getString(name string) string  { return w.Get(w.fd(name)).String() }
func (w wire) getBool(name string) bool      { return w.Get(w.fd(name)).Bool() }
func (w wire) getInt32(name string) int32    { return int32(w.Get(w.fd(name)).Int()) }
func (w wire) getInt64(name string) int64    { return w.Get(w.fd(name)).Int() }
func (w wire) getDouble(name string) float64 { return w.Get(w.fd(name)).Float() }

func (w wire) list(name string) protoreflect.List { return w.Get(w.fd(name)).List() }

// -----------------------------------------------------------------------------
// Conversions
// -----------------------------------------------------------------------------

func (e *Empty) toWire() wire { return newWire(emptyDesc) }

func (r *ForceRefreshRequest) toWire() wire {
	w := newWire(forceRefreshRequestDesc)
	w.setString("source_name", r.SourceName)
	return w
}

func forceRefreshRequestFrom(w wire) *ForceRefreshRequest {
	if !w.ok() {
		return &ForceRefreshRequest{}
	}
	return &ForceRefreshRequest{SourceName: w.getString("source_name")}
}

func (r *UpdateSymbolsRequest) toWire() wire {
	w := newWire(updateSymbolsRequestDesc)
	w.setString("source_name", r.SourceName)
	symbols := w.Mutable(w.fd("symbols")).List()
	for _, sym := range r.Symbols {
		symbols.Append(protoreflect.ValueOfString(sym))
	}
	return w
}

func updateSymbolsRequestFrom(w wire) *UpdateSymbolsRequest {
	if !w.ok() {
		return &UpdateSymbolsRequest{}
	}
	req := &UpdateSymbolsRequest{SourceName: w.getString("source_name")}
	symbols := w.list("symbols")
	for i := 0; i < symbols.Len(); i++ {
		req.Symbols = append(req.Symbols, symbols.Get(i).String())
	}
	return req
}

func (r *SourceStatus) toWire() wire {
	w := newWire(sourceStatusDesc)
	w.setString("name", r.Name)
	w.setString("kind", r.Kind)
	w.setString("status", r.Status)
	w.setDouble("interval_seconds", r.IntervalSeconds)
	w.setInt32("failures", r.Failures)
	w.setString("last_error", r.LastError)
	w.setInt64("last_ok_unix", r.LastOkUnix)
	return w
}

func sourceStatusFrom(w wire) *SourceStatus {
	return &SourceStatus{
		Name:            w.getString("name"),
		Kind:            w.getString("kind"),
		Status:          w.getString("status"),
		IntervalSeconds: w.getDouble("interval_seconds"),
		Failures:        w.getInt32("failures"),
		LastError:       w.getString("last_error"),
		LastOkUnix:      w.getInt64("last_ok_unix"),
	}
}

func (r *ListSourcesResponse) toWire() wire {
	w := newWire(listSourcesResponseDesc)
	if r == nil {
		return w
	}
	sources := w.Mutable(w.fd("sources")).List()
	for _, src := range r.Sources {
		sources.Append(protoreflect.ValueOfMessage(src.toWire().Message))
	}
	return w
}

func listSourcesResponseFrom(w wire) *ListSourcesResponse {
	resp := &ListSourcesResponse{}
	sources := w.list("sources")
	for i := 0; i < sources.Len(); i++ {
		m, _ := sources.Get(i).Message().Interface().(*dynamicpb.Message)
		resp.Sources = append(resp.Sources, sourceStatusFrom(wire{m}))
	}
	return resp
}

func (r *SourceControlResponse) toWire() wire {
	w := newWire(sourceControlResponseDesc)
	if r == nil {
		return w
	}
	w.setBool("success", r.Success)
	w.setString("message", r.Message)
	return w
}

func sourceControlResponseFrom(w wire) *SourceControlResponse {
	return &SourceControlResponse{Success: w.getBool("success"), Message: w.getString("message")}
}

func (r *UpdateSymbolsResponse) toWire() wire {
	w := newWire(updateSymbolsResponseDesc)
	if r == nil {
		return w
	}
	w.setBool("success", r.Success)
	w.setString("message", r.Message)
	w.setInt32("symbol_count", r.SymbolCount)
	return w
}

func updateSymbolsResponseFrom(w wire) *UpdateSymbolsResponse {
	return &UpdateSymbolsResponse{
		Success:     w.getBool("success"),
		Message:     w.getString("message"),
		SymbolCount: w.getInt32("symbol_count"),
	}
}
