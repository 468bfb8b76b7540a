package analyst

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ashureev/vigil/internal/warehouse"
)

// ServiceName is the analyst's gRPC service, also used as the health
// check service name.
const ServiceName = "vigil.analyst.v1.Analyst"

const generateSQLMethod = "/" + ServiceName + "/GenerateSql"

// Requests and responses travel as google.protobuf.Struct:
//
//	request:  {"question": "..."}
//	response: {"sql": "...", "explanation": "...",
//	           "columns": ["A", "B"], "rows": [[1, "x"], ...]}
//
// columns and rows are optional.

// Answer is a decoded analyst response.
type Answer struct {
	SQL         string
	Explanation string
	Rows        []warehouse.Row
}

var errMalformedAnswer = errors.New("malformed analyst answer")

func newRequest(question string) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(map[string]any{"question": question})
	if err != nil {
		return nil, fmt.Errorf("encode analyst request: %w", err)
	}
	return req, nil
}

func parseAnswer(resp *structpb.Struct) (Answer, error) {
	f := resp.GetFields()
	ans := Answer{
		SQL:         StripCodeFence(f["sql"].GetStringValue()),
		Explanation: f["explanation"].GetStringValue(),
	}

	var columns []string
	for _, v := range f["columns"].GetListValue().GetValues() {
		columns = append(columns, v.GetStringValue())
	}
	for i, v := range f["rows"].GetListValue().GetValues() {
		cells := v.GetListValue().GetValues()
		// An empty row carries nothing to show; dropping it lets the
		// resolver fall through when that is all the analyst sent.
		if len(cells) == 0 {
			continue
		}
		if len(cells) != len(columns) {
			return Answer{}, fmt.Errorf("%w: row %d has %d cells for %d columns", errMalformedAnswer, i, len(cells), len(columns))
		}
		kv := make([]any, 0, 2*len(cells))
		for j, c := range cells {
			kv = append(kv, columns[j], c.AsInterface())
		}
		ans.Rows = append(ans.Rows, warehouse.NewRow(kv...))
	}
	return ans, nil
}

// StripCodeFence removes a surrounding ``` or ```sql fence from generated
// SQL.
func StripCodeFence(sql string) string {
	s := strings.TrimSpace(sql)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(strings.TrimPrefix(s, "sql"), "SQL")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Server is implemented by SQL generator backends served over gRPC.
type Server interface {
	GenerateSql(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) //nolint:revive // matches the RPC name
}

// RegisterServer registers srv on s under ServiceName.
func RegisterServer(s grpc.ServiceRegistrar, srv Server) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GenerateSql", Handler: generateSQLHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "vigil/analyst/v1/analyst.proto",
}

func generateSQLHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) { //nolint:revive // grpc.MethodHandler signature
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).GenerateSql(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: generateSQLMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Server).GenerateSql(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}
