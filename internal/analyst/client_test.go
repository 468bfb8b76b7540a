package analyst

import (
	"context"
	"errors"
	"net"
	"testing"

	"go.uber.org/goleak"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeAnalyst struct {
	resp map[string]any
	err  error
	got  string
}

func (f *fakeAnalyst) GenerateSql(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) { //nolint:revive // matches Server
	f.got = req.GetFields()["question"].GetStringValue()
	if f.err != nil {
		return nil, f.err
	}
	return structpb.NewStruct(f.resp)
}

func startServer(t *testing.T, srv Server, servingStatus healthpb.HealthCheckResponse_ServingStatus) *Client {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	RegisterServer(s, srv)
	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, servingStatus)
	healthpb.RegisterHealthServer(s, hs)
	go func() { _ = s.Serve(lis) }()

	cfg := DefaultConfig("passthrough:///bufnet")
	c, err := New(cfg, nil, grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	if err != nil {
		s.Stop()
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		c.Close()
		s.Stop()
	})
	return c
}

func TestGenerateSQLWithRows(t *testing.T) {
	fa := &fakeAnalyst{resp: map[string]any{
		"sql":         "```sql\nSELECT ASSET_ID, HEALTH_SCORE FROM asset\n```",
		"explanation": "Assets by health",
		"columns":     []any{"ASSET_ID", "HEALTH_SCORE"},
		"rows":        []any{[]any{"AST-00001", 42.5}, []any{"AST-00002", nil}},
	}}
	c := startServer(t, fa, healthpb.HealthCheckResponse_SERVING)

	ans, err := c.GenerateSQL(context.Background(), "which assets are weakest?")
	if err != nil {
		t.Fatalf("GenerateSQL: %v", err)
	}
	if fa.got != "which assets are weakest?" {
		t.Fatalf("server saw question %q", fa.got)
	}
	if ans.SQL != "SELECT ASSET_ID, HEALTH_SCORE FROM asset" {
		t.Fatalf("sql = %q", ans.SQL)
	}
	if ans.Explanation != "Assets by health" {
		t.Fatalf("explanation = %q", ans.Explanation)
	}
	if len(ans.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(ans.Rows))
	}
	if got := ans.Rows[0].Columns(); got[0] != "ASSET_ID" || got[1] != "HEALTH_SCORE" {
		t.Fatalf("column order = %v", got)
	}
	if ans.Rows[0].FloatOr("HEALTH_SCORE", 0) != 42.5 {
		t.Fatalf("health = %v", ans.Rows[0].Value("HEALTH_SCORE"))
	}
	if ans.Rows[1].Value("HEALTH_SCORE") != nil {
		t.Fatalf("null cell decoded as %v", ans.Rows[1].Value("HEALTH_SCORE"))
	}
}

func TestGenerateSQLWithoutRows(t *testing.T) {
	c := startServer(t, &fakeAnalyst{resp: map[string]any{"sql": "SELECT COUNT(*) AS N FROM asset"}}, healthpb.HealthCheckResponse_SERVING)

	ans, err := c.GenerateSQL(context.Background(), "how big is the fleet")
	if err != nil {
		t.Fatalf("GenerateSQL: %v", err)
	}
	if ans.SQL != "SELECT COUNT(*) AS N FROM asset" || len(ans.Rows) != 0 {
		t.Fatalf("answer = %+v", ans)
	}
}

func TestGenerateSQLSkipsEmptyRows(t *testing.T) {
	c := startServer(t, &fakeAnalyst{resp: map[string]any{
		"sql":  "SELECT ASSET_ID FROM asset WHERE 1 = 0",
		"rows": []any{[]any{}, []any{}},
	}}, healthpb.HealthCheckResponse_SERVING)

	ans, err := c.GenerateSQL(context.Background(), "anything empty")
	if err != nil {
		t.Fatalf("GenerateSQL: %v", err)
	}
	if len(ans.Rows) != 0 {
		t.Fatalf("rows = %d, want 0", len(ans.Rows))
	}
	if ans.SQL != "SELECT ASSET_ID FROM asset WHERE 1 = 0" {
		t.Fatalf("sql = %q", ans.SQL)
	}
}

func TestGenerateSQLServerError(t *testing.T) {
	c := startServer(t, &fakeAnalyst{err: status.Error(codes.Unavailable, "model overloaded")}, healthpb.HealthCheckResponse_SERVING)

	_, err := c.GenerateSQL(context.Background(), "anything")
	if status.Code(errors.Unwrap(err)) != codes.Unavailable {
		t.Fatalf("err = %v, want Unavailable", err)
	}
}

func TestGenerateSQLMalformedRows(t *testing.T) {
	c := startServer(t, &fakeAnalyst{resp: map[string]any{
		"sql":     "SELECT 1",
		"columns": []any{"A"},
		"rows":    []any{[]any{1.0, 2.0}},
	}}, healthpb.HealthCheckResponse_SERVING)

	if _, err := c.GenerateSQL(context.Background(), "q"); !errors.Is(err, errMalformedAnswer) {
		t.Fatalf("err = %v, want malformed answer", err)
	}
}

func TestHealth(t *testing.T) {
	serving := startServer(t, &fakeAnalyst{}, healthpb.HealthCheckResponse_SERVING)
	if err := serving.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}

	down := startServer(t, &fakeAnalyst{}, healthpb.HealthCheckResponse_NOT_SERVING)
	if err := down.Health(context.Background()); !errors.Is(err, ErrNotServing) {
		t.Fatalf("Health = %v, want ErrNotServing", err)
	}
}

func TestNewRequiresAddress(t *testing.T) {
	if _, err := New(Config{}, nil); err == nil {
		t.Fatal("expected error for empty address")
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := map[string]string{
		"SELECT 1":                      "SELECT 1",
		"  SELECT 1  ":                  "SELECT 1",
		"```sql\nSELECT 1\n```":         "SELECT 1",
		"```\nSELECT 1;\n```":           "SELECT 1;",
		"```sql SELECT 1```":            "SELECT 1",
		"```SQL\nSELECT *\nFROM a\n```": "SELECT *\nFROM a",
	}
	for in, want := range tests {
		if got := StripCodeFence(in); got != want {
			t.Errorf("StripCodeFence(%q) = %q, want %q", in, got, want)
		}
	}
}
