package agent

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/ashureev/vigil/internal/config"
	"github.com/ashureev/vigil/internal/domain"
	"github.com/ashureev/vigil/internal/identity"
	"github.com/ashureev/vigil/internal/orchestrator"
	"github.com/ashureev/vigil/internal/reports"
	"github.com/ashureev/vigil/internal/resolver"
	"github.com/ashureev/vigil/internal/warehouse"
)

type emptyPort struct{}

func (emptyPort) Query(context.Context, string, ...any) ([]warehouse.Row, error) { return nil, nil }
func (emptyPort) Exec(context.Context, string, ...any) (int64, error)            { return 0, nil }
func (emptyPort) Ping(context.Context) error                                    { return nil }

type noAnswer struct{}

func (noAnswer) Resolve(context.Context, string) resolver.Outcome {
	return resolver.Outcome{Strategy: resolver.StrategyNone}
}

var may1 = time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		SessionTTL: time.Hour,
		RateLimit:  config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100},
		Stream: config.StreamConfig{
			ChunkSize:          40,
			MaxRequestBodySize: 1024,
			KeepaliveInterval:  time.Hour,
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, ttl time.Duration) (*httptest.Server, *Handler, *orchestrator.Registry) {
	t.Helper()
	personas, err := domain.LoadPersonas()
	if err != nil {
		t.Fatal(err)
	}
	clock := func() time.Time { return may1 }
	registry := orchestrator.NewRegistry(func() *orchestrator.Orchestrator {
		return orchestrator.New(orchestrator.Deps{
			Suite:    reports.NewSuite(emptyPort{}, clock),
			Resolver: noAnswer{},
			Personas: personas,
			Clock:    clock,
		})
	}, ttl, nil)

	h := NewHandler(registry, nil, cfg, nil)
	r := chi.NewRouter()
	r.Use(identity.Middleware)
	h.RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		h.Close()
	})
	return srv, h, registry
}

func postChat(t *testing.T, url, session, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set(identity.SessionHeaderName, session)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestHandleChatReturnsAgentResponse(t *testing.T) {
	t.Parallel()

	srv, _, registry := newTestServer(t, testConfig(), time.Hour)

	resp := postChat(t, srv.URL+"/api/chat", "tab-1", `{"message":"hello","persona":"data_detective"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get(identity.SessionHeaderName); got != "tab-1" {
		t.Fatalf("session header = %q", got)
	}

	var out domain.AgentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Narrative != resolver.Help(31) {
		t.Fatalf("unexpected narrative: %q", out.Narrative)
	}
	if out.AgentName != resolver.AgentHelp || out.Intent != domain.IntentDataQuery {
		t.Fatalf("agent=%q intent=%q", out.AgentName, out.Intent)
	}
	if out.Persona.ID != "data_detective" {
		t.Fatalf("persona = %q", out.Persona.ID)
	}
	if out.FireSeason.DaysRemaining != 31 {
		t.Fatalf("days remaining = %d", out.FireSeason.DaysRemaining)
	}

	// The persona sticks to the session.
	resp = postChat(t, srv.URL+"/api/chat", "tab-1", `{"message":"hello again"}`)
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Persona.ID != "data_detective" {
		t.Fatalf("persona not kept for session: %q", out.Persona.ID)
	}
	if registry.Len() != 1 {
		t.Fatalf("registry has %d sessions, want 1", registry.Len())
	}
}

func TestHandleChatValidation(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t, testConfig(), time.Hour)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"empty message", `{"message":"   "}`, http.StatusBadRequest},
		{"bad json", `{"message":`, http.StatusBadRequest},
		{"too large", `{"message":"` + strings.Repeat("x", 2048) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		resp := postChat(t, srv.URL+"/api/chat", "tab-v", tt.body)
		if resp.StatusCode != tt.want {
			t.Fatalf("%s: status = %d, want %d", tt.name, resp.StatusCode, tt.want)
		}
		var body map[string]string
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body["error"] == "" {
			t.Fatalf("%s: expected JSON error body, got %v (%v)", tt.name, body, err)
		}
	}
}

func TestHandleChatRateLimited(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}
	srv, _, _ := newTestServer(t, cfg, time.Hour)

	if resp := postChat(t, srv.URL+"/api/chat", "tab-r", `{"message":"hello"}`); resp.StatusCode != http.StatusOK {
		t.Fatalf("first request status = %d", resp.StatusCode)
	}
	if resp := postChat(t, srv.URL+"/api/chat", "tab-r", `{"message":"hello"}`); resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", resp.StatusCode)
	}
	if resp := postChat(t, srv.URL+"/api/chat", "tab-other", `{"message":"hello"}`); resp.StatusCode != http.StatusOK {
		t.Fatalf("other session status = %d", resp.StatusCode)
	}
}

type sseEvent struct {
	name string
	data string
}

func readSSE(t *testing.T, resp *http.Response) []sseEvent {
	t.Helper()
	var events []sseEvent
	var cur sseEvent
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			cur.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			cur.data = strings.TrimPrefix(line, "data: ")
		case line == "":
			if cur.name != "" {
				events = append(events, cur)
			}
			cur = sseEvent{}
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("read stream: %v", err)
	}
	return events
}

func TestHandleChatStream(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t, testConfig(), time.Hour)

	resp := postChat(t, srv.URL+"/api/chat/stream", "tab-s", `{"message":"hello"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	events := readSSE(t, resp)
	if len(events) < 3 {
		t.Fatalf("got %d events", len(events))
	}
	if events[0].name != eventFireSeason {
		t.Fatalf("first event = %q, want fire_season", events[0].name)
	}
	var countdown struct {
		DaysRemaining int `json:"days_remaining"`
	}
	if err := json.Unmarshal([]byte(events[0].data), &countdown); err != nil || countdown.DaysRemaining != 31 {
		t.Fatalf("fire_season payload %s (%v)", events[0].data, err)
	}

	var narrative strings.Builder
	for _, ev := range events[1 : len(events)-1] {
		if ev.name != eventText {
			t.Fatalf("unexpected event %q mid-stream", ev.name)
		}
		var chunk TextChunk
		if err := json.Unmarshal([]byte(ev.data), &chunk); err != nil {
			t.Fatalf("decode chunk: %v", err)
		}
		if chunk.Done {
			t.Fatal("text chunk marked done")
		}
		narrative.WriteString(chunk.Chunk)
	}
	if narrative.String() != resolver.Help(31) {
		t.Fatalf("chunks do not reassemble the narrative: %q", narrative.String())
	}

	last := events[len(events)-1]
	if last.name != eventComplete {
		t.Fatalf("last event = %q, want complete", last.name)
	}
	var done Complete
	if err := json.Unmarshal([]byte(last.data), &done); err != nil {
		t.Fatalf("decode complete: %v", err)
	}
	if !done.Done || done.Agent != resolver.AgentHelp || done.Persona.ID != "safety_guardian" {
		t.Fatalf("unexpected complete event: %+v", done)
	}
	if len(done.Sources) != 1 || done.Sources[0] != "VIGIL System" {
		t.Fatalf("sources = %v", done.Sources)
	}
}

func TestHandleChatStreamRejectsBeforeStreaming(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t, testConfig(), time.Hour)

	resp := postChat(t, srv.URL+"/api/chat/stream", "tab-s2", `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestEventsChunking(t *testing.T) {
	t.Parallel()

	resp := domain.AgentResponse{Narrative: strings.Repeat("🔥", 25), AgentName: "Fire Risk Analyst"}
	var names []string
	for ev := range events(resp, 10) {
		names = append(names, ev.name)
	}
	want := []string{eventFireSeason, eventText, eventText, eventText, eventComplete}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("events = %v, want %v", names, want)
	}
}

func dialChat(t *testing.T, srv *httptest.Server, session string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
	header := http.Header{}
	header.Set(identity.SessionHeaderName, session)
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.CloseNow() })
	return conn
}

type testFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func readFrame(t *testing.T, conn *websocket.Conn) testFrame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var f testFrame
	if err := wsjson.Read(ctx, conn, &f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func TestWebSocketChat(t *testing.T) {
	t.Parallel()

	srv, h, _ := newTestServer(t, testConfig(), time.Hour)
	conn := dialChat(t, srv, "tab-ws")
	ctx := context.Background()

	if err := wsjson.Write(ctx, conn, map[string]string{"type": "ping"}); err != nil {
		t.Fatal(err)
	}
	if f := readFrame(t, conn); f.Type != "pong" {
		t.Fatalf("ping answered with %q", f.Type)
	}

	// Garbage is reported without dropping the connection.
	if err := conn.Write(ctx, websocket.MessageText, []byte("not json")); err != nil {
		t.Fatal(err)
	}
	if f := readFrame(t, conn); f.Type != eventError {
		t.Fatalf("garbage answered with %q", f.Type)
	}

	if err := wsjson.Write(ctx, conn, map[string]string{"type": "chat", "message": "hello"}); err != nil {
		t.Fatal(err)
	}
	if f := readFrame(t, conn); f.Type != eventFireSeason {
		t.Fatalf("first frame = %q", f.Type)
	}
	var narrative bytes.Buffer
	for {
		f := readFrame(t, conn)
		if f.Type == eventComplete {
			var done Complete
			if err := json.Unmarshal(f.Data, &done); err != nil || !done.Done {
				t.Fatalf("complete frame %s (%v)", f.Data, err)
			}
			break
		}
		if f.Type != eventText {
			t.Fatalf("unexpected frame %q", f.Type)
		}
		var chunk TextChunk
		if err := json.Unmarshal(f.Data, &chunk); err != nil {
			t.Fatal(err)
		}
		narrative.WriteString(chunk.Chunk)
	}
	if narrative.String() != resolver.Help(31) {
		t.Fatalf("websocket narrative mismatch: %q", narrative.String())
	}
	if h.conns.Get("tab-ws") == nil {
		t.Fatal("connection not registered for session")
	}
}

func TestSessionCleanupReleasesResources(t *testing.T) {
	t.Parallel()

	srv, h, registry := newTestServer(t, testConfig(), time.Millisecond)
	conn := dialChat(t, srv, "tab-exp")

	if err := wsjson.Write(context.Background(), conn, map[string]string{"message": "hello"}); err != nil {
		t.Fatal(err)
	}
	for readFrame(t, conn).Type != eventComplete {
	}
	if h.limiter.Len() != 1 || h.conns.Len() != 1 {
		t.Fatalf("limiter=%d conns=%d before sweep", h.limiter.Len(), h.conns.Len())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	closed := make(chan error, 1)
	go func() {
		_, _, err := conn.Read(ctx)
		closed <- err
	}()

	time.Sleep(5 * time.Millisecond)
	if expired := registry.Sweep(); len(expired) != 1 || expired[0] != "tab-exp" {
		t.Fatalf("expired = %v", expired)
	}
	if h.limiter.Len() != 0 {
		t.Fatalf("limiter still tracks %d sessions", h.limiter.Len())
	}
	if err := <-closed; websocket.CloseStatus(err) != websocket.StatusNormalClosure {
		t.Fatalf("expected normal closure after session expiry, got %v", err)
	}
}
