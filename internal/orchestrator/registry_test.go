package orchestrator

import (
	"context"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"pgregory.net/rapid"

	"github.com/ashureev/vigil/internal/domain"
	"github.com/ashureev/vigil/internal/reports"
)

func TestChunksReassemble(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.String().Draw(t, "narrative")
		size := rapid.IntRange(-1, 300).Draw(t, "size")

		chunks := slices.Collect(Chunks(s, size))
		if got := strings.Join(chunks, ""); got != s {
			t.Fatalf("reassembled %q, want %q", got, s)
		}

		limit := size
		if limit <= 0 {
			limit = DefaultChunkSize
		}
		for i, c := range chunks {
			n := utf8.RuneCountInString(c)
			if n == 0 || n > limit {
				t.Fatalf("chunk %d has %d runes (limit %d)", i, n, limit)
			}
			if i < len(chunks)-1 && n != limit {
				t.Fatalf("inner chunk %d has %d runes, want %d", i, n, limit)
			}
		}
	})
}

func TestChunksRuneBoundaries(t *testing.T) {
	got := slices.Collect(Chunks("🔥🔥🔥", 2))
	if len(got) != 2 || got[0] != "🔥🔥" || got[1] != "🔥" {
		t.Fatalf("Chunks = %q", got)
	}
	if got := slices.Collect(Chunks("", 10)); len(got) != 0 {
		t.Fatalf("empty narrative yielded %q", got)
	}
}

func TestChunksEarlyStop(t *testing.T) {
	n := 0
	for range Chunks(strings.Repeat("a", 1000), 10) {
		n++
		if n == 3 {
			break
		}
	}
	if n != 3 {
		t.Fatalf("iterated %d chunks", n)
	}
}

func newTestRegistry(t *testing.T, ttl time.Duration) (*Registry, *time.Time) {
	t.Helper()
	personas, err := domain.LoadPersonas()
	if err != nil {
		t.Fatal(err)
	}
	factory := func() *Orchestrator {
		return New(Deps{Suite: reports.NewSuite(&fakePort{}, nil), Resolver: &fakeResolver{}, Personas: personas})
	}
	r := NewRegistry(factory, ttl, nil)
	now := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }
	return r, &now
}

func TestRegistryGetReusesSession(t *testing.T) {
	r, _ := newTestRegistry(t, time.Hour)

	a := r.Get("s1")
	if r.Get("s1") != a {
		t.Fatal("same session returned a different orchestrator")
	}
	if r.Get("s2") == a {
		t.Fatal("different sessions share an orchestrator")
	}
	if r.Len() != 2 {
		t.Fatalf("Len = %d, want 2", r.Len())
	}
}

func TestRegistrySweep(t *testing.T) {
	r, now := newTestRegistry(t, time.Hour)

	var mu sync.Mutex
	var cleaned []string
	r.OnCleanup(func(id string) {
		mu.Lock()
		cleaned = append(cleaned, id)
		mu.Unlock()
	})

	r.Get("idle")
	*now = now.Add(45 * time.Minute)
	r.Get("active")
	*now = now.Add(30 * time.Minute)

	expired := r.Sweep()
	if len(expired) != 1 || expired[0] != "idle" {
		t.Fatalf("expired = %v, want [idle]", expired)
	}
	if len(cleaned) != 1 || cleaned[0] != "idle" {
		t.Fatalf("cleanup callback saw %v", cleaned)
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}

	// A touched session stays alive.
	r.Get("active")
	*now = now.Add(59 * time.Minute)
	if got := r.Sweep(); len(got) != 0 {
		t.Fatalf("unexpected eviction %v", got)
	}
}

func TestTTLWorkerStops(t *testing.T) {
	r, _ := newTestRegistry(t, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := r.StartTTLWorker(ctx, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("TTL worker did not stop")
	}
}
