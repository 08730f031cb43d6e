package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"metaview/internal/extract"
	"metaview/internal/metadata"
	"metaview/internal/session"
)

// gatedExtractor blocks each extraction until the test releases it by name.
type gatedExtractor struct {
	mu       sync.Mutex
	gates    map[string]chan struct{}
	canceled map[string]bool
	calls    int
}

func newGated(names ...string) *gatedExtractor {
	g := &gatedExtractor{gates: map[string]chan struct{}{}, canceled: map[string]bool{}}
	for _, name := range names {
		g.gates[name] = make(chan struct{})
	}
	return g
}

func (g *gatedExtractor) release(name string) { close(g.gates[name]) }

func (g *gatedExtractor) wasCanceled(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.canceled[name]
}

// Extract ignores cancellation for the result so stale completions still
// reach the session, which must discard them on its own.
func (g *gatedExtractor) Extract(ctx context.Context, src metadata.Source) (extract.Result, bool) {
	g.mu.Lock()
	g.calls++
	gate := g.gates[src.Name]
	g.mu.Unlock()
	<-gate
	g.mu.Lock()
	g.canceled[src.Name] = ctx.Err() != nil
	g.mu.Unlock()
	return extract.Result{Metadata: metadata.Map{"FileName": metadata.String(src.Name)}}, true
}

func src(name string) metadata.Source {
	return metadata.Source{Name: name, Data: []byte{0xFF, 0xD8}}
}

func waitTicket(t *testing.T, ticket session.Ticket) {
	t.Helper()
	select {
	case <-ticket.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("ticket %d did not settle", ticket.Seq)
	}
}

func currentName(t *testing.T, s *session.Session) string {
	t.Helper()
	snap, ok := s.Current()
	if !ok {
		return ""
	}
	name, _ := snap.Result.Metadata["FileName"].AsString()
	return name
}

func TestLatestRequestWinsWhenOlderFinishesLast(t *testing.T) {
	ex := newGated("a.jpg", "b.jpg")
	s := session.New(ex)
	defer s.Close()

	ta, _ := s.Request(context.Background(), src("a.jpg"))
	tb, _ := s.Request(context.Background(), src("b.jpg"))

	ex.release("b.jpg")
	waitTicket(t, tb)
	if got := currentName(t, s); got != "b.jpg" {
		t.Fatalf("expected b.jpg committed, got %q", got)
	}

	ex.release("a.jpg")
	waitTicket(t, ta)
	if got := currentName(t, s); got != "b.jpg" {
		t.Fatalf("stale a.jpg overwrote the slot: %q", got)
	}
	if !ex.wasCanceled("a.jpg") {
		t.Fatal("expected superseded request context to be canceled")
	}
}

func TestLatestRequestWinsWhenOlderFinishesFirst(t *testing.T) {
	ex := newGated("a.jpg", "b.jpg")
	s := session.New(ex)
	defer s.Close()

	ta, _ := s.Request(context.Background(), src("a.jpg"))
	tb, _ := s.Request(context.Background(), src("b.jpg"))

	ex.release("a.jpg")
	waitTicket(t, ta)
	if _, ok := s.Current(); ok {
		t.Fatal("stale result must not be observable")
	}

	ex.release("b.jpg")
	waitTicket(t, tb)
	snap, ok := s.Current()
	if !ok || snap.Seq != tb.Seq || snap.RequestID != tb.RequestID || snap.Source != "b.jpg" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestEmptySourceIsNoop(t *testing.T) {
	ex := newGated("a.jpg")
	s := session.New(ex)
	defer s.Close()

	ta, _ := s.Request(context.Background(), src("a.jpg"))
	ex.release("a.jpg")
	waitTicket(t, ta)

	if _, ok := s.Request(context.Background(), metadata.Source{Name: "empty.jpg"}); ok {
		t.Fatal("expected empty source to be rejected")
	}
	if got := currentName(t, s); got != "a.jpg" {
		t.Fatalf("empty source disturbed the slot: %q", got)
	}
	if err := s.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if ex.calls != 1 {
		t.Fatalf("expected one extraction, got %d", ex.calls)
	}
}

func TestOnCommitSeesOnlyLatest(t *testing.T) {
	ex := newGated("a.jpg", "b.jpg")
	var mu sync.Mutex
	var seen []string
	s := session.New(ex, session.WithOnCommit(func(snap session.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, snap.Source)
	}))
	defer s.Close()

	ta, _ := s.Request(context.Background(), src("a.jpg"))
	tb, _ := s.Request(context.Background(), src("b.jpg"))
	ex.release("a.jpg")
	ex.release("b.jpg")
	waitTicket(t, ta)
	waitTicket(t, tb)

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 || seen[0] != "b.jpg" {
		t.Fatalf("expected only b.jpg to be observed, got %v", seen)
	}
}

func TestWaitFollowsNewerRequests(t *testing.T) {
	ex := newGated("a.jpg", "b.jpg")
	s := session.New(ex)
	defer s.Close()

	s.Request(context.Background(), src("a.jpg"))
	waitErr := make(chan error, 1)
	go func() { waitErr <- s.Wait(context.Background()) }()

	s.Request(context.Background(), src("b.jpg"))
	ex.release("a.jpg")
	ex.release("b.jpg")

	select {
	case err := <-waitErr:
		if err != nil {
			t.Fatalf("Wait: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return")
	}
	if got := currentName(t, s); got != "b.jpg" {
		t.Fatalf("expected b.jpg after Wait, got %q", got)
	}
}

func TestWaitHonoursContext(t *testing.T) {
	ex := newGated("slow.jpg")
	s := session.New(ex)
	s.Request(context.Background(), src("slow.jpg"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	ex.release("slow.jpg")
	s.Close()
}

func TestRequestIDsAreIssuedPerRequest(t *testing.T) {
	ex := newGated("a.jpg", "b.jpg")
	ex.release("a.jpg")
	ex.release("b.jpg")
	n := 0
	s := session.New(ex, session.WithRequestIDs(func() string {
		n++
		return fmt.Sprintf("req-%d", n)
	}))
	defer s.Close()

	ta, _ := s.Request(context.Background(), src("a.jpg"))
	waitTicket(t, ta)
	tb, _ := s.Request(context.Background(), src("b.jpg"))
	waitTicket(t, tb)

	if ta.RequestID != "req-1" || tb.RequestID != "req-2" || tb.Seq <= ta.Seq {
		t.Fatalf("unexpected tickets %+v %+v", ta, tb)
	}
	snap, _ := s.Current()
	if snap.RequestID != "req-2" {
		t.Fatalf("snapshot carries wrong request id %q", snap.RequestID)
	}
}

func TestDefaultRequestIDsAreUUIDs(t *testing.T) {
	ex := newGated("a.jpg")
	ex.release("a.jpg")
	s := session.New(ex)
	defer s.Close()
	ticket, ok := s.Request(context.Background(), src("a.jpg"))
	if !ok || len(ticket.RequestID) != 36 {
		t.Fatalf("expected uuid request id, got %q", ticket.RequestID)
	}
	waitTicket(t, ticket)
}

// blockingExtractor waits for its context and reports the cancellation the
// way extract.Extractor does.
type blockingExtractor struct {
	started chan struct{}
}

func (b *blockingExtractor) Extract(ctx context.Context, src metadata.Source) (extract.Result, bool) {
	close(b.started)
	<-ctx.Done()
	return extract.Result{Err: fmt.Errorf("%w: %s: %w", extract.ErrDecode, src.Name, ctx.Err())}, true
}

func TestCanceledLatestRequestIsNotCommitted(t *testing.T) {
	cases := []struct {
		name string
		stop func(cancel context.CancelFunc, s *session.Session)
	}{
		{"parent canceled", func(cancel context.CancelFunc, s *session.Session) { cancel(); s.Close() }},
		{"session closed", func(cancel context.CancelFunc, s *session.Session) { s.Close(); cancel() }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ex := &blockingExtractor{started: make(chan struct{})}
			commits := 0
			s := session.New(ex, session.WithOnCommit(func(session.Snapshot) { commits++ }))

			parent, cancel := context.WithCancel(context.Background())
			ticket, ok := s.Request(parent, src("slow.jpg"))
			if !ok {
				t.Fatal("expected a ticket")
			}
			<-ex.started
			tc.stop(cancel, s)
			waitTicket(t, ticket)

			if snap, has := s.Current(); has {
				t.Fatalf("canceled request committed %+v", snap)
			}
			if commits != 0 {
				t.Fatalf("onCommit fired %d times", commits)
			}
		})
	}
}

func TestSessionCommitsAfterCanceledRequest(t *testing.T) {
	ex := newGated("next.jpg")
	ex.release("next.jpg")
	s := session.New(ex)
	defer s.Close()

	parent, cancel := context.WithCancel(context.Background())
	cancel()
	first, _ := s.Request(parent, src("next.jpg"))
	waitTicket(t, first)
	if _, has := s.Current(); has {
		t.Fatal("request issued on a canceled context committed")
	}

	second, _ := s.Request(context.Background(), src("next.jpg"))
	waitTicket(t, second)
	if got := currentName(t, s); got != "next.jpg" {
		t.Fatalf("expected next.jpg committed, got %q", got)
	}
}
