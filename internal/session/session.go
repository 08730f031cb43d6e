package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"metaview/internal/extract"
	"metaview/internal/logging"
	"metaview/internal/metadata"
)

// Extractor is the capability a Session drives.
type Extractor interface {
	Extract(ctx context.Context, src metadata.Source) (extract.Result, bool)
}

// Snapshot is the committed outcome of the most recent request.
type Snapshot struct {
	Seq         uint64
	RequestID   string
	Source      string
	SourceSize  int64
	Result      extract.Result
	CompletedAt time.Time
}

// Ticket identifies an issued request.
type Ticket struct {
	Seq       uint64
	RequestID string
	done      chan struct{}
}

// Done is closed once the request has either committed or been discarded.
func (t Ticket) Done() <-chan struct{} {
	return t.done
}

// Option configures a Session.
type Option func(*Session)

// WithOnCommit registers fn to observe every committed snapshot. It runs
// outside the session lock, in commit order.
func WithOnCommit(fn func(Snapshot)) Option {
	return func(s *Session) { s.onCommit = fn }
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logging.NewComponentLogger(logger, "session") }
}

// WithRequestIDs overrides request id generation.
func WithRequestIDs(next func() string) Option {
	return func(s *Session) { s.newID = next }
}

// Session holds the current-result slot. Only the result of the most
// recently issued request is ever committed; superseded requests are
// canceled and their completions discarded.
type Session struct {
	ex       Extractor
	logger   *slog.Logger
	onCommit func(Snapshot)
	newID    func() string
	now      func() time.Time

	mu      sync.Mutex
	seq     uint64
	cancel  context.CancelFunc
	latest  Ticket
	current Snapshot
	has     bool

	notifyMu     sync.Mutex
	lastNotified uint64

	wg sync.WaitGroup
}

// New builds a Session around ex.
func New(ex Extractor, opts ...Option) *Session {
	s := &Session{
		ex:     ex,
		logger: logging.NewComponentLogger(nil, "session"),
		newID:  uuid.NewString,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request starts extraction of src and makes it the latest request. An
// empty source is a no-op: no ticket is issued and the slot is untouched.
func (s *Session) Request(ctx context.Context, src metadata.Source) (Ticket, bool) {
	if src.Empty() {
		return Ticket{}, false
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	ticket := Ticket{Seq: s.seq, RequestID: s.newID(), done: make(chan struct{})}
	reqCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.latest = ticket
	s.mu.Unlock()

	reqCtx, logger := logging.WithRequestID(reqCtx, s.logger, ticket.RequestID)
	logger.Debug("request issued", logging.Int64("seq", int64(ticket.Seq)), logging.String(logging.FieldSource, src.Name))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(ticket.done)
		defer cancel()
		res, _ := s.ex.Extract(reqCtx, src)
		if reqCtx.Err() != nil || errors.Is(res.Err, context.Canceled) {
			s.discardCanceled(ticket, logger)
			return
		}
		s.commit(ticket, src, res, logger)
	}()
	return ticket, true
}

// discardCanceled drops the result of a request whose context ended before
// it settled, so shutdown never commits a failure snapshot.
func (s *Session) discardCanceled(ticket Ticket, logger *slog.Logger) {
	s.mu.Lock()
	if ticket.Seq == s.seq {
		s.cancel = nil
	}
	s.mu.Unlock()
	logger.Debug("canceled result discarded", logging.Int64("seq", int64(ticket.Seq)))
}

func (s *Session) commit(ticket Ticket, src metadata.Source, res extract.Result, logger *slog.Logger) {
	s.mu.Lock()
	if ticket.Seq != s.seq {
		latest := s.seq
		s.mu.Unlock()
		logger.Debug("stale result discarded", logging.Int64("seq", int64(ticket.Seq)), logging.Int64("latest", int64(latest)))
		return
	}
	snap := Snapshot{
		Seq:         ticket.Seq,
		RequestID:   ticket.RequestID,
		Source:      src.Name,
		SourceSize:  int64(len(src.Data)),
		Result:      res,
		CompletedAt: s.now(),
	}
	s.current = snap
	s.has = true
	s.cancel = nil
	s.mu.Unlock()

	if s.onCommit == nil {
		return
	}
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if snap.Seq <= s.lastNotified {
		return
	}
	s.lastNotified = snap.Seq
	s.onCommit(snap)
}

// Current returns the committed snapshot, if any.
func (s *Session) Current() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.has
}

// Wait blocks until the latest request has settled, following any request
// issued while waiting.
func (s *Session) Wait(ctx context.Context) error {
	for {
		s.mu.Lock()
		latest := s.latest
		s.mu.Unlock()
		if latest.done == nil {
			return nil
		}
		select {
		case <-latest.done:
		case <-ctx.Done():
			return ctx.Err()
		}
		s.mu.Lock()
		settled := s.latest.Seq == latest.Seq
		s.mu.Unlock()
		if settled {
			return nil
		}
	}
}

// Close cancels any in-flight request and waits for workers to exit.
func (s *Session) Close() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
	s.wg.Wait()
}
