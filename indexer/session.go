package indexer

import (
	"sync"

	"github.com/usemiddleman/middleman/types"
)

// Session guards one result slot (e.g. "tokens of the current peer") against
// late answers for a target the caller has since moved away from.
type Session struct {
	mu         sync.Mutex
	generation uint64
	target     string
}

func NewSession() *Session {
	return &Session{}
}

// Ticket captures the session identity at the time a fetch started.
type Ticket struct {
	session    *Session
	generation uint64
	target     string
}

// Begin supersedes every earlier ticket of this session.
func (s *Session) Begin(target string) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.target = target
	return Ticket{session: s, generation: s.generation, target: target}
}

// Current returns the target of the newest ticket.
func (s *Session) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

func (t Ticket) Target() string {
	return t.target
}

func (t Ticket) Valid() bool {
	if t.session == nil {
		return false
	}
	t.session.mu.Lock()
	defer t.session.mu.Unlock()
	return t.session.generation == t.generation
}

// Commit runs apply only while the ticket is still current. No Begin can
// interleave with apply.
func (t Ticket) Commit(apply func()) error {
	if t.session == nil {
		return types.ErrStaleSession
	}
	t.session.mu.Lock()
	defer t.session.mu.Unlock()
	if t.session.generation != t.generation {
		return types.ErrStaleSession
	}
	apply()
	return nil
}

// Guard runs fetch and drops its result if t was superseded meanwhile.
func Guard[R any](t Ticket, fetch func() (R, error)) (R, error) {
	res, err := fetch()
	if !t.Valid() {
		var zero R
		return zero, types.ErrStaleSession
	}
	return res, err
}
