package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/chatwright/chatwright/agent/contract"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidSession  = errors.New("session id is empty")
	ErrTurnFinished    = errors.New("turn already finished")
)

// Persister is an optional durable backend behind the in-memory store.
// Unknown sessions are hydrated from it on first Begin and committed
// snapshots are written back through it.
type Persister interface {
	Load(ctx context.Context, sessionID string) (*Session, error)
	Save(ctx context.Context, sess *Session) error
	Delete(ctx context.Context, sessionID string) error
}

// Store keeps session-keyed conversation state. Each session has a
// capacity-one gate serializing turns: a second message for the same session
// queues behind the first instead of running against stale state. Turns on
// distinct sessions proceed fully in parallel.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*sessionSlot
	persist  Persister
	now      func() time.Time
}

type sessionSlot struct {
	gate  chan struct{}
	sess  *Session
	epoch uint64
}

type StoreOption func(*Store)

func WithPersister(p Persister) StoreOption {
	return func(s *Store) { s.persist = p }
}

func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		sessions: make(map[string]*sessionSlot),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Turn is the handle for one in-flight turn. It carries an immutable snapshot
// of the state taken at Begin; the live session is only touched again at
// Commit. The caller must End the turn exactly once (Commit does not End).
type Turn struct {
	SessionID string
	Domain    contractx.Domain
	Messages  []contractx.Message
	Context   map[string]any

	store *Store
	slot  *sessionSlot
	epoch uint64
	ended bool
	endMu sync.Mutex
}

// Begin blocks until the session's turn gate is free (or ctx is done) and
// returns a turn handle holding a read-only snapshot. The session is created
// on first use.
func (s *Store) Begin(ctx context.Context, sessionID string, domain contractx.Domain) (*Turn, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}

	s.mu.Lock()
	sl, ok := s.sessions[sessionID]
	if !ok {
		sl = &sessionSlot{gate: make(chan struct{}, 1)}
		s.sessions[sessionID] = sl
	}
	s.mu.Unlock()

	select {
	case sl.gate <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if err := s.hydrate(ctx, sl, sessionID, domain); err != nil {
		<-sl.gate
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return &Turn{
		SessionID: sessionID,
		Domain:    sl.sess.Domain,
		Messages:  append([]contractx.Message(nil), sl.sess.State.Messages...),
		Context:   cloneMap(sl.sess.State.Context),
		store:     s,
		slot:      sl,
		epoch:     sl.epoch,
	}, nil
}

// hydrate fills the slot's session, loading from the persister when one is
// configured. The caller holds the slot gate.
func (s *Store) hydrate(ctx context.Context, sl *sessionSlot, sessionID string, domain contractx.Domain) error {
	s.mu.Lock()
	existing := sl.sess
	s.mu.Unlock()
	if existing != nil {
		return nil
	}

	sess := newSession(sessionID, domain, s.now())
	if s.persist != nil {
		loaded, err := s.persist.Load(ctx, sessionID)
		switch {
		case err == nil:
			sess = loaded
		case errors.Is(err, ErrSessionNotFound):
			// first message for this session
		default:
			return err
		}
	}

	s.mu.Lock()
	sl.sess = sess
	s.mu.Unlock()
	return nil
}

// End releases the session's turn gate. Safe to call more than once.
func (t *Turn) End() {
	t.endMu.Lock()
	defer t.endMu.Unlock()
	if t.ended {
		return
	}
	t.ended = true
	<-t.slot.gate
}

// Commit atomically appends the user message, merges the extracted entities
// into the accumulated context, records the turn's intent, and appends the
// assistant message. A session cleared mid-turn makes the commit a silent
// no-op: the in-flight result is discarded, nothing is written back.
func (s *Store) Commit(ctx context.Context, t *Turn, user, assistant contractx.Message, intent *contractx.UserIntent, entities map[string]any) error {
	if t == nil || t.store != s {
		return fmt.Errorf("%w: foreign turn handle", contractx.ErrStoreWrite)
	}
	t.endMu.Lock()
	ended := t.ended
	t.endMu.Unlock()
	if ended {
		return ErrTurnFinished
	}

	s.mu.Lock()
	stale := t.slot.epoch != t.epoch || t.slot.sess == nil
	var updated *Session
	if !stale {
		updated = t.slot.sess.clone()
	}
	s.mu.Unlock()

	if stale {
		log.Debug().Str("session_id", t.SessionID).Msg("session cleared mid-turn, commit discarded")
		return nil
	}

	now := s.now().UTC()
	updated.State.Messages = append(updated.State.Messages, user)
	if intent != nil {
		in := *intent
		updated.State.LastIntent = &in
	}
	if len(entities) > 0 {
		if updated.State.Context == nil {
			updated.State.Context = make(map[string]any, len(entities))
		}
		for k, v := range entities {
			updated.State.Context[k] = v
		}
	}
	updated.State.Messages = append(updated.State.Messages, assistant)
	updated.LastActiveAt = now

	// Persist before publishing so a write failure commits nothing.
	if s.persist != nil {
		if err := s.persist.Save(ctx, updated); err != nil {
			return fmt.Errorf("%w: %v", contractx.ErrStoreWrite, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t.slot.epoch != t.epoch {
		return nil
	}
	t.slot.sess = updated
	return nil
}

// CommitError appends the user message and a minimal error assistant message
// so history reflects what was said even when the pipeline failed. No intent
// or context updates are committed; persistence is best effort.
func (s *Store) CommitError(ctx context.Context, t *Turn, user, assistant contractx.Message) {
	if t == nil || t.store != s {
		return
	}

	s.mu.Lock()
	if t.slot.epoch != t.epoch || t.slot.sess == nil {
		s.mu.Unlock()
		return
	}
	sess := t.slot.sess
	sess.State.Messages = append(sess.State.Messages, user, assistant)
	sess.LastActiveAt = s.now().UTC()
	snapshot := sess.clone()
	s.mu.Unlock()

	if s.persist != nil {
		if err := s.persist.Save(ctx, snapshot); err != nil {
			log.Warn().Err(err).Str("session_id", t.SessionID).Msg("persist failed on error commit")
		}
	}
}

// History returns the session's messages in exact append order, or nil for an
// unknown session.
func (s *Store) History(sessionID string) []contractx.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.sessions[sessionID]
	if !ok || sl.sess == nil {
		return nil
	}
	return append([]contractx.Message(nil), sl.sess.State.Messages...)
}

// Intent returns the latest committed intent for a session, if any.
func (s *Store) Intent(sessionID string) (contractx.UserIntent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.sessions[sessionID]
	if !ok || sl.sess == nil || sl.sess.State.LastIntent == nil {
		return contractx.UserIntent{}, false
	}
	return *sl.sess.State.LastIntent, true
}

// Clear destroys the session state immediately. It does not wait for an
// in-flight turn: the epoch bump makes that turn's eventual commit a no-op.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	sl, ok := s.sessions[sessionID]
	if ok {
		sl.epoch++
		sl.sess = nil
	}
	s.mu.Unlock()

	if s.persist != nil {
		if err := s.persist.Delete(ctx, sessionID); err != nil {
			return err
		}
	}
	return nil
}
