package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	contractx "github.com/chatwright/chatwright/agent/contract"
)

type fakePersister struct {
	mu      sync.Mutex
	loaded  *Session
	loadErr error
	saveErr error
	saved   []*Session
	deleted []string
}

func (f *fakePersister) Load(ctx context.Context, sessionID string) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if f.loaded == nil {
		return nil, ErrSessionNotFound
	}
	return f.loaded.clone(), nil
}

func (f *fakePersister) Save(ctx context.Context, sess *Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, sess.clone())
	return nil
}

func (f *fakePersister) Delete(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, sessionID)
	return nil
}

func message(id string, role contractx.Role, content string) contractx.Message {
	return contractx.Message{ID: id, Role: role, Content: content, Timestamp: time.Now().UTC()}
}

func TestCommitAppendsInOrder(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		turn, err := store.Begin(ctx, "s1", contractx.DomainEcommerce)
		if err != nil {
			t.Fatalf("Begin() error = %v", err)
		}
		user := message(fmt.Sprintf("u%d", i), contractx.RoleUser, fmt.Sprintf("question %d", i))
		assistant := message(fmt.Sprintf("a%d", i), contractx.RoleAssistant, fmt.Sprintf("answer %d", i))
		if err := store.Commit(ctx, turn, user, assistant, nil, nil); err != nil {
			t.Fatalf("Commit() error = %v", err)
		}
		turn.End()
	}

	history := store.History("s1")
	if len(history) != 6 {
		t.Fatalf("expected 6 messages, got %d", len(history))
	}
	want := []string{"u0", "a0", "u1", "a1", "u2", "a2"}
	for i, id := range want {
		if history[i].ID != id {
			t.Fatalf("history[%d].ID = %q, want %q", i, history[i].ID, id)
		}
	}
}

func TestCommitMergesIntentAndContext(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx := context.Background()

	turn, err := store.Begin(ctx, "s1", contractx.DomainHotel)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	intent := contractx.UserIntent{ConversationType: contractx.ConversationProductDiscovery, Confidence: 0.9}
	entities := map[string]any{"check_in": "2026-09-01"}
	if err := store.Commit(ctx, turn, message("u1", contractx.RoleUser, "hi"),
		message("a1", contractx.RoleAssistant, "hello"), &intent, entities); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	turn.End()

	got, ok := store.Intent("s1")
	if !ok || got.ConversationType != contractx.ConversationProductDiscovery {
		t.Fatalf("Intent() = %+v, %v", got, ok)
	}

	next, err := store.Begin(ctx, "s1", contractx.DomainHotel)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	defer next.End()
	if next.Context["check_in"] != "2026-09-01" {
		t.Fatalf("context not carried over: %+v", next.Context)
	}
}

func TestSameSessionTurnsSerialize(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx := context.Background()

	first, err := store.Begin(ctx, "s1", contractx.DomainGeneric)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	started := make(chan struct{})
	acquired := make(chan struct{})
	go func() {
		close(started)
		second, err := store.Begin(ctx, "s1", contractx.DomainGeneric)
		if err != nil {
			t.Error("second Begin() error:", err)
			return
		}
		close(acquired)
		second.End()
	}()

	<-started
	select {
	case <-acquired:
		t.Fatal("second turn acquired the gate while the first was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	first.End()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second turn never acquired the gate")
	}
}

func TestDistinctSessionsRunInParallel(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx := context.Background()

	first, err := store.Begin(ctx, "s1", contractx.DomainGeneric)
	if err != nil {
		t.Fatalf("Begin(s1) error = %v", err)
	}
	defer first.End()

	ctx2, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	second, err := store.Begin(ctx2, "s2", contractx.DomainGeneric)
	if err != nil {
		t.Fatalf("Begin(s2) blocked behind s1: %v", err)
	}
	second.End()
}

func TestBeginHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx := context.Background()

	first, err := store.Begin(ctx, "s1", contractx.DomainGeneric)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	defer first.End()

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := store.Begin(waitCtx, "s1", contractx.DomainGeneric); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestClearMidTurnDiscardsCommit(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx := context.Background()

	turn, err := store.Begin(ctx, "s1", contractx.DomainGeneric)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	if err := store.Clear(ctx, "s1"); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	err = store.Commit(ctx, turn, message("u1", contractx.RoleUser, "hi"),
		message("a1", contractx.RoleAssistant, "hello"), nil, nil)
	if err != nil {
		t.Fatalf("stale commit should be a silent no-op, got %v", err)
	}
	turn.End()

	if history := store.History("s1"); len(history) != 0 {
		t.Fatalf("cleared session has %d messages", len(history))
	}
}

func TestCommitAfterEndFails(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx := context.Background()

	turn, err := store.Begin(ctx, "s1", contractx.DomainGeneric)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	turn.End()

	err = store.Commit(ctx, turn, message("u1", contractx.RoleUser, "hi"),
		message("a1", contractx.RoleAssistant, "hello"), nil, nil)
	if !errors.Is(err, ErrTurnFinished) {
		t.Fatalf("expected ErrTurnFinished, got %v", err)
	}
}

func TestPersistFailureCommitsNothing(t *testing.T) {
	t.Parallel()

	persist := &fakePersister{saveErr: errors.New("redis down")}
	store := NewStore(WithPersister(persist))
	ctx := context.Background()

	turn, err := store.Begin(ctx, "s1", contractx.DomainGeneric)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	defer turn.End()

	err = store.Commit(ctx, turn, message("u1", contractx.RoleUser, "hi"),
		message("a1", contractx.RoleAssistant, "hello"), nil, nil)
	if !errors.Is(err, contractx.ErrStoreWrite) {
		t.Fatalf("expected ErrStoreWrite, got %v", err)
	}
	if history := store.History("s1"); len(history) != 0 {
		t.Fatalf("failed commit must publish nothing, got %d messages", len(history))
	}
}

func TestBeginHydratesFromPersister(t *testing.T) {
	t.Parallel()

	loaded := newSession("s1", contractx.DomainEcommerce, time.Now())
	loaded.State.Messages = []contractx.Message{message("u0", contractx.RoleUser, "earlier")}
	persist := &fakePersister{loaded: loaded}
	store := NewStore(WithPersister(persist))

	turn, err := store.Begin(context.Background(), "s1", contractx.DomainEcommerce)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	defer turn.End()

	if len(turn.Messages) != 1 || turn.Messages[0].ID != "u0" {
		t.Fatalf("expected hydrated history, got %+v", turn.Messages)
	}
}

func TestCommitErrorAppendsExchange(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx := context.Background()

	turn, err := store.Begin(ctx, "s1", contractx.DomainGeneric)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	store.CommitError(ctx, turn, message("u1", contractx.RoleUser, "hi"),
		message("a1", contractx.RoleAssistant, "sorry"))
	turn.End()

	history := store.History("s1")
	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history))
	}
	if history[0].ID != "u1" || history[1].ID != "a1" {
		t.Fatalf("unexpected history order: %+v", history)
	}
}

func TestWindowReturnsLastK(t *testing.T) {
	t.Parallel()

	var messages []contractx.Message
	for i := 0; i < 8; i++ {
		messages = append(messages, message(fmt.Sprintf("m%d", i), contractx.RoleUser, "x"))
	}

	window := Window(messages, 5)
	if len(window) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(window))
	}
	if window[0].ID != "m3" || window[4].ID != "m7" {
		t.Fatalf("wrong window bounds: %s..%s", window[0].ID, window[4].ID)
	}

	if got := Window(messages[:2], 5); len(got) != 2 {
		t.Fatalf("short history should come back whole, got %d", len(got))
	}
	if got := Window(nil, 5); got != nil {
		t.Fatalf("nil history should yield nil, got %+v", got)
	}
}
