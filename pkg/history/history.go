package history

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/recall/pkg/adapter"
	"github.com/m-mizutani/recall/pkg/model"
)

// Log is an append-only, durable conversation log. Turns are kept in
// memory for reads and the full sequence is written through to storage
// on every mutation, so an Append completed before a process restart is
// visible after it. The log is a convenience store for prompt assembly,
// not a system of record: losing the underlying storage loses the
// conversation, nothing else.
type Log struct {
	mu      sync.Mutex
	storage adapter.Storage
	key     string
	turns   []model.HistoryTurn
}

// Key returns the storage key for a session's history blob
func Key(session model.SessionID) string {
	return "histories/" + string(session) + ".json"
}

// New opens the history log for a session, loading any previously
// persisted turns
func New(ctx context.Context, storage adapter.Storage, session model.SessionID) (*Log, error) {
	if session == "" {
		return nil, goerr.New("session ID is required")
	}

	log := &Log{
		storage: storage,
		key:     Key(session),
	}

	if err := log.load(ctx); err != nil {
		return nil, err
	}

	return log, nil
}

// Append adds one turn stamped with the current time. The turn is
// durable when Append returns.
func (l *Log) Append(ctx context.Context, role model.TurnRole, text string) error {
	if err := role.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.turns = append(l.turns, model.HistoryTurn{
		Role:      role,
		Text:      text,
		Timestamp: time.Now().UTC(),
	})

	if err := l.persist(ctx); err != nil {
		l.turns = l.turns[:len(l.turns)-1]
		return err
	}
	return nil
}

// Recent returns the last min(n, total) turns, oldest first. n <= 0
// returns an empty sequence.
func (l *Log) Recent(ctx context.Context, n int) ([]model.HistoryTurn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 || len(l.turns) == 0 {
		return nil, nil
	}

	if n > len(l.turns) {
		n = len(l.turns)
	}

	recent := make([]model.HistoryTurn, n)
	copy(recent, l.turns[len(l.turns)-n:])
	return recent, nil
}

// Clear empties the log. Idempotent.
func (l *Log) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := l.turns
	l.turns = nil
	if err := l.persist(ctx); err != nil {
		l.turns = prev
		return err
	}
	return nil
}

// Size returns the current number of turns
func (l *Log) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.turns)
}

// persist writes the full turn sequence through to storage. Caller holds
// the lock.
func (l *Log) persist(ctx context.Context) error {
	w, err := l.storage.Put(ctx, l.key)
	if err != nil {
		return goerr.Wrap(model.ErrPersistence, "failed to open history blob", goerr.V("cause", err))
	}

	if err := json.NewEncoder(w).Encode(l.turns); err != nil {
		w.Close()
		return goerr.Wrap(model.ErrPersistence, "failed to encode history", goerr.V("cause", err))
	}

	if err := w.Close(); err != nil {
		return goerr.Wrap(model.ErrPersistence, "failed to write history", goerr.V("cause", err))
	}
	return nil
}

func (l *Log) load(ctx context.Context) error {
	r, err := l.storage.Get(ctx, l.key)
	if err != nil {
		if errors.Is(err, adapter.ErrNotFound) {
			return nil
		}
		return goerr.Wrap(model.ErrPersistence, "failed to open history blob", goerr.V("cause", err))
	}
	defer r.Close()

	var turns []model.HistoryTurn
	if err := json.NewDecoder(r).Decode(&turns); err != nil {
		return goerr.Wrap(model.ErrPersistence, "failed to decode history", goerr.V("cause", err))
	}

	l.turns = turns
	return nil
}
