package history_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/recall/pkg/adapter"
	"github.com/m-mizutani/recall/pkg/history"
	"github.com/m-mizutani/recall/pkg/model"
)

func newTestLog(t *testing.T) *history.Log {
	storage, err := adapter.NewFileStorage(t.TempDir())
	gt.NoError(t, err)

	log, err := history.New(context.Background(), storage, "test-session")
	gt.NoError(t, err)
	return log
}

func TestRecentReturnsLastNOldestFirst(t *testing.T) {
	ctx := context.Background()
	log := newTestLog(t)

	for i := 0; i < 5; i++ {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		gt.NoError(t, log.Append(ctx, role, fmt.Sprintf("turn %d", i)))
	}

	turns, err := log.Recent(ctx, 2)
	gt.NoError(t, err)
	gt.A(t, turns).Length(2)
	gt.Equal(t, turns[0].Text, "turn 3")
	gt.Equal(t, turns[1].Text, "turn 4")
	gt.True(t, !turns[0].Timestamp.After(turns[1].Timestamp))
}

func TestRecentClampAndZero(t *testing.T) {
	ctx := context.Background()
	log := newTestLog(t)

	gt.NoError(t, log.Append(ctx, model.RoleUser, "only turn"))

	turns, err := log.Recent(ctx, 10)
	gt.NoError(t, err)
	gt.A(t, turns).Length(1)

	turns, err = log.Recent(ctx, 0)
	gt.NoError(t, err)
	gt.A(t, turns).Length(0)

	turns, err = log.Recent(ctx, -1)
	gt.NoError(t, err)
	gt.A(t, turns).Length(0)
}

func TestAppendRejectsUnknownRole(t *testing.T) {
	ctx := context.Background()
	log := newTestLog(t)

	err := log.Append(ctx, model.TurnRole("system"), "not allowed")
	gt.Error(t, err)
	gt.Equal(t, log.Size(), 0)
}

func TestClearIdempotent(t *testing.T) {
	ctx := context.Background()
	log := newTestLog(t)

	gt.NoError(t, log.Append(ctx, model.RoleUser, "hello"))
	gt.NoError(t, log.Clear(ctx))
	gt.NoError(t, log.Clear(ctx))

	turns, err := log.Recent(ctx, 10)
	gt.NoError(t, err)
	gt.A(t, turns).Length(0)
}

func TestDurabilityAcrossReopen(t *testing.T) {
	ctx := context.Background()
	storage, err := adapter.NewFileStorage(t.TempDir())
	gt.NoError(t, err)

	log, err := history.New(ctx, storage, "durable-session")
	gt.NoError(t, err)
	gt.NoError(t, log.Append(ctx, model.RoleUser, "remember me"))
	gt.NoError(t, log.Append(ctx, model.RoleAssistant, "noted"))

	reopened, err := history.New(ctx, storage, "durable-session")
	gt.NoError(t, err)
	gt.Equal(t, reopened.Size(), 2)

	turns, err := reopened.Recent(ctx, 2)
	gt.NoError(t, err)
	gt.Equal(t, turns[0].Role, model.RoleUser)
	gt.Equal(t, turns[0].Text, "remember me")
	gt.Equal(t, turns[1].Role, model.RoleAssistant)
	gt.Equal(t, turns[1].Text, "noted")
}

func TestSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	storage, err := adapter.NewFileStorage(t.TempDir())
	gt.NoError(t, err)

	logA, err := history.New(ctx, storage, "session-a")
	gt.NoError(t, err)
	logB, err := history.New(ctx, storage, "session-b")
	gt.NoError(t, err)

	gt.NoError(t, logA.Append(ctx, model.RoleUser, "for a"))
	gt.Equal(t, logB.Size(), 0)
}
