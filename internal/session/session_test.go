package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/opsmemory/internal/docstore"
	"github.com/roach88/opsmemory/internal/docstore/memstore"
	"github.com/roach88/opsmemory/internal/entity"
	"github.com/roach88/opsmemory/internal/repo"
	"github.com/roach88/opsmemory/internal/schema"
	"github.com/roach88/opsmemory/internal/testutil"
)

type fixture struct {
	orch  *Orchestrator
	repo  *repo.Repository
	store *testutil.FaultStore
	clock *testutil.StepClock
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := testutil.NewFaultStore(memstore.New(
		memstore.WithIDGenerator(docstore.NewSequenceGenerator("id")),
	))
	_, err := schema.NewManager(store, logger).Declare(context.Background(), false)
	require.NoError(t, err)

	clock := testutil.NewStepClock(testutil.Epoch, time.Second)
	r := repo.New(store, repo.WithClock(clock), repo.WithLogger(logger))
	return fixture{orch: New(r, logger), repo: r, store: store, clock: clock}
}

func TestGapDays(t *testing.T) {
	base := time.Date(2026, 1, 14, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		later time.Time
		want  int
	}{
		{"same instant", base, 0},
		{"three days", base.Add(72 * time.Hour), 3},
		{"just under two days", base.Add(47*time.Hour + 59*time.Minute), 1},
		{"one hour earlier", base.Add(-time.Hour), -1},
		{"exactly two days earlier", base.Add(-48 * time.Hour), -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GapDays(tt.later, base))
		})
	}
}

func TestBeginSession_FirstSessionHasNoLink(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	s, err := f.orch.BeginSession(ctx, BeginParams{SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, DefaultMode, s.Mode)
	assert.Empty(t, f.repo.Relationships(ctx, entity.SessionFollowed))
}

func TestBeginSession_ChainGapDays(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	start := time.Date(2026, 1, 14, 9, 0, 0, 0, time.UTC)

	s1, err := f.orch.BeginSession(ctx, BeginParams{SessionID: "s1", Mode: "ops", StartedAt: start})
	require.NoError(t, err)
	s2, err := f.orch.BeginSession(ctx, BeginParams{SessionID: "s2", Mode: "governance", StartedAt: start.Add(72 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, "governance", s2.Mode)

	rels := f.repo.Relationships(ctx, entity.SessionFollowed)
	require.Len(t, rels, 1)
	assert.Equal(t, s2.ID, rels[0].From)
	assert.Equal(t, s1.ID, rels[0].To)
	require.NotNil(t, rels[0].GapDays)
	assert.Equal(t, 3, *rels[0].GapDays)
}

func TestBeginSession_NegativeGap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	start := time.Date(2026, 1, 14, 9, 0, 0, 0, time.UTC)

	_, err := f.orch.BeginSession(ctx, BeginParams{SessionID: "late", StartedAt: start})
	require.NoError(t, err)
	_, err = f.orch.BeginSession(ctx, BeginParams{SessionID: "early", StartedAt: start.Add(-36 * time.Hour)})
	require.NoError(t, err)

	rels := f.repo.Relationships(ctx, entity.SessionFollowed)
	require.Len(t, rels, 1)
	assert.Equal(t, -2, *rels[0].GapDays)
}

func TestBeginSession_DuplicateFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.orch.BeginSession(ctx, BeginParams{SessionID: "s1"})
	require.NoError(t, err)
	_, err = f.orch.BeginSession(ctx, BeginParams{SessionID: "s1"})
	assert.ErrorIs(t, err, docstore.ErrDuplicateKey)
	assert.Empty(t, f.repo.Relationships(ctx, entity.SessionFollowed))
}

func TestBeginSession_LinkFault(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.orch.BeginSession(ctx, BeginParams{SessionID: "s1"})
	require.NoError(t, err)
	f.store.FailAll(testutil.OpInsert, entity.SessionFollowed.Class, nil)

	s, err := f.orch.BeginSession(ctx, BeginParams{SessionID: "s2"})
	var partial *PartialFailureError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, "s2", s.SessionID)

	// The session itself was committed
	_, ok := f.repo.GetSessionBySessionID(ctx, "s2")
	assert.True(t, ok)
}

func TestEndSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.orch.BeginSession(ctx, BeginParams{SessionID: "s1", Goals: []string{"rotate keys"}})
	require.NoError(t, err)

	s, err := f.orch.EndSession(ctx, EndParams{
		SessionID: "s1",
		Summary:   "keys rotated",
		Learnings: []string{"rotation script needs sudo", "staging lags prod"},
		Decisions: []DecisionInput{{
			Description: "automate rotation",
			Context:     "manual rotation is error prone",
			Rationale:   "fewer steps",
			Options:     []string{"cron", "manual"},
		}},
		OpenLoops: []string{"document rotation"},
	})
	require.NoError(t, err)
	assert.False(t, s.IsOpen())
	assert.Equal(t, "keys rotated", *s.Summary)
	assert.Equal(t, entity.Set{"document rotation"}, s.OpenLoopsAtEnd)

	learnings := f.repo.LearningsForSession(ctx, s.ID)
	require.Len(t, learnings, 2)
	for _, l := range learnings {
		assert.Equal(t, entity.DomainProcedural, l.Domain)
		assert.Equal(t, repo.DefaultConfidence, l.Confidence)
	}

	decisions := f.repo.DecisionsForSession(ctx, s.ID)
	require.Len(t, decisions, 1)
	assert.Equal(t, entity.Set{"cron", "manual"}, decisions[0].OptionsConsidered)
}

func TestEndSession_NotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.orch.EndSession(ctx, EndParams{SessionID: "ghost", Learnings: []string{"x"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Nothing was written
	assert.Empty(t, f.repo.ListLearnings(ctx, "", 0))
}

func TestEndSession_PartialFailureIsNotRolledBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.orch.BeginSession(ctx, BeginParams{SessionID: "s1"})
	require.NoError(t, err)

	// The second learning link fails
	f.store.FailNth(testutil.OpInsert, entity.SessionProducedLearning.Class, 2, errors.New("write timeout"))

	s, err := f.orch.EndSession(ctx, EndParams{
		SessionID: "s1",
		Summary:   "partial",
		Learnings: []string{"first", "second"},
	})
	require.Error(t, err)

	var partial *PartialFailureError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, "link learning 2", partial.Step)
	assert.Len(t, partial.Learnings, 1)
	assert.Len(t, partial.Unlinked, 1)
	assert.Contains(t, err.Error(), "write timeout")

	// The session stays closed
	stored, ok := f.repo.GetSessionBySessionID(ctx, "s1")
	require.True(t, ok)
	require.NotNil(t, stored.EndedAt)
	assert.Equal(t, s.EndedAt, stored.EndedAt)

	// Exactly one learning is linked
	linked := f.repo.LearningsForSession(ctx, stored.ID)
	require.Len(t, linked, 1)
	assert.Equal(t, "first", linked[0].Content)
	assert.Equal(t, partial.Learnings[0], linked[0].ID)

	// The unlinked learning exists but is orphaned
	assert.Len(t, f.repo.ListLearnings(ctx, "", 0), 2)
}

func TestEndSession_DecisionCreateFault(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.orch.BeginSession(ctx, BeginParams{SessionID: "s1"})
	require.NoError(t, err)
	f.store.FailAll(testutil.OpInsert, entity.ClassDecision, nil)

	_, err = f.orch.EndSession(ctx, EndParams{
		SessionID: "s1",
		Learnings: []string{"kept"},
		Decisions: []DecisionInput{{Description: "d"}},
	})
	var partial *PartialFailureError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, "create decision 1", partial.Step)
	assert.Len(t, partial.Learnings, 1)
	assert.Empty(t, partial.Decisions)
	assert.ErrorIs(t, err, testutil.ErrInjected)
}

func TestEndSession_EmptySummaryKeepsStored(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.orch.BeginSession(ctx, BeginParams{SessionID: "s1"})
	require.NoError(t, err)
	_, err = f.orch.EndSession(ctx, EndParams{SessionID: "s1", Summary: "first close", OpenLoops: []string{"a"}})
	require.NoError(t, err)

	s, err := f.orch.EndSession(ctx, EndParams{SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "first close", *s.Summary)
	assert.Equal(t, entity.Set{"a"}, s.OpenLoopsAtEnd)
}

func TestContextForNewSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	// Seven sessions a day apart; only the last five contribute open loops
	for i := 0; i < 7; i++ {
		id := start.AddDate(0, 0, i).Format("2006-01-02")
		_, err := f.orch.BeginSession(ctx, BeginParams{SessionID: id, StartedAt: start.AddDate(0, 0, i)})
		require.NoError(t, err)
		_, err = f.orch.EndSession(ctx, EndParams{
			SessionID: id,
			Summary:   "day " + id,
			OpenLoops: []string{"shared loop", "loop " + id},
			Learnings: []string{"learning " + id},
		})
		require.NoError(t, err)
	}

	c := f.orch.ContextForNewSession(ctx)
	require.NotNil(t, c.LastSession)
	assert.Equal(t, "2026-01-07", c.LastSession.SessionID)
	require.Len(t, c.RecentSessions, RecentLimit)
	assert.Equal(t, "2026-01-03", c.RecentSessions[4].SessionID)

	assert.Equal(t, entity.Set{
		"loop 2026-01-03", "loop 2026-01-04", "loop 2026-01-05", "loop 2026-01-06", "loop 2026-01-07", "shared loop",
	}, c.OpenLoops)
	assert.False(t, c.OpenLoops.Contains("loop 2026-01-01"))

	assert.Len(t, c.RecentLearnings, RecentLimit)
	assert.Empty(t, c.RecentDecisions)
}

func TestContextForNewSession_Empty(t *testing.T) {
	f := newFixture(t)
	c := f.orch.ContextForNewSession(context.Background())
	assert.Nil(t, c.LastSession)
	assert.Empty(t, c.RecentSessions)
	assert.Nil(t, c.OpenLoops)
}
