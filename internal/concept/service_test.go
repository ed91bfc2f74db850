package concept

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/videostack/storyboard-agent/internal/cloud"
	"github.com/videostack/storyboard-agent/internal/db"
	"github.com/videostack/storyboard-agent/internal/storyboard"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setup(t *testing.T) (*Service, *cloud.MemoryClient, *storyboard.Store) {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	remote := cloud.NewMemoryClient(testLogger())
	store := storyboard.New(remote, testLogger())
	return NewService(remote, NewRepository(database.Conn()), store, testLogger()), remote, store
}

func TestSaveConcept(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	d, err := svc.SaveConcept(ctx, "  a lighthouse keeper finds a message  ")
	require.NoError(t, err)
	require.Equal(t, "a lighthouse keeper finds a message", d.Concept)

	got, err := svc.GetDraft(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, d.Concept, got.Concept)
	require.False(t, got.CreatedAt.IsZero())

	_, err = svc.SaveConcept(ctx, "   ")
	require.ErrorIs(t, err, ErrEmptyConcept)
}

func TestUpdateDraft(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	d, err := svc.SaveConcept(ctx, "concept")
	require.NoError(t, err)

	title := "The Keeper"
	storyline := "Night falls.\n\nA ship appears."
	updated, err := svc.UpdateDraft(ctx, d.ID, DraftUpdate{Title: &title, Storyline: &storyline})
	require.NoError(t, err)
	require.Equal(t, "concept", updated.Concept)
	require.Equal(t, title, updated.Title)

	got, err := svc.GetDraft(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, storyline, got.Storyline)

	empty := ""
	_, err = svc.UpdateDraft(ctx, d.ID, DraftUpdate{Concept: &empty})
	require.ErrorIs(t, err, ErrEmptyConcept)

	_, err = svc.UpdateDraft(ctx, "missing", DraftUpdate{Title: &title})
	require.ErrorIs(t, err, ErrDraftNotFound)
}

func TestListAndDeleteDrafts(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	first, err := svc.SaveConcept(ctx, "one")
	require.NoError(t, err)
	_, err = svc.SaveConcept(ctx, "two")
	require.NoError(t, err)

	drafts, err := svc.ListDrafts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, drafts, 2)

	require.NoError(t, svc.DeleteDraft(ctx, first.ID))
	require.ErrorIs(t, svc.DeleteDraft(ctx, first.ID), ErrDraftNotFound)

	drafts, err = svc.ListDrafts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	require.Equal(t, "two", drafts[0].Concept)
}

func TestCreateStoryboard_HydratesStore(t *testing.T) {
	svc, remote, store := setup(t)
	ctx := context.Background()

	d, err := svc.SaveConcept(ctx, "a lighthouse keeper")
	require.NoError(t, err)
	storyline := "A storm rolls in. Waves hit the rocks.\n\nDawn breaks."
	_, err = svc.UpdateDraft(ctx, d.ID, DraftUpdate{Storyline: &storyline})
	require.NoError(t, err)

	linked, err := svc.CreateStoryboard(ctx, d.ID)
	require.NoError(t, err)
	require.NotEmpty(t, linked.StoryboardID)

	st := store.Snapshot()
	require.Equal(t, linked.StoryboardID, st.StoryboardID)
	require.Equal(t, "a lighthouse keeper", st.OriginalPrompt)
	require.Equal(t, storyline, st.Storyline)
	require.Len(t, st.Scenes, 2)
	require.Len(t, st.Scenes[0].Shots, 2)
	require.Equal(t, "Waves hit the rocks", st.Scenes[0].Shots[1].Prompt)

	// A second call does not create another storyboard.
	again, err := svc.CreateStoryboard(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, linked.StoryboardID, again.StoryboardID)
	require.Equal(t, 1, remote.Calls("CreateStoryboard"))
}

func TestCreateStoryboard_PlanFailureCreatesNothing(t *testing.T) {
	svc, remote, store := setup(t)
	ctx := context.Background()

	d, err := svc.SaveConcept(ctx, "concept")
	require.NoError(t, err)

	remote.FailNext("GenerateScenes", errors.New("llm unavailable"))
	_, err = svc.CreateStoryboard(ctx, d.ID)
	require.Error(t, err)
	require.Zero(t, remote.Calls("CreateStoryboard"))
	require.False(t, store.Snapshot().Bound())

	got, err := svc.GetDraft(ctx, d.ID)
	require.NoError(t, err)
	require.Empty(t, got.StoryboardID)
}

func TestCreateStoryboard_UnknownDraft(t *testing.T) {
	svc, _, _ := setup(t)
	_, err := svc.CreateStoryboard(context.Background(), "missing")
	require.ErrorIs(t, err, ErrDraftNotFound)
}
