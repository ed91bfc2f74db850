package editor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/videostack/storyboard-agent/internal/cloud"
	"github.com/videostack/storyboard-agent/internal/generation"
	"github.com/videostack/storyboard-agent/internal/storyboard"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeGenerator records calls and optionally marks the shot processing the
// way the generation service does.
type fakeGenerator struct {
	store *storyboard.Store

	mu    sync.Mutex
	calls []generation.Params
	err   error
}

func (g *fakeGenerator) GenerateShot(ctx context.Context, shotID string, params generation.Params) (*generation.Job, error) {
	g.mu.Lock()
	g.calls = append(g.calls, params)
	err := g.err
	g.mu.Unlock()
	if err != nil {
		return nil, err
	}

	sceneID, _, ok := g.store.Snapshot().FindShot(shotID)
	if !ok {
		return nil, storyboard.ErrShotNotFound
	}
	status := storyboard.ShotStatusProcessing
	if err := g.store.UpdateShot(ctx, sceneID, shotID, storyboard.ShotUpdate{Status: &status}); err != nil {
		return nil, err
	}
	return &generation.Job{ID: "job-1", Kind: params.Kind(), ShotID: shotID}, nil
}

func (g *fakeGenerator) Calls() []generation.Params {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]generation.Params(nil), g.calls...)
}

type fixture struct {
	remote *cloud.MemoryClient
	store  *storyboard.Store
	gen    *fakeGenerator
	editor *Editor
	sb     *cloud.Storyboard
}

func setup(t *testing.T) *fixture {
	t.Helper()

	remote := cloud.NewMemoryClient(testLogger())
	remote.SetAutoComplete(false)
	sb := remote.Seed(cloud.Storyboard{
		InitialLine: "a lighthouse keeper",
		Scenes: []cloud.Scene{
			{SceneNumber: 1, Description: "Storm", Shots: []cloud.Shot{
				{ShotNumber: 1, UserPrompt: "waves crash", DurationSeconds: 5},
				{ShotNumber: 2, UserPrompt: "lamp flickers", StartImageURL: "https://img/lamp.png", DurationSeconds: 3},
			}},
			{SceneNumber: 2, Description: "Dawn", Shots: []cloud.Shot{
				{ShotNumber: 1, UserPrompt: "sunrise", DurationSeconds: 7},
			}},
		},
	})

	store := storyboard.New(remote, testLogger())
	gen := &fakeGenerator{store: store}
	ed := New(store, gen, 10*time.Millisecond, testLogger())
	t.Cleanup(ed.StopPolling)

	return &fixture{remote: remote, store: store, gen: gen, editor: ed, sb: sb}
}

func (f *fixture) mount(t *testing.T) {
	t.Helper()
	require.NoError(t, f.editor.Mount(context.Background(), f.sb.ID))
}

func sceneIDs(st storyboard.State) []string {
	ids := make([]string, 0, len(st.Scenes))
	for _, sc := range st.Scenes {
		ids = append(ids, sc.ID)
	}
	return ids
}

func TestMount_LoadsOncePerID(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.editor.Mount(ctx, f.sb.ID))
	require.NoError(t, f.editor.Mount(ctx, f.sb.ID))
	require.Equal(t, 1, f.remote.Calls("GetStoryboard"))
	require.Equal(t, f.sb.ID, f.editor.MountedID())
	require.Len(t, f.store.Snapshot().Scenes, 2)

	other := f.remote.Seed(cloud.Storyboard{InitialLine: "other"})
	require.NoError(t, f.editor.Mount(ctx, other.ID))
	require.Equal(t, 2, f.remote.Calls("GetStoryboard"))
	require.Equal(t, other.ID, f.store.Snapshot().StoryboardID)
}

func TestMount_FailureAllowsRetry(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.remote.FailNext("GetStoryboard", errors.New("offline"))
	require.Error(t, f.editor.Mount(ctx, f.sb.ID))
	require.Empty(t, f.editor.MountedID())
	require.False(t, f.store.Snapshot().IsLoading)

	require.NoError(t, f.editor.Mount(ctx, f.sb.ID))
	require.Equal(t, 2, f.remote.Calls("GetStoryboard"))
}

func TestMount_RejectsEmptyID(t *testing.T) {
	f := setup(t)
	require.ErrorIs(t, f.editor.Mount(context.Background(), ""), storyboard.ErrUnbound)
	require.Zero(t, f.remote.TotalCalls())
}

func TestHandleSceneDragEnd_ReordersAndPersists(t *testing.T) {
	f := setup(t)
	f.mount(t)
	ctx := context.Background()

	before := sceneIDs(f.store.Snapshot())
	require.NoError(t, f.editor.HandleSceneDragEnd(ctx, before[1], before[0]))

	after := sceneIDs(f.store.Snapshot())
	require.Equal(t, []string{before[1], before[0]}, after)

	remote, err := f.remote.GetStoryboard(ctx, f.sb.ID)
	require.NoError(t, err)
	require.Equal(t, before[1], remote.Scenes[0].ID)
	require.Equal(t, before[0], remote.Scenes[1].ID)
}

func TestHandleSceneDragEnd_SameTargetIsNoop(t *testing.T) {
	f := setup(t)
	f.mount(t)

	st := f.store.Snapshot()
	calls := f.remote.TotalCalls()
	require.NoError(t, f.editor.HandleSceneDragEnd(context.Background(), st.Scenes[0].ID, st.Scenes[0].ID))
	require.NoError(t, f.editor.HandleSceneDragEnd(context.Background(), st.Scenes[0].ID, ""))

	require.Equal(t, calls, f.remote.TotalCalls())
	require.Equal(t, st.Version, f.store.Snapshot().Version)
}

func TestHandleSceneDragEnd_UnknownIDIsNoop(t *testing.T) {
	f := setup(t)
	f.mount(t)

	st := f.store.Snapshot()
	calls := f.remote.TotalCalls()
	require.NoError(t, f.editor.HandleSceneDragEnd(context.Background(), "ghost", st.Scenes[0].ID))

	require.Equal(t, calls, f.remote.TotalCalls())
	require.Equal(t, sceneIDs(st), sceneIDs(f.store.Snapshot()))
}

func TestHandleShotDragEnd_ReordersWithinScene(t *testing.T) {
	f := setup(t)
	f.mount(t)
	ctx := context.Background()

	scene := f.store.Snapshot().Scenes[0]
	first, second := scene.Shots[0].ID, scene.Shots[1].ID
	require.NoError(t, f.editor.HandleShotDragEnd(ctx, scene.ID, first, second))

	got, ok := f.store.Snapshot().FindScene(scene.ID)
	require.True(t, ok)
	require.Equal(t, second, got.Shots[0].ID)
	require.Equal(t, first, got.Shots[1].ID)
	require.Positive(t, f.remote.Calls("UpdateShot"))

	remote, err := f.remote.GetStoryboard(ctx, f.sb.ID)
	require.NoError(t, err)
	require.Equal(t, second, remote.Scenes[0].Shots[0].ID)
}

func TestPolling_SingleTimer(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	f := setup(t)
	f.mount(t)
	ctx := context.Background()

	require.True(t, f.editor.StartPolling(ctx))
	require.False(t, f.editor.StartPolling(ctx))
	require.True(t, f.editor.IsPolling())
	require.True(t, f.store.Snapshot().IsPolling)

	require.Eventually(t, func() bool {
		return f.remote.Calls("GetStoryboard") >= 3
	}, time.Second, 5*time.Millisecond)
	require.False(t, f.store.Snapshot().IsLoading)

	f.editor.StopPolling()
	require.False(t, f.editor.IsPolling())
	require.False(t, f.store.Snapshot().IsPolling)

	calls := f.remote.Calls("GetStoryboard")
	time.Sleep(40 * time.Millisecond)
	require.Equal(t, calls, f.remote.Calls("GetStoryboard"))
}

func TestPolling_PicksUpRemoteChanges(t *testing.T) {
	f := setup(t)
	f.mount(t)
	ctx := context.Background()

	shot := f.sb.Scenes[0].Shots[0]
	url := "https://img/waves.png"
	require.NoError(t, f.remote.UpdateShot(ctx, f.sb.ID, shot.SceneID, shot.ID, cloud.ShotUpdateRequest{StartImageURL: &url}))

	require.True(t, f.editor.StartPolling(ctx))
	require.Eventually(t, func() bool {
		_, got, ok := f.store.Snapshot().FindShot(shot.ID)
		return ok && got.ImageURL == url
	}, time.Second, 5*time.Millisecond)
}

func TestTotals(t *testing.T) {
	f := setup(t)
	f.mount(t)

	totals := f.editor.Totals()
	require.Equal(t, 2, totals.SceneCount)
	require.Equal(t, 3, totals.ShotCount)
	require.Equal(t, 15, totals.DurationSeconds)
}

func TestUnmount_ResetsAndAllowsRemount(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	f := setup(t)
	f.mount(t)
	ctx := context.Background()
	require.True(t, f.editor.StartPolling(ctx))

	require.NoError(t, f.editor.Unmount(ctx))
	require.False(t, f.editor.IsPolling())
	require.False(t, f.store.Snapshot().Bound())
	require.Empty(t, f.store.Snapshot().Scenes)

	calls := f.remote.Calls("GetStoryboard")
	f.mount(t)
	require.Equal(t, calls+1, f.remote.Calls("GetStoryboard"))
}

// gatedRemote blocks the first GetStoryboard for gateID until release is closed.
type gatedRemote struct {
	*cloud.MemoryClient
	gateID  string
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedRemote(mem *cloud.MemoryClient, gateID string) *gatedRemote {
	return &gatedRemote{MemoryClient: mem, gateID: gateID, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedRemote) GetStoryboard(ctx context.Context, id string) (*cloud.Storyboard, error) {
	if id == g.gateID {
		g.once.Do(func() {
			close(g.entered)
			<-g.release
		})
	}
	return g.MemoryClient.GetStoryboard(ctx, id)
}

func TestMount_PollOfPreviousStoryboardDoesNotWin(t *testing.T) {
	mem := cloud.NewMemoryClient(testLogger())
	first := mem.Seed(cloud.Storyboard{InitialLine: "first", Scenes: []cloud.Scene{{SceneNumber: 1, Description: "one"}}})
	second := mem.Seed(cloud.Storyboard{InitialLine: "second", Scenes: []cloud.Scene{{SceneNumber: 1, Description: "two"}}})
	remote := newGatedRemote(mem, second.ID)

	store := storyboard.New(remote, testLogger())
	ed := New(store, &fakeGenerator{store: store}, 5*time.Millisecond, testLogger())
	t.Cleanup(ed.StopPolling)
	ctx := context.Background()

	require.NoError(t, ed.Mount(ctx, first.ID))
	require.True(t, ed.StartPolling(ctx))
	require.Eventually(t, func() bool {
		return mem.Calls("GetStoryboard") >= 3
	}, time.Second, 5*time.Millisecond)

	errc := make(chan error, 1)
	go func() { errc <- ed.Mount(ctx, second.ID) }()
	<-remote.entered

	// Let several poll ticks for the first storyboard pass while the mount is blocked.
	time.Sleep(40 * time.Millisecond)
	close(remote.release)
	require.NoError(t, <-errc)

	st := store.Snapshot()
	require.Equal(t, second.ID, st.StoryboardID)
	require.Equal(t, "second", st.OriginalPrompt)
	require.Equal(t, second.ID, ed.MountedID())

	calls := mem.Calls("GetStoryboard")
	require.Eventually(t, func() bool {
		return mem.Calls("GetStoryboard") >= calls+2
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, "second", store.Snapshot().OriginalPrompt)
}

func TestMount_SupersededLoadClearsGuard(t *testing.T) {
	mem := cloud.NewMemoryClient(testLogger())
	sb := mem.Seed(cloud.Storyboard{InitialLine: "keeper", Scenes: []cloud.Scene{{SceneNumber: 1}}})
	remote := newGatedRemote(mem, sb.ID)

	store := storyboard.New(remote, testLogger())
	ed := New(store, &fakeGenerator{store: store}, time.Hour, testLogger())
	ctx := context.Background()

	errc := make(chan error, 1)
	go func() { errc <- ed.Mount(ctx, sb.ID) }()
	<-remote.entered
	store.Reset()
	close(remote.release)

	require.ErrorIs(t, <-errc, storyboard.ErrStaleLoad)
	require.Empty(t, ed.MountedID())
	require.False(t, store.Snapshot().Bound())

	require.NoError(t, ed.Mount(ctx, sb.ID))
	require.Equal(t, sb.ID, store.Snapshot().StoryboardID)
	require.Equal(t, "keeper", store.Snapshot().OriginalPrompt)
}
