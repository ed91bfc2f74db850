package storyboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/videostack/storyboard-agent/internal/cloud"
	"github.com/videostack/storyboard-agent/internal/logging"
)

const exportTimeout = 2 * time.Minute

// Remote is the slice of the Storyboard API the store writes through.
type Remote interface {
	GetStoryboard(ctx context.Context, id string) (*cloud.Storyboard, error)

	AddScene(ctx context.Context, storyboardID string, req cloud.SceneAddRequest) (*cloud.Scene, error)
	UpdateScene(ctx context.Context, storyboardID, sceneID string, req cloud.SceneUpdateRequest) error
	DeleteScene(ctx context.Context, storyboardID, sceneID string) error

	AddShot(ctx context.Context, storyboardID, sceneID string, req cloud.ShotAddRequest) (*cloud.Shot, error)
	UpdateShot(ctx context.Context, storyboardID, sceneID, shotID string, req cloud.ShotUpdateRequest) error
	DeleteShot(ctx context.Context, storyboardID, sceneID, shotID string) error

	GenerateStoryboardImages(ctx context.Context, storyboardID string) error
	RequestExport(ctx context.Context, storyboardID string) error
}

// Store holds the working copy of one storyboard. Every mutation is applied to
// the remote first and mirrored locally only after the remote accepted it.
type Store struct {
	remote Remote
	logger *slog.Logger

	mu    sync.RWMutex
	state State
	// loadSeq advances on every foreground Load and Reset. pending is the
	// sequence of the foreground load in flight, zero when none is.
	loadSeq uint64
	pending uint64
	subs    map[int]func(State)
	nextSub int

	locks *entityLocks
	polls singleflight.Group
	bg    sync.WaitGroup
}

func New(remote Remote, logger *slog.Logger) *Store {
	return &Store{
		remote: remote,
		logger: logging.WithComponent(logging.OrDiscard(logger), "storyboard"),
		state:  State{Scenes: []Scene{}},
		subs:   make(map[int]func(State)),
		locks:  newEntityLocks(),
	}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Subscribe registers fn to receive a snapshot after every change.
// fn runs on the mutating goroutine and must not block.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// update runs fn under the write lock and notifies subscribers when fn reports a change.
func (s *Store) update(fn func(st *State) bool) {
	s.mu.Lock()
	if !fn(&s.state) {
		s.mu.Unlock()
		return
	}
	s.state.Version++
	snap := s.state.clone()
	subs := make([]func(State), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(snap)
	}
}

func (s *Store) boundID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.StoryboardID
}

// Bind sets the active storyboard id without fetching anything.
func (s *Store) Bind(storyboardID string) {
	s.update(func(st *State) bool {
		if st.StoryboardID == storyboardID {
			return false
		}
		st.StoryboardID = storyboardID
		return true
	})
}

// Reset clears the store and invalidates loads that are still in flight.
func (s *Store) Reset() {
	s.update(func(st *State) bool {
		s.loadSeq++
		s.pending = 0
		*st = State{Scenes: []Scene{}, Version: st.Version}
		return true
	})
}

func (s *Store) StartPolling() { s.setPolling(true) }
func (s *Store) StopPolling()  { s.setPolling(false) }

func (s *Store) setPolling(on bool) {
	s.update(func(st *State) bool {
		if st.IsPolling == on {
			return false
		}
		st.IsPolling = on
		return true
	})
}

// Load fetches the storyboard and replaces the local scenes with the server's.
// A response that is overtaken by a newer Load or Reset is dropped and
// ErrStaleLoad returned. On failure the previous state is kept.
func (s *Store) Load(ctx context.Context, storyboardID string) error {
	return s.load(ctx, storyboardID)
}

// Poll refreshes the bound storyboard while polling is on. Overlapping polls
// share one request. A poll never overrides a foreground Load: it is skipped
// while one is in flight and its result is dropped if one started meanwhile.
func (s *Store) Poll(ctx context.Context) error {
	snap := s.Snapshot()
	if !snap.IsPolling || !snap.Bound() {
		return nil
	}
	id := snap.StoryboardID
	_, err, _ := s.polls.Do(id, func() (any, error) {
		return nil, s.poll(ctx, id)
	})
	if errors.Is(err, ErrStaleLoad) {
		return nil
	}
	return err
}

func (s *Store) load(ctx context.Context, storyboardID string) error {
	if storyboardID == "" {
		return ErrUnbound
	}

	var seq uint64
	s.update(func(st *State) bool {
		s.loadSeq++
		seq = s.loadSeq
		s.pending = seq
		if st.IsPolling || st.IsLoading {
			return false
		}
		st.IsLoading = true
		return true
	})

	sb, err := s.remote.GetStoryboard(ctx, storyboardID)
	if err != nil {
		s.update(func(st *State) bool {
			if seq != s.loadSeq {
				return false
			}
			s.pending = 0
			if !st.IsLoading {
				return false
			}
			st.IsLoading = false
			return true
		})
		s.logger.Error("failed to load storyboard",
			logging.StoryboardID(storyboardID),
			"error", err,
		)
		return fmt.Errorf("load storyboard %s: %w", storyboardID, err)
	}

	stale := false
	s.update(func(st *State) bool {
		if seq != s.loadSeq {
			stale = true
			return false
		}
		s.pending = 0
		st.StoryboardID = storyboardID
		st.IsLoading = false
		applyStoryboard(st, sb)
		return true
	})
	if stale {
		s.logger.Debug("discarded stale storyboard load", logging.StoryboardID(storyboardID))
		return ErrStaleLoad
	}
	return nil
}

// poll fetches storyboardID without touching the loading flag. The result is
// applied only if no foreground Load or Reset happened since it was issued
// and the store is still bound to the same storyboard.
func (s *Store) poll(ctx context.Context, storyboardID string) error {
	s.mu.RLock()
	seq, busy := s.loadSeq, s.pending != 0
	s.mu.RUnlock()
	if busy {
		return ErrStaleLoad
	}

	sb, err := s.remote.GetStoryboard(ctx, storyboardID)
	if err != nil {
		s.logger.Warn("failed to poll storyboard",
			logging.StoryboardID(storyboardID),
			"error", err,
		)
		return fmt.Errorf("poll storyboard %s: %w", storyboardID, err)
	}

	stale := false
	s.update(func(st *State) bool {
		if seq != s.loadSeq || s.pending != 0 || st.StoryboardID != storyboardID {
			stale = true
			return false
		}
		applyStoryboard(st, sb)
		return true
	})
	if stale {
		s.logger.Debug("discarded stale storyboard poll", logging.StoryboardID(storyboardID))
		return ErrStaleLoad
	}
	return nil
}

// applyStoryboard replaces the local copy with the server's.
func applyStoryboard(st *State, sb *cloud.Storyboard) {
	scenes := make([]Scene, 0, len(sb.Scenes))
	for i, sc := range sb.Scenes {
		scenes = append(scenes, sceneFromCloud(sc, i+1))
	}
	st.OriginalPrompt = sb.InitialLine
	st.Title = sb.Title
	st.Storyline = sb.Storyline
	st.Scenes = scenes
}

// InitializeFromGeneratedPlan binds the store to storyboardID, creates every
// planned scene and its shots remotely, then reloads. Creation continues past
// individual failures; the returned error joins all of them.
func (s *Store) InitializeFromGeneratedPlan(ctx context.Context, storyboardID string, plan Plan) error {
	if storyboardID == "" {
		return ErrUnbound
	}
	s.Bind(storyboardID)

	var errs []error
	for i, ps := range plan.Scenes {
		name := ps.Name
		if name == "" {
			name = sceneName(i + 1)
		}
		scene, err := s.remote.AddScene(ctx, storyboardID, cloud.SceneAddRequest{
			SceneNumber: i + 1,
			Description: name,
			Duration:    ps.estimatedDuration(),
		})
		if err != nil {
			s.logger.Error("failed to create planned scene",
				logging.StoryboardID(storyboardID),
				"scene_number", i+1,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("create scene %d: %w", i+1, err))
			continue
		}

		for j, shot := range ps.Shots {
			prompt := shot.Prompt
			if prompt == "" {
				prompt = PlaceholderShotPrompt
			}
			_, err := s.remote.AddShot(ctx, storyboardID, scene.ID, cloud.ShotAddRequest{
				ShotNumber:    j + 1,
				UserPrompt:    prompt,
				StartImageURL: shot.ImageURL,
				VideoURL:      shot.VideoURL,
			})
			if err != nil {
				s.logger.Error("failed to create planned shot",
					logging.StoryboardID(storyboardID),
					logging.SceneID(scene.ID),
					"shot_number", j+1,
					"error", err,
				)
				errs = append(errs, fmt.Errorf("create shot %d of scene %d: %w", j+1, i+1, err))
			}
		}
	}

	if err := s.Load(ctx, storyboardID); err != nil {
		errs = append(errs, err)
	}

	s.logger.Info("storyboard initialized from plan",
		logging.StoryboardID(storyboardID),
		"scenes", len(plan.Scenes),
		"failures", len(errs),
	)
	return errors.Join(errs...)
}

// AddScene creates a scene at index (clamped to the scene count) named after
// its position and inserts the server's copy locally. Renumbering the scenes
// after it is best effort; the next load or PersistSceneOrder reconciles.
func (s *Store) AddScene(ctx context.Context, index int) (Scene, error) {
	snap := s.Snapshot()
	if !snap.Bound() {
		s.logger.Error("add scene ignored: no storyboard bound")
		return Scene{}, ErrUnbound
	}
	id := snap.StoryboardID
	index = clamp(index, 0, len(snap.Scenes))

	created, err := s.remote.AddScene(ctx, id, cloud.SceneAddRequest{
		SceneNumber: index + 1,
		Description: sceneName(index + 1),
	})
	if err != nil {
		s.logger.Error("failed to add scene", logging.StoryboardID(id), "error", err)
		return Scene{}, fmt.Errorf("add scene: %w", err)
	}

	scene := sceneFromCloud(*created, index+1)
	inserted := false
	s.update(func(st *State) bool {
		if st.StoryboardID != id {
			return false
		}
		at := clamp(index, 0, len(st.Scenes))
		st.Scenes = insertAt(st.Scenes, at, scene)
		inserted = true
		return true
	})
	if !inserted {
		return scene, nil
	}

	s.logger.Info("scene added", logging.StoryboardID(id), logging.SceneID(scene.ID), "position", index+1)
	_ = s.renumberScenes(ctx, id, index+1)
	return scene, nil
}

// UpdateScene patches a scene. The scene name is stored remotely as its description.
func (s *Store) UpdateScene(ctx context.Context, sceneID string, u SceneUpdate) error {
	snap := s.Snapshot()
	if !snap.Bound() {
		s.logger.Error("update scene ignored: no storyboard bound", logging.SceneID(sceneID))
		return ErrUnbound
	}
	if _, ok := snap.FindScene(sceneID); !ok {
		return ErrSceneNotFound
	}
	id := snap.StoryboardID

	release, err := s.locks.acquire(ctx, sceneKey(sceneID))
	if err != nil {
		return err
	}
	defer release()

	if u.Name != nil {
		if err := s.remote.UpdateScene(ctx, id, sceneID, cloud.SceneUpdateRequest{Description: u.Name}); err != nil {
			s.logger.Error("failed to update scene", logging.SceneID(sceneID), "error", err)
			return fmt.Errorf("update scene %s: %w", sceneID, err)
		}
	}

	s.update(func(st *State) bool {
		if st.StoryboardID != id {
			return false
		}
		i := sceneIndex(st.Scenes, sceneID)
		if i < 0 || u.Name == nil {
			return false
		}
		st.Scenes[i].Name = *u.Name
		return true
	})
	return nil
}

// DeleteScene removes a scene and, with it, all of its shots.
func (s *Store) DeleteScene(ctx context.Context, sceneID string) error {
	snap := s.Snapshot()
	if !snap.Bound() {
		s.logger.Error("delete scene ignored: no storyboard bound", logging.SceneID(sceneID))
		return ErrUnbound
	}
	if _, ok := snap.FindScene(sceneID); !ok {
		return ErrSceneNotFound
	}
	id := snap.StoryboardID

	release, err := s.locks.acquire(ctx, sceneKey(sceneID))
	if err != nil {
		return err
	}
	defer release()

	if err := s.remote.DeleteScene(ctx, id, sceneID); err != nil {
		s.logger.Error("failed to delete scene", logging.SceneID(sceneID), "error", err)
		return fmt.Errorf("delete scene %s: %w", sceneID, err)
	}

	s.update(func(st *State) bool {
		if st.StoryboardID != id {
			return false
		}
		i := sceneIndex(st.Scenes, sceneID)
		if i < 0 {
			return false
		}
		st.Scenes = append(st.Scenes[:i:i], st.Scenes[i+1:]...)
		return true
	})
	s.logger.Info("scene deleted", logging.StoryboardID(id), logging.SceneID(sceneID))
	return nil
}

// AddShotToScene creates a placeholder shot at index within the scene.
// Renumbering the following shots is best effort, as with AddScene.
func (s *Store) AddShotToScene(ctx context.Context, sceneID string, index int) (Shot, error) {
	snap := s.Snapshot()
	if !snap.Bound() {
		s.logger.Error("add shot ignored: no storyboard bound", logging.SceneID(sceneID))
		return Shot{}, ErrUnbound
	}
	scene, ok := snap.FindScene(sceneID)
	if !ok {
		return Shot{}, ErrSceneNotFound
	}
	id := snap.StoryboardID
	index = clamp(index, 0, len(scene.Shots))

	created, err := s.remote.AddShot(ctx, id, sceneID, cloud.ShotAddRequest{
		ShotNumber: index + 1,
		UserPrompt: PlaceholderShotPrompt,
	})
	if err != nil {
		s.logger.Error("failed to add shot", logging.SceneID(sceneID), "error", err)
		return Shot{}, fmt.Errorf("add shot: %w", err)
	}

	shot := shotFromCloud(*created)
	inserted := false
	s.update(func(st *State) bool {
		if st.StoryboardID != id {
			return false
		}
		i := sceneIndex(st.Scenes, sceneID)
		if i < 0 {
			return false
		}
		at := clamp(index, 0, len(st.Scenes[i].Shots))
		st.Scenes[i].Shots = insertAt(st.Scenes[i].Shots, at, shot)
		inserted = true
		return true
	})
	if !inserted {
		return shot, nil
	}

	s.logger.Info("shot added", logging.SceneID(sceneID), logging.ShotID(shot.ID), "position", index+1)
	_ = s.renumberShots(ctx, id, sceneID, index+1)
	return shot, nil
}

// DeleteShot removes one shot. Other scenes are untouched.
func (s *Store) DeleteShot(ctx context.Context, sceneID, shotID string) error {
	snap := s.Snapshot()
	if !snap.Bound() {
		s.logger.Error("delete shot ignored: no storyboard bound", logging.ShotID(shotID))
		return ErrUnbound
	}
	if err := findShotIn(snap, sceneID, shotID); err != nil {
		return err
	}
	id := snap.StoryboardID

	release, err := s.locks.acquire(ctx, shotKey(shotID))
	if err != nil {
		return err
	}
	defer release()

	if err := s.remote.DeleteShot(ctx, id, sceneID, shotID); err != nil {
		s.logger.Error("failed to delete shot", logging.ShotID(shotID), "error", err)
		return fmt.Errorf("delete shot %s: %w", shotID, err)
	}

	s.update(func(st *State) bool {
		if st.StoryboardID != id {
			return false
		}
		i := sceneIndex(st.Scenes, sceneID)
		if i < 0 {
			return false
		}
		j := shotIndex(st.Scenes[i].Shots, shotID)
		if j < 0 {
			return false
		}
		shots := st.Scenes[i].Shots
		st.Scenes[i].Shots = append(shots[:j:j], shots[j+1:]...)
		return true
	})
	s.logger.Info("shot deleted", logging.SceneID(sceneID), logging.ShotID(shotID))
	return nil
}

// UpdateShot applies a partial edit. Fields the remote schema stores are sent
// first; the local copy changes only once the remote accepted them.
func (s *Store) UpdateShot(ctx context.Context, sceneID, shotID string, u ShotUpdate) error {
	if err := u.validate(); err != nil {
		return err
	}
	snap := s.Snapshot()
	if !snap.Bound() {
		s.logger.Error("update shot ignored: no storyboard bound", logging.ShotID(shotID))
		return ErrUnbound
	}
	if err := findShotIn(snap, sceneID, shotID); err != nil {
		return err
	}
	id := snap.StoryboardID

	release, err := s.locks.acquire(ctx, shotKey(shotID))
	if err != nil {
		return err
	}
	defer release()

	if req := u.remote(); !req.Empty() {
		if err := s.remote.UpdateShot(ctx, id, sceneID, shotID, req); err != nil {
			s.logger.Error("failed to update shot",
				logging.SceneID(sceneID),
				logging.ShotID(shotID),
				"error", err,
			)
			return fmt.Errorf("update shot %s: %w", shotID, err)
		}
	}

	s.update(func(st *State) bool {
		if st.StoryboardID != id {
			return false
		}
		i := sceneIndex(st.Scenes, sceneID)
		if i < 0 {
			return false
		}
		j := shotIndex(st.Scenes[i].Shots, shotID)
		if j < 0 {
			return false
		}
		st.Scenes[i].Shots[j] = u.apply(st.Scenes[i].Shots[j])
		return true
	})
	return nil
}

// GenerateShot stores a new prompt for the shot, wherever it lives.
// Media generation itself is driven by the generation runner.
func (s *Store) GenerateShot(ctx context.Context, prompt, shotID string) error {
	sceneID, _, ok := s.Snapshot().FindShot(shotID)
	if !ok {
		return ErrShotNotFound
	}
	return s.UpdateShot(ctx, sceneID, shotID, ShotUpdate{Prompt: &prompt})
}

// GenerateAllMedia asks the remote to generate media for every shot of
// storyboardID, or of the bound storyboard when storyboardID is empty.
// It returns once the work is queued.
func (s *Store) GenerateAllMedia(ctx context.Context, storyboardID string) error {
	if storyboardID == "" {
		storyboardID = s.boundID()
	}
	if storyboardID == "" {
		s.logger.Error("generate media ignored: no storyboard bound")
		return ErrUnbound
	}
	if err := s.remote.GenerateStoryboardImages(ctx, storyboardID); err != nil {
		s.logger.Error("failed to request media generation", logging.StoryboardID(storyboardID), "error", err)
		return fmt.Errorf("generate media: %w", err)
	}
	s.logger.Info("media generation requested", logging.StoryboardID(storyboardID))
	return nil
}

// TriggerVideoExport requests a video export of the bound storyboard in the
// background and returns immediately. Failures are logged.
func (s *Store) TriggerVideoExport() bool {
	id := s.boundID()
	if id == "" {
		s.logger.Error("video export ignored: no storyboard bound")
		return false
	}

	s.logger.Info("video export requested", logging.StoryboardID(id))
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
		defer cancel()
		if err := s.remote.RequestExport(ctx, id); err != nil {
			s.logger.Error("video export failed", logging.StoryboardID(id), "error", err)
			return
		}
		s.logger.Info("video export accepted", logging.StoryboardID(id))
	}()
	return true
}

// Wait blocks until background work started by the store has finished.
func (s *Store) Wait() {
	s.bg.Wait()
}

// renumberScenes writes scene_number for every scene from position from on.
func (s *Store) renumberScenes(ctx context.Context, storyboardID string, from int) error {
	snap := s.Snapshot()
	if snap.StoryboardID != storyboardID {
		return nil
	}
	var errs []error
	for i := from; i < len(snap.Scenes); i++ {
		n := i + 1
		sceneID := snap.Scenes[i].ID
		if err := s.remote.UpdateScene(ctx, storyboardID, sceneID, cloud.SceneUpdateRequest{SceneNumber: &n}); err != nil {
			errs = append(errs, fmt.Errorf("renumber scene %s: %w", sceneID, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		s.logger.Warn("scene renumbering incomplete", logging.StoryboardID(storyboardID), "error", err)
		return err
	}
	return nil
}

func (s *Store) renumberShots(ctx context.Context, storyboardID, sceneID string, from int) error {
	snap := s.Snapshot()
	if snap.StoryboardID != storyboardID {
		return nil
	}
	scene, ok := snap.FindScene(sceneID)
	if !ok {
		return nil
	}
	var errs []error
	for i := from; i < len(scene.Shots); i++ {
		n := i + 1
		shotID := scene.Shots[i].ID
		if err := s.remote.UpdateShot(ctx, storyboardID, sceneID, shotID, cloud.ShotUpdateRequest{ShotNumber: &n}); err != nil {
			errs = append(errs, fmt.Errorf("renumber shot %s: %w", shotID, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		s.logger.Warn("shot renumbering incomplete", logging.SceneID(sceneID), "error", err)
		return err
	}
	return nil
}

func findShotIn(st State, sceneID, shotID string) error {
	scene, ok := st.FindScene(sceneID)
	if !ok {
		return ErrSceneNotFound
	}
	if shotIndex(scene.Shots, shotID) < 0 {
		return ErrShotNotFound
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func insertAt[T any](items []T, i int, item T) []T {
	out := make([]T, 0, len(items)+1)
	out = append(out, items[:i]...)
	out = append(out, item)
	return append(out, items[i:]...)
}
