package editor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/videostack/storyboard-agent/internal/generation"
	"github.com/videostack/storyboard-agent/internal/logging"
	"github.com/videostack/storyboard-agent/internal/storyboard"
)

const defaultPollInterval = 5 * time.Second

// Store is the storyboard store surface the editor drives.
type Store interface {
	Snapshot() storyboard.State
	Subscribe(fn func(storyboard.State)) func()
	Load(ctx context.Context, storyboardID string) error
	Poll(ctx context.Context) error
	Reset()
	StartPolling()
	StopPolling()
	UpdateShot(ctx context.Context, sceneID, shotID string, u storyboard.ShotUpdate) error
	ReorderScenes(activeID, overID string) bool
	ReorderShotsInScene(sceneID, activeID, overID string) bool
	PersistSceneOrder(ctx context.Context) error
	PersistShotOrder(ctx context.Context, sceneID string) error
}

// Generator starts media generation for a single shot.
type Generator interface {
	GenerateShot(ctx context.Context, shotID string, params generation.Params) (*generation.Job, error)
}

// Editor binds the store to the storyboard being edited and owns the poll timer.
type Editor struct {
	store        Store
	logger       *slog.Logger
	pollInterval time.Duration
	modal        *ShotModal

	mu           sync.Mutex
	lastLoadedID string
	pollCancel   context.CancelFunc
	pollDone     chan struct{}
}

func New(store Store, gen Generator, pollInterval time.Duration, logger *slog.Logger) *Editor {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	logger = logging.WithComponent(logging.OrDiscard(logger), "editor")
	return &Editor{
		store:        store,
		logger:       logger,
		pollInterval: pollInterval,
		modal:        newShotModal(store, gen, logger),
	}
}

func (e *Editor) Modal() *ShotModal { return e.modal }

// Mount loads storyboardID unless it is the id loaded last. A load that fails,
// or is superseded before the store holds storyboardID, clears the guard so
// the next Mount retries.
func (e *Editor) Mount(ctx context.Context, storyboardID string) error {
	if storyboardID == "" {
		return storyboard.ErrUnbound
	}

	e.mu.Lock()
	if e.lastLoadedID == storyboardID {
		e.mu.Unlock()
		return nil
	}
	e.lastLoadedID = storyboardID
	e.mu.Unlock()

	err := e.store.Load(ctx, storyboardID)
	if errors.Is(err, storyboard.ErrStaleLoad) && e.store.Snapshot().StoryboardID == storyboardID {
		err = nil
	}
	if err != nil {
		e.mu.Lock()
		if e.lastLoadedID == storyboardID {
			e.lastLoadedID = ""
		}
		e.mu.Unlock()
		return err
	}
	e.logger.Info("editor mounted", logging.StoryboardID(storyboardID))
	return nil
}

// Unmount stops polling, closes the modal with autosave and clears the store.
func (e *Editor) Unmount(ctx context.Context) error {
	e.StopPolling()

	var closeErr error
	if e.modal.State() != ModalClosed {
		closeErr = e.modal.Close(ctx)
		if closeErr != nil {
			e.logger.Warn("modal autosave failed on unmount", "error", closeErr)
			e.modal.discard()
		}
	}

	e.mu.Lock()
	e.lastLoadedID = ""
	e.mu.Unlock()
	e.store.Reset()
	return closeErr
}

// MountedID returns the id of the storyboard loaded by the last Mount.
func (e *Editor) MountedID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastLoadedID
}

// HandleSceneDragEnd moves the dragged scene onto the drop target and persists
// the new numbering. Dropping a scene onto itself does nothing.
func (e *Editor) HandleSceneDragEnd(ctx context.Context, activeID, overID string) error {
	if overID == "" || activeID == overID {
		return nil
	}
	if !e.store.ReorderScenes(activeID, overID) {
		return nil
	}
	return e.store.PersistSceneOrder(ctx)
}

func (e *Editor) HandleShotDragEnd(ctx context.Context, sceneID, activeID, overID string) error {
	if overID == "" || activeID == overID {
		return nil
	}
	if !e.store.ReorderShotsInScene(sceneID, activeID, overID) {
		return nil
	}
	return e.store.PersistShotOrder(ctx, sceneID)
}

// StartPolling turns polling on and starts the single refresh timer. It
// reports false when a timer is already running.
func (e *Editor) StartPolling(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pollCancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	e.pollCancel = cancel
	e.pollDone = done
	e.store.StartPolling()

	go e.pollLoop(ctx, done)
	return true
}

// StopPolling stops the timer and waits for an in-flight poll to return.
func (e *Editor) StopPolling() {
	e.mu.Lock()
	cancel, done := e.pollCancel, e.pollDone
	e.pollCancel, e.pollDone = nil, nil
	e.mu.Unlock()

	e.store.StopPolling()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (e *Editor) IsPolling() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pollCancel != nil
}

func (e *Editor) pollLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.store.Poll(ctx); err != nil && ctx.Err() == nil {
				e.logger.Warn("storyboard poll failed", "error", err)
			}
		}
	}
}

// Totals is derived from the current scenes on every call.
func (e *Editor) Totals() storyboard.Totals {
	return storyboard.Aggregate(e.store.Snapshot().Scenes)
}
