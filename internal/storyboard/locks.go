package storyboard

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// entityLocks serializes remote writes per scene or shot id so that two
// overlapping edits of the same entity apply in call order instead of racing.
// Entries are dropped once nobody holds or waits on them.
type entityLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	sem  *semaphore.Weighted
	refs int
}

func newEntityLocks() *entityLocks {
	return &entityLocks{entries: make(map[string]*lockEntry)}
}

func (l *entityLocks) acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &lockEntry{sem: semaphore.NewWeighted(1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		l.drop(key, e)
		return nil, err
	}

	return func() {
		e.sem.Release(1)
		l.drop(key, e)
	}, nil
}

func (l *entityLocks) drop(key string, e *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

func (l *entityLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func sceneKey(id string) string { return "scene:" + id }
func shotKey(id string) string  { return "shot:" + id }
