package storyboard

import "context"

// ReorderScenes moves the scene activeID to the position held by overID.
// Unknown ids leave the order untouched and report false.
func (s *Store) ReorderScenes(activeID, overID string) bool {
	moved := false
	s.update(func(st *State) bool {
		from := sceneIndex(st.Scenes, activeID)
		to := sceneIndex(st.Scenes, overID)
		if from < 0 || to < 0 || from == to {
			return false
		}
		st.Scenes = move(st.Scenes, from, to)
		moved = true
		return true
	})
	return moved
}

// ReorderShotsInScene moves a shot within its scene. Shots never cross scenes.
func (s *Store) ReorderShotsInScene(sceneID, activeID, overID string) bool {
	moved := false
	s.update(func(st *State) bool {
		i := sceneIndex(st.Scenes, sceneID)
		if i < 0 {
			return false
		}
		shots := st.Scenes[i].Shots
		from := shotIndex(shots, activeID)
		to := shotIndex(shots, overID)
		if from < 0 || to < 0 || from == to {
			return false
		}
		st.Scenes[i].Shots = move(shots, from, to)
		moved = true
		return true
	})
	return moved
}

// PersistSceneOrder writes the local scene order to the remote as scene numbers.
func (s *Store) PersistSceneOrder(ctx context.Context) error {
	id := s.boundID()
	if id == "" {
		return ErrUnbound
	}
	return s.renumberScenes(ctx, id, 0)
}

// PersistShotOrder writes the local shot order of one scene to the remote.
func (s *Store) PersistShotOrder(ctx context.Context, sceneID string) error {
	snap := s.Snapshot()
	if !snap.Bound() {
		return ErrUnbound
	}
	if _, ok := snap.FindScene(sceneID); !ok {
		return ErrSceneNotFound
	}
	return s.renumberShots(ctx, snap.StoryboardID, sceneID, 0)
}

// move returns a copy of items with the element at from spliced into to.
func move[T any](items []T, from, to int) []T {
	out := make([]T, 0, len(items))
	out = append(out, items[:from]...)
	out = append(out, items[from+1:]...)
	return insertAt(out, to, items[from])
}
