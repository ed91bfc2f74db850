package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/videostack/storyboard-agent/internal/generation"
	"github.com/videostack/storyboard-agent/internal/logging"
	"github.com/videostack/storyboard-agent/internal/storyboard"
)

type ModalState int

const (
	ModalClosed ModalState = iota
	ModalOpen
	ModalGenerating
)

func (s ModalState) String() string {
	switch s {
	case ModalOpen:
		return "open"
	case ModalGenerating:
		return "generating"
	default:
		return "closed"
	}
}

func (s ModalState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ModalState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "closed":
		*s = ModalClosed
	case "open":
		*s = ModalOpen
	case "generating":
		*s = ModalGenerating
	default:
		return fmt.Errorf("unknown modal state %q", b)
	}
	return nil
}

var (
	ErrModalClosed        = errors.New("shot modal is not open")
	ErrModalBusy          = errors.New("shot modal is already open")
	ErrDraftLocked        = errors.New("draft is locked while generating")
	ErrRegenerateDisabled = errors.New("regenerate is disabled for the current draft")
)

// Draft is the uncommitted edit held by the modal.
type Draft struct {
	Prompt          string                `json:"prompt"`
	DurationSeconds int                   `json:"duration_in_seconds"`
	VideoModel      generation.VideoModel `json:"video_model"`
}

// ModalView is a point-in-time read of the modal for rendering.
type ModalView struct {
	State         ModalState      `json:"state"`
	SceneID       string          `json:"scene_id,omitempty"`
	Shot          storyboard.Shot `json:"shot"`
	Draft         Draft           `json:"draft"`
	CanRegenerate bool            `json:"can_regenerate"`
	Error         string          `json:"error,omitempty"`
}

// generationWatch records the shot as it was when generation started.
type generationWatch struct {
	prompt      string
	imageURL    string
	videoURL    string
	startFailed bool
	progressed  bool
}

// ShotModal edits one shot at a time:
// Closed -> Open -> Generating -> Open -> Closed.
type ShotModal struct {
	store  Store
	gen    Generator
	logger *slog.Logger

	mu                  sync.Mutex
	state               ModalState
	sceneID             string
	shotID              string
	draft               Draft
	lastGeneratedPrompt string
	watch               generationWatch
	errMsg              string
	unsubscribe         func()
}

func newShotModal(store Store, gen Generator, logger *slog.Logger) *ShotModal {
	return &ShotModal{store: store, gen: gen, logger: logger}
}

// Open seeds the draft from the shot's committed values.
func (m *ShotModal) Open(shotID string) (ModalView, error) {
	st := m.store.Snapshot()
	if !st.Bound() {
		return ModalView{}, storyboard.ErrUnbound
	}
	sceneID, shot, ok := st.FindShot(shotID)
	if !ok {
		return ModalView{}, storyboard.ErrShotNotFound
	}

	m.mu.Lock()
	if m.state != ModalClosed {
		m.mu.Unlock()
		return ModalView{}, ErrModalBusy
	}
	m.state = ModalOpen
	m.sceneID = sceneID
	m.shotID = shotID
	m.draft = Draft{
		Prompt:          shot.Prompt,
		DurationSeconds: shot.Duration(),
		VideoModel:      generation.VideoModelVeo3,
	}
	m.lastGeneratedPrompt = shot.Prompt
	m.watch = generationWatch{}
	m.errMsg = ""
	m.mu.Unlock()

	unsubscribe := m.store.Subscribe(m.observe)
	m.mu.Lock()
	m.unsubscribe = unsubscribe
	m.mu.Unlock()

	m.logger.Debug("shot modal opened", logging.ShotID(shotID))
	return m.View(), nil
}

func (m *ShotModal) State() ModalState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *ShotModal) View() ModalView {
	m.mu.Lock()
	state, sceneID, shotID := m.state, m.sceneID, m.shotID
	draft, lastPrompt, errMsg := m.draft, m.lastGeneratedPrompt, m.errMsg
	m.mu.Unlock()

	view := ModalView{State: state, Draft: draft, Error: errMsg}
	if state == ModalClosed {
		return view
	}
	view.SceneID = sceneID
	if _, shot, ok := m.store.Snapshot().FindShot(shotID); ok {
		view.Shot = shot
		view.CanRegenerate = state == ModalOpen && canRegenerate(shot, draft.Prompt, lastPrompt)
	}
	return view
}

// CanRegenerate is false while generating, for an empty prompt, and when the
// shot already has media produced from the drafted prompt.
func (m *ShotModal) CanRegenerate() bool {
	return m.View().CanRegenerate
}

func canRegenerate(shot storyboard.Shot, draftPrompt, lastPrompt string) bool {
	if draftPrompt == "" {
		return false
	}
	return !(shot.HasMedia() && draftPrompt == lastPrompt)
}

func (m *ShotModal) SetPrompt(prompt string) error {
	return m.edit(func(d *Draft) { d.Prompt = prompt })
}

// SetDuration clamps seconds into the allowed shot duration range.
func (m *ShotModal) SetDuration(seconds int) error {
	seconds = max(storyboard.MinShotDurationSeconds, min(seconds, storyboard.MaxShotDurationSeconds))
	return m.edit(func(d *Draft) { d.DurationSeconds = seconds })
}

func (m *ShotModal) SetVideoModel(model generation.VideoModel) error {
	if err := generation.DefaultVideoParams(model).Validate(); err != nil {
		return err
	}
	return m.edit(func(d *Draft) { d.VideoModel = model })
}

func (m *ShotModal) edit(fn func(d *Draft)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case ModalClosed:
		return ErrModalClosed
	case ModalGenerating:
		return ErrDraftLocked
	}
	fn(&m.draft)
	return nil
}

// Close persists a draft that differs from the committed shot, then closes.
// A failed save keeps the modal open so the edit is not lost.
func (m *ShotModal) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.state == ModalClosed {
		m.mu.Unlock()
		return nil
	}
	sceneID, shotID, draft := m.sceneID, m.shotID, m.draft
	m.mu.Unlock()

	if err := m.saveDraft(ctx, sceneID, shotID, draft); err != nil {
		if !errors.Is(err, storyboard.ErrShotNotFound) && !errors.Is(err, storyboard.ErrSceneNotFound) {
			m.mu.Lock()
			m.errMsg = err.Error()
			m.mu.Unlock()
			return fmt.Errorf("autosave shot %s: %w", shotID, err)
		}
	}

	m.discard()
	m.logger.Debug("shot modal closed", logging.ShotID(shotID))
	return nil
}

// discard closes without saving.
func (m *ShotModal) discard() {
	m.mu.Lock()
	unsubscribe := m.unsubscribe
	m.state = ModalClosed
	m.sceneID, m.shotID = "", ""
	m.draft = Draft{}
	m.watch = generationWatch{}
	m.errMsg = ""
	m.unsubscribe = nil
	m.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (m *ShotModal) saveDraft(ctx context.Context, sceneID, shotID string, draft Draft) error {
	_, shot, ok := m.store.Snapshot().FindShot(shotID)
	if !ok {
		return storyboard.ErrShotNotFound
	}

	var u storyboard.ShotUpdate
	if draft.Prompt != shot.Prompt {
		u.Prompt = &draft.Prompt
	}
	if draft.DurationSeconds != shot.Duration() {
		u.DurationSeconds = &draft.DurationSeconds
	}
	if u.Prompt == nil && u.DurationSeconds == nil {
		return nil
	}
	return m.store.UpdateShot(ctx, sceneID, shotID, u)
}

// Regenerate saves the draft and starts generation of kind for the shot. The
// modal stays in Generating until the store shows new media or a failure.
func (m *ShotModal) Regenerate(ctx context.Context, kind generation.Kind) error {
	m.mu.Lock()
	if m.state != ModalOpen {
		defer m.mu.Unlock()
		if m.state == ModalGenerating {
			return ErrDraftLocked
		}
		return ErrModalClosed
	}
	sceneID, shotID, draft, lastPrompt := m.sceneID, m.shotID, m.draft, m.lastGeneratedPrompt
	m.mu.Unlock()

	var params generation.Params
	switch kind {
	case generation.KindImage:
		params = generation.DefaultImageParams()
	case generation.KindVideo:
		params = generation.DefaultVideoParams(draft.VideoModel)
	default:
		return fmt.Errorf("%w: shots generate image or video, not %s", generation.ErrInvalidParams, kind)
	}

	_, shot, ok := m.store.Snapshot().FindShot(shotID)
	if !ok {
		return storyboard.ErrShotNotFound
	}
	if !canRegenerate(shot, draft.Prompt, lastPrompt) {
		return ErrRegenerateDisabled
	}

	if err := m.saveDraft(ctx, sceneID, shotID, draft); err != nil {
		m.setError(err)
		return err
	}

	_, shot, _ = m.store.Snapshot().FindShot(shotID)
	m.mu.Lock()
	if m.state != ModalOpen || m.shotID != shotID {
		m.mu.Unlock()
		return ErrModalClosed
	}
	m.state = ModalGenerating
	m.errMsg = ""
	m.watch = generationWatch{
		prompt:      draft.Prompt,
		imageURL:    shot.ImageURL,
		videoURL:    shot.VideoURL,
		startFailed: shot.Status == storyboard.ShotStatusFailed,
	}
	m.mu.Unlock()

	log := m.logger.With(logging.ShotID(shotID))
	log.Info("regenerating shot", "kind", kind)

	if _, err := m.gen.GenerateShot(ctx, shotID, params); err != nil {
		m.mu.Lock()
		if m.state == ModalGenerating && m.shotID == shotID {
			m.state = ModalOpen
			m.errMsg = err.Error()
		}
		m.mu.Unlock()
		log.Warn("shot generation rejected", "error", err)
		return err
	}
	return nil
}

func (m *ShotModal) setError(err error) {
	m.mu.Lock()
	m.errMsg = err.Error()
	m.mu.Unlock()
}

// observe watches store changes for the result of a running generation.
func (m *ShotModal) observe(st storyboard.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != ModalGenerating {
		return
	}

	_, shot, ok := st.FindShot(m.shotID)
	if !ok {
		m.state = ModalOpen
		m.errMsg = storyboard.ErrShotNotFound.Error()
		return
	}

	changed := shot.ImageURL != m.watch.imageURL || shot.VideoURL != m.watch.videoURL
	// A result may reuse the previous URL, so completion after the shot was
	// seen in flight also counts.
	if changed || (m.watch.progressed && shot.Status == storyboard.ShotStatusCompleted) {
		m.state = ModalOpen
		m.lastGeneratedPrompt = m.watch.prompt
		m.errMsg = ""
		return
	}

	switch shot.Status {
	case storyboard.ShotStatusPending, storyboard.ShotStatusProcessing:
		m.watch.progressed = true
		return
	case storyboard.ShotStatusFailed:
	default:
		return
	}
	if m.watch.startFailed && !m.watch.progressed {
		return
	}
	m.state = ModalOpen
	m.errMsg = shot.ErrorMessage
	if m.errMsg == "" {
		m.errMsg = "generation failed"
	}
}
