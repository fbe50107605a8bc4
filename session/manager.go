package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"video-gen-pipeline/eventlog"
	"video-gen-pipeline/types"
)

const (
	// maxStageRetries is the per-stage failure ceiling before a session is
	// marked failed.
	maxStageRetries = 3

	storeUpdateAttempts = 3
	storeUpdateDelay    = 1 * time.Second

	statusReadAttempts = 3
	statusReadDelay    = 500 * time.Millisecond
)

// Update is one atomic state transition: the stage and progress to record,
// plus any artifacts, error text, and file references produced along the way.
type Update struct {
	Stage        Stage
	Progress     float64
	ErrorMessage string
	Research     *types.ResearchData
	Script       *types.Script
	Assets       *types.AssetCollection
	Audio        *types.AudioAssets
	FinalVideo   *types.FinalVideo
	Files        []string
	// ClearRetries names a stage whose retry counter is wiped, used when
	// that stage has just completed.
	ClearRetries Stage
}

// Manager is the only mutation path for session state. All stage and
// progress changes go through Advance so every transition is persisted and
// audited; coordinators never write session fields directly.
type Manager struct {
	store  Store
	events *eventlog.Logger
	mu     sync.Mutex
}

func NewManager(store Store, events *eventlog.Logger) *Manager {
	return &Manager{store: store, events: events}
}

// CreateSession registers a new session in the initializing stage.
func (m *Manager) CreateSession(ctx context.Context, req types.GenerationRequest, userID string) (*Session, error) {
	now := time.Now().UTC()
	s := &Session{
		ID:          uuid.NewString(),
		UserID:      userID,
		Request:     req,
		Stage:       StageInitializing,
		Progress:    0.0,
		RetryCounts: map[string]int{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := m.store.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	m.appendEvent(eventlog.Event{Event: eventlog.EventSessionCreated, SessionID: s.ID})
	log.Printf("[session] Created session %s", s.ID)
	return s, nil
}

// GetSession loads the full session record.
func (m *Manager) GetSession(ctx context.Context, id string) (*Session, error) {
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	if s == nil {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Advance applies one state transition. It rejects transitions on missing
// sessions, out of terminal stages, and backwards along the stage order.
// Progress never decreases except when the session fails.
func (m *Manager) Advance(ctx context.Context, sessionID string, u Update) error {
	if !u.Stage.Known() {
		return fmt.Errorf("unknown stage %q", u.Stage)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("get session %s: %w", sessionID, err)
	}
	if s == nil {
		log.Printf("[session] ⚠️ Session %s not found for advance to %s", sessionID, u.Stage)
		return ErrSessionNotFound
	}

	return m.advanceLocked(ctx, s, u)
}

// advanceLocked mutates a loaded record and persists it. Callers hold m.mu.
func (m *Manager) advanceLocked(ctx context.Context, s *Session, u Update) error {
	if s.Stage.Terminal() {
		log.Printf("[session] ⚠️ Session %s is %s; refusing advance to %s", s.ID, s.Stage, u.Stage)
		return ErrSessionTerminal
	}
	if !s.Stage.CanAdvanceTo(u.Stage) {
		return fmt.Errorf("cannot advance session %s from %s to %s", s.ID, s.Stage, u.Stage)
	}

	now := time.Now().UTC()
	failedFrom := s.Stage
	s.Stage = u.Stage
	if u.Stage == StageFailed {
		if u.ErrorMessage != "" {
			s.ErrorLog = append(s.ErrorLog, ErrorEntry{Stage: string(failedFrom), Message: u.ErrorMessage, Time: now})
		}
	} else if p := clamp01(u.Progress); p > s.Progress {
		s.Progress = p
	}
	if u.ErrorMessage != "" {
		s.ErrorMessage = u.ErrorMessage
	}

	if u.Research != nil {
		s.Research = u.Research
	}
	if u.Script != nil {
		s.Script = u.Script
	}
	if u.Assets != nil {
		s.Assets = u.Assets
	}
	if u.Audio != nil {
		s.Audio = u.Audio
	}
	if u.FinalVideo != nil {
		s.FinalVideo = u.FinalVideo
	}
	for _, f := range u.Files {
		s.IntermediateFiles = appendUnique(s.IntermediateFiles, f)
	}
	if u.ClearRetries != "" && s.RetryCounts != nil {
		delete(s.RetryCounts, string(u.ClearRetries))
	}
	s.UpdatedAt = now

	if err := m.updateWithRetry(ctx, s); err != nil {
		return err
	}

	m.appendEvent(eventlog.Event{
		Event:     eventFor(u),
		SessionID: s.ID,
		Stage:     string(u.Stage),
		Progress:  s.Progress,
		Error:     u.ErrorMessage,
	})
	log.Printf("[session] Session %s -> %s (progress %.2f)", s.ID, s.Stage, s.Progress)
	return nil
}

// HandleStageError records a stage worker failure. Below the retry ceiling
// the session stays in its current stage and the caller may retry; at the
// ceiling the session transitions to failed. Returns whether a retry is
// allowed.
func (m *Manager) HandleStageError(ctx context.Context, sessionID string, stage Stage, cause error) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	if s == nil {
		return false, ErrSessionNotFound
	}
	if s.Stage.Terminal() {
		return false, ErrSessionTerminal
	}

	now := time.Now().UTC()
	if s.RetryCounts == nil {
		s.RetryCounts = map[string]int{}
	}
	count := s.RetryCounts[string(stage)] + 1
	s.RetryCounts[string(stage)] = count
	s.ErrorLog = append(s.ErrorLog, ErrorEntry{Stage: string(stage), Message: cause.Error(), Time: now})

	if count < maxStageRetries {
		s.UpdatedAt = now
		if err := m.updateWithRetry(ctx, s); err != nil {
			return false, err
		}
		m.appendEvent(eventlog.Event{
			Event:     eventlog.EventStageRetry,
			SessionID: s.ID,
			Stage:     string(stage),
			Error:     cause.Error(),
			Attempt:   count,
		})
		log.Printf("[session] ⚠️ %s failed for session %s (attempt %d/%d): %v", stage, s.ID, count, maxStageRetries, cause)
		return true, nil
	}

	msg := fmt.Sprintf("Max retries exceeded for %s", stage)
	if err := m.advanceLocked(ctx, s, Update{Stage: StageFailed, ErrorMessage: msg}); err != nil {
		return false, err
	}
	return false, nil
}

// GetStatus reads a session's status projection, retrying transient store
// failures with linear backoff. A missing session reports ErrSessionNotFound
// immediately and is never retried.
func (m *Manager) GetStatus(ctx context.Context, sessionID string) (*Status, error) {
	var lastErr error
	for attempt := 1; attempt <= statusReadAttempts; attempt++ {
		s, err := m.store.Get(ctx, sessionID)
		if err == nil {
			if s == nil {
				return nil, ErrSessionNotFound
			}
			return &Status{
				SessionID:    s.ID,
				Stage:        s.Stage,
				Progress:     s.Progress,
				ErrorMessage: s.ErrorMessage,
				Cancelled:    s.Cancelled,
				UpdatedAt:    s.UpdatedAt,
			}, nil
		}

		lastErr = err
		if attempt < statusReadAttempts {
			log.Printf("[session] ⚠️ Status read failed for %s (attempt %d/%d): %v", sessionID, attempt, statusReadAttempts, err)
			if err := sleepCtx(ctx, time.Duration(attempt)*statusReadDelay); err != nil {
				return nil, err
			}
		}
	}
	return nil, fmt.Errorf("get status for %s: %w", sessionID, lastErr)
}

// Cancel marks a session for cooperative cancellation. The running pipeline
// notices the flag at its next stage boundary and aborts into failed.
func (m *Manager) Cancel(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("get session %s: %w", sessionID, err)
	}
	if s == nil {
		return ErrSessionNotFound
	}
	if s.Stage.Terminal() {
		return ErrSessionTerminal
	}

	s.Cancelled = true
	s.UpdatedAt = time.Now().UTC()
	if err := m.updateWithRetry(ctx, s); err != nil {
		return err
	}

	m.appendEvent(eventlog.Event{Event: eventlog.EventSessionCancelled, SessionID: s.ID, Stage: string(s.Stage)})
	log.Printf("[session] Session %s cancelled", s.ID)
	return nil
}

// IsCancelled reports the cooperative cancellation flag.
func (m *Manager) IsCancelled(ctx context.Context, sessionID string) (bool, error) {
	s, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	if s == nil {
		return false, ErrSessionNotFound
	}
	return s.Cancelled, nil
}

// TrackFile records an intermediate file for end-of-life cleanup.
func (m *Manager) TrackFile(ctx context.Context, sessionID, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("get session %s: %w", sessionID, err)
	}
	if s == nil {
		return ErrSessionNotFound
	}

	before := len(s.IntermediateFiles)
	s.IntermediateFiles = appendUnique(s.IntermediateFiles, path)
	if len(s.IntermediateFiles) == before {
		return nil
	}
	s.UpdatedAt = time.Now().UTC()
	return m.updateWithRetry(ctx, s)
}

// StartCleanup runs a background loop deleting terminal sessions unmodified
// for longer than maxAge. The loop stops when ctx is done.
func (m *Manager) StartCleanup(ctx context.Context, interval, maxAge time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := m.CleanupExpired(ctx, maxAge)
				if err != nil {
					log.Printf("[session] ⚠️ Cleanup pass failed: %v", err)
					continue
				}
				if n > 0 {
					log.Printf("[session] Cleaned up %d expired sessions", n)
				}
			}
		}
	}()
	log.Printf("[session] Started cleanup task (every %s, max age %s)", interval, maxAge)
}

// CleanupExpired deletes terminal sessions whose last update is older than
// maxAge. Intermediate files stay on disk; their paths are kept in the record
// for external housekeeping until the record goes. Returns the number of
// sessions deleted.
func (m *Manager) CleanupExpired(ctx context.Context, maxAge time.Duration) (int, error) {
	sessions, err := m.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}

	cutoff := time.Now().UTC().Add(-maxAge)
	deleted := 0
	for _, s := range sessions {
		if !s.Stage.Terminal() || !s.UpdatedAt.Before(cutoff) {
			continue
		}
		if err := m.store.Delete(ctx, s.ID); err != nil {
			log.Printf("[session] ⚠️ Failed to delete expired session %s: %v", s.ID, err)
			continue
		}
		deleted++
		log.Printf("[session] Deleted expired session %s (stage %s)", s.ID, s.Stage)
	}
	return deleted, nil
}

func (m *Manager) updateWithRetry(ctx context.Context, s *Session) error {
	var lastErr error
	for attempt := 1; attempt <= storeUpdateAttempts; attempt++ {
		err := m.store.Update(ctx, s)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrSessionNotFound) {
			return err
		}

		lastErr = err
		if attempt < storeUpdateAttempts {
			log.Printf("[session] ⚠️ Store update failed for %s (attempt %d/%d): %v", s.ID, attempt, storeUpdateAttempts, err)
			if err := sleepCtx(ctx, time.Duration(attempt)*storeUpdateDelay); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("update session %s: %w", s.ID, lastErr)
}

func (m *Manager) appendEvent(e eventlog.Event) {
	if m.events == nil {
		return
	}
	if err := m.events.Append(e); err != nil {
		log.Printf("[session] ⚠️ Failed to append event %s: %v", e.Event, err)
	}
}

func eventFor(u Update) string {
	switch {
	case u.Stage == StageFailed:
		return eventlog.EventSessionFailed
	case u.Stage == StageCompleted:
		return eventlog.EventSessionCompleted
	case u.Progress == StartProgress(u.Stage):
		return eventlog.EventStageStarted
	default:
		return eventlog.EventStageCompleted
	}
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
