package session

import (
	"errors"
	"time"

	"video-gen-pipeline/types"
)

// Stage is one step of a generation session's lifecycle. Stages only move
// forward; failed is reachable from any non-terminal stage.
type Stage string

const (
	StageInitializing    Stage = "initializing"
	StageResearching     Stage = "researching"
	StageScripting       Stage = "scripting"
	StageAssetSourcing   Stage = "asset_sourcing"
	StageAudioGeneration Stage = "audio_generation"
	StageVideoAssembly   Stage = "video_assembly"
	StageCompleted       Stage = "completed"
	StageFailed          Stage = "failed"
)

var stageOrder = map[Stage]int{
	StageInitializing:    0,
	StageResearching:     1,
	StageScripting:       2,
	StageAssetSourcing:   3,
	StageAudioGeneration: 4,
	StageVideoAssembly:   5,
	StageCompleted:       6,
}

// Fixed progress checkpoints. Each working stage has a start and a done
// value; completion pins progress at 1.0.
var stageStartProgress = map[Stage]float64{
	StageResearching:     0.1,
	StageScripting:       0.3,
	StageAssetSourcing:   0.5,
	StageAudioGeneration: 0.7,
	StageVideoAssembly:   0.9,
}

var stageDoneProgress = map[Stage]float64{
	StageResearching:     0.2,
	StageScripting:       0.4,
	StageAssetSourcing:   0.6,
	StageAudioGeneration: 0.8,
	StageVideoAssembly:   1.0,
}

// Terminal reports whether no further transitions may leave s.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}

// Known reports whether s is part of the lifecycle vocabulary.
func (s Stage) Known() bool {
	if s == StageFailed {
		return true
	}
	_, ok := stageOrder[s]
	return ok
}

// CanAdvanceTo reports whether a session at s may move to next: forward along
// the stage order, or into failed from any non-terminal stage.
func (s Stage) CanAdvanceTo(next Stage) bool {
	if s.Terminal() {
		return false
	}
	if next == StageFailed {
		return true
	}
	from, ok := stageOrder[s]
	if !ok {
		return false
	}
	to, ok := stageOrder[next]
	if !ok {
		return false
	}
	return to >= from
}

// StartProgress is the checkpoint recorded when work on a stage begins.
func StartProgress(s Stage) float64 {
	return stageStartProgress[s]
}

// DoneProgress is the checkpoint recorded when a stage's artifact is stored.
func DoneProgress(s Stage) float64 {
	return stageDoneProgress[s]
}

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionTerminal = errors.New("session is in a terminal stage")
)

// ErrorEntry is one recorded stage failure.
type ErrorEntry struct {
	Stage   string    `json:"stage"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Session is the full persisted record of one generation session: lifecycle
// position, retry bookkeeping, and references to every stage artifact
// produced so far.
type Session struct {
	ID                string                  `json:"session_id"`
	UserID            string                  `json:"user_id,omitempty"`
	Request           types.GenerationRequest `json:"request"`
	Stage             Stage                   `json:"stage"`
	Progress          float64                 `json:"progress"`
	RetryCounts       map[string]int          `json:"retry_counts,omitempty"`
	ErrorLog          []ErrorEntry            `json:"error_log,omitempty"`
	ErrorMessage      string                  `json:"error_message,omitempty"`
	Cancelled         bool                    `json:"cancelled,omitempty"`
	Research          *types.ResearchData     `json:"research,omitempty"`
	Script            *types.Script           `json:"script,omitempty"`
	Assets            *types.AssetCollection  `json:"assets,omitempty"`
	Audio             *types.AudioAssets      `json:"audio,omitempty"`
	FinalVideo        *types.FinalVideo       `json:"final_video,omitempty"`
	IntermediateFiles []string                `json:"intermediate_files,omitempty"`
	CreatedAt         time.Time               `json:"created_at"`
	UpdatedAt         time.Time               `json:"updated_at"`
}

// Status is the read-side projection of a session for status queries.
type Status struct {
	SessionID    string    `json:"session_id"`
	Stage        Stage     `json:"stage"`
	Progress     float64   `json:"progress"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Cancelled    bool      `json:"cancelled,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}
