package types

import (
	"fmt"
	"strings"
)

// Boundary limits. Requests and scripts are validated once on ingress and
// trusted everywhere downstream.
const (
	MinPromptLen = 10
	MaxPromptLen = 2000

	MinDurationSec = 10
	MaxDurationSec = 600

	MaxSceneDurationSec = 120.0
)

// Validate checks a generation request against the boundary limits.
func (r *GenerationRequest) Validate() error {
	prompt := strings.TrimSpace(r.Prompt)
	if len(prompt) < MinPromptLen {
		return &ValidationError{Field: "prompt", Reason: fmt.Sprintf("must be at least %d characters", MinPromptLen)}
	}
	if len(prompt) > MaxPromptLen {
		return &ValidationError{Field: "prompt", Reason: fmt.Sprintf("must be at most %d characters", MaxPromptLen)}
	}
	if r.DurationSec < MinDurationSec || r.DurationSec > MaxDurationSec {
		return &ValidationError{Field: "duration_sec", Reason: fmt.Sprintf("must be between %d and %d seconds", MinDurationSec, MaxDurationSec)}
	}
	return nil
}

// Validate checks scene numbering and per-scene durations. Scene numbers must
// be sequential starting at 1.
func (s *Script) Validate() error {
	if len(s.Scenes) == 0 {
		return &ValidationError{Field: "scenes", Reason: "script has no scenes"}
	}
	for i, scene := range s.Scenes {
		if scene.Number != i+1 {
			return &ValidationError{
				Field:  "scene_number",
				Reason: fmt.Sprintf("scene %d has number %d, want %d", i, scene.Number, i+1),
			}
		}
		if scene.DurationSec <= 0 || scene.DurationSec > MaxSceneDurationSec {
			return &ValidationError{
				Field:  "duration_sec",
				Reason: fmt.Sprintf("scene %d duration %.2fs outside (0, %.0f]", scene.Number, scene.DurationSec, MaxSceneDurationSec),
			}
		}
	}
	return nil
}
