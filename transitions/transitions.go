// Package transitions selects and builds the transition effects applied
// between adjacent video segments.
package transitions

import (
	"fmt"
	"os"
	"strings"

	"video-gen-pipeline/types"
)

// Type is one member of the closed transition vocabulary.
type Type string

const (
	Crossfade Type = "crossfade"
	FadeIn    Type = "fade_in"
	FadeOut   Type = "fade_out"
	Slide     Type = "slide"
	Wipe      Type = "wipe"
	Zoom      Type = "zoom"
	Dissolve  Type = "dissolve"
	Pixelize  Type = "pixelize"
	Radial    Type = "radial"
	Smooth    Type = "smooth"
)

// DefaultDuration is the transition length assigned before per-segment tuning.
const DefaultDuration = 0.5

// filterNames maps each vocabulary member to its xfade effect name.
var filterNames = map[Type]string{
	Crossfade: "fade",
	FadeIn:    "fadein",
	FadeOut:   "fadeout",
	Slide:     "slideleft",
	Wipe:      "wipeleft",
	Zoom:      "zoomin",
	Dissolve:  "dissolve",
	Pixelize:  "pixelize",
	Radial:    "radial",
	Smooth:    "smoothleft",
}

// Normalize resolves an arbitrary transition name to a vocabulary member.
// Unknown names resolve to Crossfade; this is the only fallback rule.
func Normalize(s string) Type {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := filterNames[t]; ok {
		return t
	}
	return Crossfade
}

// FilterName returns the xfade effect name for t, after normalization.
func FilterName(t Type) string {
	return filterNames[Normalize(string(t))]
}

// SuggestForScene picks a transition from free-text scene content.
// Keywords are checked in priority order.
func SuggestForScene(description string) Type {
	desc := strings.ToLower(description)
	switch {
	case strings.Contains(desc, "dramatic") || strings.Contains(desc, "intense"):
		return Zoom
	case strings.Contains(desc, "peaceful") || strings.Contains(desc, "calm"):
		return Dissolve
	case strings.Contains(desc, "action") || strings.Contains(desc, "fast"):
		return Slide
	case strings.Contains(desc, "emotional"):
		return FadeIn
	default:
		return Crossfade
	}
}

// OptimalDuration returns the transition length for a segment: 7.5% of the
// segment duration, clamped to [0.5, 3.0] seconds.
func OptimalDuration(segmentDurationSec float64) float64 {
	d := segmentDurationSec * 0.075
	if d < 0.5 {
		return 0.5
	}
	if d > 3.0 {
		return 3.0
	}
	return d
}

// Step describes the transition between one adjacent segment pair.
type Step struct {
	Type     Type
	Duration float64
}

// BuildChain builds the encoder args that chain segments into a single output:
// segment 0 transitions into segment 1 with steps[0], the intermediate result
// into segment 2 with steps[1], and so on. Steps beyond the provided list fall
// back to a default crossfade. Returns a ValidationError if fewer than two
// segments are given or any backing file is missing.
func BuildChain(segments []string, steps []Step, output string) ([]string, error) {
	if len(segments) < 2 {
		return nil, &types.ValidationError{
			Field:  "segments",
			Reason: fmt.Sprintf("need at least 2 segments for transitions, got %d", len(segments)),
		}
	}
	for _, seg := range segments {
		if _, err := os.Stat(seg); err != nil {
			return nil, &types.ValidationError{
				Field:  "segments",
				Reason: fmt.Sprintf("segment file not found: %s", seg),
			}
		}
	}

	args := []string{"-y"}
	for _, seg := range segments {
		args = append(args, "-i", seg)
	}

	var filter strings.Builder
	prev := "[0:v]"
	for i := 1; i < len(segments); i++ {
		step := Step{Type: Crossfade, Duration: DefaultDuration}
		if i-1 < len(steps) {
			step = steps[i-1]
			if step.Duration <= 0 {
				step.Duration = DefaultDuration
			}
		}

		label := fmt.Sprintf("[t%d]", i)
		if i > 1 {
			filter.WriteString(";")
		}
		filter.WriteString(fmt.Sprintf("%s[%d:v]xfade=transition=%s:duration=%.2f:offset=0%s",
			prev, i, FilterName(step.Type), step.Duration, label))
		prev = label
	}

	args = append(args,
		"-filter_complex", filter.String(),
		"-map", prev,
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		"-an",
		output,
	)
	return args, nil
}
