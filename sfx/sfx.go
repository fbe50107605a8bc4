// Package sfx lays ambience beds under the narration track. Beds are matched
// to scenes by tag keywords and cued at the scene's start time on the
// synchronized timeline.
package sfx

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"video-gen-pipeline/config"
	"video-gen-pipeline/types"
)

// Cue schedules one bed on the output timeline.
type Cue struct {
	File        string  `json:"file"`
	StartSec    float64 `json:"start_sec"`
	DurationSec float64 `json:"duration_sec"`
}

// Matcher assigns ambience beds to timeline entries.
type Matcher struct {
	dir        string
	defaultBed string
	volume     float64
	fadeIn     float64
	fadeOut    float64
	tags       map[string][]string // bed filename -> tag words
}

func NewMatcher(cfg *config.Config) *Matcher {
	return &Matcher{
		dir:        cfg.SFX.LibraryDir,
		defaultBed: cfg.SFX.DefaultBed,
		volume:     cfg.SFX.Volume,
		fadeIn:     cfg.SFX.FadeInSec,
		fadeOut:    cfg.SFX.FadeOutSec,
		tags:       loadTags(cfg.SFX.TagsFile),
	}
}

// Match picks a bed per timeline entry by tag keywords in the scene dialogue.
// Entries with no matching bed and no default are skipped; so are beds whose
// backing file is missing.
func (m *Matcher) Match(entries []types.TimelineEntry) []Cue {
	var cues []Cue
	for _, entry := range entries {
		name := m.pickBed(entry.Dialogue)
		if name == "" {
			continue
		}
		path := filepath.Join(m.dir, name)
		if _, err := os.Stat(path); err != nil {
			log.Printf("[sfx] Scene %d: bed file not found: %s", entry.SceneNumber, path)
			continue
		}
		cues = append(cues, Cue{File: path, StartSec: entry.StartTime, DurationSec: entry.DurationSec})
	}
	return cues
}

// pickBed returns the first bed whose tags appear in the dialogue, falling
// back to the configured default bed.
func (m *Matcher) pickBed(dialogue string) string {
	text := strings.ToLower(dialogue)
	for name, tags := range m.tags {
		for _, tag := range tags {
			if tag != "" && strings.Contains(text, strings.ToLower(tag)) {
				return name
			}
		}
	}
	return m.defaultBed
}

// MixArgs builds the codec argument list that mixes the cued beds under the
// narration track: each bed is trimmed to its cue's duration, attenuated,
// faded, delayed to its start time, and mixed against the narration.
func (m *Matcher) MixArgs(narrationFile string, cues []Cue, output string) ([]string, error) {
	if narrationFile == "" {
		return nil, &types.ValidationError{Field: "narration_file", Reason: "no narration file provided"}
	}
	if len(cues) == 0 {
		return nil, &types.ValidationError{Field: "cues", Reason: "no cues provided"}
	}
	if output == "" {
		return nil, &types.ValidationError{Field: "output_path", Reason: "no output path provided"}
	}
	if _, err := os.Stat(narrationFile); err != nil {
		return nil, &types.ValidationError{Field: "narration_file", Reason: fmt.Sprintf("not found: %s", narrationFile)}
	}

	args := []string{"-y", "-i", narrationFile}
	for _, cue := range cues {
		args = append(args, "-i", cue.File)
	}

	var filters []string
	var mixInputs []string
	mixInputs = append(mixInputs, "[0:a]")
	for i, cue := range cues {
		delayMs := int(cue.StartSec * 1000)
		filters = append(filters, fmt.Sprintf(
			"[%d:a]atrim=duration=%.3f,volume=%.2f,afade=t=in:st=0:d=%.2f,afade=t=out:st=%.3f:d=%.2f,adelay=%d|%d[bed%d]",
			i+1, cue.DurationSec, m.volume, m.fadeIn, fadeOutStart(cue.DurationSec, m.fadeOut), m.fadeOut, delayMs, delayMs, i+1,
		))
		mixInputs = append(mixInputs, fmt.Sprintf("[bed%d]", i+1))
	}

	filter := strings.Join(filters, ";") + ";" +
		strings.Join(mixInputs, "") +
		fmt.Sprintf("amix=inputs=%d:duration=first:normalize=0[aout]", len(mixInputs))

	args = append(args,
		"-filter_complex", filter,
		"-map", "[aout]",
		"-c:a", "aac",
		"-b:a", "192k",
		output,
	)
	return args, nil
}

// fadeOutStart places the fade-out so it finishes at the end of the bed.
func fadeOutStart(duration, fadeOut float64) float64 {
	start := duration - fadeOut
	if start < 0 {
		return 0
	}
	return start
}

// loadTags reads the bed tag index (bed filename -> tag words). A missing or
// malformed file yields an empty index.
func loadTags(path string) map[string][]string {
	tags := make(map[string][]string)
	data, err := os.ReadFile(path)
	if err != nil {
		return tags
	}
	_ = json.Unmarshal(data, &tags)
	return tags
}
