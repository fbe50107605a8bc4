package timeline

import (
	"fmt"
	"log"
	"math"

	"video-gen-pipeline/types"
)

// Transition names assigned by timeline position. "fade" is not a filter name
// of its own; it resolves to crossfade parameters when the filter chain is
// built.
const (
	openingTransition = "fade_in"
	closingTransition = "fade_out"
)

var interiorTransitions = [4]string{"crossfade", "slide", "zoom", "fade"}

const defaultTransitionDuration = 0.5

const (
	// rescaleThreshold is how far the timeline total may drift from the
	// target duration before every entry gets rescaled.
	rescaleThreshold = 1.0
	// noteThreshold is the per-scene duration change above which an
	// adjustment note is recorded.
	noteThreshold = 0.1
)

// Result is a synchronized timeline, its total duration, and the
// human-readable adjustment notes produced while fitting the target duration.
type Result struct {
	Entries       []types.TimelineEntry `json:"entries"`
	TotalDuration float64               `json:"total_duration"`
	Notes         []string              `json:"notes,omitempty"`
}

// Synchronize aligns scenes with their audio segments and distributes visual
// assets across them, producing absolute start and end times for every scene.
// Scenes without a matching audio segment are dropped with a warning. The
// timeline is rescaled to targetDuration when the two totals differ by a
// second or more.
func Synchronize(scenes []types.Scene, segments []types.AudioSegment, assets []string, targetDuration float64) (*Result, error) {
	if len(scenes) == 0 || len(segments) == 0 {
		return nil, &types.ValidationError{Field: "timeline", Reason: "missing scenes or audio segments for synchronization"}
	}

	windows := audioTimeline(segments)
	mapped := mapScenes(scenes, windows)
	entries := buildEntries(mapped, assets)
	entries, notes := fitToTarget(entries, targetDuration)
	total := totalDuration(entries)

	log.Printf("[timeline] Synchronized %d scenes, total duration %.2fs", len(entries), total)

	return &Result{
		Entries:       entries,
		TotalDuration: total,
		Notes:         notes,
	}, nil
}

// audioWindow is one audio segment placed on the absolute timeline.
type audioWindow struct {
	sceneNumber int
	start       float64
	end         float64
	duration    float64
	transcript  string
	file        string
}

// audioTimeline walks segments in input order and accumulates absolute start
// and end times. A segment without a scene number takes its position in the
// list, counting from 1.
func audioTimeline(segments []types.AudioSegment) []audioWindow {
	windows := make([]audioWindow, 0, len(segments))
	current := 0.0
	for i, seg := range segments {
		number := seg.SceneNumber
		if number == 0 {
			number = i + 1
		}
		windows = append(windows, audioWindow{
			sceneNumber: number,
			start:       current,
			end:         current + seg.DurationSec,
			duration:    seg.DurationSec,
			transcript:  seg.Transcript,
			file:        seg.AudioFile,
		})
		current += seg.DurationSec
	}
	return windows
}

type mappedScene struct {
	scene  types.Scene
	window audioWindow
}

// mapScenes joins scenes to audio windows on scene number, first match wins.
func mapScenes(scenes []types.Scene, windows []audioWindow) []mappedScene {
	mapped := make([]mappedScene, 0, len(scenes))
	for _, scene := range scenes {
		window, ok := findWindow(windows, scene.Number)
		if !ok {
			log.Printf("[timeline] ⚠️ No audio segment found for scene %d, dropping it", scene.Number)
			continue
		}
		mapped = append(mapped, mappedScene{scene: scene, window: window})
	}
	return mapped
}

func findWindow(windows []audioWindow, sceneNumber int) (audioWindow, bool) {
	for _, w := range windows {
		if w.sceneNumber == sceneNumber {
			return w, true
		}
	}
	return audioWindow{}, false
}

func buildEntries(mapped []mappedScene, assets []string) []types.TimelineEntry {
	slots := requirementSlots(mapped)
	entries := make([]types.TimelineEntry, 0, len(mapped))
	for i, m := range mapped {
		dialogue := m.scene.Dialogue
		if dialogue == "" {
			dialogue = m.window.transcript
		}
		entries = append(entries, types.TimelineEntry{
			SceneNumber:        m.scene.Number,
			StartTime:          m.window.start,
			EndTime:            m.window.end,
			DurationSec:        m.window.duration,
			Assets:             assignAssets(m.scene, assets, i, slots),
			AudioFile:          m.window.file,
			Dialogue:           dialogue,
			Transition:         transitionFor(i, len(mapped)),
			TransitionDuration: defaultTransitionDuration,
		})
	}
	return entries
}

// requirementSlots counts the visual requirement slots across mapped scenes.
// A scene that states no requirements still counts as one slot.
func requirementSlots(mapped []mappedScene) int {
	slots := 0
	for _, m := range mapped {
		if n := len(m.scene.VisualRequirements); n > 0 {
			slots += n
		} else {
			slots++
		}
	}
	if slots == 0 {
		slots = 1
	}
	return slots
}

// assignAssets picks the visual assets for one scene. A scene carrying an
// explicit asset list keeps it; otherwise the shared pool is split evenly by
// index range, clipped at the pool bounds. Trailing scenes may come up empty
// when the pool is small; the composer fills those with a synthesized source.
func assignAssets(scene types.Scene, pool []string, sceneIndex, slots int) []string {
	if len(scene.Assets) > 0 {
		return scene.Assets
	}
	if len(pool) == 0 {
		return nil
	}
	per := len(pool) / slots
	if per < 1 {
		per = 1
	}
	start := sceneIndex * per
	if start >= len(pool) {
		return nil
	}
	end := start + per
	if end > len(pool) {
		end = len(pool)
	}
	return pool[start:end]
}

// transitionFor assigns a transition by position: the first scene fades in,
// the last fades out, and interior scenes rotate for visual variety.
func transitionFor(sceneIndex, total int) string {
	switch {
	case sceneIndex == 0:
		return openingTransition
	case sceneIndex == total-1:
		return closingTransition
	default:
		return interiorTransitions[sceneIndex%len(interiorTransitions)]
	}
}

// fitToTarget rescales every entry so the timeline total matches the target
// duration, recomputing cumulative start and end times in order. Totals
// already within rescaleThreshold of the target are left untouched. Returns a
// note for every scene whose duration moved by more than noteThreshold.
func fitToTarget(entries []types.TimelineEntry, target float64) ([]types.TimelineEntry, []string) {
	current := totalDuration(entries)
	if math.Abs(current-target) < rescaleThreshold {
		return entries, nil
	}

	factor := 1.0
	if current > 0 {
		factor = target / current
	}

	var notes []string
	adjusted := make([]types.TimelineEntry, 0, len(entries))
	cursor := 0.0
	for _, entry := range entries {
		scaled := entry.DurationSec * factor
		if math.Abs(scaled-entry.DurationSec) > noteThreshold {
			notes = append(notes, fmt.Sprintf("Scene %d: duration adjusted from %.2fs to %.2fs", entry.SceneNumber, entry.DurationSec, scaled))
		}
		entry.StartTime = cursor
		entry.EndTime = cursor + scaled
		entry.DurationSec = scaled
		adjusted = append(adjusted, entry)
		cursor += scaled
	}
	return adjusted, notes
}

// totalDuration is the max end time across entries, 0.0 for an empty timeline.
func totalDuration(entries []types.TimelineEntry) float64 {
	total := 0.0
	for _, entry := range entries {
		if entry.EndTime > total {
			total = entry.EndTime
		}
	}
	return total
}
