package sfx

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"video-gen-pipeline/config"
	"video-gen-pipeline/types"
)

func testMatcher(t *testing.T, beds map[string][]string, defaultBed string) (*Matcher, string) {
	t.Helper()
	dir := t.TempDir()

	tagsFile := filepath.Join(dir, "tags.json")
	data, err := json.Marshal(beds)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(tagsFile, data, 0644); err != nil {
		t.Fatal(err)
	}
	for name := range beds {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if defaultBed != "" {
		if err := os.WriteFile(filepath.Join(dir, defaultBed), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.Default()
	cfg.SFX.LibraryDir = dir
	cfg.SFX.TagsFile = tagsFile
	cfg.SFX.DefaultBed = defaultBed
	return NewMatcher(cfg), dir
}

func TestMatch(t *testing.T) {
	m, dir := testMatcher(t, map[string][]string{
		"storm.mp3": {"thunder", "rain"},
	}, "")

	entries := []types.TimelineEntry{
		{SceneNumber: 1, StartTime: 0, DurationSec: 5, Dialogue: "Thunder rolled across the hills"},
		{SceneNumber: 2, StartTime: 5, DurationSec: 5, Dialogue: "A quiet morning"},
	}

	cues := m.Match(entries)
	if len(cues) != 1 {
		t.Fatalf("Match() returned %d cues, want 1", len(cues))
	}
	if want := filepath.Join(dir, "storm.mp3"); cues[0].File != want {
		t.Errorf("cue file = %q, want %q", cues[0].File, want)
	}
	if cues[0].StartSec != 0 || cues[0].DurationSec != 5 {
		t.Errorf("cue timing = (%v, %v), want (0, 5)", cues[0].StartSec, cues[0].DurationSec)
	}
}

func TestMatchDefaultBed(t *testing.T) {
	m, _ := testMatcher(t, map[string][]string{}, "ambience.mp3")

	cues := m.Match([]types.TimelineEntry{
		{SceneNumber: 1, StartTime: 2, DurationSec: 4, Dialogue: "Nothing tagged here"},
	})
	if len(cues) != 1 {
		t.Fatalf("Match() returned %d cues, want 1 (default bed)", len(cues))
	}
	if !strings.HasSuffix(cues[0].File, "ambience.mp3") {
		t.Errorf("cue file = %q, want default bed", cues[0].File)
	}
}

func TestMatchMissingBedFile(t *testing.T) {
	m, dir := testMatcher(t, map[string][]string{
		"storm.mp3": {"thunder"},
	}, "")
	if err := os.Remove(filepath.Join(dir, "storm.mp3")); err != nil {
		t.Fatal(err)
	}

	cues := m.Match([]types.TimelineEntry{
		{SceneNumber: 1, Dialogue: "thunder", DurationSec: 5},
	})
	if len(cues) != 0 {
		t.Errorf("Match() returned %d cues for a missing bed file, want 0", len(cues))
	}
}

func TestMixArgs(t *testing.T) {
	m, dir := testMatcher(t, map[string][]string{"storm.mp3": {"thunder"}}, "")

	narration := filepath.Join(dir, "narration.mp3")
	if err := os.WriteFile(narration, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	cues := []Cue{
		{File: filepath.Join(dir, "storm.mp3"), StartSec: 1.5, DurationSec: 5},
	}
	args, err := m.MixArgs(narration, cues, filepath.Join(dir, "mixed.m4a"))
	if err != nil {
		t.Fatalf("MixArgs() error = %v", err)
	}

	joined := strings.Join(args, " ")
	for _, want := range []string{
		"adelay=1500|1500",
		"atrim=duration=5.000",
		"amix=inputs=2:duration=first:normalize=0[aout]",
		"-map [aout]",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %s", want, joined)
		}
	}
}

func TestMixArgsValidation(t *testing.T) {
	m, dir := testMatcher(t, map[string][]string{}, "")
	narration := filepath.Join(dir, "narration.mp3")
	if err := os.WriteFile(narration, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	cue := Cue{File: "bed.mp3", StartSec: 0, DurationSec: 5}

	tests := []struct {
		name      string
		narration string
		cues      []Cue
		output    string
	}{
		{"no narration", "", []Cue{cue}, "out.m4a"},
		{"missing narration", filepath.Join(dir, "nope.mp3"), []Cue{cue}, "out.m4a"},
		{"no cues", narration, nil, "out.m4a"},
		{"no output", narration, []Cue{cue}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.MixArgs(tt.narration, tt.cues, tt.output); !types.IsValidation(err) {
				t.Errorf("error = %v, want ValidationError", err)
			}
		})
	}
}
