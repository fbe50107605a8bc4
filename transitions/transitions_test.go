package transitions

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"video-gen-pipeline/types"
)

func TestNormalizeFallback(t *testing.T) {
	tests := []struct {
		in   string
		want Type
	}{
		{"crossfade", Crossfade},
		{"fade_in", FadeIn},
		{"FADE_OUT", FadeOut},
		{" slide ", Slide},
		{"fade", Crossfade},       // interior round-robin name, not in the vocabulary
		{"spiral", Crossfade},     // unknown
		{"", Crossfade},           // empty
		{"dissolve", Dissolve},
		{"pixelize", Pixelize},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFilterNameCoversVocabulary(t *testing.T) {
	want := map[Type]string{
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

	for typ, name := range want {
		if got := FilterName(typ); got != name {
			t.Errorf("FilterName(%s) = %q, want %q", typ, got, name)
		}
	}

	if got := FilterName(Type("unknown")); got != "fade" {
		t.Errorf("FilterName(unknown) = %q, want %q", got, "fade")
	}
}

func TestSuggestForScene(t *testing.T) {
	tests := []struct {
		desc string
		want Type
	}{
		{"a dramatic confrontation at the cliff edge", Zoom},
		{"intense chase through the market", Zoom},
		{"peaceful morning over the lake", Dissolve},
		{"calm fields at dusk", Dissolve},
		{"fast action sequence downtown", Slide},
		{"an emotional farewell at the station", FadeIn},
		{"establishing shot of the city", Crossfade},
		{"", Crossfade},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := SuggestForScene(tt.desc); got != tt.want {
				t.Errorf("SuggestForScene(%q) = %v, want %v", tt.desc, got, tt.want)
			}
		})
	}
}

func TestOptimalDuration(t *testing.T) {
	tests := []struct {
		name       string
		segmentSec float64
		want       float64
	}{
		{"short segment clamps to floor", 2.0, 0.5},
		{"mid segment scales", 20.0, 1.5},
		{"long segment clamps to ceiling", 100.0, 3.0},
		{"zero clamps to floor", 0, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OptimalDuration(tt.segmentSec); got != tt.want {
				t.Errorf("OptimalDuration(%v) = %v, want %v", tt.segmentSec, got, tt.want)
			}
		})
	}
}

func writeSegments(t *testing.T, n int) []string {
	t.Helper()
	dir := t.TempDir()
	segs := make([]string, n)
	for i := range segs {
		segs[i] = filepath.Join(dir, "seg"+string(rune('a'+i))+".mp4")
		if err := os.WriteFile(segs[i], []byte("x"), 0644); err != nil {
			t.Fatalf("write segment: %v", err)
		}
	}
	return segs
}

func TestBuildChain(t *testing.T) {
	segs := writeSegments(t, 3)
	steps := []Step{
		{Type: FadeIn, Duration: 1.0},
		{Type: Zoom, Duration: 0.8},
	}

	args, err := BuildChain(segs, steps, "out.mp4")
	if err != nil {
		t.Fatalf("BuildChain() error = %v", err)
	}

	joined := strings.Join(args, " ")
	wantFilter := "[0:v][1:v]xfade=transition=fadein:duration=1.00:offset=0[t1];[t1][2:v]xfade=transition=zoomin:duration=0.80:offset=0[t2]"
	if !strings.Contains(joined, wantFilter) {
		t.Errorf("BuildChain args missing chained filter.\n got: %s\nwant: %s", joined, wantFilter)
	}
	if !strings.Contains(joined, "-map [t2]") {
		t.Errorf("BuildChain args should map final label [t2], got: %s", joined)
	}
	if args[len(args)-1] != "out.mp4" {
		t.Errorf("last arg = %q, want output path", args[len(args)-1])
	}
}

func TestBuildChainDefaultsMissingSteps(t *testing.T) {
	segs := writeSegments(t, 3)

	args, err := BuildChain(segs, nil, "out.mp4")
	if err != nil {
		t.Fatalf("BuildChain() error = %v", err)
	}

	joined := strings.Join(args, " ")
	if got := strings.Count(joined, "xfade=transition=fade:duration=0.50:offset=0"); got != 2 {
		t.Errorf("default crossfade count = %d, want 2 in %s", got, joined)
	}
}

func TestBuildChainValidation(t *testing.T) {
	segs := writeSegments(t, 1)

	_, err := BuildChain(segs, nil, "out.mp4")
	if err == nil {
		t.Fatal("BuildChain() with 1 segment returned nil error")
	}
	if !types.IsValidation(err) {
		t.Errorf("BuildChain() error = %T, want *types.ValidationError", err)
	}

	_, err = BuildChain([]string{"/nonexistent/a.mp4", "/nonexistent/b.mp4"}, nil, "out.mp4")
	if err == nil {
		t.Fatal("BuildChain() with missing files returned nil error")
	}
	if !types.IsValidation(err) {
		t.Errorf("BuildChain() error = %T, want *types.ValidationError", err)
	}
}
