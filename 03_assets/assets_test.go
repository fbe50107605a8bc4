package assets

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"video-gen-pipeline/config"
	"video-gen-pipeline/types"
)

func testLibraryConfig(t *testing.T, tags map[string][]string) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Assets.LibraryDir = dir
	cfg.Assets.TagsFile = filepath.Join(dir, "tags.json")
	cfg.Assets.UsageLog = filepath.Join(dir, "usage.json")

	if tags != nil {
		data, err := json.Marshal(tags)
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(cfg.Assets.TagsFile, data, 0644); err != nil {
			t.Fatal(err)
		}
	}
	return cfg
}

func TestMatchScore(t *testing.T) {
	tests := []struct {
		name     string
		required []string
		clipTags []string
		want     int
	}{
		{"exact tag match", []string{"ocean"}, []string{"ocean", "storm"}, 10},
		{"word overlap", []string{"ocean floor"}, []string{"ocean"}, 5},
		{"mixed exact and word", []string{"storm", "ocean floor"}, []string{"storm", "ocean"}, 15},
		{"no overlap", []string{"desert"}, []string{"ocean", "storm"}, 0},
		{"case insensitive", []string{"OCEAN"}, []string{"Ocean"}, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchScore(tt.required, tt.clipTags); got != tt.want {
				t.Errorf("matchScore = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLoadTagsSkipsMetaKeys(t *testing.T) {
	cfg := testLibraryConfig(t, nil)
	content := `{"_instructions": "tag every clip", "storm.mp4": ["storm", "rain"], "broken": 42}`
	if err := os.WriteFile(cfg.Assets.TagsFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	tags, err := loadTagsJSON(cfg.Assets.TagsFile)
	if err != nil {
		t.Fatalf("loadTagsJSON failed: %v", err)
	}
	if len(tags) != 1 {
		t.Fatalf("expected 1 clip, got %d: %v", len(tags), tags)
	}
	if got := tags["storm.mp4"]; len(got) != 2 || got[0] != "storm" {
		t.Errorf("storm.mp4 tags = %v", got)
	}
}

func TestLoadTagsMissingFileIsEmpty(t *testing.T) {
	tags, err := loadTagsJSON(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("missing tags file should not error: %v", err)
	}
	if len(tags) != 0 {
		t.Errorf("expected empty tags, got %v", tags)
	}
}

func TestLibraryNeverRepeatsWithinRun(t *testing.T) {
	cfg := testLibraryConfig(t, map[string][]string{
		"a.mp4": {"ocean"},
		"b.mp4": {"ocean"},
	})

	lib, err := NewLibrary(cfg, "run-1")
	if err != nil {
		t.Fatalf("NewLibrary failed: %v", err)
	}

	scene := types.Scene{Number: 1, VisualRequirements: []string{"ocean"}}
	first, err := lib.Pick(scene)
	if err != nil {
		t.Fatalf("first pick failed: %v", err)
	}
	second, err := lib.Pick(scene)
	if err != nil {
		t.Fatalf("second pick failed: %v", err)
	}
	if first == second {
		t.Errorf("picked %q twice in one run", first)
	}

	if _, err := lib.Pick(scene); err == nil {
		t.Error("expected error once every clip is used")
	}
}

func TestLibraryRecordsUsage(t *testing.T) {
	cfg := testLibraryConfig(t, map[string][]string{"a.mp4": {"city"}})

	lib, err := NewLibrary(cfg, "run-7")
	if err != nil {
		t.Fatalf("NewLibrary failed: %v", err)
	}
	if _, err := lib.Pick(types.Scene{Number: 1, VisualRequirements: []string{"city"}}); err != nil {
		t.Fatalf("Pick failed: %v", err)
	}

	usage := loadUsageLog(cfg.Assets.UsageLog)
	if got := usage["run-7"]; len(got) != 1 || got[0] != "a.mp4" {
		t.Errorf("usage log = %v", usage)
	}
}

func TestLibraryFallsBackWhenNothingMatches(t *testing.T) {
	cfg := testLibraryConfig(t, map[string][]string{"a.mp4": {"city"}})

	lib, err := NewLibrary(cfg, "run-2")
	if err != nil {
		t.Fatalf("NewLibrary failed: %v", err)
	}

	path, err := lib.Pick(types.Scene{Number: 1, VisualRequirements: []string{"volcano"}})
	if err != nil {
		t.Fatalf("expected fallback pick, got error: %v", err)
	}
	if !strings.HasSuffix(path, "a.mp4") {
		t.Errorf("picked %q", path)
	}
}

func TestSearchQuery(t *testing.T) {
	got := searchQuery("The lighthouse at Alexandria was built over twenty years.")
	want := "lighthouse alexandria built twenty"
	if got != want {
		t.Errorf("searchQuery = %q, want %q", got, want)
	}

	if got := searchQuery("a an the it"); got != "" {
		t.Errorf("filler-only text should yield empty query, got %q", got)
	}
}

func TestImagePrompt(t *testing.T) {
	scene := types.Scene{
		Number:             2,
		Description:        "Submersible descending",
		VisualRequirements: []string{"deep ocean", "searchlights"},
	}

	prompt := imagePrompt(scene)
	for _, want := range []string{"Submersible descending", "deep ocean, searchlights", "no text, no watermark"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q: %s", want, prompt)
		}
	}

	if got := imagePrompt(types.Scene{Number: 3}); got != "" {
		t.Errorf("empty scene should yield empty prompt, got %q", got)
	}
}

func TestBuildImageURL(t *testing.T) {
	got := buildImageURL("https://image.example.com/", "dark ocean", 1920, 1080, 91)

	if !strings.HasPrefix(got, "https://image.example.com/prompt/dark%20ocean?") {
		t.Errorf("url = %q", got)
	}
	for _, want := range []string{"width=1920", "height=1080", "seed=91", "nologo=true"} {
		if !strings.Contains(got, want) {
			t.Errorf("url missing %q: %s", want, got)
		}
	}
}

func TestPlaceholderArgs(t *testing.T) {
	args := placeholderArgs(1280, 720, "/tmp/out.png")
	joined := strings.Join(args, " ")

	for _, want := range []string{"-f lavfi", "color=c=0x1a1a2e:s=1280x720:d=1", "-frames:v 1", "/tmp/out.png"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %s", want, joined)
		}
	}
}
