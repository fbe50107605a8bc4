package publish

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"video-gen-pipeline/config"
	"video-gen-pipeline/types"
)

func testScript() *types.Script {
	return &types.Script{
		Title: "How Tides Work",
		Scenes: []types.Scene{
			{Number: 1, Description: "Opening over the bay", VisualRequirements: []string{"ocean waves", "moonlight"}, DurationSec: 20},
			{Number: 2, Description: "The lunar pull explained", VisualRequirements: []string{"moon orbit"}, DurationSec: 25},
		},
		TotalDurationSec: 45,
	}
}

func TestBuildMetadata(t *testing.T) {
	cfg := config.Default()
	req := types.GenerationRequest{Prompt: "explain ocean tides simply", DurationSec: 45}
	research := &types.ResearchData{Sources: []string{"https://example.com/tides"}}

	meta := BuildMetadata(cfg, req, testScript(), research)

	if meta.Title != "How Tides Work" {
		t.Errorf("title = %q", meta.Title)
	}
	if meta.CategoryID != "22" || meta.Visibility != "private" {
		t.Errorf("category/visibility = %q/%q", meta.CategoryID, meta.Visibility)
	}
	for _, want := range []string{"2 scenes, 45 seconds", "Opening over the bay", "https://example.com/tides"} {
		if !strings.Contains(meta.Description, want) {
			t.Errorf("description missing %q", want)
		}
	}
}

func TestBuildMetadataTitleFallbackAndCap(t *testing.T) {
	cfg := config.Default()
	req := types.GenerationRequest{Prompt: "volcanic islands", DurationSec: 30}

	meta := BuildMetadata(cfg, req, &types.Script{}, nil)
	if meta.Title != "Video: volcanic islands" {
		t.Errorf("fallback title = %q", meta.Title)
	}

	long := &types.Script{Title: strings.Repeat("t", 150)}
	meta = BuildMetadata(cfg, req, long, nil)
	if len(meta.Title) != titleMaxChars {
		t.Errorf("capped title length = %d, want %d", len(meta.Title), titleMaxChars)
	}
	if !strings.HasSuffix(meta.Title, "...") {
		t.Errorf("capped title = %q", meta.Title)
	}
}

func TestBuildTagsDedupAndCap(t *testing.T) {
	req := types.GenerationRequest{Prompt: "Tides tides TIDES ocean explained"}
	script := &types.Script{Scenes: []types.Scene{
		{VisualRequirements: []string{"ocean", "moon orbit"}},
	}}

	tags := buildTags(req, script)

	counts := make(map[string]int)
	for _, tag := range tags {
		counts[tag]++
		if counts[tag] > 1 {
			t.Errorf("duplicate tag %q", tag)
		}
	}
	if counts["tides"] != 1 || counts["ocean"] != 1 || counts["moon orbit"] != 1 {
		t.Errorf("tags = %v", tags)
	}
	if counts["explained"] != 1 {
		t.Errorf("tags = %v", tags)
	}

	var many strings.Builder
	for i := 0; i < 50; i++ {
		many.WriteString(strings.Repeat(string(rune('a'+i%26)), 4+i%3) + string(rune('0'+i%10)) + " ")
	}
	tags = buildTags(types.GenerationRequest{Prompt: many.String()}, &types.Script{})
	if len(tags) > maxTags {
		t.Errorf("tag count %d exceeds cap %d", len(tags), maxTags)
	}
}

func TestUploadRequiresCredentials(t *testing.T) {
	t.Setenv("YOUTUBE_CLIENT_ID", "")
	t.Setenv("YOUTUBE_CLIENT_SECRET", "")
	t.Setenv("YOUTUBE_REFRESH_TOKEN", "")

	u := NewUploader(config.Default())
	_, _, err := u.Upload(context.Background(), "/tmp/video.mp4", Metadata{Title: "x"})
	if err == nil {
		t.Fatal("expected error without credentials")
	}
	if !strings.Contains(err.Error(), "YOUTUBE_CLIENT_ID") {
		t.Errorf("error = %v", err)
	}
}

func TestRecordUpload(t *testing.T) {
	dir := t.TempDir()

	if err := RecordUpload(dir, "abc123", "https://www.youtube.com/watch?v=abc123", "/tmp/v.mp4", Metadata{Title: "T"}); err != nil {
		t.Fatalf("RecordUpload failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected 1 log file, got %d (err %v)", len(entries), err)
	}

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatal(err)
	}
	var entry map[string]interface{}
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("log is not JSON: %v", err)
	}
	if entry["video_id"] != "abc123" {
		t.Errorf("video_id = %v", entry["video_id"])
	}
}
