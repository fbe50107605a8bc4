package audio

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"video-gen-pipeline/config"
	"video-gen-pipeline/ffmpeg"
	"video-gen-pipeline/types"
)

func testScript() *types.Script {
	return &types.Script{
		Title: "Tides",
		Scenes: []types.Scene{
			{Number: 1, Dialogue: "The moon pulls the ocean toward it.", DurationSec: 10},
			{Number: 2, Dialogue: "Twice a day the water answers.", DurationSec: 8},
		},
		TotalDurationSec: 18,
	}
}

func TestHTTPSynthesizerGeneratesSegments(t *testing.T) {
	var requests []ttsRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ttsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		requests = append(requests, req)
		w.Write(make([]byte, 2048)) // stand-in audio payload
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Paths.Output = t.TempDir()
	cfg.Audio.TTSEndpoint = server.URL
	cfg.Audio.Voice = "narrator-1"

	// Bogus binaries: probing and concatenation fail, script estimates win
	runner := ffmpeg.NewRunner("no-such-ffmpeg", "no-such-ffprobe")
	synth := NewHTTPSynthesizer(cfg, runner)

	assets, err := synth.GenerateAudio(context.Background(), testScript())
	if err != nil {
		t.Fatalf("GenerateAudio failed: %v", err)
	}

	if len(assets.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(assets.Segments))
	}
	if len(requests) != 2 {
		t.Fatalf("expected 2 TTS calls, got %d", len(requests))
	}
	if requests[0].Voice != "narrator-1" {
		t.Errorf("voice = %q", requests[0].Voice)
	}
	if requests[0].Text != "The moon pulls the ocean toward it." {
		t.Errorf("text = %q", requests[0].Text)
	}

	if assets.TotalDurationSec != 18 {
		t.Errorf("total = %.2f, want script estimate 18", assets.TotalDurationSec)
	}
	if assets.CombinedFile != "" {
		t.Errorf("combined file should be empty when concatenation fails, got %q", assets.CombinedFile)
	}
	for _, f := range assets.Files {
		info, err := os.Stat(f)
		if err != nil {
			t.Errorf("segment %s not written: %v", f, err)
			continue
		}
		if info.Size() != 2048 {
			t.Errorf("segment %s size = %d", f, info.Size())
		}
	}
}

func TestHTTPSynthesizerRequiresEndpoint(t *testing.T) {
	cfg := config.Default()
	cfg.Audio.TTSEndpoint = ""

	synth := NewHTTPSynthesizer(cfg, ffmpeg.NewRunner("", ""))
	_, err := synth.GenerateAudio(context.Background(), testScript())
	if err == nil {
		t.Fatal("expected error without endpoint")
	}
	if !strings.Contains(err.Error(), "not configured") {
		t.Errorf("error = %v", err)
	}
}

func TestHTTPSynthesizerFailsAfterRetries(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Paths.Output = t.TempDir()
	cfg.Audio.TTSEndpoint = server.URL

	synth := NewHTTPSynthesizer(cfg, ffmpeg.NewRunner("no-such-ffmpeg", "no-such-ffprobe"))
	synth.retryDelay = 0
	script := &types.Script{Scenes: []types.Scene{{Number: 1, Dialogue: "hello", DurationSec: 5}}}

	_, err := synth.GenerateAudio(context.Background(), script)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
	if !strings.Contains(err.Error(), "scene 1 narration failed") {
		t.Errorf("error = %v", err)
	}
}

func TestConcatList(t *testing.T) {
	got := concatList([]string{"/tmp/a.mp3", "/tmp/b.mp3"})
	want := "file '/tmp/a.mp3'\nfile '/tmp/b.mp3'"
	if got != want {
		t.Errorf("concatList = %q, want %q", got, want)
	}
}

func TestConcatArgs(t *testing.T) {
	joined := strings.Join(concatArgs("/tmp/list.txt", "/tmp/out.mp3"), " ")
	want := "-y -f concat -safe 0 -i /tmp/list.txt -c copy /tmp/out.mp3"
	if joined != want {
		t.Errorf("concatArgs = %q, want %q", joined, want)
	}
}

func TestSilenceArgs(t *testing.T) {
	joined := strings.Join(silenceArgs(24000, 7.5, "/tmp/s.mp3"), " ")

	for _, want := range []string{"-f lavfi", "anullsrc=r=24000:cl=mono", "-t 7.500", "/tmp/s.mp3"} {
		if !strings.Contains(joined, want) {
			t.Errorf("silenceArgs missing %q: %s", want, joined)
		}
	}
}

func TestSegmentName(t *testing.T) {
	if got := segmentName(7, "mp3"); got != "scene_007.mp3" {
		t.Errorf("segmentName = %q", got)
	}
}
