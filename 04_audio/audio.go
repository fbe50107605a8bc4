// Package audio implements the audio-generation stage: narrating every scene
// and concatenating the segments into one track.
package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"video-gen-pipeline/config"
	"video-gen-pipeline/ffmpeg"
	"video-gen-pipeline/types"
)

// HTTPSynthesizer narrates scenes through a TTS HTTP endpoint that accepts
// text and returns rendered audio bytes.
type HTTPSynthesizer struct {
	cfg        *config.Config
	runner     *ffmpeg.Runner
	httpClient *http.Client
	retryDelay time.Duration
}

// NewHTTPSynthesizer creates a synthesizer for the configured TTS endpoint.
func NewHTTPSynthesizer(cfg *config.Config, runner *ffmpeg.Runner) *HTTPSynthesizer {
	return &HTTPSynthesizer{
		cfg:        cfg,
		runner:     runner,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		retryDelay: 2 * time.Second,
	}
}

type ttsRequest struct {
	Text       string `json:"text"`
	Voice      string `json:"voice,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Format     string `json:"format,omitempty"`
}

// GenerateAudio narrates every scene, measures the real segment durations,
// and joins them into a combined track.
func (s *HTTPSynthesizer) GenerateAudio(ctx context.Context, script *types.Script) (*types.AudioAssets, error) {
	if s.cfg.Audio.TTSEndpoint == "" {
		return nil, &types.ProcessingError{Stage: "audio_generation", Err: fmt.Errorf("tts endpoint not configured")}
	}

	outputDir, err := s.makeOutputDir()
	if err != nil {
		return nil, err
	}

	log.Printf("[audio] Generating narration for %d scenes...", len(script.Scenes))

	assets := &types.AudioAssets{}
	for _, scene := range script.Scenes {
		outFile := filepath.Join(outputDir, segmentName(scene.Number, s.cfg.Audio.OutputFormat))

		if err := s.synthesize(ctx, scene.Dialogue, outFile); err != nil {
			return nil, fmt.Errorf("scene %d narration failed: %w", scene.Number, err)
		}

		// Real narration rarely matches the script estimate exactly, so probe
		// the rendered file and keep the measured length
		dur := scene.DurationSec
		if info, err := s.runner.Probe(ctx, s.cfg.ProbeTimeout(), outFile); err != nil {
			log.Printf("[audio] Warning: could not measure scene %d duration, using script estimate", scene.Number)
		} else if info.DurationSec > 0 {
			dur = info.DurationSec
		}

		assets.Segments = append(assets.Segments, types.AudioSegment{
			SceneNumber: scene.Number,
			DurationSec: dur,
			Transcript:  scene.Dialogue,
			AudioFile:   outFile,
		})
		assets.Files = append(assets.Files, outFile)
		assets.TotalDurationSec += dur
		log.Printf("[audio] Scene %d: %.2fs -> %s", scene.Number, dur, outFile)
	}

	combined := filepath.Join(outputDir, "audio_final."+s.cfg.Audio.OutputFormat)
	if err := concatSegments(ctx, s.runner, s.cfg.ComposeTimeout(), assets.Files, outputDir, combined); err != nil {
		log.Printf("[audio] ⚠️ Concatenation failed, assembly will use the first segment: %v", err)
	} else {
		assets.CombinedFile = combined
	}

	log.Printf("[audio] ✅ Narration ready: %d segments, %.1fs total", len(assets.Segments), assets.TotalDurationSec)
	return assets, nil
}

// synthesize posts one scene's dialogue to the TTS endpoint. The endpoint
// occasionally stalls, so it retries up to 3 times.
func (s *HTTPSynthesizer) synthesize(ctx context.Context, text, outFile string) error {
	body, err := json.Marshal(ttsRequest{
		Text:       text,
		Voice:      s.cfg.Audio.Voice,
		SampleRate: s.cfg.Audio.SampleRate,
		Format:     s.cfg.Audio.OutputFormat,
	})
	if err != nil {
		return fmt.Errorf("marshal tts request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		lastErr = s.postOnce(ctx, body, outFile)
		if lastErr == nil {
			return nil
		}
		log.Printf("[audio] TTS attempt %d failed: %v, retrying...", attempt, lastErr)
		if attempt < 3 {
			time.Sleep(time.Duration(attempt) * s.retryDelay)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return lastErr
}

func (s *HTTPSynthesizer) postOnce(ctx context.Context, body []byte, outFile string) error {
	req, err := http.NewRequestWithContext(ctx, "POST", s.cfg.Audio.TTSEndpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from TTS endpoint", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if len(data) < 100 {
		return fmt.Errorf("response too small (%d bytes)", len(data))
	}

	return os.WriteFile(outFile, data, 0644)
}

func (s *HTTPSynthesizer) makeOutputDir() (string, error) {
	dir := filepath.Join(s.cfg.Paths.Output, "audio", uuid.NewString()[:8])
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create audio dir: %w", err)
	}
	return dir, nil
}

// SilenceSynthesizer renders silent segments at the script's estimated
// durations, used when no TTS provider is configured.
type SilenceSynthesizer struct {
	cfg    *config.Config
	runner *ffmpeg.Runner
}

// NewSilenceSynthesizer creates the offline synthesizer.
func NewSilenceSynthesizer(cfg *config.Config, runner *ffmpeg.Runner) *SilenceSynthesizer {
	return &SilenceSynthesizer{cfg: cfg, runner: runner}
}

// GenerateAudio renders one silent file per scene, exactly as long as the
// script says the scene runs.
func (s *SilenceSynthesizer) GenerateAudio(ctx context.Context, script *types.Script) (*types.AudioAssets, error) {
	dir := filepath.Join(s.cfg.Paths.Output, "audio", uuid.NewString()[:8])
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}

	log.Printf("[audio] Rendering silent narration for %d scenes (no TTS configured)", len(script.Scenes))

	assets := &types.AudioAssets{}
	for _, scene := range script.Scenes {
		outFile := filepath.Join(dir, segmentName(scene.Number, s.cfg.Audio.OutputFormat))
		args := silenceArgs(s.cfg.Audio.SampleRate, scene.DurationSec, outFile)
		if _, err := s.runner.Run(ctx, s.cfg.ComposeTimeout(), args...); err != nil {
			return nil, fmt.Errorf("scene %d silence render failed: %w", scene.Number, err)
		}

		assets.Segments = append(assets.Segments, types.AudioSegment{
			SceneNumber: scene.Number,
			DurationSec: scene.DurationSec,
			Transcript:  scene.Dialogue,
			AudioFile:   outFile,
		})
		assets.Files = append(assets.Files, outFile)
		assets.TotalDurationSec += scene.DurationSec
	}

	combined := filepath.Join(dir, "audio_final."+s.cfg.Audio.OutputFormat)
	if err := concatSegments(ctx, s.runner, s.cfg.ComposeTimeout(), assets.Files, dir, combined); err != nil {
		log.Printf("[audio] ⚠️ Concatenation failed, assembly will use the first segment: %v", err)
	} else {
		assets.CombinedFile = combined
	}

	return assets, nil
}

// concatSegments joins segment files in order with the stream-copy concat
// demuxer.
func concatSegments(ctx context.Context, runner *ffmpeg.Runner, timeout time.Duration, files []string, dir, outputFile string) error {
	if len(files) == 0 {
		return fmt.Errorf("no segments to concatenate")
	}

	listFile := filepath.Join(dir, "concat_list.txt")
	if err := os.WriteFile(listFile, []byte(concatList(files)), 0644); err != nil {
		return err
	}

	_, err := runner.Run(ctx, timeout, concatArgs(listFile, outputFile)...)
	return err
}

func concatList(files []string) string {
	var lines []string
	for _, f := range files {
		lines = append(lines, fmt.Sprintf("file '%s'", f))
	}
	return strings.Join(lines, "\n")
}

func concatArgs(listFile, outputFile string) []string {
	return []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		outputFile,
	}
}

func silenceArgs(sampleRate int, durationSec float64, outFile string) []string {
	return []string{
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("anullsrc=r=%d:cl=mono", sampleRate),
		"-t", fmt.Sprintf("%.3f", durationSec),
		outFile,
	}
}

func segmentName(sceneNumber int, format string) string {
	return fmt.Sprintf("scene_%03d.%s", sceneNumber, format)
}
