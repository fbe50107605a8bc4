// Package assembly implements the final pipeline stage: it synchronizes the
// script against narrated audio, renders the visual track, and encodes the
// deliverable.
package assembly

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"video-gen-pipeline/compose"
	"video-gen-pipeline/config"
	"video-gen-pipeline/coordinator"
	"video-gen-pipeline/encoding"
	"video-gen-pipeline/ffmpeg"
	"video-gen-pipeline/sfx"
	"video-gen-pipeline/subtitles"
	"video-gen-pipeline/timeline"
	"video-gen-pipeline/transitions"
	"video-gen-pipeline/types"
)

// Engine assembles the final video from the session's artifacts.
type Engine struct {
	cfg    *config.Config
	runner *ffmpeg.Runner
}

func New(cfg *config.Config, runner *ffmpeg.Runner) *Engine {
	return &Engine{cfg: cfg, runner: runner}
}

// Assemble builds the final video: timeline synchronization, visual track
// rendering, then the policy-driven final encode.
func (e *Engine) Assemble(ctx context.Context, in coordinator.AssemblyInput) (*types.FinalVideo, error) {
	log.Println("[assembly] Starting final video assembly...")

	health := e.runner.CheckHealth(ctx)
	switch health.Status {
	case ffmpeg.StatusUnhealthy:
		return nil, &types.ProcessingError{Stage: "video_assembly", Err: fmt.Errorf("codec binary unavailable: %s", health.Detail)}
	case ffmpeg.StatusDegraded:
		log.Printf("[assembly] ⚠️ %s — continuing without media probes", health.Detail)
	}

	// Step 1: synchronize scenes against the narrated audio timeline
	sync, err := timeline.Synchronize(in.Script.Scenes, in.Audio.Segments, in.Assets.Paths(), float64(in.Request.DurationSec))
	if err != nil {
		return nil, err
	}
	for _, note := range sync.Notes {
		log.Printf("[assembly] %s", note)
	}

	outputDir := filepath.Join(e.cfg.Paths.Output, in.SessionID)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	audioFile := in.Audio.CombinedFile
	if audioFile == "" && len(in.Audio.Files) > 0 {
		log.Println("[assembly] ⚠️ No combined audio track, using first segment file")
		audioFile = in.Audio.Files[0]
	}
	if e.cfg.SFX.Enabled {
		audioFile = e.mixAmbience(ctx, sync.Entries, audioFile, outputDir)
	}

	sceneAssets, timings := flatten(sync.Entries)

	// Step 2: render the visual track
	var rawVideo string
	if e.cfg.TransitionsEnabled() && len(sync.Entries) >= 2 {
		rawVideo, err = e.renderWithTransitions(ctx, sync.Entries, sceneAssets, timings, audioFile, outputDir)
		if err != nil {
			log.Printf("[assembly] ⚠️ Transition chain failed: %v — falling back to plain concat", err)
			rawVideo, err = e.renderSinglePass(ctx, sceneAssets, timings, audioFile, outputDir)
		}
	} else {
		rawVideo, err = e.renderSinglePass(ctx, sceneAssets, timings, audioFile, outputDir)
	}
	if err != nil {
		return nil, err
	}

	if e.cfg.Subtitles.Enabled {
		rawVideo = e.burnSubtitles(ctx, sync.Entries, rawVideo, outputDir)
	}

	// Step 3: final encode per policy
	encoder := encoding.NewEncoder(e.runner, e.cfg.EncodeTimeout(), e.cfg.ProbeTimeout())
	finalPath := filepath.Join(outputDir, "final_video."+e.cfg.Encoding.Format)
	stats, err := encoder.Encode(ctx, rawVideo, finalPath, encoding.Options{
		Format:  e.cfg.Encoding.Format,
		Quality: e.cfg.Encoding.Quality,
		Target:  e.cfg.Encoding.Target,
	})
	if err != nil {
		return nil, err
	}

	video := &types.FinalVideo{
		Path:        stats.OutputFile,
		Format:      e.cfg.Encoding.Format,
		DurationSec: stats.Info.DurationSec,
		SizeBytes:   stats.EncodedBytes,
		Width:       stats.Info.Width,
		Height:      stats.Info.Height,
		CreatedAt:   time.Now().UTC(),
	}
	if video.DurationSec == 0 {
		video.DurationSec = sync.TotalDuration
	}

	log.Printf("[assembly] ✅ Final video ready: %s (%.2fs, %d bytes)", video.Path, video.DurationSec, video.SizeBytes)
	return video, nil
}

// renderWithTransitions renders one segment per scene, chains the segments
// with transition effects, and muxes the narration track onto the result.
func (e *Engine) renderWithTransitions(ctx context.Context, entries []types.TimelineEntry, sceneAssets []string, timings []compose.SceneTiming, audioFile, outputDir string) (string, error) {
	planner := e.planner()

	segments := make([]string, 0, len(entries))
	for i := range entries {
		segPath := filepath.Join(outputDir, fmt.Sprintf("segment_%02d.mp4", i+1))
		args, err := planner.SegmentCommand(sceneAssets[i], timings[i], segPath)
		if err != nil {
			return "", err
		}
		if _, err := e.runner.Run(ctx, e.cfg.ComposeTimeout(), args...); err != nil {
			return "", fmt.Errorf("render segment %d: %w", i+1, err)
		}
		segments = append(segments, segPath)
	}

	// Transitions are keyed to the entering scene; steps[i] joins segment i
	// to segment i+1.
	steps := make([]transitions.Step, 0, len(entries)-1)
	for i := 1; i < len(entries); i++ {
		steps = append(steps, transitions.Step{
			Type:     transitions.Normalize(entries[i].Transition),
			Duration: entries[i].TransitionDuration,
		})
	}

	chained := filepath.Join(outputDir, "video_transitions.mp4")
	args, err := transitions.BuildChain(segments, steps, chained)
	if err != nil {
		return "", err
	}
	log.Printf("[assembly] Chaining %d segments with transitions...", len(segments))
	if _, err := e.runner.Run(ctx, e.cfg.TransitionTimeout(), args...); err != nil {
		return "", fmt.Errorf("transition chain: %w", err)
	}

	muxed := filepath.Join(outputDir, "video_raw.mp4")
	muxArgs, err := planner.MuxCommand(chained, audioFile, muxed)
	if err != nil {
		return "", err
	}
	if _, err := e.runner.Run(ctx, e.cfg.ComposeTimeout(), muxArgs...); err != nil {
		return "", fmt.Errorf("mux audio: %w", err)
	}
	return muxed, nil
}

// renderSinglePass composes every scene and the audio track in one filter
// graph invocation.
func (e *Engine) renderSinglePass(ctx context.Context, sceneAssets []string, timings []compose.SceneTiming, audioFile, outputDir string) (string, error) {
	planner := e.planner()
	out := filepath.Join(outputDir, "video_raw.mp4")

	args, err := planner.Command(sceneAssets, audioFile, out, timings)
	if err != nil {
		return "", err
	}
	log.Printf("[assembly] Composing %d scenes in a single pass...", len(timings))
	if _, err := e.runner.Run(ctx, e.cfg.ComposeTimeout(), args...); err != nil {
		return "", fmt.Errorf("compose video: %w", err)
	}
	return out, nil
}

// mixAmbience lays tag-matched ambience beds under the narration. Any failure
// keeps the plain narration track; ambience is never worth failing assembly.
func (e *Engine) mixAmbience(ctx context.Context, entries []types.TimelineEntry, audioFile, outputDir string) string {
	matcher := sfx.NewMatcher(e.cfg)
	cues := matcher.Match(entries)
	if len(cues) == 0 {
		log.Println("[sfx] No ambience beds matched — keeping plain narration")
		return audioFile
	}

	mixed := filepath.Join(outputDir, "audio_mixed.m4a")
	args, err := matcher.MixArgs(audioFile, cues, mixed)
	if err != nil {
		log.Printf("[sfx] ⚠️ Ambience mix skipped: %v", err)
		return audioFile
	}
	log.Printf("[sfx] Mixing %d ambience beds under narration...", len(cues))
	if _, err := e.runner.Run(ctx, e.cfg.ComposeTimeout(), args...); err != nil {
		log.Printf("[sfx] ⚠️ Ambience mix failed: %v — using narration only", err)
		return audioFile
	}
	return mixed
}

// burnSubtitles renders the dialogue track onto the video. Like ambience,
// subtitle failures degrade to the unsubtitled video.
func (e *Engine) burnSubtitles(ctx context.Context, entries []types.TimelineEntry, videoFile, outputDir string) string {
	srtFile := filepath.Join(outputDir, "subtitles.srt")
	n, err := subtitles.WriteSRT(entries, e.cfg.Subtitles.MaxCharsPerLine, srtFile)
	if err != nil {
		log.Printf("[subtitles] ⚠️ Skipped: %v", err)
		return videoFile
	}

	burned := filepath.Join(outputDir, "video_subtitled.mp4")
	args, err := subtitles.BurnArgs(videoFile, srtFile, burned, subtitles.Style{
		Font:         e.cfg.Subtitles.Font,
		FontSize:     e.cfg.Subtitles.FontSize,
		Bold:         e.cfg.Subtitles.Bold,
		OutlineWidth: e.cfg.Subtitles.OutlineWidth,
		MarginBottom: e.cfg.Subtitles.MarginBottom,
	})
	if err != nil {
		log.Printf("[subtitles] ⚠️ Skipped: %v", err)
		return videoFile
	}
	log.Printf("[subtitles] Burning %d cues into video...", n)
	if _, err := e.runner.Run(ctx, e.cfg.ComposeTimeout(), args...); err != nil {
		log.Printf("[subtitles] ⚠️ Burn failed: %v — using video without subtitles", err)
		return videoFile
	}
	return burned
}

func (e *Engine) planner() *compose.Planner {
	return compose.NewPlanner(e.cfg.Video.Width, e.cfg.Video.Height, e.cfg.Video.FPS, e.cfg.Encoding.Quality)
}

// flatten projects timeline entries onto the planner's parallel inputs: the
// first assigned asset per scene (empty for filler scenes) and the timing
// slots.
func flatten(entries []types.TimelineEntry) ([]string, []compose.SceneTiming) {
	assets := make([]string, len(entries))
	for i, entry := range entries {
		if len(entry.Assets) > 0 {
			assets[i] = entry.Assets[0]
		}
	}
	return assets, compose.TimingsFromEntries(entries)
}
