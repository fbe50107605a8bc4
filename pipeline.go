// Command video-gen-pipeline turns a text prompt into a rendered video: a
// five-stage session (research, scripting, asset sourcing, audio generation,
// assembly) driven through the session state machine, with provider-backed
// workers where credentials exist and offline workers everywhere else.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"video-gen-pipeline/01_research"
	"video-gen-pipeline/02_story"
	"video-gen-pipeline/03_assets"
	"video-gen-pipeline/04_audio"
	"video-gen-pipeline/05_assembly"
	"video-gen-pipeline/config"
	"video-gen-pipeline/coordinator"
	"video-gen-pipeline/eventlog"
	"video-gen-pipeline/ffmpeg"
	"video-gen-pipeline/publish"
	"video-gen-pipeline/session"
	"video-gen-pipeline/types"
)

func main() {
	// Load .env (local dev only — CI injects real secrets)
	_ = godotenv.Load()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Printf("[main] No config.yaml (%v) — using defaults", err)
		cfg = config.Default()
	}

	prompt := strings.TrimSpace(strings.Join(os.Args[1:], " "))
	if prompt == "" {
		prompt = os.Getenv("VIDEO_PROMPT")
	}
	if prompt == "" {
		log.Fatal("usage: video-gen-pipeline \"<prompt>\" (or set VIDEO_PROMPT)")
	}

	for _, dir := range []string{cfg.Paths.Output, cfg.Paths.Logs, cfg.Paths.Data} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create dir %s: %v", dir, err)
		}
	}

	events, err := eventlog.NewLogger(cfg.Paths.Logs)
	if err != nil {
		log.Fatalf("Failed to open event log: %v", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open session store (%s): %v", cfg.Session.Backend, err)
	}

	ctx := context.Background()
	sessions := session.NewManager(store, events)
	sessions.StartCleanup(ctx,
		time.Duration(cfg.Session.CleanupIntervalMin)*time.Minute,
		time.Duration(cfg.Session.MaxSessionAgeMin)*time.Minute)

	runner := ffmpeg.NewRunner(cfg.FFmpeg.FFmpegPath, cfg.FFmpeg.FFprobePath)
	coord := coordinator.New(sessions,
		researchWorker(cfg),
		scriptWorker(cfg),
		assets.NewSourcer(cfg, runner),
		audioWorker(cfg, runner),
		assembly.New(cfg, runner),
	)

	req := types.GenerationRequest{
		Prompt:      prompt,
		DurationSec: requestDuration(cfg),
		Quality:     cfg.Encoding.Quality,
	}
	if err := req.Validate(); err != nil {
		log.Fatalf("Invalid request: %v", err)
	}

	s, err := sessions.CreateSession(ctx, req, os.Getenv("VIDEO_USER_ID"))
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	log.Printf("🎬 Video pipeline starting — Session: %s", s.ID)
	log.Printf("📝 Prompt: %q (%ds)", req.Prompt, req.DurationSec)

	res := coord.Run(ctx, s.ID)

	final, err := sessions.GetSession(ctx, s.ID)
	if err != nil {
		log.Fatalf("Failed to read back session %s: %v", s.ID, err)
	}
	saveJSON(filepath.Join(cfg.Paths.Output, s.ID, "session.json"), final)

	if !res.Success {
		log.Printf("❌ Pipeline failed at %s: %s", res.Stage, res.ErrorMessage)
		os.Exit(1)
	}
	log.Printf("✅ Pipeline complete! Video: %s", final.FinalVideo.Path)

	if cfg.Publish.Enabled {
		publishVideo(ctx, cfg, final)
	}
}

// openStore selects the session persistence backend from config.
func openStore(cfg *config.Config) (session.Store, error) {
	switch cfg.Session.Backend {
	case "sqlite":
		return session.NewSQLiteStore(cfg.Session.SQLitePath)
	case "redis":
		return session.NewRedisStore(cfg.Session.Redis)
	default:
		return session.NewMemoryStore(), nil
	}
}

// researchWorker prefers the Reddit-backed source and falls back to the
// offline one when the client cannot be built.
func researchWorker(cfg *config.Config) coordinator.ResearchWorker {
	if os.Getenv("OFFLINE_MODE") != "" || len(cfg.Research.Subreddits) == 0 {
		return research.OfflineSource{}
	}
	src, err := research.NewRedditSource(cfg)
	if err != nil {
		log.Printf("[main] ⚠️ Reddit source unavailable (%v) — using offline research", err)
		return research.OfflineSource{}
	}
	return src
}

// scriptWorker uses the Gemini writer when an API key is present.
func scriptWorker(cfg *config.Config) coordinator.ScriptWorker {
	if os.Getenv("OFFLINE_MODE") == "" && os.Getenv("GEMINI_API_KEY") != "" {
		return story.NewGeminiWriter(cfg)
	}
	log.Println("[main] No GEMINI_API_KEY — using offline script writer")
	return story.NewOfflineWriter(cfg)
}

// audioWorker uses the HTTP TTS adapter when an endpoint is configured,
// otherwise renders silent placeholder narration of exact scene length.
func audioWorker(cfg *config.Config, runner *ffmpeg.Runner) coordinator.AudioWorker {
	if os.Getenv("OFFLINE_MODE") == "" && cfg.Audio.TTSEndpoint != "" {
		return audio.NewHTTPSynthesizer(cfg, runner)
	}
	log.Println("[main] No TTS endpoint — using silent narration")
	return audio.NewSilenceSynthesizer(cfg, runner)
}

func requestDuration(cfg *config.Config) int {
	if v := os.Getenv("VIDEO_DURATION_SEC"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil {
			return sec
		}
		log.Printf("[main] ⚠️ Ignoring bad VIDEO_DURATION_SEC=%q", v)
	}
	return cfg.Pipeline.DefaultDurationSec
}

// publishVideo uploads the finished artifact. Publish failures never touch
// session state; the session already completed.
func publishVideo(ctx context.Context, cfg *config.Config, s *session.Session) {
	meta := publish.BuildMetadata(cfg, s.Request, s.Script, s.Research)
	uploader := publish.NewUploader(cfg)

	videoID, videoURL, err := uploader.Upload(ctx, s.FinalVideo.Path, meta)
	if err != nil {
		log.Printf("⚠️ Publish failed: %v", err)
		return
	}
	if err := publish.RecordUpload(cfg.Paths.Logs, videoID, videoURL, s.FinalVideo.Path, meta); err != nil {
		log.Printf("⚠️ Could not record upload: %v", err)
	}
}

func saveJSON(path string, v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Printf("Warning: could not marshal JSON for %s: %v", path, err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Printf("Warning: could not create dir for %s: %v", path, err)
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Printf("Warning: could not save %s: %v", path, err)
	}
}
