package assets

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"video-gen-pipeline/config"
	"video-gen-pipeline/types"
)

// ImageFetcher generates scene illustrations through an image endpoint that
// renders a prompt straight to pixels.
type ImageFetcher struct {
	cfg        *config.Config
	httpClient *http.Client
}

// NewImageFetcher creates a fetcher for the configured image endpoint.
func NewImageFetcher(cfg *config.Config) *ImageFetcher {
	return &ImageFetcher{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Fetch generates an image for a scene and saves it under outputDir. The
// endpoint occasionally times out, so it retries up to 3 times.
func (f *ImageFetcher) Fetch(ctx context.Context, scene types.Scene, outputDir string) (string, string, error) {
	prompt := imagePrompt(scene)
	if prompt == "" {
		return "", "", fmt.Errorf("scene %d has nothing to render", scene.Number)
	}

	imageURL := buildImageURL(f.cfg.Assets.ImageEndpoint, prompt, f.cfg.Video.Width, f.cfg.Video.Height, scene.Number*42+7)
	outFile := filepath.Join(outputDir, fmt.Sprintf("scene_%03d.jpg", scene.Number))

	log.Printf("[assets] Generating image for scene %d: %q", scene.Number, truncate(prompt, 60))

	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		err = f.download(ctx, imageURL, outFile)
		if err == nil {
			log.Printf("[assets] ✅ Scene %d image saved: %s", scene.Number, outFile)
			return outFile, imageURL, nil
		}
		log.Printf("[assets] Attempt %d failed for scene %d: %v", attempt, scene.Number, err)
		if attempt < 3 {
			time.Sleep(time.Duration(attempt) * 3 * time.Second)
		}
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}
	}

	return "", "", fmt.Errorf("image generation failed after 3 attempts: %w", err)
}

func (f *ImageFetcher) download(ctx context.Context, imageURL, outFile string) error {
	req, err := http.NewRequestWithContext(ctx, "GET", imageURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; VideoGenPipeline/1.0)")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from image endpoint", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	// Tiny responses are error pages, not images
	if len(data) < 100 {
		return fmt.Errorf("response too small (%d bytes)", len(data))
	}

	return os.WriteFile(outFile, data, 0644)
}

// buildImageURL encodes the prompt into the endpoint's path. The seed is
// derived from the scene number so reruns produce the same frame.
func buildImageURL(endpoint, prompt string, width, height, seed int) string {
	return fmt.Sprintf(
		"%s/prompt/%s?width=%d&height=%d&nologo=true&model=flux&seed=%d",
		strings.TrimSuffix(endpoint, "/"),
		url.PathEscape(prompt),
		width, height, seed,
	)
}

// imagePrompt turns a scene into a generation prompt, folding in the visual
// requirements and standard style modifiers.
func imagePrompt(scene types.Scene) string {
	base := strings.TrimSpace(scene.Description)
	if base == "" {
		base = strings.Join(scene.VisualRequirements, ", ")
	}
	if base == "" {
		return ""
	}

	parts := []string{base}
	if len(scene.VisualRequirements) > 0 {
		parts = append(parts, strings.Join(scene.VisualRequirements, ", "))
	}
	parts = append(parts, "cinematic, detailed lighting, photorealistic", "no text, no watermark")
	return strings.Join(parts, ", ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
