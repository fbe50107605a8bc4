// Package assets implements the asset-sourcing stage: collecting a visual
// for every scene from the local clip library, generated imagery, or
// reference photos, with rendered placeholders as the last resort.
package assets

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"video-gen-pipeline/config"
	"video-gen-pipeline/ffmpeg"
	"video-gen-pipeline/types"
)

// Sourcer collects visual assets for every scene of a script.
type Sourcer struct {
	cfg    *config.Config
	runner *ffmpeg.Runner
	images *ImageFetcher
	remote *RemoteFetcher
}

// NewSourcer wires the fetchers behind one sourcing front.
func NewSourcer(cfg *config.Config, runner *ffmpeg.Runner) *Sourcer {
	return &Sourcer{
		cfg:    cfg,
		runner: runner,
		images: NewImageFetcher(cfg),
		remote: NewRemoteFetcher(),
	}
}

// SourceAssets finds one visual per scene. Scenes that defeat every source
// are left without an asset; assembly fills those with generated footage.
func (s *Sourcer) SourceAssets(ctx context.Context, script *types.Script) (*types.AssetCollection, error) {
	runID := uuid.NewString()
	outputDir := filepath.Join(s.cfg.Paths.Output, "assets", runID[:8])
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create asset dir: %w", err)
	}

	lib, err := NewLibrary(s.cfg, runID)
	if err != nil {
		log.Printf("[assets] ⚠️ Clip library unavailable: %v", err)
		lib = nil
	}

	log.Printf("[assets] Sourcing visuals for %d scenes...", len(script.Scenes))

	col := &types.AssetCollection{}
	for _, scene := range script.Scenes {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		item := s.sceneAsset(ctx, lib, scene, outputDir)
		if item == nil {
			log.Printf("[assets] ⚠️ Scene %d has no visual, assembly will use filler footage", scene.Number)
			continue
		}
		if item.Type == "video" {
			col.VideoClips = append(col.VideoClips, *item)
		} else {
			col.Images = append(col.Images, *item)
		}
	}

	log.Printf("[assets] ✅ Sourced %d clips and %d images", len(col.VideoClips), len(col.Images))
	return col, nil
}

// sceneAsset works through the sources in preference order: library clip,
// generated image, encyclopedia photo, rendered placeholder.
func (s *Sourcer) sceneAsset(ctx context.Context, lib *Library, scene types.Scene, outputDir string) *types.AssetItem {
	if lib != nil && !lib.Empty() {
		if path, err := lib.Pick(scene); err == nil {
			return &types.AssetItem{
				ID:        fmt.Sprintf("asset_%03d", scene.Number),
				Type:      "video",
				LocalPath: path,
				License:   "library",
				Metadata:  sceneMeta(scene, "library"),
			}
		}
	}

	if path, srcURL, err := s.images.Fetch(ctx, scene, outputDir); err == nil {
		return &types.AssetItem{
			ID:        fmt.Sprintf("asset_%03d", scene.Number),
			Type:      "image",
			SourceURL: srcURL,
			LocalPath: path,
			License:   "generated",
			Metadata:  sceneMeta(scene, "generated"),
		}
	} else if ctx.Err() != nil {
		return nil
	} else {
		log.Printf("[assets] Scene %d image generation failed: %v", scene.Number, err)
	}

	if path, srcURL, err := s.remote.FetchIllustration(ctx, scene, outputDir); err == nil {
		return &types.AssetItem{
			ID:        fmt.Sprintf("asset_%03d", scene.Number),
			Type:      "image",
			SourceURL: srcURL,
			LocalPath: path,
			License:   "wikimedia",
			Metadata:  sceneMeta(scene, "wikipedia"),
		}
	}

	if path, err := s.renderPlaceholder(ctx, scene, outputDir); err == nil {
		return &types.AssetItem{
			ID:        fmt.Sprintf("asset_%03d", scene.Number),
			Type:      "image",
			LocalPath: path,
			Metadata:  sceneMeta(scene, "placeholder"),
		}
	} else {
		log.Printf("[assets] Scene %d placeholder render failed: %v", scene.Number, err)
	}

	return nil
}

// renderPlaceholder draws a single flat-color frame so the scene still has
// an image when every other source failed.
func (s *Sourcer) renderPlaceholder(ctx context.Context, scene types.Scene, outputDir string) (string, error) {
	if s.runner == nil {
		return "", fmt.Errorf("no renderer available")
	}

	outFile := filepath.Join(outputDir, fmt.Sprintf("scene_%03d_placeholder.png", scene.Number))
	args := placeholderArgs(s.cfg.Video.Width, s.cfg.Video.Height, outFile)
	if _, err := s.runner.Run(ctx, s.cfg.ComposeTimeout(), args...); err != nil {
		return "", err
	}
	return outFile, nil
}

func placeholderArgs(width, height int, outFile string) []string {
	return []string{
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=0x1a1a2e:s=%dx%d:d=1", width, height),
		"-frames:v", "1",
		outFile,
	}
}

func sceneMeta(scene types.Scene, source string) map[string]string {
	return map[string]string{
		"scene":  strconv.Itoa(scene.Number),
		"source": source,
	}
}
