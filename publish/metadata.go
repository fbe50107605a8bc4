package publish

import (
	"fmt"
	"strings"

	"video-gen-pipeline/config"
	"video-gen-pipeline/types"
)

// YouTube rejects titles longer than 100 characters.
const titleMaxChars = 100

const maxTags = 30

// Metadata is the listing information attached to an uploaded video.
type Metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	CategoryID  string   `json:"category_id"`
	Visibility  string   `json:"visibility"`
}

// BuildMetadata derives listing metadata from the finished script and the
// research trail. No model call involved, the script already carries the
// words that matter.
func BuildMetadata(cfg *config.Config, req types.GenerationRequest, script *types.Script, research *types.ResearchData) Metadata {
	title := strings.TrimSpace(script.Title)
	if title == "" {
		title = "Video: " + req.Prompt
	}
	if len(title) > titleMaxChars {
		title = title[:titleMaxChars-3] + "..."
	}

	return Metadata{
		Title:       title,
		Description: buildDescription(req, script, research),
		Tags:        buildTags(req, script),
		CategoryID:  cfg.Publish.CategoryID,
		Visibility:  cfg.Publish.Visibility,
	}
}

func buildDescription(req types.GenerationRequest, script *types.Script, research *types.ResearchData) string {
	var sb strings.Builder
	sb.WriteString(script.Title + "\n\n")
	sb.WriteString(fmt.Sprintf("%d scenes, %.0f seconds.\n\n", len(script.Scenes), script.TotalDurationSec))

	sb.WriteString("In this video:\n")
	for _, s := range script.Scenes {
		if s.Description != "" {
			sb.WriteString("- " + s.Description + "\n")
		}
	}

	if research != nil && len(research.Sources) > 0 {
		sb.WriteString("\nSources:\n")
		for _, src := range research.Sources {
			sb.WriteString("- " + src + "\n")
		}
	}

	return sb.String()
}

// buildTags collects distinct meaningful words from the prompt and the
// scenes' visual requirements.
func buildTags(req types.GenerationRequest, script *types.Script) []string {
	seen := make(map[string]bool)
	var tags []string

	add := func(tag string) {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if len(tag) < 4 || seen[tag] || len(tags) >= maxTags {
			return
		}
		seen[tag] = true
		tags = append(tags, tag)
	}

	for _, w := range strings.Fields(req.Prompt) {
		add(strings.Trim(w, ".,!?:;\"'()"))
	}
	for _, scene := range script.Scenes {
		for _, vr := range scene.VisualRequirements {
			add(vr)
		}
	}
	return tags
}
