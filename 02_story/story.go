// Package story implements the scripting stage: turning research into a
// scene-by-scene script with dialogue and visual requirements.
package story

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"strings"

	"google.golang.org/genai"

	"video-gen-pipeline/config"
	"video-gen-pipeline/types"
)

const systemPrompt = `You are a professional scriptwriter for short-form educational videos. You turn research notes into tight, spoken-word scripts for faceless channels.

You MUST respond with ONLY valid JSON. No preamble, no markdown, no explanation.

The JSON object must have:
- "title": a concise video title
- "scenes": an array of scene objects

Each scene object must have:
- "description": one line describing what happens on screen
- "visual_requirements": array of short tags describing the footage or imagery to show, like ["ocean floor", "submersible lights"]
- "dialogue": the exact words to be spoken (1-4 sentences)

Structure the scenes as introduction, main content, and conclusion. Keep the spoken words within the requested duration when read aloud at a natural pace (~130 words per minute). Every scene needs dialogue.`

// Minimum seconds a scene can run. Guards against near-empty dialogue
// producing zero-length scenes.
const minSceneSec = 2.0

// GeminiWriter generates scripts with the Gemini API.
type GeminiWriter struct {
	cfg *config.Config
}

// NewGeminiWriter creates a script writer backed by Gemini.
func NewGeminiWriter(cfg *config.Config) *GeminiWriter {
	return &GeminiWriter{cfg: cfg}
}

// scriptJSON is the raw JSON structure returned by the model.
type scriptJSON struct {
	Title  string      `json:"title"`
	Scenes []sceneJSON `json:"scenes"`
}

type sceneJSON struct {
	Description        string   `json:"description"`
	VisualRequirements []string `json:"visual_requirements"`
	Dialogue           string   `json:"dialogue"`
}

// WriteScript generates a full script from the request and research data.
func (w *GeminiWriter) WriteScript(ctx context.Context, req types.GenerationRequest, research *types.ResearchData) (*types.Script, error) {
	log.Printf("[story] Generating script via Gemini (%s)...", w.cfg.Story.Model)

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, &types.ProcessingError{Stage: "scripting", Err: fmt.Errorf("GEMINI_API_KEY not set")}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	userPrompt := buildUserPrompt(req, research)
	contents := []*genai.Content{
		{Parts: []*genai.Part{genai.NewPartFromText(userPrompt)}},
	}
	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{genai.NewPartFromText(systemPrompt)}},
		Temperature:       floatPtr(w.cfg.Story.Temperature),
		ResponseMIMEType:  "application/json",
	}

	result, err := client.Models.GenerateContent(ctx, w.cfg.Story.Model, contents, genCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini request: %w", err)
	}

	content := responseText(result)
	if content == "" {
		return nil, fmt.Errorf("gemini returned no text")
	}
	content = cleanJSON(content)

	var raw scriptJSON
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("parse script JSON: %w\nraw content: %s", err, content[:min(200, len(content))])
	}
	if len(raw.Scenes) == 0 {
		return nil, fmt.Errorf("model returned no scenes")
	}

	script := convertScript(raw, w.cfg.Story.WordsPerMinute)
	log.Printf("[story] ✅ Script ready: %d scenes, ~%.0f seconds", len(script.Scenes), script.TotalDurationSec)
	return script, nil
}

func buildUserPrompt(req types.GenerationRequest, research *types.ResearchData) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Write a %d second video script about: %s\n\n", req.DurationSec, req.Prompt))
	if req.Style != "" {
		sb.WriteString(fmt.Sprintf("STYLE: %s\n\n", req.Style))
	}

	if research != nil {
		if len(research.Facts) > 0 {
			sb.WriteString("RESEARCH FACTS:\n")
			for _, f := range research.Facts {
				sb.WriteString("- " + f + "\n")
			}
			sb.WriteString("\n")
		}
		if len(research.KeyPoints) > 0 {
			sb.WriteString("KEY POINTS TO COVER:\n")
			for _, kp := range research.KeyPoints {
				sb.WriteString("- " + kp + "\n")
			}
			sb.WriteString("\n")
		}
	}

	sb.WriteString("Respond ONLY with valid JSON. No markdown. No explanation.")
	return sb.String()
}

// convertScript assigns sequential scene numbers and estimates per-scene
// timing from dialogue word counts.
func convertScript(raw scriptJSON, wordsPerMinute int) *types.Script {
	if wordsPerMinute <= 0 {
		wordsPerMinute = 130
	}

	script := &types.Script{Title: strings.TrimSpace(raw.Title)}
	for i, s := range raw.Scenes {
		words := len(strings.Fields(s.Dialogue))
		duration := float64(words) / float64(wordsPerMinute) * 60.0
		if duration < minSceneSec {
			duration = minSceneSec
		}
		if duration > types.MaxSceneDurationSec {
			duration = types.MaxSceneDurationSec
		}

		script.Scenes = append(script.Scenes, types.Scene{
			Number:             i + 1,
			Description:        strings.TrimSpace(s.Description),
			VisualRequirements: s.VisualRequirements,
			Dialogue:           strings.TrimSpace(s.Dialogue),
			DurationSec:        duration,
		})
		script.TotalDurationSec += duration
	}
	return script
}

// responseText concatenates the text parts of all candidates.
func responseText(result *genai.GenerateContentResponse) string {
	var sb strings.Builder
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				sb.WriteString(part.Text)
			}
		}
	}
	return sb.String()
}

// cleanJSON strips markdown fences if the model wraps its response in
// ```json ... ```
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func floatPtr(f float64) *float32 {
	v := float32(f)
	return &v
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// OfflineWriter produces a deterministic template script, used when no model
// provider is configured.
type OfflineWriter struct {
	cfg *config.Config
}

// NewOfflineWriter creates a template-based script writer.
func NewOfflineWriter(cfg *config.Config) *OfflineWriter {
	return &OfflineWriter{cfg: cfg}
}

// WriteScript builds an introduction, main content, and conclusion from the
// research key points, splitting the requested duration evenly across scenes.
func (w *OfflineWriter) WriteScript(ctx context.Context, req types.GenerationRequest, research *types.ResearchData) (*types.Script, error) {
	log.Printf("[story] Using offline template script for %q", req.Prompt)

	var keyPoints []string
	if research != nil {
		keyPoints = research.KeyPoints
	}

	title := "Video about " + req.Prompt
	if len(keyPoints) > 0 {
		title = "Video about " + keyPoints[0]
	}

	// Three scenes normally. Longer requests get extra main content scenes so
	// no single scene exceeds the per-scene cap.
	total := float64(req.DurationSec)
	sceneCount := 3
	if n := int(math.Ceil(total / 100.0)); n > sceneCount {
		sceneCount = n
	}
	perScene := total / float64(sceneCount)

	script := &types.Script{Title: title}
	for i := 0; i < sceneCount; i++ {
		scene := types.Scene{Number: i + 1, DurationSec: perScene}
		switch {
		case i == 0:
			scene.Description = "Introduction scene"
			scene.VisualRequirements = []string{"title card", "engaging background"}
			scene.Dialogue = "Welcome to our exploration of this fascinating topic."
		case i == sceneCount-1:
			scene.Description = "Conclusion scene"
			scene.VisualRequirements = []string{"summary graphics", "call to action"}
			scene.Dialogue = "Thank you for watching. Don't forget to subscribe for more content."
		default:
			scene.Description = "Main content scene"
			scene.VisualRequirements = []string{"relevant imagery", "supporting visuals"}
			scene.Dialogue = "Let's dive into the key aspects: " + mainPoints(keyPoints, i-1) + "."
		}
		script.Scenes = append(script.Scenes, scene)
		script.TotalDurationSec += perScene
	}

	return script, nil
}

// mainPoints picks up to two key points for a main content scene, cycling
// when there are more scenes than points.
func mainPoints(keyPoints []string, sceneIdx int) string {
	if len(keyPoints) == 0 {
		return "this topic"
	}
	first := keyPoints[(sceneIdx*2)%len(keyPoints)]
	second := keyPoints[(sceneIdx*2+1)%len(keyPoints)]
	if first == second {
		return first
	}
	return first + ", " + second
}
