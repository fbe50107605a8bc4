package types

import "time"

// GenerationRequest is one video-generation request as submitted by a caller
type GenerationRequest struct {
	Prompt      string `json:"prompt"`
	DurationSec int    `json:"duration_sec"`
	Style       string `json:"style,omitempty"`
	Voice       string `json:"voice,omitempty"`
	Quality     string `json:"quality,omitempty"`
	UserID      string `json:"user_id,omitempty"`
}

// ResearchData holds the research stage output for one session
type ResearchData struct {
	Facts     []string          `json:"facts"`
	Sources   []string          `json:"sources"`
	KeyPoints []string          `json:"key_points"`
	Context   map[string]string `json:"context,omitempty"`
}

// Scene is one narrative unit of the script
type Scene struct {
	Number             int      `json:"scene_number"`
	Description        string   `json:"description"`
	VisualRequirements []string `json:"visual_requirements"`
	Dialogue           string   `json:"dialogue"`
	DurationSec        float64  `json:"duration_sec"`
	Assets             []string `json:"assets,omitempty"`
}

// Script is the full structured script for one video
type Script struct {
	Title            string  `json:"title"`
	Scenes           []Scene `json:"scenes"`
	TotalDurationSec float64 `json:"total_duration_sec"`
}

// AudioSegment is one narrated unit aligned to a scene by scene number
type AudioSegment struct {
	SceneNumber int     `json:"scene_number"`
	DurationSec float64 `json:"duration_sec"`
	Transcript  string  `json:"transcript"`
	AudioFile   string  `json:"audio_file"`
}

// AudioAssets holds the audio stage output for one session
type AudioAssets struct {
	Segments         []AudioSegment `json:"segments"`
	Files            []string       `json:"files"`
	CombinedFile     string         `json:"combined_file,omitempty"`
	TotalDurationSec float64        `json:"total_duration_sec"`
}

// AssetItem is one sourced visual asset
type AssetItem struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"` // image | video
	SourceURL string            `json:"source_url,omitempty"`
	LocalPath string            `json:"local_path,omitempty"`
	License   string            `json:"license,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AssetCollection holds the asset-sourcing stage output for one session
type AssetCollection struct {
	Images     []AssetItem `json:"images"`
	VideoClips []AssetItem `json:"video_clips"`
}

// Paths returns the local paths of all items in collection order, videos first
// falling back to source URLs for items that were never downloaded.
func (c *AssetCollection) Paths() []string {
	if c == nil {
		return nil
	}
	var paths []string
	for _, item := range append(append([]AssetItem{}, c.VideoClips...), c.Images...) {
		if item.LocalPath != "" {
			paths = append(paths, item.LocalPath)
		} else if item.SourceURL != "" {
			paths = append(paths, item.SourceURL)
		}
	}
	return paths
}

// TimelineEntry is the synchronized start/end/asset/audio assignment for one
// scene. Entries are derived per assembly run and discarded after encoding.
type TimelineEntry struct {
	SceneNumber        int      `json:"scene_number"`
	StartTime          float64  `json:"start_time"`
	EndTime            float64  `json:"end_time"`
	DurationSec        float64  `json:"duration_sec"`
	Assets             []string `json:"assets"`
	AudioFile          string   `json:"audio_file"`
	Dialogue           string   `json:"dialogue"`
	Transition         string   `json:"transition"`
	TransitionDuration float64  `json:"transition_duration"`
}

// FinalVideo describes the completed artifact of one session
type FinalVideo struct {
	Path        string    `json:"path"`
	Format      string    `json:"format"`
	DurationSec float64   `json:"duration_sec"`
	SizeBytes   int64     `json:"size_bytes"`
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
