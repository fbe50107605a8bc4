package compose

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"video-gen-pipeline/encoding"
	"video-gen-pipeline/types"
)

// defaultSceneDuration fills in for timing entries that carry no duration.
const defaultSceneDuration = 5.0

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".bmp": true, ".tiff": true, ".webp": true,
}

var videoExtensions = map[string]bool{
	".mp4": true, ".avi": true, ".mov": true, ".mkv": true, ".webm": true, ".flv": true,
}

var audioExtensions = map[string]bool{
	".wav": true, ".mp3": true, ".aac": true, ".m4a": true, ".ogg": true, ".flac": true,
}

// SceneTiming is one scene's slot on the output timeline.
type SceneTiming struct {
	SceneNumber int     `json:"scene_number"`
	Start       float64 `json:"start"`
	Duration    float64 `json:"duration"`
}

// Planner builds codec argument lists that combine visual assets and audio
// into one continuous video.
type Planner struct {
	Width   int
	Height  int
	FPS     int
	Quality string
}

func NewPlanner(width, height, fps int, quality string) *Planner {
	return &Planner{Width: width, Height: height, FPS: fps, Quality: quality}
}

// Command builds the full composition argument list: one input per asset plus
// the audio file, a filter graph that scales every input and sizes each scene
// segment to its timing (looping stills, trimming clips), a concat of all
// segments, and a mux of the single audio stream. An empty asset path stands
// for a scene with no assets and synthesizes a black segment of the scene's
// duration.
func (p *Planner) Command(assets []string, audioFile, output string, timings []SceneTiming) ([]string, error) {
	if err := p.validate(assets, audioFile, output); err != nil {
		return nil, err
	}
	if len(timings) == 0 {
		return nil, &types.ValidationError{Field: "scene_timings", Reason: "no timing entries provided"}
	}

	args := []string{"-y"}
	for i, asset := range assets {
		if asset == "" {
			args = append(args, "-f", "lavfi", "-i", p.fillerSource(durationAt(timings, i)))
			continue
		}
		args = append(args, "-i", asset)
	}
	args = append(args, "-i", audioFile)

	args = append(args, "-filter_complex", p.filterComplex(assets, timings))
	args = append(args, "-map", "[v]", "-map", fmt.Sprintf("%d:a", len(assets)))

	q := encoding.Lookup(encoding.Tier(p.Quality), encoding.TargetQuality, encoding.FormatMP4)
	args = append(args, "-c:v", q.VideoCodec, "-crf", strconv.Itoa(q.CRF), "-preset", q.Preset)
	args = append(args, "-s", p.resolution(), "-r", strconv.Itoa(p.FPS), "-c:a", "aac", "-b:a", "128k")
	return append(args, output), nil
}

// SegmentCommand builds the argument list that renders a single scene into a
// standalone video segment of the timing's duration, with no audio stream.
// An empty asset synthesizes a black segment.
func (p *Planner) SegmentCommand(asset string, timing SceneTiming, output string) ([]string, error) {
	if output == "" {
		return nil, &types.ValidationError{Field: "output_path", Reason: "no output path provided"}
	}
	duration := timing.Duration
	if duration <= 0 {
		duration = defaultSceneDuration
	}

	args := []string{"-y"}
	var filter string
	switch {
	case asset == "":
		args = append(args, "-f", "lavfi", "-i", p.fillerSource(duration))
		filter = fmt.Sprintf("[0:v]trim=duration=%s[v]", formatSeconds(duration))
	case isImageFile(asset):
		if _, err := os.Stat(asset); err != nil {
			return nil, &types.ValidationError{Field: "video_assets", Reason: fmt.Sprintf("missing video assets: [%s]", asset)}
		}
		args = append(args, "-i", asset)
		filter = fmt.Sprintf("[0:v]scale=%s[v0];[v0]loop=loop=-1:size=%d:start=0[v]", p.resolution(), p.FPS*int(duration))
	default:
		if _, err := os.Stat(asset); err != nil {
			return nil, &types.ValidationError{Field: "video_assets", Reason: fmt.Sprintf("missing video assets: [%s]", asset)}
		}
		if ext := strings.ToLower(filepath.Ext(asset)); !videoExtensions[ext] {
			return nil, &types.ValidationError{Field: "media_files", Reason: fmt.Sprintf("unsupported video asset format: %s", asset)}
		}
		args = append(args, "-i", asset)
		filter = fmt.Sprintf("[0:v]scale=%s[v0];[v0]trim=duration=%s[v]", p.resolution(), formatSeconds(duration))
	}
	args = append(args, "-filter_complex", filter, "-map", "[v]")

	q := encoding.Lookup(encoding.Tier(p.Quality), encoding.TargetQuality, encoding.FormatMP4)
	args = append(args, "-c:v", q.VideoCodec, "-crf", strconv.Itoa(q.CRF), "-preset", q.Preset)
	args = append(args, "-r", strconv.Itoa(p.FPS), "-an")
	return append(args, output), nil
}

// MuxCommand builds the argument list that merges a rendered video track and
// an audio track, copying video and encoding audio to AAC.
func (p *Planner) MuxCommand(videoFile, audioFile, output string) ([]string, error) {
	if videoFile == "" {
		return nil, &types.ValidationError{Field: "video_file", Reason: "no video file provided"}
	}
	if audioFile == "" {
		return nil, &types.ValidationError{Field: "audio_file", Reason: "no audio file provided"}
	}
	if output == "" {
		return nil, &types.ValidationError{Field: "output_path", Reason: "no output path provided"}
	}
	if _, err := os.Stat(videoFile); err != nil {
		return nil, &types.ValidationError{Field: "video_file", Reason: fmt.Sprintf("not found: %s", videoFile)}
	}
	if _, err := os.Stat(audioFile); err != nil {
		return nil, &types.ValidationError{Field: "audio_file", Reason: fmt.Sprintf("not found: %s", audioFile)}
	}

	return []string{
		"-y", "-i", videoFile, "-i", audioFile,
		"-c:v", "copy", "-c:a", "aac", "-b:a", "128k",
		"-shortest", output,
	}, nil
}

// ConcatCommand builds a plain unweighted concatenation of all assets with no
// audio stream. Used when no per-scene timing exists; the caller muxes audio
// separately.
func (p *Planner) ConcatCommand(assets []string, output string) ([]string, error) {
	if len(assets) == 0 {
		return nil, &types.ValidationError{Field: "video_assets", Reason: "no video assets provided"}
	}
	if output == "" {
		return nil, &types.ValidationError{Field: "output_path", Reason: "no output path provided"}
	}

	args := []string{"-y"}
	for _, asset := range assets {
		args = append(args, "-i", asset)
	}
	filter := fmt.Sprintf("concat=n=%d:v=1:a=0[v]", len(assets))
	args = append(args, "-filter_complex", filter, "-map", "[v]")

	q := encoding.Lookup(encoding.Tier(p.Quality), encoding.TargetQuality, encoding.FormatMP4)
	args = append(args, "-c:v", q.VideoCodec, "-crf", strconv.Itoa(q.CRF), "-preset", q.Preset)
	args = append(args, "-s", p.resolution(), "-r", strconv.Itoa(p.FPS))
	return append(args, output), nil
}

// filterComplex chains scale, loop/trim, and concat filters. Scene segments
// are bounded by whichever of assets or timings is shorter.
func (p *Planner) filterComplex(assets []string, timings []SceneTiming) string {
	var filters []string
	for i := range assets {
		filters = append(filters, fmt.Sprintf("[%d:v]scale=%s[v%d]", i, p.resolution(), i))
	}

	var concatInputs []string
	for i, timing := range timings {
		if i >= len(assets) {
			break
		}
		duration := timing.Duration
		if duration <= 0 {
			duration = defaultSceneDuration
		}
		if assets[i] != "" && isImageFile(assets[i]) {
			filters = append(filters, fmt.Sprintf("[v%d]loop=loop=-1:size=%d:start=0[loop%d]", i, p.FPS*int(duration), i))
			concatInputs = append(concatInputs, fmt.Sprintf("[loop%d]", i))
		} else {
			filters = append(filters, fmt.Sprintf("[v%d]trim=duration=%s[trim%d]", i, formatSeconds(duration), i))
			concatInputs = append(concatInputs, fmt.Sprintf("[trim%d]", i))
		}
	}

	if len(concatInputs) > 0 {
		filters = append(filters, strings.Join(concatInputs, "")+fmt.Sprintf("concat=n=%d:v=1:a=0[v]", len(concatInputs)))
	}
	return strings.Join(filters, ";")
}

func (p *Planner) fillerSource(duration float64) string {
	return fmt.Sprintf("color=c=black:s=%s:r=%d:d=%s", p.resolution(), p.FPS, formatSeconds(duration))
}

func (p *Planner) resolution() string {
	return fmt.Sprintf("%dx%d", p.Width, p.Height)
}

func (p *Planner) validate(assets []string, audioFile, output string) error {
	if len(assets) == 0 {
		return &types.ValidationError{Field: "video_assets", Reason: "no video assets provided"}
	}
	if audioFile == "" {
		return &types.ValidationError{Field: "audio_file", Reason: "no audio file provided"}
	}
	if output == "" {
		return &types.ValidationError{Field: "output_path", Reason: "no output path provided"}
	}
	if _, err := os.Stat(audioFile); err != nil {
		return &types.ValidationError{Field: "audio_file", Reason: fmt.Sprintf("not found: %s", audioFile)}
	}

	var problems []string
	var missing []string
	for _, asset := range assets {
		if asset == "" {
			continue
		}
		if _, err := os.Stat(asset); err != nil {
			missing = append(missing, asset)
			continue
		}
		ext := strings.ToLower(filepath.Ext(asset))
		if !videoExtensions[ext] && !imageExtensions[ext] {
			problems = append(problems, fmt.Sprintf("unsupported video asset format: %s", asset))
		}
	}
	if len(missing) > 0 {
		return &types.ValidationError{Field: "video_assets", Reason: fmt.Sprintf("missing video assets: %v", missing)}
	}
	if ext := strings.ToLower(filepath.Ext(audioFile)); !audioExtensions[ext] {
		problems = append(problems, fmt.Sprintf("unsupported audio format: %s", audioFile))
	}
	if len(problems) > 0 {
		return &types.ValidationError{Field: "media_files", Reason: strings.Join(problems, "; ")}
	}
	return nil
}

func isImageFile(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

func durationAt(timings []SceneTiming, i int) float64 {
	if i < len(timings) && timings[i].Duration > 0 {
		return timings[i].Duration
	}
	return defaultSceneDuration
}

// formatSeconds renders a duration for filter arguments without trailing
// zeros.
func formatSeconds(d float64) string {
	return strconv.FormatFloat(d, 'g', -1, 64)
}

// TimingsFromEntries projects synchronized timeline entries onto the planner's
// timing shape, one slot per scene.
func TimingsFromEntries(entries []types.TimelineEntry) []SceneTiming {
	timings := make([]SceneTiming, 0, len(entries))
	for _, e := range entries {
		timings = append(timings, SceneTiming{
			SceneNumber: e.SceneNumber,
			Start:       e.StartTime,
			Duration:    e.DurationSec,
		})
	}
	return timings
}
