package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MediaInfo is the probed metadata of one media file. A zero MediaInfo means
// "unknown metadata"; callers treat it that way rather than failing.
type MediaInfo struct {
	DurationSec float64
	SizeBytes   int64
	BitRate     int64
	Width       int
	Height      int
	FPS         float64
	VideoCodec  string
	AudioCodec  string
}

// probeOutput mirrors the probe binary's -print_format json shape. Numeric
// fields in the format section arrive as strings.
type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
		Size     string `json:"size"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
}

// Probe runs the probe binary against path and parses its JSON output.
// On any failure it returns a zero MediaInfo and the error; callers log and
// continue with unknown metadata.
func (r *Runner) Probe(ctx context.Context, timeout time.Duration, path string) (MediaInfo, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}
	res, err := r.runBinary(ctx, timeout, r.FFprobePath, args)
	if err != nil {
		return MediaInfo{}, fmt.Errorf("probe %s: %w", path, err)
	}
	info, err := parseProbeOutput([]byte(res.Stdout))
	if err != nil {
		return MediaInfo{}, fmt.Errorf("probe %s: %w", path, err)
	}
	return info, nil
}

func parseProbeOutput(data []byte) (MediaInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return MediaInfo{}, fmt.Errorf("parse probe output: %w", err)
	}

	var info MediaInfo
	info.DurationSec = parseFloatField(out.Format.Duration)
	info.SizeBytes = parseIntField(out.Format.Size)
	info.BitRate = parseIntField(out.Format.BitRate)

	for _, stream := range out.Streams {
		switch stream.CodecType {
		case "video":
			info.Width = stream.Width
			info.Height = stream.Height
			info.FPS = parseFrameRate(stream.RFrameRate)
			info.VideoCodec = stream.CodecName
		case "audio":
			info.AudioCodec = stream.CodecName
		}
	}
	return info, nil
}

// parseFrameRate converts the probe's "N/D" fraction (e.g. "30000/1001") to
// frames per second. Malformed or zero-denominator input yields 0.
func parseFrameRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return parseFloatField(s)
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}

func parseFloatField(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseIntField(s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
