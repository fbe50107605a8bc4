package encoding

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"video-gen-pipeline/ffmpeg"
	"video-gen-pipeline/types"
)

// Tier is a named encoding quality level.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
	TierUltra  Tier = "ultra"
)

// Target selects what the rate-control table optimizes for.
type Target string

const (
	TargetQuality   Target = "quality"
	TargetSize      Target = "size"
	TargetStreaming Target = "streaming"
)

// Format is an output container format.
type Format string

const (
	FormatMP4  Format = "mp4"
	FormatWebM Format = "webm"
	FormatAVI  Format = "avi"
	FormatMKV  Format = "mkv"
)

// rateParams is the rate-control cell for one (target, tier) pair.
type rateParams struct {
	CRF    int
	Preset string
	Tune   string
}

var qualityRates = map[Tier]rateParams{
	TierLow:    {CRF: 28, Preset: "fast"},
	TierMedium: {CRF: 23, Preset: "medium"},
	TierHigh:   {CRF: 18, Preset: "slow"},
	TierUltra:  {CRF: 15, Preset: "veryslow"},
}

var sizeRates = map[Tier]rateParams{
	TierLow:    {CRF: 32, Preset: "fast"},
	TierMedium: {CRF: 28, Preset: "medium"},
	TierHigh:   {CRF: 25, Preset: "medium"},
	TierUltra:  {CRF: 22, Preset: "slow"},
}

var streamingRates = map[Tier]rateParams{
	TierLow:    {CRF: 26, Preset: "fast", Tune: "zerolatency"},
	TierMedium: {CRF: 23, Preset: "fast", Tune: "zerolatency"},
	TierHigh:   {CRF: 20, Preset: "medium", Tune: "zerolatency"},
	TierUltra:  {CRF: 18, Preset: "medium", Tune: "zerolatency"},
}

var audioBitrates = map[Tier]string{
	TierLow:    "96k",
	TierMedium: "128k",
	TierHigh:   "192k",
	TierUltra:  "256k",
}

type containerParams struct {
	Name  string
	Flags []string
}

var containers = map[Format]containerParams{
	FormatMP4:  {Name: "mp4", Flags: []string{"-movflags", "+faststart"}},
	FormatWebM: {Name: "webm"},
	FormatAVI:  {Name: "avi"},
	FormatMKV:  {Name: "matroska"},
}

// Params is the resolved parameter set for one encode: codec, rate control,
// audio settings, and container flags. Every field is filled for every
// tier/target/format combination.
type Params struct {
	VideoCodec     string
	CRF            int
	Preset         string
	Tune           string
	AudioCodec     string
	AudioBitrate   string
	Container      string
	ContainerFlags []string
}

// Lookup resolves the full parameter set for a tier, target, and format.
// Unknown tiers fall back to each table's default (high for quality, medium
// for size and streaming), unknown targets to quality, and unknown formats to
// mp4. The lookup never fails.
func Lookup(tier Tier, target Target, format Format) Params {
	rates, fallback := qualityRates, TierHigh
	switch target {
	case TargetSize:
		rates, fallback = sizeRates, TierMedium
	case TargetStreaming:
		rates, fallback = streamingRates, TierMedium
	}
	rp, ok := rates[tier]
	if !ok {
		rp = rates[fallback]
	}

	c, ok := containers[format]
	if !ok {
		format = FormatMP4
		c = containers[format]
	}

	codec := "libx264"
	if format == FormatWebM {
		codec = "libvpx-vp9"
	}

	return Params{
		VideoCodec:     codec,
		CRF:            rp.CRF,
		Preset:         rp.Preset,
		Tune:           rp.Tune,
		AudioCodec:     "aac",
		AudioBitrate:   audioBitrateFor(tier),
		Container:      c.Name,
		ContainerFlags: c.Flags,
	}
}

func audioBitrateFor(tier Tier) string {
	if b, ok := audioBitrates[tier]; ok {
		return b
	}
	return audioBitrates[TierHigh]
}

// Options configures one encode. Zero values fall back to the table defaults.
type Options struct {
	Format       string
	Quality      string
	Target       string
	AudioQuality string
	Resolution   string
	Bitrate      string
	FPS          int
}

// Stats reports the outcome of a completed encode.
type Stats struct {
	OutputFile       string           `json:"output_file"`
	OriginalBytes    int64            `json:"original_bytes"`
	EncodedBytes     int64            `json:"encoded_bytes"`
	CompressionRatio float64          `json:"compression_ratio"`
	EncodingTime     time.Duration    `json:"encoding_time"`
	Info             ffmpeg.MediaInfo `json:"info"`
}

// Encoder runs final-output encodes through the external codec binary.
type Encoder struct {
	runner        *ffmpeg.Runner
	encodeTimeout time.Duration
	probeTimeout  time.Duration
}

func NewEncoder(runner *ffmpeg.Runner, encodeTimeout, probeTimeout time.Duration) *Encoder {
	return &Encoder{runner: runner, encodeTimeout: encodeTimeout, probeTimeout: probeTimeout}
}

// Encode re-encodes input into output using the resolved parameter table.
// The encode runs under the encoder's timeout; wall-clock time is measured
// around the external invocation. Probe failures before or after the encode
// are logged and tolerated.
func (e *Encoder) Encode(ctx context.Context, input, output string, opts Options) (*Stats, error) {
	stat, err := os.Stat(input)
	if err != nil {
		return nil, &types.ValidationError{Field: "input_file", Reason: fmt.Sprintf("not found: %s", input)}
	}
	originalSize := stat.Size()

	info, err := e.runner.Probe(ctx, e.probeTimeout, input)
	if err != nil {
		log.Printf("[encoding] ⚠️ Could not probe %s: %v", input, err)
		info = ffmpeg.MediaInfo{}
	}

	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	args := buildArgs(input, output, opts, info)
	log.Printf("[encoding] Encoding %s -> %s (quality=%s target=%s format=%s)",
		filepath.Base(input), filepath.Base(output), opts.Quality, opts.Target, opts.Format)

	start := time.Now()
	if _, err := e.runner.Run(ctx, e.encodeTimeout, args...); err != nil {
		return nil, fmt.Errorf("video encoding failed: %w", err)
	}
	elapsed := time.Since(start)

	outStat, err := os.Stat(output)
	if err != nil {
		return nil, fmt.Errorf("encoded file missing: %w", err)
	}
	encodedSize := outStat.Size()
	ratio := compressionRatio(originalSize, encodedSize)

	encodedInfo, err := e.runner.Probe(ctx, e.probeTimeout, output)
	if err != nil {
		log.Printf("[encoding] ⚠️ Could not probe %s: %v", output, err)
		encodedInfo = ffmpeg.MediaInfo{}
	}

	log.Printf("[encoding] ✅ Encoded in %.2fs, %d -> %d bytes (ratio %.2f)",
		elapsed.Seconds(), originalSize, encodedSize, ratio)

	return &Stats{
		OutputFile:       output,
		OriginalBytes:    originalSize,
		EncodedBytes:     encodedSize,
		CompressionRatio: ratio,
		EncodingTime:     elapsed,
		Info:             encodedInfo,
	}, nil
}

// compressionRatio is original size over encoded size, 0.0 when the encoded
// size is zero.
func compressionRatio(original, encoded int64) float64 {
	if encoded <= 0 {
		return 0.0
	}
	return float64(original) / float64(encoded)
}

// buildArgs assembles the codec command line. Argument order follows the
// binary's expectations: input, video settings, audio settings, container
// settings, output.
func buildArgs(input, output string, opts Options, info ffmpeg.MediaInfo) []string {
	p := Lookup(Tier(opts.Quality), Target(opts.Target), Format(opts.Format))
	if opts.AudioQuality != "" {
		p.AudioBitrate = audioBitrateFor(Tier(opts.AudioQuality))
	}

	args := []string{"-y", "-i", input, "-c:v", p.VideoCodec, "-crf", strconv.Itoa(p.CRF), "-preset", p.Preset}
	if p.Tune != "" {
		args = append(args, "-tune", p.Tune)
	}

	switch {
	case opts.Resolution != "":
		args = append(args, "-s", opts.Resolution)
	case Target(opts.Target) == TargetSize && info.Width > 1280:
		args = append(args, "-s", "1280x720")
	}

	switch {
	case opts.FPS > 0:
		args = append(args, "-r", strconv.Itoa(opts.FPS))
	case Target(opts.Target) == TargetSize:
		args = append(args, "-r", "24")
	}

	if opts.Bitrate != "" {
		args = append(args, "-b:v", opts.Bitrate)
	}

	args = append(args, "-c:a", p.AudioCodec, "-b:a", p.AudioBitrate)
	args = append(args, "-f", p.Container)
	args = append(args, p.ContainerFlags...)
	return append(args, output)
}

// Recommended suggests encoder options for a file of the given size headed
// for a particular use.
func Recommended(fileSizeMB float64, targetUse string) Options {
	switch targetUse {
	case "web":
		if fileSizeMB > 100 {
			return Options{Quality: "medium", Target: "size", Resolution: "1280x720"}
		}
		return Options{Quality: "high", Target: "quality"}
	case "mobile":
		return Options{Quality: "medium", Target: "size", Resolution: "854x480", FPS: 24}
	case "archive":
		return Options{Quality: "ultra", Target: "quality"}
	default:
		return Options{Quality: "high", Target: "quality"}
	}
}

var speedMultipliers = map[Tier]float64{
	TierLow:    0.5,
	TierMedium: 1.0,
	TierHigh:   2.0,
	TierUltra:  4.0,
}

// EstimateTime predicts roughly how long an encode will take for a video of
// the given duration at a tier.
func EstimateTime(durationSec float64, tier Tier) time.Duration {
	m, ok := speedMultipliers[tier]
	if !ok {
		m = 1.0
	}
	return time.Duration(durationSec * m * float64(time.Second))
}
