// Package subtitles renders the synchronized dialogue track as an SRT file
// and builds the codec args that burn it into a video. Cue timing comes from
// the synchronized timeline, so no transcription pass is needed.
package subtitles

import (
	"fmt"
	"os"
	"strings"

	"video-gen-pipeline/types"
)

// maxCueLines caps how many lines one cue may occupy on screen.
const maxCueLines = 2

// Style controls the rendered look of burned-in subtitles.
type Style struct {
	Font         string
	FontSize     int
	Bold         bool
	OutlineWidth float64
	MarginBottom int
}

// WriteSRT writes one subtitle cue per timeline entry carrying dialogue and
// returns the number of cues written. Entries without dialogue occupy no cue.
func WriteSRT(entries []types.TimelineEntry, maxCharsPerLine int, path string) (int, error) {
	if maxCharsPerLine <= 0 {
		maxCharsPerLine = 42
	}

	var sb strings.Builder
	cue := 0
	for _, entry := range entries {
		text := strings.TrimSpace(entry.Dialogue)
		if text == "" {
			continue
		}
		cue++
		sb.WriteString(fmt.Sprintf("%d\n", cue))
		sb.WriteString(fmt.Sprintf("%s --> %s\n", Timestamp(entry.StartTime), Timestamp(entry.EndTime)))
		sb.WriteString(wrapDialogue(text, maxCharsPerLine))
		sb.WriteString("\n\n")
	}

	if cue == 0 {
		return 0, &types.ValidationError{Field: "timeline", Reason: "no entries carry dialogue"}
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return 0, fmt.Errorf("write srt: %w", err)
	}
	return cue, nil
}

// BurnArgs builds the codec argument list that renders srtFile onto videoFile.
// The audio stream is copied through untouched.
func BurnArgs(videoFile, srtFile, output string, style Style) ([]string, error) {
	if _, err := os.Stat(videoFile); err != nil {
		return nil, &types.ValidationError{Field: "video_file", Reason: fmt.Sprintf("not found: %s", videoFile)}
	}
	if _, err := os.Stat(srtFile); err != nil {
		return nil, &types.ValidationError{Field: "srt_file", Reason: fmt.Sprintf("not found: %s", srtFile)}
	}
	if output == "" {
		return nil, &types.ValidationError{Field: "output_path", Reason: "no output path provided"}
	}

	filter := fmt.Sprintf(
		"subtitles=%s:force_style='FontName=%s,FontSize=%d,Bold=%d,PrimaryColour=&H00FFFFFF,OutlineColour=&H00000000,Outline=%.0f,Alignment=2,MarginV=%d'",
		escapeFilterPath(srtFile),
		style.Font,
		style.FontSize,
		boolToInt(style.Bold),
		style.OutlineWidth,
		style.MarginBottom,
	)

	return []string{
		"-y",
		"-i", videoFile,
		"-vf", filter,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "20",
		"-c:a", "copy",
		output,
	}, nil
}

// Timestamp formats seconds as an SRT timestamp (HH:MM:SS,mmm). Negative
// values clamp to zero.
func Timestamp(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	ms := int(sec*1000 + 0.5)
	h := ms / 3600000
	m := ms % 3600000 / 60000
	s := ms % 60000 / 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}

// wrapDialogue breaks text on word boundaries into lines of roughly maxChars
// characters, at most maxCueLines lines. Overflow stays on the last line
// rather than being dropped.
func wrapDialogue(text string, maxChars int) string {
	words := strings.Fields(text)
	var lines []string
	var line strings.Builder
	for _, w := range words {
		if line.Len() > 0 && line.Len()+1+len(w) > maxChars && len(lines) < maxCueLines-1 {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteString(" ")
		}
		line.WriteString(w)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}

// escapeFilterPath escapes a path for use inside a filter argument.
func escapeFilterPath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.ReplaceAll(path, ":", "\\:")
	return path
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
