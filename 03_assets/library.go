package assets

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"video-gen-pipeline/config"
	"video-gen-pipeline/types"
)

// Library picks clips from the local video library by matching clip tags
// against scene visual requirements.
type Library struct {
	cfg       *config.Config
	tags      map[string][]string // filename -> tags
	usageLog  map[string][]string // runID -> filenames used
	runID     string
	usedInRun map[string]bool
}

// NewLibrary loads the tags file and usage log for one sourcing run.
func NewLibrary(cfg *config.Config, runID string) (*Library, error) {
	tags, err := loadTagsJSON(cfg.Assets.TagsFile)
	if err != nil {
		return nil, fmt.Errorf("load clip tags: %w", err)
	}

	return &Library{
		cfg:       cfg,
		tags:      tags,
		usageLog:  loadUsageLog(cfg.Assets.UsageLog),
		runID:     runID,
		usedInRun: make(map[string]bool),
	}, nil
}

// Empty reports whether the library has no tagged clips.
func (l *Library) Empty() bool {
	return len(l.tags) == 0
}

// Pick selects the best matching clip for a scene. It never repeats the same
// clip within a single run.
func (l *Library) Pick(scene types.Scene) (string, error) {
	if len(l.tags) == 0 {
		return "", fmt.Errorf("no clips found in %s", l.cfg.Assets.LibraryDir)
	}

	type scored struct {
		file  string
		score int
	}
	var candidates []scored

	for file, clipTags := range l.tags {
		if l.usedInRun[file] {
			continue
		}
		if score := matchScore(scene.VisualRequirements, clipTags); score > 0 {
			candidates = append(candidates, scored{file, score})
		}
	}

	if len(candidates) == 0 {
		// Nothing matched the requirements, fall back to any unused clip
		for file := range l.tags {
			if !l.usedInRun[file] {
				candidates = append(candidates, scored{file, 0})
			}
		}
	}

	if len(candidates) == 0 {
		return "", fmt.Errorf("all %d clips have been used in this run", len(l.tags))
	}

	// Sort by score descending, then pick from the top 3 randomly so the same
	// clip does not lead every video
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	topN := 3
	if len(candidates) < topN {
		topN = len(candidates)
	}
	pick := candidates[rand.Intn(topN)]

	l.usedInRun[pick.file] = true
	l.usageLog[l.runID] = append(l.usageLog[l.runID], pick.file)
	l.saveUsageLog()

	fullPath := filepath.Join(l.cfg.Assets.LibraryDir, pick.file)
	log.Printf("[assets] Scene %d: picked clip %q (score: %d)", scene.Number, pick.file, pick.score)
	return fullPath, nil
}

// matchScore scores a clip against a scene's visual requirements. Exact tag
// matches count more than single-word overlaps.
func matchScore(required []string, clipTags []string) int {
	tagSet := make(map[string]bool)
	for _, t := range clipTags {
		tagSet[strings.ToLower(t)] = true
	}

	score := 0
	for _, req := range required {
		req = strings.ToLower(req)
		if tagSet[req] {
			score += 10
			continue
		}
		for _, word := range strings.Fields(req) {
			if tagSet[word] {
				score += 5
			}
		}
	}
	return score
}

func loadTagsJSON(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// No tags file means no local clips yet
			log.Printf("[assets] Warning: tags file not found at %s, no library clips will be used", path)
			return make(map[string][]string), nil
		}
		return nil, err
	}

	// The tags file may carry _instructions style keys, skip those
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	result := make(map[string][]string)
	for k, v := range raw {
		if strings.HasPrefix(k, "_") {
			continue
		}
		var tags []string
		if err := json.Unmarshal(v, &tags); err != nil {
			continue
		}
		result[k] = tags
	}
	return result, nil
}

func loadUsageLog(path string) map[string][]string {
	usage := make(map[string][]string)
	data, err := os.ReadFile(path)
	if err != nil {
		return usage
	}
	_ = json.Unmarshal(data, &usage)
	return usage
}

func (l *Library) saveUsageLog() {
	data, _ := json.MarshalIndent(l.usageLog, "", "  ")
	_ = os.WriteFile(l.cfg.Assets.UsageLog, data, 0644)
}
