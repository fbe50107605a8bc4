package assets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"video-gen-pipeline/types"
)

// RemoteFetcher pulls real reference imagery from Wikipedia for scenes whose
// subject matter has an encyclopedia page.
type RemoteFetcher struct {
	httpClient *http.Client
}

// NewRemoteFetcher creates a fetcher with a bounded request timeout.
func NewRemoteFetcher() *RemoteFetcher {
	return &RemoteFetcher{
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

// FetchIllustration looks the scene's subject up on Wikipedia and downloads
// the page image. Returns the local path and the source URL.
func (r *RemoteFetcher) FetchIllustration(ctx context.Context, scene types.Scene, outputDir string) (string, string, error) {
	query := searchQuery(scene.Description + " " + scene.Dialogue)
	if query == "" {
		return "", "", fmt.Errorf("no query extracted for scene %d", scene.Number)
	}

	searchURL := fmt.Sprintf(
		"https://en.wikipedia.org/api/rest_v1/page/summary/%s",
		url.PathEscape(query),
	)

	req, _ := http.NewRequestWithContext(ctx, "GET", searchURL, nil)
	req.Header.Set("User-Agent", "VideoGenPipeline/1.0 (educational)")
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return "", "", fmt.Errorf("wikipedia returned %d", resp.StatusCode)
	}

	var result struct {
		Thumbnail struct {
			Source string `json:"source"`
		} `json:"thumbnail"`
		OriginalImage struct {
			Source string `json:"source"`
		} `json:"originalimage"`
		Title string `json:"title"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", "", err
	}

	imgURL := result.OriginalImage.Source
	if imgURL == "" {
		imgURL = result.Thumbnail.Source
	}
	if imgURL == "" {
		return "", "", fmt.Errorf("no image in Wikipedia result for %q", query)
	}

	outFile := filepath.Join(outputDir, fmt.Sprintf("scene_%03d_wiki.jpg", scene.Number))
	if err := r.downloadFile(ctx, imgURL, outFile); err != nil {
		return "", "", err
	}

	log.Printf("[assets] Scene %d: Wikipedia image found for %q", scene.Number, query)
	return outFile, imgURL, nil
}

func (r *RemoteFetcher) downloadFile(ctx context.Context, fileURL, outPath string) error {
	req, err := http.NewRequestWithContext(ctx, "GET", fileURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; VideoGenPipeline/1.0)")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024)) // max 10MB
	if err != nil {
		return err
	}

	if len(data) < 1000 {
		return fmt.Errorf("file too small (%d bytes)", len(data))
	}

	return os.WriteFile(outPath, data, 0644)
}

// searchQuery keeps the meaningful terms of a scene's text for an
// encyclopedia lookup.
func searchQuery(text string) string {
	filler := []string{
		"the", "a", "an", "was", "were", "had", "have", "has",
		"her", "his", "their", "they", "she", "he", "it", "this",
		"that", "and", "or", "but", "for", "from", "with", "into",
		"scene", "shot", "showing", "about", "over", "under",
	}
	fillerSet := make(map[string]bool)
	for _, f := range filler {
		fillerSet[f] = true
	}

	var kept []string
	for _, w := range strings.Fields(text) {
		clean := strings.ToLower(strings.Trim(w, ".,!?\"'"))
		if !fillerSet[clean] && len(clean) > 3 {
			kept = append(kept, clean)
		}
	}

	// First 4 meaningful words carry the subject
	if len(kept) > 4 {
		kept = kept[:4]
	}
	return strings.Join(kept, " ")
}
