package ffmpeg

import (
	"context"
	"time"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

const versionCheckTimeout = 10 * time.Second

// Health reports binary availability for the encode and probe paths.
type Health struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// CheckHealth verifies both binaries respond to -version. A missing probe
// binary reports degraded rather than unhealthy; encoding can proceed without
// metadata.
func (r *Runner) CheckHealth(ctx context.Context) Health {
	if _, err := r.runBinary(ctx, versionCheckTimeout, r.FFmpegPath, []string{"-version"}); err != nil {
		return Health{Status: StatusUnhealthy, Detail: err.Error()}
	}
	if _, err := r.runBinary(ctx, versionCheckTimeout, r.FFprobePath, []string{"-version"}); err != nil {
		return Health{Status: StatusDegraded, Detail: "probe binary is not available"}
	}
	return Health{Status: StatusHealthy}
}
