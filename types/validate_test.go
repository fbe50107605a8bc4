package types

import (
	"errors"
	"strings"
	"testing"
)

func TestGenerationRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     GenerationRequest
		wantErr bool
	}{
		{
			name:    "valid request",
			req:     GenerationRequest{Prompt: "a documentary about deep sea creatures", DurationSec: 60},
			wantErr: false,
		},
		{
			name:    "prompt too short",
			req:     GenerationRequest{Prompt: "too short", DurationSec: 60},
			wantErr: true,
		},
		{
			name:    "prompt too long",
			req:     GenerationRequest{Prompt: strings.Repeat("x", MaxPromptLen+1), DurationSec: 60},
			wantErr: true,
		},
		{
			name:    "duration below minimum",
			req:     GenerationRequest{Prompt: "a documentary about deep sea creatures", DurationSec: 5},
			wantErr: true,
		},
		{
			name:    "duration above maximum",
			req:     GenerationRequest{Prompt: "a documentary about deep sea creatures", DurationSec: 601},
			wantErr: true,
		},
		{
			name:    "duration at bounds",
			req:     GenerationRequest{Prompt: "a documentary about deep sea creatures", DurationSec: 600},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !IsValidation(err) {
				t.Errorf("Validate() returned %T, want *ValidationError", err)
			}
		})
	}
}

func TestScriptValidate(t *testing.T) {
	tests := []struct {
		name    string
		script  Script
		wantErr bool
	}{
		{
			name: "sequential scenes",
			script: Script{Scenes: []Scene{
				{Number: 1, DurationSec: 10},
				{Number: 2, DurationSec: 12},
				{Number: 3, DurationSec: 8},
			}},
			wantErr: false,
		},
		{
			name:    "no scenes",
			script:  Script{},
			wantErr: true,
		},
		{
			name: "numbering gap",
			script: Script{Scenes: []Scene{
				{Number: 1, DurationSec: 10},
				{Number: 3, DurationSec: 10},
			}},
			wantErr: true,
		},
		{
			name: "zero-based numbering",
			script: Script{Scenes: []Scene{
				{Number: 0, DurationSec: 10},
			}},
			wantErr: true,
		},
		{
			name: "zero duration scene",
			script: Script{Scenes: []Scene{
				{Number: 1, DurationSec: 0},
			}},
			wantErr: true,
		},
		{
			name: "scene duration over limit",
			script: Script{Scenes: []Scene{
				{Number: 1, DurationSec: 121},
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.script.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	wrapped := &ProcessingError{Stage: "audio_generation", Err: errors.New("tts unavailable")}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"validation error", &ValidationError{Field: "prompt", Reason: "empty"}, false},
		{"processing error", wrapped, true},
		{"plain error", errors.New("boom"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestAssetCollectionPaths(t *testing.T) {
	coll := &AssetCollection{
		VideoClips: []AssetItem{
			{ID: "v1", Type: "video", LocalPath: "/tmp/clip1.mp4"},
		},
		Images: []AssetItem{
			{ID: "i1", Type: "image", LocalPath: "/tmp/still1.jpg"},
			{ID: "i2", Type: "image", SourceURL: "https://example.com/still2.png"},
			{ID: "i3", Type: "image"},
		},
	}

	got := coll.Paths()
	want := []string{"/tmp/clip1.mp4", "/tmp/still1.jpg", "https://example.com/still2.png"}
	if len(got) != len(want) {
		t.Fatalf("Paths() returned %d paths, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Paths()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	var nilColl *AssetCollection
	if paths := nilColl.Paths(); paths != nil {
		t.Errorf("nil collection Paths() = %v, want nil", paths)
	}
}
