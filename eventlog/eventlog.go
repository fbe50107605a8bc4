// Package eventlog provides structured event logging.
// This file appends JSON events to events.jsonl.
package eventlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event type constants.
const (
	EventSessionCreated   = "session_created"
	EventStageStarted     = "stage_started"
	EventStageCompleted   = "stage_completed"
	EventStageRetry       = "stage_retry"
	EventSessionFailed    = "session_failed"
	EventSessionCompleted = "session_completed"
	EventSessionCancelled = "session_cancelled"
)

// Event represents a single structured event written to the log.
type Event struct {
	Time       time.Time         `json:"time"`
	Event      string            `json:"event"`
	SessionID  string            `json:"session,omitempty"`
	Stage      string            `json:"stage,omitempty"`
	Progress   float64           `json:"progress,omitempty"`
	Error      string            `json:"error,omitempty"`
	Attempt    int               `json:"attempt,omitempty"`
	DurationMs int64             `json:"duration_ms,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
}

// Logger writes append-only JSONL events to a log file.
type Logger struct {
	path string
	mu   sync.Mutex
}

// NewLogger creates a Logger that writes to events.jsonl inside dir.
// Creates dir if it does not already exist. Does not truncate an existing
// log file.
func NewLogger(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	return &Logger{path: filepath.Join(dir, "events.jsonl")}, nil
}

// Append writes a single Event as one JSON line to the log file.
// If event.Time is the zero value, it is automatically set to time.Now().UTC().
// Thread-safe via mutex.
func (l *Logger) Append(event Event) error {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	return nil
}

// ReadAll reads and parses all events from the log file.
// Returns an empty slice (not an error) if the file does not exist.
func (l *Logger) ReadAll() ([]Event, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Event{}, nil
		}
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, fmt.Errorf("parse log line %d: %w", lineNum, err)
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log file: %w", err)
	}

	return events, nil
}

// SessionEvents filters all logged events down to one session.
func (l *Logger) SessionEvents(sessionID string) ([]Event, error) {
	all, err := l.ReadAll()
	if err != nil {
		return nil, err
	}
	var events []Event
	for _, e := range all {
		if e.SessionID == sessionID {
			events = append(events, e)
		}
	}
	return events, nil
}
