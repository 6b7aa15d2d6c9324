// Package audit records machine lifecycle events.
// Events are stored as JSON Lines (JSONL) files, one per machine.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	securejoin "github.com/cyphar/filepath-securejoin"
)

// EventType classifies a lifecycle event.
type EventType string

const (
	EventConnect EventType = "connect"
	EventStart   EventType = "start"
	EventStop    EventType = "stop"
	EventState   EventType = "state"
	EventError   EventType = "error"
	EventCommand EventType = "command"
	EventFile    EventType = "file"
)

// Event represents a single audit log entry.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Machine   string    `json:"machine"`
	Details   string    `json:"details,omitempty"`
}

// Logger writes and reads events for machines.
// Events are stored in {stateDir}/machines/{machine}.events.jsonl.
type Logger struct {
	stateDir string
}

// NewLogger creates a new audit logger rooted at stateDir.
func NewLogger(stateDir string) *Logger {
	return &Logger{stateDir: stateDir}
}

// EventPath returns the path to the JSONL event log for a machine. The
// machine id comes from the configuration file, so it is joined without
// letting it leave the machines directory.
func (l *Logger) EventPath(machine string) (string, error) {
	path, err := securejoin.SecureJoin(filepath.Join(l.stateDir, "machines"), machine+".events.jsonl")
	if err != nil {
		return "", fmt.Errorf("invalid machine name %q: %w", machine, err)
	}
	return path, nil
}

// Log appends an event to the machine's audit log.
func (l *Logger) Log(event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	path, err := l.EventPath(event.Machine)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create audit log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

// LogEvent is a convenience method that creates and logs an event.
func (l *Logger) LogEvent(eventType EventType, machine, details string) error {
	return l.Log(Event{
		Timestamp: time.Now(),
		Type:      eventType,
		Machine:   machine,
		Details:   details,
	})
}

// Events reads all events for a machine in chronological order.
func (l *Logger) Events(machine string) ([]Event, error) {
	path, err := l.EventPath(machine)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			continue // Skip malformed lines
		}
		events = append(events, event)
	}

	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("error reading audit log: %w", err)
	}

	return events, nil
}

// Tail returns the last n events for a machine. n <= 0 returns all.
func (l *Logger) Tail(machine string, n int) ([]Event, error) {
	events, err := l.Events(machine)
	if err != nil || n <= 0 || len(events) <= n {
		return events, err
	}
	return events[len(events)-n:], nil
}

// Remove deletes the audit log for a machine.
func (l *Logger) Remove(machine string) error {
	path, err := l.EventPath(machine)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
