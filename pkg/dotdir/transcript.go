package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	transcriptFile = "transcript.json"
)

// Transcript represents the persisted conversation transcript.
// The chat command saves it after each completed exchange so a later
// invocation can resume the conversation with its history intact.
type Transcript struct {
	// MaxTurns is the history cap the transcript was recorded under.
	MaxTurns int `json:"max_turns"`

	// Turns is the conversation in chronological order (oldest first).
	Turns []TranscriptTurn `json:"turns"`
}

// TranscriptTurn represents a single message in the saved conversation.
type TranscriptTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// LoadTranscript loads the transcript from a target .chatrelay/transcript.json.
// Returns nil, nil if no transcript exists (fresh conversation).
// If overrideDir is non-empty, it is used instead of the default ~/.chatrelay/ location.
func (m *Manager) LoadTranscript(overrideDir string) (*Transcript, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, transcriptFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading transcript: %w", err)
	}

	t := &Transcript{}
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing transcript: %w", err)
	}

	return t, nil
}

// SaveTranscript persists the transcript to a target .chatrelay/transcript.json.
// Turns beyond 2×MaxTurns are trimmed from the front before writing so the
// file stays bounded the same way the in-memory history ring is.
func (m *Manager) SaveTranscript(t *Transcript, overrideDir string) error {
	if t == nil {
		return errors.New("cannot save nil transcript")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	if t.MaxTurns > 0 {
		if max := t.MaxTurns * 2; len(t.Turns) > max {
			t.Turns = t.Turns[len(t.Turns)-max:]
		}
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling transcript: %w", err)
	}

	path := filepath.Join(dir, transcriptFile)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing transcript: %w", err)
	}

	return nil
}

// ClearTranscript removes the transcript file.
// This resets the state so the next chat session starts a new conversation.
// If overrideDir is non-empty, it is used instead of the default ~/.chatrelay/ location.
// Returns nil if the file doesn't exist (already cleared).
func (m *Manager) ClearTranscript(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	path := filepath.Join(dir, transcriptFile)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing transcript: %w", err)
	}

	return nil
}
