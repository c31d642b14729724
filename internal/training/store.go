package training

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"supportdesk/internal/models"

	"go.uber.org/zap"
)

// DefaultResponse is the canned reply bound to every message the bot has no
// answer for. Entries carrying it are what GET /api/bot/unknown reports as
// still unanswered.
const DefaultResponse = "I'm sorry, I don't have an answer to that."

// ErrEntryNotFound is returned by UpdateResponse when the message has never
// been seen before; the trainer endpoint maps it to a 404.
var ErrEntryNotFound = errors.New("training entry not found")

// fileData is the on-disk shape of the training file. The whole file is
// rewritten on every mutation and must remain valid JSON at rest.
type fileData struct {
	Entries         []models.TrainingEntry  `json:"entries"`
	UnknownMessages []models.UnknownMessage `json:"unknown_messages"`
}

// Store is the canned-response knowledge base plus the unknown-message log.
// Every call is a whole-file read-modify-write; the mutex serializes writers
// so two simultaneous misses for the same message cannot both append.
type Store struct {
	mu     sync.Mutex
	path   string
	logger *zap.Logger
}

func NewStore(path string, logger *zap.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Lookup returns the stored response for an exact, case-normalized match.
func (s *Store) Lookup(message string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return "", false, err
	}

	normalized := normalize(message)
	for _, entry := range data.Entries {
		if normalize(entry.Message) == normalized {
			return entry.Response, true, nil
		}
	}
	return "", false, nil
}

// Upsert inserts the entry if absent and overwrites its response if present.
func (s *Store) Upsert(message, response string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}

	normalized := normalize(message)
	for i := range data.Entries {
		if normalize(data.Entries[i].Message) == normalized {
			data.Entries[i].Response = response
			return s.save(data)
		}
	}

	data.Entries = append(data.Entries, models.TrainingEntry{Message: message, Response: response})
	return s.save(data)
}

// UpdateResponse overwrites the response of an existing entry and fails with
// ErrEntryNotFound when the message is absent.
func (s *Store) UpdateResponse(message, response string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}

	normalized := normalize(message)
	for i := range data.Entries {
		if normalize(data.Entries[i].Message) == normalized {
			data.Entries[i].Response = response
			return s.save(data)
		}
	}
	return ErrEntryNotFound
}

// RecordUnknown appends a new entry bound to the default response plus an
// unknown-message record, and returns the default response. A miss and a
// first-time-seen message are indistinguishable by design: every miss becomes
// a permanent entry. A repeated miss only extends the log, never the entries.
func (s *Store) RecordUnknown(userID, message string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return "", err
	}

	normalized := normalize(message)
	known := false
	for _, entry := range data.Entries {
		if normalize(entry.Message) == normalized {
			known = true
			break
		}
	}
	if !known {
		data.Entries = append(data.Entries, models.TrainingEntry{Message: message, Response: DefaultResponse})
	}

	data.UnknownMessages = append(data.UnknownMessages, models.UnknownMessage{
		UserID:    userID,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})

	if err := s.save(data); err != nil {
		return "", err
	}
	return DefaultResponse, nil
}

// UnknownMessages returns the append-only log of unanswered messages.
func (s *Store) UnknownMessages() ([]models.UnknownMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return nil, err
	}
	return data.UnknownMessages, nil
}

// UnansweredEntries returns the entries still bound to the default response.
func (s *Store) UnansweredEntries() ([]models.TrainingEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return nil, err
	}

	var unanswered []models.TrainingEntry
	for _, entry := range data.Entries {
		if entry.Response == DefaultResponse {
			unanswered = append(unanswered, entry)
		}
	}
	return unanswered, nil
}

func (s *Store) load() (*fileData, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &fileData{}, nil
		}
		return nil, fmt.Errorf("failed to read training data: %w", err)
	}

	data := &fileData{}
	if err := json.Unmarshal(raw, data); err != nil {
		return nil, fmt.Errorf("failed to parse training data: %w", err)
	}
	return data, nil
}

func (s *Store) save(data *fileData) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal training data: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write training data: %w", err)
	}
	s.logger.Debug("Training data saved", zap.String("path", s.path))
	return nil
}

func normalize(message string) string {
	return strings.ToLower(strings.TrimSpace(message))
}
