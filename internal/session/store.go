package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/allegro/bigcache/v3"
	"go.uber.org/zap"
)

// DedupScope controls how the processed-message cache is keyed.
const (
	// DedupScopeGlobal keys the cache by message content only, reproducing
	// the original one-processed-message-ever behaviour: once any user's
	// trigger is processed, the same text from anyone else is rejected.
	DedupScopeGlobal = "global"
	// DedupScopePerUser keys the cache by user and message content.
	DedupScopePerUser = "per_user"
)

// state is the per-user conversation record kept in the session cache.
type state struct {
	AwaitingBillingDetails bool   `json:"awaiting_billing_details"`
	PendingTriggerMessage  string `json:"pending_trigger_message,omitempty"`
}

// Store tracks, per user, whether the billing workflow is awaiting the
// structured follow-up message, plus the set of already-processed trigger
// messages. Both caches live in process memory only and evict on TTL, so
// state resets on restart.
type Store struct {
	sessions   *bigcache.BigCache
	processed  *bigcache.BigCache
	dedupScope string
	logger     *zap.Logger
}

func NewStore(sessionTTL, dedupTTL time.Duration, dedupScope string, logger *zap.Logger) (*Store, error) {
	if dedupScope != DedupScopeGlobal && dedupScope != DedupScopePerUser {
		return nil, fmt.Errorf("unknown dedup scope: %q", dedupScope)
	}

	sessions, err := bigcache.New(context.Background(), bigcache.DefaultConfig(sessionTTL))
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	processed, err := bigcache.New(context.Background(), bigcache.DefaultConfig(dedupTTL))
	if err != nil {
		return nil, fmt.Errorf("failed to create dedup cache: %w", err)
	}

	return &Store{
		sessions:   sessions,
		processed:  processed,
		dedupScope: dedupScope,
		logger:     logger,
	}, nil
}

// AwaitingBillingDetails reports whether the user's conversation is in the
// AWAITING_DETAILS state. An evicted or missing session reads as idle.
func (s *Store) AwaitingBillingDetails(userID string) bool {
	return s.get(userID).AwaitingBillingDetails
}

// PendingTriggerMessage returns the trigger message that opened the current
// billing intake, or "" when the conversation is idle.
func (s *Store) PendingTriggerMessage(userID string) string {
	return s.get(userID).PendingTriggerMessage
}

// BeginBillingIntake moves the user's conversation into AWAITING_DETAILS and
// remembers the trigger message that opened it.
func (s *Store) BeginBillingIntake(userID, triggerMessage string) {
	s.set(userID, state{AwaitingBillingDetails: true, PendingTriggerMessage: triggerMessage})
}

// EndBillingIntake returns the user's conversation to IDLE. It is called on
// success and on every failure path so the user is never stuck awaiting.
func (s *Store) EndBillingIntake(userID string) {
	s.set(userID, state{})
}

// IsProcessed reports whether the raw (normalized) message has already been
// turned into a ticket/billing pair within the dedup TTL.
func (s *Store) IsProcessed(userID, message string) bool {
	_, err := s.processed.Get(s.dedupKey(userID, message))
	if err != nil {
		if !errors.Is(err, bigcache.ErrEntryNotFound) {
			s.logger.Warn("Error while reading dedup cache", zap.Error(err))
		}
		return false
	}
	return true
}

// MarkProcessed records the raw (normalized) message as handled.
func (s *Store) MarkProcessed(userID, message string) {
	if err := s.processed.Set(s.dedupKey(userID, message), []byte{1}); err != nil {
		s.logger.Warn("Error while writing dedup cache", zap.Error(err))
	}
}

func (s *Store) get(userID string) state {
	data, err := s.sessions.Get(userID)
	if err != nil {
		if !errors.Is(err, bigcache.ErrEntryNotFound) {
			s.logger.Warn("Error while reading session state from cache", zap.Error(err))
		}
		return state{}
	}

	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		s.logger.Warn("Error while decoding session state", zap.Error(err))
		return state{}
	}
	return st
}

func (s *Store) set(userID string, st state) {
	data, err := json.Marshal(st)
	if err != nil {
		s.logger.Warn("Error while encoding session state", zap.Error(err))
		return
	}
	if err := s.sessions.Set(userID, data); err != nil {
		s.logger.Warn("Error while writing session state to cache", zap.Error(err))
	}
}

func (s *Store) dedupKey(userID, message string) string {
	normalized := strings.ToLower(strings.TrimSpace(message))
	if s.dedupScope == DedupScopePerUser {
		return userID + "|" + normalized
	}
	return normalized
}
