// Package history keeps the bounded chat log and persists it to a single
// JSON file. Persistence is best effort: saves run on a background goroutine,
// a newer save supersedes older pending ones, and write failures never reach
// the caller.
package history

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"geochat/internal/models"
)

// DefaultLimit is the maximum number of messages retained.
const DefaultLimit = 50

// Store is an append-only bounded message log backed by one on-disk file
// that is rewritten wholesale on every change.
type Store struct {
	mu       sync.Mutex
	messages []models.Message

	path  string
	limit int
	log   zerolog.Logger

	dirty     chan struct{}
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewStore creates a store persisting to path and starts its background
// saver. Call Load before first use and Close on shutdown.
func NewStore(path string, limit int, logger zerolog.Logger) *Store {
	s := &Store{
		path:  path,
		limit: limit,
		log:   logger.With().Str("component", "history").Logger(),
		dirty: make(chan struct{}, 1),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go s.saver()
	return s
}

// Load reads the persisted log. A missing or corrupt file yields an empty
// log, never a startup failure.
func (s *Store) Load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("path", s.path).Msg("could not read history file, starting empty")
		}
		return
	}

	var messages []models.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("corrupt history file, starting empty")
		return
	}
	if len(messages) > s.limit {
		messages = messages[len(messages)-s.limit:]
	}

	s.mu.Lock()
	s.messages = messages
	s.mu.Unlock()

	s.log.Info().Int("messages", len(messages)).Msg("history loaded")
}

// Append adds a message, evicting from the front once the limit is exceeded,
// and schedules an asynchronous save. It never blocks on disk I/O.
func (s *Store) Append(msg models.Message) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	if len(s.messages) > s.limit {
		s.messages = s.messages[len(s.messages)-s.limit:]
	}
	s.mu.Unlock()

	s.scheduleSave()
}

// Current returns a copy of the in-memory log, oldest first.
func (s *Store) Current() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len reports the number of retained messages.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Close flushes any pending save and stops the saver goroutine.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
	})
	<-s.done
}

// scheduleSave marks the log dirty. The capacity-1 channel coalesces bursts:
// at most one write is in flight and one more pending.
func (s *Store) scheduleSave() {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

func (s *Store) saver() {
	defer close(s.done)
	for {
		select {
		case <-s.dirty:
			s.save()
		case <-s.quit:
			// Final flush so an orderly shutdown keeps the tail of the log.
			select {
			case <-s.dirty:
				s.save()
			default:
			}
			return
		}
	}
}

// save writes the full current sequence. Failure is logged and otherwise
// ignored; the in-memory log stays authoritative for the running process.
func (s *Store) save() {
	data, err := json.Marshal(s.Current())
	if err != nil {
		s.log.Error().Err(err).Msg("could not encode history")
		return
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("could not persist history")
	}
}
