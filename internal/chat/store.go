// Package chat holds the in-process chat message store that feeds the
// notification bridge.
package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/notification-engine/internal/model"
)

// Store keeps chat messages grouped by conversation id, oldest first.
type Store struct {
	mu            sync.RWMutex
	conversations map[string][]model.ChatMessage
	observers     map[int]func()
	nextObserver  int
	now           func() time.Time
}

// NewStore creates an empty store. now may be nil to use time.Now.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		conversations: make(map[string][]model.ChatMessage),
		observers:     make(map[int]func()),
		now:           now,
	}
}

// Append adds msg to the conversation and notifies observers. A missing id
// or timestamp is assigned. The stored message is returned.
func (s *Store) Append(conversationID string, msg model.ChatMessage) model.ChatMessage {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = s.now()
	}
	msg.ConversationID = conversationID

	s.mu.Lock()
	s.conversations[conversationID] = append(s.conversations[conversationID], msg)
	observers := s.observerList()
	s.mu.Unlock()

	for _, fn := range observers {
		fn()
	}
	return msg
}

// Messages returns a copy of the conversation's messages.
func (s *Store) Messages(conversationID string) []model.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.ChatMessage(nil), s.conversations[conversationID]...)
}

// Sizes returns the message count per conversation.
func (s *Store) Sizes() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int, len(s.conversations))
	for id, msgs := range s.conversations {
		out[id] = len(msgs)
	}
	return out
}

// Snapshot returns a copy of every conversation.
func (s *Store) Snapshot() map[string][]model.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]model.ChatMessage, len(s.conversations))
	for id, msgs := range s.conversations {
		out[id] = append([]model.ChatMessage(nil), msgs...)
	}
	return out
}

// Subscribe registers fn to be called after every append. The returned
// function removes the registration.
func (s *Store) Subscribe(fn func()) func() {
	s.mu.Lock()
	id := s.nextObserver
	s.nextObserver++
	s.observers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.observers, id)
			s.mu.Unlock()
		})
	}
}

// observerList must be called with mu held.
func (s *Store) observerList() []func() {
	out := make([]func(), 0, len(s.observers))
	for i := 0; i < s.nextObserver; i++ {
		if fn, ok := s.observers[i]; ok {
			out = append(out, fn)
		}
	}
	return out
}
