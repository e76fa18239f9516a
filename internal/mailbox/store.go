// Package mailbox holds fetched mail grouped by folder. The mail poller
// writes into it and the notification bridge watches it.
package mailbox

import (
	"slices"
	"strings"
	"sync"

	"github.com/nhle/notification-engine/internal/model"
)

// DefaultFolder is used for messages that arrive without a folder.
const DefaultFolder = "INBOX"

// Store keeps mail messages per folder, oldest first, deduplicated by
// message id.
type Store struct {
	mu           sync.RWMutex
	folders      map[string][]model.MailMessage
	seen         map[string]struct{}
	observers    map[int]func()
	nextObserver int
}

// NewStore creates an empty mailbox.
func NewStore() *Store {
	return &Store{
		folders:   make(map[string][]model.MailMessage),
		seen:      make(map[string]struct{}),
		observers: make(map[int]func()),
	}
}

// Add stores msg unless a message with the same id is already present.
// It reports whether msg was added. Observers are notified only on add.
func (s *Store) Add(msg model.MailMessage) bool {
	if strings.TrimSpace(msg.Folder) == "" {
		msg.Folder = DefaultFolder
	}

	s.mu.Lock()
	if msg.MessageID != "" {
		if _, dup := s.seen[msg.MessageID]; dup {
			s.mu.Unlock()
			return false
		}
		s.seen[msg.MessageID] = struct{}{}
	}
	s.folders[msg.Folder] = append(s.folders[msg.Folder], msg)
	observers := s.observerList()
	s.mu.Unlock()

	for _, fn := range observers {
		fn()
	}
	return true
}

// AddAll adds msgs in date order and returns how many were new.
func (s *Store) AddAll(msgs []model.MailMessage) int {
	sorted := slices.Clone(msgs)
	slices.SortStableFunc(sorted, func(a, b model.MailMessage) int {
		return a.Date.Compare(b.Date)
	})

	added := 0
	for _, m := range sorted {
		if s.Add(m) {
			added++
		}
	}
	return added
}

// Messages returns a copy of the folder's messages.
func (s *Store) Messages(folder string) []model.MailMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.folders[folder])
}

// Sizes returns the message count per folder.
func (s *Store) Sizes() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int, len(s.folders))
	for f, msgs := range s.folders {
		out[f] = len(msgs)
	}
	return out
}

// Subscribe registers fn to be called after every successful add. The
// returned function removes the registration.
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

func (s *Store) observerList() []func() {
	out := make([]func(), 0, len(s.observers))
	for i := 0; i < s.nextObserver; i++ {
		if fn, ok := s.observers[i]; ok {
			out = append(out, fn)
		}
	}
	return out
}
