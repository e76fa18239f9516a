// Package sync runs the background mail polling loops that feed the
// mailbox store.
package sync

import (
	"context"
	"log/slog"
	"slices"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/notification-engine/internal/model"
	"github.com/nhle/notification-engine/internal/source/email"
)

// SyncState represents the current state of a mailbox sync operation.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

func (s SyncState) String() string {
	switch s {
	case SyncRunning:
		return "running"
	case SyncError:
		return "error"
	}
	return "idle"
}

// SyncStatus holds the sync state for a single mailbox.
type SyncStatus struct {
	MailboxID string
	State     SyncState
	LastSync  time.Time
	Error     error
}

// SyncResultMsg is a tea.Msg sent when a fetch completes.
type SyncResultMsg struct {
	MailboxID string
	Fetched   int
	Added     int
	Error     error
	AuthError *AuthErrorMsg
}

// AuthErrorMsg is a tea.Msg sent when a mailbox rejects its credentials.
type AuthErrorMsg struct {
	MailboxID string
	Message   string
}

// Fetcher pulls messages from one upstream mailbox.
type Fetcher interface {
	ID() string
	Interval() time.Duration
	Fetch(ctx context.Context) ([]model.MailMessage, error)
}

// Sink receives fetched messages and reports how many were new.
type Sink interface {
	AddAll(msgs []model.MailMessage) int
}

// fetchTimeout is the maximum time allowed for a single fetch operation.
const fetchTimeout = 30 * time.Second

// defaultInterval is used when a fetcher reports no interval.
const defaultInterval = 120 * time.Second

// Poller orchestrates background polling of registered mailboxes.
type Poller struct {
	sink      Sink
	logger    *slog.Logger
	fetchers  []Fetcher
	statuses  map[string]*SyncStatus
	resultCh  chan SyncResultMsg
	triggerCh map[string]chan struct{}
	stopCh    chan struct{}
	wg        gosync.WaitGroup
	mu        gosync.Mutex
	running   bool
	now       func() time.Time
}

// New creates a new Poller writing into sink. logger may be nil.
func New(sink Sink, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Poller{
		sink:      sink,
		logger:    logger,
		statuses:  make(map[string]*SyncStatus),
		resultCh:  make(chan SyncResultMsg, 16),
		triggerCh: make(map[string]chan struct{}),
		stopCh:    make(chan struct{}),
		now:       time.Now,
	}
}

// Register adds a fetcher. Fetchers registered after Start are not polled.
func (p *Poller) Register(f Fetcher) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := f.ID()
	p.fetchers = append(p.fetchers, f)
	p.triggerCh[id] = make(chan struct{}, 1)
	p.statuses[id] = &SyncStatus{
		MailboxID: id,
		State:     SyncIdle,
	}
}

// Start launches one polling goroutine per registered fetcher. Calling
// Start on a running poller does nothing.
func (p *Poller) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	fetchers := slices.Clone(p.fetchers)
	p.mu.Unlock()

	for _, f := range fetchers {
		p.wg.Add(1)
		go p.pollMailbox(f)
	}
}

// Stop halts all polling goroutines and waits for them to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	close(p.stopCh)
	p.running = false
	p.mu.Unlock()

	p.wg.Wait()
}

// RefreshAll triggers an immediate fetch of every registered mailbox.
func (p *Poller) RefreshAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, ch := range p.triggerCh {
		select {
		case ch <- struct{}{}:
		default:
			// A refresh is already pending.
		}
	}
}

// Statuses returns the current sync status of all registered mailboxes,
// ordered by id.
func (p *Poller) Statuses() []SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	statuses := make([]SyncStatus, 0, len(p.statuses))
	for _, s := range p.statuses {
		statuses = append(statuses, *s)
	}
	slices.SortFunc(statuses, func(a, b SyncStatus) int {
		switch {
		case a.MailboxID < b.MailboxID:
			return -1
		case a.MailboxID > b.MailboxID:
			return 1
		}
		return 0
	})
	return statuses
}

// pollMailbox runs the polling loop for a single mailbox.
func (p *Poller) pollMailbox(f Fetcher) {
	defer p.wg.Done()

	interval := f.Interval()
	if interval <= 0 {
		interval = defaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.mu.Lock()
	trigger := p.triggerCh[f.ID()]
	p.mu.Unlock()

	// Do an initial fetch immediately
	p.fetchAndStore(f)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.fetchAndStore(f)
		case <-trigger:
			p.fetchAndStore(f)
		}
	}
}

// fetchAndStore performs a single fetch, hands the messages to the sink
// and publishes a SyncResultMsg.
func (p *Poller) fetchAndStore(f Fetcher) {
	id := f.ID()
	p.setStatus(id, SyncRunning, nil)

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	msgs, err := f.Fetch(ctx)
	if err != nil {
		p.setStatus(id, SyncError, err)
		p.logger.Warn("mail fetch failed", "mailbox", id, "error", err)

		result := SyncResultMsg{MailboxID: id, Error: err}
		if email.IsAuthError(err) {
			result.AuthError = &AuthErrorMsg{
				MailboxID: id,
				Message:   id + ": authentication failed; update the stored password.",
			}
		}
		p.sendResult(result)
		return
	}

	added := p.sink.AddAll(msgs)
	p.setStatus(id, SyncIdle, nil)
	p.logger.Debug("mail fetched", "mailbox", id, "fetched", len(msgs), "added", added)

	p.sendResult(SyncResultMsg{
		MailboxID: id,
		Fetched:   len(msgs),
		Added:     added,
	})
}

// setStatus updates the sync status for a mailbox.
func (p *Poller) setStatus(id string, state SyncState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	status, ok := p.statuses[id]
	if !ok {
		return
	}

	status.State = state
	status.Error = err
	if state == SyncIdle && err == nil {
		status.LastSync = p.now()
	}
}

// sendResult sends a SyncResultMsg on the result channel without blocking.
func (p *Poller) sendResult(msg SyncResultMsg) {
	select {
	case p.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the poller
	}
}

// Results exposes fetch results for consumers that are not Bubble Tea
// programs.
func (p *Poller) Results() <-chan SyncResultMsg {
	return p.resultCh
}

// WaitForNextResult returns a tea.Cmd that waits for the next sync result.
// Call it again after handling a SyncResultMsg to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case result := <-p.resultCh:
			return result
		case <-p.stopCh:
			return nil
		}
	}
}
