// Package badges computes the notification badge for the swap screen.
//
// An Engine belongs to one signed-in session. Every fetch is stamped with a sequence
// number and the reset epoch it started in; a response is applied only if no later
// fetch has been applied and the engine has not been reset since, so a slow response
// can neither overwrite newer state nor repopulate a logged-out session.
package badges

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/cticu/cticu-schedule/pkg/apierr"
	"github.com/cticu/cticu-schedule/pkg/core/model"
)

// RequestLister fetches the live shift change request list
type RequestLister interface {
	ListShiftChangeRequests(ctx context.Context) ([]model.ShiftChangeRequest, error)
}

// Counts are the two badge values. Requests is kept for the requests tab and is
// only changed through UpdateRequestsBadgeCount.
type Counts struct {
	Swap     int
	Requests int
}

type Engine struct {
	lister RequestLister
	logger *zap.Logger

	mu       sync.Mutex
	seen     SeenSet
	pending  []model.ShiftChangeRequest
	identity *Identity
	counts   Counts
	stale    bool // badge held at zero until the next successful fetch
	seq      uint64
	applied  uint64
	epoch    uint64

	listeners    map[int]func(Counts)
	nextListener int
}

func NewEngine(lister RequestLister, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		lister:    lister,
		logger:    logger,
		seen:      make(SeenSet),
		listeners: make(map[int]func(Counts)),
	}
}

// FetchAndUpdateBadges refreshes the request list and the swap badge. It never
// fails: any fetch error leaves the swap badge at zero.
func (e *Engine) FetchAndUpdateBadges(ctx context.Context, who Identity) {
	e.mu.Lock()
	e.seq++
	seq, epoch := e.seq, e.epoch
	e.mu.Unlock()

	requests, err := e.lister.ListShiftChangeRequests(ctx)

	e.mu.Lock()
	if epoch != e.epoch || seq < e.applied {
		e.mu.Unlock()
		e.logger.Debug("Discarding superseded badge fetch", zap.Uint64("seq", seq))
		return
	}
	e.applied = seq
	e.identity = &who

	switch {
	case errors.Is(err, apierr.ErrMalformedResponse):
		e.logger.Debug("Malformed request list, clearing badge", zap.Error(err))
		e.pending = nil
		e.stale = true
		e.counts.Swap = 0
	case err != nil:
		e.logger.Debug("Badge fetch failed", zap.Error(err))
		e.stale = true
		e.counts.Swap = 0
	default:
		e.pending = requests
		e.stale = false
		e.counts.Swap = CountUnseen(requests, who, e.seen)
	}
	e.unlockAndNotify()
}

// MarkRequestAsSeen suppresses the request at this status. Idempotent.
func (e *Engine) MarkRequestAsSeen(id int64, status model.Status) {
	e.mu.Lock()
	e.seen.Add(SeenKey{ID: id, Status: status})
	e.recomputeLocked()
	e.unlockAndNotify()
}

// MarkAllRequestsAsSeen suppresses every request in the last fetched list at its
// current status. Later status changes on those requests count again.
func (e *Engine) MarkAllRequestsAsSeen() {
	e.mu.Lock()
	for _, r := range e.pending {
		e.seen.Add(KeyOf(r))
	}
	e.recomputeLocked()
	e.unlockAndNotify()
}

// MarkAsSeen suppresses the given requests at their current status, whether or not
// they are in the last fetched list
func (e *Engine) MarkAsSeen(requests []model.ShiftChangeRequest) {
	e.mu.Lock()
	for _, r := range requests {
		e.seen.Add(KeyOf(r))
	}
	e.recomputeLocked()
	e.unlockAndNotify()
}

// Recompute reapplies the rule to the last fetched list without a network call
func (e *Engine) Recompute() {
	e.mu.Lock()
	e.recomputeLocked()
	e.unlockAndNotify()
}

// ClearBadges zeroes both counters and keeps the seen state. The swap badge stays
// at zero until the next successful fetch.
func (e *Engine) ClearBadges() {
	e.mu.Lock()
	e.counts = Counts{}
	e.stale = true
	e.unlockAndNotify()
}

// ResetStore wipes all state and invalidates fetches still in flight
func (e *Engine) ResetStore() {
	e.mu.Lock()
	e.epoch++
	e.seen = make(SeenSet)
	e.pending = nil
	e.identity = nil
	e.stale = false
	e.counts = Counts{}
	e.unlockAndNotify()
}

func (e *Engine) UpdateSwapBadgeCount(n int) {
	e.mu.Lock()
	e.counts.Swap = n
	e.unlockAndNotify()
}

func (e *Engine) UpdateRequestsBadgeCount(n int) {
	e.mu.Lock()
	e.counts.Requests = n
	e.unlockAndNotify()
}

func (e *Engine) Counts() Counts {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counts
}

// PendingRequests returns a copy of the last fetched request list
func (e *Engine) PendingRequests() []model.ShiftChangeRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.ShiftChangeRequest(nil), e.pending...)
}

// IsSeen reports whether the request at its current status has been marked seen
func (e *Engine) IsSeen(r model.ShiftChangeRequest) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seen.Has(KeyOf(r))
}

// Subscribe calls fn with the new counts after every change. The returned
// function removes the subscription.
func (e *Engine) Subscribe(fn func(Counts)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextListener
	e.nextListener++
	e.listeners[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.listeners, id)
	}
}

// recomputeLocked is a no-op until a successful fetch has told the engine who it is
// counting for
func (e *Engine) recomputeLocked() {
	if e.identity == nil || e.stale {
		return
	}
	e.counts.Swap = CountUnseen(e.pending, *e.identity, e.seen)
}

// unlockAndNotify releases e.mu and then calls listeners with the counts as of release
func (e *Engine) unlockAndNotify() {
	counts := e.counts
	listeners := make([]func(Counts), 0, len(e.listeners))
	for _, fn := range e.listeners {
		listeners = append(listeners, fn)
	}
	e.mu.Unlock()

	for _, fn := range listeners {
		fn(counts)
	}
}
