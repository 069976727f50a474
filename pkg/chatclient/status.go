package chatclient

import (
	"sync"
	"time"

	"studychat/internal/entity"
)

// Phase of a tracked message's identity. A message starts Pending under a
// local ref; the delivery acknowledgement carries the server-assigned id
// and flips it to Confirmed. Keeping the two phases apart makes the
// optimistic local write and the server reconciliation explicit.
type Phase int

const (
	Pending Phase = iota
	Confirmed
)

// TrackedMessage is the delivery state of one outgoing message.
type TrackedMessage struct {
	Ref       string
	MessageId string
	Phase     Phase
	Status    entity.MessageStatus
	SentAt    time.Time
	// Stale is set when no delivery acknowledgement arrived within the ack
	// window. The message is kept so the caller can offer a retry.
	Stale bool
}

// StatusTracker is the sender-side delivery state machine. Transitions are
// strictly forward-only: sent -> delivered -> read. Out-of-order
// acknowledgements collapse intermediate states, and acknowledgements for
// unknown ids are ignored.
type StatusTracker struct {
	mu    sync.RWMutex
	byRef map[string]*TrackedMessage
	byId  map[string]*TrackedMessage
	// earlyReads holds read acknowledgements that arrived before the
	// delivery ack bound their id to a ref.
	earlyReads map[string]bool
}

func NewStatusTracker() *StatusTracker {
	return &StatusTracker{
		byRef:      make(map[string]*TrackedMessage),
		byId:       make(map[string]*TrackedMessage),
		earlyReads: make(map[string]bool),
	}
}

// TrackSent registers an outgoing message under its local ref, optimistically
// marked sent before any network acknowledgement.
func (t *StatusTracker) TrackSent(ref string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.byRef[ref]; ok {
		return
	}
	t.byRef[ref] = &TrackedMessage{
		Ref:    ref,
		Phase:  Pending,
		Status: entity.StatusSent,
		SentAt: time.Now(),
	}
}

// Confirm binds the server-assigned id to a pending ref and advances the
// message to delivered.
func (t *StatusTracker) Confirm(ref, messageId string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tm, ok := t.byRef[ref]
	if !ok {
		return
	}
	tm.Phase = Confirmed
	tm.MessageId = messageId
	tm.Stale = false
	t.byId[messageId] = tm
	t.advance(tm, entity.StatusDelivered)
	if t.earlyReads[messageId] {
		delete(t.earlyReads, messageId)
		t.advance(tm, entity.StatusRead)
	}
}

// MarkRead records a read acknowledgement for a confirmed message id.
// Read implies delivered, so a read arriving before the delivery ack for
// the same id still lands forward.
func (t *StatusTracker) MarkRead(messageId string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tm, ok := t.byId[messageId]
	if !ok {
		t.earlyReads[messageId] = true
		return
	}
	t.advance(tm, entity.StatusRead)
}

func (t *StatusTracker) advance(tm *TrackedMessage, status entity.MessageStatus) {
	if status.Rank() > tm.Status.Rank() {
		tm.Status = status
	}
}

// StateByRef returns the tracked state under the local ref.
func (t *StatusTracker) StateByRef(ref string) (TrackedMessage, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tm, ok := t.byRef[ref]
	if !ok {
		return TrackedMessage{}, false
	}
	return *tm, true
}

// State returns the tracked state under the server-assigned id.
func (t *StatusTracker) State(messageId string) (TrackedMessage, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tm, ok := t.byId[messageId]
	if !ok {
		return TrackedMessage{}, false
	}
	return *tm, true
}

// FlagStale marks every pending message older than window as stale and
// returns their refs. Stale messages remain tracked.
func (t *StatusTracker) FlagStale(window time.Duration) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var refs []string
	cutoff := time.Now().Add(-window)
	for ref, tm := range t.byRef {
		if tm.Phase == Pending && !tm.Stale && tm.SentAt.Before(cutoff) {
			tm.Stale = true
			refs = append(refs, ref)
		}
	}
	return refs
}
