package chatclient

import (
	"sync"
)

// DefaultVisibleFraction is the minimal visible-area fraction that counts
// as the user having seen a message.
const DefaultVisibleFraction = 0.10

// ReadObserver watches which rendered messages are visible to the user and
// emits exactly one read event per message id for the lifetime of the
// observed surface. Visibility samples come from ReportVisible, fed by a
// platform viewport observer or an explicit mark-as-seen call.
type ReadObserver struct {
	threshold float64

	mu       sync.Mutex
	observed map[string]bool // ids currently under observation
	acked    map[string]bool // ids already emitted; never re-emitted
	handler  func(messageId string)
	closed   bool
	inFlight sync.WaitGroup // emissions Close must drain
}

type ObserverOption func(*ReadObserver)

// WithThreshold overrides the visible-fraction threshold.
func WithThreshold(fraction float64) ObserverOption {
	return func(o *ReadObserver) {
		o.threshold = fraction
	}
}

func NewReadObserver(opts ...ObserverOption) *ReadObserver {
	o := &ReadObserver{
		threshold: DefaultVisibleFraction,
		observed:  make(map[string]bool),
		acked:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// OnMessageRead registers the single read handler. The handler runs on the
// goroutine that reported visibility, never inside this call.
func (o *ReadObserver) OnMessageRead(handler func(messageId string)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handler = handler
}

// Observe registers interest in a message element. Re-observing an already
// acknowledged id is a no-op.
func (o *ReadObserver) Observe(messageId string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || o.acked[messageId] {
		return
	}
	o.observed[messageId] = true
}

// Unobserve stops watching an id, for example when its element scrolls out
// of the render window. The acked set is untouched so a later re-observe
// cannot re-emit.
func (o *ReadObserver) Unobserve(messageId string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.observed, messageId)
}

// ReportVisible feeds one visibility sample. When the fraction reaches the
// threshold for an observed, not-yet-acknowledged id, the read handler
// fires exactly once.
func (o *ReadObserver) ReportVisible(messageId string, fraction float64) {
	o.mu.Lock()
	if o.closed || !o.observed[messageId] || o.acked[messageId] || fraction < o.threshold {
		o.mu.Unlock()
		return
	}
	o.acked[messageId] = true
	handler := o.handler
	o.inFlight.Add(1)
	o.mu.Unlock()
	defer o.inFlight.Done()

	if handler != nil {
		handler(messageId)
	}
}

// Close tears the surface down and waits for any emission already in
// flight, so no read event fires after Close returns. Calling it again is
// a no-op. The read handler must not call Close itself.
func (o *ReadObserver) Close() {
	o.mu.Lock()
	o.closed = true
	o.observed = make(map[string]bool)
	o.handler = nil
	o.mu.Unlock()
	o.inFlight.Wait()
}
