package chatclient

import "errors"

var (
	// ErrConnection is returned when the transport cannot be established.
	// The manager keeps retrying with backoff; this error never escapes for
	// transient losses after the first successful dial.
	ErrConnection = errors.New("chatclient: connection unavailable")
	// ErrSendFailure means a message could not be enqueued. The message
	// stays tracked as sent, pending a manual retry.
	ErrSendFailure = errors.New("chatclient: message could not be enqueued")
	// ErrAckTimeout flags a message with no delivery acknowledgement inside
	// the configured window. The message is kept, not discarded.
	ErrAckTimeout = errors.New("chatclient: delivery acknowledgement timed out")
	// ErrMalformedEvent marks an unparseable inbound payload. Such frames
	// are logged and dropped, never fatal to the dispatch loop.
	ErrMalformedEvent = errors.New("chatclient: malformed inbound event")
	// ErrClosed is returned by operations on a closed manager.
	ErrClosed = errors.New("chatclient: manager closed")
)
