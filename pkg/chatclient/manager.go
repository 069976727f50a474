package chatclient

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"studychat/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultInitialBackoff = 250 * time.Millisecond
	defaultMaxBackoff     = 30 * time.Second
	defaultAckTimeout     = 10 * time.Second
	defaultQueueSize      = 64
	readIdleTimeout       = 90 * time.Second
)

type Options struct {
	// Token is appended to the endpoint as the token query parameter.
	Token          string
	Dialer         *websocket.Dialer
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// AckTimeout bounds the wait for a delivery acknowledgement before a
	// pending message is flagged stale.
	AckTimeout time.Duration
	QueueSize  int
	Logger     *zap.SugaredLogger
}

func (o *Options) withDefaults() {
	if o.Dialer == nil {
		o.Dialer = websocket.DefaultDialer
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = defaultInitialBackoff
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = defaultMaxBackoff
	}
	if o.AckTimeout <= 0 {
		o.AckTimeout = defaultAckTimeout
	}
	if o.QueueSize <= 0 {
		o.QueueSize = defaultQueueSize
	}
	if o.Logger == nil {
		o.Logger = logger.Nop()
	}
}

// Manager owns one persistent connection to the chat server: dialing,
// reconnect with exponential backoff, heartbeat, room subscriptions and the
// outbound send queue. After a reconnect every subscribed room is rejoined
// before any queued outbound frame is flushed.
type Manager struct {
	endpoint string
	opts     Options
	log      *zap.SugaredLogger

	tracker *StatusTracker

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	closed    bool
	subs      map[string]bool
	// resend holds frames whose write failed mid-session. The next session
	// flushes them ahead of the queue so sender order survives a reconnect.
	resend [][]byte
	onReceive func(Event)
	onConn    []func(bool)
	onError   func(ref, code, message string)
	onTimeout func(ref string)

	queue  chan []byte
	events chan Event
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// Dial establishes the connection and starts the manager. It fails with an
// error wrapping ErrConnection when the transport cannot be established;
// transient losses after that are retried internally and never surface.
func Dial(ctx context.Context, endpoint string, opts Options) (*Manager, error) {
	opts.withDefaults()

	m := &Manager{
		endpoint: endpoint,
		opts:     opts,
		log:      opts.Logger,
		tracker:  NewStatusTracker(),
		subs:     make(map[string]bool),
		queue:    make(chan []byte, opts.QueueSize),
		events:   make(chan Event, opts.QueueSize),
		done:     make(chan struct{}),
	}

	conn, _, err := opts.Dialer.DialContext(ctx, m.dialURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	m.conn = conn
	m.setConnected(true)

	m.wg.Add(3)
	go m.run(conn)
	go m.dispatch()
	go m.watchStale()

	return m, nil
}

func (m *Manager) dialURL() string {
	if m.opts.Token == "" {
		return m.endpoint
	}
	sep := "?"
	if strings.Contains(m.endpoint, "?") {
		sep = "&"
	}
	return m.endpoint + sep + "token=" + m.opts.Token
}

// Tracker exposes the delivery state machine for this session's outgoing
// messages.
func (m *Manager) Tracker() *StatusTracker {
	return m.tracker
}

func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// OnReceive registers the single ordered inbound handler. Events are
// dispatched by one goroutine, so per-conversation FIFO order holds; the
// handler never runs synchronously inside this call.
func (m *Manager) OnReceive(handler func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReceive = handler
}

// OnConnectionChange registers a handler for isConnected transitions so
// dependents can react without polling.
func (m *Manager) OnConnectionChange(handler func(connected bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onConn = append(m.onConn, handler)
}

// OnSendError registers a handler for server-side send rejections, such as
// sending into a conversation the user is not a member of.
func (m *Manager) OnSendError(handler func(ref, code, message string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onError = handler
}

// OnAckTimeout registers a handler for messages flagged stale after the
// ack window passed without a delivery acknowledgement.
func (m *Manager) OnAckTimeout(handler func(ref string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTimeout = handler
}

// Send enqueues a message for a conversation and returns the local ref the
// delivery state machine tracks it under. The message is marked sent
// before any network I/O; it advances to delivered on the server's
// acknowledgement. A full queue returns ErrSendFailure and leaves the
// message tracked, pending a manual retry.
func (m *Manager) Send(conversationId string, payload Payload) (string, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", ErrClosed
	}
	m.mu.Unlock()

	ref := uuid.New().String()
	m.tracker.TrackSent(ref)

	frame, err := json.Marshal(sendMessageFrame{
		Type:           typeSendMessage,
		Ref:            ref,
		ConversationId: conversationId,
		Text:           payload.Text,
		FileType:       payload.FileType,
	})
	if err != nil {
		return ref, ErrSendFailure
	}

	select {
	case m.queue <- frame:
		return ref, nil
	default:
		return ref, ErrSendFailure
	}
}

// JoinRoom subscribes to a conversation. Joining a room the session is
// already in is a no-op. The subscription survives reconnects.
func (m *Manager) JoinRoom(conversationId string) {
	m.mu.Lock()
	if m.closed || m.subs[conversationId] {
		m.mu.Unlock()
		return
	}
	m.subs[conversationId] = true
	m.mu.Unlock()

	m.enqueueControl(joinRoomFrame{Type: typeJoinRoom, ConversationId: conversationId})
}

func (m *Manager) LeaveRoom(conversationId string) {
	m.mu.Lock()
	if m.closed || !m.subs[conversationId] {
		m.mu.Unlock()
		return
	}
	delete(m.subs, conversationId)
	m.mu.Unlock()

	m.enqueueControl(joinRoomFrame{Type: typeLeaveRoom, ConversationId: conversationId})
}

// SendReadAck reports a read acknowledgement for a message the local user
// has seen. Wired to ReadObserver.OnMessageRead.
func (m *Manager) SendReadAck(conversationId, messageId string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.mu.Unlock()

	frame, err := json.Marshal(messageReadFrame{
		Type:           typeMessageRead,
		MessageId:      messageId,
		ConversationId: conversationId,
	})
	if err != nil {
		return ErrSendFailure
	}
	select {
	case m.queue <- frame:
		return nil
	default:
		return ErrSendFailure
	}
}

func (m *Manager) enqueueControl(frame any) {
	b, err := json.Marshal(frame)
	if err != nil {
		return
	}
	select {
	case m.queue <- b:
	default:
		m.log.Warnw("outbound queue full, dropping control frame")
	}
}

// Close releases the connection and all goroutines. Idempotent; no handler
// fires after Close returns.
func (m *Manager) Close() error {
	m.once.Do(func() {
		m.mu.Lock()
		m.closed = true
		conn := m.conn
		m.mu.Unlock()
		close(m.done)
		if conn != nil {
			_ = conn.Close()
		}
		m.wg.Wait()
	})
	return nil
}

// run owns the connection lifecycle: one session per live connection, then
// reconnect with backoff until Close.
func (m *Manager) run(conn *websocket.Conn) {
	defer m.wg.Done()

	for {
		m.mu.Lock()
		m.conn = conn
		m.mu.Unlock()

		m.session(conn)
		_ = conn.Close()

		select {
		case <-m.done:
			return
		default:
		}

		m.setConnected(false)

		var ok bool
		conn, ok = m.redial()
		if !ok {
			return
		}
		m.setConnected(true)
	}
}

// session serves one live connection. It first rejoins every subscribed
// room, then starts draining the outbound queue, then reads until the
// connection dies. Resubscription strictly precedes the queue flush so a
// buffered send can never land in a stale room.
func (m *Manager) session(conn *websocket.Conn) {
	m.mu.Lock()
	rooms := make([]string, 0, len(m.subs))
	for conversationId := range m.subs {
		rooms = append(rooms, conversationId)
	}
	m.mu.Unlock()

	for _, conversationId := range rooms {
		frame, err := json.Marshal(joinRoomFrame{Type: typeJoinRoom, ConversationId: conversationId})
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return
		}
	}

	// Frames stranded by the previous session's write failure go out before
	// anything queued behind them.
	m.mu.Lock()
	pending := m.resend
	m.resend = nil
	m.mu.Unlock()
	for i, frame := range pending {
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			m.mu.Lock()
			m.resend = pending[i:]
			m.mu.Unlock()
			return
		}
	}

	stop := make(chan struct{})
	writerDone := make(chan struct{})
	go m.writer(conn, stop, writerDone)
	defer func() {
		close(stop)
		<-writerDone
	}()

	_ = conn.SetReadDeadline(time.Now().Add(readIdleTimeout))
	conn.SetPingHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(readIdleTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readIdleTimeout))
		m.handleInbound(data)
	}
}

func (m *Manager) writer(conn *websocket.Conn, stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case <-m.done:
			return
		case frame := <-m.queue:
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				// Park the frame for the next session's pre-queue flush so
				// it cannot slip behind younger frames already queued.
				m.mu.Lock()
				m.resend = append(m.resend, frame)
				m.mu.Unlock()
				return
			}
		}
	}
}

// redial retries the transport with exponential backoff and jitter until
// it succeeds or the manager closes.
func (m *Manager) redial() (*websocket.Conn, bool) {
	backoff := m.opts.InitialBackoff
	for {
		wait := backoff/2 + time.Duration(rand.Int63n(int64(backoff/2)+1))
		select {
		case <-m.done:
			return nil, false
		case <-time.After(wait):
		}

		conn, _, err := m.opts.Dialer.Dial(m.dialURL(), nil)
		if err == nil {
			return conn, true
		}
		m.log.Infow("reconnect failed, backing off", "backoff", backoff.String(), "err", err)

		backoff *= 2
		if backoff > m.opts.MaxBackoff {
			backoff = m.opts.MaxBackoff
		}
	}
}

func (m *Manager) handleInbound(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		m.log.Warnw("dropping inbound frame", "err", ErrMalformedEvent)
		return
	}

	switch env.Type {
	case typeMessageAck:
		var frame messageAckFrame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Ref == "" {
			m.log.Warnw("dropping inbound frame", "type", env.Type, "err", ErrMalformedEvent)
			return
		}
		m.tracker.Confirm(frame.Ref, frame.MessageId)

	case typeMessageRead:
		var frame messageReadFrame
		if err := json.Unmarshal(data, &frame); err != nil || frame.MessageId == "" {
			m.log.Warnw("dropping inbound frame", "type", env.Type, "err", ErrMalformedEvent)
			return
		}
		m.tracker.MarkRead(frame.MessageId)

	case typeReceiveMessage:
		var frame receiveMessageFrame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Message.Id == "" {
			m.log.Warnw("dropping inbound frame", "type", env.Type, "err", ErrMalformedEvent)
			return
		}
		select {
		case m.events <- Event{Message: frame.Message}:
		case <-m.done:
		}

	case typeError:
		var frame errorFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return
		}
		m.mu.Lock()
		handler := m.onError
		m.mu.Unlock()
		if handler != nil {
			handler(frame.Ref, frame.Code, frame.Message)
		}

	default:
		m.log.Warnw("dropping inbound frame", "type", env.Type, "err", ErrMalformedEvent)
	}
}

// dispatch delivers inbound events to the registered handler from a single
// goroutine, preserving arrival order.
func (m *Manager) dispatch() {
	defer m.wg.Done()
	for {
		select {
		case <-m.done:
			return
		case ev := <-m.events:
			m.mu.Lock()
			handler := m.onReceive
			m.mu.Unlock()
			if handler != nil {
				handler(ev)
			}
		}
	}
}

// watchStale periodically flags pending messages whose ack window expired.
func (m *Manager) watchStale() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.opts.AckTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			refs := m.tracker.FlagStale(m.opts.AckTimeout)
			if len(refs) == 0 {
				continue
			}
			m.log.Warnw("messages awaiting acknowledgement", "refs", refs, "err", ErrAckTimeout)
			m.mu.Lock()
			handler := m.onTimeout
			m.mu.Unlock()
			if handler == nil {
				continue
			}
			for _, ref := range refs {
				handler(ref)
			}
		}
	}
}

func (m *Manager) setConnected(connected bool) {
	m.mu.Lock()
	if m.connected == connected {
		m.mu.Unlock()
		return
	}
	m.connected = connected
	handlers := make([]func(bool), len(m.onConn))
	copy(handlers, m.onConn)
	m.mu.Unlock()

	for _, handler := range handlers {
		handler(connected)
	}
}
