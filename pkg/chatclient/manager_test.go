package chatclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"studychat/internal/entity"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// scriptServer is a minimal in-process chat server: it records every frame
// per session and answers send_message with a delivery acknowledgement.
type scriptServer struct {
	t        *testing.T
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions [][]recordedFrame
	conns    []*websocket.Conn
	writeMu  []*sync.Mutex
}

type recordedFrame struct {
	Type string
	Raw  []byte
}

func newScriptServer(t *testing.T) *scriptServer {
	s := &scriptServer{t: t}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *scriptServer) url() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *scriptServer) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	idx := len(s.sessions)
	s.sessions = append(s.sessions, nil)
	s.conns = append(s.conns, conn)
	s.writeMu = append(s.writeMu, &sync.Mutex{})
	s.mu.Unlock()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env envelope
		_ = json.Unmarshal(data, &env)

		s.mu.Lock()
		s.sessions[idx] = append(s.sessions[idx], recordedFrame{Type: env.Type, Raw: data})
		s.mu.Unlock()

		if env.Type == typeSendMessage {
			var frame sendMessageFrame
			if json.Unmarshal(data, &frame) == nil {
				s.push(idx, map[string]string{
					"type":      typeMessageAck,
					"ref":       frame.Ref,
					"messageId": uuid.New().String(),
				})
			}
		}
	}
}

func (s *scriptServer) push(session int, frame any) {
	b, err := json.Marshal(frame)
	if err != nil {
		s.t.Errorf("push marshal: %v", err)
		return
	}
	s.pushRaw(session, b)
}

func (s *scriptServer) pushRaw(session int, b []byte) {
	s.mu.Lock()
	if session >= len(s.conns) {
		s.mu.Unlock()
		s.t.Errorf("no session %d", session)
		return
	}
	conn := s.conns[session]
	wmu := s.writeMu[session]
	s.mu.Unlock()

	wmu.Lock()
	defer wmu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		s.t.Logf("push write: %v", err)
	}
}

func (s *scriptServer) frames(session int) []recordedFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session >= len(s.sessions) {
		return nil
	}
	out := make([]recordedFrame, len(s.sessions[session]))
	copy(out, s.sessions[session])
	return out
}

func (s *scriptServer) sessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *scriptServer) closeSession(session int) {
	s.mu.Lock()
	conn := s.conns[session]
	s.mu.Unlock()
	_ = conn.Close()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func dialTest(t *testing.T, s *scriptServer) *Manager {
	t.Helper()
	m, err := Dial(context.Background(), s.url(), Options{
		InitialBackoff: 20 * time.Millisecond,
		MaxBackoff:     100 * time.Millisecond,
		AckTimeout:     time.Second,
	})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestDialFailsWithConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	_, err := Dial(context.Background(), url, Options{})
	if !errors.Is(err, ErrConnection) {
		t.Fatalf("err = %v, want ErrConnection", err)
	}
}

func TestSendGetsDeliveryAck(t *testing.T) {
	s := newScriptServer(t)
	m := dialTest(t, s)

	ref, err := m.Send("alice-bob", Payload{Text: "hi"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	// Optimistic local state before any acknowledgement.
	tm, ok := m.Tracker().StateByRef(ref)
	if !ok || tm.Status.Rank() < entity.StatusSent.Rank() {
		t.Fatalf("message not tracked sent: %+v", tm)
	}

	waitFor(t, "delivery ack", func() bool {
		tm, _ := m.Tracker().StateByRef(ref)
		return tm.Phase == Confirmed && tm.Status == entity.StatusDelivered
	})
	tm, _ = m.Tracker().StateByRef(ref)
	if tm.MessageId == "" {
		t.Error("server id missing after confirm")
	}
}

func TestReadAckReachesTracker(t *testing.T) {
	s := newScriptServer(t)
	m := dialTest(t, s)

	ref, _ := m.Send("alice-bob", Payload{Text: "hi"})
	waitFor(t, "delivery ack", func() bool {
		tm, _ := m.Tracker().StateByRef(ref)
		return tm.Phase == Confirmed
	})
	tm, _ := m.Tracker().StateByRef(ref)

	s.push(0, map[string]string{
		"type":      typeMessageRead,
		"messageId": tm.MessageId,
		"readerId":  "bob",
	})

	waitFor(t, "read status", func() bool {
		st, _ := m.Tracker().State(tm.MessageId)
		return st.Status == entity.StatusRead
	})
}

func TestInboundDispatchPreservesOrder(t *testing.T) {
	s := newScriptServer(t)
	m := dialTest(t, s)

	var mu sync.Mutex
	var got []string
	m.OnReceive(func(ev Event) {
		mu.Lock()
		got = append(got, ev.Message.Id)
		mu.Unlock()
	})

	for _, id := range []string{"m1", "m2", "m3"} {
		s.push(0, map[string]any{
			"type": typeReceiveMessage,
			"message": entity.Message{
				Id:             id,
				ConversationId: "alice-bob",
				SenderId:       "alice",
				Text:           "x",
				Status:         entity.StatusSent,
			},
		})
	}

	waitFor(t, "three events", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	})
	mu.Lock()
	defer mu.Unlock()
	for i, want := range []string{"m1", "m2", "m3"} {
		if got[i] != want {
			t.Fatalf("order broken: got %v", got)
		}
	}
}

func TestMalformedInboundDropped(t *testing.T) {
	s := newScriptServer(t)
	m := dialTest(t, s)

	var mu sync.Mutex
	var got []string
	m.OnReceive(func(ev Event) {
		mu.Lock()
		got = append(got, ev.Message.Id)
		mu.Unlock()
	})

	s.pushRaw(0, []byte("not json at all"))
	s.pushRaw(0, []byte(`{"type":"receive_message","message":{}}`))
	s.push(0, map[string]any{
		"type": typeReceiveMessage,
		"message": entity.Message{
			Id:             "m1",
			ConversationId: "alice-bob",
			SenderId:       "alice",
		},
	})

	waitFor(t, "surviving event", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0] == "m1"
	})
}

func TestReconnectRejoinsRoomsBeforeFlush(t *testing.T) {
	s := newScriptServer(t)
	m := dialTest(t, s)

	disconnected := make(chan struct{}, 1)
	reconnected := make(chan struct{}, 1)
	m.OnConnectionChange(func(connected bool) {
		if connected {
			select {
			case reconnected <- struct{}{}:
			default:
			}
		} else {
			select {
			case disconnected <- struct{}{}:
			default:
			}
		}
	})

	m.JoinRoom("room-x")
	m.JoinRoom("room-y")
	m.JoinRoom("room-x") // idempotent

	waitFor(t, "initial joins", func() bool {
		joins := 0
		for _, f := range s.frames(0) {
			if f.Type == typeJoinRoom {
				joins++
			}
		}
		return joins == 2
	})

	s.closeSession(0)
	<-disconnected

	// Buffered while offline; must flush only after both rooms rejoin.
	if _, err := m.Send("room-x", Payload{Text: "queued"}); err != nil {
		t.Fatalf("Send while offline: %v", err)
	}

	<-reconnected
	waitFor(t, "flushed send", func() bool {
		for _, f := range s.frames(1) {
			if f.Type == typeSendMessage {
				return true
			}
		}
		return false
	})

	frames := s.frames(1)
	joined := map[string]bool{}
	for _, f := range frames {
		switch f.Type {
		case typeJoinRoom:
			var jr joinRoomFrame
			_ = json.Unmarshal(f.Raw, &jr)
			joined[jr.ConversationId] = true
		case typeSendMessage:
			if !joined["room-x"] || !joined["room-y"] {
				t.Fatalf("send flushed before resubscription: %+v", frames)
			}
		}
	}
}

func TestFailedWriteFlushesAheadOfQueue(t *testing.T) {
	s := newScriptServer(t)
	m := dialTest(t, s)

	disconnected := make(chan struct{}, 1)
	reconnected := make(chan struct{}, 1)
	m.OnConnectionChange(func(connected bool) {
		if connected {
			select {
			case reconnected <- struct{}{}:
			default:
			}
		} else {
			select {
			case disconnected <- struct{}{}:
			default:
			}
		}
	})

	m.JoinRoom("room-x")
	waitFor(t, "initial join", func() bool {
		return len(s.frames(0)) >= 1
	})

	s.closeSession(0)
	<-disconnected

	// The first frame's write failed with the session; the second was
	// queued behind it. Sender order must survive the reconnect.
	first, err := json.Marshal(sendMessageFrame{
		Type:           typeSendMessage,
		Ref:            "ref-first",
		ConversationId: "room-x",
		Text:           "first",
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	m.mu.Lock()
	m.resend = append(m.resend, first)
	m.mu.Unlock()

	if _, err := m.Send("room-x", Payload{Text: "second"}); err != nil {
		t.Fatalf("Send while offline: %v", err)
	}

	<-reconnected
	waitFor(t, "both sends flushed", func() bool {
		sends := 0
		for _, f := range s.frames(1) {
			if f.Type == typeSendMessage {
				sends++
			}
		}
		return sends == 2
	})

	var order []string
	for _, f := range s.frames(1) {
		if f.Type != typeSendMessage {
			continue
		}
		var fr sendMessageFrame
		_ = json.Unmarshal(f.Raw, &fr)
		order = append(order, fr.Text)
	}
	if order[0] != "first" || order[1] != "second" {
		t.Fatalf("order = %v, want [first second]", order)
	}
}

func TestSendReadAckFrame(t *testing.T) {
	s := newScriptServer(t)
	m := dialTest(t, s)

	if err := m.SendReadAck("alice-bob", "m42"); err != nil {
		t.Fatalf("SendReadAck: %v", err)
	}

	waitFor(t, "read frame", func() bool {
		for _, f := range s.frames(0) {
			if f.Type == typeMessageRead {
				var fr messageReadFrame
				_ = json.Unmarshal(f.Raw, &fr)
				return fr.MessageId == "m42" && fr.ConversationId == "alice-bob"
			}
		}
		return false
	})
}

func TestCloseIdempotentAndTerminal(t *testing.T) {
	s := newScriptServer(t)
	m := dialTest(t, s)

	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if _, err := m.Send("alice-bob", Payload{Text: "late"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Send after close: err = %v, want ErrClosed", err)
	}
}
