package ws

import (
	"sort"
	"testing"

	"go.uber.org/zap"
)

func testHub() *Hub {
	return NewHub(zap.NewNop().Sugar())
}

// register bypasses Run so tests stay single-goroutine.
func register(h *Hub, userId string) *UserClient {
	client := NewClient(userId, nil)
	h.mu.Lock()
	h.clients[userId] = client
	h.mu.Unlock()
	return client
}

func drain(c *UserClient) [][]byte {
	var out [][]byte
	for {
		select {
		case msg := <-c.send:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestJoinRoomIsIdempotent(t *testing.T) {
	h := testHub()

	h.JoinRoom("alice-bob", "alice")
	h.JoinRoom("alice-bob", "alice")
	h.JoinRoom("alice-bob", "bob")

	members := h.RoomMembers("alice-bob")
	sort.Strings(members)
	if len(members) != 2 || members[0] != "alice" || members[1] != "bob" {
		t.Fatalf("members = %v, want [alice bob]", members)
	}
}

func TestBroadcastRoomSkipsSender(t *testing.T) {
	h := testHub()
	alice := register(h, "alice")
	bob := register(h, "bob")
	register(h, "carol") // connected but not in the room

	h.JoinRoom("alice-bob", "alice")
	h.JoinRoom("alice-bob", "bob")

	h.BroadcastRoom("alice-bob", "alice", []byte("hi"))

	if got := drain(alice); len(got) != 0 {
		t.Errorf("sender received its own broadcast: %d frames", len(got))
	}
	if got := drain(bob); len(got) != 1 || string(got[0]) != "hi" {
		t.Errorf("bob frames = %v, want [hi]", got)
	}
}

func TestBroadcastRoomIgnoresDisconnectedMembers(t *testing.T) {
	h := testHub()
	bob := register(h, "bob")

	// alice is a room member but has no live connection.
	h.JoinRoom("alice-bob", "alice")
	h.JoinRoom("alice-bob", "bob")

	h.BroadcastRoom("alice-bob", "", []byte("hi"))

	if got := drain(bob); len(got) != 1 {
		t.Fatalf("bob frames = %d, want 1", len(got))
	}
}

func TestSendToClientDropsWhenUnknown(t *testing.T) {
	h := testHub()
	// No client registered; must not panic or block.
	h.SendToClient("ghost", []byte("boo"))
}

func TestLeaveRoomRemovesEmptyRooms(t *testing.T) {
	h := testHub()

	h.JoinRoom("alice-bob", "alice")
	h.JoinRoom("alice-bob", "bob")
	h.LeaveRoom("alice-bob", "alice")

	if members := h.RoomMembers("alice-bob"); len(members) != 1 || members[0] != "bob" {
		t.Fatalf("members = %v, want [bob]", members)
	}

	h.LeaveRoom("alice-bob", "bob")

	h.mu.RLock()
	_, exists := h.rooms["alice-bob"]
	h.mu.RUnlock()
	if exists {
		t.Error("empty room was not removed")
	}
}

func TestNewerConnectionReplacesOld(t *testing.T) {
	h := testHub()
	go h.Run()

	first := NewClient("alice", nil)
	second := NewClient("alice", nil)

	h.RegisterClient(first)
	h.RegisterClient(second)

	// The replaced connection's send channel is closed so its writer exits.
	if _, ok := <-first.send; ok {
		t.Error("old connection send channel still open")
	}
	if h.GetClientCount() != 1 {
		t.Errorf("client count = %d, want 1", h.GetClientCount())
	}

	// Unregister of the stale client must not evict the newer one.
	h.UnregisterClient(first)
	if h.GetClientCount() != 1 {
		t.Errorf("stale unregister evicted live client")
	}
}
