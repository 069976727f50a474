package entity

import "testing"

func TestDirectKeyCommutative(t *testing.T) {
	pairs := [][2]string{
		{"alice", "bob"},
		{"u42", "u7"},
		{"b", "a"},
	}
	for _, p := range pairs {
		if DirectKey(p[0], p[1]) != DirectKey(p[1], p[0]) {
			t.Errorf("DirectKey(%q,%q) != DirectKey(%q,%q)", p[0], p[1], p[1], p[0])
		}
	}
	if got := DirectKey("bob", "alice"); got != "alice-bob" {
		t.Errorf("expected alice-bob, got %q", got)
	}
}

func TestBelongsToDirect(t *testing.T) {
	key := DirectKey("alice", "bob")
	if !BelongsTo(key, "alice", nil) {
		t.Error("alice should belong to alice-bob")
	}
	if !BelongsTo(key, "bob", nil) {
		t.Error("bob should belong to alice-bob")
	}
	if BelongsTo(key, "carol", nil) {
		t.Error("carol should not belong to alice-bob")
	}
}

func TestBelongsToGroup(t *testing.T) {
	key := GroupKeyPrefix + "1234"
	members := []string{"alice", "bob"}
	if !BelongsTo(key, "alice", members) {
		t.Error("member should belong to group")
	}
	if BelongsTo(key, "carol", members) {
		t.Error("non-member should not belong to group")
	}
	// A group key never matches by dash-splitting.
	if BelongsTo(key, "g", nil) {
		t.Error("group key must not be parsed as a direct key")
	}
}

func TestDirectParticipants(t *testing.T) {
	a, b, ok := DirectParticipants("alice-bob")
	if !ok || a != "alice" || b != "bob" {
		t.Errorf("got %q %q %v", a, b, ok)
	}
	if _, _, ok := DirectParticipants(GroupKeyPrefix + "99"); ok {
		t.Error("group key should not yield direct participants")
	}
}

func TestStatusRankOrdering(t *testing.T) {
	if !(StatusSent.Rank() < StatusDelivered.Rank() && StatusDelivered.Rank() < StatusRead.Rank()) {
		t.Error("status ranks out of order")
	}
	if MessageStatus("bogus").Rank() >= StatusSent.Rank() {
		t.Error("unknown status should rank below sent")
	}
}
