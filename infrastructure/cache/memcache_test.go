package cache

import (
	"testing"
	"time"
)

func TestSetGetAndExpiry(t *testing.T) {
	m := NewMemCache(0)
	defer m.Close()

	m.Set("k", "v", 0)
	if v, ok := m.Get("k"); !ok || v != "v" {
		t.Fatalf("Get = %v, %v, want v, true", v, ok)
	}

	m.Set("short", "v", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	if _, ok := m.Get("short"); ok {
		t.Error("expired entry still readable")
	}
}

func TestIncrementRequiresSeededCounter(t *testing.T) {
	m := NewMemCache(0)
	defer m.Close()

	if _, ok := m.Increment("badge", 1); ok {
		t.Fatal("increment created a counter from nothing")
	}

	m.Set("badge", int64(5), time.Hour)
	if n, ok := m.Increment("badge", 2); !ok || n != 7 {
		t.Errorf("Increment = %d, %v, want 7, true", n, ok)
	}
	if n, ok := m.Increment("badge", -3); !ok || n != 4 {
		t.Errorf("Increment = %d, %v, want 4, true", n, ok)
	}
	if v, _ := m.Get("badge"); v != int64(4) {
		t.Errorf("Get = %v, want 4", v)
	}
}

func TestIncrementDropsExpiredCounter(t *testing.T) {
	m := NewMemCache(0)
	defer m.Close()

	m.Set("badge", int64(5), 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	if _, ok := m.Increment("badge", 1); ok {
		t.Error("increment revived an expired counter")
	}
	if _, ok := m.Get("badge"); ok {
		t.Error("expired counter still present")
	}
}

func TestIncrementRejectsNonCounter(t *testing.T) {
	m := NewMemCache(0)
	defer m.Close()

	m.Set("record", "not a counter", time.Hour)
	if _, ok := m.Increment("record", 1); ok {
		t.Error("incremented a non-integer value")
	}
}

func TestCleanupRemovesExpired(t *testing.T) {
	m := NewMemCache(5 * time.Millisecond)
	defer m.Close()

	m.Set("short", "v", time.Millisecond)
	m.Set("long", "v", time.Hour)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, ok := m.items.Load("short"); !ok {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, ok := m.items.Load("short"); ok {
		t.Error("cleanup left the expired entry behind")
	}
	if _, ok := m.Get("long"); !ok {
		t.Error("cleanup removed a live entry")
	}
}
