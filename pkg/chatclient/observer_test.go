package chatclient

import (
	"testing"
	"time"
)

func collectReads(o *ReadObserver) *[]string {
	var reads []string
	o.OnMessageRead(func(messageId string) {
		reads = append(reads, messageId)
	})
	return &reads
}

func TestObserverEmitsOncePerMessage(t *testing.T) {
	o := NewReadObserver()
	reads := collectReads(o)

	o.Observe("m1")
	o.ReportVisible("m1", 0.5)
	// Scrolled out and back in.
	o.Unobserve("m1")
	o.Observe("m1")
	o.ReportVisible("m1", 1.0)
	o.ReportVisible("m1", 0.9)

	if len(*reads) != 1 || (*reads)[0] != "m1" {
		t.Fatalf("reads = %v, want exactly one m1", *reads)
	}
}

func TestObserverThreshold(t *testing.T) {
	o := NewReadObserver()
	reads := collectReads(o)

	o.Observe("m1")
	o.ReportVisible("m1", 0.05)
	if len(*reads) != 0 {
		t.Fatal("below-threshold visibility must not emit")
	}
	o.ReportVisible("m1", 0.10)
	if len(*reads) != 1 {
		t.Fatalf("threshold visibility should emit, reads = %v", *reads)
	}
}

func TestObserverCustomThreshold(t *testing.T) {
	o := NewReadObserver(WithThreshold(0.5))
	reads := collectReads(o)

	o.Observe("m1")
	o.ReportVisible("m1", 0.3)
	if len(*reads) != 0 {
		t.Fatal("custom threshold ignored")
	}
	o.ReportVisible("m1", 0.6)
	if len(*reads) != 1 {
		t.Fatal("custom threshold never fired")
	}
}

func TestObserverIgnoresUnobserved(t *testing.T) {
	o := NewReadObserver()
	reads := collectReads(o)

	o.ReportVisible("m1", 1.0)
	if len(*reads) != 0 {
		t.Fatal("visibility for an unobserved id must not emit")
	}
}

func TestObserverCloseCancels(t *testing.T) {
	o := NewReadObserver()
	reads := collectReads(o)

	o.Observe("m1")
	o.Close()
	o.ReportVisible("m1", 1.0)
	o.Observe("m2")
	o.ReportVisible("m2", 1.0)

	if len(*reads) != 0 {
		t.Fatalf("reads after close: %v", *reads)
	}
	// Second close is a no-op.
	o.Close()
}

func TestObserverCloseWaitsForInFlightEmission(t *testing.T) {
	o := NewReadObserver()

	entered := make(chan struct{})
	release := make(chan struct{})
	o.OnMessageRead(func(messageId string) {
		close(entered)
		<-release
	})
	o.Observe("m1")

	go o.ReportVisible("m1", 1.0)
	<-entered

	closed := make(chan struct{})
	go func() {
		o.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned while the read handler was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close never returned after the handler finished")
	}
}
