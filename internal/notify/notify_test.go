package notify

import (
	"sync"
	"testing"
	"time"
)

func TestChannel_QueueAndDrain(t *testing.T) {
	c := NewChannel(3)
	c.Notify("p1", "saved", Success)
	c.Notify("p1", "failed", Error)
	c.Notify("p2", "other", Info)
	c.Notify("p1", "", Info)
	c.Notify("", "nobody", Info)

	got := c.Drain("p1")
	if len(got) != 2 {
		t.Fatalf("Drain(p1) = %+v", got)
	}
	if got[0].Message != "saved" || got[0].DurationMs != DefaultDurationMs {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Kind != Error || got[1].DurationMs != ErrorDurationMs {
		t.Errorf("second = %+v", got[1])
	}
	if len(c.Drain("p1")) != 0 {
		t.Error("drain must empty the queue")
	}
	if c.Pending("p2") != 1 {
		t.Error("other profiles are untouched")
	}
}

func TestChannel_BoundedQueueDropsOldest(t *testing.T) {
	c := NewChannel(2)
	for _, m := range []string{"a", "b", "c"} {
		c.Notify("p", m, Info)
	}
	got := c.Drain("p")
	if len(got) != 2 || got[0].Message != "b" || got[1].Message != "c" {
		t.Errorf("Drain() = %+v", got)
	}
}

func TestChannel_NotifyNeverBlocks(t *testing.T) {
	c := NewChannel(4)
	ch, cancel := c.Wait("p")
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Notify("p", "x", Info)
		}()
	}
	wg.Wait()

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("waiter was not signalled")
	}
	if c.Pending("p") != 4 {
		t.Errorf("Pending() = %d", c.Pending("p"))
	}
}

func TestChannel_Sweep(t *testing.T) {
	now := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	c := NewChannel(10)
	c.now = func() time.Time { return now }
	c.Notify("p", "old", Info)
	now = now.Add(time.Minute)
	c.Notify("p", "new", Info)

	if n := c.Sweep(30 * time.Second); n != 1 {
		t.Errorf("Sweep() = %d", n)
	}
	if got := c.Drain("p"); len(got) != 1 || got[0].Message != "new" {
		t.Errorf("Drain() = %+v", got)
	}
}

func TestOnce_FiresOncePerInstance(t *testing.T) {
	notifyCalls := 0
	mount := NewOnce()

	// the initial fetch fails twice because the page re-renders
	for i := 0; i < 2; i++ {
		mount.Fire("profile:fetch", func() { notifyCalls++ })
	}
	if notifyCalls != 1 {
		t.Fatalf("notify called %d times, want 1", notifyCalls)
	}

	other := NewOnce()
	if !other.Fire("profile:fetch", func() { notifyCalls++ }) {
		t.Error("a different instance must not be suppressed")
	}

	mount.Reset("profile:fetch")
	if mount.Fired("profile:fetch") {
		t.Error("Reset must re-arm the key")
	}
	if !mount.Fire("profile:fetch", func() { notifyCalls++ }) {
		t.Error("re-armed key should fire")
	}
	if notifyCalls != 3 {
		t.Errorf("notifyCalls = %d", notifyCalls)
	}

	mount.ResetAll()
	if mount.Fired("profile:fetch") {
		t.Error("ResetAll must re-arm every key")
	}
}
