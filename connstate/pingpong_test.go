package connstate

import (
	"testing"
	"time"
)

func TestPingPongAccounting(t *testing.T) {
	c := NewPingPongCache()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		c.HandleSendPing(base.Add(time.Duration(i) * time.Second))
	}
	for i := 0; i < 3; i++ {
		if !c.HandleReceivedPong(base.Add(time.Duration(i) * time.Second)) {
			t.Fatalf("expected pong %d to match a pending ping", i)
		}
	}
	snap := c.Snapshot()
	if snap.Pending != 2 {
		t.Fatalf("expected 2 pending pings (5 sent - 3 matched), got %d", snap.Pending)
	}
	if snap.UnknownPongEvents != 0 || snap.MismatchCount != 0 {
		t.Fatalf("expected no unknown pongs or mismatches, got %+v", snap)
	}
}

func TestUnknownPong(t *testing.T) {
	c := NewPingPongCache()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.HandleSendPing(base)
	if c.HandleReceivedPong(base.Add(time.Minute)) {
		t.Fatal("expected unmatched pong to return false")
	}
	if c.Snapshot().UnknownPongEvents != 1 {
		t.Fatal("expected unknown pong to be counted")
	}
}

func TestDrainMovesStalePingsToPendingPongEvents(t *testing.T) {
	c := NewPingPongCache()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.HandleSendPing(base)
	c.HandleSendPing(base.Add(10 * time.Second))
	n := c.Drain(base.Add(35*time.Second), 30*time.Second)
	if n != 1 {
		t.Fatalf("expected exactly one stale ping drained, got %d", n)
	}
	if c.PendingCount() != 1 {
		t.Fatalf("expected one ping to remain pending, got %d", c.PendingCount())
	}
	if c.Snapshot().PendingPongEvents != 1 {
		t.Fatal("expected drained ping to be counted as a pending_pong_event")
	}
}

func TestCheckMismatchThreshold(t *testing.T) {
	c := NewPingPongCache()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		c.HandleSendPing(base.Add(time.Duration(i) * time.Second))
	}
	counters, exceeded := c.CheckMismatch(3)
	if !exceeded {
		t.Fatal("expected threshold of 3 to be exceeded by 4 pending pings")
	}
	if counters.Pending != 4 || counters.MismatchCount != 1 {
		t.Fatalf("unexpected counters: %+v", counters)
	}
	_, exceeded = c.CheckMismatch(10)
	if exceeded {
		t.Fatal("expected higher threshold to not be exceeded")
	}
}
