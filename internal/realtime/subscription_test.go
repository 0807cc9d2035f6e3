package realtime

import (
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type eventSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *eventSink) add(evt Event) {
	s.mu.Lock()
	s.events = append(s.events, evt)
	s.mu.Unlock()
}

func (s *eventSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func (s *eventSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func awaitLive(t *testing.T, liveCh <-chan bool, timeout time.Duration) bool {
	t.Helper()
	select {
	case resumed := <-liveCh:
		return resumed
	case <-time.After(timeout):
		t.Fatal("subscription never reached live")
		return false
	}
}

func TestSubscribe_GoesLiveAndDeliversEventsInOrder(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer client.Close()

	sink := &eventSink{}
	liveCh := make(chan bool, 4)
	sub := Subscribe(client, "jobs", sink.add, WithOnLive(func(resumed bool) { liveCh <- resumed }))
	defer sub.Close()

	if resumed := awaitLive(t, liveCh, 5*time.Second); resumed {
		t.Fatal("first live must report resumed=false")
	}
	if got := sub.State(); got != StateLive {
		t.Fatalf("expected live state after ack, got %s", got)
	}

	srv.Publish(Channel("jobs"), `{"type":"INSERT","table":"jobs","row":{"id":"1"}}`)
	srv.Publish(Channel("jobs"), `not json`)
	srv.Publish(Channel("jobs"), `{"type":"DELETE","table":"jobs","old_row":{"id":"1"}}`)

	waitFor(t, 5*time.Second, func() bool { return sink.len() == 2 })
	got := sink.snapshot()
	if got[0].Type != EventInsert || got[1].Type != EventDelete {
		t.Fatalf("expected insert then delete with the malformed payload dropped, got %+v", got)
	}
}

func TestSubscriptionClose_NoDeliveryAfterReturn(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer client.Close()

	sink := &eventSink{}
	liveCh := make(chan bool, 4)
	sub := Subscribe(client, "jobs", sink.add, WithOnLive(func(resumed bool) { liveCh <- resumed }))

	awaitLive(t, liveCh, 5*time.Second)
	srv.Publish(Channel("jobs"), `{"type":"INSERT","table":"jobs","row":{"id":"1"}}`)
	waitFor(t, 5*time.Second, func() bool { return sink.len() == 1 })

	sub.Close()
	if got := sub.State(); got != StateClosed {
		t.Fatalf("expected closed state, got %s", got)
	}

	srv.Publish(Channel("jobs"), `{"type":"INSERT","table":"jobs","row":{"id":"2"}}`)
	time.Sleep(200 * time.Millisecond)
	if sink.len() != 1 {
		t.Fatalf("no events may be delivered after Close returns, got %d", sink.len())
	}
}

func TestSubscriptionClose_UnblocksRetryLoop(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	sub := Subscribe(client, "jobs", func(Event) {})
	waitFor(t, 2*time.Second, func() bool { return sub.State() == StateConnecting })

	closed := make(chan struct{})
	go func() {
		sub.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return while the retry loop was backing off")
	}
	if got := sub.State(); got != StateClosed {
		t.Fatalf("expected closed state, got %s", got)
	}
}

func TestSubscription_ResignalsLiveAfterReconnect(t *testing.T) {
	srv := miniredis.NewMiniRedis()
	if err := srv.Start(); err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	addr := srv.Addr()

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	sink := &eventSink{}
	liveCh := make(chan bool, 4)
	sub := Subscribe(client, "jobs", sink.add, WithOnLive(func(resumed bool) { liveCh <- resumed }))
	defer sub.Close()

	if resumed := awaitLive(t, liveCh, 5*time.Second); resumed {
		t.Fatal("first live must report resumed=false")
	}

	srv.Close()

	restarted := miniredis.NewMiniRedis()
	waitFor(t, 5*time.Second, func() bool { return restarted.StartAddr(addr) == nil })
	defer restarted.Close()

	if resumed := awaitLive(t, liveCh, 15*time.Second); !resumed {
		t.Fatal("live after a dropped connection must report resumed=true")
	}

	restarted.Publish(Channel("jobs"), `{"type":"INSERT","table":"jobs","row":{"id":"2"}}`)
	waitFor(t, 5*time.Second, func() bool { return sink.len() == 1 })
}
