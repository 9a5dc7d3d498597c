package store

import (
	"sync"
	"testing"
)

func TestNotifierDeliversToSubscribers(t *testing.T) {
	var n Notifier
	var got []Event

	unsubscribe := n.Subscribe(func(e Event) { got = append(got, e) })
	n.Emit(EventDisconnect)
	n.Emit(EventConnect)

	if len(got) != 2 || got[0] != EventDisconnect || got[1] != EventConnect {
		t.Fatalf("unexpected events: %v", got)
	}

	unsubscribe()
	unsubscribe()
	n.Emit(EventDisconnect)
	if len(got) != 2 {
		t.Fatalf("event delivered after unsubscribe: %v", got)
	}
}

func TestNotifierNilSubscriber(t *testing.T) {
	var n Notifier
	n.Subscribe(nil)()
	n.Emit(EventConnect)
}

func TestNotifierConcurrentEmit(t *testing.T) {
	var (
		n     Notifier
		mu    sync.Mutex
		count int
		wg    sync.WaitGroup
	)
	n.Subscribe(func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.Emit(EventConnect)
		}()
	}
	wg.Wait()

	if count != 16 {
		t.Fatalf("expected 16 deliveries, got %d", count)
	}
}

func TestEventString(t *testing.T) {
	if EventConnect.String() != "connect" || EventDisconnect.String() != "disconnect" {
		t.Fatal("unexpected event names")
	}
	if Event(0).String() != "unknown" {
		t.Fatal("zero event should be unknown")
	}
}
