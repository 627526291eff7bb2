package base

import (
	"errors"
	"github.com/ValentinKolb/otick/rpc/common"
	"sync"
	"testing"
)

// TestRegistryDeliver tests that replies are routed by ticket
func TestRegistryDeliver(t *testing.T) {
	r := newPendingRegistry()

	ch1 := r.register(1)
	ch2 := r.register(2)

	if !r.deliver(&common.Reply{Ticket: 2, Value: "two"}) {
		t.Fatal("Expected ticket 2 to be delivered")
	}
	if !r.deliver(&common.Reply{Ticket: 1, Value: "one"}) {
		t.Fatal("Expected ticket 1 to be delivered")
	}

	if res := <-ch1; res.Reply == nil || res.Reply.Value != "one" {
		t.Errorf("Expected reply one for ticket 1, got %+v", res)
	}
	if res := <-ch2; res.Reply == nil || res.Reply.Value != "two" {
		t.Errorf("Expected reply two for ticket 2, got %+v", res)
	}

	// every ticket is consumed exactly once
	if r.deliver(&common.Reply{Ticket: 1}) {
		t.Error("Expected a second reply for ticket 1 to be dropped")
	}
	if r.size() != 0 {
		t.Errorf("Expected an empty registry, got %d entries", r.size())
	}
}

// TestRegistryFail tests that the fatal error reaches current and future waiters
func TestRegistryFail(t *testing.T) {
	r := newPendingRegistry()
	fatal := errors.New("boom")

	pending := []chan common.Result{r.register(1), r.register(2), r.register(3)}

	if !r.fail(fatal) {
		t.Fatal("Expected the first fail to succeed")
	}
	if r.fail(errors.New("other")) {
		t.Error("Expected the second fail to be ignored")
	}
	if r.err() != fatal {
		t.Errorf("Expected fatal error %v, got %v", fatal, r.err())
	}

	for i, ch := range pending {
		if res := <-ch; res.Err != fatal {
			t.Errorf("Waiter %d: expected %v, got %+v", i, fatal, res)
		}
	}

	// a ticket registered after the failure resolves immediately
	if res := <-r.register(4); res.Err != fatal {
		t.Errorf("Expected late waiter to see %v, got %+v", fatal, res)
	}

	// replies after the failure have nobody to go to
	if r.deliver(&common.Reply{Ticket: 1}) {
		t.Error("Expected no delivery after failure")
	}
}

// TestRegistryUnregister tests that an unregistered ticket is not delivered
func TestRegistryUnregister(t *testing.T) {
	r := newPendingRegistry()
	r.register(7)
	r.unregister(7)

	if r.deliver(&common.Reply{Ticket: 7}) {
		t.Error("Expected unregistered ticket to be dropped")
	}
}

// TestRegistryConcurrentFail races registrations against a failure, no waiter may be lost
func TestRegistryConcurrentFail(t *testing.T) {
	r := newPendingRegistry()
	fatal := errors.New("connection lost")

	const waiters = 200
	var wg sync.WaitGroup
	results := make(chan common.Result, waiters)

	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(ticket int64) {
			defer wg.Done()
			ch := r.register(ticket)
			if ticket%2 == 0 {
				r.deliver(&common.Reply{Ticket: ticket, Value: ticket})
			}
			results <- <-ch
		}(int64(i))

		if i == waiters/2 {
			r.fail(fatal)
		}
	}

	wg.Wait()
	close(results)

	count := 0
	for res := range results {
		count++
		if res.Reply == nil && res.Err != fatal {
			t.Errorf("Expected a reply or the fatal error, got %+v", res)
		}
	}
	if count != waiters {
		t.Errorf("Expected %d results, got %d", waiters, count)
	}
}
