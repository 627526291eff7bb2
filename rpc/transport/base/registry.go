package base

import (
	"github.com/ValentinKolb/otick/rpc/common"
	"github.com/puzpuzpuz/xsync/v3"
	"sync"
)

// pendingRegistry routes replies to the callers waiting for them.
// Every ticket gets a one-shot channel that is fulfilled exactly once, either
// by the reply carrying the ticket or by the fatal error of the connection.
type pendingRegistry struct {
	pending *xsync.MapOf[int64, chan common.Result]

	// fatalMu orders register against fail: once fatal is set no channel is stored anymore
	fatalMu sync.RWMutex
	fatal   error
}

func newPendingRegistry() *pendingRegistry {
	return &pendingRegistry{
		pending: xsync.NewMapOf[int64, chan common.Result](),
	}
}

// register creates the channel for ticket. It must be called before the command is written,
// otherwise the reply could arrive first. If the connection is already dead
// the channel is returned fulfilled with the fatal error.
func (r *pendingRegistry) register(ticket int64) chan common.Result {
	ch := make(chan common.Result, 1)

	r.fatalMu.RLock()
	defer r.fatalMu.RUnlock()

	if r.fatal != nil {
		ch <- common.Result{Err: r.fatal}
		return ch
	}
	r.pending.Store(ticket, ch)
	return ch
}

// unregister forgets ticket without fulfilling its channel
func (r *pendingRegistry) unregister(ticket int64) {
	r.pending.Delete(ticket)
}

// deliver fulfills the channel of the reply's ticket.
// It returns false if nobody waits for the ticket.
func (r *pendingRegistry) deliver(reply *common.Reply) bool {
	ch, found := r.pending.LoadAndDelete(reply.Ticket)
	if !found {
		return false
	}
	ch <- common.Result{Reply: reply}
	return true
}

// fail stores err as the fatal error of the connection and fulfills every pending channel with it.
// Only the first call has an effect, it returns false for every later call.
func (r *pendingRegistry) fail(err error) bool {
	r.fatalMu.Lock()
	if r.fatal != nil {
		r.fatalMu.Unlock()
		return false
	}
	r.fatal = err
	r.fatalMu.Unlock()

	r.pending.Range(func(ticket int64, _ chan common.Result) bool {
		if ch, found := r.pending.LoadAndDelete(ticket); found {
			ch <- common.Result{Err: err}
		}
		return true
	})
	return true
}

// err returns the fatal error, nil while the connection is alive
func (r *pendingRegistry) err() error {
	r.fatalMu.RLock()
	defer r.fatalMu.RUnlock()
	return r.fatal
}

// size returns the number of requests waiting for a reply
func (r *pendingRegistry) size() int {
	return r.pending.Size()
}
