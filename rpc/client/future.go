package client

import (
	"fmt"
	"github.com/ValentinKolb/otick/rpc/common"
	"sync"
	"time"
)

// ServerError is an error reported by the server for a single request.
// It does not affect other requests on the same connection.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return e.Message
}

// Future is the handle of a request sent with ExecuteAsync.
// Get blocks until the reply for the ticket arrived or the connection died.
type Future struct {
	ticket int64
	kind   common.CommandKind
	ch     <-chan common.Result
	start  time.Time

	once  sync.Once
	value interface{}
	err   error
}

func newFuture(ticket int64, kind common.CommandKind, ch <-chan common.Result, start time.Time) *Future {
	return &Future{
		ticket: ticket,
		kind:   kind,
		ch:     ch,
		start:  start,
	}
}

// Ticket returns the ticket the request was sent with
func (f *Future) Ticket() int64 {
	return f.ticket
}

// Get waits for the result of the request. There is no timeout, Get returns
// once the reply arrived or the connection failed. The outcome is resolved
// once, later calls return the same value and error.
//
// A string payload is returned as *ServerError. Row sequences are returned
// as []interface{} of rows with [seconds, nanoseconds] columns converted to
// time.Time. Other payloads are returned unchanged.
func (f *Future) Get() (interface{}, error) {
	f.once.Do(func() {
		f.value, f.err = f.resolve(<-f.ch)
		recordDone(f.start, f.err)
	})
	return f.value, f.err
}

// Rows waits for the result and returns it as rows.
// An acknowledgment without payload returns no rows.
func (f *Future) Rows() ([][]interface{}, error) {
	value, err := f.Get()
	if err != nil || value == nil {
		return nil, err
	}

	list, ok := value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("reply for ticket %d is not a row set but %T", f.ticket, value)
	}

	rows := make([][]interface{}, len(list))
	for i, r := range list {
		row, ok := r.([]interface{})
		if !ok {
			return nil, fmt.Errorf("row %d of reply for ticket %d is %T", i, f.ticket, r)
		}
		rows[i] = row
	}
	return rows, nil
}

// resolve turns the result delivered by the transport into the value returned to the caller
func (f *Future) resolve(res common.Result) (interface{}, error) {
	if res.Err != nil {
		return nil, res.Err
	}
	if msg, ok := res.Reply.Err(); ok {
		Logger.Debugf("Server error for ticket %d (%s): %s", f.ticket, f.kind, msg)
		return nil, &ServerError{Message: msg}
	}
	return common.DecodeRows(res.Reply.Value), nil
}
