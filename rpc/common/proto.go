package common

import (
	"fmt"
	"time"
)

// --------------------------------------------------------------------------
// Command Structure
// --------------------------------------------------------------------------

// CommandKind is the tag carried in field "1" of every outgoing record
type CommandKind string

const (
	CmdUse     CommandKind = "use"     // select the database of the session
	CmdPrepare CommandKind = "prepare" // compile a statement, the reply is a handle
	CmdRun     CommandKind = "run"     // execute raw text or a prepared handle
)

// Command represents a single request sent to the server.
// Which fields are used depends on the kind of the command.
type Command struct {
	// Ticket correlates the command with its reply. Assigned by the transport at send time.
	Ticket int64

	// Kind of command
	Kind CommandKind

	// Text is the database name (use) or the statement text (prepare, run)
	Text string

	// Handle is the prepared statement handle, only valid if Prepared is set
	Handle   int64
	Prepared bool

	// Args are the positional statement arguments (run only)
	Args []interface{}
}

// Target returns the value of the third record field: the statement text,
// the database name or the prepared handle
func (c *Command) Target() interface{} {
	if c.Kind == CmdRun && c.Prepared {
		return c.Handle
	}
	return c.Text
}

func (c *Command) String() string {
	if c.Kind == CmdRun {
		return fmt.Sprintf("#%d %s %v (%d args)", c.Ticket, c.Kind, c.Target(), len(c.Args))
	}
	return fmt.Sprintf("#%d %s %q", c.Ticket, c.Kind, c.Text)
}

// --------------------------------------------------------------------------
// Command Factory Functions
// --------------------------------------------------------------------------

// NewUseCommand creates a command selecting the database dbName
func NewUseCommand(dbName string) *Command {
	return &Command{
		Kind: CmdUse,
		Text: dbName,
	}
}

// NewPrepareCommand creates a command compiling the statement sql
func NewPrepareCommand(sql string) *Command {
	return &Command{
		Kind: CmdPrepare,
		Text: sql,
	}
}

// NewRunCommand creates a command executing the raw statement text
func NewRunCommand(sql string, args []interface{}) *Command {
	return &Command{
		Kind: CmdRun,
		Text: sql,
		Args: args,
	}
}

// NewPreparedRunCommand creates a command executing a prepared statement
func NewPreparedRunCommand(sql string, handle int64, args []interface{}) *Command {
	return &Command{
		Kind:     CmdRun,
		Text:     sql,
		Handle:   handle,
		Prepared: true,
		Args:     args,
	}
}

// --------------------------------------------------------------------------
// Reply Structure
// --------------------------------------------------------------------------

// Reply is a decoded incoming record.
// Value is either an error string, a sequence of rows or a scalar.
type Reply struct {
	Ticket int64
	Value  interface{}
}

// Err returns the server reported error carried by the reply, if any
func (r *Reply) Err() (string, bool) {
	s, ok := r.Value.(string)
	return s, ok
}

// Result is what a waiter receives for its ticket.
// Exactly one of Reply and Err is set: Reply for a delivered record,
// Err if the connection died before the reply arrived.
type Result struct {
	Reply *Reply
	Err   error
}

// --------------------------------------------------------------------------
// Timestamp wire rule
// --------------------------------------------------------------------------

// EncodeTime converts t to the [seconds, nanoseconds] pair relative to the Unix epoch
func EncodeTime(t time.Time) []interface{} {
	return []interface{}{int(t.Unix()), t.Nanosecond()}
}

// DecodeTime interprets v as a [seconds, nanoseconds] pair.
// The sub-second part is truncated to microseconds.
func DecodeTime(v interface{}) (time.Time, bool) {
	pair, ok := v.([]interface{})
	if !ok || len(pair) != 2 {
		return time.Time{}, false
	}
	sec, ok := ToInt64(pair[0])
	if !ok {
		return time.Time{}, false
	}
	nsec, ok := ToInt64(pair[1])
	if !ok {
		return time.Time{}, false
	}
	micros := time.Duration(nsec/1000) * time.Microsecond
	return time.Unix(sec, 0).Add(micros).UTC(), true
}

// NormalizeArgs converts timestamp arguments to their wire representation.
// The input slice is not modified.
func NormalizeArgs(args []interface{}) []interface{} {
	if len(args) == 0 {
		return args
	}
	out := make([]interface{}, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case time.Time:
			out[i] = EncodeTime(v)
		case *time.Time:
			if v == nil {
				out[i] = nil
			} else {
				out[i] = EncodeTime(*v)
			}
		default:
			out[i] = arg
		}
	}
	return out
}

// DecodeRows replaces every [seconds, nanoseconds] column of a row sequence
// with a time.Time. Values that are not row sequences are returned unchanged.
func DecodeRows(v interface{}) interface{} {
	rows, ok := v.([]interface{})
	if !ok {
		return v
	}
	for _, r := range rows {
		row, ok := r.([]interface{})
		if !ok {
			continue
		}
		for i, col := range row {
			if t, ok := DecodeTime(col); ok {
				row[i] = t
			}
		}
	}
	return rows
}

// ToInt64 converts the numeric types produced by the record decoder to int64.
// Floats are accepted only if they are integral.
func ToInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}
