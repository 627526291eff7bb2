package serializer

import (
	"github.com/ValentinKolb/otick/rpc/common"
	"gopkg.in/mgo.v2/bson"
	"reflect"
	"testing"
)

// testCommands creates a set of commands covering every kind
func testCommands() []*common.Command {
	use := common.NewUseCommand("trading")
	use.Ticket = 0

	prepare := common.NewPrepareCommand("SELECT * FROM t WHERE a=?")
	prepare.Ticket = 1

	run := common.NewRunCommand("INSERT INTO t VALUES(?, ?)", []interface{}{42, "x"})
	run.Ticket = 2

	prepared := common.NewPreparedRunCommand("INSERT INTO t VALUES(?, ?)", 7, []interface{}{1.5, true})
	prepared.Ticket = 1 << 40

	return []*common.Command{use, prepare, run, prepared}
}

// TestCommandRoundTrip tests that commands survive encoding and decoding
func TestCommandRoundTrip(t *testing.T) {
	s := NewBSONSerializer()

	for i, cmd := range testCommands() {
		data, err := s.EncodeCommand(cmd)
		if err != nil {
			t.Fatalf("Failed to encode command %d: %v", i, err)
		}

		got, err := s.DecodeCommand(data)
		if err != nil {
			t.Fatalf("Failed to decode command %d: %v", i, err)
		}

		if got.Ticket != cmd.Ticket || got.Kind != cmd.Kind || got.Prepared != cmd.Prepared {
			t.Errorf("Command %d: got %v, expected %v", i, got, cmd)
		}
		if cmd.Prepared {
			if got.Handle != cmd.Handle {
				t.Errorf("Command %d: handle %d, expected %d", i, got.Handle, cmd.Handle)
			}
		} else if got.Text != cmd.Text {
			t.Errorf("Command %d: text %q, expected %q", i, got.Text, cmd.Text)
		}
		if len(cmd.Args) > 0 && !reflect.DeepEqual(got.Args, cmd.Args) {
			t.Errorf("Command %d: args %#v, expected %#v", i, got.Args, cmd.Args)
		}
	}
}

// TestCommandLayout checks the positional keys written for a run command
func TestCommandLayout(t *testing.T) {
	s := NewBSONSerializer()

	data, err := s.EncodeCommand(common.NewPreparedRunCommand("q", 3, nil))
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}

	var doc bson.M
	if err := bson.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	if doc["0"] != 0 {
		t.Errorf("Expected ticket 0, got %#v", doc["0"])
	}
	if doc["1"] != "run" {
		t.Errorf("Expected kind run, got %#v", doc["1"])
	}
	if doc["2"] != 3 {
		t.Errorf("Expected handle 3 in target, got %#v", doc["2"])
	}
	args, ok := doc["3"].([]interface{})
	if !ok || len(args) != 0 {
		t.Errorf("Expected an empty argument list, got %#v", doc["3"])
	}
}

// TestUnknownKind tests that a command of unknown kind is rejected
func TestUnknownKind(t *testing.T) {
	s := NewBSONSerializer()
	if _, err := s.EncodeCommand(&common.Command{Kind: "drop"}); err == nil {
		t.Error("Expected an error for an unknown command kind")
	}
}

// TestReplyRoundTrip tests the payload shapes a server can send
func TestReplyRoundTrip(t *testing.T) {
	s := NewBSONSerializer()

	replies := []*common.Reply{
		{Ticket: 0, Value: nil},
		{Ticket: 1, Value: "table does not exist"},
		{Ticket: 2, Value: 5},
		{Ticket: 3, Value: []interface{}{[]interface{}{42, "a"}, []interface{}{43, "b"}}},
		{Ticket: 1 << 33, Value: []interface{}{[]interface{}{[]interface{}{1, 500}}}},
	}

	for i, reply := range replies {
		data, err := s.EncodeReply(reply)
		if err != nil {
			t.Fatalf("Failed to encode reply %d: %v", i, err)
		}
		got, err := s.DecodeReply(data)
		if err != nil {
			t.Fatalf("Failed to decode reply %d: %v", i, err)
		}
		if got.Ticket != reply.Ticket {
			t.Errorf("Reply %d: ticket %d, expected %d", i, got.Ticket, reply.Ticket)
		}
		if !reflect.DeepEqual(got.Value, reply.Value) {
			t.Errorf("Reply %d: value %#v, expected %#v", i, got.Value, reply.Value)
		}
	}
}

// TestReplyTicketTypes tests that tickets of every numeric BSON type are accepted
func TestReplyTicketTypes(t *testing.T) {
	s := NewBSONSerializer()

	for _, ticket := range []interface{}{int32(9), int64(9), float64(9)} {
		data, err := bson.Marshal(bson.M{"0": ticket, "1": "ok"})
		if err != nil {
			t.Fatalf("Failed to marshal: %v", err)
		}
		reply, err := s.DecodeReply(data)
		if err != nil {
			t.Fatalf("Failed to decode ticket of type %T: %v", ticket, err)
		}
		if reply.Ticket != 9 {
			t.Errorf("Expected ticket 9 for type %T, got %d", ticket, reply.Ticket)
		}
	}
}

// TestReplyWithoutTicket tests that records without a valid ticket are rejected
func TestReplyWithoutTicket(t *testing.T) {
	s := NewBSONSerializer()

	for _, doc := range []bson.M{{"1": "payload"}, {"0": "abc", "1": 1}, {"0": 1.5}} {
		data, err := bson.Marshal(doc)
		if err != nil {
			t.Fatalf("Failed to marshal: %v", err)
		}
		if _, err := s.DecodeReply(data); err == nil {
			t.Errorf("Expected an error for record %v", doc)
		}
	}

	if _, err := s.DecodeReply([]byte{1, 2, 3}); err == nil {
		t.Error("Expected an error for a truncated record")
	}
}
