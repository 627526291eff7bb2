package serializer

import (
	"fmt"
	"github.com/ValentinKolb/otick/rpc/common"
	"gopkg.in/mgo.v2/bson"
)

// NewBSONSerializer creates a new serializer using the BSON document format
func NewBSONSerializer() IRecordSerializer {
	return &bsonSerializerImpl{}
}

// bsonSerializerImpl implements the IRecordSerializer interface using bson encoding
type bsonSerializerImpl struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRecordSerializer)
// --------------------------------------------------------------------------

func (s *bsonSerializerImpl) EncodeCommand(cmd *common.Command) ([]byte, error) {
	// tickets and handles are encoded as int, so small values use the int32 type
	doc := bson.M{
		KeyTicket: int(cmd.Ticket),
		KeyKind:   string(cmd.Kind),
	}

	switch cmd.Kind {
	case common.CmdUse, common.CmdPrepare:
		doc[KeyTarget] = cmd.Text
	case common.CmdRun:
		if cmd.Prepared {
			doc[KeyTarget] = int(cmd.Handle)
		} else {
			doc[KeyTarget] = cmd.Text
		}
		args := cmd.Args
		if args == nil {
			args = []interface{}{}
		}
		doc[KeyArgs] = args
	default:
		return nil, fmt.Errorf("unknown command kind %q", cmd.Kind)
	}

	return bson.Marshal(doc)
}

func (s *bsonSerializerImpl) DecodeReply(b []byte) (*common.Reply, error) {
	var doc bson.M
	if err := bson.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode reply: %w", err)
	}

	ticket, err := ticketOf(doc)
	if err != nil {
		return nil, err
	}

	return &common.Reply{
		Ticket: ticket,
		Value:  doc[KeyKind],
	}, nil
}

func (s *bsonSerializerImpl) DecodeCommand(b []byte) (*common.Command, error) {
	var doc bson.M
	if err := bson.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode command: %w", err)
	}

	ticket, err := ticketOf(doc)
	if err != nil {
		return nil, err
	}

	kind, ok := doc[KeyKind].(string)
	if !ok {
		return nil, fmt.Errorf("command %d has no kind", ticket)
	}

	cmd := &common.Command{Ticket: ticket, Kind: common.CommandKind(kind)}
	switch target := doc[KeyTarget].(type) {
	case string:
		cmd.Text = target
	default:
		handle, ok := common.ToInt64(target)
		if !ok {
			return nil, fmt.Errorf("command %d has an invalid target of type %T", ticket, target)
		}
		cmd.Handle = handle
		cmd.Prepared = true
	}

	if args, ok := doc[KeyArgs].([]interface{}); ok {
		cmd.Args = args
	}
	return cmd, nil
}

func (s *bsonSerializerImpl) EncodeReply(reply *common.Reply) ([]byte, error) {
	return bson.Marshal(bson.M{
		KeyTicket: int(reply.Ticket),
		KeyKind:   reply.Value,
	})
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func ticketOf(doc bson.M) (int64, error) {
	raw, ok := doc[KeyTicket]
	if !ok {
		return 0, fmt.Errorf("record has no ticket")
	}
	ticket, ok := common.ToInt64(raw)
	if !ok {
		return 0, fmt.Errorf("record has an invalid ticket of type %T", raw)
	}
	return ticket, nil
}
