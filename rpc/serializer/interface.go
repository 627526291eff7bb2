package serializer

import "github.com/ValentinKolb/otick/rpc/common"

// Positional keys of the wire record
const (
	KeyTicket = "0"
	KeyKind   = "1" // command kind (requests) or payload (replies)
	KeyTarget = "2"
	KeyArgs   = "3"
)

// IRecordSerializer is the interface for all wire record serializers.
// The client uses EncodeCommand and DecodeReply, the server the other two.
type IRecordSerializer interface {
	// EncodeCommand encodes a command into a record
	EncodeCommand(cmd *common.Command) ([]byte, error)
	// DecodeReply decodes a record into a reply.
	// A record without a ticket is an error.
	DecodeReply(b []byte) (*common.Reply, error)
	// DecodeCommand decodes a record sent by a client
	DecodeCommand(b []byte) (*common.Command, error)
	// EncodeReply encodes a reply into a record
	EncodeReply(reply *common.Reply) ([]byte, error)
}
