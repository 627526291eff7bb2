package transport

import (
	"github.com/ValentinKolb/otick/rpc/common"
	"net"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// IServerHandler handles the commands received by a server transport.
// Handle is called concurrently, connID identifies the client connection.
type IServerHandler interface {
	// Handle processes a command and returns the reply payload
	Handle(connID uint64, cmd *common.Command) interface{}
	// Disconnect is called once after a client connection was closed
	Disconnect(connID uint64)
}

// IRPCServerTransport is the interface for the server side of the wire protocol
type IRPCServerTransport interface {
	// RegisterHandler registers the handler for all connections
	RegisterHandler(handler IServerHandler)
	// Listen creates a listener for config and serves it until Close is called
	Listen(config common.ServerConfig) error
	// Serve accepts connections on an existing listener until Close is called.
	// The socket settings of config are applied to every accepted connection.
	Serve(listener net.Listener, config common.ServerConfig) error
	// Addr returns the address of the listener, nil if not listening
	Addr() net.Addr
	// Close stops accepting connections and closes all client connections
	Close() error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport.
// One transport owns exactly one connection.
type IRPCClientTransport interface {
	// Connect dials the server and starts the reader loop of the connection
	Connect(config common.ClientConfig) error
	// Send assigns a fresh ticket to cmd and writes it to the connection.
	// The returned channel receives exactly one result for that ticket.
	Send(cmd *common.Command) (<-chan common.Result, error)
	// Close shuts the connection down and waits for the reader loop to exit.
	// Every pending request fails with common.ErrConnectionClosed.
	Close() error
}
