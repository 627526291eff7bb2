// Package transport defines the interfaces of the layer that moves opentick
// records over a byte stream.
//
// The client side multiplexes many concurrent requests over one connection.
// Every request carries a ticket, the reply of the server carries the same
// ticket and is routed back to the waiting caller regardless of the order in
// which replies arrive.
//
// Key Components:
//
//   - IRPCClientTransport: one connection, its reader loop and ticket routing.
//
//   - IRPCServerTransport: accept loop used by the loopback server.
//
//   - IServerHandler: callback that turns a command into a reply payload.
//
// The shared implementation lives in the base subpackage, the tcp and unix
// subpackages only provide the socket specific parts.
package transport
