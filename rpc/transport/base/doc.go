// Package base implements the wire protocol shared by all transports,
// independent of the specific network medium (TCP, Unix sockets).
//
// Frame format:
//
//	[4 bytes: record length, uint32 little endian][N bytes: encoded record]
//
// Key Components:
//
//   - IClientConnector/IServerConnector: Interfaces for protocol-specific operations
//     that allow extending the base transport with different network protocols.
//
//   - clientTransport: Owns one connection. Send assigns a ticket from an atomic
//     counter, registers a one-shot reply channel and writes the frame while
//     holding the write lock. A dedicated reader goroutine started by Connect
//     reads frames, decodes the ticket and fulfills the matching channel.
//
//   - pendingRegistry: Ticket to channel map. Every channel is fulfilled exactly
//     once, with its reply or with the fatal error of the connection.
//
//   - serverTransport: Accepts connections and runs commands on a bounded number
//     of workers per connection. Replies are written as soon as they are ready,
//     so they may leave in a different order than the commands arrived.
//
// Failure Model:
//
//	Any read error, a closed stream, an undecodable record or a failed write is
//	fatal for the connection. The first fatal error is stored and delivered to
//	every pending request and to every request sent afterwards. There is no
//	reconnect, a new connection has to be created by the caller.
//
// Thread Safety:
//
//	Send may be called from any number of goroutines. Close shuts the socket
//	down and waits for the reader goroutine to exit.
package base
