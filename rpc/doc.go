// Package rpc implements the opentick wire protocol: an asynchronous
// request/response protocol where many requests share one connection and
// replies are matched to their requests by ticket.
//
// The package is organized into several subpackages:
//
//   - common: Commands, replies, the timestamp wire rule, configuration
//     structures, connection errors and logging.
//
//   - serializer: Encoding of commands and replies as BSON documents with
//     positional keys.
//
//   - transport: Length-prefixed framing, ticket allocation and reply routing
//     over TCP or Unix sockets.
//
//   - client: The connection API with prepared statement caching and futures.
//
//   - server: An in-memory loopback server used for tests and demos.
package rpc
