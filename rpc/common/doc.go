// Package common provides the types shared by the client, the server and
// the transports.
//
// Key Components:
//
//   - Command: An outgoing request (use, prepare or run) with its ticket.
//     Factory functions create the valid combinations of fields.
//
//   - Reply and Result: A decoded incoming record and what a waiter receives
//     for its ticket, either a reply or the fatal error of the connection.
//
//   - EncodeTime, DecodeTime, NormalizeArgs, DecodeRows: The timestamp wire
//     rule. Timestamps travel as [seconds, nanoseconds] pairs and are decoded
//     with microsecond precision.
//
//   - ConnectionError: The fatal error of a connection. ErrConnectionClosed
//     marks a connection closed by the caller.
//
//   - ClientConfig, ServerConfig: Connection and socket settings.
//
//   - Logger: A dragonboat logger.ILogger implementation with consistent
//     formatting, installed with InitLoggers.
package common
