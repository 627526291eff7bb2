// Package tcp implements the TCP socket transport, the transport spoken by
// opentick servers. It provides the TCP specific implementations of the base
// package's connector interfaces: dialing with a timeout, listening and
// applying the socket options of common.TCPConf and common.SocketConf.
//
// See the base package documentation for framing, ticket routing and the
// lifecycle of a connection.
package tcp
