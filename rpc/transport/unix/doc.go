// Package unix implements a Unix domain socket transport. opentick servers
// only listen on TCP, the Unix transport is meant for the loopback server and
// for local proxies.
package unix
