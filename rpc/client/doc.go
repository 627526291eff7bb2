// Package client implements the opentick client session: statement
// dispatch, the prepared statement cache and future based results.
//
// The package focuses on:
//   - Issuing many independent requests concurrently over one connection
//   - Preparing statements with arguments once per connection and running them by handle
//   - Converting timestamps to and from their [seconds, nanoseconds] wire form
//   - Distinguishing server errors from connection failures
//
// Usage Example:
//
//	conn, err := client.Connect("localhost", 1116, "trading")
//	if err != nil {
//	  return err
//	}
//	defer conn.Close()
//
//	// Synchronous
//	_, err = conn.Execute("INSERT INTO bar VALUES(?, ?)", 42, time.Now())
//
//	// Asynchronous, replies may arrive in any order
//	futures := make([]*client.Future, 0, len(symbols))
//	for _, sym := range symbols {
//	  f, err := conn.ExecuteAsync("SELECT * FROM bar WHERE sec=?", sym)
//	  if err != nil {
//	    return err
//	  }
//	  futures = append(futures, f)
//	}
//	for _, f := range futures {
//	  rows, err := f.Rows()
//	  ...
//	}
//
// Errors:
//
//	A *ServerError is returned for a request the server rejected, the
//	connection stays usable. A *common.ConnectionError means the connection is
//	lost for good: every pending and every later request fails with it. There
//	is no reconnect and no retry.
//
// Metrics:
//
//	Commands sent, prepared cache hits and misses, server errors, connection
//	errors and request durations are recorded in the default
//	VictoriaMetrics set (see metrics.WritePrometheus).
//
// Thread Safety:
//
//	IConnection and Future are safe for concurrent use.
package client
