package client

import (
	"bytes"
	"errors"
	"fmt"
	"github.com/ValentinKolb/otick/rpc/common"
	"github.com/ValentinKolb/otick/rpc/serializer"
	"github.com/ValentinKolb/otick/rpc/server"
	"github.com/ValentinKolb/otick/rpc/transport/tcp"
	"github.com/VictoriaMetrics/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// --------------------------------------------------------------------------
// Test Helpers
// --------------------------------------------------------------------------

// scrapeCounter reads the value of a counter from the Prometheus text dump
func scrapeCounter(t *testing.T, name string) uint64 {
	t.Helper()

	var buf bytes.Buffer
	metrics.WritePrometheus(&buf, false)
	for _, line := range strings.Split(buf.String(), "\n") {
		if v, ok := strings.CutPrefix(line, name+" "); ok {
			n, err := strconv.ParseUint(v, 10, 64)
			require.NoError(t, err)
			return n
		}
	}
	return 0
}

// startServer runs a loopback server with the database "trading" on a random port
func startServer(t *testing.T) (*net.TCPAddr, *server.RPCServer) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := server.NewRPCServer(
		common.ServerConfig{
			Transport:      common.ServerTransportConfig{TCPConf: common.TCPConf{TCPNoDelay: true}},
			Databases:      []string{"trading"},
			WorkersPerConn: 8,
		},
		tcp.NewTCPServerTransport(serializer.NewBSONSerializer(), 8),
	)

	done := make(chan error, 1)
	go func() {
		done <- srv.ServeListener(listener)
	}()

	t.Cleanup(func() {
		assert.NoError(t, srv.Close())
		assert.NoError(t, <-done)
	})

	return listener.Addr().(*net.TCPAddr), srv
}

// connect opens a connection to addr, closed at the end of the test
func connect(t *testing.T, addr *net.TCPAddr, dbName string) IConnection {
	t.Helper()

	conn, err := Connect(addr.IP.String(), addr.Port, dbName)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// countPrepares counts the prepare commands received by srv per statement text
func countPrepares(srv *server.RPCServer) func(sql string) int {
	var mu sync.Mutex
	counts := make(map[string]int)
	srv.OnCommand(func(_ uint64, cmd *common.Command) {
		if cmd.Kind == common.CmdPrepare {
			mu.Lock()
			counts[cmd.Text]++
			mu.Unlock()
		}
	})
	return func(sql string) int {
		mu.Lock()
		defer mu.Unlock()
		return counts[sql]
	}
}

// silentServer accepts one connection and reads from it without ever replying.
// It closes the connection once a frame was received if hangUp is set.
func silentServer(t *testing.T, hangUp bool) *net.TCPAddr {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		buf := make([]byte, 1024)
		if hangUp {
			_, _ = conn.Read(buf)
			return
		}
		_, _ = io.Copy(io.Discard, conn)
	}()

	t.Cleanup(func() {
		listener.Close()
		wg.Wait()
	})
	return listener.Addr().(*net.TCPAddr)
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestInsertAndSelect(t *testing.T) {
	addr, _ := startServer(t)
	conn := connect(t, addr, "trading")

	_, err := conn.Execute("CREATE TABLE t (x int)")
	require.NoError(t, err)

	_, err = conn.Execute("INSERT INTO t VALUES(?)", 42)
	require.NoError(t, err)

	rows, err := conn.Query("SELECT * FROM t")
	require.NoError(t, err)
	assert.Equal(t, [][]interface{}{{42}}, rows)
}

func TestServerError(t *testing.T) {
	addr, _ := startServer(t)
	conn := connect(t, addr, "trading")

	_, err := conn.Execute("SELECT * FROM missing_table")

	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, "table does not exist: missing_table", err.Error())

	// the connection stays usable after a server error
	value, err := conn.Execute("SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{[]interface{}{int64(1)}}, value)
}

func TestConcurrentRequests(t *testing.T) {
	addr, _ := startServer(t)
	conn := connect(t, addr, "")

	const n = 200
	futures := make([]*Future, n)
	for i := 0; i < n; i++ {
		fut, err := conn.ExecuteAsync("SELECT ?", i)
		require.NoError(t, err)
		futures[i] = fut
	}

	// wait in reverse order, replies may arrive in any order anyway
	for i := n - 1; i >= 0; i-- {
		rows, err := futures[i].Rows()
		require.NoError(t, err)
		assert.Equal(t, [][]interface{}{{i}}, rows, "ticket %d", futures[i].Ticket())
	}
}

func TestConcurrentGoroutines(t *testing.T) {
	addr, _ := startServer(t)
	conn := connect(t, addr, "")

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for g := 0; g < 50; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				want := fmt.Sprintf("%d-%d", g, i)
				rows, err := conn.Query("SELECT ?", want)
				if err != nil {
					errs <- err
					return
				}
				if len(rows) != 1 || rows[0][0] != want {
					errs <- fmt.Errorf("expected %s, got %v", want, rows)
					return
				}
			}
		}(g)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestPrepareOnce(t *testing.T) {
	addr, srv := startServer(t)
	prepares := countPrepares(srv)
	conn := connect(t, addr, "")

	hits := scrapeCounter(t, `otick_prepared_cache_total{result="hit"}`)
	misses := scrapeCounter(t, `otick_prepared_cache_total{result="miss"}`)
	for i := 0; i < 10; i++ {
		_, err := conn.Execute("SELECT ?", i)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, prepares("SELECT ?"))
	assert.Equal(t, hits+9, scrapeCounter(t, `otick_prepared_cache_total{result="hit"}`))
	assert.Equal(t, misses+1, scrapeCounter(t, `otick_prepared_cache_total{result="miss"}`))

	// statements without arguments are never prepared
	_, err := conn.Execute("SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, 0, prepares("SELECT 1"))
}

func TestPrepareOnceConcurrent(t *testing.T) {
	addr, srv := startServer(t)
	prepares := countPrepares(srv)
	conn := connect(t, addr, "")

	var wg sync.WaitGroup
	var failed atomic.Int32
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := conn.Execute("SELECT ?, ?", i, i); err != nil {
				failed.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Zero(t, failed.Load())
	assert.Equal(t, 1, prepares("SELECT ?, ?"))
}

func TestPrepareErrorNotCached(t *testing.T) {
	addr, srv := startServer(t)
	prepares := countPrepares(srv)
	conn := connect(t, addr, "")

	for i := 0; i < 2; i++ {
		_, err := conn.Execute("UPDATE t SET x = ?", 1)
		var serverErr *ServerError
		assert.ErrorAs(t, err, &serverErr)
	}
	assert.Equal(t, 2, prepares("UPDATE t SET x = ?"))
}

func TestTimestampRoundTrip(t *testing.T) {
	addr, _ := startServer(t)
	conn := connect(t, addr, "trading")

	_, err := conn.Execute("CREATE TABLE bar (sec int, tm timestamp)")
	require.NoError(t, err)

	ts := time.Date(2026, 10, 17, 14, 30, 15, 123456789, time.Local)
	_, err = conn.Execute("INSERT INTO bar VALUES(?, ?)", 1, ts)
	require.NoError(t, err)

	rows, err := conn.Query("SELECT * FROM bar")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	got, ok := rows[0][1].(time.Time)
	require.True(t, ok, "expected time.Time, got %T", rows[0][1])
	assert.True(t, got.Equal(ts.Truncate(time.Microsecond)), "expected %v, got %v", ts, got)
	assert.Equal(t, 1, rows[0][0])
}

func TestUseMissingDatabase(t *testing.T) {
	addr, _ := startServer(t)

	_, err := Connect(addr.IP.String(), addr.Port, "nope")

	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, "database does not exist: nope", serverErr.Message)
}

func TestFutureGetIdempotent(t *testing.T) {
	addr, _ := startServer(t)
	conn := connect(t, addr, "")

	fut, err := conn.ExecuteAsync("SELECT 'a'")
	require.NoError(t, err)

	first, err := fut.Get()
	require.NoError(t, err)
	second, err := fut.Get()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestScalarReplyIsNotRows(t *testing.T) {
	addr, _ := startServer(t)
	conn := connect(t, addr, "")

	fut, err := conn.(*connection).send(common.NewPrepareCommand("SELECT ?"))
	require.NoError(t, err)

	_, err = fut.Rows()
	assert.Error(t, err)

	// acknowledgments carry no rows
	rows, err := conn.Query("CREATE DATABASE scratch")
	require.NoError(t, err)
	assert.Nil(t, rows)
}

func TestServerHangUp(t *testing.T) {
	addr := silentServer(t, true)

	conn, err := Connect(addr.IP.String(), addr.Port, "")
	require.NoError(t, err)
	defer conn.Close()

	fut, err := conn.ExecuteAsync("SELECT 1")
	require.NoError(t, err)

	_, err = fut.Get()
	var connErr *common.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "read", connErr.Op)

	// the connection is dead, later requests fail immediately
	_, err = conn.Execute("SELECT 2")
	assert.ErrorAs(t, err, &connErr)
}

func TestCloseFailsPending(t *testing.T) {
	addr := silentServer(t, false)

	conn, err := Connect(addr.IP.String(), addr.Port, "")
	require.NoError(t, err)

	futures := make([]*Future, 5)
	for i := range futures {
		futures[i], err = conn.ExecuteAsync("SELECT 1")
		require.NoError(t, err)
	}

	require.NoError(t, conn.Close())

	for _, fut := range futures {
		_, err := fut.Get()
		assert.True(t, errors.Is(err, common.ErrConnectionClosed), "unexpected error %v", err)
	}

	_, err = conn.ExecuteAsync("SELECT 1")
	assert.ErrorIs(t, err, common.ErrConnectionClosed)
}

func TestConnectRefused(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().(*net.TCPAddr)
	listener.Close()

	_, err = Connect(addr.IP.String(), addr.Port, "")
	assert.Error(t, err)
}
