package client

import (
	"fmt"
	"github.com/ValentinKolb/otick/rpc/common"
	"github.com/ValentinKolb/otick/rpc/serializer"
	"github.com/ValentinKolb/otick/rpc/transport"
	"github.com/ValentinKolb/otick/rpc/transport/tcp"
	"github.com/lni/dragonboat/v4/logger"
	"golang.org/x/sync/singleflight"
	"net"
	"strconv"
	"sync"
	"time"
)

var (
	Logger = logger.GetLogger("rpc")
)

// IConnection is a session with an opentick server over a single connection.
// Independent requests may be issued concurrently from any number of goroutines,
// their replies are matched by ticket and may arrive in any order.
type IConnection interface {
	// Execute runs sql and waits for the result, see Future.Get
	Execute(sql string, args ...interface{}) (interface{}, error)
	// ExecuteAsync sends sql and returns a future for its result.
	// If args are given the statement is prepared once per connection and run by handle.
	ExecuteAsync(sql string, args ...interface{}) (*Future, error)
	// Query runs sql and returns its rows, see Future.Rows
	Query(sql string, args ...interface{}) ([][]interface{}, error)
	// Use selects the database of the session
	Use(dbName string) error
	// Close shuts the connection down. Pending requests fail with common.ErrConnectionClosed.
	Close() error
}

// Connect dials an opentick server over TCP and selects dbName if it is not empty
func Connect(host string, port int, dbName string) (IConnection, error) {
	config := common.DefaultClientConfig(net.JoinHostPort(host, strconv.Itoa(port)), dbName)
	return NewConnection(config, tcp.NewTCPClientTransport(serializer.NewBSONSerializer()))
}

// NewConnection connects the transport and returns the session on top of it.
// If config.Database is set it is selected before returning, a failure closes the connection.
func NewConnection(config common.ClientConfig, transport transport.IRPCClientTransport) (IConnection, error) {

	// Connect the transport
	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	c := &connection{
		config:    config,
		transport: transport,
		prepared:  make(map[string]int64),
	}

	if config.Database != "" {
		if err := c.Use(config.Database); err != nil {
			c.Close()
			return nil, err
		}
	}

	return c, nil
}

type connection struct {
	config    common.ClientConfig
	transport transport.IRPCClientTransport

	// prepared maps statement text to the handle assigned by the server
	preparedMu sync.RWMutex
	prepared   map[string]int64

	// prepareGroup collapses concurrent first uses of the same statement into one prepare
	prepareGroup singleflight.Group
}

// --------------------------------------------------------------------------
// Interface Methods (docu see IConnection)
// --------------------------------------------------------------------------

func (c *connection) Execute(sql string, args ...interface{}) (interface{}, error) {
	fut, err := c.ExecuteAsync(sql, args...)
	if err != nil {
		return nil, err
	}
	return fut.Get()
}

func (c *connection) ExecuteAsync(sql string, args ...interface{}) (*Future, error) {
	var cmd *common.Command

	if len(args) > 0 {
		handle, err := c.prepare(sql)
		if err != nil {
			return nil, err
		}
		cmd = common.NewPreparedRunCommand(sql, handle, common.NormalizeArgs(args))
	} else {
		cmd = common.NewRunCommand(sql, nil)
	}

	return c.send(cmd)
}

func (c *connection) Query(sql string, args ...interface{}) ([][]interface{}, error) {
	fut, err := c.ExecuteAsync(sql, args...)
	if err != nil {
		return nil, err
	}
	return fut.Rows()
}

func (c *connection) Use(dbName string) error {
	fut, err := c.send(common.NewUseCommand(dbName))
	if err != nil {
		return err
	}
	if _, err := fut.Get(); err != nil {
		return fmt.Errorf("failed to use database %s: %w", dbName, err)
	}
	Logger.Debugf("Using database %s", dbName)
	return nil
}

func (c *connection) Close() error {
	return c.transport.Close()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// send writes cmd and wraps the reply channel in a future
func (c *connection) send(cmd *common.Command) (*Future, error) {
	start := time.Now()
	ch, err := c.transport.Send(cmd)
	if err != nil {
		recordFatal(err)
		return nil, err
	}
	recordSent(cmd.Kind)
	return newFuture(cmd.Ticket, cmd.Kind, ch, start), nil
}

// prepare returns the handle of sql, preparing it on the server on first use
func (c *connection) prepare(sql string) (int64, error) {
	if handle, ok := c.cachedHandle(sql); ok {
		preparedHits.Inc()
		return handle, nil
	}

	v, err, _ := c.prepareGroup.Do(sql, func() (interface{}, error) {
		// a concurrent caller may have finished preparing after our cache miss
		if handle, ok := c.cachedHandle(sql); ok {
			return handle, nil
		}

		preparedMisses.Inc()
		fut, err := c.send(common.NewPrepareCommand(sql))
		if err != nil {
			return nil, err
		}
		value, err := fut.Get()
		if err != nil {
			return nil, fmt.Errorf("failed to prepare %q: %w", sql, err)
		}

		handle, ok := common.ToInt64(value)
		if !ok {
			return nil, fmt.Errorf("failed to prepare %q: unexpected reply of type %T", sql, value)
		}

		c.preparedMu.Lock()
		c.prepared[sql] = handle
		c.preparedMu.Unlock()

		Logger.Debugf("Prepared %q as handle %d", sql, handle)
		return handle, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

// cachedHandle looks sql up in the prepared statement cache
func (c *connection) cachedHandle(sql string) (int64, bool) {
	c.preparedMu.RLock()
	defer c.preparedMu.RUnlock()
	handle, ok := c.prepared[sql]
	return handle, ok
}
