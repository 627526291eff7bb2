package base

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/otick/rpc/common"
	"github.com/ValentinKolb/otick/rpc/serializer"
	"github.com/ValentinKolb/otick/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"net"
	"sync"
	"sync/atomic"
)

var Logger = logger.GetLogger("transport/rpc")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection based on the provided configuration
	Connect(config common.ClientTransportConfig) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientTransportConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// clientTransport implements the core client transport functionality
// independent of the specific transport medium (unix, tcp, etc.)
type clientTransport struct {
	connector  IClientConnector
	serializer serializer.IRecordSerializer
	config     common.ClientConfig

	conn       net.Conn
	connMu     sync.Mutex // Protects writes to the connection
	registry   *pendingRegistry
	nextTicket atomic.Int64 // Atomic counter for unique tickets

	closing   atomic.Bool   // Set by Close before the socket is shut down
	closeOnce sync.Once     // Close is idempotent
	done      chan struct{} // Closed when the reader goroutine returned
}

// errClosed is the fatal error of a connection closed by Close
var errClosed = &common.ConnectionError{Op: "close", Err: common.ErrConnectionClosed}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector and serializer
func NewBaseClientTransport(connector IClientConnector, s serializer.IRecordSerializer) transport.IRPCClientTransport {
	return &clientTransport{
		connector:  connector,
		serializer: s,
		registry:   newPendingRegistry(),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if t.conn != nil {
		return fmt.Errorf("transport is already connected to %s", t.config.Transport.Endpoint)
	}
	if config.Transport.Endpoint == "" {
		return fmt.Errorf("no endpoint provided")
	}
	t.config = config

	conn, err := t.connector.Connect(config.Transport)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", config.Transport.Endpoint, err)
	}

	// Upgrade the connection with protocol-specific settings
	if err := t.connector.UpgradeConnection(conn, config.Transport); err != nil {
		conn.Close()
		return fmt.Errorf("failed to upgrade connection to %s: %w", config.Transport.Endpoint, err)
	}

	t.conn = conn
	t.done = make(chan struct{})

	// Start the reader loop, it runs until the connection dies
	go t.readReplies()

	Logger.Infof("Connected to %s using %s transport", config.Transport.Endpoint, t.connector.GetName())
	return nil
}

func (t *clientTransport) Send(cmd *common.Command) (<-chan common.Result, error) {
	if t.conn == nil {
		return nil, fmt.Errorf("transport is not connected")
	}
	if err := t.registry.err(); err != nil {
		return nil, err
	}

	cmd.Ticket = t.nextTicket.Add(1) - 1

	data, err := t.serializer.EncodeCommand(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to encode command %s: %w", cmd, err)
	}

	// Register before writing, the reply may arrive before writeFrame returns
	ch := t.registry.register(cmd.Ticket)

	// Lock the connection only for writing
	t.connMu.Lock()
	err = writeFrame(t.conn, data)
	t.connMu.Unlock()

	if err != nil {
		t.registry.unregister(cmd.Ticket)

		// a partially written frame corrupts the stream, the connection is lost
		var fatal error = &common.ConnectionError{Op: "write", Err: err}
		if t.closing.Load() {
			fatal = errClosed
		}
		t.shutdown(fatal)
		return nil, fatal
	}

	Logger.Debugf("Sent command %s", cmd)
	return ch, nil
}

func (t *clientTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.closing.Store(true)
		if t.conn == nil {
			return
		}

		// fail pending requests first so they observe the close, not the read error it causes
		t.registry.fail(errClosed)
		err = t.conn.Close()
		<-t.done

		Logger.Infof("Closed connection to %s", t.config.Transport.Endpoint)
	})
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// shutdown makes err the fatal error of the connection and closes the socket
func (t *clientTransport) shutdown(err error) {
	if n := t.registry.size(); t.registry.fail(err) {
		if !t.closing.Load() {
			Logger.Errorf("Connection to %s lost, failing %d pending requests: %v", t.config.Transport.Endpoint, n, err)
		}
	}
	t.conn.Close()
}

// readReplies reads replies in a loop and routes them to the waiting requests
func (t *clientTransport) readReplies() {
	defer close(t.done)

	for {
		data, err := readFrame(t.conn, t.config.Transport.FrameLimit())
		if err != nil {
			if errors.Is(err, io.EOF) {
				Logger.Infof("Connection closed by %s", t.config.Transport.Endpoint)
			}
			t.shutdown(&common.ConnectionError{Op: "read", Err: err})
			return
		}

		reply, err := t.serializer.DecodeReply(data)
		if err != nil {
			// without a ticket the reply can't be routed, the stream can't be trusted anymore
			t.shutdown(&common.ConnectionError{Op: "decode", Err: err})
			return
		}

		if !t.registry.deliver(reply) {
			Logger.Warningf("Received reply for unknown ticket %d", reply.Ticket)
		}
	}
}
