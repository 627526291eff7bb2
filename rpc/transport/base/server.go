package base

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/otick/rpc/common"
	"github.com/ValentinKolb/otick/rpc/serializer"
	"github.com/ValentinKolb/otick/rpc/transport"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerTransportConfig) (net.Listener, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an accepted connection
	UpgradeConnection(conn net.Conn, config common.ServerTransportConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport implements the core server transport functionality
type serverTransport struct {
	connector         IServerConnector
	serializer        serializer.IRecordSerializer
	handler           transport.IServerHandler
	config            common.ServerConfig
	maxWorkersPerConn int

	mu       sync.Mutex
	listener net.Listener
	conns    map[uint64]net.Conn
	closed   bool
	wg       sync.WaitGroup

	nextConnID atomic.Uint64
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport with per-connection worker pool
func NewBaseServerTransport(connector IServerConnector, s serializer.IRecordSerializer, maxWorkersPerConn int) transport.IRPCServerTransport {

	// minimum one worker per connection
	if maxWorkersPerConn < 1 {
		maxWorkersPerConn = 1
	}

	return &serverTransport{
		connector:         connector,
		serializer:        s,
		maxWorkersPerConn: maxWorkersPerConn,
		conns:             make(map[uint64]net.Conn),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.IServerHandler) {
	t.handler = handler
}

func (t *serverTransport) Listen(config common.ServerConfig) error {
	// Create listener using the connector
	listener, err := t.connector.Listen(config.Transport)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	return t.Serve(listener, config)
}

func (t *serverTransport) Serve(listener net.Listener, config common.ServerConfig) error {
	if t.handler == nil {
		listener.Close()
		return fmt.Errorf("no handler registered")
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		listener.Close()
		return net.ErrClosed
	}
	t.listener = listener
	t.config = config
	t.mu.Unlock()

	Logger.Infof("Starting %s server on %s with %d workers per connection",
		t.connector.GetName(), listener.Addr(), t.maxWorkersPerConn)

	// Accept connections
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			if isTimeout(err) {
				Logger.Warningf("Accept error: %v", err)
				time.Sleep(10 * time.Millisecond)
				continue
			}
			return fmt.Errorf("accept failed: %w", err)
		}

		if err := t.connector.UpgradeConnection(conn, t.config.Transport); err != nil {
			Logger.Errorf("Failed to upgrade connection from %s: %v", conn.RemoteAddr(), err)
			conn.Close()
			continue
		}

		connID, ok := t.track(conn)
		if !ok {
			conn.Close()
			return nil
		}

		// Handle the connection in a goroutine
		go t.handleConnection(connID, conn)
	}
}

func (t *serverTransport) Addr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

func (t *serverTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true

	var err error
	if t.listener != nil {
		err = t.listener.Close()
	}
	for _, conn := range t.conns {
		conn.Close()
	}
	t.mu.Unlock()

	// Wait for all connection handlers to finish
	t.wg.Wait()
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// track registers an accepted connection, it returns false if the server is closed
func (t *serverTransport) track(conn net.Conn) (uint64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, false
	}
	connID := t.nextConnID.Add(1)
	t.conns[connID] = conn
	t.wg.Add(1)
	return connID, true
}

// handleConnection handles incoming commands for one connection
func (t *serverTransport) handleConnection(connID uint64, conn net.Conn) {
	defer func() {
		t.mu.Lock()
		delete(t.conns, connID)
		t.mu.Unlock()
		conn.Close()
		t.handler.Disconnect(connID)
		t.wg.Done()
	}()

	// The buffered channel acts as a counting semaphore for the workers of this connection
	workerSemaphore := make(chan struct{}, t.maxWorkersPerConn)

	// Create a wait group to wait for all workers to finish
	var wg sync.WaitGroup

	// Create a mutex to protect writes to the connection
	var connMutex sync.Mutex

	// Handler function that processes commands in worker goroutines
	handleCommand := func(cmd *common.Command) {
		defer func() {
			<-workerSemaphore // Release semaphore slot
			wg.Done()
		}()

		start := time.Now()
		value := t.handler.Handle(connID, cmd)
		Logger.Debugf("Processed command %s on connection %d took %s", cmd, connID, time.Since(start))

		data, err := t.serializer.EncodeReply(&common.Reply{Ticket: cmd.Ticket, Value: value})
		if err != nil {
			Logger.Errorf("Failed to encode reply for ticket %d: %v", cmd.Ticket, err)
			data, err = t.serializer.EncodeReply(&common.Reply{
				Ticket: cmd.Ticket,
				Value:  fmt.Sprintf("failed to encode reply: %v", err),
			})
			if err != nil {
				return
			}
		}

		// Protect writes to the connection with a mutex
		connMutex.Lock()
		defer connMutex.Unlock()

		if err := writeFrame(conn, data); err != nil {
			Logger.Errorf("Failed to write reply: %v", err)
		}
	}

	// Handle commands in a loop
	for {
		data, err := readFrame(conn, t.config.Transport.FrameLimit())

		// Case EOF: Connection closed by client
		if err == io.EOF {
			Logger.Infof("Connection %d closed by client", connID)
			break
		}

		// Case error: log and close connection
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				Logger.Errorf("Error reading command on connection %d: %v", connID, err)
			}
			break
		}

		cmd, err := t.serializer.DecodeCommand(data)
		if err != nil {
			Logger.Errorf("Dropping connection %d: %v", connID, err)
			break
		}

		// Acquire a slot in the semaphore (blocks if maxWorkersPerConn is reached)
		workerSemaphore <- struct{}{}
		wg.Add(1)
		go handleCommand(cmd)
	}

	// Wait for all workers to finish before closing the connection
	wg.Wait()
}
