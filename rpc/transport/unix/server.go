package unix

import (
	"fmt"
	"github.com/ValentinKolb/otick/rpc/common"
	"github.com/ValentinKolb/otick/rpc/serializer"
	"github.com/ValentinKolb/otick/rpc/transport"
	"github.com/ValentinKolb/otick/rpc/transport/base"
	"net"
	"os"
)

// serverConnector implements the IServerConnector interface for Unix sockets
type serverConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "unix"
}

func (c *serverConnector) Listen(config common.ServerTransportConfig) (net.Listener, error) {
	socketPath := config.Endpoint

	// Remove existing socket file if it exists
	if err := os.RemoveAll(socketPath); err != nil {
		return nil, fmt.Errorf("failed to remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create Unix socket: %w", err)
	}
	return listener, nil
}

func (c *serverConnector) UpgradeConnection(conn net.Conn, config common.ServerTransportConfig) error {
	return upgradeConnection(conn, config.SocketConf)
}

// --------------------------------------------------------------------------
// Server Transport Factory Method
// --------------------------------------------------------------------------

// NewUnixServerTransport creates a new Unix server transport
func NewUnixServerTransport(s serializer.IRecordSerializer, maxWorkersPerConn int) transport.IRPCServerTransport {
	return base.NewBaseServerTransport(&serverConnector{}, s, maxWorkersPerConn)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// upgradeConnection applies the buffer sizes to a Unix socket connection
func upgradeConnection(conn net.Conn, socketConf common.SocketConf) error {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return nil
	}

	if socketConf.WriteBufferSize > 0 {
		if err := unixConn.SetWriteBuffer(socketConf.WriteBufferSize); err != nil {
			return err
		}
	}

	if socketConf.ReadBufferSize > 0 {
		if err := unixConn.SetReadBuffer(socketConf.ReadBufferSize); err != nil {
			return err
		}
	}
	return nil
}
