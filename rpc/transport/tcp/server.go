package tcp

import (
	"fmt"
	"github.com/ValentinKolb/otick/rpc/common"
	"github.com/ValentinKolb/otick/rpc/serializer"
	"github.com/ValentinKolb/otick/rpc/transport"
	"github.com/ValentinKolb/otick/rpc/transport/base"
	"net"
	"time"
)

// serverConnector implements the IServerConnector interface for TCP sockets
type serverConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "tcp"
}

func (c *serverConnector) Listen(config common.ServerTransportConfig) (net.Listener, error) {
	listener, err := net.Listen("tcp", config.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create TCP socket: %w", err)
	}
	return listener, nil
}

func (c *serverConnector) UpgradeConnection(conn net.Conn, config common.ServerTransportConfig) error {
	return upgradeConnection(conn, config.SocketConf, config.TCPConf)
}

// --------------------------------------------------------------------------
// Server Transport Factory Method
// --------------------------------------------------------------------------

// NewTCPServerTransport creates a new TCP server transport
func NewTCPServerTransport(s serializer.IRecordSerializer, maxWorkersPerConn int) transport.IRPCServerTransport {
	return base.NewBaseServerTransport(&serverConnector{}, s, maxWorkersPerConn)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// upgradeConnection applies the socket settings to a TCP connection
func upgradeConnection(conn net.Conn, socketConf common.SocketConf, tcpConf common.TCPConf) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil // Not a TCP connection, nothing to upgrade
	}

	// Disable Nagle's algorithm (TCPNoDelay) if configured
	if err := tcpConn.SetNoDelay(tcpConf.TCPNoDelay); err != nil {
		return err
	}

	if socketConf.WriteBufferSize > 0 {
		if err := tcpConn.SetWriteBuffer(socketConf.WriteBufferSize); err != nil {
			return err
		}
	}

	if socketConf.ReadBufferSize > 0 {
		if err := tcpConn.SetReadBuffer(socketConf.ReadBufferSize); err != nil {
			return err
		}
	}

	if tcpConf.TCPKeepAliveSec > 0 {
		if err := tcpConn.SetKeepAlive(true); err != nil {
			return err
		}
		keepAlivePeriod := time.Duration(tcpConf.TCPKeepAliveSec) * time.Second
		if err := tcpConn.SetKeepAlivePeriod(keepAlivePeriod); err != nil {
			return err
		}
	}

	if tcpConf.TCPLingerSec > 0 {
		if err := tcpConn.SetLinger(tcpConf.TCPLingerSec); err != nil {
			return err
		}
	}

	return nil
}
