package tcp

import (
	"github.com/ValentinKolb/otick/rpc/common"
	"github.com/ValentinKolb/otick/rpc/serializer"
	"github.com/ValentinKolb/otick/rpc/transport"
	"github.com/ValentinKolb/otick/rpc/transport/base"
	"net"
	"time"
)

// clientConnector implements the IClientConnector interface for TCP sockets
type clientConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "tcp"
}

func (c *clientConnector) Connect(config common.ClientTransportConfig) (net.Conn, error) {
	if config.DialTimeoutSecond > 0 {
		return net.DialTimeout("tcp", config.Endpoint, time.Duration(config.DialTimeoutSecond)*time.Second)
	}
	return net.Dial("tcp", config.Endpoint)
}

func (c *clientConnector) UpgradeConnection(conn net.Conn, config common.ClientTransportConfig) error {
	return upgradeConnection(conn, config.SocketConf, config.TCPConf)
}

// --------------------------------------------------------------------------
// Client Transport Factory Method
// --------------------------------------------------------------------------

// NewTCPClientTransport creates a new TCP client transport
func NewTCPClientTransport(s serializer.IRecordSerializer) transport.IRPCClientTransport {
	return base.NewBaseClientTransport(&clientConnector{}, s)
}
