package unix

import (
	"github.com/ValentinKolb/otick/rpc/common"
	"github.com/ValentinKolb/otick/rpc/serializer"
	"github.com/ValentinKolb/otick/rpc/transport"
	"github.com/ValentinKolb/otick/rpc/transport/base"
	"net"
	"time"
)

// clientConnector implements the IClientConnector interface for Unix sockets
type clientConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "unix"
}

func (c *clientConnector) Connect(config common.ClientTransportConfig) (net.Conn, error) {
	if config.DialTimeoutSecond > 0 {
		return net.DialTimeout("unix", config.Endpoint, time.Duration(config.DialTimeoutSecond)*time.Second)
	}
	return net.Dial("unix", config.Endpoint)
}

func (c *clientConnector) UpgradeConnection(conn net.Conn, config common.ClientTransportConfig) error {
	return upgradeConnection(conn, config.SocketConf)
}

// --------------------------------------------------------------------------
// Client Transport Factory Method
// --------------------------------------------------------------------------

// NewUnixClientTransport creates a new Unix client transport
func NewUnixClientTransport(s serializer.IRecordSerializer) transport.IRPCClientTransport {
	return base.NewBaseClientTransport(&clientConnector{}, s)
}
