package server

import (
	"github.com/ValentinKolb/otick/rpc/common"
	"github.com/ValentinKolb/otick/rpc/transport"
	"net"
)

// nopTransport satisfies transport.IRPCServerTransport for tests that call Handle directly
type nopTransport struct{}

func (n *nopTransport) RegisterHandler(transport.IServerHandler)      {}
func (n *nopTransport) Listen(common.ServerConfig) error              { return nil }
func (n *nopTransport) Serve(net.Listener, common.ServerConfig) error { return nil }
func (n *nopTransport) Addr() net.Addr                                { return nil }
func (n *nopTransport) Close() error                                  { return nil }
