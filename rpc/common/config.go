package common

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Socket configuration (shared by client and server)
// --------------------------------------------------------------------------

// DefaultMaxFrameSize is the frame size limit used if SocketConf.MaxFrameSize is not set
const DefaultMaxFrameSize = 64 << 20

// SocketConf holds settings applied to every socket
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
	// MaxFrameSize is the largest record accepted from the peer, 0 means DefaultMaxFrameSize.
	// A larger length prefix is fatal for the connection.
	MaxFrameSize int
}

// FrameLimit returns the effective maximum frame size
func (c SocketConf) FrameLimit() int {
	if c.MaxFrameSize <= 0 {
		return DefaultMaxFrameSize
	}
	return c.MaxFrameSize
}

// TCPConf holds TCP specific socket settings
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
	// TCPLingerSec <= 0 keeps the OS default
	TCPLingerSec int
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientTransportConfig struct {
	// Endpoint is the address of the server (host:port for tcp, a path for unix)
	Endpoint          string
	DialTimeoutSecond int
	SocketConf
	TCPConf
}

type ClientConfig struct {
	// Database is selected with a "use" command right after connecting, if set
	Database  string
	Transport ClientTransportConfig
}

// DefaultClientConfig returns the configuration used by Connect
func DefaultClientConfig(endpoint, database string) ClientConfig {
	return ClientConfig{
		Database: database,
		Transport: ClientTransportConfig{
			Endpoint:          endpoint,
			DialTimeoutSecond: 10,
			TCPConf: TCPConf{
				TCPNoDelay: true,
			},
		},
	}
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Database", orNone(c.Database))
	addField("Dial Timeout", fmt.Sprintf("%d sec", c.Transport.DialTimeoutSecond))

	addSection("Socket")
	addField("TCP NoDelay", strconv.FormatBool(c.Transport.TCPNoDelay))
	addField("TCP KeepAlive", fmt.Sprintf("%d sec", c.Transport.TCPKeepAliveSec))
	addField("TCP Linger", fmt.Sprintf("%d sec", c.Transport.TCPLingerSec))
	addField("Write Buffer", fmt.Sprintf("%d bytes", c.Transport.WriteBufferSize))
	addField("Read Buffer", fmt.Sprintf("%d bytes", c.Transport.ReadBufferSize))
	addField("Max Frame Size", fmt.Sprintf("%d bytes", c.Transport.FrameLimit()))

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

type ServerTransportConfig struct {
	Endpoint string
	SocketConf
	TCPConf
}

// ServerConfig configures the loopback server
type ServerConfig struct {
	Transport ServerTransportConfig

	// WorkersPerConn bounds the number of commands processed concurrently per connection
	WorkersPerConn int

	// Databases are created on startup
	Databases []string

	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("RPC Server")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Workers Per Conn", strconv.Itoa(c.WorkersPerConn))
	addField("Max Frame Size", fmt.Sprintf("%d bytes", c.Transport.FrameLimit()))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	addSection("Databases")
	for i, db := range c.Databases {
		addField(strconv.Itoa(i), db)
	}
	return sb.String()
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
