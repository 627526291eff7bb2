package util

import (
	"fmt"
	"github.com/ValentinKolb/otick/rpc/common"
	"github.com/ValentinKolb/otick/rpc/serializer"
	"github.com/ValentinKolb/otick/rpc/transport"
	"github.com/ValentinKolb/otick/rpc/transport/tcp"
	"github.com/ValentinKolb/otick/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// DefaultEndpoint is the address opentick servers listen on by default
	DefaultEndpoint = "127.0.0.1:1116"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		if lineWidth > 0 && lineWidth+1+len(word) > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += len(word)
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupClientFlags adds the connection flags to a command
func SetupClientFlags(cmd *cobra.Command) {
	key := "endpoint"
	cmd.Flags().String(key, DefaultEndpoint, WrapString("The address of the opentick server (host:port for tcp, a socket path for unix)"))

	key = "db"
	cmd.Flags().String(key, "", WrapString("The database to use after connecting"))

	key = "dial-timeout"
	cmd.Flags().Int(key, 10, WrapString("The timeout in seconds for establishing the connection"))

	key = "write-buffer"
	cmd.Flags().Int(key, 0, WrapString("The size of the socket write buffer (in KB, 0 keeps the OS default)"))

	key = "read-buffer"
	cmd.Flags().Int(key, 0, WrapString("The size of the socket read buffer (in KB, 0 keeps the OS default)"))

	key = "max-frame-size"
	cmd.Flags().Int(key, common.DefaultMaxFrameSize>>20, WrapString("The largest reply accepted from the server (in MB)"))

	key = "tcp-nodelay"
	cmd.Flags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY (tcp only)"))

	key = "tcp-keepalive"
	cmd.Flags().Int(key, 0, WrapString("The keepalive interval (in seconds, tcp only)"))

	key = "tcp-linger"
	cmd.Flags().Int(key, 0, WrapString("The linger time (in seconds, tcp only, 0 keeps the OS default)"))
}

// InitConfig loads .env files and makes viper read OTICK_* environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("otick")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads the client configuration from viper
func GetClientConfig() common.ClientConfig {
	return common.ClientConfig{
		Database: viper.GetString("db"),
		Transport: common.ClientTransportConfig{
			Endpoint:          viper.GetString("endpoint"),
			DialTimeoutSecond: viper.GetInt("dial-timeout"),
			SocketConf: common.SocketConf{
				WriteBufferSize: viper.GetInt("write-buffer") * 1024,
				ReadBufferSize:  viper.GetInt("read-buffer") * 1024,
				MaxFrameSize:    viper.GetInt("max-frame-size") << 20,
			},
			TCPConf: common.TCPConf{
				TCPNoDelay:      viper.GetBool("tcp-nodelay"),
				TCPKeepAliveSec: viper.GetInt("tcp-keepalive"),
				TCPLingerSec:    viper.GetInt("tcp-linger"),
			},
		},
	}
}

// GetClientTransport creates the configured client transport speaking BSON records
func GetClientTransport() (transport.IRPCClientTransport, error) {
	s := serializer.NewBSONSerializer()
	switch viper.GetString("transport") {
	case "tcp":
		return tcp.NewTCPClientTransport(s), nil
	case "unix":
		return unix.NewUnixClientTransport(s), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// GetServerTransport creates the configured server transport speaking BSON records
func GetServerTransport(workersPerConn int) (transport.IRPCServerTransport, error) {
	s := serializer.NewBSONSerializer()
	switch viper.GetString("transport") {
	case "tcp":
		return tcp.NewTCPServerTransport(s, workersPerConn), nil
	case "unix":
		return unix.NewUnixServerTransport(s, workersPerConn), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
