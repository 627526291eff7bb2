package serve

import (
	"fmt"
	cmdUtil "github.com/ValentinKolb/otick/cmd/util"
	"github.com/ValentinKolb/otick/rpc/common"
	"github.com/ValentinKolb/otick/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:   "serve",
		Short: "Start an in-memory loopback server",
		Long: `Start an in-memory server speaking the opentick wire protocol. It understands a small SQL subset
(CREATE DATABASE, CREATE/DROP TABLE, INSERT, SELECT * and DELETE) and is meant for tests and demos.
The configuration can be set via command line flags or environment variables. The format of the
environment variables is OTICK_<flag> (e.g. OTICK_WORKERS=16)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// add flags
	key := "endpoint"
	ServeCmd.Flags().String(key, cmdUtil.DefaultEndpoint, cmdUtil.WrapString("The address on which the server will listen (e.g. 0.0.0.0:1116, /tmp/otick.sock, ...)"))

	key = "workers"
	ServeCmd.Flags().Int(key, 16, cmdUtil.WrapString("Number of commands processed concurrently per connection"))

	key = "databases"
	ServeCmd.Flags().String(key, "test", cmdUtil.WrapString("Comma-separated list of databases created on startup"))

	key = "write-buffer"
	ServeCmd.Flags().Int(key, 0, cmdUtil.WrapString("The size of the socket write buffer (in KB, 0 keeps the OS default)"))

	key = "read-buffer"
	ServeCmd.Flags().Int(key, 0, cmdUtil.WrapString("The size of the socket read buffer (in KB, 0 keeps the OS default)"))

	key = "max-frame-size"
	ServeCmd.Flags().Int(key, common.DefaultMaxFrameSize>>20, cmdUtil.WrapString("The largest command accepted from a client (in MB)"))

	key = "tcp-nodelay"
	ServeCmd.Flags().Bool(key, true, cmdUtil.WrapString("Whether to enable TCP_NODELAY (tcp only)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	serveCmdConfig.Databases = nil
	for _, db := range strings.Split(viper.GetString("databases"), ",") {
		if db = strings.TrimSpace(db); db != "" {
			serveCmdConfig.Databases = append(serveCmdConfig.Databases, db)
		}
	}

	serveCmdConfig.WorkersPerConn = viper.GetInt("workers")
	if serveCmdConfig.WorkersPerConn < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", serveCmdConfig.WorkersPerConn)
	}

	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.Transport = common.ServerTransportConfig{
		Endpoint: viper.GetString("endpoint"),
		SocketConf: common.SocketConf{
			WriteBufferSize: viper.GetInt("write-buffer") * 1024,
			ReadBufferSize:  viper.GetInt("read-buffer") * 1024,
			MaxFrameSize:    viper.GetInt("max-frame-size") << 20,
		},
		TCPConf: common.TCPConf{
			TCPNoDelay: viper.GetBool("tcp-nodelay"),
		},
	}

	return nil
}

// run starts the server and stops it on SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	t, err := cmdUtil.GetServerTransport(serveCmdConfig.WorkersPerConn)
	if err != nil {
		return err
	}

	serv := server.NewRPCServer(*serveCmdConfig, t)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	errs := make(chan error, 1)
	go func() {
		errs <- serv.Serve()
	}()

	select {
	case err := <-errs:
		return err
	case sig := <-signals:
		server.Logger.Infof("Received %s, shutting down", sig)
		if err := serv.Close(); err != nil {
			return err
		}
		return <-errs
	}
}
