package cmd

import (
	"fmt"
	"github.com/ValentinKolb/otick/cmd/query"
	"github.com/ValentinKolb/otick/cmd/serve"
	"github.com/ValentinKolb/otick/cmd/util"
	"github.com/ValentinKolb/otick/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "otick",
		Short: "opentick client",
		Long: fmt.Sprintf(`otick (v%s)

A client for opentick time series databases. Requests are multiplexed
over a single connection and matched with their replies by ticket.`, Version),
		SilenceUsage:      true,
		PersistentPreRunE: initLogging,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of otick",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("otick v%s\n", Version)
		},
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(query.ExecCmd)
	RootCmd.AddCommand(query.ShellCmd)
	RootCmd.AddCommand(query.PerfCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (tcp, unix)"))
	key = "log-level"
	RootCmd.PersistentFlags().String(key, "warn", util.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// initLogging installs the loggers with the configured level before any command runs
func initLogging(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Root().PersistentFlags()); err != nil {
		return err
	}
	return common.InitLoggers(viper.GetString("log-level"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
