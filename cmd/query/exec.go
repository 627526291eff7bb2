package query

import (
	"github.com/ValentinKolb/otick/cmd/util"
	"github.com/spf13/cobra"
	"os"
)

var (
	ExecCmd = &cobra.Command{
		Use:   "exec [sql] [args...]",
		Short: "Executes a single statement",
		Long: util.WrapString(`Executes a single statement and prints its result. ` +
			`Arguments are bound to the ? placeholders of the statement, ` +
			`integers, floats, booleans and RFC 3339 timestamps are converted, ` +
			`everything else is passed as a string.`),
		Example:  `  otick exec --db trading "INSERT INTO bar VALUES(?, ?)" 1 2026-10-17T09:30:00Z`,
		Args:     cobra.MinimumNArgs(1),
		PreRunE:  connect,
		PostRunE: disconnect,
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := conn.Execute(args[0], ParseArgs(args[1:])...)
			if err != nil {
				return err
			}
			printResult(os.Stdout, value)
			return nil
		},
	}
)

func init() {
	util.SetupClientFlags(ExecCmd)
}
