package query

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/otick/cmd/util"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	ShellCmd = &cobra.Command{
		Use:      "shell",
		Short:    "Starts an interactive shell",
		Long:     util.WrapString(`Starts an interactive shell. Every line is executed as one statement. Type \q or exit to leave.`),
		Args:     cobra.NoArgs,
		PreRunE:  connect,
		PostRunE: disconnect,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell()
		},
	}
)

func init() {
	util.SetupClientFlags(ShellCmd)
}

// historyFile returns the path of the shell history, empty if there is no home directory
func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".otick_history")
}

func runShell() error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	history := historyFile()
	if history != "" {
		if f, err := os.Open(history); err == nil {
			_, _ = line.ReadHistory(f)
			f.Close()
		}
	}

	for {
		input, err := line.Prompt("otick> ")
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err == io.EOF {
			fmt.Println()
			break
		}
		if err != nil {
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == `\q` || input == "exit" || input == "quit" {
			break
		}
		line.AppendHistory(input)

		start := time.Now()
		value, err := conn.Execute(input)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		printResult(os.Stdout, value)
		fmt.Printf("took %s\n", time.Since(start).Round(time.Microsecond))
	}

	if history != "" {
		if f, err := os.Create(history); err == nil {
			_, _ = line.WriteHistory(f)
			f.Close()
		}
	}
	return nil
}
