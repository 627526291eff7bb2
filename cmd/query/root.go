package query

import (
	"fmt"
	"github.com/ValentinKolb/otick/cmd/util"
	"github.com/ValentinKolb/otick/rpc/client"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"io"
	"strconv"
	"strings"
	"time"
)

var (
	// conn is the connection shared by the query commands, opened in connect
	conn client.IConnection
)

// connect binds the flags of cmd and opens the connection
func connect(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	t, err := util.GetClientTransport()
	if err != nil {
		return err
	}

	conn, err = client.NewConnection(util.GetClientConfig(), t)
	return err
}

// disconnect closes the connection opened in connect
func disconnect(_ *cobra.Command, _ []string) error {
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// ParseArg converts a command line argument to a statement argument.
// Integers, floats, booleans and RFC 3339 timestamps are recognized, everything else is a string.
// A value in single quotes is always a string.
func ParseArg(s string) interface{} {
	if len(s) >= 2 && strings.HasPrefix(s, "'") && strings.HasSuffix(s, "'") {
		return s[1 : len(s)-1]
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	// ParseFloat also accepts "nan" and "inf", those stay strings
	if strings.ContainsAny(s, "0123456789") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	if s == "true" || s == "false" {
		return s == "true"
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	return s
}

// ParseArgs applies ParseArg to every argument
func ParseArgs(args []string) []interface{} {
	out := make([]interface{}, len(args))
	for i, a := range args {
		out[i] = ParseArg(a)
	}
	return out
}

// printResult writes the result of a statement to w, rows are printed as a table
func printResult(w io.Writer, value interface{}) {
	rows, ok := value.([]interface{})
	if !ok {
		if value == nil {
			fmt.Fprintln(w, "ok")
		} else {
			fmt.Fprintln(w, formatValue(value))
		}
		return
	}

	width := 0
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	for _, r := range rows {
		row, ok := r.([]interface{})
		if !ok {
			row = []interface{}{r}
		}
		cells := make([]string, len(row))
		for i, col := range row {
			cells[i] = formatValue(col)
		}
		if len(cells) > width {
			width = len(cells)
		}
		table.Append(cells)
	}

	header := make([]string, width)
	for i := range header {
		header[i] = strconv.Itoa(i)
	}
	table.SetHeader(header)
	table.Render()

	fmt.Fprintf(w, "(%d rows)\n", len(rows))
}

func formatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
