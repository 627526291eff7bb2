package query

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/otick/cmd/util"
	"github.com/ValentinKolb/otick/rpc/client"
	vmetrics "github.com/VictoriaMetrics/metrics"
	"github.com/olekukonko/tablewriter"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"os"
	"strconv"
	"time"
)

var (
	PerfCmd = &cobra.Command{
		Use:   "perf",
		Short: "Performance testing tool for opentick servers",
		Long: util.WrapString(`Sends requests from several goroutines over one connection. ` +
			`Each goroutine keeps up to --pipeline requests in flight and waits for them in send order.`),
		Args:     cobra.NoArgs,
		PreRunE:  connect,
		PostRunE: disconnect,
		RunE:     runPerf,
	}
)

func init() {
	util.SetupClientFlags(PerfCmd)

	key := "threads"
	PerfCmd.Flags().Int(key, 10, util.WrapString("Number of goroutines sending requests"))
	key = "requests"
	PerfCmd.Flags().Int(key, 10000, util.WrapString("Total number of requests to send"))
	key = "pipeline"
	PerfCmd.Flags().Int(key, 16, util.WrapString("Number of requests each goroutine keeps in flight"))
	key = "sql"
	PerfCmd.Flags().String(key, "SELECT ?", util.WrapString("The statement to run, it receives the request number as its only argument if it contains a placeholder"))
	key = "metrics"
	PerfCmd.Flags().Bool(key, false, util.WrapString("Print the client metrics in Prometheus text format when done"))
}

// perfConfig is the configuration of a perf run
type perfConfig struct {
	threads  int
	requests int
	pipeline int
	sql      string
}

func runPerf(_ *cobra.Command, _ []string) error {
	conf := perfConfig{
		threads:  max(viper.GetInt("threads"), 1),
		requests: viper.GetInt("requests"),
		pipeline: max(viper.GetInt("pipeline"), 1),
		sql:      viper.GetString("sql"),
	}

	fmt.Println("Performance testing tool for opentick servers")
	clientConfig := util.GetClientConfig()
	fmt.Println(clientConfig.String())
	fmt.Printf("Threads: %d, Requests: %d, Pipeline: %d\n", conf.threads, conf.requests, conf.pipeline)
	fmt.Printf("Statement: %s\n\n", conf.sql)

	timer := metrics.NewTimer()
	start := time.Now()

	if err := runLoad(context.Background(), conn, conf, timer); err != nil {
		return err
	}

	printTimer(time.Since(start), timer)

	if viper.GetBool("metrics") {
		fmt.Println()
		vmetrics.WritePrometheus(os.Stdout, false)
	}
	return nil
}

// runLoad sends conf.requests requests spread over conf.threads goroutines and records their latency in timer
func runLoad(ctx context.Context, c client.IConnection, conf perfConfig, timer metrics.Timer) error {
	withArg := containsPlaceholder(conf.sql)

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < conf.threads; w++ {
		w := w
		g.Go(func() error {
			type inFlight struct {
				fut   *client.Future
				start time.Time
			}
			window := make([]inFlight, 0, conf.pipeline)

			// wait for the oldest request of the window
			drain := func() error {
				f := window[0]
				window = window[1:]
				if _, err := f.fut.Get(); err != nil {
					return fmt.Errorf("request %d failed: %w", f.fut.Ticket(), err)
				}
				timer.UpdateSince(f.start)
				return nil
			}

			for i := w; i < conf.requests; i += conf.threads {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if len(window) == conf.pipeline {
					if err := drain(); err != nil {
						return err
					}
				}

				var args []interface{}
				if withArg {
					args = []interface{}{i}
				}
				sent := time.Now()
				fut, err := c.ExecuteAsync(conf.sql, args...)
				if err != nil {
					return err
				}
				window = append(window, inFlight{fut: fut, start: sent})
			}

			for len(window) > 0 {
				if err := drain(); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func containsPlaceholder(sql string) bool {
	quoted := false
	for _, c := range sql {
		switch {
		case c == '\'':
			quoted = !quoted
		case c == '?' && !quoted:
			return true
		}
	}
	return false
}

// printTimer prints the latency distribution recorded in timer
func printTimer(elapsed time.Duration, timer metrics.Timer) {
	snapshot := timer.Snapshot()
	ps := snapshot.Percentiles([]float64{0.5, 0.9, 0.99, 0.999})

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Requests", strconv.FormatInt(snapshot.Count(), 10)})
	table.Append([]string{"Elapsed", elapsed.Round(time.Millisecond).String()})
	table.Append([]string{"Throughput", fmt.Sprintf("%.0f req/s", float64(snapshot.Count())/elapsed.Seconds())})
	table.Append([]string{"Mean", time.Duration(snapshot.Mean()).String()})
	table.Append([]string{"Min", time.Duration(snapshot.Min()).String()})
	table.Append([]string{"p50", time.Duration(ps[0]).String()})
	table.Append([]string{"p90", time.Duration(ps[1]).String()})
	table.Append([]string{"p99", time.Duration(ps[2]).String()})
	table.Append([]string{"p99.9", time.Duration(ps[3]).String()})
	table.Append([]string{"Max", time.Duration(snapshot.Max()).String()})
	table.Render()
}
