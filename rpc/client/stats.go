package client

import (
	"errors"
	"github.com/ValentinKolb/otick/rpc/common"
	"github.com/VictoriaMetrics/metrics"
	"time"
)

var (
	preparedHits   = metrics.NewCounter(`otick_prepared_cache_total{result="hit"}`)
	preparedMisses = metrics.NewCounter(`otick_prepared_cache_total{result="miss"}`)
	serverErrors   = metrics.NewCounter(`otick_server_errors_total`)
	fatalErrors    = metrics.NewCounter(`otick_connection_errors_total`)
	requestSeconds = metrics.NewHistogram(`otick_request_duration_seconds`)

	commandsSent = map[common.CommandKind]*metrics.Counter{
		common.CmdUse:     metrics.NewCounter(`otick_commands_total{kind="use"}`),
		common.CmdPrepare: metrics.NewCounter(`otick_commands_total{kind="prepare"}`),
		common.CmdRun:     metrics.NewCounter(`otick_commands_total{kind="run"}`),
	}
)

// recordSent counts a command written to the wire
func recordSent(kind common.CommandKind) {
	if c, ok := commandsSent[kind]; ok {
		c.Inc()
	}
}

// recordDone records the round trip of a resolved request
func recordDone(start time.Time, err error) {
	requestSeconds.Update(time.Since(start).Seconds())

	var serverErr *ServerError
	switch {
	case err == nil:
	case errors.As(err, &serverErr):
		serverErrors.Inc()
	default:
		recordFatal(err)
	}
}

// recordFatal counts requests that failed because the connection was lost
func recordFatal(err error) {
	var connErr *common.ConnectionError
	if errors.As(err, &connErr) {
		fatalErrors.Inc()
	}
}
