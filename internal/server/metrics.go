package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"poke-mcp/internal/tool"
)

var (
	toolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poke_mcp_tool_calls_total",
		Help: "Tool invocations by tool name and outcome.",
	}, []string{"tool", "outcome"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "poke_mcp_active_sessions",
		Help: "Sessions that have not yet closed.",
	})
)

func observeCall(name string, res tool.Result) {
	outcome := "success"
	if res.Failed() {
		outcome = res.Failure.Kind
	}
	toolCalls.WithLabelValues(name, outcome).Inc()
}
