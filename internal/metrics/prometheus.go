package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements the Collector interface using Prometheus metrics.
type PrometheusCollector struct {
	connectionsTotal  prometheus.Counter
	connectionsActive prometheus.Gauge

	authAttemptsTotal *prometheus.CounterVec

	commandsTotal *prometheus.CounterVec

	transfersTotal     *prometheus.CounterVec
	transferSizeBytes  *prometheus.HistogramVec
	pipelinesTotal     prometheus.Counter
	pipelineStageCount prometheus.Histogram
}

// NewPrometheusCollector creates a new PrometheusCollector with all metrics registered.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	c := &PrometheusCollector{
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shellserve_connections_total",
			Help: "Total number of connections accepted.",
		}),
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shellserve_connections_active",
			Help: "Number of currently active connections.",
		}),

		authAttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shellserve_auth_attempts_total",
			Help: "Total number of authentication attempts.",
		}, []string{"result"}),

		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shellserve_commands_total",
			Help: "Total number of commands processed.",
		}, []string{"command"}),

		transfersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shellserve_transfers_total",
			Help: "Total number of file transfers completed.",
		}, []string{"direction"}),
		transferSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shellserve_transfer_size_bytes",
			Help:    "Size of transferred files in bytes.",
			Buckets: []float64{1024, 10240, 102400, 1048576, 10485760, 104857600},
		}, []string{"direction"}),
		pipelinesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shellserve_pipelines_total",
			Help: "Total number of command pipelines executed.",
		}),
		pipelineStageCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "shellserve_pipeline_stage_count",
			Help:    "Number of stages per executed pipeline.",
			Buckets: prometheus.LinearBuckets(1, 1, 16),
		}),
	}

	reg.MustRegister(
		c.connectionsTotal,
		c.connectionsActive,
		c.authAttemptsTotal,
		c.commandsTotal,
		c.transfersTotal,
		c.transferSizeBytes,
		c.pipelinesTotal,
		c.pipelineStageCount,
	)

	return c
}

// ConnectionOpened increments the connection counter and active gauge.
func (c *PrometheusCollector) ConnectionOpened() {
	c.connectionsTotal.Inc()
	c.connectionsActive.Inc()
}

// ConnectionClosed decrements the active connections gauge.
func (c *PrometheusCollector) ConnectionClosed() {
	c.connectionsActive.Dec()
}

// AuthAttempt increments the authentication attempts counter.
func (c *PrometheusCollector) AuthAttempt(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.authAttemptsTotal.WithLabelValues(result).Inc()
}

// CommandProcessed increments the command counter.
func (c *PrometheusCollector) CommandProcessed(command string) {
	c.commandsTotal.WithLabelValues(command).Inc()
}

// TransferCompleted increments the transfer counter and observes its size.
func (c *PrometheusCollector) TransferCompleted(direction string, sizeBytes int64) {
	c.transfersTotal.WithLabelValues(direction).Inc()
	c.transferSizeBytes.WithLabelValues(direction).Observe(float64(sizeBytes))
}

// PipelineExecuted increments the pipeline counter and observes its stage count.
func (c *PrometheusCollector) PipelineExecuted(stageCount int) {
	c.pipelinesTotal.Inc()
	c.pipelineStageCount.Observe(float64(stageCount))
}
