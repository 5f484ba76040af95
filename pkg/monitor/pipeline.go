package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics 转账流水线的业务指标
type PipelineMetrics struct {
	TransferSubmittedTotal prometheus.Counter
	TransferOutcomeTotal   *prometheus.CounterVec
	BuildFailedTotal       prometheus.Counter
	ProofDuration          prometheus.Histogram
	InFlightTransfers      prometheus.Gauge
}

// Pipeline 全局实例。未调用 Init 时指标照常计数，只是不会被暴露。
var Pipeline = newPipelineMetrics()

func newPipelineMetrics() *PipelineMetrics {
	return &PipelineMetrics{
		TransferSubmittedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zerochain_transfer_submitted_total",
			Help: "The total number of confidential transfers handed to the chain",
		}),
		TransferOutcomeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zerochain_transfer_outcome_total",
			Help: "Terminal transfer statuses by kind",
		}, []string{"status"}),
		BuildFailedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zerochain_build_failed_total",
			Help: "Transfers that failed before signing",
		}),
		ProofDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "zerochain_proof_duration_seconds",
			Help:    "Duration of transfer proof generation",
			Buckets: prometheus.DefBuckets,
		}),
		InFlightTransfers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "zerochain_transfer_in_flight",
			Help: "Transfers submitted and not yet terminal",
		}),
	}
}

func (m *PipelineMetrics) register(r prometheus.Registerer) {
	r.MustRegister(
		m.TransferSubmittedTotal,
		m.TransferOutcomeTotal,
		m.BuildFailedTotal,
		m.ProofDuration,
		m.InFlightTransfers,
	)
}
