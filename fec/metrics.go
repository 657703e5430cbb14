package fec

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus collectors of the codec pipeline. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	blocksEncoded prometheus.Counter       // code blocks LDPC-encoded
	blocksDecoded *prometheus.CounterVec   // by algorithm and outcome
	iterations    *prometheus.HistogramVec // decoder iterations per block
	crcFailures   *prometheus.CounterVec   // by level: block, transport
	matrixBuilds  *prometheus.CounterVec   // lifted codes built, by base graph
	tbDecoded     *prometheus.CounterVec   // transport blocks by outcome
}

// NewMetrics creates the collectors and registers them on reg. It panics if
// they are already registered, like promauto.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		blocksEncoded: f.NewCounter(prometheus.CounterOpts{
			Namespace: "nrfec",
			Name:      "code_blocks_encoded_total",
			Help:      "Code blocks passed through the LDPC encoder.",
		}),
		blocksDecoded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nrfec",
			Name:      "code_blocks_decoded_total",
			Help:      "Code blocks decoded, by algorithm and outcome (converged or exhausted).",
		}, []string{"algorithm", "outcome"}),
		iterations: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nrfec",
			Name:      "decoder_iterations",
			Help:      "Iterations run per decoded code block.",
			Buckets:   []float64{1, 2, 3, 5, 8, 12, 20, 30, 50, 100},
		}, []string{"algorithm"}),
		crcFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nrfec",
			Name:      "crc_failures_total",
			Help:      "CRC check failures after decoding, by level (block or transport).",
		}, []string{"level"}),
		matrixBuilds: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nrfec",
			Name:      "matrix_builds_total",
			Help:      "Lifted parity-check matrices built by the matrix cache.",
		}, []string{"base_graph"}),
		tbDecoded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nrfec",
			Name:      "transport_blocks_decoded_total",
			Help:      "Transport blocks decoded, by outcome (ok or crc_failed).",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) blockEncoded() {
	if m == nil {
		return
	}
	m.blocksEncoded.Inc()
}

func (m *Metrics) blockDecoded(alg Algorithm, res Result) {
	if m == nil {
		return
	}
	outcome := "exhausted"
	if res.Converged {
		outcome = "converged"
	}
	name := alg.String()
	m.blocksDecoded.WithLabelValues(name, outcome).Inc()
	m.iterations.WithLabelValues(name).Observe(float64(res.Iterations))
}

func (m *Metrics) crcFailed(level string) {
	if m == nil {
		return
	}
	m.crcFailures.WithLabelValues(level).Inc()
}

func (m *Metrics) matrixBuilt(bg BaseGraph) {
	if m == nil {
		return
	}
	m.matrixBuilds.WithLabelValues(bg.String()).Inc()
}

func (m *Metrics) transportDecoded(failed bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if failed {
		outcome = "crc_failed"
	}
	m.tbDecoded.WithLabelValues(outcome).Inc()
}
