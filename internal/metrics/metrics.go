// Package metrics declares the Prometheus collectors of the consistency
// engine. Collectors register with the default registry on import; the MCP
// binary exposes them over HTTP.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "continuity"

var (
	// validationRuns counts reports produced.
	// Labels: phase (pre_generation, post_generation), valid (true, false)
	validationRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "validation",
		Name:      "runs_total",
		Help:      "Validation reports produced",
	}, []string{"phase", "valid"})

	// validationIssues counts issues by severity.
	// Labels: phase, severity (critical, warning, info)
	validationIssues = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "validation",
		Name:      "issues_total",
		Help:      "Validation issues reported",
	}, []string{"phase", "severity"})

	validationScore = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "validation",
		Name:      "score",
		Help:      "Distribution of overall consistency scores",
		Buckets:   []float64{20, 40, 60, 75, 90, 100},
	}, []string{"phase"})

	graphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "graph",
		Name:      "nodes",
		Help:      "Nodes in the knowledge graph",
	})

	graphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "graph",
		Name:      "edges",
		Help:      "Edges in the knowledge graph",
	})

	// powerUpdates counts power level writes.
	// Labels: type (breakthrough, gradual, regression, stable)
	powerUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "graph",
		Name:      "power_updates_total",
		Help:      "Power level writes by progression type",
	}, []string{"type"})

	trackedSnapshots = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "tracker",
		Name:      "snapshots",
		Help:      "Entity snapshots held by the state tracker",
	})
)

// IssueCounts is the per-severity breakdown of one report
type IssueCounts struct {
	Critical, Warnings, Info int
}

// RecordReport records one validation report
func RecordReport(phase string, valid bool, score int, counts IssueCounts) {
	validationRuns.WithLabelValues(phase, strconv.FormatBool(valid)).Inc()
	validationIssues.WithLabelValues(phase, "critical").Add(float64(counts.Critical))
	validationIssues.WithLabelValues(phase, "warning").Add(float64(counts.Warnings))
	validationIssues.WithLabelValues(phase, "info").Add(float64(counts.Info))
	validationScore.WithLabelValues(phase).Observe(float64(score))
}

// SetGraphSize records the current graph size
func SetGraphSize(nodes, edges int) {
	graphNodes.Set(float64(nodes))
	graphEdges.Set(float64(edges))
}

// RecordPowerUpdate counts one power level write
func RecordPowerUpdate(progressionType string) {
	powerUpdates.WithLabelValues(progressionType).Inc()
}

// SetTrackedSnapshots records the tracker size
func SetTrackedSnapshots(n int) {
	trackedSnapshots.Set(float64(n))
}
