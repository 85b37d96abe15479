package framegateprom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/framegate/framegate/gate"
)

type collector struct {
	gate gate.Gate

	allowed        *prometheus.Desc
	decisions      *prometheus.Desc
	suppressed     *prometheus.Desc
	ignored        *prometheus.Desc
	transitions    *prometheus.Desc
	suppressedRate *prometheus.Desc
}

// NewCollector returns a prometheus.Collector that exports the state and metrics of the gate under the namespace.
// labels are added as constant labels to each metric.
func NewCollector(namespace string, g gate.Gate, labels prometheus.Labels) prometheus.Collector {
	desc := func(name string, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "gate", name), help, nil, labels)
	}
	return &collector{
		gate:           g,
		allowed:        desc("allowed", "Whether the gate currently allows controlled work (1) or suppresses it (0)."),
		decisions:      desc("decisions_total", "Number of enabled gate decisions."),
		suppressed:     desc("suppressed_total", "Number of gate decisions that suppressed controlled work."),
		ignored:        desc("ignored_total", "Number of gate decisions whose sample was not usable."),
		transitions:    desc("transitions_total", "Number of gate state changes."),
		suppressedRate: desc("suppressed_rate", "Percentage of suppressed decisions within the recent decision window."),
	}
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.allowed
	ch <- c.decisions
	ch <- c.suppressed
	ch <- c.ignored
	ch <- c.transitions
	ch <- c.suppressedRate
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	allowed := 0.0
	if c.gate.IsAllowed() {
		allowed = 1
	}
	m := c.gate.Metrics()
	ch <- prometheus.MustNewConstMetric(c.allowed, prometheus.GaugeValue, allowed)
	ch <- prometheus.MustNewConstMetric(c.decisions, prometheus.CounterValue, float64(m.Decisions()))
	ch <- prometheus.MustNewConstMetric(c.suppressed, prometheus.CounterValue, float64(m.Suppressed()))
	ch <- prometheus.MustNewConstMetric(c.ignored, prometheus.CounterValue, float64(m.Ignored()))
	ch <- prometheus.MustNewConstMetric(c.transitions, prometheus.CounterValue, float64(m.Transitions()))
	ch <- prometheus.MustNewConstMetric(c.suppressedRate, prometheus.GaugeValue, float64(m.SuppressedRate()))
}
