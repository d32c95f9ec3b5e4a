package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/tendril"
)

// Collector implements prometheus.Collector over the runtime's process-wide
// diagnostic aggregates. All values are gathered at scrape time; the
// collector holds no state of its own.
type Collector struct {
	switches     *prometheus.Desc
	switchDelay  *prometheus.Desc
	longRuns     *prometheus.Desc
	longRunTotal *prometheus.Desc
	liveFibers   *prometheus.Desc
	stackBytes   *prometheus.Desc
}

// NewCollector creates a collector for the fiber runtime aggregates.
func NewCollector() *Collector {
	return &Collector{
		switches: prometheus.NewDesc(
			"tendril_fiber_switches_total",
			"Total number of fiber context switches across all carriers.",
			nil, nil,
		),
		switchDelay: prometheus.NewDesc(
			"tendril_fiber_switch_delay_seconds_total",
			"Aggregated delay between fibers becoming runnable and being switched to.",
			nil, nil,
		),
		longRuns: prometheus.NewDesc(
			"tendril_fiber_long_runs_total",
			"Number of times a fiber ran continuously past the long-run threshold.",
			nil, nil,
		),
		longRunTotal: prometheus.NewDesc(
			"tendril_fiber_long_run_excess_seconds_total",
			"Aggregate excess duration of long runs beyond the threshold.",
			nil, nil,
		),
		liveFibers: prometheus.NewDesc(
			"tendril_fibers_live",
			"Number of live worker fibers across all carriers.",
			nil, nil,
		),
		stackBytes: prometheus.NewDesc(
			"tendril_fiber_stack_bytes",
			"Total stack bytes reserved for live worker fibers.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.switches
	ch <- c.switchDelay
	ch <- c.longRuns
	ch <- c.longRunTotal
	ch <- c.liveFibers
	ch <- c.stackBytes
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := tendril.RuntimeStats()
	ch <- prometheus.MustNewConstMetric(c.switches, prometheus.CounterValue, float64(st.Switches))
	ch <- prometheus.MustNewConstMetric(c.switchDelay, prometheus.CounterValue, st.SwitchDelay.Seconds())
	ch <- prometheus.MustNewConstMetric(c.longRuns, prometheus.CounterValue, float64(st.LongRuns))
	ch <- prometheus.MustNewConstMetric(c.longRunTotal, prometheus.CounterValue, st.LongRunTotal.Seconds())
	ch <- prometheus.MustNewConstMetric(c.liveFibers, prometheus.GaugeValue, float64(st.LiveFibers))
	ch <- prometheus.MustNewConstMetric(c.stackBytes, prometheus.GaugeValue, float64(st.StackBytes))
}
