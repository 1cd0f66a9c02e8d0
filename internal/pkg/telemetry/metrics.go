package telemetry

// Span attribute keys and derived SLI names. Dashboards chart saved
// queries against these, so treat them as stable.
const (
	// Recorded on selection spans.
	AttrSoundingsServed  = "selection.soundings_served"
	AttrFootprintsServed = "selection.footprints_served"
	AttrGranulesScanned  = "selection.granules_scanned"
	AttrGranulesSkipped  = "selection.granules_skipped"

	// Derived by the collector from span timings and counts.
	MetricAPILatencyP50  = "api.latency.p50"
	MetricAPILatencyP95  = "api.latency.p95"
	MetricAPILatencyP99  = "api.latency.p99"
	MetricRequestsPerSec = "api.requests_per_second"
	MetricCatalogAge     = "catalog.data_age_seconds"
	MetricUptime         = "service.uptime_percentage"
)
