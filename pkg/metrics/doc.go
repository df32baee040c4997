/*
Package metrics defines the Prometheus metrics hutch exposes.

Operations are counted by name and result, operation and external
command durations are observed as histograms, and the template cache
reports its entry count and total archive bytes as gauges. Register
installs everything on the default registry; Handler returns the
standard promhttp handler for embedding.

	metrics.RecordOperation("create", err, time.Since(start).Seconds())
*/
package metrics
