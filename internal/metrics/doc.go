// Package metrics declares the Prometheus instrumentation for the
// prompt explorer: thumbnail cache behavior, scan throughput, prompt
// cache queries, and grid virtualization activity.
//
// Metrics are registered with the default registry via promauto and
// exposed only when the optional debug server is enabled (see the
// debugserver package). When the server is off the counters still
// update; they are simply never scraped.
package metrics
