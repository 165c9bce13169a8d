// Package debugserver provides an optional HTTP endpoint for
// observability: Prometheus metrics on /metrics, an application health
// snapshot on /healthz, and build information on /version. It is off
// unless PROMPT_EXPLORER_DEBUG_ADDR is set.
package debugserver
