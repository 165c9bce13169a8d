// Package workers sizes the scan worker pool.
//
// Go 1.19+ sets GOMAXPROCS from container CPU limits automatically, so
// ForScan derives its count from runtime.GOMAXPROCS(0) rather than
// runtime.NumCPU(), which still reports the host machine's CPU count.
//
// Scanning extracts metadata from image files, a workload dominated by
// file I/O, so ForScan uses two workers per available CPU with a floor
// of 4 and a cap of 32. Set SCAN_WORKERS to override.
package workers
