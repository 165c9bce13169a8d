package workers

import (
	"os"
	"runtime"
	"strconv"
)

// ForScan returns the worker count for metadata extraction during a
// folder scan. Extraction is mostly file I/O with a little decoding,
// so the pool runs two workers per available CPU, floored at 4 and
// capped at 32.
//
// The SCAN_WORKERS environment variable overrides the computed count.
// The cap still applies; the floor does not, so a single-worker scan
// can be forced when debugging.
func ForScan() int {
	const (
		floor   = 4
		ceiling = 32
	)

	if override := os.Getenv("SCAN_WORKERS"); override != "" {
		if n, err := strconv.Atoi(override); err == nil && n > 0 {
			if n > ceiling {
				return ceiling
			}
			return n
		}
	}

	n := 2 * runtime.GOMAXPROCS(0)
	if n < floor {
		n = floor
	}
	if n > ceiling {
		n = ceiling
	}
	return n
}
