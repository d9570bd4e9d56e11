package recovery

import (
	"math"
	"time"
)

// nextDelay returns the delay before attempt n of a cycle.
//
// The first attempt waits exactly MinDelay. Later attempts grow as
// MinDelay * Factor^n, scaled by a uniform jitter in [1,2) so that many
// clients losing the same server do not retry in lockstep, and are capped
// at MaxDelay.
func nextDelay(cfg Config, n int, random func() float64) time.Duration {
	if n <= 1 {
		return cfg.MinDelay
	}

	d := (random() + 1) * float64(cfg.MinDelay) * math.Pow(cfg.Factor, float64(n))
	if d >= float64(cfg.MaxDelay) {
		return cfg.MaxDelay
	}
	return time.Duration(math.Round(d))
}
