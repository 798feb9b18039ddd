package misc

import "time"

// SleepFunc can be swapped out in tests to skip real delays
type SleepFunc func(time.Duration)

// WaitUntil samples pred up to maxIterations times with interval between
// samples. The first sample happens before any sleep, so a predicate that
// already holds returns immediately. Reports whether pred became true
// before the budget ran out.
func WaitUntil(pred func() bool, interval time.Duration, maxIterations int, sleep SleepFunc) bool {
	if sleep == nil {
		sleep = time.Sleep
	}

	for i := 0; i < maxIterations; i++ {
		if pred() {
			return true
		}
		sleep(interval)
	}

	return false
}
