package config

import "runtime"

// defaultIOWorkers implements the min(16, 2*cpus) worker-count formula.
func defaultIOWorkers() int {
	n := 2 * runtime.NumCPU()
	if n > 16 {
		return 16
	}
	if n < 1 {
		return 1
	}
	return n
}
