package cluster

import "time"

// Observer receives progress events from Fit. Implementations must be safe
// for concurrent use when the same observer serves several fits.
type Observer interface {
	// OnIteration is called after every E-step.
	OnIteration(k, start, iteration int, objective float64)
	// OnViolation is called when the objective decreased.
	OnViolation(k int, drop float64)
	// OnReinitialize is called when an empty cluster is refilled.
	OnReinitialize(k, cluster int)
	// OnFinish is called once per Fit.
	OnFinish(k int, iterations int, converged bool, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) OnIteration(int, int, int, float64) {}
func (nopObserver) OnViolation(int, float64) {}
func (nopObserver) OnReinitialize(int, int) {}
func (nopObserver) OnFinish(int, int, bool, time.Duration) {}
