package flow

import "time"

// SessionStats summarises aggregator behaviour for instrumentation.
type SessionStats struct {
	Frames     uint64
	AvgProcess time.Duration
	LastFrame  time.Time
}

// Stats returns a snapshot of the processing counters. Like the rest of the
// aggregator it must be called from the same goroutine as ProcessFrame.
func (a *Aggregator) Stats() SessionStats {
	var avg time.Duration
	if a.frames > 0 {
		avg = time.Duration(a.processNanos / a.frames)
	}
	return SessionStats{
		Frames:     a.frames,
		AvgProcess: avg,
		LastFrame:  a.prevTime,
	}
}
