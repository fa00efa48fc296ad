package pagesim

import "time"

type (
	// Recorder accumulates access outcomes.
	// The zero value is ready to use.
	Recorder struct {
		snapshot Snapshot
	}
	// Snapshot is a point-in-time copy of a [Recorder]'s counters.
	Snapshot struct {
		Accesses, Hits, Faults,
		Evictions, Writebacks, Writes uint64
	}
)

// Record accounts for a single access.
// Pass [Event.Access] to record an event.
func (r *Recorder) Record(access Access) {
	s := &r.snapshot
	if access.Installed {
		if access.Outcome == Evicted {
			s.Evictions++
			if access.VictimDirty {
				s.Writebacks++
			}
		}
		return
	}
	s.Accesses++
	if access.Write {
		s.Writes++
	}
	switch access.Outcome {
	case Hit:
		s.Hits++
	case Evicted:
		s.Evictions++
		if access.VictimDirty {
			s.Writebacks++
		}
		fallthrough
	case Fault:
		s.Faults++
	}
}

// Reset zeroes every counter.
func (r *Recorder) Reset() { r.snapshot = Snapshot{} }

// Snapshot returns a copy of the current counters.
func (r *Recorder) Snapshot() Snapshot { return r.snapshot }

func (r *Recorder) Accesses() uint64   { return r.snapshot.Accesses }
func (r *Recorder) Hits() uint64       { return r.snapshot.Hits }
func (r *Recorder) Faults() uint64     { return r.snapshot.Faults }
func (r *Recorder) Evictions() uint64  { return r.snapshot.Evictions }
func (r *Recorder) Writebacks() uint64 { return r.snapshot.Writebacks }
func (r *Recorder) HitRate() float64   { return r.snapshot.HitRate() }
func (r *Recorder) FaultRate() float64 { return r.snapshot.FaultRate() }

// HitRate is hits over accesses, in [0,1].
// It is 0 when nothing has been recorded.
func (s Snapshot) HitRate() float64 { return ratio(s.Hits, s.Accesses) }

// FaultRate is faults over accesses, in [0,1].
func (s Snapshot) FaultRate() float64 { return ratio(s.Faults, s.Accesses) }

// EffectiveAccessTime weighs the cost of a hit and the cost of a miss
// by the observed rates. A miss pays both the lookup and the fetch,
// so missCost should include hitCost if that is how the level behaves.
func (s Snapshot) EffectiveAccessTime(hitCost, missCost time.Duration) time.Duration {
	if s.Accesses == 0 {
		return 0
	}
	weighted := s.HitRate()*float64(hitCost) +
		s.FaultRate()*float64(missCost)
	return time.Duration(weighted)
}

func ratio(part, whole uint64) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole)
}
