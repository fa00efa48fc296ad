package arbiter

import "errors"

type (
	// Report summarizes contention outcomes.
	Report struct {
		PerRequester []RequesterReport
		Acquisitions uint64
		Timeouts     uint64
		// Unmet counts requested acquisitions that were given up
		// on after repeated timeouts. Only [Dine] fills it in.
		Unmet uint64
	}
	// RequesterReport is the share of a [Report] for one requester.
	RequesterReport struct {
		Acquisitions uint64
		Timeouts     uint64
		Unmet        uint64
	}
)

// Report returns the counters accumulated since construction or [Arbiter.Reset].
func (a *Arbiter) Report() Report {
	report := Report{
		PerRequester: make([]RequesterReport, len(a.requesters)),
	}
	for i := range a.requesters {
		var (
			r            = &a.requesters[i]
			acquisitions = r.acquisitions.Load()
			timeouts     = r.timeouts.Load()
		)
		report.PerRequester[i] = RequesterReport{
			Acquisitions: acquisitions,
			Timeouts:     timeouts,
		}
		report.Acquisitions += acquisitions
		report.Timeouts += timeouts
	}
	return report
}

func isTimeout(err error) bool { return errors.Is(err, ErrAcquisitionTimeout) }
