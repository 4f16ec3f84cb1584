// Package progress implements the named-phase progress multiplexing the
// controller (C11) uses to report run state to its caller (spec.md §4.11,
// §5).
package progress

// Update is one progress tick: a named phase and its completion percent.
type Update struct {
	Phase   string
	Percent int
}

// Reporter fans phase-local percentages out to a single overall channel.
// Not safe for concurrent Report calls from multiple phases at once — the
// controller runs phases in sequence (spec.md §5: "single-threaded
// cooperative from the caller's standpoint").
type Reporter struct {
	ch chan Update
}

// NewReporter creates a Reporter whose Updates() channel has the given
// buffer depth.
func NewReporter(buffer int) *Reporter {
	return &Reporter{ch: make(chan Update, buffer)}
}

// Updates returns the channel callers drain on their own goroutine.
func (r *Reporter) Updates() <-chan Update { return r.ch }

// Report emits one update for the named phase. Non-blocking: if the
// caller isn't draining, the oldest buffered update is dropped rather than
// stalling the render.
func (r *Reporter) Report(phase string, percent int) {
	select {
	case r.ch <- Update{Phase: phase, Percent: percent}:
	default:
		select {
		case <-r.ch:
		default:
		}
		select {
		case r.ch <- Update{Phase: phase, Percent: percent}:
		default:
		}
	}
}

// RowTicker returns a callback suitable for passing to hillshade.Compute or
// similar row-oriented stages: it reports done*100/total on every call, so
// the stage decides the cadence (hillshade.Compute calls it every total/10
// rows, spec.md §5).
func (r *Reporter) RowTicker(phase string) func(done, total int) {
	return func(done, total int) {
		if total <= 0 {
			return
		}
		r.Report(phase, done*100/total)
	}
}

// Close closes the underlying channel; callers must stop draining after
// this returns.
func (r *Reporter) Close() { close(r.ch) }
