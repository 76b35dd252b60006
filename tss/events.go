package tss

// InvalidatedReason names why the coordinator could no longer guarantee
// convergence.
type InvalidatedReason string

const (
	// ReasonLateAuthoritative fires when an authoritative command or
	// removal arrives for a frame already older than the trailing
	// simulation.
	ReasonLateAuthoritative InvalidatedReason = "late_authoritative"
	// ReasonRewindFailed fires when no slot in the array is shallow enough
	// to rewind to the requested frame.
	ReasonRewindFailed InvalidatedReason = "rewind_failed"
	// ReasonExplicit fires when Invalidate is called directly by a host.
	ReasonExplicit InvalidatedReason = "explicit"
)

// InvalidatedHandler is notified synchronously, on the thread that caused
// the invalidation, before the triggering call returns (spec §9 "Event
// delivery").
type InvalidatedHandler func(reason InvalidatedReason)
