package simcontract

// SystemKind distinguishes presentation-only systems, installed only in the
// leading slot, from logic systems that must run identically across every
// slot in the simulation array (spec §4.6).
type SystemKind int

const (
	// SystemLogic must be cloned into every simulation slot so its effects
	// stay bit-identical across the array.
	SystemLogic SystemKind = iota
	// SystemPresentation ("drawing system") is installed only in the
	// leading slot, so it never reaches a trailing replica or its hash.
	SystemPresentation
)

// System is installed once, at startup, before any frame has advanced.
type System struct {
	Name string
	Kind SystemKind
}

// SystemHost is implemented by simulations that support runtime system
// installation distinct from their core Step loop. A simulation that
// doesn't implement it simply never receives installed systems; the
// facade's startup-only timing rule is still enforced regardless.
type SystemHost interface {
	InstallSystem(sys System) error
}
