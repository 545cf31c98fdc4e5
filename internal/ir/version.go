package ir

// Version constants recorded with every op.
const (
	// FormatVersion is the op and snapshot record format version.
	FormatVersion = "1"

	// EngineVersion is the tagtree engine version.
	EngineVersion = "0.1.0"
)
