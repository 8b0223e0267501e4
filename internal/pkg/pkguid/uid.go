package pkguid

// StringID generates unique string identifiers. Transfer runs are keyed by
// these.
type StringID interface {
	// Generate generates a unique identifier as a string.
	Generate() string
}

// NumberID generates unique numeric identifiers. Progress events carry one so
// sinks can de-duplicate.
type NumberID interface {
	// Generate generates a unique identifier as a uint64 number.
	Generate() int64
}
