package hash

// ---------------------------------------------------------------------------
// Frozen tag bytes for the hashing tree serialization format.
//
// IMPORTANT: These tags are FROZEN. Once assigned, a tag byte must never
// change meaning. Adding new tags is fine; changing existing ones breaks
// every cached artifact keyed by a previously computed hash.
// ---------------------------------------------------------------------------

// HashVersion is the version prefix for the serialization format.
// Bumping this invalidates all existing content hashes.
const HashVersion byte = 1

// Node kind tags.
const (
	TagReservedZero byte = 0x00 // version prefix / reserved

	TagProgram byte = 0x01
	TagLiteral byte = 0x02

	// Reserved 0x03-0x0F

	TagAdd byte = 0x10
	TagMul byte = 0x11
	TagPow byte = 0x12

	// Reserved 0xFE-0xFF
)

// allTags lists every defined tag for uniqueness verification in tests.
var allTags = []byte{
	TagReservedZero,
	TagProgram, TagLiteral,
	TagAdd, TagMul, TagPow,
}
