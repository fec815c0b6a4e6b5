// Package config holds the compile-time layout constants of the storage
// engine. None of these reload at runtime; changing one changes the wire
// format.
package config

const (
	// PageSize is the fixed byte size of one physical page.
	PageSize = 4096

	// IntSize is the width in bytes of one column value (signed int64).
	IntSize = 8

	// SlotsPerPage is the number of int64 slots a page holds.
	SlotsPerPage = PageSize / IntSize

	// PagesPerRange is the number of logical pages a base or tail segment
	// holds before it is considered full.
	PagesPerRange = 16

	// RecordsPerRange is the base (and tail) record capacity of one range.
	RecordsPerRange = PagesPerRange * SlotsPerPage

	// RangeCap reserves one RecordsPerRange block for the base segment and
	// one for the tail segment of every range, in RID space.
	RangeCap = 2 * RecordsPerRange

	// BaseMeta is the number of leading meta columns on a base record:
	// indirection, rid, timestamp, schema_encoding.
	BaseMeta = 4

	// TailMeta is the number of leading meta columns on a tail record:
	// indirection, rid, timestamp, schema_encoding, base_rid.
	TailMeta = 5

	// InitialRanges is the nominal initial range count. NewPageDirectory
	// does not read it: it pre-allocates no range and creates each range
	// on its first write.
	InitialRanges = 1

	// Null is the sentinel meaning "no value" / "unchanged in this tail".
	Null int64 = -(1 << 63)

	// Deleted is the sentinel written into a base record's indirection
	// slot to mark a logical delete.
	Deleted int64 = -1

	// BTreeOrder is the default order of the B+ tree index (max m-1 keys
	// per node before a split).
	BTreeOrder = 32
)

// Meta-column indices, shared by base and tail records. Part of the
// on-wire layout; never parameters.
const (
	ColIndirection    = 0
	ColRID            = 1
	ColTimestamp      = 2
	ColSchemaEncoding = 3
	ColBaseRID        = 4 // tail records only
)

// Segment tags encoded into a RID.
const (
	SegmentBase = 0
	SegmentTail = 1
)
