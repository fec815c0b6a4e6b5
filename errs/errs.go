// Package errs holds the sentinel error kinds shared by storage, index and
// table. Callers should match with errors.Is; lower layers wrap these with
// fmt.Errorf("...: %w", ...) to attach positional context.
package errs

import "errors"

var (
	// ErrSchemaMismatch is raised by PageDirectory.AddRecord when the
	// supplied column slice does not match the expected meta+data width.
	ErrSchemaMismatch = errors.New("lstore: schema mismatch")

	// ErrTailRangeFull is raised by PageDirectory.AddRecord when a tail
	// segment has reached RECORDS_PER_RANGE and a merge is required.
	ErrTailRangeFull = errors.New("lstore: tail range full")

	// ErrRecordDeleted is raised by PageDirectory.GetRecord when the base
	// record's indirection slot holds the DELETED sentinel.
	ErrRecordDeleted = errors.New("lstore: record deleted")

	// ErrOutOfBounds is raised by Page.Read, Page.WriteSlot and
	// Page.ReadRange on an invalid slot or range.
	ErrOutOfBounds = errors.New("lstore: out of bounds")

	// ErrInvalidColumn is raised by Index Manager.CreateIndex on a column
	// index outside [0, numColumns). DropIndex reports such a column as a
	// false return instead.
	ErrInvalidColumn = errors.New("lstore: invalid column")

	// ErrKeyExists names the caller-side duplicate-primary-key failure. The
	// query engine checks primary-key uniqueness before writing and reports
	// a duplicate as a false return from Insert, without touching storage;
	// no package currently returns this value.
	ErrKeyExists = errors.New("lstore: key exists")

	// ErrPageFull is returned by Page.Append once num_records reaches
	// SLOTS_PER_PAGE; the caller allocates a new logical page.
	ErrPageFull = errors.New("lstore: page full")
)
