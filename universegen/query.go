// Package universegen implements the two-pass KAN_UP_* macro expander: a
// scan phase that discovers which repository queries each bound state
// needs, and an emission phase that materializes query-field declarations
// and the imperative control flow around them.
package universegen

// category identifies one of the repository query families a KAN_UP_*
// macro can open. Grounded on the original's per-category dynamic-array
// fields in struct scanned_state_t.
type category int

const (
	catSingletonRead category = iota
	catSingletonWrite
	catInsert
	catSequenceRead
	catSequenceUpdate
	catSequenceDelete
	catSequenceWrite
	catValueRead
	catValueUpdate
	catValueDelete
	catValueWrite
	catSignalRead
	catSignalUpdate
	catSignalDelete
	catSignalWrite
	catIntervalRead
	catIntervalUpdate
	catIntervalDelete
	catIntervalWrite
	catEventInsert
	catEventFetch
)

// categoryOrder is the fixed field-declaration order KAN_UP_GENERATE_STATE_QUERIES
// walks, mirrored from the original state struct's field order.
var categoryOrder = []category{
	catSingletonRead, catSingletonWrite, catInsert,
	catSequenceRead, catSequenceUpdate, catSequenceDelete, catSequenceWrite,
	catValueRead, catValueUpdate, catValueDelete, catValueWrite,
	catSignalRead, catSignalUpdate, catSignalDelete, catSignalWrite,
	catIntervalRead, catIntervalUpdate, catIntervalDelete, catIntervalWrite,
	catEventInsert, catEventFetch,
}

// queryType is the runtime tag attached to a QueryStackNode (spec §3.2),
// one for every access/direction variant of every category.
type queryType int

const (
	qSingletonRead queryType = iota
	qSingletonWrite
	qIndexedInsert
	qSequenceRead
	qSequenceUpdate
	qSequenceDelete
	qSequenceWrite
	qValueRead
	qValueUpdate
	qValueDelete
	qValueWrite
	qSignalRead
	qSignalUpdate
	qSignalDelete
	qSignalWrite
	qIntervalAscendingRead
	qIntervalAscendingUpdate
	qIntervalAscendingDelete
	qIntervalAscendingWrite
	qIntervalDescendingRead
	qIntervalDescendingUpdate
	qIntervalDescendingDelete
	qIntervalDescendingWrite
	qEventInsert
	qEventFetch
)

// isIterationQuery reports whether q opens a while(true) cursor loop that
// the closing `}` must also terminate (spec §4.2.3): everything except
// singleton access and package insertion.
func (q queryType) isIterationQuery() bool {
	switch q {
	case qSingletonRead, qSingletonWrite, qIndexedInsert, qEventInsert:
		return false
	default:
		return true
	}
}

func (q queryType) isSingleton() bool {
	return q == qSingletonRead || q == qSingletonWrite
}

// accessWord returns the "read"/"update"/"delete"/"write" token used both
// in query-field names and in emitted repository API calls.
func (q queryType) accessWord() string {
	switch q {
	case qSingletonRead, qSequenceRead, qValueRead, qSignalRead,
		qIntervalAscendingRead, qIntervalDescendingRead:
		return "read"
	case qSingletonWrite, qSequenceWrite, qValueWrite, qSignalWrite,
		qIntervalAscendingWrite, qIntervalDescendingWrite:
		return "write"
	case qSequenceUpdate, qValueUpdate, qSignalUpdate,
		qIntervalAscendingUpdate, qIntervalDescendingUpdate:
		return "update"
	case qSequenceDelete, qValueDelete, qSignalDelete,
		qIntervalAscendingDelete, qIntervalDescendingDelete:
		return "delete"
	}
	return ""
}

// constPrefixWord returns "const " for read/delete accesses, matching the
// original's if_const parameter (delete needs a resolvable-but-read-only
// pointer since deletion does not mutate fields through it).
func (q queryType) constPrefixWord() string {
	switch q {
	case qSingletonRead, qSequenceRead, qSequenceDelete, qValueRead, qValueDelete,
		qSignalRead, qSignalDelete, qIntervalAscendingRead, qIntervalAscendingDelete,
		qIntervalDescendingRead, qIntervalDescendingDelete:
		return "const "
	}
	return ""
}

func (q queryType) indexedKind() string {
	switch q {
	case qSequenceRead, qSequenceUpdate, qSequenceDelete, qSequenceWrite:
		return "sequence"
	case qValueRead, qValueUpdate, qValueDelete, qValueWrite:
		return "value"
	case qSignalRead, qSignalUpdate, qSignalDelete, qSignalWrite:
		return "signal"
	case qIntervalAscendingRead, qIntervalAscendingUpdate, qIntervalAscendingDelete, qIntervalAscendingWrite,
		qIntervalDescendingRead, qIntervalDescendingUpdate, qIntervalDescendingDelete, qIntervalDescendingWrite:
		return "interval"
	}
	return ""
}

// directionDropIn returns the text fragment the original splices between
// the kind and access words in a cursor_close/cursor_next call
// ("ascending_"/"descending_" for interval, "" otherwise).
func (q queryType) directionDropIn() string {
	switch q {
	case qIntervalAscendingRead, qIntervalAscendingUpdate, qIntervalAscendingDelete, qIntervalAscendingWrite:
		return "ascending_"
	case qIntervalDescendingRead, qIntervalDescendingUpdate, qIntervalDescendingDelete, qIntervalDescendingWrite:
		return "descending_"
	}
	return ""
}

func (q queryType) direction() string {
	switch q {
	case qIntervalAscendingRead, qIntervalAscendingUpdate, qIntervalAscendingDelete, qIntervalAscendingWrite:
		return "ascending"
	case qIntervalDescendingRead, qIntervalDescendingUpdate, qIntervalDescendingDelete, qIntervalDescendingWrite:
		return "descending"
	}
	return ""
}
