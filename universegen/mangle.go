package universegen

import (
	"fmt"
	"strings"
)

// mangleFieldPath joins dotted path segments with a literal "__", grounded
// on output_field_path_sequence in the original: "owner.id" -> "owner__id".
func mangleFieldPath(dottedPath string) string {
	segments := strings.Split(dottedPath, ".")
	return strings.Join(segments, "__")
}

// categoryFieldType and categoryFieldPrefix describe the generated
// struct-field declaration for every category, grounded line-for-line on
// output_generate_state_queries.
var categoryFieldType = map[category]string{
	catSingletonRead:  "kan_repository_singleton_read_query_t",
	catSingletonWrite: "kan_repository_singleton_write_query_t",
	catInsert:         "kan_repository_indexed_insert_query_t",
	catSequenceRead:   "kan_repository_indexed_sequence_read_query_t",
	catSequenceUpdate: "kan_repository_indexed_sequence_update_query_t",
	catSequenceDelete: "kan_repository_indexed_sequence_delete_query_t",
	catSequenceWrite:  "kan_repository_indexed_sequence_write_query_t",
	catValueRead:      "kan_repository_indexed_value_read_query_t",
	catValueUpdate:    "kan_repository_indexed_value_update_query_t",
	catValueDelete:    "kan_repository_indexed_value_delete_query_t",
	catValueWrite:     "kan_repository_indexed_value_write_query_t",
	catSignalRead:     "kan_repository_indexed_signal_read_query_t",
	catSignalUpdate:   "kan_repository_indexed_signal_update_query_t",
	catSignalDelete:   "kan_repository_indexed_signal_delete_query_t",
	catSignalWrite:    "kan_repository_indexed_signal_write_query_t",
	catIntervalRead:   "kan_repository_indexed_interval_read_query_t",
	catIntervalUpdate: "kan_repository_indexed_interval_update_query_t",
	catIntervalDelete: "kan_repository_indexed_interval_delete_query_t",
	catIntervalWrite:  "kan_repository_indexed_interval_write_query_t",
	catEventInsert:    "kan_repository_event_insert_query_t",
	catEventFetch:     "kan_repository_event_fetch_query_t",
}

var categoryFieldPrefix = map[category]string{
	catSingletonRead:  "read__",
	catSingletonWrite: "write__",
	catInsert:         "insert__",
	catSequenceRead:   "read_sequence__",
	catSequenceUpdate: "update_sequence__",
	catSequenceDelete: "delete_sequence__",
	catSequenceWrite:  "write_sequence__",
	catValueRead:      "read_value__",
	catValueUpdate:    "update_value__",
	catValueDelete:    "delete_value__",
	catValueWrite:     "write_value__",
	catSignalRead:     "read_signal__",
	catSignalUpdate:   "update_signal__",
	catSignalDelete:   "delete_signal__",
	catSignalWrite:    "write_signal__",
	catIntervalRead:   "read_interval__",
	catIntervalUpdate: "update_interval__",
	catIntervalDelete: "delete_interval__",
	catIntervalWrite:  "write_interval__",
	catEventInsert:    "insert__",
	catEventFetch:     "fetch__",
}

// simpleFieldName builds "read__TypeA" / "insert__TypeA" / "fetch__TypeA".
func simpleFieldName(cat category, typeName string) string {
	return categoryFieldPrefix[cat] + typeName
}

// valueFieldName builds "read_value__Widget__owner__id".
func valueFieldName(cat category, key fieldQueryKey) string {
	return fmt.Sprintf("%s%s__%s", categoryFieldPrefix[cat], key.typeName, mangleFieldPath(key.fieldPath))
}

// signalFieldName builds "read_signal__Widget__owner__id__1".
func signalFieldName(cat category, key fieldQueryKey) string {
	return fmt.Sprintf("%s%s__%s__%s", categoryFieldPrefix[cat], key.typeName, mangleFieldPath(key.fieldPath), key.signalValue)
}
