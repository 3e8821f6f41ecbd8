package universegen

import "fmt"

// openSimple renders the opening boilerplate for a singleton/insert/event
// query (no cursor loop), grounded on output_singleton_begin /
// output_indexed_insert_begin / output_event_insert_begin in the original.
func openSimple(n, typeName, fieldName, boundPath string, q queryType) string {
	switch {
	case q.isSingleton():
		access := q.accessWord()
		return fmt.Sprintf(
			"kan_repository_singleton_%s_access_t %s_access = kan_repository_singleton_%s_query_access (&%s->%s);\n"+
				"%sstruct %s *%s = kan_repository_singleton_%s_access_resolve (%s_access);\n"+
				"kan_bool_t %s_access_expired = KAN_FALSE;\n",
			access, n, access, boundPath, fieldName,
			q.constPrefixWord(), typeName, n, access, n, n)
	case q == qIndexedInsert:
		return fmt.Sprintf(
			"kan_repository_indexed_insertion_package_t %s_package = kan_repository_indexed_insert_query_insert (&%s->%s);\n"+
				"struct %s *%s = kan_repository_indexed_insertion_package_get (&%s_package);\n",
			n, boundPath, fieldName, typeName, n, n)
	case q == qEventInsert:
		return fmt.Sprintf(
			"kan_repository_event_insertion_package_t %s_package = kan_repository_event_insert_query_insert (&%s->%s);\n"+
				"struct %s *%s = kan_repository_event_insertion_package_get (&%s_package);\n",
			n, boundPath, fieldName, typeName, n, n)
	}
	return ""
}

// closeSimple renders the closing boilerplate paired with openSimple. The
// caller writes the literal '}' separately; isSingleton() queries have no
// tail beyond that brace.
func closeSimple(n string, q queryType) string {
	switch {
	case q.isSingleton():
		access := q.accessWord()
		return fmt.Sprintf("if (!%s_access_expired) { kan_repository_singleton_%s_access_close (%s_access); }\n", n, access, n)
	case q == qIndexedInsert:
		return fmt.Sprintf("kan_repository_indexed_insertion_package_submit (&%s_package);\n", n)
	case q == qEventInsert:
		return fmt.Sprintf("kan_repository_event_insertion_package_submit (&%s_package);\n", n)
	}
	return ""
}

// openCursor renders the opening boilerplate for every cursor-based
// (iteration) query family: sequence, value, signal, interval, event fetch.
// executeArgs is the already-formatted argument list passed to
// `..._query_execute`, e.g. "" for sequence, "u\"owner__id\"" style literals
// for value/signal, or the interval bounds for interval queries.
func openCursor(n, typeName, fieldName, boundPath string, q queryType, executeArgs string) string {
	kind := q.indexedKind()
	access := q.accessWord()
	dir := q.directionDropIn()
	var queryCallKind string
	switch kind {
	case "sequence":
		queryCallKind = "sequence"
	case "value":
		queryCallKind = "value"
	case "signal":
		queryCallKind = "signal"
	case "interval":
		queryCallKind = "interval"
	default:
		queryCallKind = "event"
	}

	execCall := fmt.Sprintf("kan_repository_indexed_%s_%s_query_execute (&%s->%s%s)",
		queryCallKind, access, boundPath, fieldName, executeArgs)
	if q == qEventFetch {
		execCall = fmt.Sprintf("kan_repository_event_fetch_query_fetch (&%s->%s)", boundPath, fieldName)
	}

	return fmt.Sprintf(
		"kan_repository_indexed_%s_%s_cursor_t %s_cursor = %s;\n"+
			"while (KAN_TRUE)\n{\n"+
			"kan_repository_indexed_%s_%s_access_t %s_access = kan_repository_indexed_%s_%s%s_cursor_next (&%s_cursor);\n"+
			"%sstruct %s *%s = kan_repository_indexed_%s_%s_access_resolve (%s_access);\n"+
			"kan_bool_t %s_access_expired = KAN_FALSE;\n"+
			"if (%s)\n",
		queryCallKind, access, n, execCall,
		queryCallKind, access, n, queryCallKind, dir, access, n,
		q.constPrefixWord(), typeName, n, queryCallKind, access, n,
		n,
		n)
}

// closeCursorBody renders the body-close boilerplate (the access close)
// for a popped iteration query; closeCursorTail renders the else-tail. The
// caller writes the literal '}' between the two halves (spec §4.2.3):
// body close, then this brace, then the tail which closes the synthetic
// while(true) with its own trailing '}'.
func closeCursorBody(n string, q queryType) string {
	kind := q.indexedKind()
	access := q.accessWord()
	return fmt.Sprintf("if (!%s_access_expired) { kan_repository_indexed_%s_%s_access_close (%s_access); }\n", n, kind, access, n)
}

func closeCursorTail(n string, q queryType) string {
	kind := q.indexedKind()
	access := q.accessWord()
	dir := q.directionDropIn()
	return fmt.Sprintf(
		"else\n{\n"+
			"kan_repository_indexed_%s_%s%s_cursor_close (&%s_cursor);\nbreak;\n}\n}\n",
		kind, dir, access, n)
}
