package types

// Record is an immutable ordered (ColumnDef, Value) projection of one
// tuple (spec §4.6). It is the unit every Index filter cursor and every
// execution Operator emits.
type Record struct {
	Tuple   TupleId
	Columns []ColumnDef
	Values  []Value
}

// NewRecord builds a Record, panicking if columns and values disagree in
// length (a programmer error at every call site, never a runtime
// condition driven by stored data).
func NewRecord(tuple TupleId, columns []ColumnDef, values []Value) Record {
	if len(columns) != len(values) {
		panic("types: NewRecord: columns/values length mismatch")
	}
	return Record{Tuple: tuple, Columns: columns, Values: values}
}

// Get returns the value of the named column, and whether that column is
// present in the record.
func (r Record) Get(column string) (Value, bool) {
	for i, c := range r.Columns {
		if c.Name() == column {
			return r.Values[i], true
		}
	}
	return nil, false
}

// RecordCursor is a pull-based, one-directional sequence of Records
// returned by Index.Filter and every execution-tree source Operator. Next
// returns (Record{}, false, nil) once exhausted.
type RecordCursor interface {
	Next() (Record, bool, error)
}

// RecordSlice adapts a fully materialized []Record into a RecordCursor,
// used by index variants whose filter already holds every candidate in
// memory (GG, LSH, PQ's re-ranked result) before returning it.
type RecordSlice struct {
	records []Record
	pos     int
}

func NewRecordSlice(records []Record) *RecordSlice { return &RecordSlice{records: records} }

func (s *RecordSlice) Next() (Record, bool, error) {
	if s.pos >= len(s.records) {
		return Record{}, false, nil
	}
	r := s.records[s.pos]
	s.pos++
	return r, true, nil
}
