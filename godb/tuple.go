package godb

// Tuple layout: DBType/FieldType/TupleDesc describe a tuple's shape,
// DBValue/IntField/StringField hold its data, and Tuple pairs the two
// together with the recordID it was read from (a heapRecordID, once it
// has been inserted into a page).

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// DBType is the type of a tuple field: IntType or StringType.
type DBType int

const (
	IntType DBType = iota
	StringType
	// UnknownType marks a FieldType whose type isn't known yet, e.g. a
	// projection field named only by its column name.
	UnknownType
)

func (t DBType) String() string {
	switch t {
	case IntType:
		return "int"
	case StringType:
		return "string"
	}
	return "unknown"
}

// FieldType names one field of a tuple: its column name, the table it
// came from (may be empty if unqualified), and its DBType.
type FieldType struct {
	Fname          string
	TableQualifier string
	Ftype          DBType
}

// TupleDesc is the schema of a tuple: an ordered list of its fields.
type TupleDesc struct {
	Fields []FieldType
}

// equals reports whether d1 and d2 have the same fields, in the same
// order, by name and type (TableQualifier is ignored).
func (d1 *TupleDesc) equals(d2 *TupleDesc) bool {
	if len(d1.Fields) != len(d2.Fields) {
		return false
	}
	for i := range d1.Fields {
		if d1.Fields[i].Fname != d2.Fields[i].Fname || d1.Fields[i].Ftype != d2.Fields[i].Ftype {
			return false
		}
	}
	return true
}

// findFieldInTd locates the field in desc that field refers to, preferring
// a match on TableQualifier when field names one. Returns
// AmbiguousNameError if an unqualified name matches more than one field,
// or IncompatibleTypesError if nothing matches.
func findFieldInTd(field FieldType, desc *TupleDesc) (int, error) {
	best := -1
	for i, f := range desc.Fields {
		if f.Fname != field.Fname || (f.Ftype != field.Ftype && field.Ftype != UnknownType) {
			continue
		}
		if field.TableQualifier == "" && best != -1 {
			return 0, GoDBError{AmbiguousNameError, fmt.Sprintf("select name %s is ambiguous", f.Fname)}
		}
		if f.TableQualifier == field.TableQualifier || best == -1 {
			best = i
		}
	}
	if best != -1 {
		return best, nil
	}
	return -1, GoDBError{IncompatibleTypesError, fmt.Sprintf("field %s.%s not found", field.TableQualifier, field.Fname)}
}

// copy returns a TupleDesc holding an independent copy of td's Fields slice.
func (td *TupleDesc) copy() *TupleDesc {
	fields := make([]FieldType, len(td.Fields))
	copy(fields, td.Fields)
	return &TupleDesc{Fields: fields}
}

// setTableAlias rewrites every field's TableQualifier to alias, so a scan
// operator's output can be addressed as alias.column by a later join or
// projection.
func (td *TupleDesc) setTableAlias(alias string) {
	fields := make([]FieldType, len(td.Fields))
	copy(fields, td.Fields)
	for i := range fields {
		fields[i].TableQualifier = alias
	}
	td.Fields = fields
}

// merge returns a new TupleDesc whose fields are desc's fields followed by
// desc2's, used by EqualityJoin to describe its combined output.
func (desc *TupleDesc) merge(desc2 *TupleDesc) *TupleDesc {
	fields := make([]FieldType, 0, len(desc.Fields)+len(desc2.Fields))
	fields = append(fields, desc.Fields...)
	fields = append(fields, desc2.Fields...)
	return &TupleDesc{Fields: fields}
}

// DBValue is a tuple field's value: IntField or StringField.
type DBValue interface {
	EvalPred(v DBValue, op BoolOp) bool
}

// IntField is an int64-valued field.
type IntField struct {
	Value int64
}

// StringField is a fixed-width string field, at most StringLength bytes
// once serialized.
type StringField struct {
	Value string
}

// recordID identifies where a tuple lives within its PageStore. The only
// implementation in this module is heapRecordID.
type recordID interface{}

// Tuple is one row: its schema, field values, and (once read from or
// written to a page) the recordID locating it there.
type Tuple struct {
	Desc   TupleDesc
	Fields []DBValue
	Rid    recordID
}

func writeStringField(b *bytes.Buffer, f StringField) error {
	padded := make([]byte, StringLength)
	copy(padded, []byte(f.Value))
	return binary.Write(b, binary.LittleEndian, padded)
}

func writeIntField(b *bytes.Buffer, f IntField) error {
	return binary.Write(b, binary.LittleEndian, f.Value)
}

// writeTo serializes t's fields, in order, into b. Every field is written
// at its fixed on-disk width (8 bytes for IntType, StringLength bytes for
// StringType), so a tuple's serialized size depends only on its
// TupleDesc, not its contents.
func (t *Tuple) writeTo(b *bytes.Buffer) error {
	for _, field := range t.Fields {
		switch v := field.(type) {
		case StringField:
			if err := writeStringField(b, v); err != nil {
				return err
			}
		case IntField:
			if err := writeIntField(b, v); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unsupported field type: %T", field)
		}
	}
	return nil
}

func readStringField(b *bytes.Buffer) (StringField, error) {
	raw := make([]byte, StringLength)
	if err := binary.Read(b, binary.LittleEndian, raw); err != nil {
		return StringField{}, err
	}
	return StringField{Value: strings.TrimRight(string(raw), "\x00")}, nil
}

func readIntField(b *bytes.Buffer) (IntField, error) {
	var v int64
	if err := binary.Read(b, binary.LittleEndian, &v); err != nil {
		return IntField{}, err
	}
	return IntField{Value: v}, nil
}

// readTupleFrom deserializes one tuple matching desc from b, the inverse
// of writeTo.
func readTupleFrom(b *bytes.Buffer, desc *TupleDesc) (*Tuple, error) {
	tuple := &Tuple{Desc: *desc}
	for _, fd := range desc.Fields {
		switch fd.Ftype {
		case StringType:
			f, err := readStringField(b)
			if err != nil {
				return nil, err
			}
			tuple.Fields = append(tuple.Fields, f)
		default:
			f, err := readIntField(b)
			if err != nil {
				return nil, err
			}
			tuple.Fields = append(tuple.Fields, f)
		}
	}
	return tuple, nil
}

// equals reports whether t1 and t2 have equal schemas and equal fields,
// in order.
func (t1 *Tuple) equals(t2 *Tuple) bool {
	if t1 == nil && t2 == nil {
		return true
	}
	if t1 == nil || t2 == nil {
		return false
	}
	if len(t1.Fields) != len(t2.Fields) || !t1.Desc.equals(&t2.Desc) {
		return false
	}
	for i := range t1.Fields {
		if t1.Fields[i] != t2.Fields[i] {
			return false
		}
	}
	return true
}

// joinTuples concatenates t1's and t2's fields and schemas into a new
// tuple, used by EqualityJoin to build one output row from a matched pair.
// Either side may be nil, in which case the other is returned unchanged.
func joinTuples(t1 *Tuple, t2 *Tuple) *Tuple {
	if t1 == nil {
		return t2
	}
	if t2 == nil {
		return t1
	}
	return &Tuple{
		Desc:   TupleDesc{Fields: append(append([]FieldType{}, t1.Desc.Fields...), t2.Desc.Fields...)},
		Fields: append(append([]DBValue{}, t1.Fields...), t2.Fields...),
	}
}

// orderByState is the result of comparing two field values: less, equal,
// or greater.
type orderByState int

const (
	OrderedLessThan orderByState = iota
	OrderedEqual
	OrderedGreaterThan
)

// compareField evaluates field against t and t2 and compares the two
// results. field is an arbitrary Expr rather than a bare column, so a sort
// or merge-join can order by a computed value as readily as by a column.
func (t *Tuple) compareField(t2 *Tuple, field Expr) (orderByState, error) {
	v1, err := field.EvalExpr(t)
	if err != nil {
		return OrderedEqual, err
	}
	v2, err := field.EvalExpr(t2)
	if err != nil {
		return OrderedEqual, err
	}
	return compareFields(v1, v2)
}

func compareFields(v1, v2 DBValue) (orderByState, error) {
	switch a := v1.(type) {
	case IntField:
		if b, ok := v2.(IntField); ok {
			switch {
			case a.Value > b.Value:
				return OrderedGreaterThan, nil
			case a.Value == b.Value:
				return OrderedEqual, nil
			default:
				return OrderedLessThan, nil
			}
		}
	case StringField:
		if b, ok := v2.(StringField); ok {
			switch {
			case a.Value > b.Value:
				return OrderedGreaterThan, nil
			case a.Value == b.Value:
				return OrderedEqual, nil
			default:
				return OrderedLessThan, nil
			}
		}
	}
	return OrderedEqual, fmt.Errorf("unsupported field comparison between %T and %T", v1, v2)
}

// project returns a new tuple holding just the named fields, in the order
// requested. Each field is matched first on both name and TableQualifier,
// then, failing that, on name alone, taking the first field with that
// name; this lets a join's output be projected by bare column name.
func (t *Tuple) project(fields []FieldType) (*Tuple, error) {
	projected := &Tuple{Desc: TupleDesc{}, Fields: []DBValue{}}
	for _, field := range fields {
		idx := -1
		for i, df := range t.Desc.Fields {
			if field.Fname == df.Fname && field.TableQualifier == df.TableQualifier {
				idx = i
				break
			}
		}
		if idx == -1 {
			for i, df := range t.Desc.Fields {
				if field.Fname == df.Fname {
					idx = i
					break
				}
			}
		}
		if idx == -1 {
			return nil, fmt.Errorf("field %s.%s not found", field.TableQualifier, field.Fname)
		}
		projected.Fields = append(projected.Fields, t.Fields[idx])
		projected.Desc.Fields = append(projected.Desc.Fields, t.Desc.Fields[idx])
	}
	return projected, nil
}

// tupleKey returns a comparable (map-key-safe) encoding of t's fields,
// used by distinct projection and group-by aggregation to detect
// duplicate/equal rows without an O(n) field-by-field comparison.
func (t *Tuple) tupleKey() any {
	var buf bytes.Buffer
	t.writeTo(&buf)
	return buf.String()
}

const prettyPrintWidth = 120

func fmtCol(v string, ncols int) string {
	colWidth := prettyPrintWidth / ncols
	pad := colWidth - (len(v) + 3)
	if pad > 0 {
		left := pad - pad/2
		right := pad / 2
		return strings.Repeat(" ", left) + v + strings.Repeat(" ", right) + " |"
	}
	return " " + v[:colWidth-4] + " |"
}

// HeaderString renders d's field names as a header row, either aligned
// into fixed-width columns or as a comma-separated line.
func (d *TupleDesc) HeaderString(aligned bool) string {
	out := ""
	for i, f := range d.Fields {
		name := f.Fname
		if f.TableQualifier != "" {
			name = f.TableQualifier + "." + name
		}
		if aligned {
			out = fmt.Sprintf("%s %s", out, fmtCol(name, len(d.Fields)))
			continue
		}
		sep := ","
		if i == 0 {
			sep = ""
		}
		out = fmt.Sprintf("%s%s%s", out, sep, name)
	}
	return out
}

// PrettyPrintString renders t's field values, either aligned into
// fixed-width columns or as a comma-separated line.
func (t *Tuple) PrettyPrintString(aligned bool) string {
	out := ""
	for i, field := range t.Fields {
		str := ""
		switch f := field.(type) {
		case IntField:
			str = strconv.FormatInt(f.Value, 10)
		case StringField:
			str = f.Value
		}
		if aligned {
			out = fmt.Sprintf("%s %s", out, fmtCol(str, len(t.Fields)))
			continue
		}
		sep := ","
		if i == 0 {
			sep = ""
		}
		out = fmt.Sprintf("%s%s%s", out, sep, str)
	}
	return out
}
