package godb

import "fmt"

// BoolOp is a comparison operator usable both by [Filter] predicates and by
// [stats.TableStats]-style selectivity estimators.
type BoolOp int

const (
	OpEq BoolOp = iota
	OpNeq
	OpGt
	OpGe
	OpLt
	OpLe
	OpLike
)

func (op BoolOp) String() string {
	switch op {
	case OpEq:
		return "="
	case OpNeq:
		return "!="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpLike:
		return "LIKE"
	default:
		return "?"
	}
}

// EvalPred compares two IntFields using op.
func (f IntField) EvalPred(v DBValue, op BoolOp) bool {
	other, ok := v.(IntField)
	if !ok {
		return false
	}
	switch op {
	case OpEq:
		return f.Value == other.Value
	case OpNeq:
		return f.Value != other.Value
	case OpGt:
		return f.Value > other.Value
	case OpGe:
		return f.Value >= other.Value
	case OpLt:
		return f.Value < other.Value
	case OpLe:
		return f.Value <= other.Value
	default:
		return false
	}
}

// EvalPred compares two StringFields using op.
func (f StringField) EvalPred(v DBValue, op BoolOp) bool {
	other, ok := v.(StringField)
	if !ok {
		return false
	}
	switch op {
	case OpEq:
		return f.Value == other.Value
	case OpNeq:
		return f.Value != other.Value
	case OpGt:
		return f.Value > other.Value
	case OpGe:
		return f.Value >= other.Value
	case OpLt:
		return f.Value < other.Value
	case OpLe:
		return f.Value <= other.Value
	case OpLike:
		return containsSubstring(f.Value, other.Value)
	default:
		return false
	}
}

func containsSubstring(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

// Expr is something that can be evaluated against a tuple to produce a
// DBValue: a field reference, a constant, or (in principle) an arbitrary
// computed expression. Operators (Filter, Project, OrderBy, Join) are
// written against this interface rather than against bare field names.
type Expr interface {
	EvalExpr(t *Tuple) (DBValue, error)
	GetExprType() FieldType
}

// FieldExpr extracts a named field from a tuple.
type FieldExpr struct {
	selectField FieldType
}

func NewFieldExpr(ft FieldType) *FieldExpr {
	return &FieldExpr{selectField: ft}
}

func (fe *FieldExpr) EvalExpr(t *Tuple) (DBValue, error) {
	idx, err := findFieldInTd(fe.selectField, &t.Desc)
	if err != nil {
		return nil, err
	}
	return t.Fields[idx], nil
}

func (fe *FieldExpr) GetExprType() FieldType {
	return fe.selectField
}

// ConstExpr always evaluates to the same value, independent of the tuple
// (including a nil tuple, as used by LimitOp to evaluate its constant
// bound once up front).
type ConstExpr struct {
	val      DBValue
	exprType DBType
}

func NewConstExpr(val DBValue, t DBType) *ConstExpr {
	return &ConstExpr{val: val, exprType: t}
}

func (ce *ConstExpr) EvalExpr(t *Tuple) (DBValue, error) {
	return ce.val, nil
}

func (ce *ConstExpr) GetExprType() FieldType {
	return FieldType{Fname: fmt.Sprintf("%v", ce.val), Ftype: ce.exprType}
}
