package godb

// Operator is the capability set shared by every node of the query
// operator tree (scan, filter, join, aggregate, insert, delete, project,
// order by, limit): a way to describe its output shape and a way to
// iterate its output. Operators consume the BufferPool surface but sit
// outside it; this package does not prescribe a particular tree-node
// memory layout beyond this interface.
type Operator interface {
	// Descriptor returns the TupleDesc of the tuples this operator produces.
	Descriptor() *TupleDesc

	// Iterator returns a function that yields successive tuples, or (nil,
	// nil) once exhausted. tid scopes every page access the operator's
	// subtree performs to one transaction.
	Iterator(tid TransactionID) (func() (*Tuple, error), error)
}
