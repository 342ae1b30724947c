package godb

import (
	"fmt"
	"sync/atomic"
)

// PageSize is the fixed size, in bytes, of every page. It is process-global
// and must not change for the lifetime of a persisted heap file.
var PageSize = 4096

// StringLength is the fixed on-disk width, in bytes, of a StringType field.
const StringLength = 32

// PageID identifies a page within the storage engine: the table it belongs
// to and its offset within that table's backing file. Equality and hashing
// are structural (PageID is a plain comparable struct), so it can be used
// directly as a map key.
type PageID struct {
	TableID    int
	PageNumber int
}

func (p PageID) String() string {
	return fmt.Sprintf("page(table=%d,no=%d)", p.TableID, p.PageNumber)
}

// TransactionID is a process-unique opaque token identifying one
// transaction. Two TransactionIDs are equal iff they were produced by the
// same NewTransactionID call; the zero value is never issued so it can be
// used as a "no transaction" sentinel by callers that need one.
type TransactionID struct {
	id int64
}

var tidCounter int64

// NewTransactionID mints a fresh, process-unique TransactionID. A
// transaction is considered active from the first call that uses the
// returned ID until transactionComplete is invoked on it.
func NewTransactionID() TransactionID {
	return TransactionID{id: atomic.AddInt64(&tidCounter, 1)}
}

func (t TransactionID) String() string {
	return fmt.Sprintf("txn(%d)", t.id)
}
