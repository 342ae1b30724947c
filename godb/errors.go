package godb

import "fmt"

// ErrCode classifies a GoDBError. Every code belongs to exactly one of the
// two error kinds the transactional page cache surfaces to its callers:
// Aborted (the transaction cannot make progress, retry by restarting it)
// or a structural/operational DbError (generally fatal for the statement).
type ErrCode int

const (
	// AbortedError is raised when a transaction cannot make progress, almost
	// always because a PageLock acquisition timed out. The caller's correct
	// response is transactionComplete(tid, commit=false).
	AbortedError ErrCode = iota

	// Structural / operational errors. These are all DbErrors.
	BufferPoolFullError
	PageFullError
	TupleNotFoundError
	MalformedDataError
	TypeMismatchError
	AmbiguousNameError
	IncompatibleTypesError
	NoSuchTableError
	LockNotHeldError
	IOError
)

func (c ErrCode) String() string {
	switch c {
	case AbortedError:
		return "Aborted"
	case BufferPoolFullError:
		return "BufferPoolFullError"
	case PageFullError:
		return "PageFullError"
	case TupleNotFoundError:
		return "TupleNotFoundError"
	case MalformedDataError:
		return "MalformedDataError"
	case TypeMismatchError:
		return "TypeMismatchError"
	case AmbiguousNameError:
		return "AmbiguousNameError"
	case IncompatibleTypesError:
		return "IncompatibleTypesError"
	case NoSuchTableError:
		return "NoSuchTableError"
	case LockNotHeldError:
		return "LockNotHeldError"
	case IOError:
		return "IOError"
	default:
		return "UnknownError"
	}
}

// GoDBError is the godb package's coded error type. It carries a Code so
// callers can branch on the kind of failure without parsing the message.
// Not every error the package returns is a GoDBError: failures from file
// I/O in HeapFile.readPage and HeapFile.flushPage, and some constructor
// and tuple-encoding checks, come back as plain errors, for which both
// IsAborted and IsDbError report false.
type GoDBError struct {
	Code ErrCode
	Msg  string
}

func (e GoDBError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// NewAbortedError builds the error kind raised when a transaction cannot
// make progress. It is what LockManager.acquire returns on a lock-wait
// timeout.
func NewAbortedError(msg string) GoDBError {
	return GoDBError{Code: AbortedError, Msg: msg}
}

// NewDbError builds a structural/operational DbError with the given code.
// An AbortedError code is replaced by IOError, so the result is never the
// Aborted kind.
func NewDbError(code ErrCode, msg string) GoDBError {
	if code == AbortedError {
		code = IOError
	}
	return GoDBError{Code: code, Msg: msg}
}

// IsAborted reports whether err is the Aborted error kind.
func IsAborted(err error) bool {
	ge, ok := err.(GoDBError)
	return ok && ge.Code == AbortedError
}

// IsDbError reports whether err is a structural/operational DbError.
func IsDbError(err error) bool {
	ge, ok := err.(GoDBError)
	return ok && ge.Code != AbortedError
}
