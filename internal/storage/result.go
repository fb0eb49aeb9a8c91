package storage

import "fmt"

// OperationResult reports the outcome of a mutating statement. Success is
// false exactly when Error is non-empty.
type OperationResult struct {
	Success      bool   `json:"success"`
	RowsAffected int64  `json:"rows_affected"`
	Error        string `json:"error,omitempty"`
}

// Succeeded builds a successful result.
func Succeeded(rowsAffected int64) OperationResult {
	return OperationResult{Success: true, RowsAffected: rowsAffected}
}

// Failed builds a failed result from err. A nil error still yields a failed
// result with a generic message so the invariant holds.
func Failed(err error) OperationResult {
	msg := "unknown error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return OperationResult{Success: false, Error: msg}
}

func (r OperationResult) String() string {
	if r.Success {
		return fmt.Sprintf("ok (%d rows affected)", r.RowsAffected)
	}
	return "failed: " + r.Error
}
