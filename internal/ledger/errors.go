package ledger

import "fmt"

// ErrorCode is a stable, machine-readable error tag.
type ErrorCode string

// Stable, machine-readable error codes returned to API callers.
const (
	CodeValidationError     ErrorCode = "VALIDATION_ERROR"
	CodeInvalidHeight       ErrorCode = "INVALID_HEIGHT"
	CodeSumMismatch         ErrorCode = "SUM_MISMATCH"
	CodeDoubleSpend         ErrorCode = "DOUBLE_SPEND"
	CodeAlreadySpent        ErrorCode = "ALREADY_SPENT"
	CodeNonexistentOutput   ErrorCode = "NONEXISTENT_OUTPUT"
	CodeInvalidBlockID      ErrorCode = "INVALID_BLOCK_ID"
	CodeInvalidTarget       ErrorCode = "INVALID_TARGET"
	CodeInternalServerError ErrorCode = "INTERNAL_SERVER_ERROR"
)

// Error is a tagged sum of error kinds. HTTP status is a pure function of
// Code (see HTTPStatus), never a field stored on the error itself.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string { return e.Message }

// HTTPStatus derives the response status from Code. Only internal errors
// are 500; every validation or not-found kind is 400.
func (e *Error) HTTPStatus() int {
	if e.Code == CodeInternalServerError {
		return 500
	}
	return 400
}

func newError(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func errInvalidHeight(expected, actual int64) *Error {
	return newError(CodeInvalidHeight, "Expected %d, got %d", expected, actual)
}

func errSumMismatch(txID string, inputSum, outputSum int64) *Error {
	return newError(CodeSumMismatch, "Transaction %s: Inputs: %d, Outputs: %d", txID, inputSum, outputSum)
}

func errDoubleSpend(refTx string, refIdx int64) *Error {
	return newError(CodeDoubleSpend, "Output %s:%d is referenced by more than one input in this block", refTx, refIdx)
}

func errAlreadySpent(refTx string, refIdx int64) *Error {
	return newError(CodeAlreadySpent, "Output %s:%d is already spent", refTx, refIdx)
}

func errNonexistentOutput(refTx string, refIdx int64) *Error {
	return newError(CodeNonexistentOutput, "Output %s:%d does not exist", refTx, refIdx)
}

func errInvalidBlockID(expected, actual string) *Error {
	return newError(CodeInvalidBlockID, "Expected block id %s, got %s", expected, actual)
}

func errInvalidTarget(target int64) *Error {
	return newError(CodeInvalidTarget, "rollback target height must be >= 0, got %d", target)
}

// ErrValidation builds a VALIDATION_ERROR for missing/malformed request
// data (missing query parameter, empty path segment) — not a ledger
// invariant failure.
func ErrValidation(format string, args ...interface{}) *Error {
	return newError(CodeValidationError, format, args...)
}

func errInternal(err error) *Error {
	return newError(CodeInternalServerError, "internal error: %v", err)
}
