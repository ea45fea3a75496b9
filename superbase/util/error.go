package util

import (
	"errors"
	"fmt"
)

type ErrorNo uint32

const (
	ErrOk ErrorNo = iota
	ErrUnknown
	ErrReadFileFailed
	ErrWriteFileFailed
	ErrInvalidFieldValue

	// format errors, fatal to the table they occur in
	ErrTruncatedHeader
	ErrInvalidBlockSize
	ErrDanglingBlockReference
	ErrCycleDetected
	ErrUnknownFieldTag
	ErrTruncatedField
	ErrUnterminatedField
	ErrEmptySchema
	ErrInvalidSchema

	// pairing errors, the table is skipped
	ErrMissingPair

	// not an error: the trailing chunk of a file was shorter than a block
	ErrShortTrailingBlock
	ErrBlockCountMismatch
)

var errorNames = map[ErrorNo]string{
	ErrOk:                     "ok",
	ErrUnknown:                "unknown error",
	ErrReadFileFailed:         "read failed",
	ErrWriteFileFailed:        "write failed",
	ErrInvalidFieldValue:      "invalid field value",
	ErrTruncatedHeader:        "truncated header",
	ErrInvalidBlockSize:       "invalid block size",
	ErrDanglingBlockReference: "dangling block reference",
	ErrCycleDetected:          "cycle detected",
	ErrUnknownFieldTag:        "unknown field tag",
	ErrTruncatedField:         "truncated field",
	ErrUnterminatedField:      "unterminated field",
	ErrEmptySchema:            "empty schema",
	ErrInvalidSchema:          "invalid schema",
	ErrMissingPair:            "missing pair",
	ErrShortTrailingBlock:     "short trailing block",
	ErrBlockCountMismatch:     "block count mismatch",
}

func (no ErrorNo) String() string {
	if name, ok := errorNames[no]; ok {
		return name
	}
	return fmt.Sprintf("ErrorNo(%d)", uint32(no))
}

type SuperbaseError struct {
	errorNo ErrorNo
	msg     string
}

func NewSuperbaseError(errNo ErrorNo, msg string, args ...any) *SuperbaseError {
	return &SuperbaseError{
		errorNo: errNo,
		msg:     fmt.Sprintf(msg, args...),
	}
}

func (err *SuperbaseError) Error() string {
	if err.msg == "" {
		return err.errorNo.String()
	}
	return fmt.Sprintf("%s: %s", err.errorNo, err.msg)
}

func (err *SuperbaseError) ErrorNo() ErrorNo {
	return err.errorNo
}

// Is matches any *SuperbaseError carrying the same error number, so callers can
// test against a bare NewSuperbaseError(no, "").
func (err *SuperbaseError) Is(target error) bool {
	var other *SuperbaseError
	if !errors.As(target, &other) {
		return false
	}
	return other.errorNo == err.errorNo
}

func GetErrorNo(err error) ErrorNo {
	if err == nil {
		return ErrOk
	}
	var superbaseErr *SuperbaseError
	ok := errors.As(err, &superbaseErr)
	if !ok {
		return ErrUnknown
	}
	return superbaseErr.errorNo
}

// IsFormatError reports whether err describes malformed table content.
func IsFormatError(err error) bool {
	no := GetErrorNo(err)
	return no >= ErrTruncatedHeader && no <= ErrInvalidSchema
}

func IsPairingError(err error) bool {
	return GetErrorNo(err) == ErrMissingPair
}
