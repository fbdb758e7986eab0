package cntl

import "errors"

var (
	ErrTruncated         = errors.New("cntl: truncated record")
	ErrShortRecord       = errors.New("cntl: record shorter than its fixed fields")
	ErrInvalidCount      = errors.New("cntl: range count exceeds payload")
	ErrMissingTerminator = errors.New("cntl: process name not nul-terminated")
	ErrEmptyName         = errors.New("cntl: empty process name")
	ErrNameTooLong       = errors.New("cntl: process name too long")
	ErrRecordTooLarge    = errors.New("cntl: record too large")
	ErrFieldRange        = errors.New("cntl: field out of range")
)
