package domain

import (
	"errors"
	"fmt"
)

var (
	// 客户端错误
	ErrMalformedFilterValue = errors.New("malformed filter value")
	ErrInvalidType          = errors.New("invalid shift type")
	ErrConflictingOpenShift = errors.New("conflicting open shift")
	ErrNotFound             = errors.New("not found")
	ErrAlreadyEnded         = errors.New("shift already ended")
	ErrNotYetEnded          = errors.New("shift not yet ended")
	ErrAlreadyClosed        = errors.New("shift already closed")
	ErrTypeExists           = errors.New("shift type already exists")
	ErrOperatorExists       = errors.New("operator already exists")

	// 服务端错误
	ErrStorage = errors.New("storage error")
)

// MalformedFilterValueError 表示查询参数中出现了无法解析的数字或日期
type MalformedFilterValueError struct {
	Key   string
	Value string
}

func (e *MalformedFilterValueError) Error() string {
	return fmt.Sprintf("malformed value %q for filter %q", e.Value, e.Key)
}

func (e *MalformedFilterValueError) Unwrap() error {
	return ErrMalformedFilterValue
}

// ConflictingOpenShiftError 表示同类型的班次仍处于进行中
type ConflictingOpenShiftError struct {
	ShiftID int64
	Type    string
}

func (e *ConflictingOpenShiftError) Error() string {
	if e.ShiftID == 0 {
		return fmt.Sprintf("a shift of type %q is still open", e.Type)
	}
	return fmt.Sprintf("the shift %d is still open, please continue using that shift or end it before trying to start a new one", e.ShiftID)
}

func (e *ConflictingOpenShiftError) Unwrap() error {
	return ErrConflictingOpenShift
}

// StorageError 包装所有来自存储层的错误
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}
