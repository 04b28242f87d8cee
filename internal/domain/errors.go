package domain

import (
	"errors"
	"fmt"
)

// ErrorKind классифицирует ошибки для слоя API.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindNotFound
	KindStorage
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Error - ошибка предметной области с видом и исходной причиной.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ValidationError создает ошибку валидации входных данных.
func ValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError создает ошибку отсутствия ресурса.
func NotFoundError(message string, cause error) *Error {
	return &Error{Kind: KindNotFound, Message: message, Err: cause}
}

// StorageError оборачивает сбой хранилища.
func StorageError(message string, cause error) *Error {
	return &Error{Kind: KindStorage, Message: message, Err: cause}
}

// KindOf возвращает вид ошибки; неизвестные ошибки считаются сбоем хранилища.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindStorage
}
