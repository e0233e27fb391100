// internal/stream/errors.go
package stream

import (
	"errors"
	"fmt"
	"time"
)

// StreamError - ошибка потокового транспорта
type StreamError struct {
	Message    string
	Cause      error
	Fatal      bool
	RetryAfter time.Duration
}

func (e *StreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *StreamError) Unwrap() error {
	return e.Cause
}

// NewRetryableError создает ошибку, после которой можно переподключаться
func NewRetryableError(cause error, format string, args ...interface{}) *StreamError {
	return &StreamError{Message: fmt.Sprintf(format, args...), Cause: cause}
}

// NewFatalError создает ошибку, требующую ручного вмешательства:
// автоматических повторов после нее не будет
func NewFatalError(format string, args ...interface{}) *StreamError {
	return &StreamError{Message: fmt.Sprintf(format, args...), Fatal: true}
}

// NewRateLimitError создает ошибку с предписанной сервером паузой
func NewRateLimitError(retryAfter time.Duration, format string, args ...interface{}) *StreamError {
	return &StreamError{Message: fmt.Sprintf(format, args...), RetryAfter: retryAfter}
}

// IsFatal сообщает, что ошибка не допускает переподключения
func IsFatal(err error) bool {
	var streamErr *StreamError
	if errors.As(err, &streamErr) {
		return streamErr.Fatal
	}
	return false
}

// RateLimitDelay возвращает паузу, предписанную сервером
func RateLimitDelay(err error) (time.Duration, bool) {
	var streamErr *StreamError
	if errors.As(err, &streamErr) && streamErr.RetryAfter > 0 {
		return streamErr.RetryAfter, true
	}
	return 0, false
}
