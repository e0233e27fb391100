// internal/core/domain/dispatch/errors.go
package dispatch

import (
	"errors"
	"fmt"
)

// FailureKind - классификация неудачной доставки
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureInvalidToken
	FailureTransient
)

func (k FailureKind) String() string {
	switch k {
	case FailureInvalidToken:
		return "invalid_token"
	case FailureTransient:
		return "transient"
	default:
		return "none"
	}
}

// DeliveryError - ошибка доставки одному получателю
type DeliveryError struct {
	Kind    FailureKind
	Message string
	Cause   error
}

func (e *DeliveryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DeliveryError) Unwrap() error {
	return e.Cause
}

// Is сопоставляет ошибки доставки по виду отказа
func (e *DeliveryError) Is(target error) bool {
	var other *DeliveryError
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// Ошибки доставки
var (
	ErrInvalidToken = &DeliveryError{Kind: FailureInvalidToken, Message: "delivery token is not registered"}
	ErrTransient    = &DeliveryError{Kind: FailureTransient, Message: "transient delivery failure"}
)

// NewInvalidTokenError создает ошибку безвозвратно негодного токена
func NewInvalidTokenError(format string, args ...interface{}) *DeliveryError {
	return &DeliveryError{Kind: FailureInvalidToken, Message: fmt.Sprintf(format, args...)}
}

// NewTransientError создает временную ошибку доставки
func NewTransientError(cause error, format string, args ...interface{}) *DeliveryError {
	return &DeliveryError{Kind: FailureTransient, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Classify определяет вид отказа по ошибке транспорта.
// Все, что не помечено как негодный токен, считается временным сбоем.
func Classify(err error) FailureKind {
	if err == nil {
		return FailureNone
	}
	var deliveryErr *DeliveryError
	if errors.As(err, &deliveryErr) {
		return deliveryErr.Kind
	}
	return FailureTransient
}
