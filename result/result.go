package result

import (
	"encoding/json"
	"fmt"
)

// Result records how a call finished - if ok is true, Value may be read -
// otherwise Failure holds whatever the call failed with, and Value should be
// considered invalid
type Result[T any] struct {
	ok    bool
	err   any
	value T
}

// Construct a result indicating success
func OK[T any](value T) Result[T] {
	return Result[T]{
		ok:    true,
		value: value,
	}
}

// Construct a result indicating failure. The failure payload is kept as is,
// whatever its type (including nil)
func Err[T any](err any) Result[T] {
	return Result[T]{
		err: err,
	}
}

// Unwrap returns the (ok, error, value) triple
func (result Result[T]) Unwrap() (bool, any, T) {
	return result.ok, result.err, result.value
}

func (result Result[T]) IsOK() bool {
	return result.ok
}

// Failure is nil for successful results
func (result Result[T]) Failure() any {
	return result.err
}

// Value is the zero value for failed results
func (result Result[T]) Value() T {
	return result.value
}

// FailureError carries a failure payload that is not itself an error
type FailureError struct {
	Value any
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("call failed: %v", e.Value)
}

// Get converts the result into the usual (value, error) pair. Failure payloads
// that are already errors are returned unchanged
func (result Result[T]) Get() (T, error) {
	if result.ok {
		return result.value, nil
	}
	if err, ok := result.err.(error); ok {
		return result.value, err
	}
	return result.value, &FailureError{Value: result.err}
}

func (result Result[T]) String() string {
	return fmt.Sprintf("[%t %v %v]", result.ok, result.err, result.value)
}

// MarshalJSON encodes the result as a three element array [ok, error, value]
func (result Result[T]) MarshalJSON() ([]byte, error) {
	if result.ok {
		return json.Marshal([]any{true, nil, result.value})
	}

	var payload any = result.err
	if err, ok := result.err.(error); ok {
		payload = err.Error()
	} else if _, err := json.Marshal(payload); err != nil {
		// Channels, funcs and the like still need to show up somehow
		payload = fmt.Sprintf("%v", result.err)
	}

	return json.Marshal([]any{false, payload, nil})
}
