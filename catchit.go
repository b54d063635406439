// Package catchit runs a function and hands back how it finished as a
// result.Result instead of a panic or a rejected future.
package catchit

import (
	"github.com/application-research/catchit/future"
	"github.com/application-research/catchit/result"
)

// catchit.go - the invoker entry points. Do, Call and Async pick the static
// result type from fn's signature; To decides at runtime from what fn returned

// Do calls fn once. A panic becomes a failed result carrying the panic value
func Do[T any](fn func() T) (res result.Result[T]) {
	defer recoverInto(&res)
	return result.OK(fn())
}

// Call is like Do, but a non-nil error returned by fn is also a failure
func Call[T any](fn func() (T, error)) (res result.Result[T]) {
	defer recoverInto(&res)

	value, err := fn()
	if err != nil {
		return result.Err[T](err)
	}
	return result.OK(value)
}

// Async calls fn once and returns a future that fulfils with the outcome of
// the future fn returned. The returned future is never rejected. If fn panics
// before producing a future, the returned future is already fulfilled with
// that failure
func Async[T any](fn func() *future.Future[T]) *future.Future[result.Result[T]] {
	ok, failure, inner := Do(fn).Unwrap()
	if !ok {
		return future.Resolved(result.Err[T](failure))
	}
	return capture(inner)
}

// To is the untyped form. If fn returns a future.Deferred, the result is a
// *future.Future[result.Result[any]]; otherwise it is a result.Result[any]
func To(fn func() any) any {
	res := Do(fn)
	if d, ok := res.Value().(future.Deferred); ok && res.IsOK() {
		inner := future.New[any]()
		inner.Resolve(d)
		return capture(inner)
	}
	return res
}

func capture[T any](inner *future.Future[T]) *future.Future[result.Result[T]] {
	out := future.New[result.Result[T]]()
	inner.OnSettle(func(value T, reason any, fulfilled bool) {
		if fulfilled {
			out.Resolve(result.OK(value))
		} else {
			out.Resolve(result.Err[T](reason))
		}
	})
	return out
}

func recoverInto[T any](res *result.Result[T]) {
	if r := recover(); r != nil {
		*res = result.Err[T](r)
	}
}
