package future

import (
	"context"
	"errors"
	"fmt"
	"sync"

	logging "github.com/ipfs/go-log/v2"
)

// future.go - a single-assignment deferred value, settled once with either a
// value or a rejection reason of any type

var log = logging.Logger("future")

var (
	// Reported by nil futures, which can never settle on their own
	ErrNilFuture = errors.New("nil future")

	// A future was resolved with itself
	ErrCycle = errors.New("future resolved with itself")
)

type State uint

const (
	// Not settled yet
	StatePending State = iota

	// Settled with a value
	StateFulfilled

	// Settled with a rejection reason
	StateRejected
)

func (state State) String() string {
	switch state {
	case StatePending:
		return "pending"
	case StateFulfilled:
		return "fulfilled"
	case StateRejected:
		return "rejected"
	default:
		return fmt.Sprintf("State(%d)", uint(state))
	}
}

// Deferred is implemented by every *Future regardless of its type parameter,
// so untyped code can recognise one and wait for it
type Deferred interface {
	OnSettleAny(fn func(value any, reason any, fulfilled bool))
}

// RejectionError is returned by Await for rejected futures
type RejectionError struct {
	Reason any
}

func (e *RejectionError) Error() string {
	if err, ok := e.Reason.(error); ok {
		return "future rejected: " + err.Error()
	}
	return fmt.Sprintf("future rejected: %v", e.Reason)
}

func (e *RejectionError) Unwrap() error {
	err, _ := e.Reason.(error)
	return err
}

type Future[T any] struct {
	lk    sync.Mutex
	state State

	// Set once Resolve, Reject or Follow has claimed the future, which may be
	// before it settles if it is waiting on another one
	locked bool

	value  T
	reason any

	done     chan struct{}
	handlers []func()
}

func New[T any]() *Future[T] {
	return &Future[T]{
		done: make(chan struct{}),
	}
}

func Resolved[T any](value T) *Future[T] {
	f := New[T]()
	f.Resolve(value)
	return f
}

func Rejected[T any](reason any) *Future[T] {
	f := New[T]()
	f.Reject(reason)
	return f
}

// Go runs fn on its own goroutine. A returned error or a panic rejects the
// future with that value as is
func Go[T any](fn func() (T, error)) *Future[T] {
	f := New[T]()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				f.Reject(r)
			}
		}()

		value, err := fn()
		if err != nil {
			f.Reject(err)
			return
		}
		f.Resolve(value)
	}()

	return f
}

// Flatten returns a future settling the same way as the future f settles with
func Flatten[T any](f *Future[*Future[T]]) *Future[T] {
	out := New[T]()
	f.OnSettle(func(inner *Future[T], reason any, fulfilled bool) {
		if !fulfilled {
			out.Reject(reason)
			return
		}
		out.Follow(inner)
	})
	return out
}

// claim reports whether the caller is the first to decide the outcome
func (f *Future[T]) claim(op string) bool {
	f.lk.Lock()
	defer f.lk.Unlock()

	if f.locked {
		log.Debugw("ignoring settle of already resolved future", "op", op, "state", f.state)
		return false
	}
	f.locked = true
	return true
}

// Resolve fulfils the future with value. When T is an interface type and value
// is itself a Deferred, the future instead takes on whatever value eventually
// settles with, recursively. Returns false if the future was already resolved
func (f *Future[T]) Resolve(value T) bool {
	if !f.claim("resolve") {
		return false
	}

	if d, ok := any(value).(Deferred); ok && isInterface[T]() {
		f.adopt(d)
		return true
	}

	f.settle(StateFulfilled, value, nil)
	return true
}

// Reject settles the future with reason, which can be of any type
func (f *Future[T]) Reject(reason any) bool {
	if !f.claim("reject") {
		return false
	}

	var zero T
	f.settle(StateRejected, zero, reason)
	return true
}

// Follow makes the future settle the same way src does
func (f *Future[T]) Follow(src *Future[T]) bool {
	if !f.claim("follow") {
		return false
	}

	if src == f {
		var zero T
		f.settle(StateRejected, zero, ErrCycle)
		return true
	}

	src.OnSettle(func(value T, reason any, fulfilled bool) {
		if fulfilled {
			f.settle(StateFulfilled, value, nil)
		} else {
			f.settle(StateRejected, value, reason)
		}
	})
	return true
}

func (f *Future[T]) adopt(d Deferred) {
	var zero T

	if d == Deferred(f) {
		f.settle(StateRejected, zero, ErrCycle)
		return
	}

	d.OnSettleAny(func(value any, reason any, fulfilled bool) {
		if !fulfilled {
			f.settle(StateRejected, zero, reason)
			return
		}

		if inner, ok := value.(Deferred); ok {
			f.adopt(inner)
			return
		}

		if value == nil {
			f.settle(StateFulfilled, zero, nil)
			return
		}

		typed, ok := value.(T)
		if !ok {
			f.settle(StateRejected, zero, fmt.Errorf("adopted future settled with incompatible %T", value))
			return
		}
		f.settle(StateFulfilled, typed, nil)
	})
}

func (f *Future[T]) settle(state State, value T, reason any) {
	f.lk.Lock()
	if f.state != StatePending {
		f.lk.Unlock()
		return
	}
	f.state = state
	f.value = value
	f.reason = reason
	handlers := f.handlers
	f.handlers = nil
	close(f.done)
	f.lk.Unlock()

	for _, handler := range handlers {
		handler()
	}
}

// OnSettle registers fn to be called once with the outcome of the future. If
// the future has already settled, fn runs before OnSettle returns. Handlers
// run on whichever goroutine settles the future, in registration order
func (f *Future[T]) OnSettle(fn func(value T, reason any, fulfilled bool)) {
	if f == nil {
		var zero T
		fn(zero, ErrNilFuture, false)
		return
	}

	// Fields are never written again once state leaves pending
	call := func() {
		fn(f.value, f.reason, f.state == StateFulfilled)
	}

	f.lk.Lock()
	if f.state == StatePending {
		f.handlers = append(f.handlers, call)
		f.lk.Unlock()
		return
	}
	f.lk.Unlock()

	call()
}

func (f *Future[T]) OnSettleAny(fn func(value any, reason any, fulfilled bool)) {
	f.OnSettle(func(value T, reason any, fulfilled bool) {
		fn(value, reason, fulfilled)
	})
}

// Done returns a channel which is closed when the future settles
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

func (f *Future[T]) State() State {
	f.lk.Lock()
	defer f.lk.Unlock()
	return f.state
}

// Await blocks until the future settles or ctx is done. Rejections are
// reported as a *RejectionError holding the reason
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	var zero T

	select {
	case <-f.done:
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	if f.state == StateRejected {
		return zero, &RejectionError{Reason: f.reason}
	}
	return f.value, nil
}

// isInterface reports whether T is an interface type - only those have a nil
// zero value once boxed
func isInterface[T any]() bool {
	var zero T
	return any(zero) == nil
}
