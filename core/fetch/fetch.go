// Package fetch gives every data-driven screen the same remote-call lifecycle
// so loading/error/success are handled uniformly.
package fetch

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// Phases
const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseSuccess Phase = "success"
	PhaseError   Phase = "error"
)

type (
	Phase string

	// ErrorInfo is the user-facing detail of a failed attempt.
	ErrorInfo struct {
		Message string `json:"message"`
		Cause   error  `json:"-"`
	}

	// Resource tracks one screen's asynchronous fetch.
	// Phases transition monotonically per attempt (loading -> success|error);
	// a new Trigger supersedes any in-flight attempt and the superseded
	// attempt's result is discarded, so a stale response can never win.
	Resource[T any] struct {
		mutex   sync.Mutex
		phase   Phase
		data    *T
		errInfo *ErrorInfo
		epoch   uint64
	}
)

// messenger is implemented by errors carrying a message safe to show users.
type messenger interface {
	PublicMessage() string
}

const fallbackErrorMessage = "Something went wrong. Please try again."

func NewResource[T any]() *Resource[T] {
	return &Resource[T]{phase: PhaseIdle}
}

// Trigger begins a fetch attempt: prior data and error detail are discarded
// and the phase becomes loading until fn returns. Retrying is just another
// Trigger call.
func (r *Resource[T]) Trigger(ctx context.Context, fn func(context.Context) (T, error)) {
	r.mutex.Lock()
	r.epoch++
	attempt := r.epoch
	r.phase = PhaseLoading
	r.data = nil
	r.errInfo = nil
	r.mutex.Unlock()

	data, err := fn(ctx)

	r.mutex.Lock()
	defer r.mutex.Unlock()
	if attempt != r.epoch {
		return // superseded by a newer Trigger
	}
	if err != nil {
		r.phase = PhaseError
		r.errInfo = &ErrorInfo{Message: errorMessage(err), Cause: err}
		return
	}
	r.phase = PhaseSuccess
	r.data = &data
}

// Reset returns the resource to idle, discarding any result.
func (r *Resource[T]) Reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.epoch++
	r.phase = PhaseIdle
	r.data = nil
	r.errInfo = nil
}

func (r *Resource[T]) Phase() Phase {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.phase
}

// Data returns the fetched payload; ok is false unless the phase is success.
func (r *Resource[T]) Data() (T, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.phase != PhaseSuccess || r.data == nil {
		var zero T
		return zero, false
	}
	return *r.data, true
}

// Err returns the error detail; nil unless the phase is error.
func (r *Resource[T]) Err() *ErrorInfo {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.errInfo
}

func errorMessage(err error) string {
	if m, ok := errors.Cause(err).(messenger); ok {
		if msg := m.PublicMessage(); msg != "" {
			return msg
		}
	}
	return fallbackErrorMessage
}
