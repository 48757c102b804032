package actorutil

import (
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/primetalk/goio/io"
)

// BackgroundTask runs a blocking function away from the actor goroutine and
// delivers its result to an actor as a plain message.
type BackgroundTask[T any] struct {
	system  *actor.ActorSystem
	fn      func() T
	timeout time.Duration
	recover func(error) T
}

func NewBackgroundTask[T any](ctx actor.Context, fn func() T) *BackgroundTask[T] {
	return &BackgroundTask[T]{system: ctx.ActorSystem(), fn: fn}
}

// WithTimeout bounds the whole task. A zero timeout waits forever.
func (t *BackgroundTask[T]) WithTimeout(timeout time.Duration) *BackgroundTask[T] {
	t.timeout = timeout
	return t
}

// Recover maps a failure into a value that is delivered like a result.
// Without it failures are dropped.
func (t *BackgroundTask[T]) Recover(fn func(error) T) *BackgroundTask[T] {
	t.recover = fn
	return t
}

// PipeToAsync starts the task and sends the outcome to pid through the root
// context, so the caller keeps processing messages meanwhile.
func (t *BackgroundTask[T]) PipeToAsync(pid *actor.PID) {
	root := t.system.Root
	go func() {
		if value, ok := t.run(); ok {
			root.Send(pid, value)
		}
	}()
}

func (t *BackgroundTask[T]) run() (T, bool) {
	task := io.Eval(func() (T, error) {
		return t.fn(), nil
	})
	if t.timeout > 0 {
		task = io.WithTimeout[T](t.timeout)(task)
	}
	result := io.RunSync(task)
	if result.Error == nil {
		return result.Value, true
	}
	if t.recover == nil {
		var zero T
		return zero, false
	}
	return t.recover(result.Error), true
}
