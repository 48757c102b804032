package actorutil

import (
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runTask func(ctx actor.Context)

// spawnTaskRunner starts an actor that launches the given task on the first
// runTask message and forwards every string it receives to out.
func spawnTaskRunner(t *testing.T) (*actor.ActorSystem, *actor.PID, chan string) {
	system := actor.NewActorSystem()
	out := make(chan string, 4)
	pid := system.Root.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		switch msg := ctx.Message().(type) {
		case runTask:
			msg(ctx)
		case string:
			out <- msg
		}
	}))
	t.Cleanup(func() { system.Root.Stop(pid) })
	return system, pid, out
}

func TestBackgroundTaskDeliversResult(t *testing.T) {
	system, pid, out := spawnTaskRunner(t)

	system.Root.Send(pid, runTask(func(ctx actor.Context) {
		NewBackgroundTask(ctx, func() string { return "done" }).PipeToAsync(ctx.Self())
	}))

	select {
	case got := <-out:
		assert.Equal(t, "done", got)
	case <-time.After(time.Second):
		t.Fatal("no result")
	}
}

func TestBackgroundTaskRecoversTimeout(t *testing.T) {
	system, pid, out := spawnTaskRunner(t)
	release := make(chan struct{})
	defer close(release)

	system.Root.Send(pid, runTask(func(ctx actor.Context) {
		NewBackgroundTask(ctx, func() string {
			<-release
			return "late"
		}).WithTimeout(20 * time.Millisecond).Recover(func(err error) string {
			return "recovered"
		}).PipeToAsync(ctx.Self())
	}))

	select {
	case got := <-out:
		assert.Equal(t, "recovered", got)
	case <-time.After(time.Second):
		t.Fatal("no result")
	}
}

func TestBackgroundTaskDropsUnrecoveredFailure(t *testing.T) {
	system, pid, out := spawnTaskRunner(t)
	release := make(chan struct{})
	defer close(release)

	system.Root.Send(pid, runTask(func(ctx actor.Context) {
		NewBackgroundTask(ctx, func() string {
			<-release
			return "late"
		}).WithTimeout(20 * time.Millisecond).PipeToAsync(ctx.Self())
	}))

	require.Never(t, func() bool { return len(out) > 0 }, 150*time.Millisecond, 10*time.Millisecond)
}
