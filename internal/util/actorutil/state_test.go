package actorutil

import (
	"testing"
	"time"

	"github.com/berfenger/evccdisplay/internal/core/domain"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedState string

func (n namedState) Name() string              { return string(n) }
func (n namedState) Receive(ctx actor.Context) {}

func TestActorWithStatesTracksNames(t *testing.T) {
	s := &ActorWithStates{Behavior: actor.NewBehavior()}
	assert.Empty(t, s.StateName())

	s.Become(namedState("idle"))
	assert.Equal(t, "idle", s.StateName())

	s.BecomeStacked(namedState("busy"))
	assert.Equal(t, "busy", s.StateName())
	s.UnbecomeStacked()
	assert.Equal(t, "idle", s.StateName())

	// Become replaces the whole stack
	s.BecomeStacked(namedState("busy"))
	s.Become(namedState("done"))
	assert.Equal(t, "done", s.StateName())
	s.UnbecomeStacked()
	assert.Equal(t, "done", s.StateName())
}

func TestRespondHonoursReplyTarget(t *testing.T) {
	system := actor.NewActorSystem()
	t.Cleanup(system.Shutdown)

	responder := system.Root.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		if req, ok := ctx.Message().(domain.SetDebugRequest); ok {
			Respond(ctx, req, domain.SetDebugResponse{Enabled: req.Enable})
		}
	}))

	// without a reply target the sender gets the response
	res, err := system.Root.RequestFuture(responder, domain.SetDebugRequest{Enable: true}, time.Second).Result()
	require.NoError(t, err)
	assert.True(t, res.(domain.SetDebugResponse).Enabled)

	got := make(chan domain.SetDebugResponse, 1)
	target := system.Root.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		if resp, ok := ctx.Message().(domain.SetDebugResponse); ok {
			got <- resp
		}
	}))
	system.Root.Send(responder, domain.SetDebugRequest{
		ActorRequestMixIn: domain.ActorRequestMixIn{ReplyTo: target},
	})
	select {
	case resp := <-got:
		assert.False(t, resp.Enabled)
	case <-time.After(time.Second):
		t.Fatal("reply target not answered")
	}
}
