package actorutil

import (
	"github.com/asynkron/protoactor-go/actor"
)

// Stash defers messages an actor cannot handle in its current state. The
// original sender is kept so replies still reach the requester.
type Stash struct {
	pending []stashed
}

type stashed struct {
	msg    any
	sender *actor.PID
}

func (s *Stash) Stash(ctx actor.Context, msg any) {
	s.pending = append(s.pending, stashed{msg: msg, sender: ctx.Sender()})
}

// UnstashAll re-enqueues the deferred messages in arrival order.
func (s *Stash) UnstashAll(ctx actor.Context) {
	pending := s.pending
	s.pending = nil
	for _, m := range pending {
		ctx.RequestWithCustomSender(ctx.Self(), m.msg, m.sender)
	}
}
