package actorutil

import (
	"github.com/berfenger/evccdisplay/internal/core/domain"

	"github.com/asynkron/protoactor-go/actor"
)

// Respond answers req at its reply target, or at the sender when it names none.
func Respond(ctx actor.Context, req domain.ActorRequest, resp domain.ActorResponse) {
	if pid := req.ReplyTarget(); pid != nil {
		ctx.Send(pid, resp)
		return
	}
	ctx.Respond(resp)
}

// ReplyTarget is the PID a response to req goes to; nil for fire-and-forget sends.
func ReplyTarget(ctx actor.Context, req domain.ActorRequest) *actor.PID {
	if pid := req.ReplyTarget(); pid != nil {
		return pid
	}
	return ctx.Sender()
}
