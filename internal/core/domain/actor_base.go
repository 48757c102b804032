package domain

import (
	"github.com/asynkron/protoactor-go/actor"
)

// ActorRequestMixIn lets a request name the actor that should receive the
// response instead of the sender.
type ActorRequestMixIn struct {
	ReplyTo *actor.PID
}

type ActorRequest interface {
	ReplyTarget() *actor.PID
}

func (r ActorRequestMixIn) ReplyTarget() *actor.PID {
	return r.ReplyTo
}

type ActorResponseMixIn struct {
	Err error
}

func (r ActorResponseMixIn) Failure() error {
	return r.Err
}

type ActorResponse interface {
	Failure() error
}
