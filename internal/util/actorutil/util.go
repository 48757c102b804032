package actorutil

import (
	"log/slog"
	"time"

	"github.com/berfenger/evccdisplay/internal/core/domain"
	"github.com/berfenger/evccdisplay/internal/mqtt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// PipeToSelfWithRecover sends the future's result to the actor itself,
// replacing a failure with the message built by mapFn.
func PipeToSelfWithRecover(ctx actor.Context, future *actor.Future, mapFn func(error) any) {
	ctx.ReenterAfter(future, func(msg any, err error) {
		if err != nil {
			msg = mapFn(err)
		}
		ctx.Send(ctx.Self(), msg)
	})
}

// NewActorSystemWithZapLogger routes the actor system's own slog output
// through logger at the matching level.
func NewActorSystemWithZapLogger(logger *zap.Logger) *actor.ActorSystem {
	writer := zap.NewStdLog(logger).Writer()
	level := slogLevel(logger.Level())
	return actor.NewActorSystem(actor.WithLoggerFactory(func(*actor.ActorSystem) *slog.Logger {
		return slog.New(tint.NewHandler(writer, &tint.Options{
			Level:      level,
			TimeFormat: time.DateTime,
			NoColor:    true,
		}))
	}))
}

func slogLevel(level zapcore.Level) slog.Level {
	switch {
	case level <= zapcore.DebugLevel:
		return slog.LevelDebug
	case level == zapcore.InfoLevel:
		return slog.LevelInfo
	case level == zapcore.WarnLevel:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	return logger.Named(actorName)
}

// ParsedMQTTCommandToCommand maps a switch command to an actor request.
// Unknown devices map to nil.
func ParsedMQTTCommandToCommand(cmd mqtt.ParsedMQTTCommand) domain.ActorRequest {
	if cmd.DeviceId == domain.SWITCH_ID_DEBUG_LOG {
		return domain.SetDebugRequest{Enable: cmd.Payload == mqtt.MQTT_PAYLOAD_ON}
	}
	return nil
}
