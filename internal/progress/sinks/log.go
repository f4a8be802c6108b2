package sinks

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/JakeFAU/hoops-harvester/internal/progress"
)

// LogSink writes one log line per event. Player outcomes log at debug so that a full
// roster does not flood production logs; lifecycle events log at info.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("run_id", evt.RunID),
			zap.String("stage", string(evt.Stage)),
		}
		level := zapcore.InfoLevel
		switch evt.Stage {
		case progress.StageRunStart:
			fields = append(fields, zap.Strings("seasons", evt.Seasons), zap.Bool("resume", evt.Resume))
		case progress.StageRunState:
			fields = append(fields, zap.String("state", string(evt.State)))
			if evt.Players > 0 {
				fields = append(fields, zap.Int("players", evt.Players))
			}
		case progress.StagePlayer:
			level = zapcore.DebugLevel
			fields = append(fields,
				zap.String("player", evt.Player),
				zap.String("outcome", string(evt.Outcome)),
				zap.Duration("dur", evt.Dur),
			)
		case progress.StageRunDone:
			fields = append(fields, zap.Duration("dur", evt.Dur))
		case progress.StageRunError:
			level = zapcore.ErrorLevel
			fields = append(fields, zap.Duration("dur", evt.Dur), zap.String("error", evt.Note))
		}
		if ce := s.logger.Check(level, "progress event"); ce != nil {
			ce.Write(fields...)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
