package sinks

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/hoops-harvester/internal/harvest"
	"github.com/JakeFAU/hoops-harvester/internal/progress"
)

// PublisherSink forwards events to a harvest.Publisher as JSON notifications. Only
// lifecycle events are published unless IncludePlayers is set.
type PublisherSink struct {
	pub            harvest.Publisher
	topic          string
	includePlayers bool
	logger         *zap.Logger
}

// PublisherSinkConfig configures NewPublisherSink.
type PublisherSinkConfig struct {
	Topic          string
	IncludePlayers bool
}

// NewPublisherSink constructs a PublisherSink.
func NewPublisherSink(pub harvest.Publisher, cfg PublisherSinkConfig, logger *zap.Logger) *PublisherSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PublisherSink{
		pub:            pub,
		topic:          cfg.Topic,
		includePlayers: cfg.IncludePlayers,
		logger:         logger,
	}
}

// Consume publishes each selected event. The first failure stops the batch.
func (s *PublisherSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.pub == nil {
		return nil
	}
	for _, evt := range batch {
		if evt.Stage == progress.StagePlayer && !s.includePlayers {
			continue
		}
		id, err := s.pub.Publish(ctx, s.topic, evt)
		if err != nil {
			return fmt.Errorf("publish %s for run %s: %w", evt.Stage, evt.RunID, err)
		}
		s.logger.Debug("progress published",
			zap.String("run_id", evt.RunID),
			zap.String("stage", string(evt.Stage)),
			zap.String("message_id", id),
		)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PublisherSink) Close(context.Context) error {
	return nil
}
