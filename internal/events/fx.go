package events

import (
	"context"

	"github.com/smallbiznis/clinicledger/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("events",
	fx.Provide(NewPublisher),
)

// NewPublisher returns an AMQP publisher when AMQP_URL is set and a no-op
// publisher otherwise.
func NewPublisher(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (Publisher, error) {
	if !cfg.AMQP.Enabled() {
		log.Info("amqp disabled, financial events are not published")
		return NoopPublisher{}, nil
	}

	publisher, err := NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return publisher.Close()
		},
	})
	return publisher, nil
}
