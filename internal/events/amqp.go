package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

var errPublisherClosed = errors.New("events: amqp publisher closed")

// brokerConn and brokerChannel are the parts of amqp091 the publisher uses.
type brokerConn interface {
	Channel() (brokerChannel, error)
	IsClosed() bool
	Close() error
}

type brokerChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

type amqpConn struct {
	*amqp.Connection
}

func (c amqpConn) Channel() (brokerChannel, error) {
	ch, err := c.Connection.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func dialAMQP(url string) (brokerConn, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return amqpConn{conn}, nil
}

// AMQPPublisher sends events to a durable topic exchange, routed by event type.
type AMQPPublisher struct {
	url      string
	exchange string
	log      *zap.Logger
	dial     func(url string) (brokerConn, error)

	mu      sync.Mutex
	conn    brokerConn
	channel brokerChannel
	closed  bool
}

func NewAMQPPublisher(url, exchange string, log *zap.Logger) (*AMQPPublisher, error) {
	return newAMQPPublisher(url, exchange, log, dialAMQP)
}

func newAMQPPublisher(url, exchange string, log *zap.Logger, dial func(string) (brokerConn, error)) (*AMQPPublisher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	p := &AMQPPublisher{
		url:      url,
		exchange: exchange,
		log:      log.Named("events.amqp"),
		dial:     dial,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connectLocked(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *AMQPPublisher) connectLocked() error {
	conn, err := p.dial(p.url)
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open amqp channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		p.exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}

	p.conn = conn
	p.channel = ch
	p.log.Info("connected to amqp broker", zap.String("exchange", p.exchange))
	return nil
}

// releaseLocked closes whatever is left of the current connection. A closed
// channel does not close its connection, so both are released.
func (p *AMQPPublisher) releaseLocked() error {
	var errs []error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
		p.channel = nil
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
		p.conn = nil
	}
	return errors.Join(errs...)
}

func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errPublisherClosed
	}
	// reconnect lazily after the broker dropped the connection or the channel
	if p.conn == nil || p.conn.IsClosed() || p.channel == nil || p.channel.IsClosed() {
		if err := p.releaseLocked(); err != nil {
			p.log.Warn("failed to release stale amqp connection", zap.Error(err))
		}
		if err := p.connectLocked(); err != nil {
			return err
		}
	}

	return p.channel.PublishWithContext(ctx,
		p.exchange,
		event.Type,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ID,
			Timestamp:    event.OccurredAt,
			Type:         event.Type,
			Body:         body,
		},
	)
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	return p.releaseLocked()
}
