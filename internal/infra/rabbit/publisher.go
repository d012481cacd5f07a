package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"sparklab/internal/domain"
)

const (
	// DefaultExchange is the topic exchange that carries activity events.
	DefaultExchange = "activity.events"
	// ActionRoutingKey is used for every recorded user action.
	ActionRoutingKey = "activity.action"
)

// channel is the part of *amqp.Channel the publisher needs.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher forwards action records to RabbitMQ. A channel or connection closed by the
// broker is reopened on the next publish.
type Publisher struct {
	exchange string
	reopen   func() (channel, error)

	mu   sync.Mutex
	ch   channel
	conn *amqp.Connection
}

// Dial connects to the broker and declares the exchange.
func Dial(url, exchange string) (*Publisher, error) {
	p := &Publisher{}
	p.reopen = func() (channel, error) { return p.openChannel(url) }
	ch, err := p.reopen()
	if err != nil {
		return nil, err
	}
	if err := p.init(ch, exchange); err != nil {
		_ = p.conn.Close()
		return nil, err
	}
	return p, nil
}

func newPublisher(ch channel, exchange string) (*Publisher, error) {
	p := &Publisher{}
	if err := p.init(ch, exchange); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) init(ch channel, exchange string) error {
	if exchange == "" {
		exchange = DefaultExchange
	}
	p.exchange = exchange
	if err := declare(ch, exchange); err != nil {
		return err
	}
	p.ch = ch
	return nil
}

func declare(ch channel, exchange string) error {
	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return nil
}

// openChannel redials when the connection itself is gone. Callers hold mu, except Dial.
func (p *Publisher) openChannel(url string) (channel, error) {
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(url)
		if err != nil {
			return nil, fmt.Errorf("dial rabbitmq: %w", err)
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return ch, nil
}

// PublishAction sends the record as JSON with the action ID as message ID.
func (p *Publisher) PublishAction(ctx context.Context, record domain.ActionRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode action: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    record.ID,
		Timestamp:    record.ReceivedAt,
		Type:         record.Action,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx, p.exchange, ActionRoutingKey, false, false, msg)
	if !errors.Is(err, amqp.ErrClosed) || p.reopen == nil {
		return err
	}
	if err := p.reconnect(); err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, p.exchange, ActionRoutingKey, false, false, msg)
}

func (p *Publisher) reconnect() error {
	ch, err := p.reopen()
	if err != nil {
		return fmt.Errorf("reopen rabbitmq channel: %w", err)
	}
	if err := declare(ch, p.exchange); err != nil {
		_ = ch.Close()
		return err
	}
	_ = p.ch.Close()
	p.ch = ch
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
