// Package rabbitmq publishes settled-check events for payment and printing
// consumers.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/kirinyoku/tabgo/internal/domain"
)

// RoutingKey maps a terminal check status to its routing key.
func RoutingKey(status domain.CheckStatus) string {
	return "check." + string(status)
}

var ErrNacked = errors.New("rabbitmq: publish nacked by broker")

type Client struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// confirmation is the broker's answer to one publish.
type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

// Dial connects, declares the durable topic exchange and enables publisher
// confirms.
func Dial(url, exchange string) (*Client, error) {
	const op = "rabbitmq.Dial"

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &Client{
		conn:     conn,
		ch:       ch,
		exchange: exchange,
	}, nil
}

func (c *Client) Ping() error {
	if c.conn == nil || c.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

// PublishCheckSettled sends the final state of a closed or voided check and
// waits for the broker confirm.
func (c *Client) PublishCheckSettled(ctx context.Context, ev domain.CheckSettled) error {
	const op = "rabbitmq.Client.PublishCheckSettled"

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	conf, err := c.ch.PublishWithDeferredConfirmWithContext(
		ctx,
		c.exchange,
		RoutingKey(ev.Status),
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    fmt.Sprintf("%s:%d", ev.CheckID, ev.Revision),
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	if conf == nil {
		return fmt.Errorf("%s: channel is not in confirm mode", op)
	}

	if err := awaitConfirm(ctx, conf); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// awaitConfirm waits for the confirm of one publish. Giving up on it leaves
// later publishes unaffected since each owns its delivery tag.
func awaitConfirm(ctx context.Context, conf confirmation) error {
	ack, err := conf.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !ack {
		return ErrNacked
	}
	return nil
}

func (c *Client) Close() {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}
