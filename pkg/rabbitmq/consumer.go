package rabbitmq

import (
	"context"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Decision is the explicit accept/reject outcome a handler must return for
// every delivery. Accept acknowledges the message. Reject leaves it unacked
// so the broker redelivers it (at-least-once requeue). A permanently
// malformed payload must be Accepted and logged, never Rejected, or it loops
// forever as a poison message.
type Decision int

const (
	Accept Decision = iota
	Reject
)

// Handler processes one delivery. The error is logged only; the Decision
// alone drives the acknowledgement.
type Handler func(queue string, payload []byte) (Decision, error)

// IConsumer is the consume side of the message channel.
type IConsumer interface {
	Consume(ctx context.Context)
	SetHandler(handler Handler)
}

// Consumer subscribes to one or more queues on a shared Conn and runs an
// explicit receive loop: every delivery is handed to the handler, whose
// Accept/Reject decision is the only thing that acknowledges it. The
// Consumer is the sole component calling Ack.
type Consumer struct {
	conn    *Conn
	queues  []string
	handler Handler
}

func NewConsumer(conn *Conn, handler Handler, queues ...string) *Consumer {
	return &Consumer{conn: conn, queues: queues, handler: handler}
}

func (c *Consumer) SetHandler(handler Handler) {
	c.handler = handler
}

// Consume blocks until ctx is cancelled. A dropped connection is never fatal:
// the loop re-dials with the configured fixed delay and subscribes again.
func (c *Consumer) Consume(ctx context.Context) {
	for {
		client, err := c.conn.Ensure(ctx, 0)
		if err != nil {
			// Only a cancelled context gets Ensure past infinite retries.
			return
		}

		deliveries := make(chan mqtt.Message, 64)
		if !c.subscribe(client, deliveries) {
			// The connection is open but unusable: drop the client and
			// wait out the redial delay instead of spinning.
			c.conn.Drop()
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.conn.cfg.ReconnectDelay):
			}
			continue
		}
		lost := c.conn.Lost()

	receive:
		for {
			select {
			case <-ctx.Done():
				for _, q := range c.queues {
					client.Unsubscribe(q)
				}
				return
			case <-lost:
				break receive
			case msg := <-deliveries:
				c.dispatch(msg)
			}
		}
	}
}

func (c *Consumer) subscribe(client mqtt.Client, deliveries chan<- mqtt.Message) bool {
	for _, queue := range c.queues {
		token := client.Subscribe(queue, 1, func(_ mqtt.Client, msg mqtt.Message) {
			deliveries <- msg
		})
		if token.Wait(); token.Error() != nil {
			log.Printf("rabbitmq: subscribe %s failed: %v", queue, token.Error())
			return false
		}
		log.Printf("rabbitmq: subscribed to %s", queue)
	}
	return true
}

func (c *Consumer) dispatch(msg mqtt.Message) {
	if c.handler == nil {
		log.Printf("rabbitmq: no handler for %s, dropping", msg.Topic())
		msg.Ack()
		return
	}
	decision, err := c.handler(msg.Topic(), msg.Payload())
	if err != nil {
		log.Printf("rabbitmq: handler error on %s: %v", msg.Topic(), err)
	}
	if decision == Accept {
		msg.Ack()
	}
	// Rejected deliveries stay unacked; the persistent session redelivers.
}
