package rabbitmq

import (
	"context"
)

// IPublisher is the publish side of the message channel.
type IPublisher interface {
	// Publish delivers payload to the named queue at-most-once (QoS 0).
	Publish(queue string, payload []byte) error
	// PublishDurable delivers payload at-least-once (QoS 1). A nil error
	// means the broker accepted the message; a *TransportError means the
	// payload must be treated as not delivered.
	PublishDurable(queue string, payload []byte) error
	Close()
}

// Publisher publishes over a shared Conn, dialing lazily when the connection
// is observed closed.
type Publisher struct {
	conn *Conn
}

func NewPublisher(conn *Conn) *Publisher {
	return &Publisher{conn: conn}
}

func (p *Publisher) Publish(queue string, payload []byte) error {
	return p.publish(queue, 0, payload)
}

func (p *Publisher) PublishDurable(queue string, payload []byte) error {
	return p.publish(queue, 1, payload)
}

func (p *Publisher) publish(queue string, qos byte, payload []byte) error {
	client, err := p.conn.Ensure(context.Background(), p.conn.cfg.MaxPublishAttempts)
	if err != nil {
		return err
	}
	token := client.Publish(queue, qos, false, payload)
	if token.Wait(); token.Error() != nil {
		p.conn.markDisconnected()
		return &TransportError{Op: "publish " + queue, Err: token.Error()}
	}
	return nil
}

func (p *Publisher) Close() {
	p.conn.Close()
}
