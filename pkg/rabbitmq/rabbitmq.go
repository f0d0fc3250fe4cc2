package rabbitmq

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ConnState tracks the broker connection lifecycle.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	default:
		return "DISCONNECTED"
	}
}

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	ClientID string

	// ReconnectDelay is the fixed wait between connection attempts.
	ReconnectDelay time.Duration
	// MaxPublishAttempts bounds connection attempts made on behalf of a
	// publish; consumers retry indefinitely.
	MaxPublishAttempts int
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.ReconnectDelay <= 0 {
		out.ReconnectDelay = 5 * time.Second
	}
	if out.MaxPublishAttempts <= 0 {
		out.MaxPublishAttempts = 3
	}
	return out
}

// Conn owns the shared MQTT client and its connection state machine
// (DISCONNECTED -> CONNECTING -> CONNECTED -> DISCONNECTED on error).
// Reconnects are lazy: the next publish or consume that observes a closed
// connection drives a new attempt, there is no background watchdog.
//
// The mutex only guards the state fields. Dialing happens outside it,
// single-flighted through the dialing channel, so a consumer redialing a dead
// broker indefinitely can never wedge a publish: a bounded caller that finds
// someone else's dial in flight waits no longer than its own attempt budget
// and then fails with a TransportError.
type Conn struct {
	cfg Config

	mu      sync.Mutex
	client  mqtt.Client
	state   ConnState
	lost    chan struct{} // closed when the current connection drops
	dialing chan struct{} // non-nil while a dial is in flight; closed when it settles
}

func NewConn(cfg *Config) *Conn {
	return &Conn{cfg: cfg.withDefaults(), state: StateDisconnected, lost: closedChan()}
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (c *Conn) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateConnected && (c.client == nil || !c.client.IsConnectionOpen()) {
		return StateDisconnected
	}
	return c.state
}

// Lost returns a channel closed when the current connection drops. After a
// successful reconnect a fresh channel is installed.
func (c *Conn) Lost() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lost
}

// Ensure returns a connected client, dialing if needed. maxAttempts <= 0
// retries until ctx is cancelled; a positive maxAttempts bounds both own
// attempts and the time spent waiting behind another caller's dial.
func (c *Conn) Ensure(ctx context.Context, maxAttempts int) (mqtt.Client, error) {
	for {
		c.mu.Lock()
		if c.state == StateConnected && c.client != nil && c.client.IsConnectionOpen() {
			client := c.client
			c.mu.Unlock()
			return client, nil
		}
		if c.dialing != nil {
			inFlight := c.dialing
			c.mu.Unlock()
			if err := c.awaitDial(ctx, inFlight, maxAttempts); err != nil {
				return nil, err
			}
			// Re-check: the settled dial may have failed, in which
			// case we become the dialer with our own budget.
			continue
		}
		c.state = StateConnecting
		settled := make(chan struct{})
		c.dialing = settled
		c.mu.Unlock()

		client, err := c.dial(ctx, maxAttempts)

		c.mu.Lock()
		c.dialing = nil
		close(settled)
		if err != nil {
			c.state = StateDisconnected
			c.mu.Unlock()
			return nil, &TransportError{Op: "connect", Err: err}
		}
		c.client = client
		c.state = StateConnected
		c.lost = make(chan struct{})
		c.mu.Unlock()
		return client, nil
	}
}

// awaitDial blocks until another caller's in-flight dial settles. Bounded
// callers give up after the time their own attempts would have taken.
func (c *Conn) awaitDial(ctx context.Context, inFlight <-chan struct{}, maxAttempts int) error {
	if maxAttempts <= 0 {
		select {
		case <-inFlight:
			return nil
		case <-ctx.Done():
			return &TransportError{Op: "connect", Err: ctx.Err()}
		}
	}
	budget := time.Duration(maxAttempts) * c.cfg.ReconnectDelay
	timer := time.NewTimer(budget)
	defer timer.Stop()
	select {
	case <-inFlight:
		return nil
	case <-timer.C:
		return &TransportError{Op: "connect", Err: fmt.Errorf("broker still unreachable after %v", budget)}
	case <-ctx.Done():
		return &TransportError{Op: "connect", Err: ctx.Err()}
	}
}

// dial runs the connection attempts with a fixed delay between them. It never
// touches c's fields; the caller installs the result under the lock.
func (c *Conn) dial(ctx context.Context, maxAttempts int) (mqtt.Client, error) {
	addr := fmt.Sprintf("tcp://%s:%d", c.cfg.Host, c.cfg.Port)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(addr)
	opts.SetUsername(c.cfg.User)
	opts.SetPassword(c.cfg.Password)
	opts.SetClientID(c.cfg.ClientID)
	// A persistent session keeps unacked QoS1 deliveries for redelivery.
	opts.SetCleanSession(false)
	// Reconnects are driven lazily by Ensure, not by the paho client.
	opts.SetAutoReconnect(false)
	// Handlers decide acks themselves; see Consumer.
	opts.SetAutoAckDisabled(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("rabbitmq: connection lost: %v", err)
		c.markDisconnected()
	})

	var client mqtt.Client
	bo := backoff.NewConstantBackOff(c.cfg.ReconnectDelay)
	var policy backoff.BackOff = backoff.WithContext(bo, ctx)
	if maxAttempts > 0 {
		policy = backoff.WithMaxRetries(policy, uint64(maxAttempts-1))
	}

	err := backoff.Retry(func() error {
		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			log.Printf("rabbitmq: connect to %s failed: %v", addr, token.Error())
			return token.Error()
		}
		return nil
	}, policy)
	if err != nil {
		return nil, err
	}
	log.Printf("rabbitmq: connected to broker at %s", addr)
	return client, nil
}

func (c *Conn) markDisconnected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateDisconnected {
		c.state = StateDisconnected
		select {
		case <-c.lost:
		default:
			close(c.lost)
		}
	}
}

// Drop disconnects the current client, if any, and marks the connection lost,
// so the next Ensure dials a fresh session. Used when a connected client
// turns out unusable, e.g. a failed subscribe.
func (c *Conn) Drop() {
	c.mu.Lock()
	client := c.client
	c.client = nil
	c.mu.Unlock()
	c.markDisconnected()
	if client != nil && client.IsConnected() {
		client.Disconnect(250)
	}
}

// Close disconnects the client, if any.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(250)
		log.Println("rabbitmq: connection closed")
	}
	c.client = nil
	c.state = StateDisconnected
}
