package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sony/gobreaker"

	"github.com/sweeney/seat-sensor/internal/logic"
)

// Options configures a RealPublisher.
type Options struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Identity Identity

	// BufferSize is how many messages are kept while the broker is unreachable.
	BufferSize int
	// ConnectTimeout bounds the initial connection attempts (with backoff).
	ConnectTimeout time.Duration
	// PublishTimeout bounds a single publish.
	PublishTimeout time.Duration
	// BreakerFailures is the number of consecutive publish failures that open the breaker.
	BreakerFailures uint32
	// BreakerTimeout is how long the breaker stays open before probing again.
	BreakerTimeout time.Duration
}

func (o *Options) setDefaults() {
	if o.ClientID == "" {
		o.ClientID = "seat-sensor-" + o.Identity.SeatID
	}
	if o.BufferSize <= 0 {
		o.BufferSize = 100
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 30 * time.Second
	}
	if o.PublishTimeout <= 0 {
		o.PublishTimeout = 5 * time.Second
	}
	if o.BreakerFailures == 0 {
		o.BreakerFailures = 3
	}
	if o.BreakerTimeout <= 0 {
		o.BreakerTimeout = 30 * time.Second
	}
}

var errPublishTimeout = errors.New("publish timeout")

// RealPublisher publishes to an actual MQTT broker. Messages that cannot be
// delivered (disconnected, timed out, or breaker open) are buffered and
// replayed in order once publishing succeeds again.
type RealPublisher struct {
	client  paho.Client
	opts    Options
	breaker *gobreaker.CircuitBreaker
	now     func() time.Time

	connectBackOff func() backoff.BackOff

	mu            sync.Mutex
	buf           *ringBuffer
	everConnected bool

	flushMu sync.Mutex
}

// NewRealPublisher connects to the broker, retrying with exponential backoff
// until opts.ConnectTimeout elapses or ctx is cancelled.
func NewRealPublisher(ctx context.Context, opts Options) (*RealPublisher, error) {
	p := newPublisher(nil, opts)
	p.client = paho.NewClient(p.clientOptions())

	if err := p.connect(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// connect retries the initial connection using p.connectBackOff.
func (p *RealPublisher) connect(ctx context.Context) error {
	err := backoff.Retry(func() error {
		token := p.client.Connect()
		if !token.WaitTimeout(10 * time.Second) {
			return errors.New("connection timeout")
		}
		if err := token.Error(); err != nil {
			log.Printf("mqtt: connect to %s failed: %v", p.opts.Broker, err)
			return err
		}
		return nil
	}, backoff.WithContext(p.connectBackOff(), ctx))
	if err != nil {
		return fmt.Errorf("connect to broker %s: %w", p.opts.Broker, err)
	}
	return nil
}

// newPublisher builds a publisher around client without connecting it.
func newPublisher(client paho.Client, opts Options) *RealPublisher {
	opts.setDefaults()
	p := &RealPublisher{
		client: client,
		opts:   opts,
		now:    time.Now,
		buf:    newRingBuffer(opts.BufferSize),
	}
	p.connectBackOff = func() backoff.BackOff {
		bo := backoff.NewExponentialBackOff()
		bo.MaxElapsedTime = p.opts.ConnectTimeout
		return bo
	}
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "mqtt-publish",
		Timeout: opts.BreakerTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= opts.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("mqtt: breaker %s %s -> %s", name, from, to)
		},
	})
	return p
}

func (p *RealPublisher) clientOptions() *paho.ClientOptions {
	will, _ := FormatSystemPayload(SystemEvent{
		Timestamp: p.now(),
		Event:     "OFFLINE",
		Reason:    "MQTT_DISCONNECT",
	})

	return paho.NewClientOptions().
		AddBroker(p.opts.Broker).
		SetClientID(p.opts.ClientID).
		SetUsername(p.opts.Username).
		SetPassword(p.opts.Password).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(time.Minute).
		SetWill(p.opts.Identity.SystemTopic(), string(will), 1, true).
		SetOnConnectHandler(p.handleConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})
}

// handleConnect runs on every (re)connection. After a reconnect it announces
// RECONNECTED and replays whatever was buffered while offline.
func (p *RealPublisher) handleConnect(_ paho.Client) {
	p.mu.Lock()
	reconnect := p.everConnected
	p.everConnected = true
	p.mu.Unlock()

	if !reconnect {
		log.Printf("mqtt: connected to %s", p.opts.Broker)
		return
	}

	log.Printf("mqtt: reconnected to %s", p.opts.Broker)
	payload, _ := FormatSystemPayload(SystemEvent{Timestamp: p.now(), Event: "RECONNECTED"})
	if err := p.publishNow(bufferedMsg{topic: p.opts.Identity.SystemTopic(), payload: payload, qos: 1}); err != nil {
		log.Printf("mqtt: publish reconnected event: %v", err)
		return
	}
	if err := p.flush(); err != nil {
		log.Printf("mqtt: replay after reconnect: %v", err)
	}
}

// Publish sends an occupancy event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(p.opts.Identity, event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// Status changes are the whole point of the sensor: QoS 1, retained so
	// late subscribers see the current seat status.
	return p.send(bufferedMsg{topic: p.opts.Identity.EventsTopic(), payload: payload, qos: 1, retained: true})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.send(bufferedMsg{topic: p.opts.Identity.SystemTopic(), payload: payload, qos: 1, retained: event.Retained})
}

// send queues msg behind anything already buffered and flushes the queue
// through the breaker, so messages always reach the broker in order.
func (p *RealPublisher) send(msg bufferedMsg) error {
	p.enqueue(msg)
	if !p.client.IsConnectionOpen() {
		return nil
	}

	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, p.flush()
	})
	if err != nil {
		return fmt.Errorf("publish to %s (buffered): %w", msg.topic, err)
	}
	return nil
}

func (p *RealPublisher) publishNow(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(p.opts.PublishTimeout) {
		return errPublishTimeout
	}
	return token.Error()
}

func (p *RealPublisher) enqueue(msg bufferedMsg) {
	p.mu.Lock()
	p.buf.push(msg)
	p.mu.Unlock()
}

// flush replays buffered messages oldest first. On the first failure the
// remainder goes back to the front of the buffer, ahead of anything queued
// while the flush was running.
func (p *RealPublisher) flush() error {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	p.mu.Lock()
	pending := p.buf.drainAll()
	p.mu.Unlock()

	for i, msg := range pending {
		if err := p.publishNow(msg); err != nil {
			p.mu.Lock()
			p.buf.requeue(pending[i:])
			p.mu.Unlock()
			return err
		}
	}
	return nil
}

// Buffered returns the number of messages waiting for replay.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// IsConnected reports whether the connection to the broker is open.
func (p *RealPublisher) IsConnected() bool {
	return p.client != nil && p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	if n := p.Buffered(); n > 0 {
		log.Printf("mqtt: closing with %d unsent messages", n)
	}
	p.client.Disconnect(1000) // 1 second quiesce
	return nil
}
