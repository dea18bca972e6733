package publisher

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"topcompras/waf/guard"
	"topcompras/waf/metrics"
)

// DefaultExchange receives guard block messages
const DefaultExchange = "topcompras.guard"

// Message is the JSON body published for every block or unblock
type Message struct {
	Action    string `json:"action"` // "block" or "unblock"
	Identity  string `json:"identity"`
	Reason    string `json:"reason,omitempty"`
	Count     int    `json:"count,omitempty"`
	Until     string `json:"until,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Config for the RabbitMQ publisher
type Config struct {
	URL        string
	Exchange   string
	QueueSize  int
	MaxRetries int
	RetryDelay time.Duration
}

// Publisher forwards guard block events to a fanout exchange. Events are
// queued and published from a single goroutine so listeners never wait on
// the broker.
type Publisher struct {
	cfg Config

	mux     sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel

	publish func(body []byte) error
	queue   chan Message
	done    chan struct{}
	once    sync.Once
}

// New connects to the broker and starts the publishing goroutine
func New(cfg Config) (*Publisher, error) {
	p := newPublisher(cfg, nil)
	p.publish = p.publishAMQP

	p.mux.Lock()
	err := p.connectWithRetry()
	p.mux.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	go p.run()
	return p, nil
}

func newPublisher(cfg Config, publish func([]byte) error) *Publisher {
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	return &Publisher{
		cfg:     cfg,
		publish: publish,
		queue:   make(chan Message, cfg.QueueSize),
		done:    make(chan struct{}),
	}
}

// Handle satisfies guard.Listener
func (p *Publisher) Handle(ev guard.Event) {
	var msg Message
	switch ev.Type {
	case guard.EventBlock:
		msg = Message{
			Action:   "block",
			Identity: ev.Identity,
			Reason:   ev.Reason,
			Count:    ev.Count,
			Until:    ev.Until.UTC().Format(time.RFC3339),
		}
	case guard.EventUnblock:
		msg = Message{Action: "unblock", Identity: ev.Identity}
	default:
		return
	}
	msg.Timestamp = ev.Timestamp.UTC().Format(time.RFC3339)

	select {
	case p.queue <- msg:
	default:
		metrics.Notifications.WithLabelValues("amqp", "dropped").Inc()
		log.Printf("[AMQP] queue full, dropping %s message for %s", msg.Action, msg.Identity)
	}
}

func (p *Publisher) run() {
	defer close(p.done)
	for msg := range p.queue {
		body, err := json.Marshal(msg)
		if err != nil {
			log.Printf("[AMQP] failed to encode message: %v", err)
			continue
		}
		if err := p.publish(body); err != nil {
			metrics.Notifications.WithLabelValues("amqp", "error").Inc()
			log.Printf("[AMQP] %v", err)
			continue
		}
		metrics.Notifications.WithLabelValues("amqp", "sent").Inc()
	}
}

func (p *Publisher) connect() error {
	_ = p.closeLocked()

	conn, err := amqp.Dial(p.cfg.URL)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		p.cfg.Exchange, // name
		"fanout",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}

	p.conn = conn
	p.channel = ch
	log.Printf("[AMQP] connected, publishing to exchange %s", p.cfg.Exchange)
	return nil
}

// connectWithRetry must be called with p.mux held
func (p *Publisher) connectWithRetry() error {
	var err error
	for i := 0; i < p.cfg.MaxRetries; i++ {
		if err = p.connect(); err == nil {
			return nil
		}
		log.Printf("[AMQP] connect attempt %d/%d failed: %v", i+1, p.cfg.MaxRetries, err)
		time.Sleep(p.cfg.RetryDelay)
	}
	return fmt.Errorf("giving up after %d attempts: %w", p.cfg.MaxRetries, err)
}

func (p *Publisher) publishAMQP(body []byte) error {
	p.mux.Lock()
	defer p.mux.Unlock()

	var err error
	for i := 0; i < p.cfg.MaxRetries; i++ {
		if p.conn == nil || p.conn.IsClosed() {
			if err = p.connectWithRetry(); err != nil {
				continue
			}
		}

		err = p.channel.Publish(
			p.cfg.Exchange,
			"",
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				Body:         body,
				DeliveryMode: amqp.Persistent,
				Timestamp:    time.Now(),
			},
		)
		if err == nil {
			return nil
		}

		log.Printf("[AMQP] publish attempt %d/%d failed: %v", i+1, p.cfg.MaxRetries, err)
		if p.conn != nil {
			p.conn.Close() // force a reconnect on the next attempt
		}
		time.Sleep(p.cfg.RetryDelay)
	}
	return fmt.Errorf("publish failed after %d attempts: %w", p.cfg.MaxRetries, err)
}

// Ping reports whether the broker connection is up, without reconnecting
func (p *Publisher) Ping() error {
	p.mux.Lock()
	defer p.mux.Unlock()

	if p.conn == nil || p.conn.IsClosed() {
		return errors.New("rabbitmq connection is not active")
	}
	if p.channel == nil {
		return errors.New("rabbitmq channel is not active")
	}
	return nil
}

// Close flushes queued messages and closes the connection
func (p *Publisher) Close() error {
	p.once.Do(func() { close(p.queue) })
	<-p.done

	p.mux.Lock()
	defer p.mux.Unlock()
	return p.closeLocked()
}

func (p *Publisher) closeLocked() error {
	if p.channel != nil {
		if err := p.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			return err
		}
		p.channel = nil
	}

	if p.conn != nil {
		if err := p.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			return err
		}
		p.conn = nil
	}
	return nil
}
