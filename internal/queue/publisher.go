package queue

import (
    "context"
    "errors"
    "fmt"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/flightdesk/internal/logger"
)

// DefaultQueue is the durable queue carrying dispatch events.
const DefaultQueue = "dispatch.events"

// Publisher sends events to a durable RabbitMQ queue through the default
// exchange.  The connection is dialled lazily and re-dialled after the
// broker drops it, so a broker outage only fails the publishes made while
// it lasts.  Safe for concurrent use.
type Publisher struct {
    url   string
    queue string
    log   logger.Logger
    now   func() time.Time

    mu     sync.Mutex
    conn   *amqp.Connection
    ch     *amqp.Channel
    closed bool
}

// NewPublisher returns a Publisher for the given broker URL and queue.
// An empty queue selects DefaultQueue.
func NewPublisher(url, queue string, log logger.Logger) *Publisher {
    if queue == "" {
        queue = DefaultQueue
    }
    return &Publisher{url: url, queue: queue, log: log, now: time.Now}
}

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("queue: publisher closed")

// Publish encodes ev and sends it as a persistent message.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
    at := p.now().UTC()
    body, err := Encode(ev, at)
    if err != nil {
        return err
    }

    p.mu.Lock()
    defer p.mu.Unlock()
    ch, err := p.channel()
    if err != nil {
        return err
    }
    msg := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    at,
        Type:         ev.EventType(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
        // drop the channel so the next publish starts clean
        p.reset()
        return fmt.Errorf("publish %s: %w", ev.EventType(), err)
    }
    p.log.Debug("event published", "event", ev.EventType(), "queue", p.queue)
    return nil
}

// channel returns an open channel, dialling and declaring the queue when
// needed.  Caller holds p.mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
    if p.closed {
        return nil, ErrPublisherClosed
    }
    if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
        return p.ch, nil
    }
    p.reset()

    conn, err := amqp.Dial(p.url)
    if err != nil {
        return nil, fmt.Errorf("dial broker: %w", err)
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return nil, fmt.Errorf("channel open: %w", err)
    }
    if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
        _ = ch.Close()
        _ = conn.Close()
        return nil, fmt.Errorf("queue declare: %w", err)
    }
    p.conn, p.ch = conn, ch
    return ch, nil
}

func (p *Publisher) reset() {
    if p.ch != nil {
        _ = p.ch.Close()
        p.ch = nil
    }
    if p.conn != nil {
        _ = p.conn.Close()
        p.conn = nil
    }
}

// Close releases the broker connection.  Later publishes fail with
// ErrPublisherClosed.
func (p *Publisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.closed = true
    p.reset()
    return nil
}
