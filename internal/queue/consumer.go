package queue

import (
    "context"
    "errors"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/flightdesk/internal/logger"
)

// Sink receives decoded events.  A returned error is retried by the Consumer
// unless it is marked Permanent.
type Sink interface {
    Handle(ctx context.Context, ev Event, occurredAt time.Time) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event, occurredAt time.Time) error

func (f SinkFunc) Handle(ctx context.Context, ev Event, at time.Time) error { return f(ctx, ev, at) }

const (
    minBackoff = time.Second
    maxBackoff = 30 * time.Second
)

// Permanent marks a sink error that retrying cannot fix, such as a
// rejected request.  The message is dropped instead of retried.
func Permanent(err error) error {
    if err == nil {
        return nil
    }
    return &permanentError{err: err}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
    var pe *permanentError
    return errors.As(err, &pe)
}

// Consumer reads the dispatch queue and feeds a Sink.
//
// A message that does not decode is rejected at once.  A sink failure is
// retried Attempts times with doubling delay starting at RetryDelay; if it
// still fails the message is requeued once, and dropped when it fails again
// on redelivery.  Permanent sink errors are dropped without retry.
type Consumer struct {
    URL        string
    Queue      string
    Prefetch   int
    Attempts   int
    RetryDelay time.Duration
    Sink       Sink
    Log        logger.Logger
}

// Run connects to the broker and consumes until ctx is cancelled.  Lost
// connections are re-dialled with exponential backoff capped at 30s.  The
// only error returned is ctx's.
func (c *Consumer) Run(ctx context.Context) error {
    queue := c.Queue
    if queue == "" {
        queue = DefaultQueue
    }
    backoff := minBackoff
    for {
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            c.Log.Warn("consumer dial failed", "error", err, "retry_in", backoff.String())
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            backoff = nextBackoff(backoff)
            continue
        }
        backoff = minBackoff

        err = c.consume(ctx, conn, queue)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.Log.Warn("consume loop ended, reconnecting", "error", err)
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection, queue string) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    prefetch := c.Prefetch
    if prefetch <= 0 {
        prefetch = 50
    }
    if err := ch.Qos(prefetch, 0, false); err != nil {
        c.Log.Warn("set QoS failed", "error", err)
    }
    if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }
    c.Log.Info("consuming", "queue", queue)

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            c.process(ctx, d)
        }
    }
}

// process settles one delivery: ack on success, reject on a bad body,
// requeue or drop on sink failure as described on Consumer.
func (c *Consumer) process(ctx context.Context, d amqp.Delivery) {
    ev, at, err := Decode(d.Body)
    if err != nil {
        c.Log.Error("undecodable message rejected", "error", err, "message_id", d.MessageId)
        _ = d.Nack(false, false)
        return
    }
    err = c.deliver(ctx, ev, at)
    switch {
    case err == nil:
        _ = d.Ack(false)
    case IsPermanent(err):
        c.Log.Error("event rejected by sink", "event", ev.EventType(), "error", err)
        _ = d.Nack(false, false)
    case ctx.Err() != nil:
        // shutting down; leave it for the next consumer
        _ = d.Nack(false, true)
    case !d.Redelivered:
        c.Log.Warn("sink failed, requeueing", "event", ev.EventType(), "error", err)
        _ = d.Nack(false, true)
    default:
        c.Log.Error("sink failed after redelivery, dropping", "event", ev.EventType(), "error", err)
        _ = d.Nack(false, false)
    }
}

// deliver calls the sink with bounded retries.
func (c *Consumer) deliver(ctx context.Context, ev Event, at time.Time) error {
    attempts := c.Attempts
    if attempts <= 0 {
        attempts = 3
    }
    delay := c.RetryDelay
    if delay <= 0 {
        delay = minBackoff
    }
    var err error
    for i := 1; ; i++ {
        if err = c.Sink.Handle(ctx, ev, at); err == nil {
            return nil
        }
        err = fmt.Errorf("sink %s (attempt %d): %w", ev.EventType(), i, err)
        if IsPermanent(err) || i >= attempts || !sleep(ctx, delay) {
            return err
        }
        delay = nextBackoff(delay)
    }
}

func nextBackoff(d time.Duration) time.Duration {
    d *= 2
    if d > maxBackoff {
        return maxBackoff
    }
    return d
}

// sleep waits for d or until ctx is done, reporting whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
