package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/flightdesk/internal/logger"
	"github.com/iliyamo/flightdesk/internal/metrics"
	"github.com/iliyamo/flightdesk/internal/queue"
)

// Publisher delivers events to downstream collaborators.
type Publisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

const publishTimeout = 5 * time.Second

// notifier publishes events off the request path.  A failed publish is
// logged and counted; it never changes the outcome of the operation that
// produced the event.
type notifier struct {
	pub Publisher
	log logger.Logger
	m   *metrics.Metrics
	wg  sync.WaitGroup
}

func (n *notifier) emit(ctx context.Context, ev queue.Event) {
	if n.pub == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		if err := n.pub.Publish(ctx, ev); err != nil {
			n.log.Warn("event publish failed", "event", ev.EventType(), "error", err)
			n.m.BestEffortFailures.WithLabelValues("publish_" + ev.EventType()).Inc()
		}
	}()
}

// wait blocks until in-flight publishes finish.
func (n *notifier) wait() { n.wg.Wait() }
