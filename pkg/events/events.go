// Package events publishes a cancellable notification before every network
// request. Any subscriber may veto the request before a location is touched.
package events

import (
	"fmt"

	"corenet/pkg/types"

	"github.com/hannahhoward/go-pubsub"
	"go.uber.org/zap"
)

// RequestEvent is posted before a request runs.
type RequestEvent struct {
	Matcher   types.Matcher
	Requested int
	Requester types.Node
	Extract   bool

	canceled bool
}

// Cancel vetoes the request.
func (e *RequestEvent) Cancel() {
	e.canceled = true
}

func (e *RequestEvent) Canceled() bool {
	return e.canceled
}

// Subscriber observes request events and may cancel them.
type Subscriber func(evt *RequestEvent)

// Veto decides whether a request must be aborted. Bus.Post satisfies it.
type Veto func(evt *RequestEvent) bool

// Bus dispatches request events to subscribers in subscription order.
type Bus struct {
	ps     *pubsub.PubSub
	logger *zap.Logger
}

func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		ps:     pubsub.New(dispatcher),
		logger: logger,
	}
}

func dispatcher(evt pubsub.Event, subFn pubsub.SubscriberFn) error {
	ie, ok := evt.(*RequestEvent)
	if !ok {
		return fmt.Errorf("wrong type of event: %T", evt)
	}
	cb, ok := subFn.(Subscriber)
	if !ok {
		return fmt.Errorf("wrong type of subscriber: %T", subFn)
	}
	cb(ie)
	return nil
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn Subscriber) pubsub.Unsubscribe {
	return b.ps.Subscribe(fn)
}

// Post publishes evt and reports whether any subscriber cancelled it.
func (b *Bus) Post(evt *RequestEvent) bool {
	if err := b.ps.Publish(evt); err != nil {
		// dispatcher only fails on programming errors
		b.logger.Error("Failed to publish request event", zap.Error(err))
	}
	if evt.Canceled() {
		b.logger.Debug("Request vetoed",
			zap.Stringer("matcher", evt.Matcher),
			zap.Int("requested", evt.Requested))
	}
	return evt.Canceled()
}
