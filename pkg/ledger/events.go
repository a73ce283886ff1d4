package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// PublishEvent broadcasts an event on its session's channel.
// TimestampMs is filled in when zero.
func (c *Client) PublishEvent(ctx context.Context, ev *Event) error {
	if ev.SessionID == "" {
		return fmt.Errorf("event requires session_id")
	}
	if ev.TimestampMs == 0 {
		ev.TimestampMs = nowMs()
	}
	if ev.Data == nil {
		ev.Data = map[string]any{}
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	channel := SessionEventsChannel(c.namespace, ev.SessionID)
	if err := c.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", ev.Type, err)
	}
	return nil
}

// EventSubscription represents an active Pub/Sub subscription to one
// session's events.
// Call Close() to unsubscribe and clean up resources.
type EventSubscription struct {
	events <-chan *Event
	errors <-chan error
	cancel context.CancelFunc
	once   sync.Once
}

// Events returns a read-only channel that receives session events.
// The channel is closed when the subscription is closed or the context is cancelled.
func (s *EventSubscription) Events() <-chan *Event {
	return s.events
}

// Errors returns a read-only channel that receives malformed-message errors.
// Errors do not terminate the subscription.
func (s *EventSubscription) Errors() <-chan error {
	return s.errors
}

// Close unsubscribes and releases resources. Safe to call multiple times.
func (s *EventSubscription) Close() error {
	s.once.Do(func() {
		s.cancel()
	})
	return nil
}

// SubscribeSessionEvents subscribes to the events of one session.
// The subscription is confirmed by Redis before this returns, so events
// published afterwards are never missed.
func (c *Client) SubscribeSessionEvents(ctx context.Context, sessionID string) (*EventSubscription, error) {
	channel := SessionEventsChannel(c.namespace, sessionID)
	pubsub := c.rdb.Subscribe(ctx, channel)

	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	eventsChan := make(chan *Event, 10)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal session event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &ev:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &EventSubscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}
