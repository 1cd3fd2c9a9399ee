// Package bus carries notifications from the core to UI subscribers over an
// in-process watermill pub/sub.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/fixmytext/internal/actions"
	"github.com/jonathan/fixmytext/internal/hotkey"
)

// Topics
const (
	TopicTriggers  = "fixmytext.triggers"
	TopicTextReady = "fixmytext.text_ready"
	TopicOutcomes  = "fixmytext.outcomes"
)

// Topics lists every topic the bus publishes to.
var Topics = []string{TopicTriggers, TopicTextReady, TopicOutcomes}

// TriggerMessage is published for every dispatched gesture.
type TriggerMessage struct {
	Trigger hotkey.Trigger `json:"trigger"`
	At      time.Time      `json:"at"`
}

// OutcomeMessage is published when an action finishes.
type OutcomeMessage struct {
	Action  string          `json:"action"`
	Outcome actions.Outcome `json:"outcome"`
	At      time.Time       `json:"at"`
}

// Notification is a decoded message handed to subscribers.
type Notification struct {
	ID      string          `json:"id"`
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// Bus wraps a gochannel pub/sub. Messages published with no subscriber are dropped.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger *zap.Logger
}

// New creates an in-process bus.
func New(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "bus"))
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		newZapAdapter(logger.Named("watermill")),
	)
	return &Bus{pubsub: pubsub, logger: logger}
}

// PublishTextReady implements actions.Publisher.
func (b *Bus) PublishTextReady(_ context.Context, ev actions.TextReady) error {
	return b.publish(TopicTextReady, ev)
}

// PublishTrigger announces a dispatched gesture.
func (b *Bus) PublishTrigger(_ context.Context, t hotkey.Trigger) error {
	return b.publish(TopicTriggers, TriggerMessage{Trigger: t, At: time.Now()})
}

// PublishOutcome announces an action result.
func (b *Bus) PublishOutcome(_ context.Context, action string, outcome actions.Outcome) error {
	return b.publish(TopicOutcomes, OutcomeMessage{Action: action, Outcome: outcome, At: time.Now()})
}

func (b *Bus) publish(topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	msg := message.NewMessage(uuid.NewString(), data)
	if err := b.pubsub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	b.logger.Debug("published", zap.String("topic", topic), zap.String("message_id", msg.UUID))
	return nil
}

// Subscribe streams notifications from the given topics until ctx is done or
// the bus is closed. The returned channel is closed when every topic ends.
func (b *Bus) Subscribe(ctx context.Context, topics ...string) (<-chan Notification, error) {
	if len(topics) == 0 {
		topics = Topics
	}

	out := make(chan Notification, 16)
	sources := make([]<-chan *message.Message, 0, len(topics))
	for _, topic := range topics {
		messages, err := b.pubsub.Subscribe(ctx, topic)
		if err != nil {
			return nil, fmt.Errorf("subscribe to %s: %w", topic, err)
		}
		sources = append(sources, messages)
	}

	done := make(chan struct{}, len(sources))
	for i, messages := range sources {
		topic := topics[i]
		go func() {
			defer func() { done <- struct{}{} }()
			for msg := range messages {
				n := Notification{ID: msg.UUID, Topic: topic, Payload: json.RawMessage(msg.Payload)}
				select {
				case out <- n:
					msg.Ack()
				case <-ctx.Done():
					msg.Nack()
				}
			}
		}()
	}

	go func() {
		for range sources {
			<-done
		}
		close(out)
	}()

	return out, nil
}

// Close shuts the pub/sub down and ends every subscription.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}
