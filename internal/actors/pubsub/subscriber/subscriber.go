package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/popgraph/popgraph/internal/core/model"
	"github.com/popgraph/popgraph/internal/core/ports"

	log "github.com/sirupsen/logrus"
)

// SubscriberArgs contain the mandatory arguments to build a subscriber.
type SubscriberArgs struct {
	// Subscription is a pubsub subscription
	Subscription *pubsub.Subscription

	// GraphEventHandler is a event handler
	GraphEventHandler ports.GraphEventHandler
}

// Subscriber is a pubsub async subscriber
type Subscriber struct {
	subscription      *pubsub.Subscription
	graphEventHandler ports.GraphEventHandler
}

// NewSubscriber creates a subscriber
func NewSubscriber(args SubscriberArgs) *Subscriber {
	return &Subscriber{
		subscription:      args.Subscription,
		graphEventHandler: args.GraphEventHandler,
	}
}

// Consume starts the subscriber. This is a blocking method and should be started in it's own go-routine.
// The way to terminate the method is to cancel the context in input.
func (s *Subscriber) Consume(ctx context.Context) error {
	if err := s.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {

		graphEvent, err := decodeMsgIntoGraphEvent(msg)
		if err != nil {
			log.WithError(err).Error("error decoding message into graph-event")
			msg.Nack()
			return
		}

		if err := s.graphEventHandler.Handle(ctx, *graphEvent); err != nil {
			log.WithError(err).Error("error in graph event handler")
			msg.Nack()
		} else {
			msg.Ack()
		}
	}); err != nil {
		return fmt.Errorf("error receiving messages from subscription: %w", err)
	}
	return nil
}

func decodeMsgIntoGraphEvent(msg *pubsub.Message) (*model.GraphEvent, error) {
	if msg == nil {
		return nil, errors.New("cannot decode nil pubsub msg")
	}
	graphEvent := new(model.GraphEvent)
	if err := json.Unmarshal(msg.Data, graphEvent); err != nil {
		return nil, fmt.Errorf("json unmarshal error: %w", err)
	}
	if graphEvent.ID == "" {
		graphEvent.ID = msg.ID
	}
	return graphEvent, nil
}
