package producer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/popgraph/popgraph/internal/core/model"
)

// NewProducer creates a new producer.
func NewProducer(topic *pubsub.Topic) (*Producer, error) {
	if topic == nil {
		return nil, errors.New("topic is nil")
	}
	return &Producer{topic: topic}, nil
}

// Producer is the pubsub producer of graph events.
type Producer struct {
	topic *pubsub.Topic
}

func (p *Producer) Send(ctx context.Context, event model.GraphEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("error marshaling graph-event message: %w", err)
	}
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: data,
	})
	// Block until the result is returned and a server-generated
	// ID is returned for the published message.
	_, err = result.Get(ctx)
	if err != nil {
		return fmt.Errorf("pubsub: result.Get: %v", err)
	}
	return nil
}
