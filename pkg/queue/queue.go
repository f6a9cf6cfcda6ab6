package queue

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// Enqueuer forwards stored attachment IDs to the downstream processing
// pipeline. Delivery guarantees belong to the transport, not this package.
type Enqueuer interface {
	Enqueue(ctx context.Context, attachmentID string) error
}

// PubSubEnqueuer publishes attachment IDs to a Pub/Sub topic.
type PubSubEnqueuer struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

func NewPubSubEnqueuer(ctx context.Context, projectID, topicName, credentialsFile string) (*PubSubEnqueuer, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %v", err)
	}

	return &PubSubEnqueuer{
		client: client,
		topic:  client.Topic(topicName),
	}, nil
}

func (e *PubSubEnqueuer) Enqueue(ctx context.Context, attachmentID string) error {
	result := e.topic.Publish(ctx, &pubsub.Message{
		Data: []byte(attachmentID),
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("failed to publish attachment %s: %v", attachmentID, err)
	}
	return nil
}

func (e *PubSubEnqueuer) Close() error {
	e.topic.Stop()
	return e.client.Close()
}
