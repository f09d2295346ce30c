// Package events carries domain events between the HTTP handlers and the
// background consumers. RabbitMQ is used when configured, an in-process
// channel otherwise.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ahmed-abdelmageed/vise-services-sub001/config"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
)

const (
	TopicApplicationSubmitted = "application_submitted"
	TopicPoisoned             = "application_submitted_poisoned"
)

type ApplicationSubmitted struct {
	ApplicationId string    `json:"application_id"`
	ReferenceId   string    `json:"reference_id"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// Bus is a publisher/subscriber pair on one transport.
type Bus struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
	Transport  string
}

func NewBus(cfg config.AMQPConfig, logger watermill.LoggerAdapter) (*Bus, error) {
	if cfg.URI == "" {
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, logger)
		return &Bus{Publisher: ch, Subscriber: ch, Transport: "gochannel"}, nil
	}

	amqpConfig := amqp.NewDurableQueueConfig(cfg.URI)
	pub, err := amqp.NewPublisher(amqpConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("amqp publisher: %w", err)
	}
	sub, err := amqp.NewSubscriber(amqpConfig, logger)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("amqp subscriber: %w", err)
	}
	return &Bus{Publisher: pub, Subscriber: sub, Transport: "amqp"}, nil
}

func (b *Bus) Close() error {
	err := b.Publisher.Close()
	// the in-process channel is both ends
	if b.Transport == "amqp" {
		if serr := b.Subscriber.Close(); serr != nil && err == nil {
			err = serr
		}
	}
	return err
}

// Outbox publishes domain events.
type Outbox struct {
	pub message.Publisher
}

func NewOutbox(pub message.Publisher) *Outbox { return &Outbox{pub: pub} }

func (o *Outbox) ApplicationSubmitted(ctx context.Context, evt ApplicationSubmitted) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("reference_id", evt.ReferenceId)
	msg.SetContext(ctx)
	return o.pub.Publish(TopicApplicationSubmitted, msg)
}
