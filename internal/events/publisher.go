package events

import (
	"context"
	"encoding/json"
	"time"

	"studychat/internal/entity"

	kafkago "github.com/segmentio/kafka-go"
)

const (
	EventMessageSent = "message.sent"
	EventMessageRead = "message.read"
)

type Event struct {
	Kind           string `json:"kind"`
	ConversationId string `json:"conversationId"`
	MessageId      string `json:"messageId"`
	UserId         string `json:"userId"`
	OccurredAt     int64  `json:"occurredAt"`
}

// Publisher streams messaging events to Kafka for downstream consumers
// (notification fan-out, analytics). A nil Publisher is a no-op so the
// server runs without brokers configured.
type Publisher struct {
	writer *kafkago.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireOne,
		Async:        true,
	}
	return &Publisher{writer: w}
}

func (p *Publisher) MessageSent(ctx context.Context, message entity.Message) {
	if p == nil {
		return
	}
	p.publish(ctx, Event{
		Kind:           EventMessageSent,
		ConversationId: message.ConversationId,
		MessageId:      message.Id,
		UserId:         message.SenderId,
		OccurredAt:     time.Now().UnixMilli(),
	})
}

func (p *Publisher) MessageRead(ctx context.Context, conversationId, messageId, readerId string) {
	if p == nil {
		return
	}
	p.publish(ctx, Event{
		Kind:           EventMessageRead,
		ConversationId: conversationId,
		MessageId:      messageId,
		UserId:         readerId,
		OccurredAt:     time.Now().UnixMilli(),
	})
}

func (p *Publisher) publish(ctx context.Context, event Event) {
	b, err := json.Marshal(event)
	if err != nil {
		return
	}
	_ = p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(event.ConversationId),
		Value: b,
		Time:  time.Now(),
	})
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
