package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"siteops-backend/internal/metrics"
	"siteops-backend/internal/safety"
)

const DefaultAlertTopic = "site.safety.alerts"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// AlertEventPublisher streams alert lifecycle events to Kafka. Messages are
// keyed by condition key so one condition's events stay on one partition.
type AlertEventPublisher struct {
	writer messageWriter
	topic  string
}

func NewAlertEventPublisher(brokers, topic string) *AlertEventPublisher {
	if topic == "" {
		topic = DefaultAlertTopic
	}

	addrs := []string{}
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			addrs = append(addrs, b)
		}
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(addrs...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
		AllowAutoTopicCreation: true,
	}
	return &AlertEventPublisher{writer: writer, topic: topic}
}

func (p *AlertEventPublisher) PublishEvents(ctx context.Context, events []safety.Event) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, ev := range events {
		value, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("failed to encode alert event: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(ev.Alert.ConditionKey),
			Value: value,
			Headers: []kafka.Header{
				{Key: "kind", Value: []byte(ev.Kind)},
				{Key: "severity", Value: []byte(ev.Alert.Severity)},
			},
		})
	}

	started := time.Now()
	err := p.writer.WriteMessages(ctx, msgs...)
	metrics.RecordExternalCall("kafka", time.Since(started), err)
	if err != nil {
		return fmt.Errorf("failed to publish %d alert events to %s: %w", len(msgs), p.topic, err)
	}
	return nil
}

// Name and DeliverCue let the publisher sit in the cue sink list as well
func (p *AlertEventPublisher) Name() string {
	return "kafka"
}

func (p *AlertEventPublisher) DeliverCue(ctx context.Context, cue safety.Cue) error {
	return p.PublishEvents(ctx, []safety.Event{{
		Kind:      safety.EventCue,
		Alert:     cue.Alert,
		Timestamp: cue.Alert.Timestamp,
	}})
}

func (p *AlertEventPublisher) Close() {
	if err := p.writer.Close(); err != nil {
		log.Printf("⚠️  Kafka writer close: %v", err)
	}
}
