package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"

	"siteops-backend/internal/metrics"
	"siteops-backend/internal/models"
	"siteops-backend/internal/store"
)

const DefaultTelemetryTopic = "site/+/+/position"

var (
	positionTopic = regexp.MustCompile(`^site/(operators|machines)/(\d+)/position$`)

	ErrUnknownTopic = errors.New("unknown telemetry topic")
)

// PositionUpdate is one decoded telemetry message
type PositionUpdate struct {
	Kind     string            `json:"kind"` // "operators" or "machines"
	ID       int               `json:"id"`
	Location models.Coordinate `json:"location"`
}

// TelemetryIngest applies position reports from site trackers to the store
type TelemetryIngest struct {
	store    *store.Store
	client   MQTT.Client
	topic    string
	onUpdate func(PositionUpdate)
}

func NewTelemetryIngest(s *store.Store, onUpdate func(PositionUpdate)) *TelemetryIngest {
	return &TelemetryIngest{store: s, topic: DefaultTelemetryTopic, onUpdate: onUpdate}
}

// Connect dials the broker and subscribes to position topics
func (t *TelemetryIngest) Connect(brokerURL, clientID, topic string) error {
	if topic != "" {
		t.topic = topic
	}

	opts := MQTT.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(c MQTT.Client) {
		log.Printf("✅ MQTT connected to %s", brokerURL)
		// resubscribe after reconnects
		if token := c.Subscribe(t.topic, 1, t.onMessage); token.Wait() && token.Error() != nil {
			log.Printf("❌ MQTT subscribe to %s failed: %v", t.topic, token.Error())
		}
	})
	opts.SetConnectionLostHandler(func(_ MQTT.Client, err error) {
		log.Printf("⚠️  MQTT connection lost: %v", err)
	})

	t.client = MQTT.NewClient(opts)
	if token := t.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	log.Printf("📡 Subscribed to telemetry topic %s", t.topic)
	return nil
}

func (t *TelemetryIngest) Close() {
	if t.client != nil && t.client.IsConnected() {
		t.client.Disconnect(1000)
	}
}

func (t *TelemetryIngest) onMessage(_ MQTT.Client, message MQTT.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := t.Apply(ctx, message.Topic(), message.Payload()); err != nil {
		log.Printf("❌ Telemetry message on %s rejected: %v", message.Topic(), err)
	}
}

// Apply decodes a position message and writes it to the store
func (t *TelemetryIngest) Apply(ctx context.Context, topic string, payload []byte) (*PositionUpdate, error) {
	update, err := ParsePositionMessage(topic, payload)
	if err != nil {
		metrics.RecordTelemetryMessage("unknown", err)
		return nil, err
	}

	switch update.Kind {
	case "operators":
		_, err = t.store.UpdateOperatorLocation(ctx, update.ID, update.Location)
	case "machines":
		_, err = t.store.UpdateMachineLocation(ctx, update.ID, update.Location)
	}
	metrics.RecordTelemetryMessage(update.Kind, err)
	if err != nil {
		return nil, err
	}

	if t.onUpdate != nil {
		t.onUpdate(*update)
	}
	return update, nil
}

// ParsePositionMessage reads site/<operators|machines>/<id>/position with a
// JSON coordinate payload
func ParsePositionMessage(topic string, payload []byte) (*PositionUpdate, error) {
	match := positionTopic.FindStringSubmatch(topic)
	if match == nil {
		return nil, fmt.Errorf("%s: %w", topic, ErrUnknownTopic)
	}
	id, err := strconv.Atoi(match[2])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", topic, ErrUnknownTopic)
	}

	var body struct {
		X    *float64 `json:"x"`
		Y    *float64 `json:"y"`
		Zone string   `json:"zone"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("invalid position payload: %w", err)
	}
	if body.X == nil || body.Y == nil {
		return nil, fmt.Errorf("invalid position payload: x and y are required")
	}

	return &PositionUpdate{
		Kind:     match[1],
		ID:       id,
		Location: models.Coordinate{X: *body.X, Y: *body.Y, Zone: body.Zone},
	}, nil
}
