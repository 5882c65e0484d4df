// Package emitter publishes access-granted decisions to an MQTT topic so a
// gate controller can act on them without polling the API.
package emitter

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"plategate/internal/domain/plate"
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 2 * time.Second
)

type Config struct {
	Broker   string
	ClientID string
	Topic    string
	QoS      byte
}

// MQTTEmitter satisfies service.GateNotifier.
type MQTTEmitter struct {
	client mqtt.Client
	cfg    Config
	log    zerolog.Logger
}

func NewMQTTEmitter(cfg Config, log zerolog.Logger) *MQTTEmitter {
	return &MQTTEmitter{cfg: cfg, log: log}
}

func (e *MQTTEmitter) Connect() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", e.cfg.Broker))
	opts.SetClientID(e.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		e.log.Info().Str("broker", e.cfg.Broker).Msg("mqtt connected")
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		e.log.Warn().Err(err).Str("broker", e.cfg.Broker).Msg("mqtt connection lost, auto-reconnecting")
	}

	e.client = mqtt.NewClient(opts)

	token := e.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}
	return nil
}

type gateEvent struct {
	EventID     string    `json:"event_id"`
	PlateNumber string    `json:"plate_number"`
	Confidence  float64   `json:"confidence"`
	CameraID    *int64    `json:"camera_id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NotifyAccessGranted publishes the granted event. A failed publish is
// reported to the caller but the decision itself is already persisted.
func (e *MQTTEmitter) NotifyAccessGranted(event plate.DetectionEvent) error {
	if e.client == nil || !e.client.IsConnected() {
		return fmt.Errorf("mqtt not connected")
	}

	payload, err := json.Marshal(gateEvent{
		EventID:     event.EventID,
		PlateNumber: event.PlateNumber,
		Confidence:  event.Confidence,
		CameraID:    event.CameraID,
		Timestamp:   event.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal gate event: %w", err)
	}

	token := e.client.Publish(e.cfg.Topic, e.cfg.QoS, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}

	e.log.Debug().Str("topic", e.cfg.Topic).Str("plate", event.PlateNumber).Msg("gate event published")
	return nil
}

func (e *MQTTEmitter) Disconnect() {
	if e.client != nil && e.client.IsConnected() {
		e.client.Disconnect(250)
		e.log.Info().Msg("mqtt disconnected")
	}
}
