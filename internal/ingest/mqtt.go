package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/gryadka/backend-go/internal/config"
	"github.com/gryadka/backend-go/internal/database/models"
	"github.com/gryadka/backend-go/internal/database/service"
)

const (
	connectTimeout = 10 * time.Second
	handleTimeout  = 10 * time.Second
	readingsQoS    = 1
)

// ReadingSubmitter accepts a reading on behalf of the device owning apiKey.
type ReadingSubmitter interface {
	SubmitReading(ctx context.Context, apiKey string, input service.ReadingInput) (*models.SensorReading, error)
}

// readingMessage is the MQTT payload. It has the same shape as the HTTP body.
type readingMessage struct {
	APIKey      string         `json:"api_key"`
	Temperature *float64       `json:"temperature"`
	PH          *float64       `json:"ph"`
	Salinity    *float64       `json:"salinity"`
	Humidity    *int           `json:"humidity"`
	RawData     map[string]any `json:"raw_data"`
}

// Subscriber feeds sensor readings published over MQTT through the same
// acceptance path as the HTTP endpoint.
type Subscriber struct {
	sensors  ReadingSubmitter
	broker   string
	topic    string
	clientID string
	client   mqtt.Client
	ctx      context.Context
	logger   *slog.Logger
}

// NewSubscriber creates a subscriber for cfg.MQTTReadingsTopic
func NewSubscriber(sensors ReadingSubmitter, cfg *config.Config, logger *slog.Logger) *Subscriber {
	return &Subscriber{
		sensors:  sensors,
		broker:   cfg.MQTTBrokerURL,
		topic:    cfg.MQTTReadingsTopic,
		clientID: cfg.MQTTClientID,
		ctx:      context.Background(),
		logger:   logger,
	}
}

// Start connects to the broker. The subscription is renewed on every
// (re)connect. Messages are handled with contexts derived from ctx.
func (s *Subscriber) Start(ctx context.Context) error {
	s.ctx = ctx

	opts := mqtt.NewClientOptions().
		AddBroker(s.broker).
		SetClientID(s.clientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetOrderMatters(false).
		SetConnectTimeout(connectTimeout).
		SetOnConnectHandler(s.subscribe).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			s.logger.Warn("⚠️ [MQTT] Connection lost, reconnecting", "error", err)
		})

	s.logger.Info("🔌 [MQTT] Connecting to broker...", "broker", s.broker, "topic", s.topic)

	s.client = mqtt.NewClient(opts)
	token := s.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("timed out connecting to MQTT broker %s", s.broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	return nil
}

// Stop disconnects, letting in-flight work finish for up to 250ms.
func (s *Subscriber) Stop() {
	if s.client == nil || !s.client.IsConnected() {
		return
	}
	s.client.Disconnect(250)
	s.logger.Info("✅ [MQTT] Disconnected from broker")
}

func (s *Subscriber) subscribe(client mqtt.Client) {
	token := client.Subscribe(s.topic, readingsQoS, s.HandleMessage)
	if !token.WaitTimeout(connectTimeout) || token.Error() != nil {
		s.logger.Error("❌ [MQTT] Failed to subscribe", "topic", s.topic, "error", token.Error())
		return
	}
	s.logger.Info("✅ [MQTT] Subscribed to readings", "topic", s.topic)
}

// HandleMessage decodes one payload and submits it. Bad payloads and rejected
// readings are logged and dropped; the API key is never logged.
func (s *Subscriber) HandleMessage(_ mqtt.Client, msg mqtt.Message) {
	var payload readingMessage
	decoder := json.NewDecoder(bytes.NewReader(msg.Payload()))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		s.logger.Warn("⚠️ [MQTT] Dropping malformed reading", "topic", msg.Topic(), "error", err)
		return
	}
	if payload.APIKey == "" {
		s.logger.Warn("⚠️ [MQTT] Dropping reading without api_key", "topic", msg.Topic())
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, handleTimeout)
	defer cancel()

	reading, err := s.sensors.SubmitReading(ctx, payload.APIKey, service.ReadingInput{
		Temperature: payload.Temperature,
		PH:          payload.PH,
		Salinity:    payload.Salinity,
		Humidity:    payload.Humidity,
		RawData:     payload.RawData,
	})

	var rangeErr *service.MetricRangeError
	switch {
	case err == nil:
		s.logger.Debug("📡 [MQTT] Reading accepted", "device_id", reading.DeviceID, "reading_id", reading.ID)
	case errors.As(err, &rangeErr):
		s.logger.Warn("⚠️ [MQTT] Reading rejected", "field", rangeErr.Field, "error", err)
	case errors.Is(err, service.ErrInvalidAPIKey),
		errors.Is(err, service.ErrReadingRateLimited),
		errors.Is(err, service.ErrRawDataTooLarge),
		errors.Is(err, service.ErrRawDataInvalid):
		s.logger.Warn("⚠️ [MQTT] Reading rejected", "error", err)
	default:
		s.logger.Error("❌ [MQTT] Failed to store reading", "error", err)
	}
}
