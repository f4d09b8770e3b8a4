package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

// Kafka публикует уведомления в топик; ключ сообщения держит события одной записи в одной партиции
type Kafka struct {
	writer MessageWriter
	topic  string
	log    Logger
}

// NewKafka создает издателя уведомлений поверх kafka.Writer
func NewKafka(brokers []string, topic string, writeTimeout time.Duration, log Logger) *Kafka {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: writeTimeout,
	}
	return NewKafkaWithWriter(w, topic, log)
}

// NewKafkaWithWriter создает издателя с произвольным MessageWriter
func NewKafkaWithWriter(w MessageWriter, topic string, log Logger) *Kafka {
	return &Kafka{writer: w, topic: topic, log: log}
}

// Notify отправляет событие одному получателю
func (k *Kafka) Notify(ctx context.Context, recipient domain.Recipient, event domain.AppointmentEvent) error {
	eventID := uuid.NewString()

	body, err := json.Marshal(NewMessage(eventID, recipient, event))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}

	msg := kafka.Message{
		Key:   []byte(messageKey(event)),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(eventID)},
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	msg.Headers = injectTraceHeaders(ctx, msg.Headers)

	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("%w: topic=%s event=%s: %v", ErrPublish, k.topic, event.Type, err)
	}
	return nil
}

// Close закрывает writer
func (k *Kafka) Close() error {
	return k.writer.Close()
}

func messageKey(event domain.AppointmentEvent) string {
	if event.AppointmentID == 0 && event.SeriesID != nil {
		return "series-" + strconv.FormatInt(*event.SeriesID, 10)
	}
	return "appointment-" + strconv.FormatInt(event.AppointmentID, 10)
}

// SplitBrokers разбирает список брокеров через запятую
func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func injectTraceHeaders(ctx context.Context, headers []kafka.Header) []kafka.Header {
	carrier := &headerCarrier{headers: headers}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier.headers
}

type headerCarrier struct {
	headers []kafka.Header
}

func (c *headerCarrier) Get(key string) string {
	for _, h := range c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for _, h := range c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

func (c *headerCarrier) Set(key, value string) {
	for i := range c.headers {
		if c.headers[i].Key == key {
			c.headers[i].Value = []byte(value)
			return
		}
	}
	c.headers = append(c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

var _ propagation.TextMapCarrier = (*headerCarrier)(nil)
