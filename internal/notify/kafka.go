package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"

	"petcare/internal/lifecycle"
)

const (
	DefaultTopic = "appointment.notifications"

	defaultQueueSize = 256
	writeTimeout     = 10 * time.Second
)

var (
	ErrQueueFull = errors.New("kafka notification queue full")
	ErrClosed    = errors.New("kafka notifier closed")
)

// Kafka publishes notifications for downstream toast/notification consumers.
// Messages are keyed by appointment id so one appointment stays ordered.
// Notify only enqueues; a background loop writes to the brokers, so a slow or
// unreachable broker never holds up a status change.
type Kafka struct {
	writer messageWriter
	topic  string
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan kafka.Message
	done   chan struct{}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewKafka(brokers []string, topic string, logger *slog.Logger) *Kafka {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		MaxAttempts:            3,
		AllowAutoTopicCreation: true,
	}
	return newKafka(w, topic, logger, defaultQueueSize)
}

func newKafka(w messageWriter, topic string, logger *slog.Logger, queueSize int) *Kafka {
	if strings.TrimSpace(topic) == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = slog.Default()
	}
	k := &Kafka{
		writer: w,
		topic:  topic,
		logger: logger,
		queue:  make(chan kafka.Message, queueSize),
		done:   make(chan struct{}),
	}
	go k.run()
	return k
}

// Notify enqueues the message and returns ErrQueueFull instead of waiting.
func (k *Kafka) Notify(ctx context.Context, n lifecycle.Notification) error {
	msg, err := buildMessage(ctx, k.topic, n)
	if err != nil {
		return err
	}
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.closed {
		return ErrClosed
	}
	select {
	case k.queue <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

func (k *Kafka) run() {
	defer close(k.done)
	for msg := range k.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := k.writer.WriteMessages(ctx, msg)
		cancel()
		if err != nil {
			k.logger.Warn("kafka publish failed",
				"topic", msg.Topic,
				"appointment_id", string(msg.Key),
				"err", err,
			)
		}
	}
}

// Close stops accepting notifications, flushes the queue and closes the writer.
func (k *Kafka) Close() error {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return nil
	}
	k.closed = true
	close(k.queue)
	k.mu.Unlock()

	<-k.done
	return k.writer.Close()
}

func buildMessage(ctx context.Context, topic string, n lifecycle.Notification) (kafka.Message, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return kafka.Message{}, err
	}
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(n.AppointmentID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(n.ID)},
			{Key: "event_type", Value: []byte("appointment." + string(n.Appointment) + "." + string(n.Kind))},
			{Key: "facility_id", Value: []byte(n.FacilityID)},
		},
	}
	carrier := &headerCarrier{headers: msg.Headers}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	msg.Headers = carrier.headers
	return msg, nil
}

// SplitBrokers parses a comma-separated broker list.
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

func (c *headerCarrier) Set(key, value string) {
	for i, h := range c.headers {
		if h.Key == key {
			c.headers[i].Value = []byte(value)
			return
		}
	}
	c.headers = append(c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for _, h := range c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}
