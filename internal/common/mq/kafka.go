package mq

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	headerID        = "x-message-id"
	headerTimestamp = "x-message-ts"
)

// KafkaConfig defines configuration for the Kafka implementation.
type KafkaConfig struct {
	Brokers  []string
	ClientID string

	// Producer settings
	RequiredAcks kafka.RequiredAcks
	BatchTimeout time.Duration

	// Consumer settings
	MinBytes int
	MaxBytes int
	MaxWait  time.Duration
}

// KafkaQueue implements MessageQueue using Kafka topics as queues.
// Queue declaration and per-message TTL are broker concerns RabbitMQ covers
// natively; on Kafka DeclareQueue is a no-op (topics are auto-created) and
// TTL falls back to topic retention.
type KafkaQueue struct {
	config KafkaConfig
	writer *kafka.Writer

	mu            sync.Mutex
	subscriptions []*kafkaSubscription
	started       bool
	closed        bool
	wg            sync.WaitGroup
}

type kafkaSubscription struct {
	topic   string
	handler HandlerFunc
	opts    SubscribeOptions
	baseCtx context.Context
	cancel  context.CancelFunc
}

// NewKafkaQueue creates a Kafka-backed message queue.
func NewKafkaQueue(config KafkaConfig) (*KafkaQueue, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if config.MinBytes == 0 {
		config.MinBytes = 1
	}
	if config.MaxBytes == 0 {
		config.MaxBytes = 10 << 20
	}
	if config.MaxWait == 0 {
		config.MaxWait = 500 * time.Millisecond
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(config.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           config.RequiredAcks,
		BatchTimeout:           config.BatchTimeout,
		AllowAutoTopicCreation: true,
	}
	return &KafkaQueue{config: config, writer: writer}, nil
}

// DeclareQueue is a no-op: topics are auto-created on first publish.
func (q *KafkaQueue) DeclareQueue(ctx context.Context, queue string, opts QueueOptions) error {
	return nil
}

// Publish writes a message to the topic.
func (q *KafkaQueue) Publish(ctx context.Context, queue string, message *Message) error {
	if message == nil {
		return fmt.Errorf("message is nil")
	}

	headers := []kafka.Header{
		{Key: headerID, Value: []byte(message.ID)},
		{Key: headerTimestamp, Value: []byte(message.Timestamp.Format(time.RFC3339Nano))},
	}
	for k, v := range message.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	return q.writer.WriteMessages(ctx, kafka.Message{
		Topic:   queue,
		Value:   message.Body,
		Headers: headers,
		Time:    message.Timestamp,
	})
}

// Subscribe registers a handler; consumption starts on Start.
func (q *KafkaQueue) Subscribe(ctx context.Context, queue string, handler HandlerFunc, opts *SubscribeOptions) error {
	if handler == nil {
		return fmt.Errorf("handler is nil")
	}
	options := SubscribeOptions{RequeueOnError: true}
	if opts != nil {
		options = *opts
	}
	options.SetDefaults()
	if options.ConsumerGroup == "" {
		options.ConsumerGroup = queue + "-consumers"
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return fmt.Errorf("cannot subscribe after Start")
	}
	q.subscriptions = append(q.subscriptions, &kafkaSubscription{
		topic:   queue,
		handler: handler,
		opts:    options,
		baseCtx: ctx,
	})
	return nil
}

// Start launches one reader loop per subscription.
func (q *KafkaQueue) Start() error {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return nil
	}
	q.started = true
	subs := q.subscriptions
	q.mu.Unlock()

	for _, sub := range subs {
		subCtx, cancel := context.WithCancel(sub.baseCtx)
		sub.cancel = cancel
		q.wg.Add(1)
		go q.readLoop(subCtx, sub)
	}
	return nil
}

func (q *KafkaQueue) readLoop(ctx context.Context, sub *kafkaSubscription) {
	defer q.wg.Done()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  q.config.Brokers,
		GroupID:  sub.opts.ConsumerGroup,
		Topic:    sub.topic,
		MinBytes: q.config.MinBytes,
		MaxBytes: q.config.MaxBytes,
		MaxWait:  q.config.MaxWait,
	})
	defer func() { _ = reader.Close() }()

	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			// context cancellation or reader closed
			return
		}

		msg := &Message{
			Body:      m.Value,
			Headers:   make(map[string]string, len(m.Headers)),
			Timestamp: m.Time,
		}
		for _, h := range m.Headers {
			switch h.Key {
			case headerID:
				msg.ID = string(h.Value)
			case headerTimestamp:
				if ts, err := time.Parse(time.RFC3339Nano, string(h.Value)); err == nil {
					msg.Timestamp = ts
				}
			default:
				msg.Headers[h.Key] = string(h.Value)
			}
		}

		handlerErr := sub.handler(ctx, msg)
		if handlerErr != nil && sub.opts.RequeueOnError {
			// leave uncommitted so the group redelivers after rebalance
			continue
		}
		_ = reader.CommitMessages(ctx, m)
	}
}

// Stop cancels all reader loops and waits for them to drain.
func (q *KafkaQueue) Stop() error {
	q.mu.Lock()
	subs := q.subscriptions
	q.mu.Unlock()

	for _, sub := range subs {
		if sub.cancel != nil {
			sub.cancel()
		}
	}
	q.wg.Wait()
	return nil
}

// Ping verifies at least one broker is reachable.
func (q *KafkaQueue) Ping(ctx context.Context) error {
	conn, err := kafka.DialContext(ctx, "tcp", q.config.Brokers[0])
	if err != nil {
		return err
	}
	return conn.Close()
}

// Close stops consumers and closes the writer.
func (q *KafkaQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	_ = q.Stop()
	return q.writer.Close()
}
