package recovery

import (
	"context"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/diarlive/errors"
	"github.com/kbukum/diarlive/logger"
)

// messageWriter is the subset of kafka-go's Writer the queue needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// KafkaQueue publishes one JSON message per job, keyed by meeting id so
// jobs for the same meeting stay ordered within a partition.
type KafkaQueue struct {
	w     messageWriter
	topic string
	log   *logger.Logger
}

// NewKafkaQueue creates a queue backed by a kafka-go Writer. The writer
// connects lazily on the first Enqueue.
func NewKafkaQueue(cfg KafkaConfig, log *logger.Logger) *KafkaQueue {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafkago.RequireOne,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			log.Error("kafka writer: "+fmt.Sprintf(msg, args...), nil)
		}),
	}
	log.Info("Recovery queue configured", logger.F{
		"backend": BackendKafka,
		"brokers": cfg.Brokers,
		"topic":   cfg.Topic,
	})
	return newKafkaQueue(w, cfg.Topic, log)
}

func newKafkaQueue(w messageWriter, topic string, log *logger.Logger) *KafkaQueue {
	return &KafkaQueue{w: w, topic: topic, log: log}
}

func (q *KafkaQueue) Name() string { return BackendKafka }

func (q *KafkaQueue) Enqueue(ctx context.Context, job Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	data, err := job.Marshal()
	if err != nil {
		return fmt.Errorf("marshal recovery job: %w", err)
	}
	msg := kafkago.Message{
		Key:   []byte(job.MeetingID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "content-type", Value: []byte("application/json")},
			{Key: "job-id", Value: []byte(job.ID)},
		},
	}
	if err := q.w.WriteMessages(ctx, msg); err != nil {
		return errors.RecoveryFailed(job.MeetingID, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (q *KafkaQueue) Close() error {
	return q.w.Close()
}
