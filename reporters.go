package gowait

import (
	"context"
	"fmt"
	"sync"
	"time"

	uuid "github.com/satori/go.uuid"
	kafka "github.com/segmentio/kafka-go"
	"github.com/streadway/amqp"
)

// DefaultRetriedBackoff defines default backoff duration
// between consecutive reporter publish retries.
var DefaultRetriedBackoff = 100 * time.Millisecond

// Reporter defines abstract bench report publishing interface.
type Reporter interface {
	// Report publishes provided serialized report or returns internal error if any happened.
	Report(context.Context, []byte) error
}

// repr defines inner type that creates new report publisher runnable.
type repr func([]byte) Runnable

type reprabbit struct {
	repr       repr
	connection *amqp.Connection
	channel    *amqp.Channel
}

// NewReporterRabbit creates RabbitMQ reporter instance
// with memoized connection and failure retries
// which publishes provided reports to the specified queue.
// New unique exchange `gowait_exchange_{{uuid}}` is created for each new reporter,
// new unique message id `gowait_report_{{uuid}}` is created for each new report.
func NewReporterRabbit(url string, queue string, retries uint64) Reporter {
	exchange := fmt.Sprintf("gowait_exchange_%s", uuid.NewV4())
	rep := &reprabbit{}
	memconnect, reset := memoized(func(ctx context.Context) error {
		return rep.connect(ctx, url, queue, exchange)
	})
	var lock sync.Mutex
	rep.repr = func(report []byte) Runnable {
		return retried(retries, DefaultRetriedBackoff, func(ctx context.Context) error {
			lock.Lock()
			defer lock.Unlock()
			if err := memconnect(ctx); err != nil {
				return err
			}
			if err := rep.channel.Publish(
				exchange,
				queue,
				false,
				false,
				amqp.Publishing{
					DeliveryMode: 2,
					ContentType:  "application/json",
					AppId:        "gowait_bench",
					MessageId:    fmt.Sprintf("gowait_report_%s", uuid.NewV4()),
					Timestamp:    time.Now().UTC(),
					Body:         report,
				},
			); err != nil {
				// refresh connection before the next publish retry
				rep.close()
				_ = reset(ctx)
				return err
			}
			return nil
		})
	}
	return rep
}

func (rep *reprabbit) close() {
	if rep.connection == nil {
		return
	}
	_ = rep.channel.Close()
	_ = rep.connection.Close()
	rep.connection, rep.channel = nil, nil
}

func (rep *reprabbit) Report(ctx context.Context, report []byte) error {
	return rep.repr(report)(ctx)
}

func (rep *reprabbit) connect(_ context.Context, url string, queue string, exchange string) error {
	connection, err := amqp.Dial(url)
	if err != nil {
		return err
	}
	channel, err := connection.Channel()
	if err != nil {
		return err
	}
	if err := channel.ExchangeDeclare(exchange, "direct", true, true, false, false, nil); err != nil {
		return err
	}
	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return err
	}
	if err := channel.QueueBind(queue, queue, exchange, false, nil); err != nil {
		return err
	}
	rep.connection = connection
	rep.channel = channel
	return nil
}

type repkafka struct {
	repr   repr
	writer *kafka.Writer
}

// NewReporterKafka creates Kafka reporter instance
// with memoized writer and failure retries
// which publishes provided reports to the specified topic.
// New unique message key `gowait_report_{{uuid}}` is created for each new report.
func NewReporterKafka(url string, topic string, retries uint64) Reporter {
	rep := &repkafka{}
	memconnect, _ := memoized(func(ctx context.Context) error {
		rep.writer = kafka.NewWriter(kafka.WriterConfig{
			Brokers: []string{url},
			Topic:   topic,
		})
		return nil
	})
	var lock sync.Mutex
	rep.repr = func(report []byte) Runnable {
		return retried(retries, DefaultRetriedBackoff, func(ctx context.Context) error {
			lock.Lock()
			defer lock.Unlock()
			if err := memconnect(ctx); err != nil {
				return err
			}
			return rep.writer.WriteMessages(ctx, kafka.Message{
				Key:   []byte(fmt.Sprintf("gowait_report_%s", uuid.NewV4())),
				Value: report,
				Time:  time.Now().UTC(),
			})
		})
	}
	return rep
}

func (rep *repkafka) Report(ctx context.Context, report []byte) error {
	return rep.repr(report)(ctx)
}

type reppaced struct {
	rep Reporter
	wtr Waiter
	dur time.Duration
}

// NewReporterPaced creates paced reporter instance
// that waits out the provided duration via the provided waiter
// before each report is handed to the underlying reporter.
func NewReporterPaced(rep Reporter, wtr Waiter, dur time.Duration) reppaced {
	return reppaced{rep: rep, wtr: wtr, dur: dur}
}

func (rep reppaced) Report(ctx context.Context, report []byte) error {
	return delayed(rep.wtr, rep.dur, func(ctx context.Context) error {
		return rep.rep.Report(ctx, report)
	})(ctx)
}
