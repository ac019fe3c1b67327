package events

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const attemptHeader = "x-attempt"

type Handler func(ctx context.Context, ev TurnEvent) error

type ConsumerOptions struct {
	Concurrency int
	MaxAttempts int
	RetryDelay  time.Duration
	// HandleTimeout bounds one handler call.
	HandleTimeout time.Duration
}

// Consumer drains the turn queue with a bounded worker pool. Failed events go
// through the retry queue until MaxAttempts, then to the DLQ.
type Consumer struct {
	ch     *amqp.Channel
	queue  string
	opts   ConsumerOptions
	handle Handler
	log    zerolog.Logger

	// retry republishes d with the given attempt number; nil disables retries.
	retry func(ctx context.Context, d amqp.Delivery, attempt int) error
}

func NewConsumer(ch *amqp.Channel, queue string, opts ConsumerOptions, handle Handler, log zerolog.Logger) (*Consumer, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 2
	}
	if opts.Concurrency > 50 {
		opts.Concurrency = 50
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 5 * time.Second
	}
	if opts.HandleTimeout <= 0 {
		opts.HandleTimeout = 30 * time.Second
	}

	if err := declareTopology(ch, queue); err != nil {
		return nil, err
	}
	if err := ch.Qos(opts.Concurrency, 0, false); err != nil {
		return nil, err
	}

	c := &Consumer{ch: ch, queue: queue, opts: opts, handle: handle, log: log}
	c.retry = c.publishRetry
	return c, nil
}

// Run blocks until ctx is cancelled or the delivery channel closes. Events
// already being handled finish; buffered ones are requeued.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	c.log.Info().Str("queue", c.queue).Int("concurrency", c.opts.Concurrency).Msg("worker started")

	jobs := make(chan amqp.Delivery, c.opts.Concurrency*2)

	var wg sync.WaitGroup
	wg.Add(c.opts.Concurrency)
	for i := 0; i < c.opts.Concurrency; i++ {
		go func() {
			defer wg.Done()
			c.work(ctx, jobs)
		}()
	}

	defer func() {
		close(jobs)
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("worker shutting down")
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			jobs <- d
		}
	}
}

func (c *Consumer) work(ctx context.Context, jobs <-chan amqp.Delivery) {
	for d := range jobs {
		if ctx.Err() != nil {
			if err := d.Nack(false, true); err != nil {
				c.log.Warn().Err(err).Msg("requeue on shutdown failed")
			}
			continue
		}
		c.process(ctx, d)
	}
}

// process handles one delivery. It is detached from ctx cancellation; the
// handler is bounded by HandleTimeout and the retry publish by its own timeout.
func (c *Consumer) process(ctx context.Context, d amqp.Delivery) {
	ctx = context.WithoutCancel(ctx)

	var ev TurnEvent
	if err := json.Unmarshal(d.Body, &ev); err != nil || ev.ID == "" {
		c.log.Warn().Err(err).Msg("bad turn event")
		_ = d.Nack(false, false)
		return
	}

	start := time.Now()
	hctx, cancel := context.WithTimeout(ctx, c.handleTimeout())
	err := c.handle(hctx, ev)
	cancel()
	if err == nil {
		if err := d.Ack(false); err != nil {
			c.log.Warn().Err(err).Str("event", ev.ID).Msg("ack failed")
		}
		return
	}

	attempt := attemptOf(d) + 1
	c.log.Warn().Err(err).Str("event", ev.ID).Int("attempt", attempt).Dur("cost", time.Since(start)).Msg("turn event failed")

	if attempt < c.opts.MaxAttempts && c.retry != nil {
		rerr := c.retry(ctx, d, attempt)
		if rerr == nil {
			_ = d.Ack(false)
			return
		}
		c.log.Warn().Err(rerr).Str("event", ev.ID).Msg("retry publish failed")
	}

	c.log.Warn().Str("event", ev.ID).Msg("turn event dead-lettered")
	_ = d.Nack(false, false)
}

func (c *Consumer) publishRetry(ctx context.Context, d amqp.Delivery, attempt int) error {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return c.ch.PublishWithContext(cctx, "", c.queue+".retry", false, false, amqp.Publishing{
		ContentType:  d.ContentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    d.MessageId,
		Body:         d.Body,
		Timestamp:    time.Now(),
		Expiration:   strconv.FormatInt(c.opts.RetryDelay.Milliseconds(), 10),
		Headers:      amqp.Table{attemptHeader: int32(attempt)},
	})
}

func (c *Consumer) handleTimeout() time.Duration {
	if c.opts.HandleTimeout <= 0 {
		return 30 * time.Second
	}
	return c.opts.HandleTimeout
}

func attemptOf(d amqp.Delivery) int {
	switch v := d.Headers[attemptHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}
