package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"event-ticket-gate/internal/model"
	"event-ticket-gate/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	StreamKey          = "tickets:audit"
	DeadLetterKey      = "tickets:audit:dead"
	ConsumerGroupName  = "audit-workers"
	ConsumerNamePrefix = "worker"

	eventField    = "event"
	reasonField   = "reason"
	sourceIDField = "source_id"
	batchSize     = 10
)

// RedisStreamAuditQueueConfig tunes redelivery. Zero fields take the defaults.
type RedisStreamAuditQueueConfig struct {
	// ClaimMinIdleTime is how long an unacked entry waits before XAUTOCLAIM hands it out again.
	ClaimMinIdleTime time.Duration
	// MaxRetryCount deliveries after which an entry moves to DeadLetterKey.
	MaxRetryCount      int
	ReadGroupBlockTime time.Duration
	// MaxLen caps the stream with approximate trimming on publish.
	MaxLen int64
}

func (c *RedisStreamAuditQueueConfig) withDefaults() RedisStreamAuditQueueConfig {
	out := RedisStreamAuditQueueConfig{
		ClaimMinIdleTime:   5 * time.Second,
		MaxRetryCount:      5,
		ReadGroupBlockTime: 2 * time.Second,
		MaxLen:             100_000,
	}
	if c == nil {
		return out
	}
	if c.ClaimMinIdleTime > 0 {
		out.ClaimMinIdleTime = c.ClaimMinIdleTime
	}
	if c.MaxRetryCount > 0 {
		out.MaxRetryCount = c.MaxRetryCount
	}
	if c.ReadGroupBlockTime > 0 {
		out.ReadGroupBlockTime = c.ReadGroupBlockTime
	}
	if c.MaxLen > 0 {
		out.MaxLen = c.MaxLen
	}
	return out
}

// RedisStreamAuditQueue shares one consumer group between server replicas, so
// each audit event is written by exactly one of them.
type RedisStreamAuditQueue struct {
	client   *redis.Client
	consumer string
	cfg      RedisStreamAuditQueueConfig
}

// NewRedisStreamAuditQueue joins the audit consumer group, creating it on first use.
// An empty consumerID gets a random one; config may be nil.
func NewRedisStreamAuditQueue(client *redis.Client, consumerID string, config *RedisStreamAuditQueueConfig) (AuditQueue, error) {
	if consumerID == "" {
		consumerID = uuid.NewString()
	}
	q := &RedisStreamAuditQueue{
		client:   client,
		consumer: ConsumerNamePrefix + ":" + consumerID,
		cfg:      config.withDefaults(),
	}

	err := client.XGroupCreateMkStream(context.Background(), StreamKey, ConsumerGroupName, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("create consumer group %s: %w", ConsumerGroupName, err)
	}
	return q, nil
}

func (q *RedisStreamAuditQueue) Publish(ctx context.Context, event *model.TicketAuditEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event %s: %w", event.RequestID, err)
	}
	err = q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: q.cfg.MaxLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{eventField: string(payload)},
	}).Err()
	if err != nil {
		return fmt.Errorf("append audit event %s: %w", event.RequestID, err)
	}
	return nil
}

// Subscribe merges fresh entries with reclaimed ones. The channel closes once
// both loops have seen ctx end.
func (q *RedisStreamAuditQueue) Subscribe(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)
	go func() {
		defer close(out)
		reclaimed := make(chan struct{})
		go func() {
			defer close(reclaimed)
			q.reclaimLoop(ctx, out)
		}()
		for ctx.Err() == nil {
			q.readFresh(ctx, out)
		}
		<-reclaimed
	}()
	return out, nil
}

// readFresh takes entries never delivered to the group (">"). Whatever this
// consumer fails to ack stays pending and returns through reclaimLoop.
func (q *RedisStreamAuditQueue) readFresh(ctx context.Context, out chan<- Delivery) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    ConsumerGroupName,
		Consumer: q.consumer,
		Streams:  []string{StreamKey, ">"},
		Count:    batchSize,
		Block:    q.cfg.ReadGroupBlockTime,
	}).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return
	case err != nil:
		if ctx.Err() == nil {
			logger.WithComponent("mq").Error("read audit stream failed", zap.Error(err))
			sleep(ctx, time.Second)
		}
		return
	}

	for _, stream := range streams {
		if !q.forward(ctx, out, stream.Messages, false) {
			return
		}
	}
}

func (q *RedisStreamAuditQueue) reclaimLoop(ctx context.Context, out chan<- Delivery) {
	ticker := time.NewTicker(q.cfg.ClaimMinIdleTime)
	defer ticker.Stop()

	cursor := "0-0"
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		msgs, next, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   StreamKey,
			Group:    ConsumerGroupName,
			Consumer: q.consumer,
			MinIdle:  q.cfg.ClaimMinIdleTime,
			Count:    batchSize,
			Start:    cursor,
		}).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			if ctx.Err() == nil {
				logger.WithComponent("mq").Error("reclaim audit entries failed", zap.Error(err))
			}
			continue
		}
		// "0-0" means the pending list was scanned to the end
		cursor = next
		if cursor == "" {
			cursor = "0-0"
		}

		if !q.forward(ctx, out, msgs, true) {
			return
		}
	}
}

// forward hands msgs to the subscriber. Reclaimed entries past MaxRetryCount
// are dead-lettered instead. It reports false once ctx is done.
func (q *RedisStreamAuditQueue) forward(ctx context.Context, out chan<- Delivery, msgs []redis.XMessage, reclaimed bool) bool {
	for _, msg := range msgs {
		if reclaimed && q.exhausted(ctx, msg.ID) {
			q.deadLetter(ctx, msg, "max deliveries exceeded")
			continue
		}
		d, ok := q.delivery(ctx, msg)
		if !ok {
			continue
		}
		select {
		case out <- d:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

// exhausted reports whether id has been delivered MaxRetryCount times.
// A lookup failure lets the entry through once more.
func (q *RedisStreamAuditQueue) exhausted(ctx context.Context, id string) bool {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: StreamKey,
		Group:  ConsumerGroupName,
		Start:  id,
		End:    id,
		Count:  1,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		logger.WithComponent("mq").Warn("read delivery count failed", zap.String("message_id", id), zap.Error(err))
		return false
	}
	return len(pending) > 0 && pending[0].RetryCount >= int64(q.cfg.MaxRetryCount)
}

// deadLetter copies msg to DeadLetterKey and acks it, so the audit trail keeps
// the entry for an operator even though no worker could store it.
func (q *RedisStreamAuditQueue) deadLetter(ctx context.Context, msg redis.XMessage, reason string) {
	values := map[string]interface{}{reasonField: reason, sourceIDField: msg.ID}
	if raw, ok := msg.Values[eventField]; ok {
		values[eventField] = raw
	}

	log := logger.WithComponent("mq").With(zap.String("message_id", msg.ID), zap.String("reason", reason))
	if err := q.client.XAdd(ctx, &redis.XAddArgs{Stream: DeadLetterKey, ID: "*", Values: values}).Err(); err != nil {
		// leave it pending; the next reclaim pass tries again
		log.Error("dead-letter audit entry failed", zap.Error(err))
		return
	}
	log.Warn("audit entry dead-lettered")
	q.ack(ctx, msg.ID)
}

func (q *RedisStreamAuditQueue) ack(ctx context.Context, id string) {
	if err := q.client.XAck(ctx, StreamKey, ConsumerGroupName, id).Err(); err != nil {
		logger.WithComponent("mq").Error("ack audit entry failed", zap.String("message_id", id), zap.Error(err))
	}
}

// delivery decodes msg. Entries that cannot be decoded are dead-lettered at once.
func (q *RedisStreamAuditQueue) delivery(ctx context.Context, msg redis.XMessage) (Delivery, bool) {
	raw, ok := msg.Values[eventField].(string)
	if !ok {
		q.deadLetter(ctx, msg, "missing event field")
		return Delivery{}, false
	}
	var event model.TicketAuditEvent
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		q.deadLetter(ctx, msg, "undecodable event")
		return Delivery{}, false
	}

	id := msg.ID
	return Delivery{
		Data: &event,
		Ack:  func() { q.ack(ctx, id) },
		Nack: func(requeue bool) {
			if !requeue {
				q.ack(ctx, id)
				return
			}
			// stays pending until reclaimLoop picks it up after ClaimMinIdleTime
			logger.WithComponent("mq").Debug("audit entry left pending for retry",
				zap.String("message_id", id),
				zap.String("request_id", event.RequestID),
			)
		},
	}, true
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
