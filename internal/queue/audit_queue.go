package queue

import (
	"context"
	"time"

	"event-ticket-gate/internal/model"
	"event-ticket-gate/pkg/logger"

	"go.uber.org/zap"
)

// DefaultRequeueDelay paces redelivery of a nacked event so a failing store
// is not hammered in a tight loop.
const DefaultRequeueDelay = 500 * time.Millisecond

type Delivery struct {
	Data *model.TicketAuditEvent
	Ack  func()
	Nack func(requeue bool)
}

// AuditQueue carries ticket audit events from the request path to the audit worker.
type AuditQueue interface {
	Publish(ctx context.Context, event *model.TicketAuditEvent) error
	Subscribe(ctx context.Context) (<-chan Delivery, error)
}

type MemoryAuditQueue struct {
	ch           chan *model.TicketAuditEvent
	requeueDelay time.Duration
}

func NewMemoryAuditQueue(bufferSize int) AuditQueue {
	return NewMemoryAuditQueueWithRequeueDelay(bufferSize, DefaultRequeueDelay)
}

func NewMemoryAuditQueueWithRequeueDelay(bufferSize int, requeueDelay time.Duration) AuditQueue {
	return &MemoryAuditQueue{
		ch:           make(chan *model.TicketAuditEvent, bufferSize),
		requeueDelay: requeueDelay,
	}
}

func (q *MemoryAuditQueue) Publish(ctx context.Context, event *model.TicketAuditEvent) error {
	select {
	case q.ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryAuditQueue) Subscribe(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-q.ch:
				if !ok {
					return
				}

				d := Delivery{
					Data: event,
					Ack:  func() {},
					Nack: func(requeue bool) {
						if requeue {
							q.requeue(event)
						}
					},
				}
				select {
				case out <- d:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// requeue puts event back after requeueDelay. A full buffer drops the retry
// rather than blocking the timer goroutine.
func (q *MemoryAuditQueue) requeue(event *model.TicketAuditEvent) {
	time.AfterFunc(q.requeueDelay, func() {
		select {
		case q.ch <- event:
		default:
			logger.WithComponent("mq").Warn("audit buffer full, dropping requeued event",
				zap.String("request_id", event.RequestID),
			)
		}
	})
}
