package worker

import (
	"context"

	"event-ticket-gate/internal/queue"
	"event-ticket-gate/internal/service"
	"event-ticket-gate/pkg/logger"

	"go.uber.org/zap"
)

type AuditWorker interface {
	// Start subscribes to the audit queue and persists events until ctx is done.
	Start(ctx context.Context) error
}

type AuditWorkerImpl struct {
	service service.AuditService
	queue   queue.AuditQueue
}

func NewAuditWorker(service service.AuditService, queue queue.AuditQueue) AuditWorker {
	return &AuditWorkerImpl{
		service: service,
		queue:   queue,
	}
}

func (w *AuditWorkerImpl) Start(ctx context.Context) error {
	msgs, err := w.queue.Subscribe(ctx)
	if err != nil {
		return err
	}

	go func() {
		for msg := range msgs {
			if err := w.service.Record(ctx, msg.Data); err != nil {
				// storage is probably down; leave it for redelivery
				logger.WithComponent("worker").Warn("failed to record audit event",
					zap.String("request_id", msg.Data.RequestID),
					zap.Error(err),
				)
				msg.Nack(true)
				continue
			}
			msg.Ack()
		}
	}()
	return nil
}
