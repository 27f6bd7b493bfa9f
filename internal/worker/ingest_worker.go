package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"researchrag/internal/app"
	"researchrag/internal/platform/rabbitmq"
)

// IngestWorker consumes document ingestion jobs and runs the processing
// pipeline. A single consumer with prefetch 1 keeps heavy extractions from
// piling up; per-document serialization inside the service covers the rest.
type IngestWorker struct {
	conn      *amqp.Connection
	ingestion *app.IngestionService
	queueName string
	log       *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewIngestWorker(conn *amqp.Connection, ingestion *app.IngestionService, queueName string, log *zap.Logger) *IngestWorker {
	return &IngestWorker{
		conn:      conn,
		ingestion: ingestion,
		queueName: queueName,
		log:       log,
	}
}

func (w *IngestWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if _, err := ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				w.handle(workerCtx, d)
			}
		}
	}()

	return nil
}

func (w *IngestWorker) handle(ctx context.Context, d amqp.Delivery) {
	var job rabbitmq.IngestJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		w.log.Error("worker decode job failed", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	if _, err := w.ingestion.ProcessDocument(ctx, job.DocumentID); err != nil {
		w.log.Error("worker process document failed",
			zap.String("document_id", job.DocumentID.String()),
			zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	_ = d.Ack(false)
}

func (w *IngestWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
