package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tasklocal/marketplace/internal/bootstrap"
	infraRedis "github.com/tasklocal/marketplace/internal/infrastructure/redis"
	"github.com/tasklocal/marketplace/internal/repository/postgres"
	"github.com/tasklocal/marketplace/internal/service"
	"github.com/tasklocal/marketplace/pkg/retry"
)

// staleClaimMinIdle is how long a pending message may sit unacked under
// another consumer before this one takes it over.
const staleClaimMinIdle = 5 * time.Minute

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "marketplace-worker", "marketplace_worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Repositories ---
	paymentRepo := postgres.NewPaymentRepository(app.Pool)
	outboxRepo := postgres.NewOutboxRepository(app.Pool)
	idempotencyRepo := postgres.NewIdempotencyRepository(app.Pool)
	txManager := postgres.NewTxManager(app.Pool)
	streamProducer := infraRedis.NewStreamProducer(app.Redis)

	// --- Services ---
	sender := &service.LogSender{Logger: app.Logger}
	receiptService := service.NewReceiptService(paymentRepo, sender, retry.DefaultConfig(), app.Metrics, app.Logger)

	// --- Receipt stream consumer ---
	workerCfg := app.Config.Worker
	consumer := infraRedis.NewStreamConsumer(
		app.Redis,
		infraRedis.ReceiptStream,
		workerCfg.ConsumerGroup,
		app.Config.InstanceID,
		workerCfg.BatchSize,
		workerCfg.BlockDuration,
	)
	if err := consumer.CreateGroup(ctx); err != nil {
		app.Logger.Error().Err(err).Msg("Failed to create consumer group (may already exist)")
	}

	app.Logger.Info().
		Str("stream", infraRedis.ReceiptStream).
		Str("group", workerCfg.ConsumerGroup).
		Str("consumer", app.Config.InstanceID).
		Msg("Worker started, listening for messages...")

	// Signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	// 1. Receipt consumer (reads delivery jobs from Redis Streams).
	g.Go(func() error {
		return runReceiptConsumer(gCtx, app, consumer, streamProducer, receiptService)
	})

	// 2. Outbox poller (publishes committed receipt jobs to Redis Streams).
	g.Go(func() error {
		return runOutboxPoller(gCtx, app.Logger, txManager, outboxRepo, streamProducer, app, workerCfg.OutboxPollInterval)
	})

	// 3. Expired idempotency key cleanup.
	g.Go(func() error {
		return runIdempotencyCleanup(gCtx, app.Logger, idempotencyRepo)
	})

	// 4. Wait for shutdown signal.
	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("Shutting down worker...")
			cancel()
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		app.Logger.Error().Err(err).Msg("Worker error")
	}
	app.Logger.Info().Msg("Worker exited")
}

func runReceiptConsumer(
	ctx context.Context,
	app *bootstrap.App,
	consumer *infraRedis.StreamConsumer,
	producer *infraRedis.StreamProducer,
	receiptService *service.ReceiptService,
) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		streams, err := consumer.Read(ctx)
		if err != nil {
			app.Logger.Error().Err(err).Msg("Failed to read from stream")
			time.Sleep(1 * time.Second)
			continue
		}

		var msgs []redis.XMessage
		for _, stream := range streams {
			msgs = append(msgs, stream.Messages...)
		}

		// Pick up jobs a crashed consumer read but never acked.
		claimed, err := consumer.ClaimStale(ctx, staleClaimMinIdle)
		if err != nil {
			app.Logger.Error().Err(err).Msg("Failed to claim stale messages")
		}
		msgs = append(msgs, claimed...)

		for _, msg := range msgs {
			paymentIDStr, _ := msg.Values["payment_id"].(string)
			paymentID, err := uuid.Parse(paymentIDStr)
			if err != nil {
				app.Logger.Error().Str("raw", paymentIDStr).Msg("Invalid payment ID in stream message")
				consumer.Ack(ctx, msg.ID)
				continue
			}

			// One consumer per payment at a time. The conditional
			// receipt_sent flip is the real duplicate guard; the lock
			// just avoids redundant sends racing.
			lock := infraRedis.NewDistributedLock(app.Redis, "receipt:"+paymentID.String(), app.Config.Worker.ReceiptLockTTL)
			acquired, err := lock.Acquire(ctx)
			if err != nil || !acquired {
				app.Logger.Warn().Str("payment_id", paymentID.String()).Msg("Could not acquire lock, skipping")
				continue
			}

			start := time.Now()
			if err := receiptService.SendReceipt(ctx, paymentID); err != nil {
				// Retries are exhausted inside SendReceipt; park the job
				// for manual replay instead of dropping it on ack.
				app.Logger.Error().Err(err).Str("payment_id", paymentID.String()).Msg("Failed to send receipt, moving to DLQ")
				if dlqErr := producer.PublishToDLQ(ctx, paymentID.String(), err.Error(), msg.Values); dlqErr != nil {
					app.Logger.Error().Err(dlqErr).Str("payment_id", paymentID.String()).Msg("Failed to publish to DLQ")
				}
			}
			app.Metrics.WorkerProcessingDuration.WithLabelValues(infraRedis.ReceiptStream).Observe(time.Since(start).Seconds())

			lock.Release(ctx)
			consumer.Ack(ctx, msg.ID)
		}
	}
}

func runIdempotencyCleanup(ctx context.Context, logger zerolog.Logger, repo *postgres.IdempotencyRepository) error {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		deleted, err := repo.Cleanup(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Idempotency key cleanup failed")
			continue
		}
		if deleted > 0 {
			logger.Info().Int64("deleted", deleted).Msg("Expired idempotency keys removed")
		}
	}
}

func runOutboxPoller(
	ctx context.Context,
	logger zerolog.Logger,
	txManager *postgres.TxManager,
	outboxRepo *postgres.OutboxRepository,
	streamProducer *infraRedis.StreamProducer,
	app *bootstrap.App,
	pollInterval time.Duration,
) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		err := txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			entries, err := outboxRepo.GetPending(txCtx, int(app.Config.Worker.BatchSize))
			if err != nil {
				return err
			}
			for _, entry := range entries {
				if err := streamProducer.PublishReceiptJob(ctx, entry.AggregateID.String(), entry.Payload); err != nil {
					logger.Error().Err(err).Str("outbox_id", entry.ID.String()).Msg("Failed to publish outbox entry")
					outboxRepo.MarkFailed(txCtx, entry.ID)
					app.Metrics.OutboxPublished.WithLabelValues(entry.EventType, "failed").Inc()
					continue
				}
				outboxRepo.MarkPublished(txCtx, entry.ID)
				app.Metrics.OutboxPublished.WithLabelValues(entry.EventType, "published").Inc()
			}
			return nil
		})
		if err != nil {
			logger.Error().Err(err).Msg("Outbox poller error")
		}
	}
}
