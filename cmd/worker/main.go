package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/commscope/backend/internal/queue"
	"github.com/commscope/backend/internal/setup"
	"github.com/commscope/backend/internal/storage"
	"github.com/commscope/backend/internal/util"
	"github.com/commscope/backend/pkg/ai"
	"github.com/commscope/backend/pkg/leaselock"
	"github.com/commscope/backend/pkg/logger"
	pgxstore "github.com/commscope/backend/pkg/store/pgx"
	"github.com/commscope/backend/pkg/viz"

	amqp "github.com/rabbitmq/amqp091-go"
)

func main() {
	util.LoadEnv()
	setup.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init s3 client
	client, err := storage.NewS3Client(ctx)
	if err != nil || client == nil {
		logger.Fatal("Worker needs object storage for results; set AWS_BUCKET", "err", err)
	}

	// Init pgx client
	pgConn, err := setup.Database(ctx)
	if err != nil || pgConn == nil {
		logger.Fatal("Worker needs a database; set DATABASE_URL", "err", err)
	}
	defer pgConn.Close()
	db := pgxstore.NewDBStorageWithConnection(pgConn)

	embedder, err := setup.Embedder(db)
	if err != nil {
		logger.Fatal("Could not create embedder", "err", err)
	}
	locks := leaselock.New(pgConn, leaselock.Options{
		TTL:         time.Duration(util.GetEnvInt("JOB_LEASE_SEC", 300)) * time.Second,
		TokenPrefix: "worker-",
	})
	jobs := &queue.TopicJobs{
		Jobs:    db,
		Results: storage.NewS3Results(client),
		View:    &viz.TopicModeling{Deps: setup.VizDeps(setup.Files(client), embedder)},
		Locks:   locks,
	}

	// Init rabbitmq
	conn, err := queue.Init()
	if err != nil {
		logger.Fatal("Could not connect to queue", "err", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()
	if err := queue.SetupQueues(ch, queue.Queues); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	// Topic modeling is CPU bound; take one message at a time.
	if err := ch.Qos(1, 0, false); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}
	msgs, err := ch.Consume(
		queue.TopicQueue,
		queue.TopicQueue+"_consumer",
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", queue.TopicQueue, "err", err)
	}

	logger.Info("Listening for messages", "queue", queue.TopicQueue)
	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received, exiting...")
			return
		case msg, ok := <-msgs:
			if !ok {
				logger.Info("Message channel closed", "queue", queue.TopicQueue)
				return
			}
			handle(ctx, ch, jobs, embedder, msg)
		}
	}
}

func handle(ctx context.Context, ch *amqp.Channel, jobs *queue.TopicJobs, embedder ai.Embedder, msg amqp.Delivery) {
	startTime := time.Now()
	logger.Info("Received message", "queue", queue.TopicQueue)

	processingErr := jobs.Process(ctx, msg.Body)
	switch {
	case processingErr == nil:
		if err := msg.Ack(false); err != nil {
			logger.Error("Failed to ack message", "err", err)
		}
		logger.Info("Message processed successfully", "queue", queue.TopicQueue)
	case errors.Is(processingErr, queue.ErrInvalidMessage):
		logger.Error("Dropping invalid message", "err", processingErr)
		_ = msg.Ack(false)
	default:
		logger.Error("Error processing message", "queue", queue.TopicQueue, "err", processingErr)
		dead, err := queue.Requeue(ctx, ch, msg, queue.TopicQueue)
		if err != nil {
			logger.Error("Failed to requeue message", "err", err)
		}
		if dead {
			jobs.GiveUp(ctx, msg.Body, fmt.Errorf("retries exhausted: %w", processingErr))
		}
	}

	if r, ok := embedder.(ai.MetricsReporter); ok {
		metrics := r.GetMetrics()
		logger.Info(
			"AI Metrics",
			"input_tokens", metrics.InputTokens,
			"total_tokens", metrics.TotalTokens,
			"duration", formatDuration(time.Duration(metrics.DurationMs)*time.Millisecond),
		)
		r.ResetMetrics()
	}
	logger.Info("Processing time", "duration", formatDuration(time.Since(startTime)))
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
}
