package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/act-placemat/loom/internal/queue"
	"github.com/act-placemat/loom/internal/runner"
	"github.com/act-placemat/loom/internal/storage"
	"github.com/act-placemat/loom/internal/util"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/act-placemat/loom/pkg/discover"
	"github.com/act-placemat/loom/pkg/health"
	"github.com/act-placemat/loom/pkg/leaselock"
	"github.com/act-placemat/loom/pkg/link"
	"github.com/act-placemat/loom/pkg/logger"
	"github.com/act-placemat/loom/pkg/logger/console"
	"github.com/act-placemat/loom/pkg/research"
	"github.com/act-placemat/loom/pkg/resolve"
	"github.com/act-placemat/loom/pkg/source"
	graphstorage "github.com/act-placemat/loom/pkg/store/pgx"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	// Init s3 client
	client := storage.NewS3Client(ctx)
	reports := storage.NewReportArchive(client)

	// Research client, optional
	adapter := util.GetEnvString("AI_ADAPTER", "none")
	var researchClient source.TextResearch

	switch adapter {
	case "ollama":
		rc, err := research.NewOllamaResearch(research.NewOllamaResearchParams{
			Model:                 util.GetEnv("AI_CHAT_MODEL"),
			BaseURL:               util.GetEnv("AI_CHAT_URL"),
			APIKey:                util.GetEnv("AI_CHAT_KEY"),
			MaxConcurrentRequests: int64(util.GetEnvInt("AI_MAX_CONCURRENT", 1)),
		})
		if err != nil {
			logger.Fatal("Could not create Ollama client", "err", err)
		}
		researchClient = rc
	case "openai":
		rc, err := research.NewOpenAIResearch(research.NewOpenAIResearchParams{
			Model:   util.GetEnv("AI_CHAT_MODEL"),
			BaseURL: util.GetEnv("AI_CHAT_URL"),
			APIKey:  util.GetEnv("AI_CHAT_KEY"),
		})
		if err != nil {
			logger.Fatal("Could not create OpenAI client", "err", err)
		}
		researchClient = rc
	default:
		logger.Info("Running without a research client", "adapter", adapter)
	}

	// Migrations run before the pool opens so every worker sees the
	// final schema.
	if err := graphstorage.RunMigrations(util.GetEnv("DATABASE_URL")); err != nil {
		logger.Fatal("Could not run migrations", "err", err)
	}

	// Init pgx client
	pgConn, err := pgxpool.New(ctx, util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer pgConn.Close()

	graphStore := graphstorage.NewGraphDBStoreWithConnection(pgConn)

	// Correspondence archive, optional
	var correspondence source.CorrespondenceSource
	if path := util.GetEnv("CORRESPONDENCE_EXPORT"); path != "" {
		correspondence = &source.FileCorrespondence{Path: path}
	} else {
		logger.Info("Running without a correspondence source")
	}

	miner := discover.NewMiner(discover.MinerParams{
		Store:          graphStore,
		Correspondence: correspondence,
		Research:       researchClient,
		Window:         time.Duration(util.GetEnvInt("DISCOVERY_WINDOW_DAYS", 365)) * 24 * time.Hour,
	})

	audit := link.NewRecorder()
	runRunner := runner.NewRunner(runner.NewRunnerParams{
		Store:         graphStore,
		Miner:         miner,
		Scorer:        discover.NewScorer(graphStore),
		Linker:        link.NewLinker(graphStore, audit),
		Health:        health.NewScorer(graphStore),
		Reports:       reports,
		Audit:         audit,
		ParallelMax:   util.GetEnvInt("RUN_PARALLEL_MAX", 0),
		ProjectBudget: time.Duration(util.GetEnvInt("RUN_PROJECT_BUDGET_SECONDS", 0)) * time.Second,
	})

	resolver := resolve.NewResolver(graphStore)
	locks := leaselock.New(pgConn)

	// Init rabbitmq
	conn := queue.Init()
	defer conn.Close()

	// Init rabbitmq queues if not exist
	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	err = queue.SetupQueues(ch, queue.Queues)
	if err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	logger.Info("Listening for messages")

	// Create a single consumer channel with prefetch=1
	// This ensures only ONE message is delivered at a time across all queues
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	err = consumerCh.Qos(1, 0, true)
	if err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	type queuedMessage struct {
		msg       amqp.Delivery
		queueName string
	}

	messageChan := make(chan queuedMessage)

	for _, queueName := range queue.Queues {
		go func(qName string) {
			consumerTag := fmt.Sprintf("%s_consumer", qName)
			msgs, err := consumerCh.Consume(
				qName,
				consumerTag,
				false, // autoAck
				false, // exclusive
				false, // noLocal
				false, // noWait
				nil,   // args
			)
			if err != nil {
				logger.Fatal("Failed to start consuming", "queue", qName, "err", err)
			}

			for {
				select {
				case <-ctx.Done():
					logger.Info("Stopping consumer", "queue", qName)
					return
				case msg, ok := <-msgs:
					if !ok {
						logger.Info("Message channel closed", "queue", qName)
						return
					}
					messageChan <- queuedMessage{msg: msg, queueName: qName}
				}
			}
		}(queueName)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("Stopping message processor")
				return
			case qm := <-messageChan:
				startTime := time.Now()
				logger.Info("Received message", "queue", qm.queueName)

				var processingErr error
				switch qm.queueName {
				case queue.RunQueue:
					processingErr = queue.ProcessRunMessage(ctx, runRunner, locks, string(qm.msg.Body))
				case queue.IngestQueue:
					processingErr = queue.ProcessIngestMessage(ctx, resolver, string(qm.msg.Body))
				}

				// If there was an error send to retry or dead-letter, otherwise ack the message
				if processingErr != nil {
					logger.Error("Error processing message", "queue", qm.queueName, "err", processingErr)
					queue.HandleProcessingError(consumerCh, qm.msg, qm.queueName, 10)
				} else {
					err = qm.msg.Ack(false)
					if err != nil {
						logger.Error("Failed to ack message", "err", err)
					}
					logger.Info("Message processed successfully", "queue", qm.queueName)
				}

				processingDuration := time.Since(startTime)
				hours := int(processingDuration.Hours())
				minutes := int(processingDuration.Minutes()) % 60
				seconds := int(processingDuration.Seconds()) % 60
				logger.Info(
					"Processing time",
					"duration", fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds),
				)
				logger.Info("Waiting for next message")
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...")
}
