package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"focusmon/internal/broadcast"
	"focusmon/internal/config"
	"focusmon/internal/frontend"
	"focusmon/internal/notify"
	"focusmon/internal/queue"
	"focusmon/internal/retry"
	"focusmon/internal/store"
	"focusmon/internal/topics"
)

// maxBatch bounds how many queued messages are drained into one batch.
const maxBatch = 10

// Worker consumes queued chat messages, extracts topics, and fans them out
// to the notification channel, the chat group, and the dashboard.
func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config invalid: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "focusmon:topics")
	}

	policy := retry.Policy{Attempts: cfg.RetryAttempts, Initial: cfg.RetryInitial}

	chat, err := notify.NewChat(cfg.ChatBotToken, cfg.ChatGroupID, cfg.AbsenceThreshold+1, policy)
	if err != nil {
		log.Fatalf("chat bot init failed: %v", err)
	}

	repo, err := topics.NewRepository(db.Client, cfg.TopicTable)
	if err != nil {
		log.Fatalf("topic repo init failed: %v", err)
	}

	pipe := &topics.Pipeline{
		Extract:   topics.NewHTTPExtractor(cfg.ExtractorURL, cfg.ExtractorSkip, policy),
		Store:     repo,
		Broadcast: broadcast.New(redisClient.Client, cfg.TopicChannel),
		Chat:      chat,
		Frontend:  frontend.New(cfg.FrontendURL, policy),
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != "topic" {
			continue
		}

		batch := decodeBatch(msg, messages)
		log.Printf("processing batch of %d message(s)", len(batch))
		if err := pipe.ProcessBatch(ctx, batch); err != nil {
			log.Printf("batch finished with failures: %v", err)
		}
	}

	log.Println("worker stopped")
}

// decodeBatch decodes the first message and greedily drains whatever else
// is already queued, up to maxBatch. Messages that fail to decode are
// logged and dropped; they would never parse on re-delivery either.
func decodeBatch(first queue.Message, messages <-chan queue.Message) []topics.Message {
	batch := make([]topics.Message, 0, maxBatch)
	if m, ok := decode(first); ok {
		batch = append(batch, m)
	}
	for len(batch) < maxBatch {
		select {
		case msg, ok := <-messages:
			if !ok {
				return batch
			}
			if msg.Type != "topic" {
				continue
			}
			if m, ok := decode(msg); ok {
				batch = append(batch, m)
			}
		default:
			return batch
		}
	}
	return batch
}

func decode(msg queue.Message) (topics.Message, bool) {
	var m topics.Message
	if err := json.Unmarshal(msg.Body, &m); err != nil {
		log.Printf("drop undecodable message: %v", err)
		return topics.Message{}, false
	}
	return m, true
}
