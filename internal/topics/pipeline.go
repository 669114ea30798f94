package topics

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"focusmon/internal/eventtime"
	"focusmon/internal/faults"
	"focusmon/internal/frontend"
	"focusmon/internal/metrics"
)

// Message is one queued chat message awaiting topic extraction.
type Message struct {
	Texts    []string `json:"texts" binding:"required"`
	Username string   `json:"username" binding:"required"`
	Date     string   `json:"date" binding:"required"`
	Time     string   `json:"time" binding:"required"`
}

// Writer persists topic records.
type Writer interface {
	Put(ctx context.Context, rec Record) error
}

// Announcer publishes a topic notification on the pub/sub channel.
type Announcer interface {
	Announce(ctx context.Context, username, topic string) error
}

// ChatPusher pushes the topic announcement to the chat group.
type ChatPusher interface {
	PushTopic(ctx context.Context, username, topic string) error
}

// Publisher posts the topic to the dashboard.
type Publisher interface {
	PublishTopic(ctx context.Context, post frontend.TopicPost) error
}

// Pipeline runs topic extraction for queued messages. All collaborators
// are injected; no package-level clients.
type Pipeline struct {
	Extract   Extractor
	Store     Writer
	Broadcast Announcer
	Chat      ChatPusher
	Frontend  Publisher
}

// Process handles one message: extract, persist, then fan out. Extraction
// and the store write are fatal for the message; the fan-out steps are
// best-effort and only logged.
func (p *Pipeline) Process(ctx context.Context, msg Message) error {
	if blank(msg.Texts) {
		metrics.EventsTotal.WithLabelValues("topics", "rejected").Inc()
		return faults.Format("empty message texts for "+msg.Username, nil)
	}

	topic, err := p.Extract.ExtractTopic(ctx, msg.Texts)
	if err != nil {
		metrics.EventsTotal.WithLabelValues("topics", "failed").Inc()
		return err
	}
	log.Printf("%s - %s %s - topic: %s", msg.Username, msg.Date, msg.Time, topic)

	rec := Record{
		TopicID:  uuid.NewString(),
		Username: msg.Username,
		Date:     msg.Date,
		Time:     msg.Time,
		Topic:    topic,
	}
	if err := p.Store.Put(ctx, rec); err != nil {
		metrics.EventsTotal.WithLabelValues("topics", "failed").Inc()
		return err
	}

	if err := p.Broadcast.Announce(ctx, rec.Username, rec.Topic); err != nil {
		metrics.ExternalFailures.WithLabelValues("broadcast").Inc()
		log.Printf("topic %s: broadcast failed: %v", rec.TopicID, err)
	}
	if err := p.Chat.PushTopic(ctx, rec.Username, rec.Topic); err != nil {
		metrics.ExternalFailures.WithLabelValues("chat").Inc()
		log.Printf("topic %s: chat push failed: %v", rec.TopicID, err)
	}
	if err := p.Frontend.PublishTopic(ctx, frontend.TopicPost{
		ID:        rec.TopicID,
		Title:     rec.Topic,
		Timestamp: eventtime.Stamp(rec.Date, rec.Time),
	}); err != nil {
		metrics.ExternalFailures.WithLabelValues("frontend").Inc()
		log.Printf("topic %s: frontend publish failed: %v", rec.TopicID, err)
	}

	metrics.EventsTotal.WithLabelValues("topics", "processed").Inc()
	return nil
}

// ProcessBatch runs messages in order, isolating failures so one bad
// message never starves the rest of the batch. The joined error reports
// every failed message.
func (p *Pipeline) ProcessBatch(ctx context.Context, msgs []Message) error {
	var errs []error
	for i, msg := range msgs {
		if err := p.Process(ctx, msg); err != nil {
			log.Printf("batch message %d (%s): %v", i, msg.Username, err)
			errs = append(errs, fmt.Errorf("message %d (%s): %w", i, msg.Username, err))
		}
	}
	return errors.Join(errs...)
}

func blank(texts []string) bool {
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			return false
		}
	}
	return true
}
