// Package broadcast fans new topics out on the notification pub/sub
// channel.
package broadcast

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"focusmon/internal/faults"
)

// SubjectNewTopic is the fixed subject line of every topic notification.
const SubjectNewTopic = "問題討論群有新問題啦，快來看看！"

// Publisher publishes topic notifications to a Redis channel.
type Publisher struct {
	client  *redis.Client
	channel string
}

// New creates a publisher bound to the configured channel.
func New(client *redis.Client, channel string) *Publisher {
	return &Publisher{client: client, channel: channel}
}

// Announce publishes the canned notification for a new topic. Best-effort;
// subscribers that miss it simply miss it.
func (p *Publisher) Announce(ctx context.Context, username, topic string) error {
	payload, _ := json.Marshal(map[string]string{
		"subject": SubjectNewTopic,
		"message": username + ":\n" + topic,
	})
	return faults.Dependency("topic broadcast", p.client.Publish(ctx, p.channel, payload).Err())
}
