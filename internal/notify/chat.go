// Package notify escalates warnings to the chat group and the external
// actuator. Both calls are best-effort: the caller logs and counts
// failures but never aborts the event over them.
package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"focusmon/internal/faults"
	"focusmon/internal/retry"
)

const (
	warningTemplate = "@%s 已經連續分心%d次了，還敢混啊！"
	topicTemplate   = "@%s 剛剛發佈了新問題，快來看看吧！\n%s"
)

// Chat pushes canned messages to the configured group chat.
type Chat struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	strikes int
	retry   retry.Policy
}

// NewChat authenticates the bot and binds it to the group chat. strikes is
// the number of consecutive misses announced in the warning text.
func NewChat(token string, chatID int64, strikes int, policy retry.Policy) (*Chat, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("chat bot auth failed: %w", err)
	}
	return &Chat{bot: bot, chatID: chatID, strikes: strikes, retry: policy}, nil
}

// PushWarning sends the fixed distraction warning for username.
func (c *Chat) PushWarning(ctx context.Context, username string) error {
	return c.push(ctx, fmt.Sprintf(warningTemplate, username, c.strikes))
}

// PushTopic announces a freshly extracted topic for username.
func (c *Chat) PushTopic(ctx context.Context, username, topic string) error {
	return c.push(ctx, fmt.Sprintf(topicTemplate, username, topic))
}

func (c *Chat) push(ctx context.Context, text string) error {
	err := retry.Do(ctx, c.retry, func() error {
		_, err := c.bot.Send(tgbotapi.NewMessage(c.chatID, text))
		return err
	})
	return faults.Dependency("chat push", err)
}
