package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// UpdateSource is the long-polling part of *tgbotapi.BotAPI
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot reads Telegram updates and hands them to the dispatcher
type Bot struct {
	updates    UpdateSource
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewAPI connects to the Telegram Bot API
func NewAPI(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return api, nil
}

// New creates a new Bot
func New(updates UpdateSource, dispatcher *Dispatcher, logger *slog.Logger) *Bot {
	return &Bot{
		updates:    updates,
		dispatcher: dispatcher,
		logger:     logger.With("component", "bot"),
	}
}

// Run polls for updates until ctx is cancelled.
// Queued events are drained before Run returns.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.updates.GetUpdatesChan(u)
	b.dispatcher.Start(ctx)
	defer b.dispatcher.Close()
	defer b.updates.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return errors.New("update channel closed")
			}
			b.intake(ctx, update)
		}
	}
}

func (b *Bot) intake(ctx context.Context, update tgbotapi.Update) {
	ev, ok := ToEvent(update)
	if !ok {
		b.logger.Debug("skipping update", "update_id", update.UpdateID)
		return
	}
	if err := b.dispatcher.Submit(ctx, ev); err != nil {
		b.logger.Warn("dropping update", "update_id", update.UpdateID, "user_id", ev.UserID, "error", err)
	}
}
