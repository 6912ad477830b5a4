package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/glebk/pizza-bot/internal/conversation"
	"github.com/glebk/pizza-bot/internal/domain"
)

// ToEvent converts a Telegram update into a conversation event.
// It reports false for updates the conversation does not consume.
func ToEvent(update tgbotapi.Update) (conversation.Event, bool) {
	switch {
	case update.PreCheckoutQuery != nil:
		q := update.PreCheckoutQuery
		if q.From == nil {
			return conversation.Event{}, false
		}
		return conversation.Event{
			Kind:          conversation.EventPreCheckout,
			UserID:        q.From.ID,
			ChatID:        q.From.ID,
			FirstName:     q.From.FirstName,
			PreCheckoutID: q.ID,
			Payload:       q.InvoicePayload,
		}, true

	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		if cq.From == nil {
			return conversation.Event{}, false
		}
		ev := conversation.Event{
			Kind:       conversation.EventCallback,
			UserID:     cq.From.ID,
			ChatID:     cq.From.ID,
			FirstName:  cq.From.FirstName,
			CallbackID: cq.ID,
			Data:       cq.Data,
		}
		if cq.Message != nil {
			ev.MessageID = cq.Message.MessageID
			if cq.Message.Chat != nil {
				ev.ChatID = cq.Message.Chat.ID
			}
		}
		return ev, true

	case update.Message != nil:
		return messageEvent(update.Message)

	case update.EditedMessage != nil && update.EditedMessage.Location != nil:
		// Live location updates arrive as edits
		return messageEvent(update.EditedMessage)
	}
	return conversation.Event{}, false
}

func messageEvent(msg *tgbotapi.Message) (conversation.Event, bool) {
	if msg.From == nil || msg.Chat == nil {
		return conversation.Event{}, false
	}

	ev := conversation.Event{
		UserID:    msg.From.ID,
		ChatID:    msg.Chat.ID,
		FirstName: msg.From.FirstName,
	}

	switch {
	case msg.SuccessfulPayment != nil:
		ev.Kind = conversation.EventPaymentSuccess
		ev.Payload = msg.SuccessfulPayment.InvoicePayload
	case msg.IsCommand():
		ev.Kind = conversation.EventCommand
		ev.Command = msg.Command()
	case msg.Location != nil:
		ev.Kind = conversation.EventLocation
		ev.Location = &domain.Coordinates{Lat: msg.Location.Latitude, Lon: msg.Location.Longitude}
	case msg.Text != "":
		ev.Kind = conversation.EventText
		ev.Text = msg.Text
	default:
		return conversation.Event{}, false
	}
	return ev, true
}
