package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/glebk/pizza-bot/internal/conversation"
	"github.com/glebk/pizza-bot/internal/domain"
)

// MessageLimit is the longest text message Telegram accepts, in runes
const MessageLimit = 4096

const invoiceStartParameter = "pizza-payment"

// API is the part of *tgbotapi.BotAPI used for outbound calls
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Messenger sends conversation output through the Telegram Bot API
type Messenger struct {
	api           API
	providerToken string
}

// NewMessenger creates a Messenger. providerToken is the payment provider credential.
func NewMessenger(api API, providerToken string) *Messenger {
	return &Messenger{api: api, providerToken: providerToken}
}

// SendMessage implements conversation.Messenger
func (m *Messenger) SendMessage(chatID int64, text string, kb conversation.Keyboard) error {
	msg := tgbotapi.NewMessage(chatID, truncate(text, MessageLimit))
	if len(kb) > 0 {
		msg.ReplyMarkup = inlineMarkup(kb)
	}
	if _, err := m.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// SendText sends a plain message without a keyboard
func (m *Messenger) SendText(chatID int64, text string) error {
	return m.SendMessage(chatID, text, nil)
}

// SendPhoto implements conversation.Messenger
func (m *Messenger) SendPhoto(chatID int64, path, caption string, kb conversation.Keyboard) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(path))
	photo.Caption = caption
	if len(kb) > 0 {
		photo.ReplyMarkup = inlineMarkup(kb)
	}
	if _, err := m.api.Send(photo); err != nil {
		return fmt.Errorf("failed to send photo: %w", err)
	}
	return nil
}

// DeleteMessage implements conversation.Messenger
func (m *Messenger) DeleteMessage(chatID int64, messageID int) error {
	if _, err := m.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// AnswerCallback implements conversation.Messenger
func (m *Messenger) AnswerCallback(callbackID, text string, alert bool) error {
	cb := tgbotapi.NewCallback(callbackID, text)
	if alert {
		cb = tgbotapi.NewCallbackWithAlert(callbackID, text)
	}
	if _, err := m.api.Request(cb); err != nil {
		return fmt.Errorf("failed to answer callback: %w", err)
	}
	return nil
}

// SendInvoice implements conversation.Messenger
func (m *Messenger) SendInvoice(chatID int64, inv conversation.Invoice) error {
	invoice := tgbotapi.NewInvoice(
		chatID,
		inv.Title,
		inv.Description,
		inv.Payload,
		m.providerToken,
		invoiceStartParameter,
		inv.Currency,
		[]tgbotapi.LabeledPrice{{Label: inv.Label, Amount: inv.Amount}},
	)
	// Telegram rejects a null tip list, which is what a nil slice encodes to
	invoice.SuggestedTipAmounts = []int{}

	if _, err := m.api.Send(invoice); err != nil {
		return fmt.Errorf("failed to send invoice: %w", err)
	}
	return nil
}

// AnswerPreCheckout implements conversation.Messenger
func (m *Messenger) AnswerPreCheckout(queryID string, ok bool, errorMessage string) error {
	cfg := tgbotapi.PreCheckoutConfig{
		PreCheckoutQueryID: queryID,
		OK:                 ok,
		ErrorMessage:       errorMessage,
	}
	if _, err := m.api.Request(cfg); err != nil {
		return fmt.Errorf("failed to answer pre-checkout query: %w", err)
	}
	return nil
}

// SendLocation shares a position with a chat
func (m *Messenger) SendLocation(chatID int64, pos domain.Coordinates) error {
	if _, err := m.api.Send(tgbotapi.NewLocation(chatID, pos.Lat, pos.Lon)); err != nil {
		return fmt.Errorf("failed to send location: %w", err)
	}
	return nil
}

func inlineMarkup(kb conversation.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
