package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// NotifyKey marks a record for admin forwarding regardless of its level.
//
//	logger.Info("bot started", logging.NotifyKey, true)
const NotifyKey = "notify_admin"

// AdminSender delivers a log line to the admin chat
type AdminSender interface {
	SendText(chatID int64, text string) error
}

// AdminHandler forwards records at or above a minimum level to an admin chat,
// and always delegates to the wrapped handler.
type AdminHandler struct {
	inner    slog.Handler
	sender   AdminSender
	chatID   int64
	minLevel slog.Level

	prefix string
	attrs  []slog.Attr
}

// NewAdminHandler wraps inner with admin chat forwarding
func NewAdminHandler(inner slog.Handler, sender AdminSender, chatID int64, minLevel slog.Level) *AdminHandler {
	return &AdminHandler{
		inner:    inner,
		sender:   sender,
		chatID:   chatID,
		minLevel: minLevel,
	}
}

// Enabled implements slog.Handler
func (h *AdminHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler
func (h *AdminHandler) Handle(ctx context.Context, r slog.Record) error {
	err := h.inner.Handle(ctx, r)

	if r.Level >= h.minLevel || notify(r) {
		// The sender error is dropped: logging it would recurse into this handler.
		_ = h.sender.SendText(h.chatID, h.render(r))
	}
	return err
}

// WithAttrs implements slog.Handler
func (h *AdminHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.inner = h.inner.WithAttrs(attrs)
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, slog.Attr{Key: h.prefix + a.Key, Value: a.Value})
	}
	return &clone
}

// WithGroup implements slog.Handler
func (h *AdminHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.inner = h.inner.WithGroup(name)
	clone.prefix = h.prefix + name + "."
	return &clone
}

func (h *AdminHandler) render(r slog.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", r.Level, r.Message)

	write := func(a slog.Attr) {
		if a.Key == NotifyKey {
			return
		}
		key := a.Key
		if key == "error" {
			key = "err"
		}
		fmt.Fprintf(&b, "\n%s: %s", key, a.Value.Resolve().String())
	}

	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		write(slog.Attr{Key: h.prefix + a.Key, Value: a.Value})
		return true
	})
	return b.String()
}

func notify(r slog.Record) bool {
	found := false
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == NotifyKey && a.Value.Kind() == slog.KindBool && a.Value.Bool() {
			found = true
			return false
		}
		return true
	})
	return found
}
