package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/chiapettaiago/chamados/internal/events"
	"github.com/chiapettaiago/chamados/internal/observability"
)

// EmailChannel is one outbound e-mail provider in the fallback chain.
type EmailChannel interface {
	Name() string
	SendEmail(ctx context.Context, to, subject, html string) error
}

// WhatsAppChannel delivers short text messages. There is no fallback.
type WhatsAppChannel interface {
	Name() string
	SendWhatsApp(ctx context.Context, toE164, text string) error
}

// NotificationService turns lifecycle events into outbound messages.
// Delivery is strictly best-effort: every transport failure is logged and
// absorbed so the triggering operation never sees it.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	email      []EmailChannel
	whatsapp   WhatsAppChannel
}

// NewNotificationService creates the service. Email channels are attempted
// in order; the first success wins.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics, email []EmailChannel, whatsapp WhatsAppChannel) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
		email:      email,
		whatsapp:   whatsapp,
	}
}

// RegisterHandlers subscribes to lifecycle events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketStaleDigest, n.handleStaleDigest)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		n.logger.Warn("unexpected payload for ticket_created", zap.String("event_id", event.ID))
		return nil
	}

	subject := fmt.Sprintf("Novo chamado #%d: %s", payload.TicketID, payload.Title)
	html := fmt.Sprintf("<p>Seu chamado foi criado.</p><p>Status: %s</p>", payload.Status)
	n.sendEmail(ctx, payload.Recipient.Email, subject, html)

	if payload.Recipient.PhoneE164 != "" {
		text := fmt.Sprintf("Novo chamado #%d: %s", payload.TicketID, payload.Title)
		n.sendWhatsApp(ctx, payload.Recipient.PhoneE164, text)
	}
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		n.logger.Warn("unexpected payload for ticket_status_changed", zap.String("event_id", event.ID))
		return nil
	}

	subject := fmt.Sprintf("Chamado #%d atualizado para %s", payload.TicketID, payload.NewStatus)
	html := fmt.Sprintf("<p>Seu chamado mudou de status:</p><p>De: %s → Para: %s</p>", payload.OldStatus, payload.NewStatus)
	n.sendEmail(ctx, payload.Recipient.Email, subject, html)

	if payload.Recipient.PhoneE164 != "" {
		text := fmt.Sprintf("Chamado #%d: %s → %s", payload.TicketID, payload.OldStatus, payload.NewStatus)
		n.sendWhatsApp(ctx, payload.Recipient.PhoneE164, text)
	}
	return nil
}

func (n *NotificationService) handleStaleDigest(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStaleDigestPayload)
	if !ok {
		n.logger.Warn("unexpected payload for ticket_stale_digest", zap.String("event_id", event.ID))
		return nil
	}
	if len(payload.Tickets) == 0 {
		return nil
	}

	var items strings.Builder
	for _, ref := range payload.Tickets {
		fmt.Fprintf(&items, "<li>#%d - %s</li>", ref.TicketID, ref.Title)
	}
	subject := "Chamados sem interação há 24h"
	html := fmt.Sprintf("<p>Você possui chamados sem interação há mais de 24h:</p><ul>%s</ul>", items.String())
	n.sendEmail(ctx, payload.Recipient.Email, subject, html)
	return nil
}

// sendEmail walks the channel chain; the first success wins and every
// failure is logged and counted.
func (n *NotificationService) sendEmail(ctx context.Context, to, subject, html string) {
	for _, channel := range n.email {
		err := channel.SendEmail(ctx, to, subject, html)
		if err == nil {
			n.metrics.RecordNotification(channel.Name(), true)
			n.logger.Debug("email delivered",
				zap.String("channel", channel.Name()),
				zap.String("subject", subject))
			return
		}
		n.metrics.RecordNotification(channel.Name(), false)
		n.logger.Warn("email channel failed",
			zap.String("channel", channel.Name()),
			zap.String("subject", subject),
			zap.Error(err))
	}
	n.logger.Error("email undelivered on all channels", zap.String("subject", subject))
}

func (n *NotificationService) sendWhatsApp(ctx context.Context, toE164, text string) {
	if n.whatsapp == nil {
		return
	}
	if err := n.whatsapp.SendWhatsApp(ctx, toE164, text); err != nil {
		n.metrics.RecordNotification(n.whatsapp.Name(), false)
		n.logger.Warn("whatsapp send failed", zap.Error(err))
		return
	}
	n.metrics.RecordNotification(n.whatsapp.Name(), true)
}
