package order

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

// Printer sends a ticket to a kitchen station.
type Printer interface {
	Print(ctx context.Context, ticket Ticket, reprint bool) error
}

// LogPrinter writes tickets to the structured log. It stands in for a
// station printer.
type LogPrinter struct {
	Logger zerolog.Logger
}

// Print implements Printer.
func (p LogPrinter) Print(_ context.Context, t Ticket, reprint bool) error {
	lines := zerolog.Arr()
	for _, l := range t.Lines {
		lines = lines.Dict(zerolog.Dict().Str("name", l.Name).Int("qty", l.Quantity).Strs("notes", l.Notes))
	}
	p.Logger.Info().
		Str("order_id", t.OrderID).
		Int64("number", t.Number).
		Bool("reprint", reprint).
		Str("total", t.Total).
		Array("lines", lines).
		Msg("kitchen ticket")
	return nil
}

// KitchenHandler consumes kitchen ticket tasks enqueued by events.TaskNotifier.
type KitchenHandler struct {
	Printer Printer
	Logger  zerolog.Logger
}

// ProcessTask implements asynq.Handler. Malformed payloads are not retried.
func (h KitchenHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	ev, err := events.DecodeTask(task)
	if err != nil {
		obs.ObserveKitchenTicket("unknown", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	ticket, rec, err := DecodeTicket(ev)
	if err != nil {
		obs.ObserveKitchenTicket(ev.Topic, err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	logger := h.Logger.With().Str("event_id", ev.ID.String()).Str("topic", ev.Topic).Logger()
	if rec != nil && rec.ActionRequired() {
		logger.Info().
			Str("order_id", ticket.OrderID).
			Str("outcome", string(rec.Outcome)).
			Str("amount", rec.Amount.StringFixed(2)).
			Msg("order edit needs settlement")
	}
	err = h.Printer.Print(ctx, ticket, ev.Topic == events.TopicOrderEdited)
	obs.ObserveKitchenTicket(ev.Topic, err)
	return err
}

// DecodeTicket extracts the ticket from an order event. The reconciliation is
// only present on order.edited.
func DecodeTicket(ev events.Event) (Ticket, *pricing.Reconciliation, error) {
	switch ev.Topic {
	case events.TopicOrderCreated:
		var t Ticket
		if err := json.Unmarshal(ev.Payload, &t); err != nil {
			return Ticket{}, nil, fmt.Errorf("decode %s: %w", ev.Topic, err)
		}
		return t, nil, nil
	case events.TopicOrderEdited:
		var p EditedPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return Ticket{}, nil, fmt.Errorf("decode %s: %w", ev.Topic, err)
		}
		return p.Ticket, &p.Reconciliation, nil
	default:
		return Ticket{}, nil, fmt.Errorf("unexpected topic %q", ev.Topic)
	}
}
