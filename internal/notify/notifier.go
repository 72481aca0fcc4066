// Package notify delivers deadline alerts to chat channels. Messages are
// fanned out to every registered Sender and can be filtered by event type.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Event types emitted by the watch loop.
const (
	EventDeadline  = "deadline"  // an active market crossed an alert threshold
	EventTruncated = "truncated" // a scan cycle stopped paginating early
)

// Message is one notification.
type Message struct {
	Event string
	Title string
	Body  string
}

// Sender is one notification channel.
type Sender interface {
	Send(ctx context.Context, title, body string) error
	Name() string
}

// Notifier dispatches messages to its senders. When events is non-empty only
// those event types are forwarded.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier. An empty events list allows every event.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Enabled reports whether at least one sender is configured.
func (n *Notifier) Enabled() bool {
	return len(n.senders) > 0
}

// Notify sends msg to every sender. A failing sender does not stop delivery
// to the others; all failures are joined into the returned error.
func (n *Notifier) Notify(ctx context.Context, msg Message) error {
	if len(n.events) > 0 && !n.events[msg.Event] {
		n.logger.DebugContext(ctx, "event filtered out", slog.String("event", msg.Event))
		return nil
	}

	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, msg.Title, msg.Body); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("event", msg.Event),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", msg.Title),
		)
	}
	return errors.Join(errs...)
}
