package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jihopark/mathshorts/internal/approval"
)

// RenderSubmission builds the human-readable approval request message sent to
// the operator channel.
func RenderSubmission(ticket approval.Ticket) string {
	bundle := ticket.Bundle

	succeeded := 0
	for _, n := range bundle.Narrations {
		if n.Succeeded {
			succeeded++
		}
	}

	var b strings.Builder
	b.WriteString("Math Shorts 승인 요청\n")
	fmt.Fprintf(&b, "티켓: %s\n", ticket.ID)
	fmt.Fprintf(&b, "날짜: %s\n", bundle.CreatedAt.Format("2006-01-02"))
	fmt.Fprintf(&b, "시간대: %s\n", bundle.TimeSlot)
	fmt.Fprintf(&b, "주제: %s\n", bundle.Request.Topic)
	fmt.Fprintf(&b, "언어: %d/%d 성공\n", succeeded, len(bundle.Narrations))
	fmt.Fprintf(&b, "\n%s\n", bundle.Preview())
	fmt.Fprintf(&b, "\n승인: mathshorts approval approve %s\n", ticket.ID)
	fmt.Fprintf(&b, "거절: mathshorts approval reject %s\n", ticket.ID)
	fmt.Fprintf(&b, "\n%s까지 결정이 없으면 자동 승인됩니다.", ticket.Deadline.Format("15:04"))
	return b.String()
}

// Multi fans a submission notice out to every configured channel. Per-channel
// failures are logged and the send continues; the joined error is returned so
// the caller can log it once.
type Multi struct {
	channels []approval.Notifier
}

// NewMulti creates a best-effort multi-channel notifier.
func NewMulti(channels ...approval.Notifier) *Multi {
	return &Multi{channels: channels}
}

// NotifySubmission sends the notice to every channel.
func (m *Multi) NotifySubmission(ctx context.Context, ticket approval.Ticket) error {
	var errs []error
	for _, ch := range m.channels {
		if err := ch.NotifySubmission(ctx, ticket); err != nil {
			slog.Warn("notification channel send failed", "ticket_id", ticket.ID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Console logs the approval request to the process log. Always registered so
// an operator without a chat channel still sees submissions.
type Console struct{}

// NotifySubmission writes the rendered message to the log.
func (Console) NotifySubmission(ctx context.Context, ticket approval.Ticket) error {
	slog.Info("approval requested",
		"ticket_id", ticket.ID,
		"bundle_id", ticket.Bundle.ID,
		"time_slot", ticket.Bundle.TimeSlot,
		"deadline", ticket.Deadline,
		"preview", ticket.Bundle.Preview(),
	)
	return nil
}
