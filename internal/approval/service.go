package approval

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jihopark/mathshorts/internal/content"
)

const defaultWindow = 2 * time.Hour

// Notifier delivers a submission notice to an external channel. Delivery is
// best-effort: a failed send is logged, never propagated.
type Notifier interface {
	NotifySubmission(ctx context.Context, ticket Ticket) error
}

// ResolvedFunc is invoked after a ticket transitions out of pending, whether
// by an explicit decision or by the deadline sweep.
type ResolvedFunc func(Ticket)

// Gate holds submitted content bundles pending approval. The gate is the only
// mutator of the ticket store; the status check-and-set under its mutex is
// what makes an explicit resolve and the deadline sweep safe to race.
type Gate struct {
	store      *Store
	window     time.Duration
	notifier   Notifier
	onResolved ResolvedFunc
	now        func() time.Time
	mu         sync.Mutex
}

// NewGate creates a gate backed by <workspace>/state/tickets.json.
func NewGate(workspace string, window time.Duration) *Gate {
	if window <= 0 {
		window = defaultWindow
	}
	return &Gate{
		store:  NewStore(workspace),
		window: window,
		now:    time.Now,
	}
}

// SetNotifier attaches the submission notification channel.
func (g *Gate) SetNotifier(n Notifier) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.notifier = n
}

// SetOnResolved attaches the resolution callback.
func (g *Gate) SetOnResolved(fn ResolvedFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onResolved = fn
}

// Submit creates a pending ticket for a bundle and fires the submission
// notification. Submission always succeeds even when the notification send
// fails.
func (g *Gate) Submit(ctx context.Context, bundle content.Bundle) (Ticket, error) {
	if strings.TrimSpace(bundle.ID) == "" {
		return Ticket{}, fmt.Errorf("bundle id is required")
	}

	g.mu.Lock()
	data, err := g.store.Load()
	if err != nil {
		g.mu.Unlock()
		return Ticket{}, err
	}

	now := g.now().UTC()
	ticket := Ticket{
		ID:          strconv.FormatInt(data.NextID, 10),
		Bundle:      bundle,
		Status:      StatusPending,
		SubmittedAt: now,
		Deadline:    now.Add(g.window),
	}

	data.NextID++
	data.Tickets = append(data.Tickets, ticket)

	if err := g.store.Save(data); err != nil {
		g.mu.Unlock()
		return Ticket{}, err
	}
	notifier := g.notifier
	g.mu.Unlock()

	if notifier != nil {
		if err := notifier.NotifySubmission(ctx, ticket); err != nil {
			slog.Warn("approval notification failed",
				"ticket_id", ticket.ID,
				"bundle_id", bundle.ID,
				"error", err,
			)
		}
	}

	slog.Info("bundle submitted for approval",
		"ticket_id", ticket.ID,
		"bundle_id", bundle.ID,
		"time_slot", bundle.TimeSlot,
		"deadline", ticket.Deadline.Format(time.RFC3339),
	)
	return ticket, nil
}

// Resolve applies an explicit decision to a pending ticket.
func (g *Gate) Resolve(id string, decision Decision, resolvedBy, feedback string) (Ticket, error) {
	var status TicketStatus
	switch decision {
	case DecisionApprove:
		status = StatusApproved
	case DecisionReject:
		status = StatusRejected
	default:
		return Ticket{}, fmt.Errorf("invalid decision: %q", decision)
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return Ticket{}, ErrUnknownTicket
	}
	resolvedBy = strings.TrimSpace(resolvedBy)
	if resolvedBy == "" {
		resolvedBy = "operator"
	}

	g.mu.Lock()
	data, err := g.store.Load()
	if err != nil {
		g.mu.Unlock()
		return Ticket{}, err
	}

	idx := -1
	for i := range data.Tickets {
		if data.Tickets[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		g.mu.Unlock()
		return Ticket{}, fmt.Errorf("%w: %s", ErrUnknownTicket, id)
	}

	ticket := &data.Tickets[idx]
	if !ticket.Pending() {
		g.mu.Unlock()
		return Ticket{}, fmt.Errorf("%w: %s is %s", ErrAlreadyResolved, id, ticket.Status)
	}

	ticket.Status = status
	ticket.ResolvedAt = g.now().UTC()
	ticket.ResolvedBy = resolvedBy
	ticket.ResolutionFeedback = strings.TrimSpace(feedback)

	resolved := *ticket
	if err := g.store.Save(data); err != nil {
		g.mu.Unlock()
		return Ticket{}, err
	}
	callback := g.onResolved
	g.mu.Unlock()

	slog.Info("ticket resolved",
		"ticket_id", resolved.ID,
		"status", resolved.Status,
		"resolved_by", resolved.ResolvedBy,
	)
	if callback != nil {
		callback(resolved)
	}
	return resolved, nil
}

// SweepExpired auto-approves every pending ticket whose deadline has passed.
// Idempotent: tickets resolved between load and save are skipped by the
// pending check, and a second sweep at the same instant finds nothing.
func (g *Gate) SweepExpired(now time.Time) ([]Ticket, error) {
	g.mu.Lock()
	data, err := g.store.Load()
	if err != nil {
		g.mu.Unlock()
		return nil, err
	}

	now = now.UTC()
	expired := make([]Ticket, 0)
	for i := range data.Tickets {
		ticket := &data.Tickets[i]
		if !ticket.Pending() {
			continue
		}
		if ticket.Deadline.After(now) {
			continue
		}

		ticket.Status = StatusApproved
		ticket.ResolvedAt = now
		ticket.ResolvedBy = "system"
		ticket.ResolutionFeedback = AutoApproveFeedback
		expired = append(expired, *ticket)
	}

	if len(expired) > 0 {
		if err := g.store.Save(data); err != nil {
			g.mu.Unlock()
			return nil, err
		}
	}
	callback := g.onResolved
	g.mu.Unlock()

	for _, ticket := range expired {
		slog.Info("ticket auto-approved by deadline sweep",
			"ticket_id", ticket.ID,
			"bundle_id", ticket.Bundle.ID,
		)
		if callback != nil {
			callback(ticket)
		}
	}
	return expired, nil
}

// ListPending returns all pending tickets, for observability.
func (g *Gate) ListPending() ([]Ticket, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	data, err := g.store.Load()
	if err != nil {
		return nil, err
	}

	pending := make([]Ticket, 0, len(data.Tickets))
	for _, ticket := range data.Tickets {
		if ticket.Pending() {
			pending = append(pending, ticket)
		}
	}
	return pending, nil
}

// Get returns one ticket by id.
func (g *Gate) Get(id string) (Ticket, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	data, err := g.store.Load()
	if err != nil {
		return Ticket{}, err
	}
	for _, ticket := range data.Tickets {
		if ticket.ID == id {
			return ticket, nil
		}
	}
	return Ticket{}, fmt.Errorf("%w: %s", ErrUnknownTicket, id)
}
