package approval

import (
	"errors"
	"time"

	"github.com/jihopark/mathshorts/internal/content"
)

// TicketStatus is the lifecycle state of an approval ticket.
type TicketStatus string

const (
	StatusPending  TicketStatus = "pending"
	StatusApproved TicketStatus = "approved"
	StatusRejected TicketStatus = "rejected"
)

// Decision is an explicit resolution choice.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

var (
	// ErrUnknownTicket is returned when a ticket id does not exist.
	ErrUnknownTicket = errors.New("unknown ticket")
	// ErrAlreadyResolved is returned on a second resolution attempt.
	ErrAlreadyResolved = errors.New("ticket already resolved")
)

// AutoApproveFeedback is recorded when the deadline sweep resolves a ticket.
const AutoApproveFeedback = "deadline expired — auto-approved"

// Ticket is a persisted approval record for one content bundle. A ticket is
// resolved at most once; ResolvedAt is set iff status is not pending.
type Ticket struct {
	ID                 string         `json:"id"`
	Bundle             content.Bundle `json:"bundle"`
	Status             TicketStatus   `json:"status"`
	SubmittedAt        time.Time      `json:"submitted_at"`
	Deadline           time.Time      `json:"deadline"`
	ResolvedAt         time.Time      `json:"resolved_at,omitempty"`
	ResolvedBy         string         `json:"resolved_by,omitempty"`
	ResolutionFeedback string         `json:"resolution_feedback,omitempty"`
}

// Pending reports whether the ticket still awaits a decision.
func (t *Ticket) Pending() bool {
	return t.Status == StatusPending
}
