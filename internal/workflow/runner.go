package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bpradana/weave"

	"github.com/jihopark/mathshorts/internal/approval"
	"github.com/jihopark/mathshorts/internal/config"
	"github.com/jihopark/mathshorts/internal/content"
	"github.com/jihopark/mathshorts/internal/history"
	"github.com/jihopark/mathshorts/internal/problem"
	"github.com/jihopark/mathshorts/internal/publish"
)

// ErrAlreadyRunning is returned when a run for the same slot is in flight.
// The duplicate invocation is dropped, not queued.
var ErrAlreadyRunning = errors.New("run already in progress for slot")

// NarrationSource produces one narration result per language, fails-soft.
type NarrationSource interface {
	SynthesizeAll(ctx context.Context, p content.Problem, languageTags []string) []content.NarrationResult
}

// Gate is the approval surface the runner drives.
type Gate interface {
	Submit(ctx context.Context, bundle content.Bundle) (approval.Ticket, error)
	SweepExpired(now time.Time) ([]approval.Ticket, error)
}

// Settings are the run-policy knobs, sourced from configuration.
type Settings struct {
	Languages        []string
	GenerateAttempts int
	RetryBackoff     time.Duration
}

// SettingsFromConfig builds runner settings from the workflow config section.
func SettingsFromConfig(cfg config.WorkflowConfig) Settings {
	return Settings{
		Languages:        cfg.Languages,
		GenerateAttempts: cfg.GenerateAttempts,
		RetryBackoff:     time.Duration(cfg.RetryBackoffSec) * time.Second,
	}
}

// Runner drives one slot run through its phases: generate, narrate, submit,
// and, once the ticket resolves, publish. The runner owns the single-flight
// guard per slot and the run-result aggregation.
type Runner struct {
	problems   problem.Source
	narrations NarrationSource
	gate       Gate
	sink       publish.Sink
	runs       *history.Store
	settings   Settings

	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration)
	baseCtx context.Context

	mu        sync.Mutex
	active    map[string]string // slot name -> ticket id (or "" while generating)
	startedAt map[string]time.Time
	// resolvedEarly records tickets whose resolution landed before RunSlot
	// could claim the slot, so the claim turns into a release instead.
	resolvedEarly map[string]string
}

// NewRunner wires the workflow collaborators together.
func NewRunner(problems problem.Source, narrations NarrationSource, gate Gate, sink publish.Sink, runs *history.Store, settings Settings) *Runner {
	if settings.GenerateAttempts <= 0 {
		settings.GenerateAttempts = 3
	}
	if len(settings.Languages) == 0 {
		settings.Languages = config.DefaultLanguages
	}
	return &Runner{
		problems:   problems,
		narrations: narrations,
		gate:       gate,
		sink:       sink,
		runs:       runs,
		settings:   settings,
		now:        time.Now,
		sleep:      sleepCtx,
		baseCtx:    context.Background(),
	}
}

// SetBaseContext sets the context resolution-driven publishes run under, so
// shutting the process down also cancels in-flight uploads. Defaults to
// context.Background() when unset.
func (r *Runner) SetBaseContext(ctx context.Context) {
	if ctx != nil {
		r.baseCtx = ctx
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// RunSlot executes the generation half of one slot run and submits the bundle
// for approval. It returns after submission; publication is completed by the
// resolution callback (HandleResolution). Returns ErrAlreadyRunning when the
// slot already has an in-flight run.
func (r *Runner) RunSlot(ctx context.Context, slot config.SlotConfig) (approval.Ticket, error) {
	r.mu.Lock()
	if _, inFlight := r.active[slot.Name]; inFlight {
		r.mu.Unlock()
		return approval.Ticket{}, fmt.Errorf("%w: %s", ErrAlreadyRunning, slot.Name)
	}
	if r.active == nil {
		r.active = make(map[string]string)
		r.startedAt = make(map[string]time.Time)
	}
	r.active[slot.Name] = ""
	r.startedAt[slot.Name] = r.now()
	r.mu.Unlock()

	ticket, err := r.runSlotReserved(ctx, slot)
	if err != nil {
		r.release(slot.Name)
		return approval.Ticket{}, err
	}

	r.mu.Lock()
	// The ticket may resolve (synchronous callback, instant reviewer) before
	// we claim the slot; that resolution already completed the run.
	if r.resolvedEarly[slot.Name] == ticket.ID {
		delete(r.resolvedEarly, slot.Name)
		delete(r.active, slot.Name)
		delete(r.startedAt, slot.Name)
	} else {
		delete(r.resolvedEarly, slot.Name)
		r.active[slot.Name] = ticket.ID
	}
	r.mu.Unlock()
	return ticket, nil
}

func (r *Runner) runSlotReserved(ctx context.Context, slot config.SlotConfig) (approval.Ticket, error) {
	slog.Info("slot run starting", "slot", slot.Name, "grade", slot.Grade, "topic", slot.Topic)

	request := content.ProblemRequest{
		Grade:    slot.Grade,
		Topic:    slot.Topic,
		TimeSlot: slot.Name,
		Region:   slot.Region,
	}

	generated := r.generateWithRetry(ctx, request)

	results := r.narrations.SynthesizeAll(ctx, generated, r.settings.Languages)

	bundle := content.Bundle{
		ID:         content.NewBundleID(),
		TimeSlot:   slot.Name,
		Request:    request,
		Problem:    generated,
		Narrations: results,
		CreatedAt:  r.now().UTC(),
	}

	ticket, err := r.gate.Submit(ctx, bundle)
	if err != nil {
		return approval.Ticket{}, fmt.Errorf("submit bundle: %w", err)
	}

	slog.Info("slot run awaiting approval",
		"slot", slot.Name,
		"bundle_id", bundle.ID,
		"ticket_id", ticket.ID,
		"languages_ok", countSucceeded(results),
	)
	return ticket, nil
}

// generateWithRetry applies the caller-side retry policy around the problem
// source: fixed backoff growing with the attempt number, then the static
// fallback. Generation never blocks a run on provider availability.
func (r *Runner) generateWithRetry(ctx context.Context, request content.ProblemRequest) content.Problem {
	var lastErr error
	for attempt := 1; attempt <= r.settings.GenerateAttempts; attempt++ {
		generated, err := r.problems.Generate(ctx, request)
		if err == nil {
			return generated
		}
		lastErr = err
		slog.Warn("problem generation attempt failed",
			"attempt", attempt,
			"topic", request.Topic,
			"error", err,
		)
		if attempt < r.settings.GenerateAttempts {
			r.sleep(ctx, r.settings.RetryBackoff*time.Duration(attempt))
		}
	}

	slog.Warn("problem generation exhausted, using fallback",
		"topic", request.Topic,
		"error", lastErr,
	)
	return problem.Fallback(request)
}

// Sweep runs the deadline sweep; expirations complete through the
// resolution callback like explicit decisions do.
func (r *Runner) Sweep(now time.Time) error {
	_, err := r.gate.SweepExpired(now)
	return err
}

// HandleResolution completes a run once its ticket leaves the pending state.
// Registered as the gate's resolution callback; it also fires for tickets
// submitted before a process restart, whose bundle travels with the ticket.
func (r *Runner) HandleResolution(ticket approval.Ticket) {
	bundle := ticket.Bundle
	startedAt := r.startedAtFor(bundle.TimeSlot, bundle.CreatedAt)

	result := content.RunResult{
		TimeSlot:           bundle.TimeSlot,
		BundleID:           bundle.ID,
		TicketID:           ticket.ID,
		PerLanguageOutcome: make(map[string]content.LanguageOutcome, len(bundle.Narrations)),
		StartedAt:          startedAt,
		Feedback:           ticket.ResolutionFeedback,
	}

	switch ticket.Status {
	case approval.StatusRejected:
		for _, narration := range bundle.Narrations {
			result.PerLanguageOutcome[narration.LanguageTag] = content.LanguageOutcome{
				NarrationSucceeded: narration.Succeeded,
				ErrorDetail:        narration.ErrorDetail,
			}
		}
		result.OverallStatus = content.RunRejected
		slog.Info("run rejected, publish skipped",
			"ticket_id", ticket.ID,
			"bundle_id", bundle.ID,
			"feedback", ticket.ResolutionFeedback,
		)

	case approval.StatusApproved:
		result.PerLanguageOutcome = r.publishAll(r.baseCtx, bundle)
		result.OverallStatus = overallStatus(result.PerLanguageOutcome)

	default:
		slog.Warn("resolution callback for unresolved ticket ignored", "ticket_id", ticket.ID, "status", ticket.Status)
		return
	}

	result.FinishedAt = r.now().UTC()

	if r.runs != nil {
		if err := r.runs.Append(result); err != nil {
			slog.Warn("failed to record run result", "bundle_id", bundle.ID, "error", err)
		}
	}

	r.releaseTicket(bundle.TimeSlot, ticket.ID)
	slog.Info("run completed",
		"slot", bundle.TimeSlot,
		"bundle_id", bundle.ID,
		"status", result.OverallStatus,
	)
}

// publishAll fans publishes out per language and joins before returning.
// Languages whose narration failed are skipped, not attempted.
func (r *Runner) publishAll(ctx context.Context, bundle content.Bundle) map[string]content.LanguageOutcome {
	outcomes := make(map[string]content.LanguageOutcome, len(bundle.Narrations))

	graph := weave.NewGraph()
	handles := make(map[string]*weave.Handle[publish.Result], len(bundle.Narrations))

	for _, narration := range bundle.Narrations {
		narration := narration
		if !narration.Succeeded {
			outcomes[narration.LanguageTag] = content.LanguageOutcome{
				NarrationSucceeded: false,
				ErrorDetail:        narration.ErrorDetail,
			}
			continue
		}

		handle, err := weave.AddTask(graph, "publish-"+narration.LanguageTag, func(taskCtx context.Context, deps weave.DependencyResolver) (publish.Result, error) {
			return r.sink.Publish(taskCtx, bundle, narration.LanguageTag), nil
		})
		if err != nil {
			outcomes[narration.LanguageTag] = content.LanguageOutcome{
				NarrationSucceeded: true,
				ErrorDetail:        err.Error(),
			}
			continue
		}
		handles[narration.LanguageTag] = handle
	}

	results, _, runErr := graph.Run(ctx, weave.WithErrorStrategy(weave.ContinueOnError))

	for tag, handle := range handles {
		outcome := content.LanguageOutcome{NarrationSucceeded: true}
		if results != nil {
			if value, err := handle.Value(results); err == nil {
				outcome.PublishSucceeded = value.Succeeded
				outcome.ExternalRef = value.ExternalRef
				outcome.ErrorDetail = value.ErrorDetail
				outcomes[tag] = outcome
				continue
			}
		}
		detail := "publish task did not run"
		if runErr != nil {
			detail = runErr.Error()
		}
		outcome.ErrorDetail = detail
		outcomes[tag] = outcome
	}
	return outcomes
}

// InFlight returns the slots with runs currently in progress.
func (r *Runner) InFlight() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	slots := make([]string, 0, len(r.active))
	for name := range r.active {
		slots = append(slots, name)
	}
	return slots
}

func (r *Runner) startedAtFor(slotName string, fallback time.Time) time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	if at, ok := r.startedAt[slotName]; ok {
		return at.UTC()
	}
	return fallback
}

func (r *Runner) release(slotName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, slotName)
	delete(r.startedAt, slotName)
	delete(r.resolvedEarly, slotName)
}

// releaseTicket frees the slot only when it is still owned by this ticket,
// so a resolution from a pre-restart run cannot release a newer run. When
// the slot is reserved but not yet claimed, the release is deferred to the
// claim in RunSlot.
func (r *Runner) releaseTicket(slotName, ticketID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, ok := r.active[slotName]
	if !ok {
		return
	}
	switch owner {
	case ticketID:
		delete(r.active, slotName)
		delete(r.startedAt, slotName)
	case "":
		if r.resolvedEarly == nil {
			r.resolvedEarly = make(map[string]string)
		}
		r.resolvedEarly[slotName] = ticketID
	}
}

func countSucceeded(results []content.NarrationResult) int {
	n := 0
	for _, result := range results {
		if result.Succeeded {
			n++
		}
	}
	return n
}

func overallStatus(outcomes map[string]content.LanguageOutcome) content.RunStatus {
	for _, outcome := range outcomes {
		if !outcome.NarrationSucceeded || !outcome.PublishSucceeded {
			return content.RunPartial
		}
	}
	return content.RunCompleted
}
