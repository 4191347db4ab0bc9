package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// PollPolicy bounds the wait for a run to finish.
type PollPolicy struct {
	Interval    time.Duration
	MaxAttempts int
}

// DefaultPollPolicy polls every 500ms for up to two minutes.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		Interval:    500 * time.Millisecond,
		MaxAttempts: 240,
	}
}

func (p PollPolicy) normalized() PollPolicy {
	def := DefaultPollPolicy()
	if p.Interval <= 0 {
		p.Interval = def.Interval
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	return p
}

// Orchestrator posts user messages to a thread and waits for the assistant's
// reply.
type Orchestrator struct {
	api         API
	assistantID string
	policy      PollPolicy
	logger      *slog.Logger
	observer    Observer
}

type OrchestratorOption func(*Orchestrator)

func WithPollPolicy(p PollPolicy) OrchestratorOption {
	return func(o *Orchestrator) {
		o.policy = p.normalized()
	}
}

func WithOrchestratorLogger(l *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

func WithOrchestratorObserver(obs Observer) OrchestratorOption {
	return func(o *Orchestrator) {
		o.observer = obs
	}
}

func NewOrchestrator(api API, assistantID string, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		api:         api,
		assistantID: assistantID,
		policy:      DefaultPollPolicy(),
		logger:      slog.Default().With("component", "orchestrator"),
		observer:    nopObserver{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SendAndAwait appends text as a user message, runs the assistant on the
// thread and returns the first text segment of the newest assistant message
// once the run has completed.
//
// A run that ends in any other terminal status yields a *RunError. A run that
// is still going after the poll policy's attempts yields ErrPollExhausted.
func (o *Orchestrator) SendAndAwait(ctx context.Context, thread Thread, text, displayName string) (string, error) {
	if err := o.api.AppendMessage(ctx, thread.ID, RoleUser, text); err != nil {
		return "", err
	}

	run, err := o.api.CreateRun(ctx, thread.ID, o.assistantID)
	if err != nil {
		return "", err
	}
	logger := o.logger.With("thread_id", thread.ID, "run_id", run.ID, "name", displayName)

	run, attempts, err := o.await(ctx, thread.ID, run)
	if err != nil {
		return "", err
	}
	o.observer.RunFinished(run.Status, attempts)
	if run.Status != RunStatusCompleted {
		logger.Warn("run ended without completing", "status", run.Status, "code", run.ErrorCode)
		return "", &RunError{
			RunID:   run.ID,
			Status:  run.Status,
			Code:    run.ErrorCode,
			Message: run.ErrorText,
		}
	}

	messages, err := o.api.ListMessages(ctx, thread.ID)
	if err != nil {
		return "", err
	}
	for _, m := range messages {
		if m.Role != RoleAssistant {
			continue
		}
		reply, ok := m.FirstText()
		if !ok {
			break
		}
		logger.Info("generated message", "attempts", attempts, "chars", len(reply))
		return reply, nil
	}
	return "", fmt.Errorf("thread %s: %w", thread.ID, ErrEmptyReply)
}

// await polls until run is terminal. It returns the last observed run and
// the number of status fetches made.
func (o *Orchestrator) await(ctx context.Context, threadID string, run Run) (Run, int, error) {
	timer := time.NewTimer(o.policy.Interval)
	defer timer.Stop()

	attempts := 0
	for !run.Status.Terminal() {
		if attempts >= o.policy.MaxAttempts {
			o.observer.RunFinished(run.Status, attempts)
			return run, attempts, fmt.Errorf("run %s still %s after %d polls: %w",
				run.ID, run.Status, attempts, ErrPollExhausted)
		}

		timer.Reset(o.policy.Interval)
		select {
		case <-ctx.Done():
			return run, attempts, fmt.Errorf("waiting for run %s: %w", run.ID, ctx.Err())
		case <-timer.C:
		}

		next, err := o.api.GetRun(ctx, threadID, run.ID)
		if err != nil {
			return run, attempts, err
		}
		attempts++
		run = next
	}
	return run, attempts, nil
}
