// Package tutor orchestrates a lesson-step request: resolve tier, validate
// the prompt, enforce the paywall, then forward to the language model.
package tutor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"promptschola/internal/access"
	"promptschola/internal/entitlement"
	"promptschola/internal/llm"
	"promptschola/internal/platform/metrics"
	"promptschola/internal/prompt"
	derrors "promptschola/pkg/domainerrors"
)

// Mode selects the prompt-submission context. Only nano mode is subject to
// structural validation; help mode synthesizes an empty passing verdict here,
// on the caller side, so the validator itself stays mode-free.
type Mode string

const (
	ModeNano Mode = "nano"
	ModeHelp Mode = "help"
)

// RunStepInput is a lesson-step request after transport decoding.
type RunStepInput struct {
	Prompt string
	Step   int
	Mode   Mode
}

// RunStepResult is the successful outcome.
type RunStepResult struct {
	Content  string
	Step     int
	Tier     entitlement.Tier
	IsPaid   bool
	Warnings []string
}

// ValidationError carries the full verdict so the client can correct every
// violated rule at once.
type ValidationError struct {
	Verdict prompt.Verdict
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("prompt failed validation: %d rule(s) violated", len(e.Verdict.Errors))
}

// PaywallError is not a fault: the prompt is well-formed, access is simply
// insufficient. It carries the context a client needs to render a paywall.
type PaywallError struct {
	Decision access.Decision
}

func (e *PaywallError) Error() string {
	return fmt.Sprintf("step %d requires tier %s (current %s)",
		e.Decision.Step, e.Decision.Required, e.Decision.Current)
}

// Service runs the per-request chain. No internal retries: entitlement
// failures fail open inside the resolver, upstream failures surface as-is.
type Service struct {
	resolver  *entitlement.Resolver
	completer llm.Completer
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewService constructs the tutor service.
func NewService(resolver *entitlement.Resolver, completer llm.Completer,
	logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{resolver: resolver, completer: completer, logger: logger, metrics: m}
}

// RunStep executes the full chain for a signed-in user. The returned error is
// a *ValidationError, a *PaywallError, or a typed domain error.
func (s *Service) RunStep(ctx context.Context, userID string, input RunStepInput) (*RunStepResult, error) {
	if input.Prompt == "" {
		return nil, derrors.New(derrors.CodeBadRequest, "Missing or invalid prompt")
	}
	if !access.ValidStep(input.Step) {
		return nil, derrors.Newf(derrors.CodeBadRequest, "step must be between %d and %d", access.MinStep, access.MaxStep)
	}
	switch input.Mode {
	case ModeNano, ModeHelp:
	case "":
		input.Mode = ModeNano
	default:
		return nil, derrors.Newf(derrors.CodeBadRequest, "unknown mode %q", input.Mode)
	}

	tier := s.resolver.Resolve(ctx, userID)

	verdict := prompt.Passing()
	if input.Mode == ModeNano {
		verdict = prompt.Validate(input.Prompt, input.Step)
	}
	if !verdict.OK {
		s.count("validation_failed")
		if s.metrics != nil {
			s.metrics.ValidationFailures.Inc()
		}
		return nil, &ValidationError{Verdict: verdict}
	}

	decision := access.Decide(tier, input.Step)
	if !decision.Allowed {
		s.count("paywall")
		if s.metrics != nil {
			s.metrics.PaywallDenials.Inc()
		}
		return nil, &PaywallError{Decision: decision}
	}

	start := time.Now()
	content, err := s.completer.Complete(ctx, input.Prompt)
	if s.metrics != nil {
		s.metrics.LLMLatencySeconds.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		s.count("upstream_error")
		s.logger.ErrorContext(ctx, "completion failed",
			"error", err, "user_id", userID, "step", input.Step)
		return nil, err
	}

	s.count("ok")
	return &RunStepResult{
		Content:  content,
		Step:     input.Step,
		Tier:     tier,
		IsPaid:   tier.IsPaid(),
		Warnings: verdict.Warnings,
	}, nil
}

// Tier reports the caller's normalized tier for the client-side gate.
func (s *Service) Tier(ctx context.Context, userID string) entitlement.Tier {
	return s.resolver.Resolve(ctx, userID)
}

// SignOut clears per-user cached state. The identity provider owns the
// session itself.
func (s *Service) SignOut(ctx context.Context, userID string) {
	s.resolver.InvalidateCache(ctx, userID)
}

func (s *Service) count(outcome string) {
	if s.metrics != nil {
		s.metrics.RunStepRequests.WithLabelValues(outcome).Inc()
	}
}
