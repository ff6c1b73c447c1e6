package conversation

import (
	"context"

	"github.com/inmobilia/inmobilia-ai-platform/internal/guardrails"
)

// SecurityGate blocks prompt-injection and jailbreak attempts.
type SecurityGate struct {
	deps     gateDeps
	maxInput int
}

func NewSecurityGate(deps gateDeps, maxInput int) *SecurityGate {
	return &SecurityGate{deps: deps, maxInput: maxInput}
}

func (g *SecurityGate) Name() string { return GateSecurity }

func (g *SecurityGate) Check(ctx context.Context, state *State) {
	msg := state.LastUserMessage()
	if msg == "" {
		return
	}

	if g.deps.matcher.MatchAny(guardrails.CategoryInjectionRisk, msg) {
		state.Trigger(ReasonSecurity)
		g.deps.metrics.ObserveGateTriggered(GateSecurity, TriggerSourcePattern)
		g.deps.events.GateTriggered(ctx, state.ConversationID, GateSecurity, TriggerSourcePattern, ReasonSecurity)
		return
	}

	if g.deps.classifier == nil {
		return
	}
	verdict, err := g.deps.classifier.CheckSecurity(ctx, truncateForClassifier(msg, g.maxInput))
	if err != nil {
		g.deps.failOpen(ctx, GateSecurity, state.ConversationID, err)
		return
	}

	state.RecordGuardrailEvent(GateSecurity, !verdict.IsSafe, map[string]any{
		"is_safe":   verdict.IsSafe,
		"reasoning": verdict.Reasoning,
	})
	if !verdict.IsSafe {
		state.Trigger(ReasonSecurity)
		g.deps.metrics.ObserveGateTriggered(GateSecurity, TriggerSourceClassifier)
		g.deps.events.GateTriggered(ctx, state.ConversationID, GateSecurity, TriggerSourceClassifier, ReasonSecurity)
	}
}
