package conversation

import (
	"context"

	"github.com/inmobilia/inmobilia-ai-platform/internal/guardrails"
)

// PIIGate blocks messages carrying personal data while consent is missing.
// Once consent is obtained the gate auto-allows everything.
type PIIGate struct {
	deps     gateDeps
	maxInput int
}

func NewPIIGate(deps gateDeps, maxInput int) *PIIGate {
	return &PIIGate{deps: deps, maxInput: maxInput}
}

func (g *PIIGate) Name() string { return GatePII }

func (g *PIIGate) Check(ctx context.Context, state *State) {
	if state.ConsentObtained {
		return
	}
	msg := state.LastUserMessage()
	if msg == "" {
		return
	}

	// The pattern fast path blocks without a guardrail cache entry; only
	// classifier verdicts are worth auditing.
	if kinds := g.deps.matcher.MatchLabels(guardrails.CategoryPII, msg); len(kinds) > 0 {
		state.Trigger(ReasonPersonalData)
		g.deps.metrics.ObserveGateTriggered(GatePII, TriggerSourcePattern)
		g.deps.events.GateTriggered(ctx, state.ConversationID, GatePII, TriggerSourcePattern, ReasonPersonalData)
		return
	}

	if g.deps.classifier == nil {
		return
	}
	verdict, err := g.deps.classifier.CheckPII(ctx, truncateForClassifier(msg, g.maxInput))
	if err != nil {
		g.deps.failOpen(ctx, GatePII, state.ConversationID, err)
		return
	}

	state.RecordGuardrailEvent(GatePII, verdict.ContainsPII, map[string]any{
		"contains_pii":       verdict.ContainsPII,
		"detected_pii_types": verdict.DetectedPIITypes,
		"reasoning":          verdict.Reasoning,
	})
	if verdict.ContainsPII {
		state.Trigger(ReasonPersonalData)
		g.deps.metrics.ObserveGateTriggered(GatePII, TriggerSourceClassifier)
		g.deps.events.GateTriggered(ctx, state.ConversationID, GatePII, TriggerSourceClassifier, ReasonPersonalData)
	}
}
