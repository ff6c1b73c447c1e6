package conversation

import (
	"context"

	"github.com/inmobilia/inmobilia-ai-platform/internal/guardrails"
)

// ConsentGate detects explicit data-processing consent (Ley 29733). It never
// blocks the turn; its only effect is flipping the consent flag, which is
// monotonic once granted.
type ConsentGate struct {
	deps     gateDeps
	maxInput int
}

func NewConsentGate(deps gateDeps, maxInput int) *ConsentGate {
	return &ConsentGate{deps: deps, maxInput: maxInput}
}

func (g *ConsentGate) Name() string { return GateConsent }

func (g *ConsentGate) Check(ctx context.Context, state *State) {
	if state.ConsentObtained {
		return
	}
	msg := state.LastUserMessage()
	if msg == "" {
		return
	}

	if g.deps.matcher.MatchAny(guardrails.CategoryConsentPhrase, msg) {
		state.GrantConsent()
		g.deps.events.ConsentGranted(ctx, state.ConversationID, TriggerSourcePattern)
		return
	}

	if g.deps.classifier == nil {
		return
	}
	verdict, err := g.deps.classifier.CheckConsent(ctx, truncateForClassifier(msg, g.maxInput))
	if err != nil {
		g.deps.failOpen(ctx, GateConsent, state.ConversationID, err)
		return
	}

	if verdict.ConsentObtained {
		state.GrantConsent()
		g.deps.events.ConsentGranted(ctx, state.ConversationID, TriggerSourceClassifier)
	}
	state.RecordGuardrailEvent(GateConsent, !verdict.ConsentObtained, map[string]any{
		"consent_obtained": verdict.ConsentObtained,
		"reasoning":        verdict.Reasoning,
	})
}
