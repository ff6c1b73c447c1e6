package conversation

import (
	"context"

	"github.com/inmobilia/inmobilia-ai-platform/internal/guardrails"
)

// RelevanceGate blocks messages unrelated to real estate. The match order is
// deliberately permissive: any domain signal allows the message before the
// off-topic patterns are even consulted.
type RelevanceGate struct {
	deps     gateDeps
	maxInput int
}

func NewRelevanceGate(deps gateDeps, maxInput int) *RelevanceGate {
	return &RelevanceGate{deps: deps, maxInput: maxInput}
}

func (g *RelevanceGate) Name() string { return GateRelevance }

func (g *RelevanceGate) Check(ctx context.Context, state *State) {
	msg := state.LastUserMessage()
	if msg == "" {
		return
	}

	if g.deps.matcher.MatchAny(guardrails.CategoryDomainRelevant, msg) {
		return
	}
	if g.deps.matcher.MatchAny(guardrails.CategoryGreeting, msg) {
		return
	}
	if g.deps.matcher.MatchAny(guardrails.CategoryOffTopic, msg) {
		state.Trigger(ReasonOffTopic)
		g.deps.metrics.ObserveGateTriggered(GateRelevance, TriggerSourcePattern)
		g.deps.events.GateTriggered(ctx, state.ConversationID, GateRelevance, TriggerSourcePattern, ReasonOffTopic)
		return
	}

	if g.deps.classifier == nil {
		return
	}
	verdict, err := g.deps.classifier.CheckRelevance(ctx, truncateForClassifier(msg, g.maxInput))
	if err != nil {
		g.deps.failOpen(ctx, GateRelevance, state.ConversationID, err)
		return
	}
	if !verdict.IsRelevant {
		state.Trigger(ReasonOffTopic)
		g.deps.metrics.ObserveGateTriggered(GateRelevance, TriggerSourceClassifier)
		g.deps.events.GateTriggered(ctx, state.ConversationID, GateRelevance, TriggerSourceClassifier, ReasonOffTopic)
	}
}
