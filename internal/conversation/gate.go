package conversation

import (
	"context"

	"github.com/inmobilia/inmobilia-ai-platform/internal/guardrails"
	"github.com/inmobilia/inmobilia-ai-platform/internal/observability/metrics"
	"github.com/inmobilia/inmobilia-ai-platform/pkg/logging"
)

// Gate names, used in metrics labels and guardrail events.
const (
	GateRelevance = "relevance"
	GateSecurity  = "security"
	GateConsent   = "consent"
	GatePII       = "pii"
)

// Trigger sources for metrics: regex fast path vs. classifier verdict.
const (
	TriggerSourcePattern    = "pattern"
	TriggerSourceClassifier = "classifier"
)

// Gate inspects the latest user message and may mutate state: blocking the
// turn, granting consent, or recording guardrail events. Gates never return
// errors; classifier failures are absorbed by the fail-open policy.
type Gate interface {
	Name() string
	Check(ctx context.Context, state *State)
}

// gateDeps are the collaborators shared by every gate. The matcher carries
// the compiled pattern cache for the whole gate set.
type gateDeps struct {
	classifier *Classifier
	matcher    *guardrails.Matcher
	metrics    *metrics.ConversationMetrics
	events     *EventLogger
	logger     *logging.Logger
}

func newGateDeps(classifier *Classifier, m *metrics.ConversationMetrics, events *EventLogger, logger *logging.Logger) gateDeps {
	if logger == nil {
		logger = logging.Default()
	}
	return gateDeps{
		classifier: classifier,
		matcher:    guardrails.NewMatcher(),
		metrics:    m,
		events:     events,
		logger:     logger,
	}
}

// GateLimits caps the message length each gate forwards to the classifier.
// The stored message is never truncated.
type GateLimits struct {
	Relevance int
	Security  int
	Consent   int
	PII       int
}

// GateSet bundles the four guardrail gates in pipeline order.
type GateSet struct {
	Relevance *RelevanceGate
	Security  *SecurityGate
	Consent   *ConsentGate
	PII       *PIIGate
}

// NewGateSet builds the guardrail gates over shared collaborators. A nil
// classifier leaves the gates running on patterns alone.
func NewGateSet(classifier *Classifier, m *metrics.ConversationMetrics, events *EventLogger, logger *logging.Logger, limits GateLimits) GateSet {
	deps := newGateDeps(classifier, m, events, logger)
	return GateSet{
		Relevance: NewRelevanceGate(deps, limits.Relevance),
		Security:  NewSecurityGate(deps, limits.Security),
		Consent:   NewConsentGate(deps, limits.Consent),
		PII:       NewPIIGate(deps, limits.PII),
	}
}

// failOpen logs and counts a classifier failure. The turn proceeds as if
// the gate allowed the message.
func (d gateDeps) failOpen(ctx context.Context, gate, conversationID string, err error) {
	d.logger.Warn("classifier failed, allowing message", "gate", gate, "error", err)
	d.metrics.ObserveClassifierFailure(gate)
	d.events.ClassifierFailure(ctx, conversationID, gate, err)
}
