package conversation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/inmobilia/inmobilia-ai-platform/pkg/logging"
)

// ConversationEvent represents a structured event in the conversation lifecycle.
// All events share the same base fields for easy filtering/grep.
type ConversationEvent struct {
	Time           string         `json:"time"`
	Event          string         `json:"event"`
	ConversationID string         `json:"conversation_id"`
	Data           map[string]any `json:"data,omitempty"`
}

// EventLogger emits structured JSON events at each decision point in the
// conversation flow. Designed for fast grep/filter debugging:
//
//	grep '"event":"gate_triggered"' /var/log/app.log
//	grep '"conversation_id":"conv_abc"' /var/log/app.log
type EventLogger struct {
	logger *logging.Logger
}

// NewEventLogger creates a new conversation event logger.
func NewEventLogger(logger *logging.Logger) *EventLogger {
	return &EventLogger{logger: logger}
}

// Log emits a structured conversation event.
func (e *EventLogger) Log(_ context.Context, event, convID string, data map[string]any) {
	if e == nil || e.logger == nil {
		return
	}
	evt := ConversationEvent{
		Time:           time.Now().UTC().Format(time.RFC3339Nano),
		Event:          event,
		ConversationID: convID,
		Data:           data,
	}
	b, _ := json.Marshal(evt)
	e.logger.Info(string(b))
}

// Convenience methods for common events:

func (e *EventLogger) TurnStarted(ctx context.Context, convID, message string) {
	// Truncate message for logging
	msg := message
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	e.Log(ctx, "turn_started", convID, map[string]any{
		"message": msg,
	})
}

func (e *EventLogger) GateTriggered(ctx context.Context, convID, gate, source string, reason RejectionReason) {
	e.Log(ctx, "gate_triggered", convID, map[string]any{
		"gate":   gate,
		"source": source, // "pattern" or "classifier"
		"reason": reason.String(),
	})
}

func (e *EventLogger) ClassifierFailure(ctx context.Context, convID, gate string, err error) {
	e.Log(ctx, "classifier_failure", convID, map[string]any{
		"gate":  gate,
		"error": err.Error(),
	})
}

func (e *EventLogger) ConsentGranted(ctx context.Context, convID, source string) {
	e.Log(ctx, "consent_granted", convID, map[string]any{
		"source": source,
	})
}

func (e *EventLogger) RouteDecided(ctx context.Context, convID, route, method string) {
	e.Log(ctx, "route_decided", convID, map[string]any{
		"route":  route,
		"method": method, // "llm" or "keyword"
	})
}

func (e *EventLogger) PropertySearch(ctx context.Context, convID string, resultCount int, fallback bool, durationMs int64) {
	e.Log(ctx, "property_search", convID, map[string]any{
		"result_count": resultCount,
		"fallback":     fallback,
		"duration_ms":  durationMs,
	})
}

func (e *EventLogger) LeadStagePromoted(ctx context.Context, convID, leadID, stage string) {
	e.Log(ctx, "lead_stage_promoted", convID, map[string]any{
		"lead_id": leadID,
		"stage":   stage,
	})
}

func (e *EventLogger) PropertyInterestRegistered(ctx context.Context, convID, propertyID, nivel string) {
	e.Log(ctx, "property_interest_registered", convID, map[string]any{
		"property_id": propertyID,
		"nivel":       nivel,
	})
}

func (e *EventLogger) ResponseGenerated(ctx context.Context, convID string, durationMs int64, tokenCount int) {
	e.Log(ctx, "response_generated", convID, map[string]any{
		"duration_ms": durationMs,
		"tokens":      tokenCount,
	})
}

func (e *EventLogger) ErrorOccurred(ctx context.Context, convID, step string, err error) {
	e.Log(ctx, "error", convID, map[string]any{
		"step":  step,
		"error": err.Error(),
	})
}
