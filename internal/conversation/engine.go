package conversation

import (
	"context"
	"strings"
	"time"

	"github.com/inmobilia/inmobilia-ai-platform/internal/observability/metrics"
	"github.com/inmobilia/inmobilia-ai-platform/pkg/logging"
)

// Engine runs the per-turn pipeline: the guardrail gates in order, the
// supervisor dispatch to a specialist agent, and the closing PII check,
// short-circuiting to a canned rejection whenever a gate triggers. The
// mutated state is persisted at the end of every turn, blocked or not.
type Engine struct {
	store      StateRepository
	relevance  Gate
	security   Gate
	consent    Gate
	pii        Gate
	supervisor *Supervisor
	search     *SearchAgent
	capture    *CaptureAgent
	metrics    *metrics.ConversationMetrics
	events     *EventLogger
	logger     *logging.Logger
}

// EngineConfig wires the engine's collaborators.
type EngineConfig struct {
	Store      StateRepository
	Relevance  Gate
	Security   Gate
	Consent    Gate
	PII        Gate
	Supervisor *Supervisor
	Search     *SearchAgent
	Capture    *CaptureAgent
	Metrics    *metrics.ConversationMetrics
	Events     *EventLogger
	Logger     *logging.Logger
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Store == nil {
		panic("conversation: engine requires a state repository")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Engine{
		store:      cfg.Store,
		relevance:  cfg.Relevance,
		security:   cfg.Security,
		consent:    cfg.Consent,
		pii:        cfg.PII,
		supervisor: cfg.Supervisor,
		search:     cfg.Search,
		capture:    cfg.Capture,
		metrics:    cfg.Metrics,
		events:     cfg.Events,
		logger:     cfg.Logger,
	}
}

// ProcessTurn handles one user message: load state, walk the pipeline,
// persist state, and return the assistant reply. The user ID binds the turn
// to the customer's durable memory and may be empty.
func (e *Engine) ProcessTurn(ctx context.Context, conversationID, userID, message string) (*Response, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	start := time.Now()
	state, err := e.store.GetOrCreate(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	state.ResetTurn()
	state.AppendMessage(ChatRoleUser, message)
	e.events.TurnStarted(ctx, conversationID, message)

	var (
		reply    string
		route    Route
		rejected bool
	)
	for stage := StageRelevance; stage != StageDone; {
		switch stage {
		case StageRelevance:
			e.runGate(ctx, e.relevance, state)
		case StageSecurity:
			e.runGate(ctx, e.security, state)
		case StageConsent:
			e.runGate(ctx, e.consent, state)
		case StageDispatch:
			route, reply = e.dispatch(ctx, state)
		case StagePII:
			e.runGate(ctx, e.pii, state)
		case StageRejection:
			reply = RejectionResponse(state, state.Reason())
			rejected = true
		}
		stage = nextStage(stage, state.Triggered())
	}

	state.AppendMessage(ChatRoleAssistant, reply)
	if err := e.store.Save(ctx, state); err != nil {
		return nil, err
	}

	status := "ok"
	if rejected {
		status = "rejected"
	}
	elapsed := time.Since(start)
	e.metrics.ObserveTurn(string(route), status)
	e.metrics.ObserveTurnLatency(string(route), elapsed.Seconds())
	e.events.ResponseGenerated(ctx, conversationID, elapsed.Milliseconds(), 0)

	resp := &Response{
		ConversationID: conversationID,
		Reply:          reply,
		Route:          string(route),
		Rejected:       rejected,
	}
	if rejected {
		resp.Reason = state.Reason().String()
	}
	return resp, nil
}

func (e *Engine) runGate(ctx context.Context, g Gate, state *State) {
	if g == nil {
		return
	}
	g.Check(ctx, state)
}

// dispatch picks the specialist agent for the turn and runs it. A missing
// supervisor or agent degrades to whichever agent is wired.
func (e *Engine) dispatch(ctx context.Context, state *State) (Route, string) {
	decision := RouteDecision{Route: RouteSearch, Method: "keyword", Reason: "default"}
	if e.supervisor != nil {
		decision = e.supervisor.Decide(ctx, state)
	}
	e.events.RouteDecided(ctx, state.ConversationID, string(decision.Route), decision.Method)

	switch decision.Route {
	case RouteCapture:
		if e.capture != nil {
			return RouteCapture, e.capture.Handle(ctx, state)
		}
	case RouteSearch:
		if e.search != nil {
			return RouteSearch, e.search.Handle(ctx, state)
		}
	}
	if e.search != nil {
		return RouteSearch, e.search.Handle(ctx, state)
	}
	e.logger.Error("no agent available for dispatch", "route", decision.Route)
	return decision.Route, rejectGeneric
}
