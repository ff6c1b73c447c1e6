package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/inmobilia/inmobilia-ai-platform/pkg/logging"
)

// Route names the specialist agent a turn is dispatched to.
type Route string

const (
	RouteSearch  Route = "search_properties"
	RouteCapture Route = "capture_lead"
)

// RouteDecision is the supervisor's dispatch choice for one turn.
type RouteDecision struct {
	Route  Route
	Method string // "keyword" or "llm"
	Reason string
}

const supervisorPrompt = `Eres el supervisor de un asistente inmobiliario con dos agentes:
- "search": busca propiedades, muestra proyectos, responde sobre zonas y precios.
- "capture": valida y registra datos del cliente en el CRM (prelead, lead, enriquecimiento).

Decide qué agente debe atender el mensaje del usuario.
Responde sólo con un objeto JSON:
{
  "route": "search" | "capture",
  "reason": "<razón breve>"
}`

// Capture intent signals: the customer is handing over data, asking to be
// registered, or declaring interest in a property, rather than browsing
// inventory.
var captureSignalRe = regexp.MustCompile(`(?i)(mi nombre es|me llamo|mis datos|reg[ií]strame|reg[ií]strenme|mi correo|mi email|mi tel[eé]fono|mi celular|mi dni|an[oó]tame|apúntame|contactarme|contáctenme|me interesa|agendar|quiero visitar)`)

// Search intent signals: browsing and filtering inventory.
var searchSignalRe = regexp.MustCompile(`(?i)(busco|buscar|mu[eé]strame|ens[eé]ñame|quiero ver|qu[eé] (propiedades|departamentos|casas)|disponib|opciones|similares|im[aá]genes|fotos|detalle)`)

// SupervisorConfig configures the dispatch supervisor.
type SupervisorConfig struct {
	Model     string
	MaxTokens int32
	Timeout   time.Duration
}

// Supervisor decides which specialist agent handles a turn. A cheap keyword
// pass resolves the common cases; ambiguous messages go to the manager
// model, and if that fails the turn defaults to the search agent.
type Supervisor struct {
	client    LLMClient
	model     string
	maxTokens int32
	timeout   time.Duration
	logger    *logging.Logger
}

// NewSupervisor constructs an LLM-backed dispatch supervisor. A nil client
// disables the LLM pass and leaves only the keyword heuristic.
func NewSupervisor(client LLMClient, cfg SupervisorConfig, logger *logging.Logger) *Supervisor {
	if logger == nil {
		logger = logging.Default()
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 128
	}
	return &Supervisor{
		client:    client,
		model:     cfg.Model,
		maxTokens: maxTokens,
		timeout:   cfg.Timeout,
		logger:    logger,
	}
}

// Decide picks the route for the latest user message.
func (s *Supervisor) Decide(ctx context.Context, state *State) RouteDecision {
	msg := state.LastUserMessage()

	// A turn right after the assistant asked for consent/data goes to capture.
	if state.GuardrailCache.AwaitingPersonalData && state.ConsentObtained {
		return RouteDecision{Route: RouteCapture, Method: "keyword", Reason: "awaiting personal data"}
	}
	if captureSignalRe.MatchString(msg) {
		return RouteDecision{Route: RouteCapture, Method: "keyword", Reason: "capture signal"}
	}
	if searchSignalRe.MatchString(msg) {
		return RouteDecision{Route: RouteSearch, Method: "keyword", Reason: "search signal"}
	}

	if s.client == nil || strings.TrimSpace(s.model) == "" {
		return RouteDecision{Route: RouteSearch, Method: "keyword", Reason: "default"}
	}

	decision, err := s.decideLLM(ctx, msg)
	if err != nil {
		s.logger.Warn("supervisor llm failed, defaulting to search", "error", err)
		return RouteDecision{Route: RouteSearch, Method: "keyword", Reason: "llm unavailable"}
	}
	return decision
}

func (s *Supervisor) decideLLM(ctx context.Context, msg string) (RouteDecision, error) {
	callCtx := ctx
	var cancel context.CancelFunc
	if s.timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp, err := s.client.Complete(callCtx, LLMRequest{
		Model:  s.model,
		System: []string{supervisorPrompt},
		Messages: []ChatMessage{
			{Role: ChatRoleUser, Content: msg},
		},
		MaxTokens:   s.maxTokens,
		Temperature: 0,
	})
	if err != nil {
		return RouteDecision{}, err
	}
	return parseRouteDecision(resp.Text)
}

type routePayload struct {
	Route  string `json:"route"`
	Reason string `json:"reason"`
}

func parseRouteDecision(raw string) (RouteDecision, error) {
	text := sanitizeClassifierJSON(raw)
	if text == "" {
		return RouteDecision{}, fmt.Errorf("conversation: supervisor empty response")
	}
	var payload routePayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return RouteDecision{}, err
	}
	switch strings.ToLower(strings.TrimSpace(payload.Route)) {
	case "capture", string(RouteCapture):
		return RouteDecision{Route: RouteCapture, Method: "llm", Reason: payload.Reason}, nil
	case "search", string(RouteSearch):
		return RouteDecision{Route: RouteSearch, Method: "llm", Reason: payload.Reason}, nil
	default:
		return RouteDecision{}, fmt.Errorf("conversation: supervisor route invalid: %q", payload.Route)
	}
}
