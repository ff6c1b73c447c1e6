package conversation

import (
	"context"
	"errors"
	"testing"
)

func TestSupervisorKeywordRoutesCaptureSignals(t *testing.T) {
	s := NewSupervisor(nil, SupervisorConfig{}, nil)

	state := stateWithMessage("mi nombre es Juan Pérez y quiero que me contacten")
	decision := s.Decide(context.Background(), state)
	if decision.Route != RouteCapture || decision.Method != "keyword" {
		t.Fatalf("expected keyword capture route, got %+v", decision)
	}
}

func TestSupervisorKeywordRoutesSearchSignals(t *testing.T) {
	s := NewSupervisor(nil, SupervisorConfig{}, nil)

	state := stateWithMessage("muéstrame opciones en San Isidro")
	decision := s.Decide(context.Background(), state)
	if decision.Route != RouteSearch || decision.Method != "keyword" {
		t.Fatalf("expected keyword search route, got %+v", decision)
	}
}

func TestSupervisorRoutesCaptureWhileAwaitingPersonalData(t *testing.T) {
	s := NewSupervisor(nil, SupervisorConfig{}, nil)

	state := stateWithMessage("Juan Pérez, +51987654321")
	state.ConsentObtained = true
	state.GuardrailCache.AwaitingPersonalData = true

	decision := s.Decide(context.Background(), state)
	if decision.Route != RouteCapture {
		t.Fatalf("expected capture route while awaiting personal data, got %+v", decision)
	}
}

func TestSupervisorDefaultsToSearchWithoutClient(t *testing.T) {
	s := NewSupervisor(nil, SupervisorConfig{}, nil)

	state := stateWithMessage("algo totalmente ambiguo")
	decision := s.Decide(context.Background(), state)
	if decision.Route != RouteSearch {
		t.Fatalf("expected search default, got %+v", decision)
	}
}

func TestSupervisorUsesLLMForAmbiguousMessages(t *testing.T) {
	client := &fakeLLM{text: `{"route": "capture", "reason": "entrega datos"}`}
	s := NewSupervisor(client, SupervisorConfig{Model: "manager-model"}, nil)

	state := stateWithMessage("algo totalmente ambiguo")
	decision := s.Decide(context.Background(), state)
	if decision.Route != RouteCapture || decision.Method != "llm" {
		t.Fatalf("expected llm capture route, got %+v", decision)
	}
	if client.calls != 1 {
		t.Fatalf("expected one llm call, got %d", client.calls)
	}
}

func TestSupervisorDefaultsToSearchOnLLMFailure(t *testing.T) {
	client := &fakeLLM{err: errors.New("throttled")}
	s := NewSupervisor(client, SupervisorConfig{Model: "manager-model"}, nil)

	state := stateWithMessage("algo totalmente ambiguo")
	decision := s.Decide(context.Background(), state)
	if decision.Route != RouteSearch {
		t.Fatalf("expected search fallback on llm failure, got %+v", decision)
	}
}

func TestParseRouteDecision(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		want    Route
		wantErr bool
	}{
		{"short name", `{"route": "search", "reason": "ok"}`, RouteSearch, false},
		{"full name", `{"route": "capture_lead", "reason": "ok"}`, RouteCapture, false},
		{"code fence", "```json\n{\"route\": \"capture\", \"reason\": \"ok\"}\n```", RouteCapture, false},
		{"invalid route", `{"route": "escalate", "reason": "?"}`, "", true},
		{"empty", "   ", "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision, err := parseRouteDecision(tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if decision.Route != tc.want {
				t.Fatalf("route = %q, want %q", decision.Route, tc.want)
			}
		})
	}
}
