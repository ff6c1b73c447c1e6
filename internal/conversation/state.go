package conversation

import "time"

// GuardrailEvent records one classifier decision for later auditing.
type GuardrailEvent struct {
	Agent     string         `json:"agent"`
	Triggered bool           `json:"triggered"`
	Info      map[string]any `json:"info,omitempty"`
	Time      time.Time      `json:"time"`
}

// GuardrailCache accumulates guardrail outcomes across the conversation.
type GuardrailCache struct {
	Events               []GuardrailEvent `json:"events,omitempty"`
	AwaitingPersonalData bool             `json:"awaiting_personal_data,omitempty"`
}

// Interaction is one entry of the interaction history.
type Interaction struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
}

// PropertyInterest tracks the customer's declared interest in a property.
type PropertyInterest struct {
	PropertyID string    `json:"id"`
	Nivel      string    `json:"nivel"`
	Timestamp  time.Time `json:"timestamp"`
}

// State is the shared conversation state read and mutated by every gate and
// agent in a turn, then persisted between turns. The guardrail trigger flag
// and reason are per-turn and deliberately unexported so they never persist.
type State struct {
	ConversationID     string             `json:"conversation_id"`
	UserID             string             `json:"user_id,omitempty"`
	Messages           []ChatMessage      `json:"messages"`
	ConsentObtained    bool               `json:"consent_obtained"`
	LeadRegistered     bool               `json:"lead_registrado"`
	UserData           map[string]string  `json:"user_data"`
	Preferences        map[string]string  `json:"preferencias"`
	InteractionHistory []Interaction      `json:"interaction_history"`
	GuardrailCache     GuardrailCache     `json:"guardrail_cache"`
	PropertyInterests  []PropertyInterest `json:"propiedades_interes,omitempty"`
	PropertiesShown    bool               `json:"properties_shown"`
	InteractionCount   int                `json:"interaction_count"`

	triggered bool
	reason    RejectionReason
}

// NewState creates a state with every collection initialized.
func NewState(conversationID string) *State {
	return &State{
		ConversationID: conversationID,
		Messages:       []ChatMessage{},
		UserData:       map[string]string{},
		Preferences:    map[string]string{},
	}
}

// MergeDefaults fills in nil collections on a state loaded from storage.
func (s *State) MergeDefaults() {
	if s.Messages == nil {
		s.Messages = []ChatMessage{}
	}
	if s.UserData == nil {
		s.UserData = map[string]string{}
	}
	if s.Preferences == nil {
		s.Preferences = map[string]string{}
	}
}

// LastUserMessage returns the content of the most recent user message,
// or "" if the conversation has none.
func (s *State) LastUserMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == ChatRoleUser {
			return s.Messages[i].Content
		}
	}
	return ""
}

// AppendMessage adds a message to the transcript.
func (s *State) AppendMessage(role, content string) {
	s.Messages = append(s.Messages, ChatMessage{Role: role, Content: content})
}

// GrantConsent marks consent as obtained. Consent is monotonic: once given
// it is never revoked by later turns. The awaiting-personal-data flag is left
// alone; the supervisor still needs it to route the consent turn, and the
// capture agent clears it once it takes the turn.
func (s *State) GrantConsent() {
	s.ConsentObtained = true
}

// AddInteraction appends an entry to the interaction history.
func (s *State) AddInteraction(interactionType string, data map[string]any) {
	s.InteractionHistory = append(s.InteractionHistory, Interaction{
		Timestamp: time.Now().UTC(),
		Type:      interactionType,
		Data:      data,
	})
}

// RecordGuardrailEvent appends a classifier outcome to the guardrail cache.
func (s *State) RecordGuardrailEvent(agent string, triggered bool, info map[string]any) {
	s.GuardrailCache.Events = append(s.GuardrailCache.Events, GuardrailEvent{
		Agent:     agent,
		Triggered: triggered,
		Info:      info,
		Time:      time.Now().UTC(),
	})
}

// RecordPropertyInterest registers or updates interest in a property.
func (s *State) RecordPropertyInterest(propertyID, nivel string) {
	now := time.Now().UTC()
	for i, p := range s.PropertyInterests {
		if p.PropertyID == propertyID {
			s.PropertyInterests[i] = PropertyInterest{PropertyID: propertyID, Nivel: nivel, Timestamp: now}
			return
		}
	}
	s.PropertyInterests = append(s.PropertyInterests, PropertyInterest{PropertyID: propertyID, Nivel: nivel, Timestamp: now})
}

// Trigger marks the current turn as blocked for the given reason. The first
// trigger wins; later calls in the same turn are ignored.
func (s *State) Trigger(reason RejectionReason) {
	if s.triggered {
		return
	}
	s.triggered = true
	s.reason = reason
}

// Triggered reports whether a gate blocked the current turn.
func (s *State) Triggered() bool { return s.triggered }

// Reason returns the rejection reason for the current turn.
func (s *State) Reason() RejectionReason { return s.reason }

// ResetTurn clears the per-turn guardrail flags before processing a message.
func (s *State) ResetTurn() {
	s.triggered = false
	s.reason = ReasonNone
}
