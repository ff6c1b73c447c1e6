package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const defaultSessionTTL = time.Hour

// StateStore persists conversation state in Redis on two tiers: the session
// state expires with the TTL, while the user memory (consent, captured data,
// preferences) survives session expiry and process restarts. User memory is
// keyed by the user ID when one is known, so a returning customer is
// recognized in a brand-new conversation; anonymous sessions fall back to
// the conversation ID.
type StateStore struct {
	redis  *redis.Client
	tracer trace.Tracer
	ttl    time.Duration
}

func NewStateStore(client *redis.Client, ttl time.Duration, tracer trace.Tracer) *StateStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	if tracer == nil {
		tracer = otel.Tracer("inmobilia.internal.conversation.state")
	}
	return &StateStore{
		redis:  client,
		tracer: tracer,
		ttl:    ttl,
	}
}

// userMemory is the durable subset of state carried across sessions.
type userMemory struct {
	ConsentObtained   bool               `json:"consent_obtained"`
	LeadRegistered    bool               `json:"lead_registrado"`
	UserData          map[string]string  `json:"user_data,omitempty"`
	Preferences       map[string]string  `json:"preferencias,omitempty"`
	PropertyInterests []PropertyInterest `json:"propiedades_interes,omitempty"`
}

// Save persists the session state and refreshes the durable user memory.
func (s *StateStore) Save(ctx context.Context, state *State) error {
	ctx, span := s.tracer.Start(ctx, "conversation.save_state")
	defer span.End()

	data, err := json.Marshal(state)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to marshal state: %w", err)
	}
	if err := s.redis.Set(ctx, stateKey(state.ConversationID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to persist state: %w", err)
	}

	mem := userMemory{
		ConsentObtained:   state.ConsentObtained,
		LeadRegistered:    state.LeadRegistered,
		UserData:          state.UserData,
		Preferences:       state.Preferences,
		PropertyInterests: state.PropertyInterests,
	}
	memData, err := json.Marshal(mem)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to marshal user memory: %w", err)
	}
	if err := s.redis.Set(ctx, userMemoryKey(memoryOwner(state.ConversationID, state.UserID)), memData, 0).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to persist user memory: %w", err)
	}
	return nil
}

// Load returns the session state, or ErrStateNotFound if none is stored.
func (s *StateStore) Load(ctx context.Context, conversationID string) (*State, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.load_state")
	defer span.End()

	data, err := s.redis.Get(ctx, stateKey(conversationID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrStateNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to load state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to decode state: %w", err)
	}
	state.MergeDefaults()
	return &state, nil
}

// GetOrCreate loads the session state, seeding a fresh session from the
// durable memory of the given user when the session has expired or the
// conversation is new.
func (s *StateStore) GetOrCreate(ctx context.Context, conversationID, userID string) (*State, error) {
	state, err := s.Load(ctx, conversationID)
	if err == nil {
		if state.UserID == "" {
			state.UserID = userID
		}
		return state, nil
	}
	if !errors.Is(err, ErrStateNotFound) {
		return nil, err
	}

	state = NewState(conversationID)
	state.UserID = userID
	memData, err := s.redis.Get(ctx, userMemoryKey(memoryOwner(conversationID, userID))).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return state, nil
		}
		return nil, fmt.Errorf("conversation: failed to load user memory: %w", err)
	}

	var mem userMemory
	if err := json.Unmarshal(memData, &mem); err != nil {
		return nil, fmt.Errorf("conversation: failed to decode user memory: %w", err)
	}
	state.ConsentObtained = mem.ConsentObtained
	state.LeadRegistered = mem.LeadRegistered
	if mem.UserData != nil {
		state.UserData = mem.UserData
	}
	if mem.Preferences != nil {
		state.Preferences = mem.Preferences
	}
	state.PropertyInterests = mem.PropertyInterests
	return state, nil
}

func stateKey(id string) string {
	return fmt.Sprintf("conversation:%s", id)
}

func userMemoryKey(owner string) string {
	return fmt.Sprintf("user_memory:%s", owner)
}

// memoryOwner picks the key the durable memory lives under: the user when
// identified, otherwise the conversation.
func memoryOwner(conversationID, userID string) string {
	if userID != "" {
		return userID
	}
	return conversationID
}
