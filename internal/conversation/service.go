package conversation

import "context"

// Response is the outcome of one processed turn.
type Response struct {
	ConversationID string `json:"conversation_id"`
	Reply          string `json:"reply"`
	Route          string `json:"route,omitempty"`
	Rejected       bool   `json:"rejected"`
	Reason         string `json:"reason,omitempty"`
}

// Service processes conversation turns. The user ID identifies the customer
// across conversations; it may be empty for anonymous sessions.
type Service interface {
	ProcessTurn(ctx context.Context, conversationID, userID, message string) (*Response, error)
}

// StateRepository persists conversation state between turns. GetOrCreate
// seeds a fresh conversation from the durable memory of the given user.
type StateRepository interface {
	GetOrCreate(ctx context.Context, conversationID, userID string) (*State, error)
	Save(ctx context.Context, state *State) error
}
