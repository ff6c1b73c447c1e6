package conversation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/inmobilia/inmobilia-ai-platform/pkg/logging"
)

// Handler exposes the conversation pipeline over HTTP.
type Handler struct {
	service Service
	store   StateRepository
	logger  *logging.Logger
}

func NewHandler(service Service, store StateRepository, logger *logging.Logger) *Handler {
	if service == nil {
		panic("conversation: handler requires a service")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, store: store, logger: logger}
}

// Routes mounts the conversation endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/conversations", h.StartConversation)
	r.Post("/conversations/{conversationID}/messages", h.PostMessage)
	r.Get("/conversations/{conversationID}", h.GetConversation)
}

type messageRequest struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

type startRequest struct {
	UserID string `json:"user_id"`
}

type startResponse struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id,omitempty"`
}

// StartConversation allocates a conversation ID. State is created lazily on
// the first message. The optional user_id in the body is echoed back so
// clients can confirm which customer the thread is bound to.
func (h *Handler) StartConversation(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	writeConversationJSON(w, http.StatusCreated, startResponse{
		ConversationID: "conv_" + uuid.NewString(),
		UserID:         strings.TrimSpace(req.UserID),
	})
}

// PostMessage processes one user message through the guardrail pipeline and
// returns the assistant reply.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")
	if conversationID == "" {
		writeConversationError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeConversationError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeConversationError(w, http.StatusBadRequest, "message is required")
		return
	}

	resp, err := h.service.ProcessTurn(r.Context(), conversationID, strings.TrimSpace(req.UserID), req.Message)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyMessage):
			writeConversationError(w, http.StatusBadRequest, "message is required")
		case errors.Is(err, ErrQueueClosed):
			writeConversationError(w, http.StatusServiceUnavailable, "service shutting down")
		default:
			h.logger.Error("failed to process turn", "conversation_id", conversationID, "error", err)
			writeConversationError(w, http.StatusInternalServerError, "failed to process message")
		}
		return
	}

	writeConversationJSON(w, http.StatusOK, resp)
}

type conversationView struct {
	ConversationID    string             `json:"conversation_id"`
	UserID            string             `json:"user_id,omitempty"`
	ConsentObtained   bool               `json:"consent_obtained"`
	LeadRegistered    bool               `json:"lead_registrado"`
	PropertiesShown   bool               `json:"properties_shown"`
	InteractionCount  int                `json:"interaction_count"`
	Messages          []ChatMessage      `json:"messages"`
	PropertyInterests []PropertyInterest `json:"propiedades_interes,omitempty"`
}

// GetConversation returns the current conversation state summary.
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeConversationError(w, http.StatusNotFound, "conversation state unavailable")
		return
	}
	conversationID := chi.URLParam(r, "conversationID")

	state, err := h.store.GetOrCreate(r.Context(), conversationID, "")
	if err != nil {
		h.logger.Error("failed to load conversation", "conversation_id", conversationID, "error", err)
		writeConversationError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}

	writeConversationJSON(w, http.StatusOK, conversationView{
		ConversationID:    state.ConversationID,
		UserID:            state.UserID,
		ConsentObtained:   state.ConsentObtained,
		LeadRegistered:    state.LeadRegistered,
		PropertiesShown:   state.PropertiesShown,
		InteractionCount:  state.InteractionCount,
		Messages:          state.Messages,
		PropertyInterests: state.PropertyInterests,
	})
}

func writeConversationJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeConversationError(w http.ResponseWriter, status int, msg string) {
	writeConversationJSON(w, status, map[string]string{"error": msg})
}
