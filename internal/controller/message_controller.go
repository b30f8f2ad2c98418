package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tasklocal/marketplace/internal/service"
)

type MessageController struct {
	messagingService *service.MessagingService
	authzService     *service.AuthzService
}

func NewMessageController(messagingService *service.MessagingService, authzService *service.AuthzService) *MessageController {
	return &MessageController{messagingService: messagingService, authzService: authzService}
}

// Start opens (or returns) the conversation for a task.
func (h *MessageController) Start(w http.ResponseWriter, r *http.Request) {
	taskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid task id", Code: "invalid_id"})
		return
	}

	actorID, err := h.authzService.CallerID(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	c, err := h.messagingService.StartConversation(r.Context(), taskID, actorID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FromConversation(c))
}

// Send appends a message to a conversation.
func (h *MessageController) Send(w http.ResponseWriter, r *http.Request) {
	conversationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid conversation id", Code: "invalid_id"})
		return
	}

	var req SendMessageRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	senderID, err := h.authzService.CallerID(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	m, err := h.messagingService.SendMessage(r.Context(), conversationID, senderID, req.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, FromMessage(m))
}

// ListConversations lists the caller's conversations.
func (h *MessageController) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID, err := h.authzService.CallerID(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	limit, offset := paginationParams(r)
	conversations, err := h.messagingService.ListConversations(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]*ConversationResponse, 0, len(conversations))
	for _, c := range conversations {
		resp = append(resp, FromConversation(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListMessages returns a conversation's messages and marks them read.
func (h *MessageController) ListMessages(w http.ResponseWriter, r *http.Request) {
	conversationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid conversation id", Code: "invalid_id"})
		return
	}

	readerID, err := h.authzService.CallerID(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	limit, offset := paginationParams(r)
	messages, err := h.messagingService.ListMessages(r.Context(), conversationID, readerID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]*MessageResponse, 0, len(messages))
	for _, m := range messages {
		resp = append(resp, FromMessage(m))
	}
	writeJSON(w, http.StatusOK, resp)
}
