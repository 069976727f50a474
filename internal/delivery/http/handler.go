package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"studychat/internal/usecase"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type HttpHandler struct {
	conversationUc usecase.ConversationUsecase
	messageUc      usecase.MessageUsecase
	unreadUc       usecase.UnreadUsecase
	log            *zap.SugaredLogger
}

func NewHttpHandler(conversationUc usecase.ConversationUsecase, messageUc usecase.MessageUsecase, unreadUc usecase.UnreadUsecase, log *zap.SugaredLogger) *HttpHandler {
	return &HttpHandler{
		conversationUc: conversationUc,
		messageUc:      messageUc,
		unreadUc:       unreadUc,
		log:            log,
	}
}

type Response struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, response Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// Method Get /api/user/{userId}/unread
// Bootstrap call: hydrates a client's unread aggregator at session start.
func (h *HttpHandler) GetUnread(w http.ResponseWriter, r *http.Request) {
	userId := chi.URLParam(r, "userId")

	claims, ok := UserFromContext(r.Context())
	if !ok || claims.UserId != userId {
		writeJSON(w, http.StatusForbidden, Response{Message: "forbidden"})
		return
	}

	records, err := h.unreadUc.GetUnread(r.Context(), userId)
	if err != nil {
		h.log.Errorw("get unread failed", "userId", userId, "err", err)
		writeJSON(w, http.StatusInternalServerError, Response{Message: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, Response{Message: "success", Data: records})
}

// Method Get /api/user/{userId}/unread/total
// Badge count across all conversations; served from the hot counter when
// one is live.
func (h *HttpHandler) GetUnreadTotal(w http.ResponseWriter, r *http.Request) {
	userId := chi.URLParam(r, "userId")

	claims, ok := UserFromContext(r.Context())
	if !ok || claims.UserId != userId {
		writeJSON(w, http.StatusForbidden, Response{Message: "forbidden"})
		return
	}

	total, err := h.unreadUc.TotalUnread(r.Context(), userId)
	if err != nil {
		h.log.Errorw("get unread total failed", "userId", userId, "err", err)
		writeJSON(w, http.StatusInternalServerError, Response{Message: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, Response{Message: "success", Data: map[string]int{"total": total}})
}

// Method Post /api/conversation/{conversationId}/read
// Invoked when a user opens a conversation view.
func (h *HttpHandler) ClearUnread(w http.ResponseWriter, r *http.Request) {
	conversationId := chi.URLParam(r, "conversationId")

	claims, ok := UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, Response{Message: "unauthorized"})
		return
	}

	if err := h.unreadUc.Clear(r.Context(), conversationId, claims.UserId); err != nil {
		h.log.Errorw("clear unread failed", "conversationId", conversationId, "err", err)
		writeJSON(w, http.StatusInternalServerError, Response{Message: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, Response{Message: "success"})
}

// Method Get /api/conversation/{conversationId}/messages
func (h *HttpHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	conversationId := chi.URLParam(r, "conversationId")

	claims, ok := UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, Response{Message: "unauthorized"})
		return
	}

	isParticipant, err := h.conversationUc.IsParticipant(r.Context(), conversationId, claims.UserId)
	if err != nil || !isParticipant {
		writeJSON(w, http.StatusForbidden, Response{Message: "not a participant"})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 100
	}

	messages, err := h.messageUc.History(r.Context(), conversationId, limit, offset)
	if err != nil {
		h.log.Errorw("get messages failed", "conversationId", conversationId, "err", err)
		writeJSON(w, http.StatusInternalServerError, Response{Message: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, Response{Message: "success", Data: messages})
}

// Method Post /api/group
func (h *HttpHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	claims, ok := UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, Response{Message: "unauthorized"})
		return
	}

	var req struct {
		Name    string   `json:"name"`
		UserIds []string `json:"userIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Message: "invalid request body"})
		return
	}

	key, err := h.conversationUc.CreateGroup(r.Context(), req.Name, claims.UserId, req.UserIds)
	if err != nil {
		h.log.Errorw("create group failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, Response{Message: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, Response{Message: "success", Data: map[string]string{"conversationId": key}})
}

// Method Post /api/group/{conversationId}/members
func (h *HttpHandler) AddGroupMember(w http.ResponseWriter, r *http.Request) {
	conversationId := chi.URLParam(r, "conversationId")

	var req struct {
		UserId string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserId == "" {
		writeJSON(w, http.StatusBadRequest, Response{Message: "invalid request body"})
		return
	}

	if err := h.conversationUc.AddMember(r.Context(), conversationId, req.UserId); err != nil {
		h.log.Errorw("add member failed", "conversationId", conversationId, "err", err)
		writeJSON(w, http.StatusInternalServerError, Response{Message: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, Response{Message: "success"})
}

// Method Delete /api/group/{conversationId}/members/{userId}
func (h *HttpHandler) RemoveGroupMember(w http.ResponseWriter, r *http.Request) {
	conversationId := chi.URLParam(r, "conversationId")
	userId := chi.URLParam(r, "userId")

	if err := h.conversationUc.RemoveMember(r.Context(), conversationId, userId); err != nil {
		h.log.Errorw("remove member failed", "conversationId", conversationId, "err", err)
		writeJSON(w, http.StatusInternalServerError, Response{Message: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, Response{Message: "success"})
}
