package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"studychat/infrastructure/ws"
	"studychat/internal/entity"
	"studychat/internal/events"
	"studychat/internal/metrics"
	"studychat/internal/usecase"
	"studychat/pkg/jwt"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebsocketHandler struct {
	hub            ws.IHub
	messageUc      usecase.MessageUsecase
	conversationUc usecase.ConversationUsecase
	unreadUc       usecase.UnreadUsecase
	publisher      *events.Publisher
	tokens         *jwt.Manager
	log            *zap.SugaredLogger
}

func NewWebsocketHandler(
	hub ws.IHub,
	messageUc usecase.MessageUsecase,
	conversationUc usecase.ConversationUsecase,
	unreadUc usecase.UnreadUsecase,
	publisher *events.Publisher,
	tokens *jwt.Manager,
	log *zap.SugaredLogger,
) *WebsocketHandler {
	return &WebsocketHandler{
		hub:            hub,
		messageUc:      messageUc,
		conversationUc: conversationUc,
		unreadUc:       unreadUc,
		publisher:      publisher,
		tokens:         tokens,
		log:            log,
	}
}

func (h *WebsocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	claims, err := h.tokens.Verify(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorw("websocket upgrade failed", "err", err)
		return
	}

	client := ws.NewClient(claims.UserId, conn)
	h.hub.RegisterClient(client)
	metrics.ActiveConnections.Inc()

	go client.WritePump()
	client.ReadPump(func(c *ws.UserClient) {
		h.hub.UnregisterClient(c)
		metrics.ActiveConnections.Dec()
	}, func(data []byte) {
		h.handleFrame(context.Background(), client, data)
	})
}

// handleFrame decodes one inbound frame and dispatches on its type.
// Malformed payloads are counted, logged and dropped; they never take the
// dispatch loop down.
func (h *WebsocketHandler) handleFrame(ctx context.Context, client *ws.UserClient, data []byte) {
	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		metrics.MalformedFrames.Inc()
		h.log.Warnw("malformed frame", "userId", client.UserId, "err", err)
		return
	}

	switch envelope.Type {
	case TypeJoinRoom:
		var req JoinRoomRequest
		if err := json.Unmarshal(data, &req); err != nil || req.ConversationId == "" {
			metrics.MalformedFrames.Inc()
			return
		}
		h.handleJoinRoom(ctx, client, req)

	case TypeLeaveRoom:
		var req JoinRoomRequest
		if err := json.Unmarshal(data, &req); err != nil || req.ConversationId == "" {
			metrics.MalformedFrames.Inc()
			return
		}
		h.hub.LeaveRoom(req.ConversationId, client.UserId)

	case TypeSendMessage:
		var req SendMessageRequest
		if err := json.Unmarshal(data, &req); err != nil || req.ConversationId == "" {
			metrics.MalformedFrames.Inc()
			return
		}
		h.handleSendMessage(ctx, client, req)

	case TypeMessageRead:
		var req MessageReadRequest
		if err := json.Unmarshal(data, &req); err != nil || req.MessageId == "" {
			metrics.MalformedFrames.Inc()
			return
		}
		h.handleMessageRead(ctx, client, req)

	default:
		metrics.MalformedFrames.Inc()
		h.log.Warnw("unknown frame type", "type", envelope.Type, "userId", client.UserId)
	}
}

func (h *WebsocketHandler) handleJoinRoom(ctx context.Context, client *ws.UserClient, req JoinRoomRequest) {
	ok, err := h.conversationUc.IsParticipant(ctx, req.ConversationId, client.UserId)
	if err != nil || !ok {
		h.sendError(client, "", "not_participant", "you are not a participant of this conversation")
		return
	}
	h.hub.JoinRoom(req.ConversationId, client.UserId)
}

func (h *WebsocketHandler) handleSendMessage(ctx context.Context, client *ws.UserClient, req SendMessageRequest) {
	ok, err := h.conversationUc.IsParticipant(ctx, req.ConversationId, client.UserId)
	if err != nil || !ok {
		h.sendError(client, req.Ref, "not_participant", "send rejected: not a participant")
		return
	}

	message := entity.Message{
		ConversationId: req.ConversationId,
		SenderId:       client.UserId,
		Text:           req.Text,
		FileType:       req.FileType,
		CreatedAt:      time.Now().UnixMilli(),
	}
	messageId, err := h.messageUc.Save(ctx, message)
	if err != nil {
		h.log.Errorw("save message failed", "conversationId", req.ConversationId, "err", err)
		h.sendError(client, req.Ref, "send_failure", "message could not be stored")
		return
	}
	message.Id = messageId
	message.Status = entity.StatusSent
	metrics.MessagesSent.Inc()

	// Delivery acknowledgement back to the sender, then the authoritative
	// copy advances to delivered.
	h.sendFrame(client.UserId, MessageAck{
		Type:      TypeMessageAck,
		Ref:       req.Ref,
		MessageId: messageId,
	})
	if err := h.messageUc.MarkStatus(ctx, messageId, entity.StatusDelivered); err != nil {
		h.log.Errorw("mark delivered failed", "messageId", messageId, "err", err)
	}
	metrics.MessagesDelivered.Inc()

	out, err := json.Marshal(ReceiveMessage{
		Type:    TypeReceiveMessage,
		Message: message,
	})
	if err != nil {
		h.log.Errorw("marshal message failed", "err", err)
		return
	}
	h.hub.BroadcastRoom(req.ConversationId, client.UserId, out)

	participants, err := h.conversationUc.Participants(ctx, req.ConversationId)
	if err != nil {
		h.log.Errorw("resolve participants failed", "conversationId", req.ConversationId, "err", err)
		return
	}
	if err := h.unreadUc.NoteMessage(ctx, message, participants); err != nil {
		h.log.Errorw("unread update failed", "conversationId", req.ConversationId, "err", err)
	}

	h.publisher.MessageSent(ctx, message)
}

func (h *WebsocketHandler) handleMessageRead(ctx context.Context, client *ws.UserClient, req MessageReadRequest) {
	message, err := h.messageUc.Get(ctx, req.MessageId)
	if err != nil {
		// The message may have been pruned; a stale ack is not an error.
		return
	}

	ok, err := h.conversationUc.IsParticipant(ctx, message.ConversationId, client.UserId)
	if err != nil || !ok {
		h.sendError(client, "", "not_participant", "read rejected: not a participant")
		return
	}

	if err := h.messageUc.MarkStatus(ctx, req.MessageId, entity.StatusRead); err != nil {
		h.log.Errorw("mark read failed", "messageId", req.MessageId, "err", err)
		return
	}
	metrics.MessagesRead.Inc()

	if err := h.unreadUc.NoteRead(ctx, message.ConversationId, client.UserId, req.MessageId); err != nil {
		h.log.Errorw("unread reset failed", "conversationId", message.ConversationId, "err", err)
	}

	// Route the status update back to the original sender.
	h.sendFrame(message.SenderId, MessageReadNotice{
		Type:           TypeMessageReadOut,
		MessageId:      req.MessageId,
		ConversationId: message.ConversationId,
		ReaderId:       client.UserId,
	})

	h.publisher.MessageRead(ctx, message.ConversationId, req.MessageId, client.UserId)
}

func (h *WebsocketHandler) sendFrame(userId string, frame any) {
	b, err := json.Marshal(frame)
	if err != nil {
		h.log.Errorw("marshal frame failed", "err", err)
		return
	}
	h.hub.SendToClient(userId, b)
}

func (h *WebsocketHandler) sendError(client *ws.UserClient, ref, code, message string) {
	h.sendFrame(client.UserId, ErrorResponse{
		Type:    TypeError,
		Ref:     ref,
		Code:    code,
		Message: message,
	})
}
