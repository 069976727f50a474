package websocket

import "studychat/internal/entity"

// Frame types, server to client.
const (
	TypeMessageAck     = "message_ack"
	TypeReceiveMessage = "receive_message"
	TypeMessageReadOut = "message_read"
	TypeError          = "error"
)

type MessageAck struct {
	Type      string `json:"type"`
	Ref       string `json:"ref"`
	MessageId string `json:"messageId"`
}

type ReceiveMessage struct {
	Type    string         `json:"type"`
	Message entity.Message `json:"message"`
}

type MessageReadNotice struct {
	Type           string `json:"type"`
	MessageId      string `json:"messageId"`
	ConversationId string `json:"conversationId"`
	ReaderId       string `json:"readerId"`
}

type ErrorResponse struct {
	Type    string `json:"type"`
	Ref     string `json:"ref,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
