package websocket

import "studychat/internal/entity"

// Frame types, client to server.
const (
	TypeJoinRoom    = "join_room"
	TypeLeaveRoom   = "leave_room"
	TypeSendMessage = "send_message"
	TypeMessageRead = "message_read"
)

// Envelope carries the discriminator; the payload is decoded a second time
// into the typed request once the type is known.
type Envelope struct {
	Type string `json:"type"`
}

type JoinRoomRequest struct {
	ConversationId string `json:"conversationId"`
}

type SendMessageRequest struct {
	Ref            string          `json:"ref"`
	ConversationId string          `json:"conversationId"`
	Text           string          `json:"text"`
	FileType       entity.FileType `json:"fileType,omitempty"`
}

type MessageReadRequest struct {
	MessageId      string `json:"messageId"`
	ConversationId string `json:"conversationId"`
}
