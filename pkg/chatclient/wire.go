package chatclient

import "studychat/internal/entity"

// Frame types shared with the server.
const (
	typeJoinRoom       = "join_room"
	typeLeaveRoom      = "leave_room"
	typeSendMessage    = "send_message"
	typeMessageAck     = "message_ack"
	typeReceiveMessage = "receive_message"
	typeMessageRead    = "message_read"
	typeError          = "error"
)

type envelope struct {
	Type string `json:"type"`
}

type joinRoomFrame struct {
	Type           string `json:"type"`
	ConversationId string `json:"conversationId"`
}

type sendMessageFrame struct {
	Type           string          `json:"type"`
	Ref            string          `json:"ref"`
	ConversationId string          `json:"conversationId"`
	Text           string          `json:"text"`
	FileType       entity.FileType `json:"fileType,omitempty"`
}

type messageAckFrame struct {
	Ref       string `json:"ref"`
	MessageId string `json:"messageId"`
}

type receiveMessageFrame struct {
	Message entity.Message `json:"message"`
}

type messageReadFrame struct {
	Type           string `json:"type,omitempty"`
	MessageId      string `json:"messageId"`
	ConversationId string `json:"conversationId"`
	ReaderId       string `json:"readerId,omitempty"`
}

type errorFrame struct {
	Ref     string `json:"ref"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Payload is the caller-facing content of an outgoing message.
type Payload struct {
	Text     string
	FileType entity.FileType
}

// Event is an inbound conversation event handed to the OnReceive handler.
// Events for one conversation arrive in FIFO order.
type Event struct {
	Message entity.Message
}
