package entity

// Message status lifecycle. Transitions are strictly forward-only.
type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

// Rank orders statuses so forward-only transitions can be enforced with a
// single comparison. Unknown statuses rank below sent.
func (s MessageStatus) Rank() int {
	switch s {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	default:
		return 0
	}
}

// FileType of an attachment carried alongside (or instead of) message text.
type FileType string

const (
	FileNone     FileType = ""
	FileImage    FileType = "image"
	FileAudio    FileType = "audio"
	FileDocument FileType = "document"
)

type Message struct {
	Id             string        `bson:"_id" json:"id"`
	ConversationId string        `bson:"conversationId" json:"conversationId"`
	SenderId       string        `bson:"senderId" json:"senderId"`
	Text           string        `bson:"text" json:"text"`
	FileType       FileType      `bson:"fileType,omitempty" json:"fileType,omitempty"`
	CreatedAt      int64         `bson:"createdAt" json:"createdAt"`
	Status         MessageStatus `bson:"status" json:"status"`
}

// MessageIndexFilter narrows a message listing; the history endpoint pages
// through one conversation with it.
type MessageIndexFilter struct {
	ConversationId string
	Limit          int
	Offset         int
}
