package entity

// UnreadRecord is the per-conversation, per-viewer unread state. A record
// with a zero count is retained so the latest-message preview stays
// available in the notification list.
type UnreadRecord struct {
	ConversationId string  `bson:"conversationId" json:"conversationId"`
	UserId         string  `bson:"userId" json:"userId"`
	UnreadCount    int     `bson:"unreadCount" json:"unreadCount"`
	LatestMessage  Message `bson:"latestMessage" json:"latestMessage"`
	UpdatedAt      int64   `bson:"updatedAt" json:"updatedAt"`
}
