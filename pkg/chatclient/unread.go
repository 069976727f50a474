package chatclient

import (
	"sort"
	"sync"

	"studychat/internal/entity"
)

// UnreadView mirrors the viewer's per-conversation unread records for badge
// display. It is hydrated from the REST bootstrap and then kept current
// from inbound events and local clears. Records with a zero count are
// retained so the latest-message preview stays available.
type UnreadView struct {
	userId string

	mu      sync.RWMutex
	records map[string]*entity.UnreadRecord
}

func NewUnreadView(userId string) *UnreadView {
	return &UnreadView{
		userId:  userId,
		records: make(map[string]*entity.UnreadRecord),
	}
}

// Hydrate replaces the view with the bootstrap records, keeping only the
// ones that belong to this viewer.
func (v *UnreadView) Hydrate(records []entity.UnreadRecord) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.records = make(map[string]*entity.UnreadRecord, len(records))
	for i := range records {
		r := records[i]
		if r.UserId != "" && r.UserId != v.userId {
			continue
		}
		r.UserId = v.userId
		v.records[r.ConversationId] = &r
	}
}

// NoteMessage applies one inbound message: messages from others increment
// the conversation's count, and every message replaces the preview.
func (v *UnreadView) NoteMessage(message entity.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	r, ok := v.records[message.ConversationId]
	if !ok {
		r = &entity.UnreadRecord{
			ConversationId: message.ConversationId,
			UserId:         v.userId,
		}
		v.records[message.ConversationId] = r
	}
	if message.SenderId != v.userId {
		r.UnreadCount++
	}
	r.LatestMessage = message
	r.UpdatedAt = message.CreatedAt
}

// Clear resets one conversation's count to zero, keeping the record.
func (v *UnreadView) Clear(conversationId string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if r, ok := v.records[conversationId]; ok {
		r.UnreadCount = 0
	}
}

// Records returns the current records, newest activity first.
func (v *UnreadView) Records() []entity.UnreadRecord {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]entity.UnreadRecord, 0, len(v.records))
	for _, r := range v.records {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt > out[j].UpdatedAt })
	return out
}

// Total is the badge value: the sum of unread counts across all records.
func (v *UnreadView) Total() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	total := 0
	for _, r := range v.records {
		total += r.UnreadCount
	}
	return total
}
