package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"studychat/infrastructure/cache"
	"studychat/internal/entity"
	"studychat/internal/repository"

	"go.mongodb.org/mongo-driver/mongo"
)

// UnreadUsecase is the server-side unread aggregator. All mutations of one
// (conversation, viewer) record go through a per-key lock so a concurrent
// increment and reset cannot lose an update.
type UnreadUsecase interface {
	GetUnread(ctx context.Context, userId string) ([]entity.UnreadRecord, error)
	TotalUnread(ctx context.Context, userId string) (int, error)
	// NoteMessage increments the count of every participant except the
	// sender and replaces each record's latest-message preview.
	NoteMessage(ctx context.Context, message entity.Message, participants []string) error
	// NoteRead resets the reader's count to zero when the acknowledged
	// message is the conversation's current latest message.
	NoteRead(ctx context.Context, conversationId, userId, messageId string) error
	// Clear resets the count unconditionally, invoked when the user opens
	// the conversation view.
	Clear(ctx context.Context, conversationId, userId string) error
}

type unreadUsecase struct {
	unreadRepo repository.UnreadRepository
	hot        *cache.MemCache

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewUnreadUsecase(unreadRepo repository.UnreadRepository, hot *cache.MemCache) UnreadUsecase {
	return &unreadUsecase{
		unreadRepo: unreadRepo,
		hot:        hot,
		locks:      make(map[string]*sync.Mutex),
	}
}

// keyLock returns the single-writer lock for one (conversation, viewer)
// record.
func (u *unreadUsecase) keyLock(conversationId, userId string) *sync.Mutex {
	key := conversationId + "|" + userId
	u.mu.Lock()
	defer u.mu.Unlock()
	l, ok := u.locks[key]
	if !ok {
		l = &sync.Mutex{}
		u.locks[key] = l
	}
	return l
}

func cacheKey(conversationId, userId string) string {
	return "unread:" + conversationId + ":" + userId
}

func totalKey(userId string) string {
	return "unread-total:" + userId
}

// load fetches the current record from the hot cache or the store. A
// missing record yields a fresh zero record; any other store error is
// returned as-is so a transient failure can never be upserted over the
// persisted count.
func (u *unreadUsecase) load(ctx context.Context, conversationId, userId string) (entity.UnreadRecord, error) {
	if v, ok := u.hot.Get(cacheKey(conversationId, userId)); ok {
		return v.(entity.UnreadRecord), nil
	}
	record, err := u.unreadRepo.Get(ctx, conversationId, userId)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return entity.UnreadRecord{
				ConversationId: conversationId,
				UserId:         userId,
			}, nil
		}
		return entity.UnreadRecord{}, err
	}
	return record, nil
}

// store persists the record, then refreshes the hot cache. The cache is
// only written after a successful upsert so a failed write cannot leave a
// phantom count in the hot tier.
func (u *unreadUsecase) store(ctx context.Context, record entity.UnreadRecord) error {
	record.UpdatedAt = time.Now().UnixMilli()
	if err := u.unreadRepo.Upsert(ctx, record); err != nil {
		return err
	}
	u.hot.Set(cacheKey(record.ConversationId, record.UserId), record, time.Hour)
	return nil
}

// adjustTotal keeps the per-user badge counter in step with the records.
// The counter only exists after TotalUnread has seeded it; once it expires
// the next total query reseeds it from the store.
func (u *unreadUsecase) adjustTotal(userId string, delta int64) {
	u.hot.Increment(totalKey(userId), delta)
}

func (u *unreadUsecase) GetUnread(ctx context.Context, userId string) ([]entity.UnreadRecord, error) {
	return u.unreadRepo.GetByUser(ctx, userId)
}

func (u *unreadUsecase) TotalUnread(ctx context.Context, userId string) (int, error) {
	if v, ok := u.hot.Get(totalKey(userId)); ok {
		if n, ok := v.(int64); ok {
			return int(n), nil
		}
	}

	records, err := u.unreadRepo.GetByUser(ctx, userId)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, record := range records {
		total += record.UnreadCount
	}
	u.hot.Set(totalKey(userId), int64(total), time.Hour)
	return total, nil
}

func (u *unreadUsecase) NoteMessage(ctx context.Context, message entity.Message, participants []string) error {
	for _, userId := range participants {
		if userId == message.SenderId {
			continue
		}

		lock := u.keyLock(message.ConversationId, userId)
		lock.Lock()
		record, err := u.load(ctx, message.ConversationId, userId)
		if err == nil {
			record.UnreadCount++
			record.LatestMessage = message
			err = u.store(ctx, record)
		}
		lock.Unlock()
		if err != nil {
			return err
		}
		u.adjustTotal(userId, 1)
	}
	return nil
}

func (u *unreadUsecase) NoteRead(ctx context.Context, conversationId, userId, messageId string) error {
	lock := u.keyLock(conversationId, userId)
	lock.Lock()
	defer lock.Unlock()

	record, err := u.load(ctx, conversationId, userId)
	if err != nil {
		return err
	}
	if record.LatestMessage.Id != messageId {
		// An older message was acknowledged; the newest is still unread.
		return nil
	}
	if record.UnreadCount == 0 {
		return nil
	}
	cleared := record.UnreadCount
	record.UnreadCount = 0
	if err := u.store(ctx, record); err != nil {
		return err
	}
	u.adjustTotal(userId, -int64(cleared))
	return nil
}

func (u *unreadUsecase) Clear(ctx context.Context, conversationId, userId string) error {
	lock := u.keyLock(conversationId, userId)
	lock.Lock()
	defer lock.Unlock()

	record, err := u.load(ctx, conversationId, userId)
	if err != nil {
		return err
	}
	if record.LatestMessage.Id == "" && record.UnreadCount == 0 {
		// Nothing to clear and nothing to preview; keep the store clean.
		return nil
	}
	cleared := record.UnreadCount
	record.UnreadCount = 0
	if err := u.store(ctx, record); err != nil {
		return err
	}
	if cleared > 0 {
		u.adjustTotal(userId, -int64(cleared))
	}
	return nil
}
