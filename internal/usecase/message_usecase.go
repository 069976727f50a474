package usecase

import (
	"context"
	"errors"

	"studychat/internal/entity"
	"studychat/internal/repository"

	"go.mongodb.org/mongo-driver/mongo"
)

type MessageUsecase interface {
	// Save persists a new message and returns the server-assigned id.
	Save(ctx context.Context, message entity.Message) (string, error)
	Get(ctx context.Context, messageId string) (entity.Message, error)
	// MarkStatus advances a message's status. Backward transitions are
	// dropped; acknowledgements for unknown ids are not an error, the
	// message may have been pruned.
	MarkStatus(ctx context.Context, messageId string, status entity.MessageStatus) error
	History(ctx context.Context, conversationId string, limit, offset int) ([]entity.Message, error)
}

type messageUsecase struct {
	messageRepo repository.MessageRepository
}

func NewMessageUsecase(messageRepo repository.MessageRepository) MessageUsecase {
	return &messageUsecase{
		messageRepo: messageRepo,
	}
}

func (m *messageUsecase) Save(ctx context.Context, message entity.Message) (string, error) {
	message.Status = entity.StatusSent
	return m.messageRepo.Create(ctx, message)
}

func (m *messageUsecase) Get(ctx context.Context, messageId string) (entity.Message, error) {
	return m.messageRepo.Get(ctx, messageId)
}

func (m *messageUsecase) MarkStatus(ctx context.Context, messageId string, status entity.MessageStatus) error {
	current, err := m.messageRepo.Get(ctx, messageId)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil
		}
		return err
	}

	if status.Rank() <= current.Status.Rank() {
		return nil
	}

	return m.messageRepo.UpdateStatus(ctx, messageId, status)
}

func (m *messageUsecase) History(ctx context.Context, conversationId string, limit, offset int) ([]entity.Message, error) {
	return m.messageRepo.Index(ctx, entity.MessageIndexFilter{
		ConversationId: conversationId,
		Limit:          limit,
		Offset:         offset,
	})
}
