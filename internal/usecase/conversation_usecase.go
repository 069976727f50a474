package usecase

import (
	"context"
	"errors"
	"time"

	"studychat/internal/entity"
	"studychat/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrGroupNotFound  = errors.New("group not found")
	ErrNotParticipant = errors.New("you are not a participant of this conversation")
	ErrEmptyGroup     = errors.New("at least one member is required")
)

type ConversationUsecase interface {
	// Participants resolves the full member set of a conversation key.
	Participants(ctx context.Context, key string) ([]string, error)
	IsParticipant(ctx context.Context, key, userId string) (bool, error)

	CreateGroup(ctx context.Context, name, creatorId string, memberIds []string) (string, error)
	AddMember(ctx context.Context, key, userId string) error
	RemoveMember(ctx context.Context, key, userId string) error
}

type conversationUsecase struct {
	groupRepo repository.GroupRepository
}

func NewConversationUsecase(groupRepo repository.GroupRepository) ConversationUsecase {
	return &conversationUsecase{
		groupRepo: groupRepo,
	}
}

func (c *conversationUsecase) Participants(ctx context.Context, key string) ([]string, error) {
	if entity.IsGroupKey(key) {
		members, err := c.groupRepo.Members(ctx, key)
		if err != nil {
			return nil, ErrGroupNotFound
		}
		return members, nil
	}

	a, b, ok := entity.DirectParticipants(key)
	if !ok {
		return nil, ErrGroupNotFound
	}
	return []string{a, b}, nil
}

func (c *conversationUsecase) IsParticipant(ctx context.Context, key, userId string) (bool, error) {
	if !entity.IsGroupKey(key) {
		return entity.BelongsTo(key, userId, nil), nil
	}
	members, err := c.groupRepo.Members(ctx, key)
	if err != nil {
		return false, ErrGroupNotFound
	}
	return entity.BelongsTo(key, userId, members), nil
}

func (c *conversationUsecase) CreateGroup(ctx context.Context, name, creatorId string, memberIds []string) (string, error) {
	if len(memberIds) == 0 {
		return "", ErrEmptyGroup
	}

	members := []string{creatorId}
	for _, userId := range memberIds {
		if userId != creatorId {
			members = append(members, userId)
		}
	}

	group := entity.Group{
		Key:       entity.GroupKeyPrefix + uuid.New().String(),
		Name:      name,
		CreatedBy: creatorId,
		Members:   members,
		CreatedAt: time.Now().UnixMilli(),
	}

	if err := c.groupRepo.Create(ctx, group); err != nil {
		return "", err
	}

	return group.Key, nil
}

func (c *conversationUsecase) AddMember(ctx context.Context, key, userId string) error {
	if !entity.IsGroupKey(key) {
		return ErrGroupNotFound
	}
	return c.groupRepo.AddMember(ctx, key, userId)
}

func (c *conversationUsecase) RemoveMember(ctx context.Context, key, userId string) error {
	if !entity.IsGroupKey(key) {
		return ErrGroupNotFound
	}
	return c.groupRepo.RemoveMember(ctx, key, userId)
}
