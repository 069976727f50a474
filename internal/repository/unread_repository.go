package repository

import (
	"context"

	"studychat/internal/entity"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UnreadRepository interface {
	GetByUser(ctx context.Context, userId string) ([]entity.UnreadRecord, error)
	Get(ctx context.Context, conversationId, userId string) (entity.UnreadRecord, error)
	Upsert(ctx context.Context, record entity.UnreadRecord) error
}

type unreadRepository struct {
	db mongo.Database
}

func NewUnreadRepository(db mongo.Database) UnreadRepository {
	return &unreadRepository{
		db: db,
	}
}

func (r *unreadRepository) GetByUser(ctx context.Context, userId string) ([]entity.UnreadRecord, error) {
	collection := r.db.Collection("unread")
	filter := bson.M{"userId": userId}

	opts := options.Find()
	opts.SetSort(bson.D{{Key: "updatedAt", Value: -1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var records []entity.UnreadRecord
	err = cursor.All(ctx, &records)
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *unreadRepository) Get(ctx context.Context, conversationId, userId string) (entity.UnreadRecord, error) {
	collection := r.db.Collection("unread")
	filter := bson.M{"conversationId": conversationId, "userId": userId}

	var record entity.UnreadRecord
	err := collection.FindOne(ctx, filter).Decode(&record)
	if err != nil {
		return entity.UnreadRecord{}, err
	}

	return record, nil
}

func (r *unreadRepository) Upsert(ctx context.Context, record entity.UnreadRecord) error {
	collection := r.db.Collection("unread")
	filter := bson.M{"conversationId": record.ConversationId, "userId": record.UserId}
	update := bson.M{
		"$set": bson.M{
			"unreadCount":   record.UnreadCount,
			"latestMessage": record.LatestMessage,
			"updatedAt":     record.UpdatedAt,
		},
	}
	opts := options.Update().SetUpsert(true)
	_, err := collection.UpdateOne(ctx, filter, update, opts)

	return err
}
