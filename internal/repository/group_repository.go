package repository

import (
	"context"

	"studychat/internal/entity"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type GroupRepository interface {
	Get(ctx context.Context, key string) (entity.Group, error)
	Create(ctx context.Context, group entity.Group) error
	AddMember(ctx context.Context, key, userId string) error
	RemoveMember(ctx context.Context, key, userId string) error
	Members(ctx context.Context, key string) ([]string, error)
}

type groupRepository struct {
	db mongo.Database
}

func NewGroupRepository(db mongo.Database) GroupRepository {
	return &groupRepository{
		db: db,
	}
}

func (r *groupRepository) Get(ctx context.Context, key string) (entity.Group, error) {
	collection := r.db.Collection("groups")
	filter := bson.M{"_id": key}

	var group entity.Group
	err := collection.FindOne(ctx, filter).Decode(&group)
	if err != nil {
		return entity.Group{}, err
	}

	return group, nil
}

func (r *groupRepository) Create(ctx context.Context, group entity.Group) error {
	collection := r.db.Collection("groups")
	_, err := collection.InsertOne(ctx, group)

	return err
}

func (r *groupRepository) AddMember(ctx context.Context, key, userId string) error {
	collection := r.db.Collection("groups")
	filter := bson.M{"_id": key}
	update := bson.M{
		"$addToSet": bson.M{"members": userId},
	}
	_, err := collection.UpdateOne(ctx, filter, update)

	return err
}

func (r *groupRepository) RemoveMember(ctx context.Context, key, userId string) error {
	collection := r.db.Collection("groups")
	filter := bson.M{"_id": key}
	update := bson.M{
		"$pull": bson.M{"members": userId},
	}
	_, err := collection.UpdateOne(ctx, filter, update)

	return err
}

func (r *groupRepository) Members(ctx context.Context, key string) ([]string, error) {
	group, err := r.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return group.Members, nil
}
