package main

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var errDuplicateEmail = errors.New("a user with this email already exists")

type taskFilters struct {
	Priority  string
	DueBefore *time.Time
	Search    string
}

// taskUpdate carries the replaceable task fields; nil means "leave as is".
// Owner and id are never part of an update.
type taskUpdate struct {
	Title       *string
	Description *string
	Deadline    *time.Time
	Priority    *string
}

// storage is the credential store: user and task records behind
// ownership-scoped lookups. Every task read, update and delete filters by
// owner; there is no lookup by task id alone.
type storage interface {
	getUserByEmail(ctx context.Context, email string) (*user, error)
	insertUser(ctx context.Context, u *user) error
	insertTask(ctx context.Context, t *task) error
	getTasks(ctx context.Context, userID primitive.ObjectID, filters taskFilters) ([]*task, error)
	updateTask(ctx context.Context, userID, taskID primitive.ObjectID, upd taskUpdate) (*task, error)
	deleteTask(ctx context.Context, userID, taskID primitive.ObjectID) (*task, error)
}

const storageOpTimeout = 5 * time.Second

func openDB(cfg config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURL))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return client, nil
}

type mongoStorage struct {
	users *mongo.Collection
	tasks *mongo.Collection
}

func newMongoStorage(client *mongo.Client, dbName string) (*mongoStorage, error) {
	db := client.Database(dbName)
	s := &mongoStorage{
		users: db.Collection("users"),
		tasks: db.Collection("tasks"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), storageOpTimeout)
	defer cancel()
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *mongoStorage) getUserByEmail(ctx context.Context, email string) (*user, error) {
	ctx, cancel := context.WithTimeout(ctx, storageOpTimeout)
	defer cancel()

	var u user
	err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, nil
		default:
			return nil, err
		}
	}
	return &u, nil
}

func (s *mongoStorage) insertUser(ctx context.Context, u *user) error {
	ctx, cancel := context.WithTimeout(ctx, storageOpTimeout)
	defer cancel()

	u.CreatedAt = time.Now().UTC()
	res, err := s.users.InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errDuplicateEmail
		}
		return err
	}
	u.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *mongoStorage) insertTask(ctx context.Context, t *task) error {
	ctx, cancel := context.WithTimeout(ctx, storageOpTimeout)
	defer cancel()

	t.CreatedAt = time.Now().UTC()
	res, err := s.tasks.InsertOne(ctx, t)
	if err != nil {
		return err
	}
	t.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *mongoStorage) getTasks(ctx context.Context, userID primitive.ObjectID, filters taskFilters) ([]*task, error) {
	query := bson.M{"userId": userID}
	if filters.Priority != "" {
		query["priority"] = filters.Priority
	}
	if filters.DueBefore != nil {
		query["deadline"] = bson.M{"$lte": *filters.DueBefore}
	}
	if filters.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(filters.Search), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
		}
	}

	ctx, cancel := context.WithTimeout(ctx, storageOpTimeout)
	defer cancel()

	cur, err := s.tasks.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "deadline", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var tasks []*task
	if err := cur.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *mongoStorage) updateTask(ctx context.Context, userID, taskID primitive.ObjectID, upd taskUpdate) (*task, error) {
	ctx, cancel := context.WithTimeout(ctx, storageOpTimeout)
	defer cancel()

	filter := bson.M{"_id": taskID, "userId": userID}

	set := bson.M{}
	if upd.Title != nil {
		set["title"] = *upd.Title
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Deadline != nil {
		set["deadline"] = *upd.Deadline
	}
	if upd.Priority != nil {
		set["priority"] = *upd.Priority
	}

	var t task
	if len(set) == 0 {
		err := s.tasks.FindOne(ctx, filter).Decode(&t)
		if err != nil {
			switch {
			case errors.Is(err, mongo.ErrNoDocuments):
				return nil, nil
			default:
				return nil, err
			}
		}
		return &t, nil
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.tasks.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&t)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, nil
		default:
			return nil, err
		}
	}
	return &t, nil
}

func (s *mongoStorage) deleteTask(ctx context.Context, userID, taskID primitive.ObjectID) (*task, error) {
	ctx, cancel := context.WithTimeout(ctx, storageOpTimeout)
	defer cancel()

	var t task
	err := s.tasks.FindOneAndDelete(ctx, bson.M{"_id": taskID, "userId": userID}).Decode(&t)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, nil
		default:
			return nil, err
		}
	}
	return &t, nil
}
