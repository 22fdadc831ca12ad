package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"todo_api/internal/config"
	"todo_api/internal/models"
	"todo_api/internal/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	UsersCollection = "users"
	TodosCollection = "todos"
)

type MongoRepo struct {
	client  *mongo.Client
	users   *mongo.Collection
	todos   *mongo.Collection
	timeout time.Duration
}

func New(ctx context.Context, cfg config.Storage) (*MongoRepo, error) {
	const op = "storage.mongodb.New"

	clientOpts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(10).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(30 * time.Minute).
		SetTimeout(cfg.Timeout)

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect: %w", op, err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	db := client.Database(cfg.Database)

	repo := &MongoRepo{
		client:  client,
		users:   db.Collection(UsersCollection),
		todos:   db.Collection(TodosCollection),
		timeout: cfg.Timeout,
	}

	if err := repo.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return repo, nil
}

// Client exposes the underlying driver client for exploratory tooling.
func (r *MongoRepo) Client() *mongo.Client {
	return r.client
}

func (r *MongoRepo) ensureIndexes(ctx context.Context) error {
	const op = "storage.mongodb.ensureIndexes"

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return wrap(op, err)
	}

	_, err = r.todos.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "_creator", Value: 1}},
	})
	if err != nil {
		return wrap(op, err)
	}

	return nil
}

func (r *MongoRepo) SaveUser(ctx context.Context, u models.User) (models.User, error) {
	const op = "storage.mongodb.SaveUser"

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	// $push fails on a null field, so an empty array is stored instead.
	if u.Tokens == nil {
		u.Tokens = []models.Token{}
	}

	_, err := r.users.InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.User{}, storage.ErrUserExists
		}

		return models.User{}, wrap(op, err)
	}

	return u, nil
}

func (r *MongoRepo) User(ctx context.Context, email string) (models.User, error) {
	const op = "storage.mongodb.User"

	return r.findUser(ctx, op, bson.M{"email": email})
}

func (r *MongoRepo) UserByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	const op = "storage.mongodb.UserByID"

	return r.findUser(ctx, op, bson.M{"_id": id})
}

func (r *MongoRepo) UserByToken(ctx context.Context, id primitive.ObjectID, access, token string) (models.User, error) {
	const op = "storage.mongodb.UserByToken"

	return r.findUser(ctx, op, bson.M{
		"_id": id,
		"tokens": bson.M{
			"$elemMatch": bson.M{"token": token, "access": access},
		},
	})
}

func (r *MongoRepo) findUser(ctx context.Context, op string, filter bson.M) (models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var u models.User

	err := r.users.FindOne(ctx, filter).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, wrap(op, err)
	}

	return u, nil
}

func (r *MongoRepo) AddToken(ctx context.Context, id primitive.ObjectID, token models.Token) error {
	const op = "storage.mongodb.AddToken"

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.users.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$push": bson.M{"tokens": token}},
	)
	if err != nil {
		return wrap(op, err)
	}

	if res.MatchedCount == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

func (r *MongoRepo) RemoveToken(ctx context.Context, id primitive.ObjectID, token string) error {
	const op = "storage.mongodb.RemoveToken"

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.users.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$pull": bson.M{"tokens": bson.M{"token": token}}},
	)
	if err != nil {
		return wrap(op, err)
	}

	if res.MatchedCount == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

func (r *MongoRepo) DeleteUsers(ctx context.Context) (int64, error) {
	const op = "storage.mongodb.DeleteUsers"

	return r.deleteMany(ctx, op, r.users)
}

func (r *MongoRepo) SaveTodo(ctx context.Context, t models.Todo) (models.Todo, error) {
	const op = "storage.mongodb.SaveTodo"

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}

	if _, err := r.todos.InsertOne(ctx, t); err != nil {
		return models.Todo{}, wrap(op, err)
	}

	return t, nil
}

func (r *MongoRepo) Todos(ctx context.Context, owner primitive.ObjectID) ([]models.Todo, error) {
	const op = "storage.mongodb.Todos"

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cur, err := r.todos.Find(ctx, bson.M{"_creator": owner})
	if err != nil {
		return nil, wrap(op, err)
	}

	todos := []models.Todo{}
	if err := cur.All(ctx, &todos); err != nil {
		return nil, wrap(op, err)
	}

	if todos == nil {
		todos = []models.Todo{}
	}

	return todos, nil
}

func (r *MongoRepo) Todo(ctx context.Context, id, owner primitive.ObjectID) (models.Todo, error) {
	const op = "storage.mongodb.Todo"

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var t models.Todo

	err := r.todos.FindOne(ctx, ownedBy(id, owner)).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Todo{}, storage.ErrTodoNotFound
		}

		return models.Todo{}, wrap(op, err)
	}

	return t, nil
}

func (r *MongoRepo) UpdateTodo(ctx context.Context, id, owner primitive.ObjectID, upd models.TodoUpdate) (models.Todo, error) {
	const op = "storage.mongodb.UpdateTodo"

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	set := bson.M{
		"completed":   upd.Completed,
		"completedAt": upd.CompletedAt,
	}
	if upd.Text != nil {
		set["text"] = *upd.Text
	}

	var t models.Todo

	err := r.todos.FindOneAndUpdate(ctx,
		ownedBy(id, owner),
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Todo{}, storage.ErrTodoNotFound
		}

		return models.Todo{}, wrap(op, err)
	}

	return t, nil
}

func (r *MongoRepo) DeleteTodo(ctx context.Context, id, owner primitive.ObjectID) (models.Todo, error) {
	const op = "storage.mongodb.DeleteTodo"

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var t models.Todo

	err := r.todos.FindOneAndDelete(ctx, ownedBy(id, owner)).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Todo{}, storage.ErrTodoNotFound
		}

		return models.Todo{}, wrap(op, err)
	}

	return t, nil
}

func (r *MongoRepo) DeleteTodos(ctx context.Context) (int64, error) {
	const op = "storage.mongodb.DeleteTodos"

	return r.deleteMany(ctx, op, r.todos)
}

func (r *MongoRepo) deleteMany(ctx context.Context, op string, coll *mongo.Collection) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := coll.DeleteMany(ctx, bson.D{})
	if err != nil {
		return 0, wrap(op, err)
	}

	return res.DeletedCount, nil
}

func (r *MongoRepo) Ping(ctx context.Context) error {
	const op = "storage.mongodb.Ping"

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.client.Ping(ctx, readpref.Primary()); err != nil {
		return wrap(op, err)
	}

	return nil
}

func (r *MongoRepo) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	_ = r.client.Disconnect(ctx)
}

func ownedBy(id, owner primitive.ObjectID) bson.M {
	return bson.M{"_id": id, "_creator": owner}
}

// wrap marks deadline and network failures as storage.ErrUnavailable.
func wrap(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return fmt.Errorf("%s: %w: %w", op, storage.ErrUnavailable, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}
