// Command playground runs one-off queries against the todo database.
//
// Usage:
//
//	playground find-users [-email a@b.com]
//	playground count-todos
//	playground update-user -id <hex> -set-email new@b.com
//	playground find-todo -id <hex> [-owner <hex>]
//	playground remove-todos [-id <hex>]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"todo_api/internal/config"
	sl "todo_api/internal/lib/logger/sl"
	"todo_api/internal/models"
	"todo_api/internal/storage"
	"todo_api/internal/storage/mongodb"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type command func(ctx context.Context, repo *mongodb.MongoRepo, db *mongo.Database, args []string) error

var commands = map[string]command{
	"find-users":   findUsers,
	"count-todos":  countTodos,
	"update-user":  updateUser,
	"find-todo":    findTodo,
	"remove-todos": removeTodos,
}

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd, ok := commands[os.Args[1]]
	if !ok {
		usage()
		os.Exit(2)
	}

	cfg := config.MustLoad()

	ctx := context.Background()

	repo, err := mongodb.New(ctx, cfg.Storage)
	if err != nil {
		log.Error("failed to connect to mongodb", sl.Err(err))
		os.Exit(1)
	}
	defer repo.Close()

	log.Info("connected", slog.String("database", cfg.Storage.Database))

	ctx, cancel := context.WithTimeout(ctx, cfg.Storage.Timeout)
	defer cancel()

	if err := cmd(ctx, repo, repo.Client().Database(cfg.Storage.Database), os.Args[2:]); err != nil {
		log.Error("command failed", slog.String("command", os.Args[1]), sl.Err(err))
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: playground <find-users|count-todos|update-user|find-todo|remove-todos> [flags]")
}

type userFinder interface {
	User(ctx context.Context, email string) (models.User, error)
}

type todoFinder interface {
	Todo(ctx context.Context, id, owner primitive.ObjectID) (models.Todo, error)
}

// findUsers lists every user, or goes through the repository's find-one when -email is set.
func findUsers(ctx context.Context, repo *mongodb.MongoRepo, db *mongo.Database, args []string) error {
	fs := flag.NewFlagSet("find-users", flag.ExitOnError)
	email := fs.String("email", "", "only the user with this email")
	_ = fs.Parse(args)

	if *email != "" {
		user, err := lookupUser(ctx, repo, *email)
		if err != nil {
			return err
		}

		return printDoc(bson.M{"_id": user.ID, "email": user.Email, "tokens": len(user.Tokens)})
	}

	cur, err := db.Collection(mongodb.UsersCollection).Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"password": 0, "tokens": 0}))
	if err != nil {
		return err
	}

	var users []bson.M
	if err := cur.All(ctx, &users); err != nil {
		return err
	}

	for _, u := range users {
		if err := printDoc(u); err != nil {
			return err
		}
	}

	return nil
}

func lookupUser(ctx context.Context, repo userFinder, email string) (models.User, error) {
	return repo.User(ctx, models.NormalizeEmail(email))
}

func countTodos(ctx context.Context, _ *mongodb.MongoRepo, db *mongo.Database, _ []string) error {
	total, err := db.Collection(mongodb.TodosCollection).CountDocuments(ctx, bson.M{})
	if err != nil {
		return err
	}

	completed, err := db.Collection(mongodb.TodosCollection).CountDocuments(ctx, bson.M{"completed": true})
	if err != nil {
		return err
	}

	fmt.Printf("todos: %d (completed: %d)\n", total, completed)

	return nil
}

func updateUser(ctx context.Context, _ *mongodb.MongoRepo, db *mongo.Database, args []string) error {
	fs := flag.NewFlagSet("update-user", flag.ExitOnError)
	id := fs.String("id", "", "user id (hex)")
	email := fs.String("set-email", "", "new email")
	_ = fs.Parse(args)

	oid, err := storage.ParseID(*id)
	if err != nil {
		return err
	}

	if *email == "" {
		return errors.New("-set-email is required")
	}

	var updated bson.M

	err = db.Collection(mongodb.UsersCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"email": models.NormalizeEmail(*email)}},
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetProjection(bson.M{"password": 0, "tokens": 0}),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return storage.ErrUserNotFound
	}
	if err != nil {
		return err
	}

	return printDoc(updated)
}

// findTodo resolves a todo by id. With -owner it goes through the repository's owner-scoped
// find-by-id, the same lookup the API uses; without it the raw collection is queried.
func findTodo(ctx context.Context, repo *mongodb.MongoRepo, db *mongo.Database, args []string) error {
	fs := flag.NewFlagSet("find-todo", flag.ExitOnError)
	id := fs.String("id", "", "todo id (hex)")
	owner := fs.String("owner", "", "owning user id (hex)")
	_ = fs.Parse(args)

	if *owner != "" {
		todo, err := lookupTodo(ctx, repo, *id, *owner)
		if err != nil {
			return err
		}

		return printDoc(todo)
	}

	oid, err := storage.ParseID(*id)
	if err != nil {
		return fmt.Errorf("%q: %w", *id, err)
	}

	var todo models.Todo

	err = db.Collection(mongodb.TodosCollection).FindOne(ctx, bson.M{"_id": oid}).Decode(&todo)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return storage.ErrTodoNotFound
	}
	if err != nil {
		return err
	}

	return printDoc(todo)
}

// lookupTodo reports a malformed id as storage.ErrInvalidID and a well-formed id that
// matches nothing as storage.ErrTodoNotFound.
func lookupTodo(ctx context.Context, repo todoFinder, id, owner string) (models.Todo, error) {
	oid, err := storage.ParseID(id)
	if err != nil {
		return models.Todo{}, fmt.Errorf("todo id %q: %w", id, err)
	}

	ownerID, err := storage.ParseID(owner)
	if err != nil {
		return models.Todo{}, fmt.Errorf("owner id %q: %w", owner, err)
	}

	return repo.Todo(ctx, oid, ownerID)
}

func removeTodos(ctx context.Context, repo *mongodb.MongoRepo, db *mongo.Database, args []string) error {
	fs := flag.NewFlagSet("remove-todos", flag.ExitOnError)
	id := fs.String("id", "", "remove only this todo (hex)")
	_ = fs.Parse(args)

	if *id == "" {
		n, err := repo.DeleteTodos(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("removed %d todos\n", n)

		return nil
	}

	oid, err := storage.ParseID(*id)
	if err != nil {
		return err
	}

	var removed models.Todo

	err = db.Collection(mongodb.TodosCollection).FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&removed)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return storage.ErrTodoNotFound
	}
	if err != nil {
		return err
	}

	return printDoc(removed)
}

func printDoc(v any) error {
	out, err := bson.MarshalExtJSONIndent(v, false, false, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(out))

	return nil
}
