// Package todos implements todo CRUD scoped to the calling user. Every lookup filters by the
// todo id and the owner id together, so another user's todo is indistinguishable from a
// missing one.
package todos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sl "todo_api/internal/lib/logger/sl"
	"todo_api/internal/models"
	"todo_api/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotFound covers malformed ids, missing todos and todos owned by someone else.
var ErrNotFound = errors.New("todo not found")

type Storage interface {
	SaveTodo(ctx context.Context, t models.Todo) (models.Todo, error)
	Todos(ctx context.Context, owner primitive.ObjectID) ([]models.Todo, error)
	Todo(ctx context.Context, id, owner primitive.ObjectID) (models.Todo, error)
	UpdateTodo(ctx context.Context, id, owner primitive.ObjectID, upd models.TodoUpdate) (models.Todo, error)
	DeleteTodo(ctx context.Context, id, owner primitive.ObjectID) (models.Todo, error)
}

type Service struct {
	log     *slog.Logger
	storage Storage
	now     func() time.Time
}

func New(log *slog.Logger, storage Storage) *Service {
	return &Service{
		log:     log,
		storage: storage,
		now:     time.Now,
	}
}

func (s *Service) Create(ctx context.Context, owner primitive.ObjectID, text string) (models.Todo, error) {
	const op = "todos.Create"

	todo := models.Todo{
		Text:    models.NormalizeText(text),
		Creator: owner,
	}

	if err := models.ValidateTodo(todo); err != nil {
		return models.Todo{}, fmt.Errorf("%s: %w", op, err)
	}

	todo, err := s.storage.SaveTodo(ctx, todo)
	if err != nil {
		s.log.Error("failed to save todo", slog.String("op", op), sl.Err(err))

		return models.Todo{}, fmt.Errorf("%s: %w", op, err)
	}

	return todo, nil
}

func (s *Service) List(ctx context.Context, owner primitive.ObjectID) ([]models.Todo, error) {
	const op = "todos.List"

	todos, err := s.storage.Todos(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return todos, nil
}

func (s *Service) Get(ctx context.Context, owner primitive.ObjectID, id string) (models.Todo, error) {
	const op = "todos.Get"

	oid, err := storage.ParseID(id)
	if err != nil {
		return models.Todo{}, fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
	}

	todo, err := s.storage.Todo(ctx, oid, owner)
	if err != nil {
		return models.Todo{}, fmt.Errorf("%s: %w", op, notFound(err))
	}

	return todo, nil
}

// Update applies the whitelisted fields. The completion stamp is always derived here:
// completed=true stamps now, anything else clears it.
func (s *Service) Update(ctx context.Context, owner primitive.ObjectID, id string, patch models.TodoPatch) (models.Todo, error) {
	const op = "todos.Update"

	oid, err := storage.ParseID(id)
	if err != nil {
		return models.Todo{}, fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
	}

	var upd models.TodoUpdate

	if patch.Text != nil {
		text := models.NormalizeText(*patch.Text)
		if err := models.ValidateTodo(models.Todo{Text: text, Creator: owner}); err != nil {
			return models.Todo{}, fmt.Errorf("%s: %w", op, err)
		}
		upd.Text = &text
	}

	var stamp models.Todo
	stamp.Complete(patch.Completed, s.now())
	upd.Completed = stamp.Completed
	upd.CompletedAt = stamp.CompletedAt

	todo, err := s.storage.UpdateTodo(ctx, oid, owner, upd)
	if err != nil {
		return models.Todo{}, fmt.Errorf("%s: %w", op, notFound(err))
	}

	return todo, nil
}

func (s *Service) Delete(ctx context.Context, owner primitive.ObjectID, id string) (models.Todo, error) {
	const op = "todos.Delete"

	oid, err := storage.ParseID(id)
	if err != nil {
		return models.Todo{}, fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
	}

	todo, err := s.storage.DeleteTodo(ctx, oid, owner)
	if err != nil {
		return models.Todo{}, fmt.Errorf("%s: %w", op, notFound(err))
	}

	s.log.Info("todo deleted", slog.String("op", op), slog.String("id", oid.Hex()))

	return todo, nil
}

func notFound(err error) error {
	if errors.Is(err, storage.ErrTodoNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
