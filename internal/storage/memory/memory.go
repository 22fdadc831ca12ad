// Package memory keeps users and todos in process memory. It honours the same contract as the
// MongoDB repository and backs local development and tests.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"sync"

	"todo_api/internal/models"
	"todo_api/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]models.User
	todos map[primitive.ObjectID]models.Todo
}

func New() *Store {
	return &Store{
		users: make(map[primitive.ObjectID]models.User),
		todos: make(map[primitive.ObjectID]models.Todo),
	}
}

func (s *Store) SaveUser(ctx context.Context, u models.User) (models.User, error) {
	if err := alive(ctx, "storage.memory.SaveUser"); err != nil {
		return models.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == u.Email {
			return models.User{}, storage.ErrUserExists
		}
	}

	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.Tokens == nil {
		u.Tokens = []models.Token{}
	}

	s.users[u.ID] = copyUser(u)

	return copyUser(u), nil
}

func (s *Store) User(ctx context.Context, email string) (models.User, error) {
	if err := alive(ctx, "storage.memory.User"); err != nil {
		return models.User{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}

	return models.User{}, storage.ErrUserNotFound
}

func (s *Store) UserByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	if err := alive(ctx, "storage.memory.UserByID"); err != nil {
		return models.User{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}

	return copyUser(u), nil
}

func (s *Store) UserByToken(ctx context.Context, id primitive.ObjectID, access, token string) (models.User, error) {
	if err := alive(ctx, "storage.memory.UserByToken"); err != nil {
		return models.User{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok || !u.HasToken(access, token) {
		return models.User{}, storage.ErrUserNotFound
	}

	return copyUser(u), nil
}

func (s *Store) AddToken(ctx context.Context, id primitive.ObjectID, token models.Token) error {
	if err := alive(ctx, "storage.memory.AddToken"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return storage.ErrUserNotFound
	}

	u.Tokens = append(slices.Clone(u.Tokens), token)
	s.users[id] = u

	return nil
}

func (s *Store) RemoveToken(ctx context.Context, id primitive.ObjectID, token string) error {
	if err := alive(ctx, "storage.memory.RemoveToken"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return storage.ErrUserNotFound
	}

	u.Tokens = slices.DeleteFunc(slices.Clone(u.Tokens), func(t models.Token) bool {
		return t.Token == token
	})
	s.users[id] = u

	return nil
}

func (s *Store) DeleteUsers(ctx context.Context) (int64, error) {
	if err := alive(ctx, "storage.memory.DeleteUsers"); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.users))
	clear(s.users)

	return n, nil
}

func (s *Store) SaveTodo(ctx context.Context, t models.Todo) (models.Todo, error) {
	if err := alive(ctx, "storage.memory.SaveTodo"); err != nil {
		return models.Todo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}

	s.todos[t.ID] = t

	return t, nil
}

func (s *Store) Todos(ctx context.Context, owner primitive.ObjectID) ([]models.Todo, error) {
	if err := alive(ctx, "storage.memory.Todos"); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	todos := []models.Todo{}
	for _, t := range s.todos {
		if t.Creator == owner {
			todos = append(todos, t)
		}
	}

	// ObjectIDs generated in one process sort by creation time.
	slices.SortFunc(todos, func(a, b models.Todo) int {
		return bytes.Compare(a.ID[:], b.ID[:])
	})

	return todos, nil
}

func (s *Store) Todo(ctx context.Context, id, owner primitive.ObjectID) (models.Todo, error) {
	if err := alive(ctx, "storage.memory.Todo"); err != nil {
		return models.Todo{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.todos[id]
	if !ok || t.Creator != owner {
		return models.Todo{}, storage.ErrTodoNotFound
	}

	return t, nil
}

func (s *Store) UpdateTodo(ctx context.Context, id, owner primitive.ObjectID, upd models.TodoUpdate) (models.Todo, error) {
	if err := alive(ctx, "storage.memory.UpdateTodo"); err != nil {
		return models.Todo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.todos[id]
	if !ok || t.Creator != owner {
		return models.Todo{}, storage.ErrTodoNotFound
	}

	if upd.Text != nil {
		t.Text = *upd.Text
	}
	t.Completed = upd.Completed
	t.CompletedAt = upd.CompletedAt

	s.todos[id] = t

	return t, nil
}

func (s *Store) DeleteTodo(ctx context.Context, id, owner primitive.ObjectID) (models.Todo, error) {
	if err := alive(ctx, "storage.memory.DeleteTodo"); err != nil {
		return models.Todo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.todos[id]
	if !ok || t.Creator != owner {
		return models.Todo{}, storage.ErrTodoNotFound
	}

	delete(s.todos, id)

	return t, nil
}

func (s *Store) DeleteTodos(ctx context.Context) (int64, error) {
	if err := alive(ctx, "storage.memory.DeleteTodos"); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.todos))
	clear(s.todos)

	return n, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return alive(ctx, "storage.memory.Ping")
}

func (s *Store) Close() {}

func alive(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w: %w", op, storage.ErrUnavailable, err)
	}
	return nil
}

func copyUser(u models.User) models.User {
	u.Tokens = slices.Clone(u.Tokens)
	return u
}
