package memory

import (
	"context"
	"testing"

	"todo_api/internal/models"
	"todo_api/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := New()

	u, err := s.SaveUser(ctx, models.User{Email: "a@b.com", Password: "hash"})
	require.NoError(t, err)
	require.False(t, u.ID.IsZero())
	require.NotNil(t, u.Tokens)

	_, err = s.SaveUser(ctx, models.User{Email: "a@b.com", Password: "hash"})
	require.ErrorIs(t, err, storage.ErrUserExists)

	got, err := s.User(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.User(ctx, "x@y.com")
	require.ErrorIs(t, err, storage.ErrUserNotFound)

	_, err = s.UserByID(ctx, primitive.NewObjectID())
	require.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestTokens(t *testing.T) {
	ctx := context.Background()
	s := New()

	u, err := s.SaveUser(ctx, models.User{Email: "a@b.com", Password: "hash"})
	require.NoError(t, err)

	require.NoError(t, s.AddToken(ctx, u.ID, models.Token{Access: models.AccessAuth, Token: "t1"}))
	require.NoError(t, s.AddToken(ctx, u.ID, models.Token{Access: models.AccessAuth, Token: "t2"}))

	got, err := s.UserByToken(ctx, u.ID, models.AccessAuth, "t1")
	require.NoError(t, err)
	assert.Len(t, got.Tokens, 2)

	_, err = s.UserByToken(ctx, u.ID, "other", "t1")
	require.ErrorIs(t, err, storage.ErrUserNotFound)

	_, err = s.UserByToken(ctx, primitive.NewObjectID(), models.AccessAuth, "t1")
	require.ErrorIs(t, err, storage.ErrUserNotFound)

	require.NoError(t, s.RemoveToken(ctx, u.ID, "t1"))

	_, err = s.UserByToken(ctx, u.ID, models.AccessAuth, "t1")
	require.ErrorIs(t, err, storage.ErrUserNotFound)

	_, err = s.UserByToken(ctx, u.ID, models.AccessAuth, "t2")
	require.NoError(t, err)

	require.ErrorIs(t, s.AddToken(ctx, primitive.NewObjectID(), models.Token{}), storage.ErrUserNotFound)
}

func TestReturnedUsersAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()

	u, err := s.SaveUser(ctx, models.User{Email: "a@b.com", Password: "hash"})
	require.NoError(t, err)
	require.NoError(t, s.AddToken(ctx, u.ID, models.Token{Access: models.AccessAuth, Token: "t1"}))

	got, err := s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	got.Tokens[0].Token = "changed"

	again, err := s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "t1", again.Tokens[0].Token)
}

func TestTodosAreScopedToOwner(t *testing.T) {
	ctx := context.Background()
	s := New()

	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()

	first, err := s.SaveTodo(ctx, models.Todo{Text: "first", Creator: alice})
	require.NoError(t, err)
	_, err = s.SaveTodo(ctx, models.Todo{Text: "second", Creator: alice})
	require.NoError(t, err)
	_, err = s.SaveTodo(ctx, models.Todo{Text: "bob's", Creator: bob})
	require.NoError(t, err)

	list, err := s.Todos(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Text)
	assert.Equal(t, "second", list[1].Text)

	_, err = s.Todo(ctx, first.ID, bob)
	require.ErrorIs(t, err, storage.ErrTodoNotFound)

	text := "renamed"
	_, err = s.UpdateTodo(ctx, first.ID, bob, models.TodoUpdate{Text: &text})
	require.ErrorIs(t, err, storage.ErrTodoNotFound)

	_, err = s.DeleteTodo(ctx, first.ID, bob)
	require.ErrorIs(t, err, storage.ErrTodoNotFound)

	ms := int64(42)
	updated, err := s.UpdateTodo(ctx, first.ID, alice, models.TodoUpdate{Text: &text, Completed: true, CompletedAt: &ms})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Text)
	assert.True(t, updated.Completed)
	assert.Equal(t, int64(42), *updated.CompletedAt)

	deleted, err := s.DeleteTodo(ctx, first.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, first.ID, deleted.ID)

	_, err = s.Todo(ctx, first.ID, alice)
	require.ErrorIs(t, err, storage.ErrTodoNotFound)

	empty, err := s.Todos(ctx, primitive.NewObjectID())
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestDeleteMany(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.SaveUser(ctx, models.User{Email: "a@b.com"})
	require.NoError(t, err)
	_, err = s.SaveTodo(ctx, models.Todo{Text: "x", Creator: primitive.NewObjectID()})
	require.NoError(t, err)

	n, err := s.DeleteTodos(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.DeleteUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCancelledContextIsUnavailable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New()

	_, err := s.User(ctx, "a@b.com")
	require.ErrorIs(t, err, storage.ErrUnavailable)
	require.ErrorIs(t, s.Ping(ctx), storage.ErrUnavailable)
}
