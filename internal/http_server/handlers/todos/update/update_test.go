package update

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"todo_api/internal/http_server/middleware/authenticate"
	"todo_api/internal/models"
	"todo_api/internal/storage"
	"todo_api/internal/todos"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type mockUpdater struct {
	gotID    string
	gotOwner primitive.ObjectID
	gotPatch models.TodoPatch
	todo     models.Todo
	err      error
}

func (m *mockUpdater) Update(_ context.Context, owner primitive.ObjectID, id string, patch models.TodoPatch) (models.Todo, error) {
	m.gotOwner = owner
	m.gotID = id
	m.gotPatch = patch
	return m.todo, m.err
}

type stubVerifier struct {
	user models.User
}

func (s stubVerifier) VerifyToken(context.Context, string) (models.User, error) {
	return s.user, nil
}

func serve(t *testing.T, u *mockUpdater, user models.User, body string) *httptest.ResponseRecorder {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	r.Use(authenticate.New(log, stubVerifier{user: user}, time.Second))
	r.Patch("/todos/{id}", New(log, u))

	req := httptest.NewRequest(http.MethodPatch, "/todos/abc", strings.NewReader(body))
	req.Header.Set(authenticate.Header, "tok")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func TestUpdateHandler_Whitelist(t *testing.T) {
	user := models.User{ID: primitive.NewObjectID()}
	u := &mockUpdater{}

	w := serve(t, u, user, `{"text":"new","completed":true,"_creator":"x","completedAt":5}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc", u.gotID)
	assert.Equal(t, user.ID, u.gotOwner)
	require.NotNil(t, u.gotPatch.Text)
	assert.Equal(t, "new", *u.gotPatch.Text)
	assert.True(t, u.gotPatch.Completed)
}

func TestUpdateHandler_EmptyBody(t *testing.T) {
	u := &mockUpdater{}

	w := serve(t, u, models.User{ID: primitive.NewObjectID()}, "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, u.gotPatch.Text)
	assert.False(t, u.gotPatch.Completed)
}

func TestUpdateHandler_NonBoolCompletedIsRejected(t *testing.T) {
	w := serve(t, &mockUpdater{}, models.User{ID: primitive.NewObjectID()}, `{"completed":"yes"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateHandler_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "not found", err: fmt.Errorf("todos.Update: %w", todos.ErrNotFound), wantCode: http.StatusNotFound},
		{name: "unavailable", err: storage.ErrUnavailable, wantCode: http.StatusServiceUnavailable},
		{name: "validation", err: &models.ValidationError{}, wantCode: http.StatusBadRequest},
		{name: "other", err: fmt.Errorf("boom"), wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, &mockUpdater{err: tt.err}, models.User{ID: primitive.NewObjectID()}, `{"completed":true}`)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}
