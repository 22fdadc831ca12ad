package list

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"todo_api/internal/http_server/middleware/authenticate"
	resp "todo_api/internal/lib/api/response"
	sl "todo_api/internal/lib/logger/sl"
	"todo_api/internal/models"
	"todo_api/internal/storage"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Response struct {
	Todos []models.Todo `json:"todos"`
}

type TodoLister interface {
	List(ctx context.Context, owner primitive.ObjectID) ([]models.Todo, error)
}

func New(log *slog.Logger, lister TodoLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.todos.list.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		user, ok := authenticate.User(r)
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("unauthorized"))

			return
		}

		todos, err := lister.List(r.Context(), user.ID)
		if err != nil {
			log.Error("failed to list todos", sl.Err(err))

			if errors.Is(err, storage.ErrUnavailable) {
				render.Status(r, http.StatusServiceUnavailable)
				render.JSON(w, r, resp.Error("service unavailable"))

				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("failed to list todos"))

			return
		}

		if todos == nil {
			todos = []models.Todo{}
		}

		render.JSON(w, r, Response{Todos: todos})
	}
}
