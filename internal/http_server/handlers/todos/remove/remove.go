package remove

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
	"todo_api/internal/todos"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Response struct {
	Todo models.Todo `json:"todo"`
}

type TodoRemover interface {
	Delete(ctx context.Context, owner primitive.ObjectID, id string) (models.Todo, error)
}

func New(log *slog.Logger, remover TodoRemover) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.todos.remove.New"

		id := chi.URLParam(r, "id")

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("id", id),
		)

		user, ok := authenticate.User(r)
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("unauthorized"))

			return
		}

		todo, err := remover.Delete(r.Context(), user.ID, id)
		if err != nil {
			switch {
			case errors.Is(err, todos.ErrNotFound):
				log.Info("todo not found")

				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("todo not found"))
			case errors.Is(err, storage.ErrUnavailable):
				log.Error("storage unavailable", sl.Err(err))

				render.Status(r, http.StatusServiceUnavailable)
				render.JSON(w, r, resp.Error("service unavailable"))
			default:
				log.Error("failed to delete todo", sl.Err(err))

				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("failed to delete todo"))
			}

			return
		}

		render.JSON(w, r, Response{Todo: todo})
	}
}
