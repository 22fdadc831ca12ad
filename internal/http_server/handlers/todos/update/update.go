package update

import (
	"context"
	"errors"
	"io"
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

// Request only carries the client writable fields. Anything else in the body is dropped.
type Request struct {
	Text      *string `json:"text"`
	Completed *bool   `json:"completed"`
}

type Response struct {
	Todo models.Todo `json:"todo"`
}

type TodoUpdater interface {
	Update(ctx context.Context, owner primitive.ObjectID, id string, patch models.TodoPatch) (models.Todo, error)
}

// New godoc
// @Summary      Update a todo
// @Description  completed=true stamps completedAt with the current time. Any other value clears both.
// @Tags         todos
// @Accept       json
// @Produce      json
// @Param        x-auth  header  string  true  "Auth token"
// @Param        id      path    string  true  "Todo id"
// @Param        todo    body    object{text=string,completed=bool}  false  "Fields to change"
// @Success      200  {object}  object{todo=models.Todo}
// @Failure      400  {object}  object{status=string,error=string}
// @Failure      404  {object}  object{status=string,error=string}
// @Router       /todos/{id} [patch]
func New(log *slog.Logger, updater TodoUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.todos.update.New"

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

		var req Request

		err := render.DecodeJSON(r.Body, &req)
		if err != nil && !errors.Is(err, io.EOF) {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		patch := models.TodoPatch{
			Text:      req.Text,
			Completed: req.Completed != nil && *req.Completed,
		}

		todo, err := updater.Update(r.Context(), user.ID, id, patch)
		if err != nil {
			var vErr *models.ValidationError

			switch {
			case errors.Is(err, todos.ErrNotFound):
				log.Info("todo not found")

				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("todo not found"))
			case errors.As(err, &vErr):
				log.Info("update rejected", sl.Err(err))

				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.ValidationError(vErr.Errs))
			case errors.Is(err, storage.ErrUnavailable):
				log.Error("storage unavailable", sl.Err(err))

				render.Status(r, http.StatusServiceUnavailable)
				render.JSON(w, r, resp.Error("service unavailable"))
			default:
				log.Error("failed to update todo", sl.Err(err))

				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("failed to update todo"))
			}

			return
		}

		log.Info("todo updated", slog.Bool("completed", todo.Completed))

		render.JSON(w, r, Response{Todo: todo})
	}
}
