package create

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

type Request struct {
	Text string `json:"text"`
}

type TodoCreator interface {
	Create(ctx context.Context, owner primitive.ObjectID, text string) (models.Todo, error)
}

// New godoc
// @Summary      Create a todo
// @Tags         todos
// @Accept       json
// @Produce      json
// @Param        x-auth  header  string                 true  "Auth token"
// @Param        todo    body    object{text=string}    true  "Todo"
// @Success      200  {object}  models.Todo
// @Failure      400  {object}  object{status=string,error=string}
// @Failure      401  {object}  object{status=string,error=string}
// @Router       /todos [post]
func New(log *slog.Logger, creator TodoCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.todos.create.New"

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

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		todo, err := creator.Create(r.Context(), user.ID, req.Text)
		if err != nil {
			var vErr *models.ValidationError

			switch {
			case errors.As(err, &vErr):
				log.Info("todo rejected", sl.Err(err))

				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.ValidationError(vErr.Errs))
			case errors.Is(err, storage.ErrUnavailable):
				log.Error("storage unavailable", sl.Err(err))

				render.Status(r, http.StatusServiceUnavailable)
				render.JSON(w, r, resp.Error("service unavailable"))
			default:
				log.Error("failed to create todo", sl.Err(err))

				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("failed to create todo"))
			}

			return
		}

		log.Info("todo created", slog.String("id", todo.ID.Hex()))

		render.JSON(w, r, todo)
	}
}
